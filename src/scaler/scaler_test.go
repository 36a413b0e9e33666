package scaler_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/triple000-it/tml-collection/src/scaler"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test png: %s", err)
	}
	return buf.Bytes()
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("result is not a JPEG: %s", err)
	}
	return img
}

// TestScalerSimpleImage creates a very simple image and uses the scaler to produce
// a card and a thumbnail out of it. Then checks whether they are the desired size.
func TestScalerSimpleImage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sclr := scaler.New(ctx, scaler.DefaultOptions())
	src := encodePNG(t, solid(600, 300, color.NRGBA{R: 200, A: 255}))

	imgs, err := sclr.Process(ctx, src)
	if err != nil {
		t.Fatalf("processing failed: %s", err)
	}
	if imgs.CardErr != nil || imgs.ThumbErr != nil {
		t.Fatalf("unexpected encode errors: %v, %v", imgs.CardErr, imgs.ThumbErr)
	}

	card := decodeJPEG(t, imgs.Card)
	if card.Bounds().Dx() != 400 || card.Bounds().Dy() != 400 {
		t.Errorf("expected 400x400 card but got %v", card.Bounds().Size())
	}

	thumb := decodeJPEG(t, imgs.Thumb)
	if thumb.Bounds().Dx() != 150 || thumb.Bounds().Dy() != 75 {
		t.Errorf("expected 150x75 thumbnail but got %v", thumb.Bounds().Size())
	}
}

// TestThumbnailIsNotUpscaled makes sure small images keep their size.
func TestThumbnailIsNotUpscaled(t *testing.T) {
	small := solid(100, 80, color.Black)
	thumb := scaler.Thumbnail(small, 150)
	if thumb.Bounds().Dx() != 100 || thumb.Bounds().Dy() != 80 {
		t.Errorf("expected 100x80 but got %v", thumb.Bounds().Size())
	}

	tall := scaler.Thumbnail(solid(200, 1000, color.Black), 150)
	if tall.Bounds().Dx() != 30 || tall.Bounds().Dy() != 150 {
		t.Errorf("expected 30x150 but got %v", tall.Bounds().Size())
	}
}

// TestFitCropsToTheCenter checks that the card keeps the middle of wide images
// instead of stretching them.
func TestFitCropsToTheCenter(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 300; x++ {
			c := color.RGBA{B: 255, A: 255}
			if x >= 100 && x < 200 {
				c = color.RGBA{G: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	card := scaler.Fit(img, 40)
	if card.Bounds().Dx() != 40 || card.Bounds().Dy() != 40 {
		t.Fatalf("expected 40x40 but got %v", card.Bounds().Size())
	}

	for _, pt := range []image.Point{{2, 2}, {20, 20}, {37, 37}} {
		r, g, b, _ := card.At(pt.X, pt.Y).RGBA()
		if g>>8 < 200 || r>>8 > 50 || b>>8 > 50 {
			t.Errorf("pixel %v is not from the green center: %d %d %d",
				pt, r>>8, g>>8, b>>8)
		}
	}
}

// TestDecodeFlattensTransparency makes sure transparent and paletted images
// end up opaque on a white background.
func TestDecodeFlattensTransparency(t *testing.T) {
	transparent := encodePNG(t, solid(10, 10, color.NRGBA{}))

	img, err := scaler.Decode(transparent)
	if err != nil {
		t.Fatalf("decoding: %s", err)
	}
	r, g, b, a := img.At(5, 5).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 || a>>8 != 255 {
		t.Errorf("expected opaque white but got %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}

	pal := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{
		color.Transparent,
		color.RGBA{R: 255, A: 255},
	})
	pal.SetColorIndex(1, 1, 1)
	var buf bytes.Buffer
	if err := gif.Encode(&buf, pal, nil); err != nil {
		t.Fatalf("encoding gif: %s", err)
	}

	img, err = scaler.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decoding gif: %s", err)
	}
	if _, ok := img.(*image.RGBA); !ok {
		t.Errorf("expected an RGBA image but got %T", img)
	}
	r, g, b, _ = img.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("transparent palette entry was not flattened onto white")
	}
	r, g, b, _ = img.At(1, 1).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("expected red but got %d %d %d", r>>8, g>>8, b>>8)
	}
}

// TestProcessRejectsNonImages checks that garbage payloads fail with
// ErrDecodeFailed.
func TestProcessRejectsNonImages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sclr := scaler.New(ctx, scaler.DefaultOptions())

	tests := [][]byte{
		[]byte("<html>not an image</html>"),
		nil,
		// PNG signature followed by garbage.
		append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...),
	}

	for _, data := range tests {
		_, err := sclr.Process(ctx, data)
		if !errors.Is(err, scaler.ErrDecodeFailed) {
			t.Errorf("expected ErrDecodeFailed for %q but got %v", data, err)
		}
	}
}

// TestScalerCancel makes sure that the Scaler is not usable after cancel and that
// cancel actually stops its workers.
func TestScalerCancel(t *testing.T) {
	tests := []struct {
		desc            string
		cancelledScaler func() *scaler.Scaler
	}{
		{
			desc: "cancelled after using its own cancel func",
			cancelledScaler: func() *scaler.Scaler {
				ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
				defer cancel()

				sclr := scaler.New(ctx, scaler.DefaultOptions())
				sclr.Cancel()
				return sclr
			},
		},
		{
			desc: "cancelled after its context is cancelled",
			cancelledScaler: func() *scaler.Scaler {
				ctx, cancel := context.WithCancel(context.Background())

				sclr := scaler.New(ctx, scaler.DefaultOptions())
				cancel()
				time.Sleep(5 * time.Millisecond)
				return sclr
			},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			sclr := test.cancelledScaler()
			testImg := encodePNG(t, solid(4, 4, color.Black))

			_, err := sclr.Process(context.Background(), testImg)
			if !errors.Is(err, scaler.ErrCancelled) {
				t.Errorf("using cancelled scaler did not cause scaler.ErrCancelled")
			}
		})
	}
}
