package scaler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"runtime"

	// The following are all image formats supported for converting
	// to card images and thumbnails.
	_ "image/gif"
	_ "image/png"

	// Additional image formats from the x repository.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/h2non/filetype"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// ErrCancelled is returned when one is trying to interact with an stopped
// scaler.
var ErrCancelled = errors.New("scale operation on cancelled Scaler")

// ErrDecodeFailed is returned when the payload is not a decodable image.
var ErrDecodeFailed = errors.New("image decode failed")

// Options controls the sizes and the JPEG quality of the produced images.
type Options struct {
	// CardSize is the side of the square card image.
	CardSize    int
	CardQuality int

	// ThumbSize is the maximum length of the longest thumbnail side.
	ThumbSize    int
	ThumbQuality int
}

// DefaultOptions returns a 400x400 card at quality 85 and a thumbnail bound by
// 150 pixels at quality 80.
func DefaultOptions() Options {
	return Options{
		CardSize:     400,
		CardQuality:  85,
		ThumbSize:    150,
		ThumbQuality: 80,
	}
}

// Images is the result of processing one payload. The card and the thumbnail
// fail independently of each other.
type Images struct {
	Card     []byte
	CardErr  error
	Thumb    []byte
	ThumbErr error
}

// description is a processing instruction.
type description struct {
	// Data is the raw payload which will be decoded.
	Data []byte

	// Result is the channel on which the result is returned.
	Result chan result
}

type result struct {
	Images Images
	Err    error
}

// Scaler is a utility type which could be used for turning downloaded images
// into card images and thumbnails. The work is done by a fixed pool of
// workers which is stopped together with the context given to New.
type Scaler struct {
	ctx           context.Context
	cancelContext context.CancelFunc
	opts          Options

	work chan description
}

// Process decodes data once and produces both the card image and the
// thumbnail out of it. A payload which cannot be decoded fails with
// ErrDecodeFailed. Errors while encoding are reported in Images.
func (s *Scaler) Process(ctx context.Context, data []byte) (Images, error) {
	if s.ctx.Err() != nil {
		return Images{}, ErrCancelled
	}

	desc := description{
		Data:   data,
		Result: make(chan result, 1),
	}

	select {
	case s.work <- desc:
	case <-s.ctx.Done():
		return Images{}, ErrCancelled
	case <-ctx.Done():
		return Images{}, fmt.Errorf("ctx done while waiting to send scale op: %w",
			ctx.Err())
	}

	res := <-desc.Result
	return res.Images, res.Err
}

func (s *Scaler) worker() error {
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case desc := <-s.work:
			imgs, err := s.process(desc.Data)
			desc.Result <- result{Images: imgs, Err: err}
		}
	}
}

func (s *Scaler) process(data []byte) (Images, error) {
	img, err := Decode(data)
	if err != nil {
		return Images{}, err
	}

	var imgs Images
	imgs.Card, imgs.CardErr = encodeJPEG(Fit(img, s.opts.CardSize), s.opts.CardQuality)
	imgs.Thumb, imgs.ThumbErr = encodeJPEG(
		Thumbnail(img, s.opts.ThumbSize),
		s.opts.ThumbQuality,
	)

	return imgs, nil
}

// Decode sniffs data and decodes it into an opaque image. Transparent and
// paletted images are flattened onto white.
func Decode(data []byte) (image.Image, error) {
	if !filetype.IsImage(data) {
		return nil, fmt.Errorf("%w: payload is not an image", ErrDecodeFailed)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecodeFailed, err)
	}

	return flatten(img), nil
}

func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// Fit center crops img to a square and scales it to size x size.
func Fit(img image.Image, size int) image.Image {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}

	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)
	return dst
}

// Thumbnail scales img so that its longest side is at most maxSide while
// preserving its aspect ratio. Images which already fit are not upscaled.
func Thumbnail(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}

	toW, toH := maxSide, maxSide
	if w > h {
		toH = max(1, int(float64(h)*float64(maxSide)/float64(w)+0.5))
	} else if h > w {
		toW = max(1, int(float64(w)*float64(maxSide)/float64(h)+0.5))
	}

	dst := image.NewRGBA(image.Rect(0, 0, toW, toH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var dstJPEG bytes.Buffer
	if err := jpeg.Encode(&dstJPEG, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	return dstJPEG.Bytes(), nil
}

// Cancel stops the scaler and all of its operations. Users may not use
// any further methods on cancelled scalers.
func (s *Scaler) Cancel() {
	s.cancelContext()
}

// New returns a new scaler with one worker per CPU, ready for use.
func New(ctx context.Context, opts Options) *Scaler {
	ctx, cancel := context.WithCancel(ctx)

	s := &Scaler{
		cancelContext: cancel,
		opts:          opts,
		work:          make(chan description),
	}

	g, gctx := errgroup.WithContext(ctx)
	s.ctx = gctx
	for i := 0; i < runtime.NumCPU(); i++ {
		g.Go(s.worker)
	}

	return s
}
