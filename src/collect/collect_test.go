package collect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triple000-it/tml-collection/src/art"
	"github.com/triple000-it/tml-collection/src/art/artfakes"
	"github.com/triple000-it/tml-collection/src/imagestore"
	"github.com/triple000-it/tml-collection/src/pipeline"
	"github.com/triple000-it/tml-collection/src/rarity"
	"github.com/triple000-it/tml-collection/src/roster"
	"github.com/triple000-it/tml-collection/src/scaler"
)

const (
	outDir    = "/out"
	goodImage = "https://img.example.com/artist.png"
)

var runTime = time.Date(2024, 7, 20, 12, 0, 0, 0, time.UTC)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type recordingPublisher struct {
	mu      sync.Mutex
	bundles []imagestore.Bundle
	failFor string
}

func (p *recordingPublisher) Publish(_ context.Context, b imagestore.Bundle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor != "" && b.Filename == p.failFor {
		return errors.New("bucket unavailable")
	}
	p.bundles = append(p.bundles, b)
	return nil
}

type testEnv struct {
	fs        afero.Fs
	fetcher   *artfakes.FakeFetcher
	store     *imagestore.Store
	publisher *recordingPublisher
	collector *Collector
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	body := pngBytes(t, 300, 200)
	env := &testEnv{
		fs:        afero.NewMemMapFs(),
		fetcher:   &artfakes.FakeFetcher{},
		publisher: &recordingPublisher{},
	}
	env.fetcher.FetchStub = func(_ context.Context, rawURL string) (*art.Download, error) {
		if rawURL != goodImage {
			return nil, fmt.Errorf("%w: 404 Not Found", art.ErrFetchFailed)
		}
		return &art.Download{URL: rawURL, Body: body, ContentType: "image/png", Ext: ".png"}, nil
	}

	env.store = imagestore.New(env.fs, "/out/images", "dj-images")
	require.NoError(t, env.store.Init())

	pipe := pipeline.New(env.fetcher, scaler.New(ctx, scaler.DefaultOptions()), env.store)
	env.collector = New(pipe, env.publisher, env.fs, outDir)
	env.collector.Now = func() time.Time { return runTime }
	return env
}

func artist(id, name string, appearances int, imageURL string) roster.Artist {
	return roster.Artist{
		ID:               id,
		Name:             name,
		StageName:        name,
		Nationality:      "Dutch",
		Genres:           []string{"Trance"},
		DebutYear:        2005,
		TotalAppearances: appearances,
		YearsActive:      20,
		ImageURL:         imageURL,
		CreatedAt:        runTime,
		UpdatedAt:        runTime,
	}
}

func testArtists() []roster.Artist {
	return []roster.Artist{
		artist("armin_van_buuren", "Armin van Buuren", 20, goodImage),
		artist("kygo", "Kygo", 4, "https://img.example.com/missing.jpg"),
		artist("charlotte_de_witte", "Charlotte de Witte", 6, "not a url"),
		artist("nobody", "Nobody", 1, ""),
	}
}

func testEvents() []roster.Event {
	return []roster.Event{{
		ID:        "tml_2024_0",
		Name:      "Tomorrowland 2024",
		Year:      2024,
		Location:  "Boom, Belgium",
		StartDate: "2024-07-19",
		EndDate:   "2024-07-28",
		Type:      "summer",
		Country:   "Belgium",
	}}
}

func (env *testEnv) read(t *testing.T, name string) []byte {
	t.Helper()

	data, err := afero.ReadFile(env.fs, filepath.Join(outDir, name))
	require.NoError(t, err)
	return data
}

func TestRunCountsImageOutcomes(t *testing.T) {
	env := newEnv(t)
	artists := testArtists()

	report, err := env.collector.Run(context.Background(), artists, testEvents())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 4, report.TotalArtists)
	assert.Equal(t, 1, report.TotalEvents)
	assert.Equal(t, 3, report.Images.Attempted)
	assert.Equal(t, 1, report.Images.Successful)
	assert.Equal(t, 3, report.Images.Failed)
	assert.Equal(t, 25.0, report.Images.SuccessRate)
	assert.Equal(t, map[string]int{"fetch_failed": 1, "invalid_url": 1}, report.Images.FailureKinds)
	assert.Equal(t, 1, report.Images.Published)
	assert.Equal(t, 2, env.fetcher.FetchCallCount())

	armin := artists[0]
	assert.True(t, armin.HasImage)
	require.NotNil(t, armin.ImagePaths)
	assert.Equal(t, "/dj-images/armin_van_buuren.png", armin.ImagePaths.WebPath)
	assert.Equal(t, "/out/images/processed/armin_van_buuren_processed.jpg", armin.ImagePaths.Processed)

	for _, a := range artists[1:] {
		assert.False(t, a.HasImage, a.Name)
		assert.Nil(t, a.ImagePaths, a.Name)
	}

	require.Len(t, env.publisher.bundles, 1)
	assert.Equal(t, *armin.ImagePaths, env.publisher.bundles[0])
}

func TestRunClassifiesEveryArtist(t *testing.T) {
	env := newEnv(t)
	artists := testArtists()

	report, err := env.collector.Run(context.Background(), artists, testEvents())
	require.NoError(t, err)

	total := 0
	for _, tier := range rarity.Tiers() {
		n, ok := report.RarityDistribution[tier]
		assert.True(t, ok, "tier %s missing from the distribution", tier)
		total += n
	}
	assert.Equal(t, len(artists), total)

	for _, a := range artists {
		assert.NotEmpty(t, a.Rarity, a.Name)
		assert.GreaterOrEqual(t, a.RarityPercentage, rarity.MinPercentage, a.Name)
		require.NotNil(t, a.RarityStats, a.Name)
		assert.Equal(t, a.Rarity.Info(), *a.RarityStats)
	}
	assert.Equal(t, 0, report.RarityFailures)
}

func TestRunRecoversFromClassificationPanic(t *testing.T) {
	env := newEnv(t)
	env.collector.classify = func(in rarity.Input) rarity.Result {
		if in.TotalAppearances == 6 {
			panic("malformed record")
		}
		return rarity.Classify(in)
	}

	artists := testArtists()
	report, err := env.collector.Run(context.Background(), artists, testEvents())
	require.NoError(t, err)

	assert.Equal(t, 1, report.RarityFailures)
	assert.Equal(t, rarity.Common, artists[2].Rarity)
	assert.Equal(t, 60.0, artists[2].RarityPercentage)
	assert.Equal(t, 4, report.TotalArtists, "the run continues after a failure")
}

func TestRunWritesOutputFiles(t *testing.T) {
	env := newEnv(t)

	_, err := env.collector.Run(context.Background(), testArtists(), testEvents())
	require.NoError(t, err)

	scanner := bufio.NewScanner(bytes.NewReader(env.read(t, ArtistsFile)))
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	var lines []roster.Artist
	for scanner.Scan() {
		var a roster.Artist
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &a))
		lines = append(lines, a)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 4)
	assert.Equal(t, "armin_van_buuren", lines[0].ID)
	assert.True(t, lines[0].HasImage)
	assert.False(t, lines[3].HasImage)

	var dbArtists []DBArtist
	require.NoError(t, json.Unmarshal(env.read(t, DBArtistsFile), &dbArtists))
	require.Len(t, dbArtists, 4)
	assert.Equal(t, "/dj-images/armin_van_buuren.png", dbArtists[0].ImageURL)
	assert.Empty(t, dbArtists[1].ImageURL)

	var dbEvents []DBEvent
	require.NoError(t, json.Unmarshal(env.read(t, DBEventsFile), &dbEvents))
	assert.Equal(t, []DBEvent{{
		ID:        "tml_2024_0",
		Name:      "Tomorrowland 2024",
		Year:      2024,
		Location:  "Boom, Belgium",
		StartDate: "2024-07-19",
		EndDate:   "2024-07-28",
		Type:      "summer",
		Country:   "Belgium",
	}}, dbEvents)

	assert.Equal(t, 1, bytes.Count(env.read(t, EventsFile), []byte("\n")))

	var stats Report
	require.NoError(t, json.Unmarshal(env.read(t, StatsFile), &stats))
	assert.Equal(t, 4, stats.TotalArtists)
	assert.Equal(t, 1, stats.Images.Successful)
	assert.Len(t, stats.RarityDistribution, 4)

	leftovers, err := afero.Glob(env.fs, filepath.Join(outDir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRunWritesMetrics(t *testing.T) {
	env := newEnv(t)

	_, err := env.collector.Run(context.Background(), testArtists(), testEvents())
	require.NoError(t, err)

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(bytes.NewReader(env.read(t, MetricsFile)))
	require.NoError(t, err)

	artists := families["tmlc_artists"]
	require.NotNil(t, artists)
	assert.Equal(t, 4.0, artists.GetMetric()[0].GetGauge().GetValue())

	failures := families["tmlc_image_failures"]
	require.NotNil(t, failures)
	byKind := make(map[string]float64)
	for _, m := range failures.GetMetric() {
		byKind[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{"fetch_failed": 1, "invalid_url": 1}, byKind)

	tiers := families["tmlc_rarity_artists"]
	require.NotNil(t, tiers)
	assert.Len(t, tiers.GetMetric(), 4)

	assert.Equal(t, float64(runTime.Unix()),
		families["tmlc_last_run_timestamp_seconds"].GetMetric()[0].GetGauge().GetValue())
}

func TestRunWithoutPipeline(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(nil, nil, fs, outDir)
	c.Now = func() time.Time { return runTime }

	report, err := c.Run(context.Background(), testArtists(), testEvents())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Images.Attempted)
	assert.Equal(t, 4, report.Images.Failed)
	assert.Equal(t, 0.0, report.Images.SuccessRate)
}

func TestRunPublishFailures(t *testing.T) {
	env := newEnv(t)
	env.publisher.failFor = "armin_van_buuren.png"

	report, err := env.collector.Run(context.Background(), testArtists(), testEvents())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Images.Successful, "a publish failure keeps the local image")
	assert.Equal(t, 0, report.Images.Published)
	assert.Equal(t, 1, report.Images.PublishFailed)
}

func TestRunReusesStoredImages(t *testing.T) {
	env := newEnv(t)
	env.collector.Pipeline.SkipExisting = true

	_, err := env.store.WriteOriginal("armin_van_buuren", ".png", pngBytes(t, 50, 50))
	require.NoError(t, err)
	_, err = env.store.WriteProcessed("armin_van_buuren", []byte("card"))
	require.NoError(t, err)
	_, err = env.store.WriteThumbnail("armin_van_buuren", []byte("thumb"))
	require.NoError(t, err)

	artists := testArtists()
	report, err := env.collector.Run(context.Background(), artists, testEvents())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Images.Reused)
	assert.Equal(t, 1, report.Images.Successful)
	assert.Equal(t, 0, report.Images.Published, "reused bundles are not published again")
	assert.True(t, artists[0].HasImage)
	assert.Equal(t, 1, env.fetcher.FetchCallCount(), "only the missing image is fetched")
}

func TestRunDuplicateIDs(t *testing.T) {
	env := newEnv(t)
	artists := []roster.Artist{
		artist("armin_van_buuren", "Armin van Buuren", 20, goodImage),
		artist("armin_van_buuren", "Armin Van Buuren", 3, goodImage),
	}

	report, err := env.collector.Run(context.Background(), artists, testEvents())
	require.NoError(t, err)

	assert.Equal(t, 1, env.fetcher.FetchCallCount())
	assert.Equal(t, 2, report.TotalArtists)
	assert.True(t, artists[0].HasImage)
	assert.True(t, artists[1].HasImage)
	assert.Equal(t, artists[0].ImagePaths, artists[1].ImagePaths)
}

func TestRunOutputFailure(t *testing.T) {
	c := New(nil, nil, afero.NewReadOnlyFs(afero.NewMemMapFs()), outDir)

	report, err := c.Run(context.Background(), testArtists(), testEvents())
	assert.Error(t, err)
	assert.NotNil(t, report)
}

func TestReportTopLists(t *testing.T) {
	var artists []roster.Artist
	for i := 0; i < 7; i++ {
		a := artist(fmt.Sprintf("legend_%d", i), fmt.Sprintf("Legend %d", i), 20, "")
		a.Rarity = rarity.Legendary
		artists = append(artists, a)
	}
	epic := artist("epic", "Epic", 10, "")
	epic.Rarity = rarity.Epic
	artists = append(artists, epic)

	r := newReport("run", "test", runTime)
	r.RarityDistribution[rarity.Legendary] = 7
	r.RarityDistribution[rarity.Epic] = 1
	r.finish(artists, nil, runTime.Add(time.Minute))

	assert.Equal(t, []string{"Legend 0", "Legend 1", "Legend 2", "Legend 3", "Legend 4"}, r.TopLegendary)
	assert.Equal(t, []string{"Epic"}, r.TopEpic)
	assert.Equal(t, 87.5, r.RarityPercentages[rarity.Legendary])
	assert.Equal(t, 0.0, r.RarityPercentages[rarity.Common])
	assert.Equal(t, 0, r.TotalEvents)
}

func TestReportEmptyRun(t *testing.T) {
	r := newReport("run", "test", runTime)
	r.finish(nil, nil, runTime)

	assert.Equal(t, 0.0, r.Images.SuccessRate)
	assert.Empty(t, r.TopLegendary)
	assert.NotNil(t, r.TopLegendary)
	for _, tier := range rarity.Tiers() {
		assert.Equal(t, 0.0, r.RarityPercentages[tier])
	}
}
