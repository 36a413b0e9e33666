package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/pborman/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/triple000-it/tml-collection/src/pipeline"
	"github.com/triple000-it/tml-collection/src/publish"
	"github.com/triple000-it/tml-collection/src/rarity"
	"github.com/triple000-it/tml-collection/src/roster"
	"github.com/triple000-it/tml-collection/src/version"
)

// topListSize is the number of names listed per tier in the run summary.
const topListSize = 5

// fallbackPercentage is used for artists whose classification failed.
const fallbackPercentage = 60.0

// Collector runs the whole collection: it classifies every artist, fetches the
// artist images, publishes them and writes the output files.
type Collector struct {
	// Pipeline fetches the artist images. Images are skipped when it is nil.
	Pipeline *pipeline.Pipeline

	// Publisher receives every new image bundle.
	Publisher publish.Publisher

	// Now returns the time used for the run time stamps.
	Now func() time.Time

	out      *Writer
	classify func(rarity.Input) rarity.Result
}

// New returns a Collector writing its output files into outputDir in fs.
func New(pipe *pipeline.Pipeline, pub publish.Publisher, fs afero.Fs, outputDir string) *Collector {
	if pub == nil {
		pub = publish.Nop{}
	}

	return &Collector{
		Pipeline:  pipe,
		Publisher: pub,
		Now:       time.Now,
		out:       NewWriter(fs, outputDir),
		classify:  rarity.Classify,
	}
}

// Run processes artists and events and writes all output files. Per artist
// failures are logged and counted in the returned report. Only failing to
// write the output is an error.
func (c *Collector) Run(
	ctx context.Context,
	artists []roster.Artist,
	events []roster.Event,
) (*Report, error) {
	started := c.Now().UTC()
	report := newReport(uuid.New(), version.Version, started)

	logger := log.With().Str("run_id", report.RunID).Logger()
	logger.Info().
		Int("artists", len(artists)).
		Int("events", len(events)).
		Msg("starting collection")

	warnDuplicates(artists)

	for i := range artists {
		res, ok := c.classifySafe(&artists[i])
		if !ok {
			report.RarityFailures++
		}
		artists[i].ApplyRarity(res)
		report.RarityDistribution[res.Tier]++
	}

	if c.Pipeline != nil {
		c.fetchImages(ctx, artists, report)
	} else {
		report.Images.Failed = len(artists)
	}

	report.finish(artists, events, c.Now().UTC())

	if err := c.out.WriteAll(artists, events, report); err != nil {
		return report, fmt.Errorf("writing output: %w", err)
	}

	report.Log(logger)
	return report, nil
}

// classifySafe never lets a malformed record stop the run. A classification
// which panics gives COMMON with the fallback percentage.
func (c *Collector) classifySafe(a *roster.Artist) (res rarity.Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("artist", a.Name).
				Str("artist_id", a.ID).
				Interface("panic", r).
				Msg("rarity classification failed, falling back to common")
			res = rarity.Result{
				Tier:       rarity.Common,
				Percentage: fallbackPercentage,
				Info:       rarity.Common.Info(),
			}
			ok = false
		}
	}()

	return c.classify(a.RarityInput()), true
}

func (c *Collector) fetchImages(ctx context.Context, artists []roster.Artist, report *Report) {
	jobs := make([]pipeline.Job, 0, len(artists))
	for _, a := range artists {
		if a.ImageURL == "" {
			continue
		}
		jobs = append(jobs, pipeline.Job{
			ArtistID: a.ID,
			Name:     a.Name,
			URL:      a.ImageURL,
		})
	}

	log.Info().Int("jobs", len(jobs)).Msg("downloading artist images")
	res := c.Pipeline.Batch(ctx, jobs)

	report.Images.Attempted = res.Total
	report.Images.Degraded = res.Degraded
	report.Images.Reused = res.Reused
	for kind, n := range res.FailureKinds {
		report.Images.FailureKinds[kind] += n
	}

	for i := range artists {
		a := &artists[i]
		out, ok := res.Results[a.ID]
		if !ok || !out.OK() {
			a.HasImage = false
			report.Images.Failed++
			continue
		}

		bundle := *out.Bundle
		a.ImagePaths = &bundle
		a.HasImage = true
		report.Images.Successful++

		if out.Reused || c.publishDisabled() {
			continue
		}
		if err := c.Publisher.Publish(ctx, bundle); err != nil {
			log.Warn().Str("artist", a.Name).Err(err).Msg("publishing artist image failed")
			report.Images.PublishFailed++
			continue
		}
		report.Images.Published++
	}
}

func (c *Collector) publishDisabled() bool {
	_, nop := c.Publisher.(publish.Nop)
	return nop
}

func warnDuplicates(artists []roster.Artist) {
	seen := make(map[string]struct{}, len(artists))
	for _, a := range artists {
		if _, ok := seen[a.ID]; ok {
			log.Warn().
				Str("artist", a.Name).
				Str("artist_id", a.ID).
				Msg("duplicate artist id in roster, records share images")
			continue
		}
		seen[a.ID] = struct{}{}
	}
}
