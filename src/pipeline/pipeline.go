package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/triple000-it/tml-collection/src/art"
	"github.com/triple000-it/tml-collection/src/imagestore"
	"github.com/triple000-it/tml-collection/src/scaler"
)

// DefaultMaxConcurrent is the number of downloads a batch keeps in flight when
// MaxConcurrent is not set.
const DefaultMaxConcurrent = 3

// ErrNotStarted is the reason of jobs which were never started because the
// batch context was done.
var ErrNotStarted = errors.New("job not started")

// Status is the kind of outcome one artist image job had.
type Status string

// The possible job statuses. A degraded job has its original image stored but
// at least one derived image substituted by it.
const (
	StatusProcessed Status = "processed"
	StatusDegraded  Status = "degraded"
	StatusFailed    Status = "failed"
)

// Job is a single artist image to be fetched.
type Job struct {
	ArtistID string
	Name     string
	URL      string
}

// Outcome is the result of one Job. Bundle is nil for failed jobs. Err is set
// for failed and degraded ones.
type Outcome struct {
	ArtistID string
	Status   Status
	Bundle   *imagestore.Bundle
	Err      error

	// Reused is true when the bundle was found in the store and nothing was
	// downloaded.
	Reused bool
}

// OK reports whether the artist has a usable image.
func (o Outcome) OK() bool {
	return o.Status == StatusProcessed || o.Status == StatusDegraded
}

// BatchResult aggregates the outcomes of a batch. Results has exactly one entry
// per distinct artist id of the input.
type BatchResult struct {
	Total      int
	Successful int
	Failed     int
	Degraded   int
	Reused     int

	// FailureKinds counts failed jobs by Kind.
	FailureKinds map[string]int

	Results map[string]Outcome
}

//counterfeiter:generate . Processor

// Processor turns a downloaded payload into a card image and a thumbnail.
// It is implemented by *scaler.Scaler.
type Processor interface {
	Process(ctx context.Context, data []byte) (scaler.Images, error)
}

// Pipeline fetches artist images, stores the originals and derives the card
// images and thumbnails from them.
type Pipeline struct {
	// MaxConcurrent is the maximum number of downloads in flight during Batch.
	MaxConcurrent int

	// SkipExisting makes the pipeline reuse complete bundles which are already
	// in the store instead of downloading them again.
	SkipExisting bool

	fetcher   art.Fetcher
	processor Processor
	store     *imagestore.Store
}

// New returns a Pipeline which downloads with fetcher, derives images with
// processor and keeps everything in store.
func New(fetcher art.Fetcher, processor Processor, store *imagestore.Store) *Pipeline {
	return &Pipeline{
		MaxConcurrent: DefaultMaxConcurrent,
		fetcher:       fetcher,
		processor:     processor,
		store:         store,
	}
}

// FetchAndProcess runs the whole pipeline for a single job. It never panics
// on bad input and never returns an error: failures are described by the
// outcome.
func (p *Pipeline) FetchAndProcess(ctx context.Context, job Job) Outcome {
	return p.run(ctx, job, func() {})
}

// Batch runs all jobs with at most MaxConcurrent downloads in flight. The
// failure of one job does not affect the others. When ctx is done the jobs
// which have not started yet are reported as failed.
func (p *Pipeline) Batch(ctx context.Context, jobs []Job) BatchResult {
	jobs = uniqueJobs(jobs)

	limit := p.MaxConcurrent
	if limit < 1 {
		limit = DefaultMaxConcurrent
	}
	sem := semaphore.NewWeighted(int64(limit))

	outcomes := make([]Outcome, len(jobs))
	var g errgroup.Group

	for i, job := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(jobs); j++ {
				outcomes[j] = failed(jobs[j], fmt.Errorf("%w: %w", ErrNotStarted, err))
			}
			break
		}

		i, job := i, job
		g.Go(func() error {
			var once sync.Once
			release := func() { once.Do(func() { sem.Release(1) }) }
			defer release()

			outcomes[i] = p.run(ctx, job, release)
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult{
		Total:        len(jobs),
		FailureKinds: make(map[string]int),
		Results:      make(map[string]Outcome, len(jobs)),
	}
	for _, out := range outcomes {
		res.Results[out.ArtistID] = out
		switch out.Status {
		case StatusProcessed:
			res.Successful++
		case StatusDegraded:
			res.Successful++
			res.Degraded++
		default:
			res.Failed++
			res.FailureKinds[Kind(out.Err)]++
		}
		if out.Reused {
			res.Reused++
		}
	}

	return res
}

// run executes job. fetched is called as soon as the network part of the job
// is over, successfully or not.
func (p *Pipeline) run(ctx context.Context, job Job, fetched func()) Outcome {
	logger := log.With().
		Str("artist", job.Name).
		Str("artist_id", job.ArtistID).
		Logger()

	if p.SkipExisting {
		if b, err := p.store.Lookup(job.ArtistID); err == nil && b.Complete() {
			fetched()
			logger.Debug().Msg("reusing stored images")
			return Outcome{
				ArtistID: job.ArtistID,
				Status:   StatusProcessed,
				Bundle:   &b,
				Reused:   true,
			}
		}
	}

	if _, err := art.ValidateURL(job.URL); err != nil {
		fetched()
		logger.Warn().Str("kind", Kind(err)).Err(err).Msg("skipping artist image")
		return failed(job, err)
	}

	dl, err := p.fetcher.Fetch(ctx, job.URL)
	fetched()
	if err != nil {
		logger.Warn().Str("url", job.URL).Str("kind", Kind(err)).Err(err).
			Msg("downloading artist image failed")
		return failed(job, err)
	}

	// An earlier original with another extension would shadow this one.
	if err := p.store.Cleanup(job.ArtistID); err != nil {
		logger.Debug().Err(err).Msg("removing previous artist images")
	}

	if _, err := p.store.WriteOriginal(job.ArtistID, dl.Ext, dl.Body); err != nil {
		logger.Warn().Str("kind", Kind(err)).Err(err).Msg("storing artist image failed")
		return failed(job, err)
	}

	bundle := p.store.Bundle(job.ArtistID, dl.Ext)
	out := Outcome{
		ArtistID: job.ArtistID,
		Status:   StatusProcessed,
		Bundle:   &bundle,
	}

	imgs, err := p.processor.Process(ctx, dl.Body)
	if err != nil && cancelled(err) {
		if cerr := p.store.Cleanup(job.ArtistID); cerr != nil {
			logger.Warn().Err(cerr).Msg("removing images of a cancelled job")
		}
		logger.Warn().Str("kind", Kind(err)).Err(err).Msg("artist image processing cancelled")
		return failed(job, err)
	}
	if err != nil {
		logger.Warn().Str("kind", Kind(err)).Err(err).
			Msg("artist image could not be processed, using the original")
		out.Status = StatusDegraded
		out.Err = err
		return out
	}

	var degraded []error
	if path, err := p.writeDerived(imgs.Card, imgs.CardErr, job.ArtistID,
		p.store.WriteProcessed); err != nil {
		degraded = append(degraded, fmt.Errorf("card image: %w", err))
	} else {
		bundle.Processed = path
	}

	if path, err := p.writeDerived(imgs.Thumb, imgs.ThumbErr, job.ArtistID,
		p.store.WriteThumbnail); err != nil {
		degraded = append(degraded, fmt.Errorf("thumbnail: %w", err))
	} else {
		bundle.Thumbnail = path
	}

	if len(degraded) > 0 {
		out.Status = StatusDegraded
		out.Err = errors.Join(degraded...)
		logger.Warn().Str("kind", Kind(out.Err)).Err(out.Err).
			Msg("derived artist image replaced by the original")
	}

	return out
}

func (p *Pipeline) writeDerived(
	data []byte,
	encodeErr error,
	id string,
	write func(string, []byte) (string, error),
) (string, error) {
	if encodeErr != nil {
		return "", encodeErr
	}
	return write(id, data)
}

func failed(job Job, err error) Outcome {
	return Outcome{
		ArtistID: job.ArtistID,
		Status:   StatusFailed,
		Err:      err,
	}
}

// uniqueJobs drops jobs whose artist id has already been seen. Two jobs for the
// same id would write the same files.
func uniqueJobs(jobs []Job) []Job {
	seen := make(map[string]struct{}, len(jobs))
	unique := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if _, ok := seen[job.ArtistID]; ok {
			log.Warn().Str("artist_id", job.ArtistID).Str("artist", job.Name).
				Msg("duplicate artist id in image batch, ignoring")
			continue
		}
		seen[job.ArtistID] = struct{}{}
		unique = append(unique, job)
	}
	return unique
}
