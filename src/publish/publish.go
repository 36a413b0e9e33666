package publish

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/triple000-it/tml-collection/src/config"
	"github.com/triple000-it/tml-collection/src/imagestore"
)

// ErrIncompleteS3Config is returned when the S3 configuration is incomplete.
var ErrIncompleteS3Config = errors.New("incomplete S3 configuration")

// Publisher copies the stored images of an artist somewhere public.
type Publisher interface {
	Publish(ctx context.Context, bundle imagestore.Bundle) error
}

// Nop is the Publisher used when publishing is disabled.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, imagestore.Bundle) error {
	return nil
}

// New returns the publisher selected in cfg.
func New(cfg config.Publish, store *imagestore.Store) (Publisher, error) {
	switch cfg.Type {
	case "", config.PublishNone:
		return Nop{}, nil
	case config.PublishS3:
		return NewS3(cfg.S3, store)
	default:
		return nil, fmt.Errorf("unknown publish type %q", cfg.Type)
	}
}

type uploader interface {
	Upload(
		ctx context.Context,
		input *s3.PutObjectInput,
		opts ...func(*manager.Uploader),
	) (*manager.UploadOutput, error)
}

// S3Publisher uploads image bundles to an S3 compatible bucket. Keys keep the
// layout of the image store under a configurable prefix.
type S3Publisher struct {
	Bucket  string
	Prefix  string
	Timeout time.Duration

	uploader uploader
	store    *imagestore.Store
}

// NewS3 creates an S3Publisher. The secret access key is read from the
// environment variable named in cfg so that it never sits in a config file.
func NewS3(cfg config.S3, store *imagestore.Store) (*S3Publisher, error) {
	accessKey := os.Getenv(cfg.AccessKeyEnv)
	if strings.TrimSpace(accessKey) == "" ||
		strings.TrimSpace(cfg.KeyID) == "" ||
		strings.TrimSpace(cfg.Endpoint) == "" ||
		strings.TrimSpace(cfg.Region) == "" ||
		strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("%w", ErrIncompleteS3Config)
	}

	client := s3.New(s3.Options{
		UsePathStyle: true,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Region:       cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.KeyID, accessKey, ""),
		),
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &S3Publisher{
		Bucket:   cfg.Bucket,
		Prefix:   cfg.Prefix,
		Timeout:  timeout,
		uploader: manager.NewUploader(client),
		store:    store,
	}, nil
}

// Publish uploads every distinct file of bundle. Slots which fell back to the
// original are uploaded once.
func (p *S3Publisher) Publish(ctx context.Context, bundle imagestore.Bundle) error {
	slots := []struct {
		dir  string
		file string
	}{
		{imagestore.OriginalDir, bundle.Original},
		{imagestore.ProcessedDir, bundle.Processed},
		{imagestore.ThumbnailDir, bundle.Thumbnail},
	}

	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if slot.file == "" {
			continue
		}
		if _, ok := seen[slot.file]; ok {
			continue
		}
		seen[slot.file] = struct{}{}

		key := p.Key(slot.dir, slot.file)
		if err := p.upload(ctx, key, slot.file); err != nil {
			return err
		}
	}

	return nil
}

// Key returns the object key of a stored file.
func (p *S3Publisher) Key(dir, file string) string {
	return path.Join(p.Prefix, dir, filepath.Base(file))
}

func (p *S3Publisher) upload(ctx context.Context, key, file string) error {
	f, err := p.store.Open(file)
	if err != nil {
		return fmt.Errorf("opening %s for upload: %w", file, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	result, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		var mu manager.MultiUploadFailure
		if errors.As(err, &mu) {
			return fmt.Errorf(
				"multi-upload failure (upload_id: %s): %w",
				mu.UploadID(),
				mu,
			)
		}
		return fmt.Errorf("upload failure: %w", err)
	}

	log.Debug().
		Str("location", result.Location).
		Msg("uploaded artist image")

	return nil
}
