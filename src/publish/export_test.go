package publish

import (
	"time"

	"github.com/triple000-it/tml-collection/src/imagestore"
)

// NewS3WithUploader returns an S3Publisher which uploads through u. Only
// useful for tests.
func NewS3WithUploader(
	u uploader,
	store *imagestore.Store,
	bucket, prefix string,
) *S3Publisher {
	return &S3Publisher{
		Bucket:   bucket,
		Prefix:   prefix,
		Timeout:  time.Second,
		uploader: u,
		store:    store,
	}
}
