package pipeline

import (
	"context"
	"errors"

	"github.com/triple000-it/tml-collection/src/art"
	"github.com/triple000-it/tml-collection/src/imagestore"
	"github.com/triple000-it/tml-collection/src/scaler"
)

// Kind returns a short label for the failure reason of an outcome. It is used
// in logs and run statistics. A nil error gives the empty string.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, art.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, art.ErrFetchFailed):
		return "fetch_failed"
	case errors.Is(err, imagestore.ErrWriteFailed):
		return "write_failed"
	case errors.Is(err, scaler.ErrDecodeFailed):
		return "decode_failed"
	case errors.Is(err, ErrNotStarted), cancelled(err):
		return "cancelled"
	default:
		return "unknown"
	}
}

// cancelled reports whether err means that the work was stopped rather than
// that it failed.
func cancelled(err error) bool {
	return errors.Is(err, scaler.ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
