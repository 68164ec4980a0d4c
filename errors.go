package tilemat

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tilemat/blobstore"
	"github.com/hupe1980/tilemat/matrix"
	"github.com/hupe1980/tilemat/resource"
)

var (
	// ErrRank is returned for operands that are not two-dimensional.
	ErrRank = matrix.ErrRank
	// ErrShapeMismatch is returned for non-conformable operands or a wrongly
	// shaped output.
	ErrShapeMismatch = matrix.ErrShapeMismatch
	// ErrDTypeMismatch is returned when the output cannot hold the promoted
	// element type.
	ErrDTypeMismatch = matrix.ErrDTypeMismatch
	// ErrIO is returned when a storage backend fails.
	ErrIO = matrix.ErrIO
	// ErrMemoryLimitExceeded is returned when one tile step does not fit the
	// resource controller's memory limit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
	// ErrNotFound is returned by OpenCurrent when nothing was published.
	ErrNotFound = blobstore.ErrNotFound
	// ErrInvalidName is returned for unusable staged output names.
	ErrInvalidName = errors.New("invalid output name")
)

// ErrPublish indicates that a staged product was computed but its pointer
// could not be moved. The staging array has been removed.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrPublish struct {
	Name    string
	Staging string
	cause   error
}

func (e *ErrPublish) Error() string {
	return fmt.Sprintf("publish %s -> %s: %v", e.Name, e.Staging, e.cause)
}

func (e *ErrPublish) Unwrap() error { return e.cause }
