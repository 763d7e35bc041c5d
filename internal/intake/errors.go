package intake

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFilename    = errors.New("no file selected")
	ErrUnusableFilename = errors.New("filename contains no usable characters")
	ErrMissingKey       = errors.New("s3_key is required")
	ErrObjectNotFound   = errors.New("object not found")
)

// Stages at which an upstream dependency can fail.
const (
	StageStore = "store"
	StageQueue = "queue"
)

// UpstreamError reports a failure of the object store or the queue.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
