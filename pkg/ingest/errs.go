package ingest

import "errors"

var (
	// ErrShortRead indicates the connection closed before a whole frame arrived.
	// Nothing from the frame is merged.
	ErrShortRead = errors.New("ingest: short read")

	// ErrBatchTooLarge indicates a frame header above MaxFrame.
	ErrBatchTooLarge = errors.New("ingest: batch too large")

	// ErrDecode indicates a malformed batch or pid file.
	ErrDecode = errors.New("ingest: decode error")

	// ErrIO wraps filesystem failures on the pid-file path. The previous
	// on-disk state for the service is left untouched.
	ErrIO = errors.New("ingest: io error")
)
