package aks

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the processing core.
var (
	// ErrInvalidInput indicates a pixel buffer whose length or layout does not
	// match its declared dimensions, or adjustment values out of range.
	// It is fatal for the call and no output is returned.
	ErrInvalidInput = errors.New("aks: invalid input")

	// ErrInvalidCrop indicates a crop rectangle outside [0,1] or with
	// left >= right / top >= bottom.
	ErrInvalidCrop = fmt.Errorf("%w: invalid crop rectangle", ErrInvalidInput)

	// ErrBackendUnavailable indicates the GPU probe failed or no GPU backend
	// is registered. The selector routes to the CPU backend.
	ErrBackendUnavailable = errors.New("aks: GPU backend unavailable")

	// ErrGPUProcessingFailed indicates a device or dispatch failure during a
	// GPU call. The selector retries the call on the CPU backend.
	ErrGPUProcessingFailed = errors.New("aks: GPU processing failed")

	// ErrStaleResult is returned by Session.Render when the edit state moved
	// on while the result was being computed.
	ErrStaleResult = errors.New("aks: result superseded by a newer edit")

	// ErrNothingToUndo and ErrNothingToRedo are returned by History.
	ErrNothingToUndo = errors.New("aks: nothing to undo")
	ErrNothingToRedo = errors.New("aks: nothing to redo")
)

// DecodeError reports a failure of the RAW decoder for a given file.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("aks: decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a failure of the image encoder during export.
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("aks: encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// invalidInputf wraps ErrInvalidInput with a formatted reason.
func invalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
