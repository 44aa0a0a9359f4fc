// Package errs defines the sentinel errors shared by genostore packages.
//
// Callers should compare with errors.Is; library code wraps these with context.
package errs

import "errors"

var (
	// Container errors
	ErrCorruptContainer = errors.New("corrupt container")
	ErrNameTooLong      = errors.New("stream name too long")
	ErrEmptyStreamName  = errors.New("stream name must not be empty")

	// Scheduler errors
	ErrDuplicateStream = errors.New("stream already stored")
	ErrStoremanClosed  = errors.New("storeman closed")
	ErrUnknownStream   = errors.New("no registry constraints for stream config")
	ErrConfigNotFound  = errors.New("config not found")
	ErrVerifyMismatch  = errors.New("round trip verification mismatch")

	// Transform errors
	ErrInvalidConfig     = errors.New("invalid transform config")
	ErrMisalignedStream  = errors.New("stream length is not a multiple of the word size")
	ErrSymbolOutOfRange  = errors.New("symbol exceeds config max value")
	ErrCorruptFrame      = errors.New("corrupt transform frame")
	ErrEmptySample       = errors.New("analysis sample is empty")
	ErrNoAnalysisResults = errors.New("analysis produced no candidate")
)
