package dberrors

import "github.com/cockroachdb/errors"

var (
	ErrNotFound        = errors.New("wbwi: not found")
	ErrInvalidArgument = errors.New("wbwi: invalid argument")
	ErrCorruption      = errors.New("wbwi: corruption")
	ErrNotSupported    = errors.New("wbwi: not supported")
	ErrSizeLimit       = errors.New("wbwi: batch size limit exceeded")
	// ErrMergeInProgress is not a failure: the lookup found merge operands it
	// was not allowed to resolve.
	ErrMergeInProgress = errors.New("wbwi: merge in progress")
)

// NotFoundf returns an error that matches ErrNotFound under errors.Is.
func NotFoundf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

// InvalidArgumentf returns an error that matches ErrInvalidArgument.
func InvalidArgumentf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}

// Corruptionf returns an error that matches ErrCorruption.
func Corruptionf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

// NotSupportedf returns an error that matches ErrNotSupported.
func NotSupportedf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotSupported)
}

// IsNotFound reports whether err is, or wraps, a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// MergeInProgressf returns an error that matches ErrMergeInProgress.
func MergeInProgressf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrMergeInProgress)
}
