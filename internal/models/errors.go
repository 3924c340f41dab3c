package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the catalog, embedding table, index, and service.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStartup         = errors.New("startup failure")
)

// NotFoundError reports a title that has no catalog entry.
type NotFoundError struct {
	Title string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("movie %q not found", e.Title)
}

// Unwrap lets errors.Is match ErrNotFound.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidArgumentError reports a parameter outside its valid range.
type InvalidArgumentError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidArgument.
func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// StartupError reports a snapshot that cannot be served. The process must not start.
type StartupError struct {
	Path   string
	Reason string
	Err    error
}

func (e *StartupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("snapshot %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("snapshot %s: %s", e.Path, e.Reason)
}

// Is matches ErrStartup.
func (e *StartupError) Is(target error) bool { return target == ErrStartup }

// Unwrap returns the underlying cause, if any.
func (e *StartupError) Unwrap() error { return e.Err }
