package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a plugin is not registered in the catalog.
var ErrNotFound = errors.New("not found")

// NotFoundError wraps ErrNotFound with the plugin name that was looked up.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plugin %s not found", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// VersionConflictError is returned when a binary with the same version
// already exists and no overwrite was requested.
type VersionConflictError struct {
	Plugin  string
	Version string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("binary version %s already exists for plugin %s", e.Version, e.Plugin)
}

// ReviewTimeoutError is returned when the review poll bound is exceeded. The
// remote review keeps running; the operator has to check its outcome in the
// store account.
type ReviewTimeoutError struct {
	Plugin string
	Polls  int
}

func (e *ReviewTimeoutError) Error() string {
	return fmt.Sprintf(
		"review of plugin %s is taking longer than expected (%d polls); please check the review status in your store account",
		e.Plugin, e.Polls,
	)
}

// ReviewRejectedError is returned when a review finishes in a terminal state
// other than approved. It carries the reviewer's comment.
type ReviewRejectedError struct {
	Plugin  string
	Version string
	Status  StatusRef
	Comment string
}

func (e *ReviewRejectedError) Error() string {
	return fmt.Sprintf(
		"review of %s v%s finished with status %q:\n\n%s",
		e.Plugin, e.Version, e.Status.Name, e.Comment,
	)
}

// ErrMissingEncryptionAddon is returned when the static addon catalog does
// not offer the partial encryption flag.
var ErrMissingEncryptionAddon = errors.New("partial ionCube encryption addon not available in the store addon catalog")
