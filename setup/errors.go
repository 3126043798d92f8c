package setup

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUpdateInProgress is returned by Run while another update cycle is
// cleaning up, staging or quitting.
var ErrUpdateInProgress = errors.New("an update is already in progress")

type ErrorKind string

const (
	KindCleanup ErrorKind = "cleanup"
	KindStaging ErrorKind = "staging"
	KindInstall ErrorKind = "install"
)

// UpdateError is what a failed Run returns: the step that failed, how to
// present it, and the underlying error, unmodified.
type UpdateError struct {
	Kind     ErrorKind
	Category DialogCategory
	Err      error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Kind, e.Category, e.Err)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause dig through to the installer error.
func (e *UpdateError) Cause() error {
	return e.Err
}
