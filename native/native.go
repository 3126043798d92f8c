package native

import (
	"github.com/pkg/errors"
)

// ReadOnlyVolumeMessage is reported when the app lives on a volume we
// can't write to (a mounted disk image, a read-only share...). Users have
// to move the app somewhere else, retrying won't help.
const ReadOnlyVolumeMessage = "Cannot update while running on a read-only volume"

// ErrReadOnlyVolume is emitted by services that detect a read-only install
// location.
var ErrReadOnlyVolume = errors.New(ReadOnlyVolumeMessage)

// The Service type is the OS-level updater mechanism: something that can
// take an update from a source, stage it, and install it once we quit.
//
// It is process-wide: there should only be one, and only one check
// should be in flight at any given time.
type Service interface {
	// Registers a listener for staging errors. The returned func
	// removes it, and may be called any number of times.
	OnError(fn func(err error)) (remove func())

	// Registers a listener called once an update has been staged and
	// will be installed when the process exits.
	OnStaged(fn func()) (remove func())

	// Sets where the update comes from, usually a file:// URL
	SetSource(address string) error

	// Starts staging from the current source. Does not block: the
	// outcome is reported to OnError or OnStaged listeners.
	CheckForUpdates()

	// Hands control over to the installer. The caller is expected to
	// exit shortly after this returns.
	QuitAndInstall() error
}
