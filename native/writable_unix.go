//go:build !windows

package native

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// checkWritable returns ErrReadOnlyVolume if dir lives on a read-only
// filesystem, like a mounted disk image.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if errors.Is(err, unix.EROFS) {
			return ErrReadOnlyVolume
		}
		return errors.WithMessage(err, "creating install folder")
	}

	err := unix.Access(dir, unix.W_OK)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EROFS):
		return ErrReadOnlyVolume
	default:
		return errors.Wrapf(err, "install folder (%s) is not writable", dir)
	}
}
