package native

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// checkWritable returns ErrReadOnlyVolume if dir lives on write-protected
// media. Windows has no access(2), so we try creating a file.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if errors.Is(err, windows.ERROR_WRITE_PROTECT) {
			return ErrReadOnlyVolume
		}
		return errors.WithMessage(err, "creating install folder")
	}

	f, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		if errors.Is(err, windows.ERROR_WRITE_PROTECT) {
			return ErrReadOnlyVolume
		}
		return errors.Wrapf(err, "install folder (%s) is not writable", dir)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}
