package native

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CopySelf copies the running executable to targetExecPath, so the apply
// helper keeps running while the app folder is being swapped.
func CopySelf(targetExecPath string) (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", errors.WithMessage(err, "while getting self path")
	}

	execPath = filepath.Clean(execPath)
	targetExecPath = filepath.Clean(targetExecPath)

	if execPath == targetExecPath {
		log.Debugf("Already running off of (%s), not copying", execPath)
		return targetExecPath, nil
	}

	log.Infof("Copying self to (%s)", targetExecPath)

	src, err := os.Open(execPath)
	if err != nil {
		return "", errors.WithMessage(err, "while opening self")
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(targetExecPath), 0o755); err != nil {
		return "", errors.WithMessage(err, "while creating helper folder")
	}

	dst, err := os.Create(targetExecPath)
	if err != nil {
		return "", errors.WithMessage(err, "while creating helper copy")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", errors.WithMessage(err, "while copying self")
	}

	if runtime.GOOS != "windows" {
		if err := dst.Chmod(0o755); err != nil {
			return "", errors.WithMessage(err, "while making helper executable")
		}
	}

	return targetExecPath, nil
}

// ExeName returns the file name of an app's main executable.
func ExeName(appName string) string {
	if runtime.GOOS == "windows" {
		return appName + ".exe"
	}
	return appName
}
