//go:build !darwin && !windows

package native

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DefaultBaseDir is `~/.<app>`.
func DefaultBaseDir(appName string) (string, error) {
	home := os.Getenv("HOME")
	if home == "" {
		return "", errors.New("HOME is not set")
	}
	return filepath.Join(home, fmt.Sprintf(".%s", appName)), nil
}
