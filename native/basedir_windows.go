package native

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DefaultBaseDir is `%LOCALAPPDATA%/<app>`.
func DefaultBaseDir(appName string) (string, error) {
	localAppData := os.Getenv("LOCALAPPDATA")
	if localAppData == "" {
		return "", errors.New("LOCALAPPDATA is not set")
	}
	return filepath.Join(localAppData, appName), nil
}
