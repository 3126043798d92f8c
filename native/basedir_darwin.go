package native

import (
	"fmt"
	"path/filepath"

	"github.com/itchio/ox/macox"
)

// DefaultBaseDir is `~/Library/Application Support/<app>-update`.
func DefaultBaseDir(appName string) (string, error) {
	appSupportPath, err := macox.GetApplicationSupportPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(appSupportPath, fmt.Sprintf("%s-update", appName)), nil
}
