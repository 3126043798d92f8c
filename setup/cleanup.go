package setup

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Cleaner removes installers left over from earlier updates. It must be
// safe to call when there's nothing to remove.
type Cleaner interface {
	DeletePreviousInstallers(ctx context.Context) error
}

// NoopCleaner is for platforms that don't keep installers around.
type NoopCleaner struct{}

func (NoopCleaner) DeletePreviousInstallers(ctx context.Context) error {
	return nil
}

var installerExtensions = []string{
	".exe",
	".msi",
	".pkg",
	".dmg",
	".zip",
	".appimage",
	".deb",
	".rpm",
}

// CacheCleaner removes installer files from the top level of Dir.
// Sub-folders and symlinks are left alone.
type CacheCleaner struct {
	Dir string
}

func (c *CacheCleaner) DeletePreviousInstallers(ctx context.Context) error {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WithMessage(err, "while listing installer cache")
	}

	var merr *multierror.Error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		fullPath := filepath.Join(c.Dir, entry.Name())
		if entry.Type()&os.ModeSymlink != 0 {
			log.Debugf("skipping symlink: %s", fullPath)
			continue
		}
		if entry.IsDir() || !isInstaller(entry.Name()) {
			continue
		}

		log.Infof("delete (%s)", fullPath)
		if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
			merr = multierror.Append(merr, errors.WithMessagef(err, "removing %s", entry.Name()))
		}
	}

	return merr.ErrorOrNil()
}

func isInstaller(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range installerExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
