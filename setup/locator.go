package setup

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/itchio/itch-update/native"
)

// Artifact is an update package that's already on disk.
type Artifact struct {
	Path    string
	Version *goversion.Version
}

// Locator finds an artifact newer than what's running, if any. It returns
// nil when there's nothing to update to.
type Locator interface {
	Locate(ctx context.Context) (*Artifact, error)
}

// DirLocator looks for artifacts named like `<AppName>-<version>.<ext>`
// in a folder something else downloads them to.
type DirLocator struct {
	Dir     string
	AppName string

	// Empty means anything goes
	CurrentVersion string
}

var _ Locator = (*DirLocator)(nil)

func (l *DirLocator) Locate(ctx context.Context) (*Artifact, error) {
	var current *goversion.Version
	if l.CurrentVersion != "" {
		v, err := goversion.NewVersion(l.CurrentVersion)
		if err != nil {
			return nil, errors.WithMessagef(err, "parsing current version (%s)", l.CurrentVersion)
		}
		current = v
	}

	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithMessage(err, "while listing artifacts")
	}

	prefix := strings.ToLower(l.AppName)
	var best *Artifact
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), prefix) {
			continue
		}

		raw := native.VersionFromName(name)
		if raw == "" {
			log.Debugf("No version in (%s), skipping", name)
			continue
		}
		v, err := goversion.NewVersion(raw)
		if err != nil {
			continue
		}

		if current != nil && !v.GreaterThan(current) {
			continue
		}
		if best == nil || v.GreaterThan(best.Version) {
			best = &Artifact{
				Path:    filepath.Join(l.Dir, name),
				Version: v,
			}
		}
	}

	return best, nil
}
