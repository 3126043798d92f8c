package native

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dchest/safefile"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ValidateHandler is called with a build folder before it's made current.
type ValidateHandler func(dir string) error

// ExecutableValidator rejects builds that don't have the app's executable
// at their root.
func ExecutableValidator(appName string) ValidateHandler {
	return func(dir string) error {
		exePath := filepath.Join(dir, ExeName(appName))
		stats, err := os.Stat(exePath)
		if err != nil {
			return errors.WithMessagef(err, "build is missing its executable (%s)", exePath)
		}
		if stats.IsDir() {
			return errors.Errorf("(%s) is a directory, not an executable", exePath)
		}
		return nil
	}
}

type storeState struct {
	// Current is the version that's installed, and probably running.
	Current string `json:"current"`

	// Ready is a version we've staged but aren't using yet. It'll
	// be swapped in by the apply helper once the app has quit.
	Ready string `json:"ready"`

	StagedAt *time.Time `json:"stagedAt,omitempty"`
}

// Build is a version of the app, extracted to a folder.
type Build struct {
	Version string
	Path    string
}

type StoreParams struct {
	// `itch`, `kitch`
	AppName string

	// on Linux, `~/.itch`
	// on Windows, `%LOCALAPPDATA%/itch`
	// on macOS, `~/Library/Application Support/itch-update`
	BaseDir string

	OnValidate ValidateHandler
}

// Store keeps track of the current and ready builds of an app, and of the
// staging folder updates are prepared in. Its state is persisted to
// `state.json` in the base dir, so the apply helper (a separate process)
// sees what the app staged.
type Store struct {
	params StoreParams

	mu    sync.Mutex
	state storeState
}

func OpenStore(params StoreParams) (*Store, error) {
	if params.AppName == "" {
		return nil, errors.Errorf("StoreParams.AppName cannot be empty")
	}

	if params.BaseDir == "" {
		return nil, errors.Errorf("StoreParams.BaseDir cannot be empty")
	}

	s := &Store{params: params}
	log.Debugf("Opening (%s) store @ (%s)", params.AppName, params.BaseDir)

	err := s.readState()
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			log.Debugf("No store state yet")
		} else {
			log.Warnf("Ignoring store state: %v", err)
		}
	} else {
		log.Debugf("%s", s)
	}

	return s, nil
}

func (s *Store) BaseDir() string {
	return s.params.BaseDir
}

// Current returns the installed build, or nil.
func (s *Store) Current() *Build {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildFor(s.state.Current)
}

// Ready returns the staged build waiting to be applied, or nil.
func (s *Store) Ready() *Build {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildFor(s.state.Ready)
}

func (s *Store) buildFor(version string) *Build {
	if version == "" {
		return nil
	}
	return &Build{
		Version: version,
		Path:    s.buildPath(version),
	}
}

// StagingFolder returns a fresh, empty staging folder.
func (s *Store) StagingFolder() (string, error) {
	path := s.stagingPath()
	if err := os.RemoveAll(path); err != nil {
		return "", errors.WithMessage(err, "clearing staging folder")
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", errors.WithMessage(err, "creating staging folder")
	}

	return path, nil
}

func (s *Store) CleanStagingFolder() error {
	return os.RemoveAll(s.stagingPath())
}

// QueueReady moves a freshly staged build to its final location and
// records it as ready. An earlier ready build is replaced.
func (s *Store) QueueReady(build Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !filepath.IsAbs(build.Path) {
		return errors.Errorf("internal error: ready build must have an absolute path, got (%s)", build.Path)
	}

	if build.Version == s.state.Current {
		return errors.Errorf("version (%s) is already installed", build.Version)
	}

	if s.state.Ready != "" && s.state.Ready != build.Version {
		log.Infof("Replacing ready (%s) with (%s)", s.state.Ready, build.Version)
		if err := os.RemoveAll(s.buildPath(s.state.Ready)); err != nil {
			log.Warnf("Could not remove previous ready build: %v", err)
		}
	} else {
		log.Infof("Queuing ready (%s)", build.Version)
	}

	readyPath := s.buildPath(build.Version)
	if err := os.RemoveAll(readyPath); err != nil {
		return errors.WithMessage(err, "making sure ready build folder does not exist")
	}

	if err := os.Rename(build.Path, readyPath); err != nil {
		return errors.WithMessage(err, "moving ready build into place")
	}

	now := time.Now().UTC()
	s.state.Ready = build.Version
	s.state.StagedAt = &now
	if err := s.saveState(); err != nil {
		return errors.WithMessage(err, "recording ready build")
	}

	return nil
}

// MakeReadyCurrent swaps the ready build in. The previous build is only
// removed once the new state has been committed to disk.
func (s *Store) MakeReadyCurrent() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	if st.Ready == "" {
		return errors.Errorf("no ready build to make current")
	}

	log.Infof("Making (%s) current over (%s)", st.Ready, st.Current)
	readyPath := s.buildPath(st.Ready)

	if _, err := os.Stat(readyPath); err != nil {
		return errors.WithMessage(err, "looking for ready build")
	}

	if err := s.validate(readyPath); err != nil {
		return err
	}

	previous := s.buildFor(st.Current)
	saved := *st

	st.Current = st.Ready
	st.Ready = ""
	st.StagedAt = nil
	if err := s.saveState(); err != nil {
		*st = saved
		return err
	}

	if previous != nil {
		log.Debugf("Cleaning up (%s)", previous.Path)
		if err := os.RemoveAll(previous.Path); err != nil {
			log.Warnf("Could not remove old build: %v", err)
		}
	}

	return nil
}

func (s *Store) validate(dir string) error {
	if s.params.OnValidate == nil {
		return nil
	}

	log.Infof("Validating (%s)...", dir)
	if err := s.params.OnValidate(dir); err != nil {
		return errors.WithMessage(err, "while validating new build")
	}
	return nil
}

func (s *Store) buildPath(version string) string {
	return filepath.Join(s.params.BaseDir, fmt.Sprintf("app-%s", version))
}

func (s *Store) stagingPath() string {
	return filepath.Join(s.params.BaseDir, "staging")
}

func (s *Store) statePath() string {
	return filepath.Join(s.params.BaseDir, "state.json")
}

func (s *Store) readState() error {
	bs, err := os.ReadFile(s.statePath())
	if err != nil {
		return errors.WithMessage(err, "reading store state file")
	}

	var st storeState
	if err := json.Unmarshal(bs, &st); err != nil {
		return errors.WithMessage(err, "unmarshalling store state file")
	}

	s.state = st
	return nil
}

func (s *Store) saveState() error {
	bs, err := json.Marshal(s.state)
	if err != nil {
		return errors.WithMessage(err, "marshalling store state file")
	}

	if err := os.MkdirAll(filepath.Dir(s.statePath()), 0o755); err != nil {
		return errors.WithMessage(err, "creating folder for store state file")
	}

	f, err := safefile.Create(s.statePath(), 0o644)
	if err != nil {
		return errors.WithMessage(err, "creating store state file")
	}
	defer f.Close()

	if _, err := f.Write(bs); err != nil {
		return errors.WithMessage(err, "writing store state file")
	}

	if err := f.Commit(); err != nil {
		return errors.WithMessage(err, "committing store state file")
	}

	return nil
}

func (s *Store) String() string {
	return fmt.Sprintf("(%s)(current = %q, ready = %q)", s.params.BaseDir, s.state.Current, s.state.Ready)
}
