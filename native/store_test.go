package native

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(StoreParams{
		AppName: "itch",
		BaseDir: t.TempDir(),
	})
	require.NoError(t, err)
	return s
}

func stageFolder(t *testing.T, s *Store, version string) Build {
	t.Helper()
	dir, err := s.StagingFolder()
	require.NoError(t, err)

	path := filepath.Join(dir, "app-"+version)
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, ExeName("itch")), []byte(version), 0o755))
	return Build{Version: version, Path: path}
}

func TestOpenStore_RequiresParams(t *testing.T) {
	_, err := OpenStore(StoreParams{BaseDir: t.TempDir()})
	assert.Error(t, err)

	_, err = OpenStore(StoreParams{AppName: "itch"})
	assert.Error(t, err)
}

func TestStore_QueueReadyThenMakeCurrent(t *testing.T) {
	s := newTestStore(t)
	assert.Nil(t, s.Current())
	assert.Nil(t, s.Ready())

	require.NoError(t, s.QueueReady(stageFolder(t, s, "1.0.0")))
	require.NotNil(t, s.Ready())
	assert.Equal(t, "1.0.0", s.Ready().Version)
	assert.DirExists(t, filepath.Join(s.BaseDir(), "app-1.0.0"))

	require.NoError(t, s.MakeReadyCurrent())
	assert.Nil(t, s.Ready())
	require.NotNil(t, s.Current())
	assert.Equal(t, "1.0.0", s.Current().Version)

	// a second process sees the same thing
	reopened, err := OpenStore(StoreParams{AppName: "itch", BaseDir: s.BaseDir()})
	require.NoError(t, err)
	require.NotNil(t, reopened.Current())
	assert.Equal(t, "1.0.0", reopened.Current().Version)
}

func TestStore_MakeCurrentRemovesPrevious(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.QueueReady(stageFolder(t, s, "1.0.0")))
	require.NoError(t, s.MakeReadyCurrent())

	require.NoError(t, s.QueueReady(stageFolder(t, s, "2.0.0")))
	require.NoError(t, s.MakeReadyCurrent())

	assert.Equal(t, "2.0.0", s.Current().Version)
	assert.NoDirExists(t, filepath.Join(s.BaseDir(), "app-1.0.0"))
	assert.FileExists(t, filepath.Join(s.BaseDir(), "app-2.0.0", "itch"))
}

func TestStore_QueueReadyReplacesReady(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.QueueReady(stageFolder(t, s, "2.0.0")))
	require.NoError(t, s.QueueReady(stageFolder(t, s, "3.0.0")))

	assert.Equal(t, "3.0.0", s.Ready().Version)
	assert.NoDirExists(t, filepath.Join(s.BaseDir(), "app-2.0.0"))
}

func TestStore_QueueReadyRefusesCurrentVersion(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.QueueReady(stageFolder(t, s, "1.0.0")))
	require.NoError(t, s.MakeReadyCurrent())

	err := s.QueueReady(stageFolder(t, s, "1.0.0"))
	assert.Error(t, err)
	assert.FileExists(t, filepath.Join(s.BaseDir(), "app-1.0.0", "itch"))
}

func TestStore_QueueReadyRequiresAbsolutePath(t *testing.T) {
	s := newTestStore(t)
	err := s.QueueReady(Build{Version: "1.0.0", Path: "relative/app"})
	assert.Error(t, err)
}

func TestStore_MakeReadyCurrentValidates(t *testing.T) {
	base := t.TempDir()
	s, err := OpenStore(StoreParams{
		AppName: "itch",
		BaseDir: base,
		OnValidate: func(dir string) error {
			return errors.Errorf("(%s) is broken", dir)
		},
	})
	require.NoError(t, err)

	require.NoError(t, s.QueueReady(stageFolder(t, s, "1.0.0")))
	assert.Error(t, s.MakeReadyCurrent())
	assert.Nil(t, s.Current())
	assert.NotNil(t, s.Ready())
}

func TestStore_ExecutableValidator(t *testing.T) {
	base := t.TempDir()
	s, err := OpenStore(StoreParams{
		AppName:    "itch",
		BaseDir:    base,
		OnValidate: ExecutableValidator("itch"),
	})
	require.NoError(t, err)

	good := stageFolder(t, s, "1.0.0")
	require.NoError(t, s.QueueReady(good))
	require.NoError(t, s.MakeReadyCurrent())
	require.NotNil(t, s.Current())
	assert.Equal(t, "1.0.0", s.Current().Version)

	broken := stageFolder(t, s, "1.1.0")
	require.NoError(t, os.Remove(filepath.Join(broken.Path, ExeName("itch"))))
	require.NoError(t, os.Mkdir(filepath.Join(broken.Path, ExeName("itch")), 0o755))
	require.NoError(t, s.QueueReady(broken))
	assert.Error(t, s.MakeReadyCurrent())
	assert.Equal(t, "1.0.0", s.Current().Version)

	missing := stageFolder(t, s, "1.2.0")
	require.NoError(t, os.Remove(filepath.Join(missing.Path, ExeName("itch"))))
	require.NoError(t, s.QueueReady(missing))
	err = s.MakeReadyCurrent()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing its executable")
	assert.Equal(t, "1.0.0", s.Current().Version)
}

func TestStore_MakeReadyCurrentWithoutReady(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.MakeReadyCurrent())
}

func TestOpenStore_IgnoresCorruptState(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "state.json"), []byte("{nope"), 0o644))

	s, err := OpenStore(StoreParams{AppName: "itch", BaseDir: base})
	require.NoError(t, err)
	assert.Nil(t, s.Current())
}
