package native

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stageOutcome struct {
	err    error
	staged bool
}

func newTestService(t *testing.T) (*FileService, *Store) {
	t.Helper()
	store := newTestStore(t)
	fs, err := NewFileService(FileServiceParams{
		AppName: "itch",
		Store:   store,
		DryRun:  true,
	})
	require.NoError(t, err)
	return fs, store
}

func runCheck(t *testing.T, fs *FileService, source string) stageOutcome {
	t.Helper()
	outcomes := make(chan stageOutcome, 2)
	removeErr := fs.OnError(func(err error) { outcomes <- stageOutcome{err: err} })
	defer removeErr()
	removeStaged := fs.OnStaged(func() { outcomes <- stageOutcome{staged: true} })
	defer removeStaged()

	require.NoError(t, fs.SetSource(source))
	fs.CheckForUpdates()

	select {
	case o := <-outcomes:
		return o
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for staging outcome")
		return stageOutcome{}
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, contents := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestNewFileService_Defaults(t *testing.T) {
	fs, store := newTestService(t)
	assert.Equal(t, os.Getpid(), fs.params.PID)
	assert.Equal(t, store.BaseDir(), filepath.Dir(fs.params.HelperPath))

	_, err := NewFileService(FileServiceParams{Store: store})
	assert.Error(t, err)
	_, err = NewFileService(FileServiceParams{AppName: "itch"})
	assert.Error(t, err)
}

func TestFileService_StagesPlainFile(t *testing.T) {
	fs, store := newTestService(t)

	artifact := filepath.Join(t.TempDir(), "itch-2.0.0.exe")
	require.NoError(t, os.WriteFile(artifact, []byte("installer"), 0o644))

	o := runCheck(t, fs, FileURL(artifact))
	require.NoError(t, o.err)
	assert.True(t, o.staged)

	ready := store.Ready()
	require.NotNil(t, ready)
	assert.Equal(t, "2.0.0", ready.Version)

	contents, err := os.ReadFile(filepath.Join(ready.Path, "itch-2.0.0.exe"))
	require.NoError(t, err)
	assert.Equal(t, "installer", string(contents))
	assert.NoDirExists(t, filepath.Join(store.BaseDir(), "staging"))
}

func TestFileService_ExtractsZip(t *testing.T) {
	fs, store := newTestService(t)

	artifact := filepath.Join(t.TempDir(), "itch-3.1.0.zip")
	writeZip(t, artifact, map[string]string{
		"itch":           "binary",
		"resources/a.js": "console.log('hi')",
	})

	o := runCheck(t, fs, FileURL(artifact))
	require.NoError(t, o.err)
	assert.True(t, o.staged)

	ready := store.Ready()
	require.NotNil(t, ready)
	assert.Equal(t, "3.1.0", ready.Version)
	assert.FileExists(t, filepath.Join(ready.Path, "itch"))
	assert.FileExists(t, filepath.Join(ready.Path, "resources", "a.js"))
}

func TestFileService_StagesOverHTTP(t *testing.T) {
	fs, store := newTestService(t)

	zipPath := filepath.Join(t.TempDir(), "itch-4.0.0.zip")
	writeZip(t, zipPath, map[string]string{"itch": "binary"})
	contents, err := os.ReadFile(zipPath)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "itch-4.0.0.zip", time.Now(), bytes.NewReader(contents))
	}))
	defer server.Close()

	o := runCheck(t, fs, server.URL+"/downloads/itch-4.0.0.zip")
	require.NoError(t, o.err)
	assert.True(t, o.staged)

	ready := store.Ready()
	require.NotNil(t, ready)
	assert.Equal(t, "4.0.0", ready.Version)
	assert.FileExists(t, filepath.Join(ready.Path, "itch"))
}

func TestFileService_MissingSourceEmitsError(t *testing.T) {
	fs, store := newTestService(t)

	o := runCheck(t, fs, FileURL(filepath.Join(t.TempDir(), "itch-9.9.9.zip")))
	assert.Error(t, o.err)
	assert.False(t, o.staged)
	assert.Nil(t, store.Ready())
}

func TestFileService_NoSourceEmitsError(t *testing.T) {
	fs, _ := newTestService(t)

	errs := make(chan error, 1)
	fs.OnError(func(err error) { errs <- err })
	fs.CheckForUpdates()

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("expected an error event")
	}
}

func TestFileService_SetSourceRejectsUnknownScheme(t *testing.T) {
	fs, _ := newTestService(t)
	assert.Error(t, fs.SetSource("gopher://example.org/itch.zip"))
}

func TestFileService_QuitAndInstallNeedsStagedBuild(t *testing.T) {
	fs, _ := newTestService(t)
	assert.Error(t, fs.QuitAndInstall())
}

func TestFileService_QuitAndInstallDryRun(t *testing.T) {
	fs, store := newTestService(t)
	require.NoError(t, store.QueueReady(stageFolder(t, store, "2.0.0")))

	require.NoError(t, fs.QuitAndInstall())
	assert.NoFileExists(t, fs.params.HelperPath, "dry runs should not copy the helper")
}
