package harness

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// StoreState represents the state.json format
type StoreState struct {
	Current string `json:"current"`
	Ready   string `json:"ready"`
}

// StoreSetup helps create test directory structures
type StoreSetup struct {
	t       *testing.T
	baseDir string
	appName string
}

// NewStoreSetup creates a new store setup helper
func NewStoreSetup(t *testing.T, baseDir, appName string) *StoreSetup {
	t.Helper()

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		t.Fatalf("Failed to create base dir: %v", err)
	}

	return &StoreSetup{
		t:       t,
		baseDir: baseDir,
		appName: appName,
	}
}

// SetState writes the state.json file
func (s *StoreSetup) SetState(current, ready string) {
	s.t.Helper()

	data, err := json.Marshal(StoreState{
		Current: current,
		Ready:   ready,
	})
	if err != nil {
		s.t.Fatalf("Failed to marshal state: %v", err)
	}

	statePath := filepath.Join(s.baseDir, "state.json")
	if err := os.WriteFile(statePath, data, 0644); err != nil {
		s.t.Fatalf("Failed to write state.json: %v", err)
	}
}

// CreateAppVersion creates a mock app installation
func (s *StoreSetup) CreateAppVersion(version string) string {
	s.t.Helper()

	appDir := filepath.Join(s.baseDir, fmt.Sprintf("app-%s", version))
	if err := os.MkdirAll(appDir, 0755); err != nil {
		s.t.Fatalf("Failed to create app dir: %v", err)
	}

	exePath := filepath.Join(appDir, s.appName)
	script := fmt.Sprintf("#!/bin/sh\necho '%s version %s'\n", s.appName, version)
	if err := os.WriteFile(exePath, []byte(script), 0755); err != nil {
		s.t.Fatalf("Failed to write mock executable: %v", err)
	}

	return appDir
}

// CreateWithReadyPending creates a store with a pending ready version
func (s *StoreSetup) CreateWithReadyPending(currentVersion, readyVersion string) {
	s.t.Helper()

	s.CreateAppVersion(currentVersion)
	s.CreateAppVersion(readyVersion)
	s.SetState(currentVersion, readyVersion)
}

// ReadState reads the current state.json
func (s *StoreSetup) ReadState() *StoreState {
	s.t.Helper()

	statePath := filepath.Join(s.baseDir, "state.json")
	data, err := os.ReadFile(statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.t.Fatalf("Failed to read state.json: %v", err)
	}

	var state StoreState
	if err := json.Unmarshal(data, &state); err != nil {
		s.t.Fatalf("Failed to unmarshal state.json: %v", err)
	}

	return &state
}

// CreateArtifact writes a zip update package with a mock executable to dir
func CreateArtifact(t *testing.T, dir, appName, version string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create artifact dir: %v", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.zip", appName, version))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create artifact: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	entry, err := w.Create(appName)
	if err != nil {
		t.Fatalf("Failed to create zip entry: %v", err)
	}

	script := fmt.Sprintf("#!/bin/sh\necho '%s version %s'\n", appName, version)
	if _, err := entry.Write([]byte(script)); err != nil {
		t.Fatalf("Failed to write zip content: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}

	return path
}
