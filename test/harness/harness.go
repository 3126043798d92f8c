package harness

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Harness manages the test environment for itch-update
type Harness struct {
	t          *testing.T
	binaryPath string
	tempDir    string
}

// Result holds the output from running itch-update
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Messages []Message
}

// New creates a new test harness
func New(t *testing.T) *Harness {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "itch-update-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	h := &Harness{
		t:       t,
		tempDir: tempDir,
	}

	h.buildBinary()

	return h
}

// buildBinary builds itch-update for testing
func (h *Harness) buildBinary() {
	h.t.Helper()

	cwd, err := os.Getwd()
	if err != nil {
		h.t.Fatalf("Failed to get working directory: %v", err)
	}

	// Walk up to find go.mod
	projectRoot := cwd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			h.t.Fatalf("Could not find project root (go.mod)")
		}
		projectRoot = parent
	}

	h.binaryPath = filepath.Join(h.tempDir, "itch-update")
	goCache := filepath.Join(os.TempDir(), "itch-update-go-cache")

	cmd := exec.Command("go", "build", "-o", h.binaryPath, ".")
	cmd.Dir = projectRoot
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("GOCACHE=%s", goCache),
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		h.t.Fatalf("Failed to build binary: %v\nOutput: %s", err, output)
	}
}

// TempDir returns the temporary directory for this test
func (h *Harness) TempDir() string {
	return h.tempDir
}

// BaseDir is where the binary keeps builds during tests
func (h *Harness) BaseDir() string {
	return filepath.Join(h.tempDir, "base")
}

// Run executes itch-update with the given arguments and an empty stdin.
// Always injects --json so messages can be inspected.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()
	return h.RunWithInput("", args...)
}

// RunWithInput executes itch-update with the given stdin contents.
func (h *Harness) RunWithInput(input string, args ...string) *Result {
	h.t.Helper()

	fullArgs := append([]string{"--json", "--log-level", "debug"}, args...)
	cmd := exec.Command(h.binaryPath, fullArgs...)

	env := []string{
		fmt.Sprintf("HOME=%s", h.tempDir),
		fmt.Sprintf("LOCALAPPDATA=%s", h.tempDir),
		fmt.Sprintf("ITCH_UPDATE_BASE_DIR=%s", h.BaseDir()),
		"LANG=en_US.UTF-8",
	}

	// Copy minimal required environment variables
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "PATH=") ||
			strings.HasPrefix(e, "TMPDIR=") {
			env = append(env, e)
		}
	}

	cmd.Env = env

	cmd.Stdin = strings.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			h.t.Logf("Run error: %v", err)
			result.ExitCode = -1
		}
	}

	// Parse JSON messages from stdout
	result.Messages = ParseMessages(stdout.String())

	return result
}

// Log dumps a result, for debugging failed tests
func (r *Result) Log(t *testing.T) {
	t.Helper()
	t.Logf("Exit code: %d", r.ExitCode)
	t.Logf("Stdout:\n%s", r.Stdout)
	t.Logf("Stderr:\n%s", r.Stderr)
	for i, msg := range r.Messages {
		t.Logf("  [%d] type=%s", i, msg.Type)
	}
}

// ParseMessages extracts JSON messages from stdout
func ParseMessages(stdout string) []Message {
	var messages []Message
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := scanner.Text()
		if msg, ok := ParseMessage(line); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}

// Cleanup removes temporary files
func (h *Harness) Cleanup() {
	os.RemoveAll(h.tempDir)
}
