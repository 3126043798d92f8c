package setup

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchio/itch-update/data"
	"github.com/itchio/itch-update/localize"
)

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	setOutput(&buf)
	EnableJSON()
	t.Cleanup(func() {
		DisableJSON()
		setOutput(nil)
	})
	return &buf
}

type emitted struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func parseLines(t *testing.T, buf *bytes.Buffer) []emitted {
	t.Helper()
	var out []emitted
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m emitted
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func stubOpenURL(t *testing.T, fn func(input string) error) {
	t.Helper()
	previous := openURL
	openURL = fn
	t.Cleanup(func() {
		openURL = previous
	})
}

func TestJSONPresenter_ReadOnly(t *testing.T) {
	buf := captureJSON(t)

	var opened []string
	stubOpenURL(t, func(input string) error {
		opened = append(opened, input)
		return nil
	})

	l, err := localize.NewLocalizer(data.Asset)
	require.NoError(t, err)

	p := &JSONPresenter{
		AppName:   "itch",
		Localizer: l,
		HelpURL:   "https://itch.io/docs/itch/installing/macos.html",
	}
	p.Present(ReadOnlyVolumeFailure, errors.New("Cannot update while running on a read-only volume"))

	lines := parseLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "update-failed", lines[0].Type)

	var payload UpdateFailed
	require.NoError(t, json.Unmarshal(lines[0].Payload, &payload))
	assert.Equal(t, ReadOnlyVolumeFailure, payload.Category)
	assert.Equal(t, "Cannot update from a read-only location", payload.Title)
	assert.Contains(t, payload.Message, "itch is running from a read-only volume")
	assert.Equal(t, "Cannot update while running on a read-only volume", payload.Error)

	assert.Equal(t, []string{p.HelpURL}, opened)
}

func TestJSONPresenter_Generic(t *testing.T) {
	buf := captureJSON(t)

	stubOpenURL(t, func(input string) error {
		t.Fatalf("should not open %s", input)
		return nil
	})

	p := &JSONPresenter{AppName: "itch", HelpURL: "https://itch.io"}
	p.Present(GenericUpdateFailure, errors.New("disk full"))

	lines := parseLines(t, buf)
	require.Len(t, lines, 1)
	assert.Contains(t, string(lines[0].Payload), `"category":"cannot-update"`)
	assert.Contains(t, string(lines[0].Payload), `"message":"disk full"`)
}

func TestDialogCategory_Text(t *testing.T) {
	var c DialogCategory
	require.NoError(t, c.UnmarshalText([]byte("read-only-volume")))
	assert.Equal(t, ReadOnlyVolumeFailure, c)
	assert.Error(t, c.UnmarshalText([]byte("on-fire")))
}

func TestEmit_Disabled(t *testing.T) {
	var buf bytes.Buffer
	setOutput(&buf)
	defer setOutput(nil)

	Emit(NoUpdateAvailable{})
	assert.Empty(t, buf.String())
}
