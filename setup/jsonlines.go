package setup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

type Payload interface {
	GetType() string
}

type message struct {
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

var jsonEnabled = false
var jsonOutput io.Writer = os.Stdout
var jsonLock sync.Mutex

func EnableJSON() {
	jsonLock.Lock()
	defer jsonLock.Unlock()

	jsonEnabled = true
}

func DisableJSON() {
	jsonLock.Lock()
	defer jsonLock.Unlock()

	jsonEnabled = false
}

// setOutput changes where JSON lines are written. nil means stdout.
func setOutput(w io.Writer) {
	jsonLock.Lock()
	defer jsonLock.Unlock()

	if w == nil {
		w = os.Stdout
	}
	jsonOutput = w
}

func Emit(p Payload) {
	jsonLock.Lock()
	defer jsonLock.Unlock()

	if !jsonEnabled {
		return
	}

	m := &message{
		Type:    p.GetType(),
		Payload: p,
	}

	bs, err := json.Marshal(m)
	if err != nil {
		log.Warnf("Could not send JSON object: %+v", err)
		return
	}

	fmt.Fprintf(jsonOutput, "%s\n", string(bs))
}

//-------------------------------

type StateChanged struct {
	CycleID string `json:"cycleId"`
	From    State  `json:"from"`
	To      State  `json:"to"`
}

func (p StateChanged) GetType() string { return "state-changed" }

//-------------------------------

type Progress struct {
	Progress float64 `json:"progress"`
}

func (p Progress) GetType() string { return "progress" }

//-------------------------------

type UpdateStaged struct {
	CycleID  string `json:"cycleId"`
	Artifact string `json:"artifact"`
}

func (p UpdateStaged) GetType() string { return "update-staged" }

//-------------------------------

type QuitAndInstall struct {
	CycleID string `json:"cycleId"`
}

func (p QuitAndInstall) GetType() string { return "quit-and-install" }

//-------------------------------

type NoUpdateAvailable struct{}

func (p NoUpdateAvailable) GetType() string { return "no-update-available" }

//-------------------------------

type UpdateFailed struct {
	Category DialogCategory `json:"category"`
	Title    string         `json:"title,omitempty"`
	Message  string         `json:"message"`
	Error    string         `json:"error"`
}

func (p UpdateFailed) GetType() string { return "update-failed" }
