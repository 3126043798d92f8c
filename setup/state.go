package setup

import "fmt"

// State is where an Updater is in its update cycle.
type State int

const (
	StateIdle State = iota
	StateCleaningUp
	StateStaging
	StateAwaitingInstallTrigger
	StateQuitting
	StateSucceeded
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                   "idle",
	StateCleaningUp:             "cleaning-up",
	StateStaging:                "staging",
	StateAwaitingInstallTrigger: "awaiting-install-trigger",
	StateQuitting:               "quitting",
	StateSucceeded:              "succeeded",
	StateFailed:                 "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// canRun reports whether a new cycle may start from s.
func (s State) canRun() bool {
	switch s {
	case StateIdle, StateFailed, StateAwaitingInstallTrigger:
		return true
	}
	return false
}
