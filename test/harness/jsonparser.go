package harness

import (
	"encoding/json"
	"strings"
)

// MessageType represents the type of JSON message emitted by itch-update
type MessageType string

const (
	TypeStateChanged      MessageType = "state-changed"
	TypeProgress          MessageType = "progress"
	TypeUpdateStaged      MessageType = "update-staged"
	TypeUpdateFailed      MessageType = "update-failed"
	TypeQuitAndInstall    MessageType = "quit-and-install"
	TypeNoUpdateAvailable MessageType = "no-update-available"
)

// Message represents a parsed JSON message from itch-update stdout
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StateChangedPayload contains an update state transition
type StateChangedPayload struct {
	CycleID string `json:"cycleId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// UpdateStagedPayload contains the artifact that was staged
type UpdateStagedPayload struct {
	CycleID  string `json:"cycleId"`
	Artifact string `json:"artifact"`
}

// UpdateFailedPayload contains the dialog category and error
type UpdateFailedPayload struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

// ParseMessage parses a single line of JSON output
func ParseMessage(line string) (Message, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "{") {
		return Message{}, false
	}

	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return Message{}, false
	}

	return msg, true
}

func decodePayload[T any](m Message, t MessageType) (*T, bool) {
	if m.Type != t {
		return nil, false
	}
	var p T
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// GetStateChangedPayload extracts the payload for state-changed messages
func (m Message) GetStateChangedPayload() (*StateChangedPayload, bool) {
	return decodePayload[StateChangedPayload](m, TypeStateChanged)
}

// GetUpdateStagedPayload extracts the payload for update-staged messages
func (m Message) GetUpdateStagedPayload() (*UpdateStagedPayload, bool) {
	return decodePayload[UpdateStagedPayload](m, TypeUpdateStaged)
}

// GetUpdateFailedPayload extracts the payload for update-failed messages
func (m Message) GetUpdateFailedPayload() (*UpdateFailedPayload, bool) {
	return decodePayload[UpdateFailedPayload](m, TypeUpdateFailed)
}

// HasMessageType checks if the result contains a message of the given type
func (r *Result) HasMessageType(t MessageType) bool {
	for _, msg := range r.Messages {
		if msg.Type == t {
			return true
		}
	}
	return false
}

// GetFirstMessageOfType returns the first message of the given type
func (r *Result) GetFirstMessageOfType(t MessageType) *Message {
	for _, msg := range r.Messages {
		if msg.Type == t {
			return &msg
		}
	}
	return nil
}

// GetAllMessagesOfType returns all messages of the given type
func (r *Result) GetAllMessagesOfType(t MessageType) []Message {
	var result []Message
	for _, msg := range r.Messages {
		if msg.Type == t {
			result = append(result, msg)
		}
	}
	return result
}

// States returns the states the updater went through, in order
func (r *Result) States() []string {
	var states []string
	for _, msg := range r.GetAllMessagesOfType(TypeStateChanged) {
		if p, ok := msg.GetStateChangedPayload(); ok {
			states = append(states, p.To)
		}
	}
	return states
}
