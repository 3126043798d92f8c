package setup

import "github.com/itchio/itch-update/native"

// Trigger fires when the app decides it's a good time to quit and install:
// the user asked for it, or nothing important is going on.
type Trigger interface {
	OnCommit(fn func()) (cancel func())
}

// ManualTrigger fires whenever Fire is called.
type ManualTrigger struct {
	listeners native.Listeners[struct{}]
}

var _ Trigger = (*ManualTrigger)(nil)

func (t *ManualTrigger) OnCommit(fn func()) func() {
	return t.listeners.Add(func(struct{}) { fn() })
}

func (t *ManualTrigger) Fire() {
	t.listeners.Emit(struct{}{})
}
