package setup

import (
	"sync"
	"sync/atomic"
)

// QuitFlag is set right before we quit on purpose, so whatever watches
// for unexpected exits leaves us alone.
type QuitFlag interface {
	Mark()
	ShouldQuit() bool
}

// ProcessQuitFlag is a QuitFlag for the whole process. The zero value is
// ready to use.
type ProcessQuitFlag struct {
	set  atomic.Bool
	once sync.Once
	mu   sync.Mutex
	ch   chan struct{}
}

var _ QuitFlag = (*ProcessQuitFlag)(nil)

func (f *ProcessQuitFlag) Mark() {
	f.set.Store(true)
	f.once.Do(func() {
		close(f.marked())
	})
}

func (f *ProcessQuitFlag) ShouldQuit() bool {
	return f.set.Load()
}

// Marked is closed once Mark has been called.
func (f *ProcessQuitFlag) Marked() <-chan struct{} {
	return f.marked()
}

func (f *ProcessQuitFlag) marked() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch == nil {
		f.ch = make(chan struct{})
	}
	return f.ch
}
