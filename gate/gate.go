// Package gate adapts callback-style APIs to a single awaitable result.
//
// A Pending is handed to event listeners, which settle it with Resolve or
// Reject. Whoever calls first wins; every later call is ignored. The side
// that started the operation blocks on Wait.
package gate

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrRejected is what Wait returns when Reject was called with a nil error.
var ErrRejected = errors.New("operation rejected")

// Pending is one in-flight operation. It is settled at most once and is
// never reused.
type Pending[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// New returns an unsettled Pending.
func New[T any]() *Pending[T] {
	return &Pending[T]{
		done: make(chan struct{}),
	}
}

// Resolve settles p with v. It returns false if p was already settled.
func (p *Pending[T]) Resolve(v T) bool {
	settled := false
	p.once.Do(func() {
		p.value = v
		settled = true
		close(p.done)
	})
	return settled
}

// Reject settles p with err. It returns false if p was already settled.
func (p *Pending[T]) Reject(err error) bool {
	if err == nil {
		err = ErrRejected
	}

	settled := false
	p.once.Do(func() {
		p.err = err
		settled = true
		close(p.done)
	})
	return settled
}

// Done is closed once p is settled.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether Resolve or Reject has taken effect.
func (p *Pending[T]) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until p is settled or ctx is done. A cancelled ctx does not
// settle p: a listener may still resolve it later.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
