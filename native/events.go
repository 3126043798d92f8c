package native

import "sync"

type listener[T any] struct {
	id int
	fn func(T)
}

// Listeners is a list of callbacks that can be emitted to. The zero value
// is ready to use.
type Listeners[T any] struct {
	mu      sync.Mutex
	nextID  int
	entries []listener[T]
}

// Add registers fn. Calling the returned func removes it; subsequent calls
// do nothing.
func (l *Listeners[T]) Add(fn func(T)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.entries = append(l.entries, listener[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.remove(id)
		})
	}
}

func (l *Listeners[T]) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

// Emit calls every registered listener, in registration order. Listeners
// may add or remove listeners while being called.
func (l *Listeners[T]) Emit(v T) {
	l.mu.Lock()
	snapshot := make([]listener[T], len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	for _, e := range snapshot {
		e.fn(v)
	}
}

// Len returns the number of registered listeners.
func (l *Listeners[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
