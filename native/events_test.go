package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListeners_EmitInOrder(t *testing.T) {
	var l Listeners[int]
	var calls []string

	l.Add(func(v int) { calls = append(calls, "a") })
	l.Add(func(v int) { calls = append(calls, "b") })

	l.Emit(1)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestListeners_RemoveIsIdempotent(t *testing.T) {
	var l Listeners[struct{}]
	count := 0

	removeFirst := l.Add(func(struct{}) { count++ })
	l.Add(func(struct{}) { count += 10 })
	assert.Equal(t, 2, l.Len())

	removeFirst()
	removeFirst()
	assert.Equal(t, 1, l.Len())

	l.Emit(struct{}{})
	assert.Equal(t, 10, count)
}

func TestListeners_RemoveWhileEmitting(t *testing.T) {
	var l Listeners[string]
	seen := 0

	var remove func()
	remove = l.Add(func(string) {
		seen++
		remove()
	})

	l.Emit("once")
	l.Emit("twice")
	assert.Equal(t, 1, seen)
	assert.Equal(t, 0, l.Len())
}
