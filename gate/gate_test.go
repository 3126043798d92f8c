package gate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending_ResolveThenReject(t *testing.T) {
	p := New[string]()

	assert.True(t, p.Resolve("first"))
	assert.False(t, p.Reject(errors.New("too late")))
	assert.False(t, p.Resolve("second"))

	v, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestPending_RejectThenResolve(t *testing.T) {
	p := New[int]()
	boom := errors.New("boom")

	assert.True(t, p.Reject(boom))
	assert.False(t, p.Resolve(42))

	v, err := p.Wait(context.Background())
	assert.Equal(t, boom, err)
	assert.Equal(t, 0, v)
}

func TestPending_RejectNil(t *testing.T) {
	p := New[struct{}]()
	p.Reject(nil)

	_, err := p.Wait(context.Background())
	assert.Equal(t, ErrRejected, err)
}

func TestPending_Settled(t *testing.T) {
	p := New[bool]()
	assert.False(t, p.Settled())

	p.Resolve(true)
	assert.True(t, p.Settled())

	select {
	case <-p.Done():
	default:
		t.Fatal("Done should be closed after Resolve")
	}
}

func TestPending_WaitCancelled(t *testing.T) {
	p := New[string]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, p.Settled(), "cancelling the wait must not settle the operation")

	p.Resolve("later")
	v, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "later", v)
}

func TestPending_ConcurrentSettle(t *testing.T) {
	p := New[int]()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var ok bool
			if i%2 == 0 {
				ok = p.Resolve(i)
			} else {
				ok = p.Reject(errors.Errorf("reject %d", i))
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.True(t, p.Settled())
}
