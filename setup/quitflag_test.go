package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessQuitFlag(t *testing.T) {
	var f ProcessQuitFlag
	assert.False(t, f.ShouldQuit())

	select {
	case <-f.Marked():
		t.Fatal("should not be marked yet")
	default:
	}

	f.Mark()
	f.Mark()
	assert.True(t, f.ShouldQuit())

	select {
	case <-f.Marked():
	default:
		t.Fatal("should be marked")
	}
}

func TestManualTrigger(t *testing.T) {
	var trigger ManualTrigger
	fired := 0

	cancel := trigger.OnCommit(func() { fired++ })
	trigger.Fire()
	cancel()
	trigger.Fire()

	assert.Equal(t, 1, fired)
}
