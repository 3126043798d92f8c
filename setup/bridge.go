package setup

import (
	"context"
	"path/filepath"

	"github.com/itchio/itch-update/gate"
	"github.com/itchio/itch-update/native"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Stager gets an artifact ready to be installed on quit.
type Stager interface {
	Stage(ctx context.Context, artifactPath string) error
}

// Bridge turns the event-driven native.Service into a blocking Stage call.
type Bridge struct {
	svc native.Service
}

var _ Stager = (*Bridge)(nil)

func NewBridge(svc native.Service) *Bridge {
	return &Bridge{svc: svc}
}

// Stage hands artifactPath to the native service and waits until it
// reports the update as staged, or fails. The native error is returned
// as-is so it can be classified.
//
// Cancelling ctx only stops the wait: whatever the service is doing runs
// to completion. Stage must not be called concurrently.
func (b *Bridge) Stage(ctx context.Context, artifactPath string) error {
	if artifactPath == "" {
		return errors.New("artifact path cannot be empty")
	}

	absPath, err := filepath.Abs(artifactPath)
	if err != nil {
		return errors.WithMessage(err, "while resolving artifact path")
	}

	p := gate.New[struct{}]()

	// listen first, the service may report back before CheckForUpdates returns
	removeError := b.svc.OnError(func(err error) {
		p.Reject(err)
	})
	defer removeError()
	removeStaged := b.svc.OnStaged(func() {
		p.Resolve(struct{}{})
	})
	defer removeStaged()

	source := native.FileURL(absPath)
	if err := b.svc.SetSource(source); err != nil {
		return err
	}

	log.Infof("Checking for updates from (%s)", source)
	b.svc.CheckForUpdates()

	_, err = p.Wait(ctx)
	return err
}
