package setup

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Installer takes over once we've decided to quit. The process is
// expected to exit shortly after QuitAndInstall returns.
type Installer interface {
	QuitAndInstall() error
}

// DialogPresenter shows the user why an update failed.
type DialogPresenter interface {
	Present(category DialogCategory, err error)
}

type StateChangeHandler func(from, to State)

type UpdaterParams struct {
	// Defaults to NoopCleaner
	Cleaner   Cleaner
	Stager    Stager
	Installer Installer
	Trigger   Trigger
	QuitFlag  QuitFlag

	// Optional
	Presenter     DialogPresenter
	OnStateChange StateChangeHandler
}

// Updater drives one update cycle at a time: clean up old installers,
// stage the artifact, then wait for the trigger to quit and install.
type Updater struct {
	params UpdaterParams

	mu           sync.Mutex
	state        State
	cycleID      string
	cancelCommit func()

	finished   chan struct{}
	finishOnce sync.Once
}

func NewUpdater(params UpdaterParams) (*Updater, error) {
	if params.Stager == nil {
		return nil, errors.New("UpdaterParams.Stager cannot be nil")
	}
	if params.Installer == nil {
		return nil, errors.New("UpdaterParams.Installer cannot be nil")
	}
	if params.Trigger == nil {
		return nil, errors.New("UpdaterParams.Trigger cannot be nil")
	}
	if params.QuitFlag == nil {
		return nil, errors.New("UpdaterParams.QuitFlag cannot be nil")
	}
	if params.Cleaner == nil {
		params.Cleaner = NoopCleaner{}
	}

	return &Updater{
		params:   params,
		state:    StateIdle,
		finished: make(chan struct{}),
	}, nil
}

func (u *Updater) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Finished is closed once the installer has taken over.
func (u *Updater) Finished() <-chan struct{} {
	return u.finished
}

// Run cleans up, stages artifactPath and arms the install trigger. It
// returns once the update is staged, or with an *UpdateError if it
// couldn't be. Failures aren't retried: calling Run again is up to the
// caller.
//
// Run may be called again while waiting for the trigger, in which case
// the new artifact replaces the staged one. Otherwise, it returns
// ErrUpdateInProgress.
//
// If ctx is done while staging, Run returns right away but the updater
// stays busy until the staging it started is over.
func (u *Updater) Run(ctx context.Context, artifactPath string) error {
	u.mu.Lock()
	if !u.state.canRun() {
		state := u.state
		u.mu.Unlock()
		log.Warnf("Not running update for (%s): currently %s", artifactPath, state)
		return ErrUpdateInProgress
	}
	if u.cancelCommit != nil {
		u.cancelCommit()
		u.cancelCommit = nil
	}
	cycleID := uuid.NewString()
	u.cycleID = cycleID
	from := u.setState(StateCleaningUp)
	u.mu.Unlock()
	u.notify(cycleID, from, StateCleaningUp)

	logger := log.WithField("cycle", cycleID[:8])
	logger.Infof("Starting update from (%s)", artifactPath)

	if err := u.params.Cleaner.DeletePreviousInstallers(ctx); err != nil {
		logger.Errorf("Cleaning up previous installers: %v", err)
		return u.fail(cycleID, KindCleanup, GenericUpdateFailure, err)
	}

	u.transition(cycleID, StateStaging)
	if err := u.stage(ctx, cycleID, artifactPath); err != nil {
		if isCancellation(err) {
			logger.Warnf("Stopped waiting for staging: %v", err)
			return &UpdateError{Kind: KindStaging, Category: GenericUpdateFailure, Err: err}
		}
		category := Classify(err)
		logger.Errorf("Staging failed (%s): %v", category, err)
		return u.fail(cycleID, KindStaging, category, err)
	}

	u.transition(cycleID, StateAwaitingInstallTrigger)
	Emit(UpdateStaged{CycleID: cycleID, Artifact: artifactPath})
	logger.Infof("Update staged, waiting for install trigger")

	cancel := u.params.Trigger.OnCommit(func() {
		u.commit(cycleID)
	})

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cycleID == cycleID && u.state == StateAwaitingInstallTrigger {
		u.cancelCommit = cancel
	} else {
		// already committed, or superseded
		cancel()
	}
	return nil
}

// stage waits for the Stager, or for ctx. The staging itself can't be
// aborted: if ctx is done first, the updater stays in StateStaging until
// the Stager returns, so no other cycle starts while it's running.
func (u *Updater) stage(ctx context.Context, cycleID string, artifactPath string) error {
	result := make(chan error, 1)
	go func() {
		result <- u.params.Stager.Stage(context.WithoutCancel(ctx), artifactPath)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		go func() {
			err := <-result
			if err != nil {
				log.Infof("Abandoned staging for cycle %s failed: %v", cycleID[:8], err)
			} else {
				log.Infof("Abandoned staging for cycle %s went through, build stays queued", cycleID[:8])
			}
			u.transition(cycleID, StateFailed)
		}()
		return ctx.Err()
	}
}

func (u *Updater) commit(cycleID string) {
	u.mu.Lock()
	if u.cycleID != cycleID || u.state != StateAwaitingInstallTrigger {
		u.mu.Unlock()
		log.Debugf("Ignoring install trigger for cycle %s", cycleID[:8])
		return
	}
	from := u.setState(StateQuitting)
	cancel := u.cancelCommit
	u.cancelCommit = nil
	u.mu.Unlock()
	u.notify(cycleID, from, StateQuitting)

	if cancel != nil {
		cancel()
	}

	log.Infof("Install triggered, quitting")
	u.params.QuitFlag.Mark()
	Emit(QuitAndInstall{CycleID: cycleID})

	if err := u.params.Installer.QuitAndInstall(); err != nil {
		log.Errorf("Handing off to installer: %v", err)
		u.fail(cycleID, KindInstall, GenericUpdateFailure, err)
		return
	}

	u.transition(cycleID, StateSucceeded)
	u.finishOnce.Do(func() {
		close(u.finished)
	})
}

func (u *Updater) fail(cycleID string, kind ErrorKind, category DialogCategory, err error) error {
	u.transition(cycleID, StateFailed)

	uerr := &UpdateError{
		Kind:     kind,
		Category: category,
		Err:      err,
	}
	if isCancellation(err) {
		// shutting down, nobody's waiting for a dialog
		return uerr
	}
	if u.params.Presenter != nil {
		u.params.Presenter.Present(category, err)
	}
	return uerr
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// setState must be called with mu held.
func (u *Updater) setState(to State) State {
	from := u.state
	u.state = to
	return from
}

func (u *Updater) transition(cycleID string, to State) {
	u.mu.Lock()
	from := u.setState(to)
	u.mu.Unlock()
	u.notify(cycleID, from, to)
}

func (u *Updater) notify(cycleID string, from, to State) {
	log.Debugf("Update state: %s -> %s", from, to)
	Emit(StateChanged{CycleID: cycleID, From: from, To: to})
	if u.params.OnStateChange != nil {
		u.params.OnStateChange(from, to)
	}
}
