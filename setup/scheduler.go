package setup

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultFailureCooldown = 5 * time.Minute
	defaultSettleDelay     = time.Second
)

// Runner is the part of Updater the scheduler drives.
type Runner interface {
	Run(ctx context.Context, artifactPath string) error
	State() State
}

type SchedulerParams struct {
	Locator Locator
	Runner  Runner

	// How often to look for artifacts. Zero disables periodic checks.
	Interval time.Duration

	// If set, changes to this folder trigger a check.
	WatchDir string

	// An artifact that failed to stage isn't retried before this
	// much time has passed.
	FailureCooldown time.Duration

	// How long the watched folder must stay quiet before we look at it.
	SettleDelay time.Duration
}

// Scheduler looks for new artifacts periodically, when the drop folder
// changes, or when asked to, and runs them through the Runner.
type Scheduler struct {
	params SchedulerParams

	checkChan chan struct{}
	wg        sync.WaitGroup
	cancel    context.CancelFunc
	watcher   *fsnotify.Watcher

	staged   string
	failedAt map[string]time.Time
}

func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Locator == nil {
		return nil, errors.New("SchedulerParams.Locator cannot be nil")
	}
	if params.Runner == nil {
		return nil, errors.New("SchedulerParams.Runner cannot be nil")
	}
	if params.FailureCooldown == 0 {
		params.FailureCooldown = defaultFailureCooldown
	}
	if params.SettleDelay == 0 {
		params.SettleDelay = defaultSettleDelay
	}

	return &Scheduler{
		params:    params,
		checkChan: make(chan struct{}, 1),
		failedAt:  make(map[string]time.Time),
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cancel != nil {
		return errors.New("scheduler already started")
	}

	if s.params.WatchDir != "" {
		if err := os.MkdirAll(s.params.WatchDir, 0o755); err != nil {
			return errors.WithMessage(err, "creating watched folder")
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return errors.WithMessage(err, "creating watcher")
		}
		if err := watcher.Add(s.params.WatchDir); err != nil {
			watcher.Close()
			return errors.WithMessagef(err, "watching (%s)", s.params.WatchDir)
		}
		s.watcher = watcher
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.watcher != nil {
		s.wg.Add(1)
		go s.watchLoop(ctx)
	}

	s.wg.Add(1)
	go s.loop(ctx)

	s.CheckNow()
	return nil
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}

	s.cancel()
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			log.Warnf("Closing watcher: %v", err)
		}
	}
	s.wg.Wait()
}

// CheckNow asks for a check as soon as possible. Requests made while one
// is pending are merged.
func (s *Scheduler) CheckNow() {
	select {
	case s.checkChan <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	var tick <-chan time.Time
	if s.params.Interval > 0 {
		ticker := time.NewTicker(s.params.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.checkChan:
		case <-tick:
		}

		s.check(ctx)
	}
}

func (s *Scheduler) watchLoop(ctx context.Context) {
	defer s.wg.Done()

	settle := time.NewTimer(s.params.SettleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				log.Tracef("Drop folder event: %s", event)
				settle.Reset(s.params.SettleDelay)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("Watching drop folder: %v", err)
		case <-settle.C:
			s.CheckNow()
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	switch state := s.params.Runner.State(); state {
	case StateCleaningUp, StateStaging, StateQuitting, StateSucceeded:
		log.Debugf("Update %s, skipping check", state)
		return
	}

	artifact, err := s.params.Locator.Locate(ctx)
	if err != nil {
		log.Errorf("Looking for updates: %v", err)
		return
	}
	if artifact == nil {
		log.Debugf("No update available")
		Emit(NoUpdateAvailable{})
		return
	}

	if artifact.Path == s.staged {
		log.Tracef("(%s) already staged", artifact.Path)
		return
	}
	if failedAt, ok := s.failedAt[artifact.Path]; ok && time.Since(failedAt) < s.params.FailureCooldown {
		log.Tracef("(%s) failed recently, not retrying yet", artifact.Path)
		return
	}

	log.Infof("Found update %s at (%s)", artifact.Version, artifact.Path)
	if err := s.params.Runner.Run(ctx, artifact.Path); err != nil {
		if errors.Is(err, ErrUpdateInProgress) {
			return
		}
		log.Errorf("Update to %s failed: %v", artifact.Version, err)
		s.failedAt[artifact.Path] = time.Now()
		return
	}

	delete(s.failedAt, artifact.Path)
	s.staged = artifact.Path
}
