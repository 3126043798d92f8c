package native

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/itchio/headway/state"
	"github.com/itchio/headway/tracker"
	"github.com/itchio/headway/united"
	"github.com/itchio/httpkit/eos"
	"github.com/itchio/httpkit/eos/option"
	"github.com/itchio/savior"
	"github.com/itchio/savior/zipextractor"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ProgressHandler func(progress float64)

type FileServiceParams struct {
	AppName string
	Store   *Store

	// PID the apply helper waits on before swapping builds.
	// Defaults to our own.
	PID int

	// Whether the apply helper starts the app again, and with which
	// arguments.
	Relaunch     bool
	RelaunchArgs []string

	// Log what QuitAndInstall would start instead of starting it
	DryRun bool

	// Where the apply helper is copied to. Defaults to
	// `<BaseDir>/<AppName>-update-helper`.
	HelperPath string

	OnProgress ProgressHandler
}

// FileService is a Service that stages builds into a Store and applies
// them from a detached helper process once the app has quit.
type FileService struct {
	params FileServiceParams

	errorListeners  Listeners[error]
	stagedListeners Listeners[struct{}]

	mu     sync.Mutex
	source string
}

var _ Service = (*FileService)(nil)

func NewFileService(params FileServiceParams) (*FileService, error) {
	if params.AppName == "" {
		return nil, errors.Errorf("FileServiceParams.AppName cannot be empty")
	}
	if params.Store == nil {
		return nil, errors.Errorf("FileServiceParams.Store cannot be nil")
	}
	if params.PID == 0 {
		params.PID = os.Getpid()
	}
	if params.HelperPath == "" {
		helperName := ExeName(fmt.Sprintf("%s-update-helper", params.AppName))
		params.HelperPath = filepath.Join(params.Store.BaseDir(), helperName)
	}

	return &FileService{params: params}, nil
}

func (fs *FileService) OnError(fn func(err error)) func() {
	return fs.errorListeners.Add(fn)
}

func (fs *FileService) OnStaged(fn func()) func() {
	return fs.stagedListeners.Add(func(struct{}) { fn() })
}

func (fs *FileService) SetSource(address string) error {
	if _, err := ResolveSource(address); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.source = address
	return nil
}

func (fs *FileService) CheckForUpdates() {
	fs.mu.Lock()
	source := fs.source
	fs.mu.Unlock()

	go func() {
		err := fs.stage(source)
		if err != nil {
			log.Errorf("Staging failed: %v", err)
			fs.errorListeners.Emit(err)
			return
		}
		fs.stagedListeners.Emit(struct{}{})
	}()
}

func (fs *FileService) stage(source string) error {
	if source == "" {
		return errors.New("no update source set")
	}

	store := fs.params.Store
	if err := checkWritable(store.BaseDir()); err != nil {
		return err
	}

	name := SourceName(source)
	version := VersionFromName(name)
	if version == "" {
		version = fmt.Sprintf("build-%s", uuid.NewString()[:8])
		log.Warnf("No version in (%s), staging as (%s)", name, version)
	}

	openName, err := ResolveSource(source)
	if err != nil {
		return err
	}

	stagingDir, err := store.StagingFolder()
	if err != nil {
		return err
	}
	defer store.CleanStagingFolder()

	outputDir := filepath.Join(stagingDir, fmt.Sprintf("app-%s", version))
	log.Infof("Staging (%s) from (%s)", version, openName)

	consumer := newConsumer()
	f, err := eos.Open(openName, option.WithConsumer(consumer))
	if err != nil {
		return errors.WithMessage(err, "while opening update")
	}
	defer f.Close()

	stats, err := f.Stat()
	if err != nil {
		return errors.WithMessage(err, "while inspecting update")
	}

	tr := tracker.New(tracker.Opts{
		ByteAmount: &tracker.ByteAmount{Value: stats.Size()},
	})
	consumer.OnProgress = func(progress float64) {
		tr.SetProgress(progress)
		if fs.params.OnProgress != nil {
			fs.params.OnProgress(progress)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logProgress(ctx, tr)

	startTime := time.Now()
	if IsZip(name) {
		err = extractZip(f, stats.Size(), outputDir, consumer)
	} else {
		err = copyArtifact(f, stats.Mode(), filepath.Join(outputDir, name))
	}
	if err != nil {
		return err
	}

	duration := time.Since(startTime)
	log.Infof("Staged %s in %s (%s)",
		united.FormatBytes(stats.Size()),
		united.FormatDuration(duration),
		united.FormatBPS(stats.Size(), duration),
	)

	return store.QueueReady(Build{
		Version: version,
		Path:    outputDir,
	})
}

func newConsumer() *state.Consumer {
	return &state.Consumer{
		OnMessage: func(lvl string, msg string) {
			log.Debugf("[%s] %s", lvl, msg)
		},
	}
}

func logProgress(ctx context.Context, tr tracker.Tracker) {
	go func() {
		for {
			select {
			case <-time.After(1 * time.Second):
				var bps string
				var eta time.Duration
				if stats := tr.Stats(); stats != nil {
					if stats.BPS() != nil {
						bps = united.FormatBytes(int64(stats.BPS().Value))
					}
					if stats.TimeLeft() != nil {
						eta = *stats.TimeLeft()
					}
				}
				log.Debugf("%.2f%% done - %s / s, ETA %v", tr.Progress()*100, bps, eta)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func extractZip(f eos.File, size int64, outputDir string, consumer *state.Consumer) error {
	ex, err := zipextractor.New(f, size)
	if err != nil {
		return errors.WithMessage(err, "while opening zip")
	}
	ex.SetConsumer(consumer)

	sink := &savior.FolderSink{
		Consumer:  consumer,
		Directory: outputDir,
	}
	defer sink.Close()

	if _, err := ex.Resume(nil, sink); err != nil {
		return errors.WithMessage(err, "while extracting update")
	}
	return nil
}

func copyArtifact(r io.Reader, mode os.FileMode, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.WithMessage(err, "while creating build folder")
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = 0o755
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return errors.WithMessage(err, "while creating staged file")
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return errors.WithMessage(err, "while copying update")
	}
	return nil
}

// QuitAndInstall starts the apply helper, which waits for params.PID to
// exit before swapping the ready build in.
func (fs *FileService) QuitAndInstall() error {
	p := fs.params
	ready := p.Store.Ready()
	if ready == nil {
		return errors.New("no staged update to install")
	}

	args := []string{
		"--appname", p.AppName,
		"--base-dir", p.Store.BaseDir(),
		"apply",
		"--pid", strconv.Itoa(p.PID),
	}
	if p.Relaunch {
		args = append(args, "--relaunch")
		if len(p.RelaunchArgs) > 0 {
			args = append(args, "--")
			args = append(args, p.RelaunchArgs...)
		}
	}

	if p.DryRun {
		log.Infof("Dry run: would install (%s) with %s %v", ready.Version, p.HelperPath, args)
		return nil
	}

	helperPath, err := CopySelf(p.HelperPath)
	if err != nil {
		return err
	}

	cmd := exec.Command(helperPath, args...)
	setDetached(cmd)

	log.Infof("Starting apply helper: %s", cmd.String())
	if err := cmd.Start(); err != nil {
		return errors.WithMessage(err, "while starting apply helper")
	}
	log.Infof("Apply helper started with PID %d", cmd.Process.Pid)

	if err := cmd.Process.Release(); err != nil {
		log.Warnf("Failed to release apply helper: %v", err)
	}
	return nil
}
