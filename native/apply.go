package native

import (
	"context"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ApplyParams struct {
	AppName string
	Store   *Store

	// The app process we're waiting on. Zero means don't wait.
	PID int

	Relaunch bool
	Args     []string
}

// Apply runs in the helper process started by QuitAndInstall: once the
// app is gone, the ready build becomes current and, optionally, the app
// is started again.
func Apply(ctx context.Context, params ApplyParams) error {
	store := params.Store
	if store == nil {
		return errors.New("ApplyParams.Store cannot be nil")
	}

	if params.PID > 0 {
		if err := WaitForProcessToExit(ctx, params.PID); err != nil {
			return errors.WithMessage(err, "while waiting for app to exit")
		}
	}

	if store.Ready() == nil {
		log.Infof("Nothing staged, leaving (%s) alone", store.BaseDir())
	} else if err := store.MakeReadyCurrent(); err != nil {
		return errors.WithMessage(err, "while installing staged build")
	}

	if !params.Relaunch {
		return nil
	}
	return relaunch(params.AppName, store, params.Args)
}

func relaunch(appName string, store *Store, args []string) error {
	current := store.Current()
	if current == nil {
		return errors.Errorf("no installed version of %s to relaunch", appName)
	}

	exePath := filepath.Join(current.Path, ExeName(appName))
	log.Infof("Relaunching (%s) from (%s)", current.Version, exePath)

	cmd := exec.Command(exePath, args...)
	cmd.Dir = current.Path
	setDetached(cmd)

	if err := cmd.Start(); err != nil {
		return errors.WithMessagef(err, "while relaunching %s", appName)
	}
	if err := cmd.Process.Release(); err != nil {
		log.Warnf("Failed to release relaunched app: %v", err)
	}
	return nil
}
