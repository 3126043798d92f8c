package native

import (
	"context"
	"time"

	ps "github.com/mitchellh/go-ps"
	log "github.com/sirupsen/logrus"
)

var processPollInterval = 2 * time.Second

// WaitForProcessToExit polls the process table until pid is gone, or
// ctx is done.
func WaitForProcessToExit(ctx context.Context, pid int) error {
	log.Infof("Waiting for PID %d to exit", pid)

	for {
		proc, err := ps.FindProcess(pid)
		if err != nil {
			log.Warnf("While finding process: %+v", err)
		} else if proc == nil {
			log.Infof("Process exited!")
			return nil
		} else {
			log.Debugf("Process still exists (%s)", proc.Executable())
		}

		select {
		case <-ctx.Done():
			log.Warnf("Wait for PID %d cancelled", pid)
			return ctx.Err()
		case <-time.After(processPollInterval):
		}
	}
}
