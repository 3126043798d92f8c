package cl

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/itchio/itch-update/localize"
)

// globals, get your globals here!

type CLI struct {
	AppName       string
	VersionString string
	BaseDir       string

	Localizer *localize.Localizer

	LogLevel string
	LogFile  string
	JSON     bool

	// run
	Artifact string
	PID      int
	Relaunch bool
	DryRun   bool
	Args     []string

	// watch
	DropDir        string
	Interval       string
	CurrentVersion string

	// classify
	Message string
}

// InitLog sets the log level, and sends logs to a rotated file if
// logPath is set. Logs go to stderr otherwise, stdout is for JSON lines.
func InitLog(logLevel string, logPath string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return errors.WithMessagef(err, "parsing log level (%s)", logLevel)
	}

	var out io.Writer = os.Stderr
	if logPath != "" && logPath != "console" {
		out = &lumberjack.Logger{
			// Log file absolute path, os agnostic
			Filename:   filepath.ToSlash(logPath),
			MaxSize:    5, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
	}

	log.SetOutput(out)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetLevel(level)
	return nil
}
