package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/itchio/itch-update/cl"
	"github.com/itchio/itch-update/data"
	"github.com/itchio/itch-update/localize"
	"github.com/itchio/itch-update/native"
	"github.com/itchio/itch-update/setup"
)

var (
	version = "head" // set by command-line on CI release builds

	app = kingpin.New("itch-update", "Stages and installs itch updates")

	appName  = app.Flag("appname", "Application name (itch or kitch)").Default("itch").Envar("ITCH_UPDATE_APPNAME").String()
	baseDir  = app.Flag("base-dir", "Where builds are kept, defaults to a per-user folder").Envar("ITCH_UPDATE_BASE_DIR").String()
	logLevel = app.Flag("log-level", "Log level (trace, debug, info, warn, error)").Default("info").Envar("ITCH_UPDATE_LOG_LEVEL").String()
	logFile  = app.Flag("log-file", "Log to this file instead of stderr").Envar("ITCH_UPDATE_LOG_FILE").String()
	jsonOut  = app.Flag("json", "Print JSON lines on stdout").Envar("ITCH_UPDATE_JSON").Bool()
	helpURL  = app.Flag("help-url", "Page to open when the user has to fix something").Envar("ITCH_UPDATE_HELP_URL").String()

	runCmd      = app.Command("run", "Stage an artifact, then install it once 'install' is read on stdin")
	runArtifact = runCmd.Arg("artifact", "Update package to stage").Required().String()
	runArgs     = runCmd.Arg("args", "Arguments to relaunch the app with").Strings()

	watchCmd      = app.Command("watch", "Stage new artifacts as they appear in a folder")
	watchDropDir  = watchCmd.Flag("drop-dir", "Folder artifacts are downloaded to").Required().String()
	watchInterval = watchCmd.Flag("interval", "How often to look for artifacts").Default("10m").Duration()
	watchCurrent  = watchCmd.Flag("current-version", "Version that's running now").Envar("ITCH_UPDATE_CURRENT_VERSION").String()
	watchArgs     = watchCmd.Arg("args", "Arguments to relaunch the app with").Strings()

	cleanupCmd = app.Command("cleanup", "Remove installers left over from previous updates")
	cleanupDir = cleanupCmd.Flag("cache-dir", "Installer cache, defaults to <base-dir>/installers").String()

	classifyCmd     = app.Command("classify", "Print the dialog category for an installer error message")
	classifyMessage = classifyCmd.Arg("message", "Error message").Required().String()

	applyCmd      = app.Command("apply", "Wait for the app to exit, then install the staged build").Hidden()
	applyPID      = applyCmd.Flag("pid", "PID to wait on").Int()
	applyRelaunch = applyCmd.Flag("relaunch", "Start the app again once installed").Bool()
	applyTimeout  = applyCmd.Flag("timeout", "How long to wait for the app to exit").Default("1m").Duration()
	applyArgs     = applyCmd.Arg("args", "Arguments to relaunch the app with").Strings()
)

// shared by run and watch
var (
	pid      int
	relaunch bool
	dryRun   bool
)

func init() {
	for _, cmd := range []*kingpin.CmdClause{runCmd, watchCmd} {
		cmd.Flag("pid", "PID the installer waits on, defaults to ours").IntVar(&pid)
		cmd.Flag("relaunch", "Start the app again once installed").BoolVar(&relaunch)
		cmd.Flag("dry-run", "Stage, but don't start the installer").Envar("ITCH_UPDATE_DRY_RUN").BoolVar(&dryRun)
	}
}

func must(err error) {
	if err != nil {
		log.Errorf("%+v", err)
		os.Exit(1)
	}
}

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	app.VersionFlag.Short('V')

	cmd, err := app.Parse(os.Args[1:])
	if err != nil {
		app.Fatalf("%s", err)
	}

	must(cl.InitLog(*logLevel, *logFile))
	if *jsonOut {
		setup.EnableJSON()
	}

	localizer, err := localize.NewLocalizer(data.Asset)
	must(err)
	localizer.UseSystemLang()

	cli := cl.CLI{
		AppName:       *appName,
		VersionString: version,
		BaseDir:       *baseDir,
		Localizer:     localizer,
		LogLevel:      *logLevel,
		LogFile:       *logFile,
		JSON:          *jsonOut,
		PID:           pid,
		Relaunch:      relaunch,
		DryRun:        dryRun,
	}
	if cli.BaseDir == "" {
		cli.BaseDir, err = native.DefaultBaseDir(cli.AppName)
		must(err)
	}
	log.Debugf("%s %s, base dir (%s)", cli.AppName, cli.VersionString, cli.BaseDir)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case runCmd.FullCommand():
		cli.Artifact = *runArtifact
		cli.Args = *runArgs
		err = doRun(ctx, cli)
	case watchCmd.FullCommand():
		cli.DropDir = *watchDropDir
		cli.Interval = watchInterval.String()
		cli.CurrentVersion = *watchCurrent
		cli.Args = *watchArgs
		err = doWatch(ctx, cli, *watchInterval)
	case cleanupCmd.FullCommand():
		err = doCleanup(ctx, cli, *cleanupDir)
	case applyCmd.FullCommand():
		cli.PID = *applyPID
		cli.Relaunch = *applyRelaunch
		cli.Args = *applyArgs
		err = doApply(ctx, cli, *applyTimeout)
	case classifyCmd.FullCommand():
		cli.Message = *classifyMessage
		err = doClassify(cli)
	}
	must(err)
}

type updateStack struct {
	store    *native.Store
	updater  *setup.Updater
	trigger  *setup.ManualTrigger
	quitFlag *setup.ProcessQuitFlag
}

func newUpdateStack(cli cl.CLI) (*updateStack, error) {
	store, err := native.OpenStore(native.StoreParams{
		AppName:    cli.AppName,
		BaseDir:    cli.BaseDir,
		OnValidate: native.ExecutableValidator(cli.AppName),
	})
	if err != nil {
		return nil, err
	}

	svc, err := native.NewFileService(native.FileServiceParams{
		AppName:      cli.AppName,
		Store:        store,
		PID:          cli.PID,
		Relaunch:     cli.Relaunch,
		RelaunchArgs: cli.Args,
		DryRun:       cli.DryRun,
		OnProgress: func(progress float64) {
			setup.Emit(setup.Progress{Progress: progress})
		},
	})
	if err != nil {
		return nil, err
	}

	trigger := &setup.ManualTrigger{}
	quitFlag := &setup.ProcessQuitFlag{}
	updater, err := setup.NewUpdater(setup.UpdaterParams{
		Cleaner:   setup.DefaultCleaner(installerCacheDir(cli)),
		Stager:    setup.NewBridge(svc),
		Installer: svc,
		Trigger:   trigger,
		QuitFlag:  quitFlag,
		Presenter: &setup.JSONPresenter{
			AppName:   cli.AppName,
			Localizer: cli.Localizer,
			HelpURL:   *helpURL,
		},
	})
	if err != nil {
		return nil, err
	}

	return &updateStack{
		store:    store,
		updater:  updater,
		trigger:  trigger,
		quitFlag: quitFlag,
	}, nil
}

func installerCacheDir(cli cl.CLI) string {
	return filepath.Join(cli.BaseDir, "installers")
}

// readLines sends stdin lines until EOF, then closes the channel.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			log.Warnf("Reading stdin: %v", err)
		}
	}()
	return lines
}

func doRun(ctx context.Context, cli cl.CLI) error {
	stack, err := newUpdateStack(cli)
	if err != nil {
		return err
	}

	lines := readLines(os.Stdin)
	if err := stack.updater.Run(ctx, cli.Artifact); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			log.Infof("Interrupted, update stays staged")
			return nil
		case line, ok := <-lines:
			if !ok {
				log.Infof("No install requested, update stays staged")
				return nil
			}
			if line != "install" {
				log.Debugf("Ignoring input (%s)", line)
				continue
			}
			stack.trigger.Fire()
			return installOutcome(stack.updater)
		}
	}
}

func installOutcome(updater *setup.Updater) error {
	select {
	case <-updater.Finished():
		log.Infof("Installer took over, bye!")
		return nil
	default:
		return errors.Errorf("install did not go through (%s)", updater.State())
	}
}

func doWatch(ctx context.Context, cli cl.CLI, interval time.Duration) error {
	stack, err := newUpdateStack(cli)
	if err != nil {
		return err
	}

	currentVersion := cli.CurrentVersion
	if currentVersion == "" {
		if current := stack.store.Current(); current != nil {
			currentVersion = current.Version
		}
	}

	scheduler, err := setup.NewScheduler(setup.SchedulerParams{
		Locator: &setup.DirLocator{
			Dir:            cli.DropDir,
			AppName:        cli.AppName,
			CurrentVersion: currentVersion,
		},
		Runner:   stack.updater,
		Interval: interval,
		WatchDir: cli.DropDir,
	})
	if err != nil {
		return err
	}
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	lines := readLines(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stack.quitFlag.Marked():
			return installOutcome(stack.updater)
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			switch line {
			case "install":
				stack.trigger.Fire()
			case "check":
				scheduler.CheckNow()
			default:
				log.Debugf("Ignoring input (%s)", line)
			}
		}
	}
}

func doCleanup(ctx context.Context, cli cl.CLI, cacheDir string) error {
	if cacheDir == "" {
		cacheDir = installerCacheDir(cli)
	}
	return setup.DefaultCleaner(cacheDir).DeletePreviousInstallers(ctx)
}

func doApply(ctx context.Context, cli cl.CLI, timeout time.Duration) error {
	store, err := native.OpenStore(native.StoreParams{
		AppName:    cli.AppName,
		BaseDir:    cli.BaseDir,
		OnValidate: native.ExecutableValidator(cli.AppName),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return native.Apply(ctx, native.ApplyParams{
		AppName:  cli.AppName,
		Store:    store,
		PID:      cli.PID,
		Relaunch: cli.Relaunch,
		Args:     cli.Args,
	})
}

func doClassify(cli cl.CLI) error {
	category := setup.Classify(errors.New(cli.Message))
	fmt.Println(category)
	return nil
}
