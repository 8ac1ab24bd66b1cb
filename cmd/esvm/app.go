package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ZebulonRouseFrantzich/esvm/internal/config"
	"github.com/ZebulonRouseFrantzich/esvm/internal/engines"
	"github.com/ZebulonRouseFrantzich/esvm/internal/fsutil"
	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
	"github.com/ZebulonRouseFrantzich/esvm/internal/logx"
	"github.com/ZebulonRouseFrantzich/esvm/internal/platform"
	"github.com/ZebulonRouseFrantzich/esvm/internal/prompt"
	"github.com/ZebulonRouseFrantzich/esvm/internal/state"
	"github.com/ZebulonRouseFrantzich/esvm/internal/status"
	"github.com/ZebulonRouseFrantzich/esvm/internal/transaction"
)

// selector picks engines interactively on first run. Replaced in tests.
var selector = func(options []prompt.Option) ([]string, error) {
	return prompt.New().SelectEngines(options)
}

// env is the read-only part of a run: where things live, what the user
// configured and which engines exist on this platform.
type env struct {
	paths    config.Paths
	cfg      *config.Config
	platform string
	catalog  *installer.Catalog
}

// loadEnv resolves paths and config and builds the catalog. stderr
// receives config warnings.
func loadEnv(ctx context.Context, opts *options, stderr io.Writer) (*env, error) {
	paths, err := config.ResolvePaths(opts.home)
	if err != nil {
		return nil, err
	}

	detector := platform.NewDetector()
	info, err := detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}

	cfg, err := config.NewParser(detector).Load(ctx, paths.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load %s: %s", paths.ConfigFile, config.FormatError(err, false))
	}
	if data, err := os.ReadFile(paths.ConfigFile); err == nil {
		if findings := config.DetectSensitiveData(string(data)); len(findings) > 0 {
			fmt.Fprintln(stderr, "Warning:", config.FormatSensitiveDataWarning(paths.ConfigFile, findings))
		}
	}

	catalog, err := engines.Catalog(installer.Env{
		Platform: info.Token(),
		Fetch:    installer.NewHTTPFetcher(cfg.Token(os.Getenv)),
	})
	if err != nil {
		return nil, err
	}

	return &env{paths: paths, cfg: cfg, platform: info.Token(), catalog: catalog}, nil
}

// resolveIDs maps engine names or ids to catalog ids. "all" selects every
// engine supported on the platform.
func (e *env) resolveIDs(names []string) ([]string, error) {
	if len(names) == 1 && strings.EqualFold(strings.TrimSpace(names[0]), "all") {
		return e.catalog.Supported(e.platform), nil
	}
	var ids []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		engine, ok := e.catalog.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", installer.ErrUnknownEngine, name)
		}
		ids = append(ids, engine.Descriptor().ID)
	}
	return ids, nil
}

// seeder returns the initial selection for a fresh state: --engines, then
// the config file, then (when interactive is set) the prompt, then the
// platform defaults.
func (e *env) seeder(opts *options, interactive bool, stderr io.Writer) state.Seeder {
	return func() ([]string, error) {
		if opts.engines != "" {
			return e.resolveIDs(strings.Split(opts.engines, ","))
		}
		if len(e.cfg.Engines) > 0 {
			return e.resolveIDs(e.cfg.Engines)
		}
		if !interactive {
			return nil, nil
		}

		var choices []prompt.Option
		for _, engine := range e.catalog.All() {
			d := engine.Descriptor()
			if !d.Supports(e.platform) {
				continue
			}
			choices = append(choices, prompt.Option{ID: d.ID, Label: d.Name, Selected: d.InstallByDefault(e.platform)})
		}
		ids, err := selector(choices)
		if errors.Is(err, prompt.ErrNotInteractive) {
			fmt.Fprintln(stderr, "Not a terminal; selecting the default engines.")
			return e.catalog.DefaultSelection(e.platform), nil
		}
		return ids, err
	}
}

// app holds everything a mutating command needs. It owns the home lock
// and the state file until Close.
type app struct {
	*env
	console *status.Console
	log     *slog.Logger
	owner   *state.Owner
	orch    *installer.Orchestrator

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// openApp locks the esvm home and loads the state. interactive allows the
// engine prompt when the state is fresh.
func openApp(cmd *cobra.Command, opts *options, interactive bool) (_ *app, err error) {
	ctx := cmd.Context()
	e, err := loadEnv(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if err := e.paths.Ensure(); err != nil {
		return nil, err
	}

	a := &app{env: e, console: console(cmd.OutOrStdout())}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	lock, err := transaction.AcquireLock(ctx, e.paths.Home)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, lock.Release)

	logger, logFile, err := logx.Open(e.paths.LogsDir, time.Now())
	if err != nil {
		return nil, err
	}
	a.log = logger
	a.closers = append(a.closers, logFile.Close)
	a.log.Info("starting", "version", Version, "command", cmd.Name(), "platform", e.platform, "home", e.paths.Home)

	if !fsutil.Exists(e.paths.ConfigFile) {
		starter := config.NewGenerator().Generate(config.Default())
		if err := fsutil.WriteFileAtomic(e.paths.ConfigFile, []byte(starter), 0644); err != nil {
			a.log.Warn("write starter config", "path", e.paths.ConfigFile, "error", err)
		}
	}

	st, fresh, err := state.LoadOrInit(e.paths.StateFile, e.seeder(opts, interactive, cmd.ErrOrStderr()))
	if err != nil {
		return nil, err
	}
	if fresh {
		a.log.Info("fresh state", "selected", st.Selected())
	}
	a.owner = state.NewOwner(st, e.paths.StateFile)

	a.orch, err = installer.NewOrchestrator(installer.Config{
		State:      st,
		Platform:   e.platform,
		BinDir:     e.paths.BinDir,
		EnginesDir: e.paths.EnginesDir,
		Downloader: installer.NewDownloader(e.paths.TempDir,
			installer.WithRetries(e.cfg.Download.Retries),
			installer.WithTimeout(e.cfg.Download.Timeout),
		),
		Journal:  transaction.NewJournal(e.paths.TxnDir),
		Reporter: a.console,
		Logger:   a.log,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// run calls fn with a context cancelled on interrupt and flushes the state
// exactly once afterwards, or once on interrupt before exiting. An
// interrupted run returns the interrupt exit code whichever goroutine
// finishes first.
func (a *app) run(parent context.Context, exit func(int), fn func(ctx context.Context) error) error {
	ctx, stop := a.owner.Watch(parent, func(code int) {
		a.log.Warn("interrupted")
		a.Close()
		exit(code)
	})
	defer stop()

	err := fn(ctx)
	if ferr := a.owner.Flush(); ferr != nil {
		a.log.Error("save state", "error", ferr)
		err = errors.Join(err, ferr)
	}
	if ctx.Err() != nil && parent.Err() == nil {
		return &SilentExitError{Code: state.InterruptExitCode}
	}
	return err
}

// Close releases the lock and closes the log, in reverse order of
// acquisition. Only the first call does anything; it may come from the
// interrupt handler.
func (a *app) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		for i := len(a.closers) - 1; i >= 0; i-- {
			errs = append(errs, a.closers[i]())
		}
		a.closers = nil
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}

func console(out io.Writer) *status.Console {
	if out == os.Stdout {
		return status.Stdout()
	}
	f, ok := out.(*os.File)
	return status.New(out, ok && term.IsTerminal(int(f.Fd())))
}
