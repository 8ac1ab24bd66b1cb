package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
)

// operation is one orchestrator call on a resolved engine.
type operation func(ctx context.Context, a *app, engine installer.Engine, version string) error

func newInstallCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "install <engine[@version]>...",
		Short: "Install engines, latest or a pinned version",
		Example: `  esvm install quickjs
  esvm install v8@12.4.254`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEach(cmd, opts, args, func(ctx context.Context, a *app, engine installer.Engine, version string) error {
				_, err := a.orch.Install(ctx, engine, version)
				return err
			})
		},
	}
}

func newUpdateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "update [engine[@version]]...",
		Short: "Update installed engines (all selected engines when none are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runUpdateAll(cmd, opts)
			}
			return runEach(cmd, opts, args, func(ctx context.Context, a *app, engine installer.Engine, version string) error {
				_, err := a.orch.Update(ctx, engine, version)
				return err
			})
		},
	}
}

func newUninstallCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <engine[@version]>...",
		Short: "Remove installed engines and their bin entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEach(cmd, opts, args, func(ctx context.Context, a *app, engine installer.Engine, version string) error {
				return a.orch.Uninstall(ctx, engine, version)
			})
		},
	}
}

// runEach applies op to every engine spec in order. Unknown engines are
// rejected before anything is changed. A failing engine does not stop the
// rest; its error was already reported on the console.
func runEach(cmd *cobra.Command, opts *options, specs []string, op operation) error {
	a, err := openApp(cmd, opts, false)
	if err != nil {
		return err
	}
	defer a.Close()

	type target struct {
		engine  installer.Engine
		version string
	}
	targets := make([]target, 0, len(specs))
	for _, spec := range specs {
		name, version := installer.ParseSpec(spec)
		engine, ok := a.catalog.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: %s", installer.ErrUnknownEngine, name)
		}
		targets = append(targets, target{engine: engine, version: version})
	}

	a.console.Println("esvm", Version)
	failed := 0
	err = a.run(cmd.Context(), opts.exit, func(ctx context.Context) error {
		for _, t := range targets {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := op(ctx, a, t.engine, t.version); err != nil {
				a.log.Error("operation failed", "command", cmd.Name(), "engine", t.engine.Descriptor().ID, "version", t.version, "error", err)
				failed++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return &SilentExitError{Code: 1}
	}
	return nil
}

// runUpdateAll updates every selected engine, prompting for a selection on
// the first run.
func runUpdateAll(cmd *cobra.Command, opts *options) error {
	a, err := openApp(cmd, opts, true)
	if err != nil {
		return err
	}
	defer a.Close()

	a.console.Println("esvm", Version)
	selected := a.owner.State().Selected()
	if len(selected) == 0 {
		// Nothing to write back; a fresh empty state would skip the
		// prompt next time.
		return errors.New("no engines are configured to be installed")
	}

	names := make([]string, 0, len(selected))
	for _, id := range selected {
		if engine, ok := a.catalog.Lookup(id); ok {
			names = append(names, engine.Descriptor().Name)
		} else {
			names = append(names, id)
		}
	}
	a.console.Println("Installing " + strings.Join(names, ", "))

	var updateErr error
	err = a.run(cmd.Context(), opts.exit, func(ctx context.Context) error {
		_, updateErr = a.orch.UpdateAll(ctx, a.catalog)
		return nil
	})
	if err != nil {
		return err
	}
	if updateErr != nil {
		a.log.Error("update failed", "error", updateErr)
		return &SilentExitError{Code: 1}
	}
	return nil
}
