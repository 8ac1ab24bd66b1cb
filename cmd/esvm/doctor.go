package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/esvm/internal/drift"
	"github.com/ZebulonRouseFrantzich/esvm/internal/state"
)

func newDoctorCmd(opts *options) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check installed engines against the bin directory and PATH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fix {
				return runDoctorFix(cmd, opts)
			}

			e, err := loadEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			st, err := state.Load(e.paths.StateFile)
			if err != nil {
				st = state.New(nil)
			}

			out := cmd.OutOrStdout()
			onPath := drift.OnPath(e.paths.BinDir, os.Getenv("PATH"))
			var lookPath drift.LookPathFunc
			if onPath {
				lookPath = exec.LookPath
			}
			results, err := drift.DetectDrift(st, e.paths.BinDir, lookPath)
			if err != nil {
				return err
			}
			fmt.Fprint(out, drift.FormatDriftReport(results))
			if !onPath {
				fmt.Fprintf(out, "\n%s is not on PATH. Add this to your shell configuration:\n  eval \"$(esvm activate bash)\"\n", e.paths.BinDir)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "remove orphaned entries and forget broken installs")
	return cmd
}

func runDoctorFix(cmd *cobra.Command, opts *options) error {
	a, err := openApp(cmd, opts, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.run(cmd.Context(), opts.exit, func(ctx context.Context) error {
		st := a.owner.State()
		results, err := drift.DetectDrift(st, a.paths.BinDir, nil)
		if err != nil {
			return err
		}
		fixed, err := drift.Repair(st, a.paths.BinDir, a.paths.EnginesDir, results)
		a.log.Info("doctor repair", "fixed", fixed, "error", err)
		fmt.Fprintf(cmd.OutOrStdout(), "Repaired %d problems. Run 'esvm' to reinstall forgotten engines.\n", fixed)
		return err
	})
}
