package main

import (
	"fmt"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/esvm/internal/config"
	"github.com/ZebulonRouseFrantzich/esvm/internal/shell"
)

func newActivateCmd(opts *options) *cobra.Command {
	var (
		install bool
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "activate [bash|zsh|fish]",
		Short: "Print the shell snippet that puts esvm's bin directory on PATH",
		Long: `Print the shell snippet that puts esvm's bin directory on PATH.

Add it to your shell configuration:

  eval "$(esvm activate bash)"   # ~/.bashrc or ~/.zshrc
  esvm activate fish | source    # ~/.config/fish/config.fish

or run 'esvm activate --install' to have esvm add the line for you. The
shell is detected when not given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sh shell.ShellType
			if len(args) == 1 {
				var err error
				if sh, err = shell.Parse(args[0]); err != nil {
					return err
				}
			} else {
				detection := shell.DetectShell(cmd.Context())
				if !detection.Shell.IsValid() {
					return fmt.Errorf("could not detect your shell; pass one of bash, zsh, fish")
				}
				sh = detection.Shell
			}

			if install {
				return installActivation(cmd, sh, dryRun)
			}

			paths, err := config.ResolvePaths(opts.home)
			if err != nil {
				return err
			}
			script, err := shell.ActivationScript(sh, paths.BinDir)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), script)
			return nil
		},
	}
	cmd.Flags().BoolVar(&install, "install", false, "add the activation line to the shell's rc file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "with --install, show what would change")
	return cmd
}

func installActivation(cmd *cobra.Command, sh shell.ShellType, dryRun bool) error {
	home, err := homedir.Dir()
	if err != nil {
		return fmt.Errorf("locate home directory: %w", err)
	}
	manager, err := shell.NewManager(shell.Config{Home: home})
	if err != nil {
		return err
	}
	res, err := manager.SetupIntegration(sh, shell.SetupOptions{Backup: true, DryRun: dryRun})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case res.AlreadyPresent:
		fmt.Fprintf(out, "%s already activates esvm\n", res.RCFile)
	case dryRun:
		fmt.Fprintf(out, "Would add to %s:\n  %s\n", res.RCFile, res.ActivationCommand)
	default:
		fmt.Fprintf(out, "Added to %s:\n  %s\n", res.RCFile, res.ActivationCommand)
		if res.BackupPath != "" {
			fmt.Fprintf(out, "Backup saved as %s\n", res.BackupPath)
		}
		fmt.Fprintln(out, "Restart your shell to pick up the change.")
	}
	return nil
}
