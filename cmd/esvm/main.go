package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	runMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

// SilentExitError reports an exit code without emitting error output. Used
// when the failure was already reported on the console.
type SilentExitError struct {
	Code int
}

func (e *SilentExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// execute runs the CLI with the provided args and output writers.
func execute(args []string, stdout, stderr io.Writer, exit func(int)) error {
	cmd := newRootCmd(exit)
	cmd.Version = Version
	if len(args) > 1 {
		cmd.SetArgs(args[1:])
	} else {
		cmd.SetArgs([]string{})
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

func runMain(args []string, stdout, stderr io.Writer, exit func(int)) {
	err := execute(args, stdout, stderr, exit)
	if err == nil {
		return
	}
	var silent *SilentExitError
	if errors.As(err, &silent) {
		exit(silent.Code)
		return
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	exit(1)
}

type options struct {
	home    string
	engines string
	exit    func(int)
}

func newRootCmd(exit func(int)) *cobra.Command {
	opts := &options{exit: exit}
	root := &cobra.Command{
		Use:   "esvm",
		Short: "Install and update JavaScript engines",
		Long: `esvm installs prebuilt JavaScript engine binaries and keeps them up to date.

Run without a command to update every selected engine. The first run asks
which engines to install unless --engines is given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdateAll(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.home, "home", "", "esvm home directory (default $ESVM_HOME or ~/.esvm)")
	root.PersistentFlags().StringVar(&opts.engines, "engines", "", `engines to select on first run: "all" or a comma separated list`)

	root.AddCommand(
		newInstallCmd(opts),
		newUpdateCmd(opts),
		newUninstallCmd(opts),
		newListCmd(opts),
		newDoctorCmd(opts),
		newActivateCmd(opts),
	)
	return root
}
