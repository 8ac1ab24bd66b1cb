// Package shell puts esvm's bin directory on PATH.
//
// Users add one line to their shell configuration:
//
//	eval "$(esvm activate bash)"   # bash, zsh
//	esvm activate fish | source    # fish
//
// and `esvm activate <shell>` prints a snippet that prepends the bin
// directory to PATH unless it is already there. Manager can append that
// line to the shell's rc file; the rc file is rewritten through a
// temporary file and rename, and symlinked rc files are refused.
//
// The shell is detected from $SHELL, falling back to the name of the
// parent process.
package shell
