package shell

import (
	"fmt"
	"strings"
)

// GenerateActivationCommand returns the line users add to their rc file.
func GenerateActivationCommand(shell ShellType) (string, error) {
	switch shell {
	case ShellBash, ShellZsh:
		return fmt.Sprintf(`eval "$(esvm activate %s)"`, shell), nil
	case ShellFish:
		return fmt.Sprintf("esvm activate %s | source", shell), nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// ActivationScript returns the snippet `esvm activate <shell>` prints. It
// prepends binDir to PATH unless PATH already contains it.
func ActivationScript(shell ShellType, binDir string) (string, error) {
	switch shell {
	case ShellBash, ShellZsh:
		dir := singleQuote(binDir)
		return fmt.Sprintf(`case ":${PATH}:" in
  *:%[1]s:*) ;;
  *) export PATH=%[1]s:"${PATH}" ;;
esac
export %[2]s=1
`, dir, EnvESVMActive), nil
	case ShellFish:
		dir := fishQuote(binDir)
		return fmt.Sprintf(`if not contains -- %[1]s $PATH
  set -gx PATH %[1]s $PATH
end
set -gx %[2]s 1
`, dir, EnvESVMActive), nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// singleQuote quotes s for POSIX shells.
func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// fishQuote quotes s for fish, where backslash escapes work inside single
// quotes.
func fishQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
