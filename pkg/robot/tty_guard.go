package robot

import (
	"os"
	"strings"
)

// init runs before Bubble Tea acquires the terminal (and before any TUI starts).
//
// Lipgloss/Termenv background detection can emit OSC/DSR control sequences to
// stdout. Those are harmless in a real terminal but break JSON parsers reading
// robot output, so robot invocations set CI=1 early and Termenv skips probing.
func init() {
	if os.Getenv("CI") != "" {
		return
	}

	if !shouldSuppressTTYQueries(os.Args, os.Getenv(EnvRobot) == "1", os.Getenv(EnvTestMode) != "") {
		return
	}

	_ = os.Setenv("CI", "1")
}

func shouldSuppressTTYQueries(args []string, envRobot, envTest bool) bool {
	if envRobot || envTest {
		return true
	}

	for _, arg := range args {
		if strings.HasPrefix(arg, "--robot-") || strings.HasPrefix(arg, "--export-") {
			return true
		}
		switch arg {
		case "--version", "--help", "--serve":
			return true
		}
	}

	return false
}
