package helpers

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/compozy/specmatch/pkg/config"
)

// Mode selects how command results are rendered.
type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
	ModeYAML Mode = "yaml"
)

// isRunningInCI checks if we're running in a CI/CD environment
func isRunningInCI() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	ciVars := []string{
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"BUILDKITE",
		"JENKINS_URL",
		"TF_BUILD", // Azure DevOps
		"CONTINUOUS_INTEGRATION",
	}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// ParseMode maps a --format value. Unknown values and "auto" report false.
func ParseMode(format string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case string(ModeJSON):
		return ModeJSON, true
	case string(ModeText):
		return ModeText, true
	case string(ModeYAML):
		return ModeYAML, true
	default:
		return ModeJSON, false
	}
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsInteractive reports whether stdout is a terminal a person is looking at.
func IsInteractive() bool {
	if isRunningInCI() {
		return false
	}
	if !isTerminal(os.Stdout.Fd()) {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != ""
}

// DetectMode resolves the output mode: the --format flag first, then the
// configured format, then text on a terminal and JSON otherwise.
func DetectMode(cmd *cobra.Command) Mode {
	if flag, err := cmd.Flags().GetString("format"); err == nil {
		if mode, ok := ParseMode(flag); ok {
			return mode
		}
	}
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		if mode, ok := ParseMode(cfg.CLI.Format); ok {
			return mode
		}
	}
	if IsInteractive() {
		return ModeText
	}
	return ModeJSON
}

// ShouldUseColor determines if colored output should be used
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsInteractive()
}
