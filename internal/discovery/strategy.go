package discovery

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Subprocess budgets. Metadata-index queries answer fast or not at all;
// recursive search tools get longer. An expired command is abandoned, never
// retried.
const (
	indexQueryTimeout = 10 * time.Second
	searchToolTimeout = 30 * time.Second
)

// Strategy is a platform-specific fast path for locating database files.
// Implementations return candidate paths, or nil when the pass produced
// nothing; they never return errors - failure means an empty result.
type Strategy interface {
	Locate() []string
}

// platformStrategy selects the fast path for the current OS. The portable
// walker runs regardless, so a nil strategy is a valid selection.
func platformStrategy(home string) Strategy {
	switch runtime.GOOS {
	case "darwin":
		return &mdfindStrategy{}
	case "linux":
		return &unixFindStrategy{home: home}
	case "windows":
		return &powershellStrategy{home: home}
	default:
		return nil
	}
}

// mdfindStrategy queries the Spotlight metadata index on macOS.
type mdfindStrategy struct{}

func (s *mdfindStrategy) Locate() []string {
	paths := runLines(indexQueryTimeout, "mdfind", "kMDItemDisplayName == '"+DBFileName+"'")
	if len(paths) == 0 {
		paths = runLines(indexQueryTimeout, "mdfind",
			"kMDItemKind == 'SQLite Database' && kMDItemDisplayName == '"+DBFileName+"'")
	}

	var found []string
	for _, p := range paths {
		if strings.HasSuffix(p, "/"+DBFileName) || p == DBFileName {
			found = append(found, p)
		}
	}
	return found
}

// unixFindStrategy tries fd first (faster), then falls back to find.
type unixFindStrategy struct {
	home string
}

func (s *unixFindStrategy) Locate() []string {
	if _, err := exec.LookPath("fd"); err == nil {
		if paths := runLines(searchToolTimeout, "fd", "-t", "f", "-H", DBFileName, s.home); paths != nil {
			return paths
		}
	}
	return runLines(searchToolTimeout, "find", s.home, "-name", DBFileName, "-type", "f")
}

// powershellStrategy enumerates the home directory on Windows.
type powershellStrategy struct {
	home string
}

func (s *powershellStrategy) Locate() []string {
	script := "Get-ChildItem -Path '" + s.home + "' -Recurse -Filter '" + DBFileName +
		"' -File -ErrorAction SilentlyContinue | ForEach-Object { $_.FullName }"
	return runLines(searchToolTimeout, "powershell", "-Command", script)
}

// runLines executes a command under a timeout and returns its non-empty
// output lines. Any failure - missing binary, timeout, non-zero exit -
// yields nil.
func runLines(timeout time.Duration, name string, args ...string) []string {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
