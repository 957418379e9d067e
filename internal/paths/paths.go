// Package paths resolves the eyelet data and config directories and the
// canonical database file path.
//
// Resolution precedence for both directories:
//  1. explicit override
//  2. EYELET_DATA_DIR / EYELET_CONFIG_DIR environment variable
//  3. XDG base directory + "eyelet" (Linux and BSD-family only)
//  4. ~/.eyelet
//
// macOS and Windows always fall through to the dot-directory; XDG is a
// Linux/BSD convention and is not applied elsewhere.
package paths

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DBFileName is the canonical database filename.
const DBFileName = "eyelet.db"

// Environment variables honored during resolution.
const (
	EnvDataDir   = "EYELET_DATA_DIR"
	EnvConfigDir = "EYELET_CONFIG_DIR"
)

// DataDir returns the eyelet data directory. An empty override defers to the
// environment and platform convention.
func DataDir(override string) string {
	if override != "" {
		return expand(override)
	}
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return expand(dir)
	}
	if supportsXDG() {
		return filepath.Join(xdgDataHome(), "eyelet")
	}
	return filepath.Join(home(), ".eyelet")
}

// ConfigDir returns the eyelet configuration directory, resolved with the
// same precedence as DataDir.
func ConfigDir(override string) string {
	if override != "" {
		return expand(override)
	}
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return expand(dir)
	}
	if supportsXDG() {
		return filepath.Join(xdgConfigHome(), "eyelet")
	}
	return filepath.Join(home(), ".eyelet")
}

// DatabasePath returns the path to the database file. An override ending in
// ".db" is taken as the file itself; any other override is treated as the
// data directory to place eyelet.db in.
func DatabasePath(override string) string {
	if override != "" && strings.HasSuffix(override, ".db") {
		return expand(override)
	}
	return filepath.Join(DataDir(override), DBFileName)
}

// ResolveDatabase returns the canonical database path, creating its parent
// directory and performing the one-time legacy migration when no override is
// given. The migration copies ~/.eyelet/eyelet.db to the canonical location
// if the canonical file does not exist yet; a failed copy is non-fatal and
// resolution continues against the canonical path.
func ResolveDatabase(override string) (string, error) {
	dbPath := DatabasePath(override)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}

	if override == "" {
		legacy := filepath.Join(home(), ".eyelet", DBFileName)
		if legacy != dbPath {
			// Best effort: a migration failure leaves the legacy file in place.
			_, _ = MigrateLegacy(legacy, dbPath)
		}
	}

	return dbPath, nil
}

// MigrateLegacy copies a legacy database file to its new location. The copy
// happens only when the legacy file exists and the new one does not; the old
// file is kept so a failed or interrupted copy loses nothing. Reports whether
// a migration was performed.
func MigrateLegacy(legacyPath, newPath string) (bool, error) {
	if _, err := os.Stat(legacyPath); err != nil {
		return false, nil
	}
	if _, err := os.Stat(newPath); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return false, fmt.Errorf("create directory for %s: %w", newPath, err)
	}
	if err := copyFile(legacyPath, newPath); err != nil {
		return false, fmt.Errorf("copy %s to %s: %w", legacyPath, newPath, err)
	}
	return true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func xdgDataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(home(), ".local", "share")
}

func xdgConfigHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(home(), ".config")
}

// supportsXDG reports whether the XDG base directory convention applies.
// macOS and Windows keep their own conventions, so only Linux and the BSDs
// qualify.
func supportsXDG() bool {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		return true
	}
	return false
}

func home() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return h
}

func expand(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = filepath.Join(home(), strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
