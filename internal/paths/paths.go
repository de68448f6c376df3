// Package paths resolves the configuration and data directories embedref
// uses.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user platform directories.
const AppName = "embedref"

// CWD-relative directory names, used when nothing overrides them.
const (
	DefaultConfigDirName = ".embedref"
	DefaultDataDirName   = ".embedref-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "EMBEDREF_CONFIG_DIR"
	EnvDataDir   = "EMBEDREF_DATA_DIR"
)

// platformDir holds platform-detection functions that tests override.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// userDir returns the per-user directory for embedref. On Linux it honors
// xdgVar and falls back to home/linuxRel; elsewhere it uses
// os.UserConfigDir (~/Library/Application Support, %APPDATA%).
func userDir(xdgVar string, linuxRel ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, linuxRel...), AppName)...), nil
}

// UserConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/embedref (fallback ~/.config/embedref)
// macOS:   ~/Library/Application Support/embedref
// Windows: %APPDATA%/embedref
func UserConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// UserDataDir returns the platform data directory.
//
// Linux:   $XDG_DATA_HOME/embedref (fallback ~/.local/share/embedref)
// macOS and Windows: same as UserConfigDir.
func UserDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", ".local", "share")
}

func cwdJoin(name string) (string, error) {
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, name), nil
}

// firstAbs returns the absolute form of the first non-empty candidate.
func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c != "" {
			abs, err := filepath.Abs(c)
			return abs, true, err
		}
	}
	return "", false, nil
}

// ResolveConfigDir returns the configuration directory: flag, then
// EMBEDREF_CONFIG_DIR, then $(CWD)/.embedref.
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok, err := firstAbs(flag, os.Getenv(EnvConfigDir)); ok {
		return dir, err
	}
	return cwdJoin(DefaultConfigDirName)
}

// ResolveDataDir returns the data directory: flag, then the config file's
// data_dir, then EMBEDREF_DATA_DIR, then $(CWD)/.embedref-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	if dir, ok, err := firstAbs(flag, configValue, os.Getenv(EnvDataDir)); ok {
		return dir, err
	}
	return cwdJoin(DefaultDataDirName)
}

// ResolveLogFile returns the operations log path: flag, then the config
// file's log.file. A relative config value is taken relative to dataDir.
// Empty means no log file.
func ResolveLogFile(flag, configValue, dataDir string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue == "" {
		return "", nil
	}
	if filepath.IsAbs(configValue) {
		return configValue, nil
	}
	return filepath.Join(dataDir, configValue), nil
}
