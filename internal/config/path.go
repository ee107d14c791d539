// Package config loads balance's settings from viper into a typed Config.
//
// Paths may use ~ and $VARS; the database defaults to DefaultDatabasePath and
// the config file is looked up in Dir.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Dir returns the directory holding config.yaml, $HOME/.config/balance.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "balance"), nil
}

// ExpandPath resolves a leading ~ to the home directory, then $VARS.
// The path is returned unchanged when the home directory is unknown.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}
