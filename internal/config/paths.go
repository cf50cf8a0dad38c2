package config

import (
	"os"
	"path/filepath"
)

// DelverPath returns the root directory for Delver data.
// It uses $DELVER_PATH if set, otherwise defaults to ~/.delver.
func DelverPath() string {
	if v := os.Getenv("DELVER_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".delver")
	}
	return filepath.Join(home, ".delver")
}

// ConfigPath returns the path to the Delver config file.
func ConfigPath() string {
	return filepath.Join(DelverPath(), "config.jsonc")
}

// DotenvPath returns the path to the Delver .env file.
func DotenvPath() string {
	return filepath.Join(DelverPath(), ".env")
}

// EventLogDir returns the directory for JSONL event logs.
func EventLogDir() string {
	return filepath.Join(DelverPath(), "events")
}

// CachePath returns the path to the search query cache database.
func CachePath() string {
	return filepath.Join(DelverPath(), "cache.db")
}

// UploadsDir returns the directory for uploaded files.
func UploadsDir() string {
	return filepath.Join(DelverPath(), "uploads")
}

// SessionsDir returns the directory for research session records.
func SessionsDir() string {
	return filepath.Join(DelverPath(), "sessions")
}

// HeartbeatPath returns the path to the gateway heartbeat file.
func HeartbeatPath() string {
	return filepath.Join(DelverPath(), "heartbeat.json")
}
