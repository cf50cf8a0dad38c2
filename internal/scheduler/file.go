package scheduler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// scheduleFile is the on-disk YAML layout.
type scheduleFile struct {
	Schedules []Entry `yaml:"schedules"`
}

// LoadFile reads schedule entries from a YAML file. A missing file is not an
// error; it just means nothing is scheduled yet.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schedule file: %w", err)
	}

	var sf scheduleFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse schedule file %s: %w", path, err)
	}

	for i := range sf.Schedules {
		if err := sf.Schedules[i].Validate(); err != nil {
			return nil, err
		}
	}

	return sf.Schedules, nil
}

// SaveFile writes schedule entries back to a YAML file.
func SaveFile(path string, entries []Entry) error {
	data, err := yaml.Marshal(scheduleFile{Schedules: entries})
	if err != nil {
		return fmt.Errorf("encode schedule file: %w", err)
	}

	// Atomic write: tmp + rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write schedule file: %w", err)
	}
	return os.Rename(tmp, path)
}
