package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultPollInterval = 5 * time.Second

// Profile is the operator's saved connection, stored as YAML.
type Profile struct {
	BaseURL      string        `yaml:"base_url"`
	WSURL        string        `yaml:"ws_url,omitempty"`
	Token        string        `yaml:"token,omitempty"`
	AgentID      string        `yaml:"agent_id,omitempty"`
	Email        string        `yaml:"email,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "inboxctl.yaml"
	}
	return filepath.Join(dir, "sgi", "inboxctl.yaml")
}

// loadProfile reads path; a missing file yields the local defaults.
func loadProfile(path string) (*Profile, error) {
	p := &Profile{BaseURL: "http://localhost:81", PollInterval: defaultPollInterval}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.PollInterval <= 0 {
		p.PollInterval = defaultPollInterval
	}
	return p, nil
}

func saveProfile(path string, p *Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	// the token is a credential
	return os.WriteFile(path, data, 0o600)
}
