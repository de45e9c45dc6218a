// Package config loads and saves phxcli's per-user TOML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

// Config is phxcli's persisted configuration, stored as TOML at DefaultPath.
type Config struct {
	// Endpoint is the Phoenix server URL, e.g. "wss://example.com/socket".
	Endpoint string `toml:"endpoint"`

	// ClientID identifies this CLI installation. Load generates one when the
	// file has none; it is kept across runs only once the config is written
	// with Save. phxcli sends it as the client_id connect param so a server
	// can recognize reconnects from the same client.
	ClientID string `toml:"client_id"`

	// Token is an optional bearer token sent as a connect param.
	Token string `toml:"token,omitempty"`

	// KeyPath, if set, points at a raw Ed25519 private key file used to
	// sign a connect challenge instead of (or alongside) Token.
	KeyPath string `toml:"key_path,omitempty"`

	HeartbeatIntervalSeconds int `toml:"heartbeat_interval_seconds,omitempty"`
	JoinTimeoutSeconds       int `toml:"join_timeout_seconds,omitempty"`
}

// HeartbeatInterval returns the configured heartbeat period as a Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSeconds) * time.Second
}

// JoinTimeout returns the configured join/push timeout as a Duration.
func (c *Config) JoinTimeout() time.Duration {
	return time.Duration(c.JoinTimeoutSeconds) * time.Second
}

// DefaultConfig returns a Config with sane defaults and a freshly generated
// ClientID. Endpoint is left empty; phxcli commands require it be set
// either here or via flag.
func DefaultConfig() *Config {
	return &Config{
		ClientID:                 uuid.NewString(),
		HeartbeatIntervalSeconds: 30,
		JoinTimeoutSeconds:       10,
	}
}

// DefaultPath returns ~/.phxcli/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: determining home directory: %w", err)
	}
	return filepath.Join(home, ".phxcli", "config.toml"), nil
}

// Load reads path, returning DefaultConfig() unmodified (including a fresh
// ClientID) if it doesn't exist yet rather than erroring. Load never writes
// the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	return cfg, nil
}

// Save writes cfg as TOML to path, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: creating directory for %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: encoding TOML: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
