package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigHasSaneDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ClientID == "" {
		t.Fatal("expected a generated ClientID")
	}
	if cfg.HeartbeatIntervalSeconds != 30 || cfg.JoinTimeoutSeconds != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nonexistent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ClientID == "" {
		t.Fatal("expected a generated ClientID for a missing config file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	want := DefaultConfig()
	want.Endpoint = "wss://example.test/socket"
	want.Token = "secret"

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Endpoint != want.Endpoint || got.Token != want.Token || got.ClientID != want.ClientID {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestHeartbeatIntervalAndJoinTimeoutConvertToDuration(t *testing.T) {
	cfg := &Config{HeartbeatIntervalSeconds: 5, JoinTimeoutSeconds: 2}
	if cfg.HeartbeatInterval().Seconds() != 5 {
		t.Fatalf("HeartbeatInterval = %v, want 5s", cfg.HeartbeatInterval())
	}
	if cfg.JoinTimeout().Seconds() != 2 {
		t.Fatalf("JoinTimeout = %v, want 2s", cfg.JoinTimeout())
	}
}
