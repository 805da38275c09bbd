package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("explicit missing config file must be an error")
	}

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load with no file failed: %v", err)
	}
	if cfg.Server.Port != 8422 {
		t.Errorf("expected default port 8422, got %d", cfg.Server.Port)
	}
	if cfg.Remote.URL != "" {
		t.Errorf("expected cache-only default, got remote %q", cfg.Remote.URL)
	}
	if cfg.Remote.PollInterval != 5*time.Second {
		t.Errorf("expected 5s poll interval, got %v", cfg.Remote.PollInterval)
	}
	if cfg.DataDir == "" {
		t.Error("data dir must default to a usable path")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folio.yaml")
	content := `
data_dir: /tmp/folio-test
admin_password: s3cret
server:
  port: 9000
remote:
  url: libsql://folio.turso.io
  auth_token: tok123
judges:
  codeforces:
    handle: tourist
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AdminPassword != "s3cret" {
		t.Errorf("admin_password = %q", cfg.AdminPassword)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("server.port = %d", cfg.Server.Port)
	}
	if cfg.Remote.URL != "libsql://folio.turso.io" {
		t.Errorf("remote.url = %q", cfg.Remote.URL)
	}
	if cfg.Judges.Codeforces.Handle != "tourist" {
		t.Errorf("codeforces handle = %q", cfg.Judges.Codeforces.Handle)
	}
	if got := cfg.CachePath(); got != filepath.Join("/tmp/folio-test", "folio.db") {
		t.Errorf("cache path = %q", got)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FOLIO_ADMIN_PASSWORD", "env-pass")
	t.Setenv("FOLIO_SERVER_PORT", "7777")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AdminPassword != "env-pass" {
		t.Errorf("env admin password not applied, got %q", cfg.AdminPassword)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("env port not applied, got %d", cfg.Server.Port)
	}
}
