package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_PATH", "DISCORD_BOT_TOKEN", "DISCORD_CLIENT_APP_ID", "GUILD_ID",
		"SUPER_ADMIN_DISCORD_ID", "PANEL_URL", "PANEL_API_KEY", "SITE_URL",
		"LISTEN_ADDR", "LOG_LEVEL", "SERVER_CONFIG_PATH", "TICKETS_PATH",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("missing token accepted")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_BOT_TOKEN", "tok")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":3001" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.ConfigPath != "server-config.json" || cfg.TicketsPath != "tickets.json" {
		t.Fatalf("paths = %q, %q", cfg.ConfigPath, cfg.TicketsPath)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("discord_token: from-file\nlisten_addr: \":9000\"\npanel_url: \"https://panel.example/\"\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_BOT_TOKEN", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DiscordToken != "from-env" {
		t.Fatalf("token = %q, env should win", cfg.DiscordToken)
	}
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("listen addr = %q, file value lost", cfg.ListenAddr)
	}
	if cfg.PanelURL != "https://panel.example" {
		t.Fatalf("panel url = %q, trailing slash kept", cfg.PanelURL)
	}
}

func TestBuildLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "garbage", ""} {
		logger, err := BuildLogger(level)
		if err != nil {
			t.Fatalf("BuildLogger(%q): %v", level, err)
		}
		if logger == nil {
			t.Fatalf("BuildLogger(%q) returned nil", level)
		}
	}
}
