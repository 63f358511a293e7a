package config

import (
	"errors"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken string `yaml:"discord_token"`
	AppID        string `yaml:"app_id"`
	GuildID      string `yaml:"guild_id"`
	SuperAdminID string `yaml:"super_admin_id"`
	PanelURL     string `yaml:"panel_url"`
	PanelAPIKey  string `yaml:"panel_api_key"`
	SiteURL      string `yaml:"site_url"`
	ListenAddr   string `yaml:"listen_addr"`
	LogLevel     string `yaml:"log_level"`
	ConfigPath   string `yaml:"server_config_path"`
	TicketsPath  string `yaml:"tickets_path"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:  ":3001",
		LogLevel:    "info",
		SiteURL:     "https://fty-club-pro-1.onrender.com",
		ConfigPath:  "server-config.json",
		TicketsPath: "tickets.json",
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_BOT_TOKEN is required")
	}
	cfg.PanelURL = strings.TrimRight(cfg.PanelURL, "/")

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_BOT_TOKEN", cfg.DiscordToken)
	cfg.AppID = envString("DISCORD_CLIENT_APP_ID", cfg.AppID)
	cfg.GuildID = envString("GUILD_ID", cfg.GuildID)
	cfg.SuperAdminID = envString("SUPER_ADMIN_DISCORD_ID", cfg.SuperAdminID)
	cfg.PanelURL = envString("PANEL_URL", cfg.PanelURL)
	cfg.PanelAPIKey = envString("PANEL_API_KEY", cfg.PanelAPIKey)
	cfg.SiteURL = envString("SITE_URL", cfg.SiteURL)
	cfg.ListenAddr = envString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.ConfigPath = envString("SERVER_CONFIG_PATH", cfg.ConfigPath)
	cfg.TicketsPath = envString("TICKETS_PATH", cfg.TicketsPath)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
