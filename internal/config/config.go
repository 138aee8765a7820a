package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for medreminder
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Leaflet   LeafletConfig   `mapstructure:"leaflet"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Channels  ChannelsConfig  `mapstructure:"channels"`
	Security  SecurityConfig  `mapstructure:"security"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
	InMemory   bool   `mapstructure:"in_memory"`
}

// LeafletConfig holds the generative text endpoint settings
type LeafletConfig struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	Model             string `mapstructure:"model"`
	Timeout           int    `mapstructure:"timeout"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
	CacheSize         int    `mapstructure:"cache_size"`
	BreakerFailures   int    `mapstructure:"breaker_failures"`
	BreakerCooldown   int    `mapstructure:"breaker_cooldown"`
}

// RemindersConfig holds scheduling settings
type RemindersConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PreDoseMinutes int    `mapstructure:"pre_dose_minutes"`
	Concurrency    int    `mapstructure:"concurrency"`
	Timezone       string `mapstructure:"timezone"`
}

// ChannelsConfig holds delivery channel settings
type ChannelsConfig struct {
	Log       bool           `mapstructure:"log"`
	WebSocket bool           `mapstructure:"websocket"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
	Discord   DiscordConfig  `mapstructure:"discord"`
}

// TelegramConfig holds Telegram delivery settings
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// DiscordConfig holds Discord delivery settings
type DiscordConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	JWTSecret     string   `mapstructure:"jwt_secret"`
	AdminPassword string   `mapstructure:"admin_password"`
	AllowOrigins  []string `mapstructure:"allow_origins"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	dataDir = expandPath(dataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "medreminder.db"))
	v.SetDefault("storage.badger_path", filepath.Join(dataDir, "badger"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "medreminder.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// MEDREMINDER_SERVER_PORT, MEDREMINDER_LEAFLET_API_KEY, ...
	v.SetEnvPrefix("MEDREMINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("leaflet.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("leaflet.model", "gemini-1.5-flash")
	v.SetDefault("leaflet.timeout", 60)
	v.SetDefault("leaflet.requests_per_minute", 30)
	v.SetDefault("leaflet.burst", 3)
	v.SetDefault("leaflet.cache_size", 64)
	v.SetDefault("leaflet.breaker_failures", 5)
	v.SetDefault("leaflet.breaker_cooldown", 30)

	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.pre_dose_minutes", 10)
	v.SetDefault("reminders.concurrency", 1)
	v.SetDefault("reminders.timezone", "Local")

	v.SetDefault("channels.log", true)
	v.SetDefault("channels.websocket", true)

	v.SetDefault("security.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "medreminder")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "medreminder")
}

// loadEnvOverrides loads env vars that have well known aliases outside the prefix
func loadEnvOverrides(cfg *Config) {
	if key := ResolveEnvWithAliases("MEDREMINDER_LEAFLET_API_KEY"); key != "" {
		cfg.Leaflet.APIKey = key
	}
	if token := ResolveEnvWithAliases("MEDREMINDER_CHANNELS_TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Channels.Telegram.BotToken = token
	}
	if chatID := os.Getenv("MEDREMINDER_CHANNELS_TELEGRAM_CHAT_ID"); chatID != "" {
		if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
			cfg.Channels.Telegram.ChatID = id
		}
	}
	if token := ResolveEnvWithAliases("MEDREMINDER_CHANNELS_DISCORD_TOKEN"); token != "" {
		cfg.Channels.Discord.Token = token
	}

	if secret := ResolveEnvWithAliases("MEDREMINDER_SECURITY_JWT_SECRET"); secret != "" {
		cfg.Security.JWTSecret = secret
	}
	if password := ResolveEnvWithAliases("MEDREMINDER_SECURITY_ADMIN_PASSWORD"); password != "" {
		cfg.Security.AdminPassword = password
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}

	if cfg.Reminders.PreDoseMinutes < 1 || cfg.Reminders.PreDoseMinutes > 720 {
		return fmt.Errorf("reminders.pre_dose_minutes must be between 1 and 720, got %d", cfg.Reminders.PreDoseMinutes)
	}
	if cfg.Reminders.Concurrency <= 0 {
		cfg.Reminders.Concurrency = 1
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("reminders.timezone: %w", err)
	}

	if cfg.Channels.Telegram.Enabled && (cfg.Channels.Telegram.BotToken == "" || cfg.Channels.Telegram.ChatID == 0) {
		return fmt.Errorf("channels.telegram requires bot_token and chat_id")
	}
	if cfg.Channels.Discord.Enabled && (cfg.Channels.Discord.Token == "" || cfg.Channels.Discord.ChannelID == "") {
		return fmt.Errorf("channels.discord requires token and channel_id")
	}

	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = generateRandomString(32)
	}

	return nil
}

func generateRandomString(n int) string {
	b := make([]byte, n/2+1)
	if _, err := rand.Read(b); err != nil {
		return strings.Repeat("x", n)
	}
	return hex.EncodeToString(b)[:n]
}

// Location resolves the reminder timezone
func (c *Config) Location() (*time.Location, error) {
	switch c.Reminders.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Reminders.Timezone)
	}
}

// LeafletTimeout returns the HTTP timeout for the generative endpoint
func (c *Config) LeafletTimeout() time.Duration {
	return time.Duration(c.Leaflet.Timeout) * time.Second
}
