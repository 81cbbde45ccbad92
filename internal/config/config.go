package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for meditrack
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Security SecurityConfig `mapstructure:"security"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Cron     CronConfig     `mapstructure:"cron"`
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
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	JWTSecret     string   `mapstructure:"jwt_secret"`
	AdminPassword string   `mapstructure:"admin_password"`
	AllowOrigins  []string `mapstructure:"allow_origins"`
}

// ReportsConfig holds defaults for adherence reports
type ReportsConfig struct {
	DefaultDays int `mapstructure:"default_days"`
}

// CronConfig holds scheduled job settings
type CronConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	LowStockSchedule string `mapstructure:"low_stock_schedule"`
	RolloverSchedule string `mapstructure:"rollover_schedule"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	// .env files first, so they participate in env overrides below
	if err := LoadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Determine data directory
	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.sqlite_path", filepath.Join(dataDir, "meditrack.db"))
	v.Set("storage.badger_path", filepath.Join(dataDir, "badger"))

	// Config file path
	if configPath == "" {
		configPath = filepath.Join(dataDir, "meditrack.yaml")
	}

	// If config file exists, load it
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (MEDITRACK_SERVER_PORT, MEDITRACK_SECURITY_JWT_SECRET, etc.)
	v.SetEnvPrefix("MEDITRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal to struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	// Validate
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	// Report defaults
	v.SetDefault("reports.default_days", 30)

	// Cron defaults
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.low_stock_schedule", "0 9 * * *")
	v.SetDefault("cron.rollover_schedule", "5 0 * * *")

	// Security defaults
	v.SetDefault("security.allow_origins", []string{"*"})
}

func getDefaultDataDir() string {
	// Try XDG_DATA_HOME first
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "meditrack")
	}

	// Fall back to home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "meditrack")
}

// loadEnvOverrides loads specific env vars that Viper doesn't map onto nested structs
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	// Server settings
	cfg.Server.Address = getEnv("MEDITRACK_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("MEDITRACK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	// Storage settings
	if dir := ResolveEnvWithAliases("MEDITRACK_STORAGE_DATA_DIR"); dir != "" {
		cfg.Storage.DataDir = dir
	}

	// Security settings
	if secret := ResolveEnvWithAliases("MEDITRACK_SECURITY_JWT_SECRET"); secret != "" {
		cfg.Security.JWTSecret = secret
	}
	if password := ResolveEnvWithAliases("MEDITRACK_SECURITY_ADMIN_PASSWORD"); password != "" {
		cfg.Security.AdminPassword = password
	}

	// Report settings
	if days := os.Getenv("MEDITRACK_REPORTS_DEFAULT_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil && d > 0 {
			cfg.Reports.DefaultDays = d
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Reports.DefaultDays <= 0 {
		return fmt.Errorf("reports.default_days must be positive")
	}

	// Generate JWT secret if not provided
	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = generateRandomString(32)
	}

	return nil
}

func generateRandomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random secret: %v", err))
	}
	return hex.EncodeToString(b)[:n]
}
