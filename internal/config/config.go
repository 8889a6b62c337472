// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerPort                = 8080
	defaultServerHost                = "0.0.0.0"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = 30 * time.Second
	defaultDatabasePath              = "./data/cuepoint.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	defaultDatabaseEnableWAL         = true
	defaultScheduleURL               = "http://localhost:8081/vmap"
	defaultScheduleInterval          = 300
	defaultAdRequestTimeout          = 10 * time.Second
	defaultBreakDuration             = 30.0
	defaultSkipOffset                = 5.0
	defaultPlaybackMode              = "content_relative"
	defaultTouchInterval             = 30 * time.Second
	defaultStaleAfter                = 2 * time.Minute
	defaultJournalRetention          = 24 * time.Hour
	defaultCleanupInterval           = time.Minute
	defaultPixelTimeout              = 3 * time.Second
	defaultCueDriftTolerance         = 1.0
	envPrefix                        = "CUEPOINT"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	AdServer AdServerConfig
	Playback PlaybackConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Path              string
	ConnectionTimeout time.Duration
	EnableWAL         bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// AdServerConfig holds ad server endpoints and scheduling defaults.
// DefaultBreakDuration and DefaultSkipOffset apply to every break until its
// ad metadata resolves.
type AdServerConfig struct {
	ScheduleURL          string
	ScheduleInterval     int
	RequestTimeout       time.Duration
	DefaultBreakDuration float64
	DefaultSkipOffset    float64
}

// PlaybackConfig holds session lifecycle and tracking configuration
type PlaybackConfig struct {
	DefaultMode       string
	TouchInterval     time.Duration
	StaleAfter        time.Duration
	JournalRetention  time.Duration
	CleanupInterval   time.Duration
	PixelTimeout      time.Duration
	CueDriftTolerance float64
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// Load .env file if present (optional, won't error if missing)
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cuepoint")

	// Environment variable settings
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	// Database defaults
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)
	v.SetDefault("database.enablewal", defaultDatabaseEnableWAL)

	// Logging defaults
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	// Ad server defaults
	v.SetDefault("adserver.scheduleurl", defaultScheduleURL)
	v.SetDefault("adserver.scheduleinterval", defaultScheduleInterval)
	v.SetDefault("adserver.requesttimeout", defaultAdRequestTimeout)
	v.SetDefault("adserver.defaultbreakduration", defaultBreakDuration)
	v.SetDefault("adserver.defaultskipoffset", defaultSkipOffset)

	// Playback defaults
	v.SetDefault("playback.defaultmode", defaultPlaybackMode)
	v.SetDefault("playback.touchinterval", defaultTouchInterval)
	v.SetDefault("playback.staleafter", defaultStaleAfter)
	v.SetDefault("playback.journalretention", defaultJournalRetention)
	v.SetDefault("playback.cleanupinterval", defaultCleanupInterval)
	v.SetDefault("playback.pixeltimeout", defaultPixelTimeout)
	v.SetDefault("playback.cuedrifttolerance", defaultCueDriftTolerance)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	// Validate server port
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}

	// Validate timeout durations
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	// Validate ad server settings
	if c.AdServer.ScheduleURL == "" {
		return fmt.Errorf("ad server schedule URL must not be empty")
	}
	if c.AdServer.ScheduleInterval <= 0 {
		return fmt.Errorf("invalid schedule interval: %d (must be > 0)", c.AdServer.ScheduleInterval)
	}
	if c.AdServer.RequestTimeout <= 0 {
		return fmt.Errorf("invalid ad request timeout: %v (must be > 0)", c.AdServer.RequestTimeout)
	}
	if c.AdServer.DefaultBreakDuration <= 0 {
		return fmt.Errorf("invalid default break duration: %v (must be > 0)", c.AdServer.DefaultBreakDuration)
	}
	if c.AdServer.DefaultSkipOffset < 0 {
		return fmt.Errorf("invalid default skip offset: %v (must be >= 0)", c.AdServer.DefaultSkipOffset)
	}

	// Validate playback settings
	validModes := []string{"content_relative", "stream_relative"}
	if !contains(validModes, c.Playback.DefaultMode) {
		return fmt.Errorf("invalid default playback mode: %s (must be one of: %s)", c.Playback.DefaultMode, strings.Join(validModes, ", "))
	}
	if c.Playback.TouchInterval <= 0 {
		return fmt.Errorf("invalid touch interval: %v (must be > 0)", c.Playback.TouchInterval)
	}
	if c.Playback.StaleAfter <= 0 {
		return fmt.Errorf("invalid stale-after window: %v (must be > 0)", c.Playback.StaleAfter)
	}
	if c.Playback.JournalRetention <= 0 {
		return fmt.Errorf("invalid journal retention: %v (must be > 0)", c.Playback.JournalRetention)
	}
	if c.Playback.CleanupInterval <= 0 {
		return fmt.Errorf("invalid cleanup interval: %v (must be > 0)", c.Playback.CleanupInterval)
	}
	if c.Playback.PixelTimeout <= 0 {
		return fmt.Errorf("invalid pixel timeout: %v (must be > 0)", c.Playback.PixelTimeout)
	}
	if c.Playback.CueDriftTolerance <= 0 {
		return fmt.Errorf("invalid cue drift tolerance: %v (must be > 0)", c.Playback.CueDriftTolerance)
	}

	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
