package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Backend      Backend      `mapstructure:"backend"`
	Polling      Polling      `mapstructure:"polling"`
	Notification Notification `mapstructure:"notification"`
	Logger       Logger       `mapstructure:"logger"`
	Server       Server       `mapstructure:"server"`
	Database     Database     `mapstructure:"database"`
}

// Backend holds the configuration for the bot-control backend API.
type Backend struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	MaxRetries     int           `mapstructure:"max_retries"`
	Resources      []string      `mapstructure:"resources"`
}

// Polling holds the refresh interval of every polled collection.
// A zero interval disables the corresponding poller.
type Polling struct {
	Trades    time.Duration `mapstructure:"trades"`
	Pipelines time.Duration `mapstructure:"pipelines"`
	Positions time.Duration `mapstructure:"positions"`
	Prices    time.Duration `mapstructure:"prices"`
	Balances  time.Duration `mapstructure:"balances"`
}

// Notification holds the configuration for transient status messages.
type Notification struct {
	DisplayDuration time.Duration `mapstructure:"display_duration"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the snapshot cache.
type Database struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory, if present, is loaded into the
// environment first so that it can override file values.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	err = v.ReadInConfig()
	if err != nil {
		return
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", "http://localhost:5000/api")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.rate_limit", 10) // requests per second
	v.SetDefault("backend.rate_limit_burst", 5)
	v.SetDefault("backend.max_retries", 3)
	v.SetDefault("backend.resources", []string{"symbols", "strategies", "candleSizes", "exchanges"})

	v.SetDefault("polling.trades", time.Minute)
	v.SetDefault("polling.pipelines", time.Minute)
	v.SetDefault("polling.positions", 30*time.Second)
	v.SetDefault("polling.prices", 15*time.Second)
	v.SetDefault("polling.balances", 5*time.Minute)

	v.SetDefault("notification.display_duration", 4200*time.Millisecond)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.dsn", "dashboard.db")
}
