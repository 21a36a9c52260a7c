package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the stock research service.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Engine  EngineConfig  `mapstructure:"engine"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Tools   ToolsConfig   `mapstructure:"tools"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// EngineConfig bounds the workflow loop.
type EngineConfig struct {
	MaxIterations       int           `mapstructure:"max_iterations"`
	MaxObservationChars int           `mapstructure:"max_observation_chars"`
	ModelTimeout        time.Duration `mapstructure:"model_timeout"`
	ToolTimeout         time.Duration `mapstructure:"tool_timeout"`
	ReviewEnabled       bool          `mapstructure:"review_enabled"`
	SentinelFirst       bool          `mapstructure:"sentinel_first"`
}

func (e EngineConfig) Validate() error {
	if e.MaxIterations <= 0 {
		return fmt.Errorf("engine.max_iterations must be > 0")
	}
	if e.MaxObservationChars <= 0 {
		return fmt.Errorf("engine.max_observation_chars must be > 0")
	}
	return nil
}

// LLMConfig contains model provider configurations. Providers speak the
// OpenAI-compatible chat completions API; routing picks which provider serves
// which role.
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single model endpoint configuration.
type LLMProvider struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LLMRoutingConfig assigns providers to engine roles. Reasoning and review
// must be independent model identities.
type LLMRoutingConfig struct {
	Reasoning string `mapstructure:"reasoning"`
	Review    string `mapstructure:"review"`
}

func (l LLMConfig) Provider(name string) (LLMProvider, error) {
	p, ok := l.Providers[name]
	if !ok {
		return LLMProvider{}, fmt.Errorf("llm provider %q not configured", name)
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return LLMProvider{}, fmt.Errorf("llm provider %q has no api_key", name)
	}
	return p, nil
}

// ToolsConfig carries API keys for the market data providers.
type ToolsConfig struct {
	FinnhubAPIKey      string `mapstructure:"finnhub_api_key"`
	AlphaVantageAPIKey string `mapstructure:"alphavantage_api_key"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig describes the checkpoint database. URL wins over the
// individual fields when set.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a Postgres connection string.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig describes the optional dashboard cache. An empty Addr disables
// caching.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DashboardTTL time.Duration `mapstructure:"dashboard_ttl"`
}

// LoadConfig reads configuration from the given file, or searches the usual
// locations when path is empty. Environment variables with the STOCKPILOT_
// prefix override file values.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("server.address", ":10002")
	viper.SetDefault("engine.max_iterations", 5)
	viper.SetDefault("engine.max_observation_chars", 2000)
	viper.SetDefault("engine.model_timeout", "60s")
	viper.SetDefault("engine.tool_timeout", "30s")
	viper.SetDefault("engine.review_enabled", true)
	viper.SetDefault("engine.sentinel_first", false)
	viper.SetDefault("llm.routing.reasoning", "groq")
	viper.SetDefault("llm.routing.review", "gemini")
	viper.SetDefault("storage.redis.dashboard_ttl", "60s")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("STOCKPILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	// API keys usually arrive through the environment rather than the file.
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		config.Tools.FinnhubAPIKey = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		config.Tools.AlphaVantageAPIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.Storage.Postgres.URL = v
	}

	if err := config.Engine.Validate(); err != nil {
		panic(err)
	}
	return &config
}
