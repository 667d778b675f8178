package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Configuration struct {
	ApiPort  string `json:"api_port" mapstructure:"api_port"`
	LogPath  string `json:"log_path" mapstructure:"log_path"`
	LogLevel string `json:"log_level" mapstructure:"log_level"`

	Database string `json:"database" mapstructure:"database"` // "sqlite3", "postgres" or "memory"
	DbHost   string `json:"db_host" mapstructure:"db_host"`
	DbPort   string `json:"db_port" mapstructure:"db_port"`
	DbUser   string `json:"db_user" mapstructure:"db_user"`
	DbName   string `json:"db_name" mapstructure:"db_name"`
	DbPass   string `json:"db_pass" mapstructure:"db_pass"`
	DbPath   string `json:"db_path" mapstructure:"db_path"`
	DbDebug  bool   `json:"db_debug" mapstructure:"db_debug"`

	Security struct {
		AdminKey   string `json:"admin_key" mapstructure:"admin_key"`
		TokenBytes int    `json:"token_bytes" mapstructure:"token_bytes"`
	} `json:"security" mapstructure:"security"`

	CORS struct {
		AllowOrigins []string `json:"allow_origins" mapstructure:"allow_origins"`
	} `json:"cors" mapstructure:"cors"`

	RateLimit struct {
		PerMinute int `json:"per_minute" mapstructure:"per_minute"`
	} `json:"rate_limit" mapstructure:"rate_limit"`

	Summary struct {
		WorkerEnabled         bool   `json:"worker_enabled" mapstructure:"worker_enabled"`
		WorkerIntervalSeconds int    `json:"worker_interval_seconds" mapstructure:"worker_interval_seconds"`
		WorkerConcurrency     int    `json:"worker_concurrency" mapstructure:"worker_concurrency"`
		SampleSize            int    `json:"sample_size" mapstructure:"sample_size"`
		TimeoutSeconds        int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
		DefaultModel          string `json:"default_model" mapstructure:"default_model"`
		PromptVersion         int    `json:"prompt_version" mapstructure:"prompt_version"`
		Provider              string `json:"provider" mapstructure:"provider"` // "openai" or "corpus"
	} `json:"summary" mapstructure:"summary"`

	OpenAI struct {
		ApiKey       string `json:"api_key" mapstructure:"api_key"`
		BaseURL      string `json:"base_url" mapstructure:"base_url"`
		Model        string `json:"model" mapstructure:"model"`
		SystemPrompt string `json:"system_prompt" mapstructure:"system_prompt"`
	} `json:"openai" mapstructure:"openai"`
}

// WorkerInterval is the summary worker tick.
func (c Configuration) WorkerInterval() time.Duration {
	return time.Duration(c.Summary.WorkerIntervalSeconds) * time.Second
}

// SummaryTimeout bounds one summarizer call.
func (c Configuration) SummaryTimeout() time.Duration {
	return time.Duration(c.Summary.TimeoutSeconds) * time.Second
}

const envPrefix = "FEEDBACK360"

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_port", "8080")
	v.SetDefault("log_path", "logs/server.log")
	v.SetDefault("log_level", "info")
	v.SetDefault("database", "sqlite3")
	v.SetDefault("db_path", "db/database.db")

	v.SetDefault("security.token_bytes", 24)

	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("rate_limit.per_minute", 60)

	v.SetDefault("summary.worker_enabled", true)
	v.SetDefault("summary.worker_interval_seconds", 15)
	v.SetDefault("summary.worker_concurrency", 2)
	v.SetDefault("summary.sample_size", 3)
	v.SetDefault("summary.timeout_seconds", 60)
	v.SetDefault("summary.default_model", "gpt-4.1-mini")
	v.SetDefault("summary.prompt_version", 1)
	v.SetDefault("summary.provider", "corpus")

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4.1-mini")
	v.SetDefault("openai.system_prompt", "You summarize 360-degree feedback about one employee. Be factual, balanced and concise.")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("security.admin_key", "")
}

// Load reads the JSON config at path (if present) and applies
// FEEDBACK360_* environment overrides, e.g. FEEDBACK360_SUMMARY_PROVIDER.
func Load(path string) (Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Configuration{}, err
			}
		}
	}

	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return Configuration{}, err
	}
	normalize(&c)
	return c, nil
}

// Get is Load for main: a broken config file is fatal.
func Get(path string) Configuration {
	c, err := Load(path)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

// normalize repairs values set to zero or out of range explicitly.
func normalize(c *Configuration) {
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.Security.TokenBytes < 16 {
		c.Security.TokenBytes = 24
	}
	if c.Summary.WorkerIntervalSeconds <= 0 {
		c.Summary.WorkerIntervalSeconds = 15
	}
	if c.Summary.WorkerConcurrency <= 0 {
		c.Summary.WorkerConcurrency = 1
	}
	if c.Summary.SampleSize <= 0 {
		c.Summary.SampleSize = 3
	}
	if c.Summary.TimeoutSeconds <= 0 {
		c.Summary.TimeoutSeconds = 60
	}
	c.Summary.Provider = strings.ToLower(strings.TrimSpace(c.Summary.Provider))
	if c.Summary.Provider == "" {
		c.Summary.Provider = "corpus"
	}
}
