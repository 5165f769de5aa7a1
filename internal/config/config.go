package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
	} `yaml:"server"`

	Workers struct {
		PoolSize   int           `yaml:"pool_size" default:"5"`
		Timeout    time.Duration `yaml:"timeout" default:"30s"` // per application attempt
		MaxRetries int           `yaml:"max_retries" default:"1"`
	} `yaml:"workers"`

	BackgroundTasks struct {
		MaxConcurrentTasks int           `yaml:"max_concurrent_tasks" default:"50"`
		TaskTimeout        time.Duration `yaml:"task_timeout" default:"300s"`
		CleanupInterval    time.Duration `yaml:"cleanup_interval" default:"1h"`
		MaxTaskAge         time.Duration `yaml:"max_task_age" default:"24h"`
	} `yaml:"background_tasks"`

	Sources struct {
		Enabled            []string          `yaml:"enabled"` // empty means all registered sources
		RequestTimeout     time.Duration     `yaml:"request_timeout" default:"15s"`
		MinRequestInterval time.Duration     `yaml:"min_request_interval" default:"1s"`
		MaxPerSource       int               `yaml:"max_per_source" default:"100"`
		UserAgent          string            `yaml:"user_agent"`
		BaseURLs           map[string]string `yaml:"base_urls"` // per-source override, test seam
	} `yaml:"sources"`

	Enrich struct {
		Enabled      bool          `yaml:"enabled" default:"true"`
		BaseURL      string        `yaml:"base_url" default:"https://autocomplete.clearbit.com"`
		Timeout      time.Duration `yaml:"timeout" default:"5s"`
		MaxCompanies int           `yaml:"max_companies" default:"25"`
	} `yaml:"enrich"`

	Matcher struct {
		Provider        string  `yaml:"provider" default:"local"` // "local" or "gemini"
		APIKey          string  `yaml:"api_key"`
		Model           string  `yaml:"model" default:"gemini-embedding-001"`
		KeywordBonusCap float64 `yaml:"keyword_bonus_cap" default:"25"`
	} `yaml:"matcher"`

	LLM struct {
		Provider    string        `yaml:"provider" default:"claude"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model" default:"claude-3-haiku-20240307"`
		MaxTokens   int           `yaml:"max_tokens" default:"4096"`
		Temperature float32       `yaml:"temperature" default:"0.1"`
		Timeout     time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"llm"`

	Automation struct {
		Sources           []string      `yaml:"sources"` // boards with direct form-fill support
		HeadlessMode      bool          `yaml:"headless_mode" default:"true"`
		StealthMode       bool          `yaml:"stealth_mode" default:"true"`
		UserAgent         string        `yaml:"user_agent"`
		NavigationTimeout time.Duration `yaml:"navigation_timeout" default:"25s"`
	} `yaml:"automation"`

	Database struct {
		URL string `yaml:"url"` // empty means in-memory repository
	} `yaml:"database"`

	Redis struct {
		URL      string        `yaml:"url"` // empty means in-memory locks
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
		LockTTL  time.Duration `yaml:"lock_ttl" default:"60s"`
	} `yaml:"redis"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	// Expand ${VAR} syntax
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	// Expand $VAR syntax (but avoid replacing ${VAR} that was already processed)
	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}

	// Set defaults
	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second

	config.Workers.PoolSize = 5
	config.Workers.Timeout = 30 * time.Second
	config.Workers.MaxRetries = 1

	config.BackgroundTasks.MaxConcurrentTasks = 50
	config.BackgroundTasks.TaskTimeout = 300 * time.Second
	config.BackgroundTasks.CleanupInterval = 1 * time.Hour
	config.BackgroundTasks.MaxTaskAge = 24 * time.Hour

	config.Sources.RequestTimeout = 15 * time.Second
	config.Sources.MinRequestInterval = 1 * time.Second
	config.Sources.MaxPerSource = 100
	config.Sources.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	config.Enrich.Enabled = true
	config.Enrich.BaseURL = "https://autocomplete.clearbit.com"
	config.Enrich.Timeout = 5 * time.Second
	config.Enrich.MaxCompanies = 25

	config.Matcher.Provider = "local"
	config.Matcher.Model = "gemini-embedding-001"
	config.Matcher.KeywordBonusCap = 25

	config.LLM.Provider = "claude"
	config.LLM.Model = "claude-3-haiku-20240307"
	config.LLM.MaxTokens = 4096
	config.LLM.Temperature = 0.1
	config.LLM.Timeout = 30 * time.Second

	config.Automation.HeadlessMode = true
	config.Automation.StealthMode = true
	config.Automation.NavigationTimeout = 25 * time.Second

	config.Redis.DB = 0
	config.Redis.Timeout = 5 * time.Second
	config.Redis.LockTTL = 60 * time.Second

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			// Expand environment variables in the YAML content
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if poolSize := os.Getenv("WORKER_POOL_SIZE"); poolSize != "" {
		if size, err := strconv.Atoi(poolSize); err == nil && size > 0 {
			c.Workers.PoolSize = size
		}
	}

	if maxRetries := os.Getenv("WORKER_MAX_RETRIES"); maxRetries != "" {
		if retries, err := strconv.Atoi(maxRetries); err == nil && retries >= 0 {
			c.Workers.MaxRetries = retries
		}
	}

	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		c.LLM.APIKey = apiKey
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}

	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		c.Matcher.APIKey = apiKey
		c.Matcher.Provider = "gemini"
	}

	if provider := os.Getenv("MATCHER_PROVIDER"); provider != "" {
		c.Matcher.Provider = provider
	}

	if model := os.Getenv("MATCHER_MODEL"); model != "" {
		c.Matcher.Model = model
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		c.Database.URL = databaseURL
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if redisTimeout := os.Getenv("REDIS_TIMEOUT"); redisTimeout != "" {
		if timeout, err := time.ParseDuration(redisTimeout); err == nil {
			c.Redis.Timeout = timeout
		}
	}

	if enrichEnabled := os.Getenv("ENRICH_ENABLED"); enrichEnabled != "" {
		c.Enrich.Enabled = enrichEnabled == "true" || enrichEnabled == "1"
	}

	if requestTimeout := os.Getenv("SOURCE_REQUEST_TIMEOUT"); requestTimeout != "" {
		if timeout, err := time.ParseDuration(requestTimeout); err == nil {
			c.Sources.RequestTimeout = timeout
		}
	}

	if interval := os.Getenv("SOURCE_MIN_REQUEST_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			c.Sources.MinRequestInterval = d
		}
	}
}

// SourceBaseURL returns the configured base URL override for a source, or ""
func (c *Config) SourceBaseURL(source string) string {
	if c.Sources.BaseURLs == nil {
		return ""
	}
	return c.Sources.BaseURLs[source]
}
