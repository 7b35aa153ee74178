package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from defaults,
// then an optional YAML file (CONFIG_FILE), then environment variables.
type Config struct {
	// Server
	Port           string `yaml:"port"`
	AppName        string `yaml:"app_name"`
	FrontendURL    string `yaml:"frontend_url"`
	AllowedOrigins string `yaml:"allowed_origins"`

	// Persistence
	DatabaseURL       string `yaml:"database_url"` // empty = SQLite only
	SQLitePath        string `yaml:"sqlite_path"`
	ShortlistTTLHours int    `yaml:"shortlist_ttl_hours"`

	// Listings
	DataCSVPath     string        `yaml:"data_csv_path"`
	UseRealtimeData bool          `yaml:"use_realtime_data"`
	FallbackToCSV   bool          `yaml:"fallback_to_csv"`
	RefreshInterval time.Duration `yaml:"refresh_interval"` // 0 = load once
	RefreshTimeout  time.Duration `yaml:"refresh_timeout"`

	// PropertyFinder via RapidAPI
	RapidAPIKey          string `yaml:"rapidapi_key"`
	RapidAPIHost         string `yaml:"rapidapi_host"`
	RapidAPIEndpoint     string `yaml:"rapidapi_endpoint"`
	RapidAPIMaxResults   int    `yaml:"rapidapi_max_results"`
	RapidAPIPages        int    `yaml:"rapidapi_pages"`
	RapidAPICacheMinutes int    `yaml:"rapidapi_cache_minutes"`
	CacheDir             string `yaml:"cache_dir"` // empty = in-memory cache

	// Narration: ollama | openai | none
	Narrator         string        `yaml:"narrator"`
	NarrationTimeout time.Duration `yaml:"narration_timeout"`

	OllamaChatURL   string `yaml:"ollama_chat_url"`
	OllamaChatModel string `yaml:"ollama_chat_model"`
	OllamaChatToken string `yaml:"ollama_chat_token"` // Bearer token for Ollama Cloud (empty = local)

	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`

	// Lead events
	RabbitMQURL      string `yaml:"rabbitmq_url"` // empty = log only
	RabbitMQExchange string `yaml:"rabbitmq_exchange"`

	// JWT
	JWTSecret     string `yaml:"jwt_secret"`
	JWTIssuer     string `yaml:"jwt_issuer"`
	JWTExpiration int    `yaml:"jwt_expiration_hours"`

	// MCP
	MCPEnabled bool   `yaml:"mcp_enabled"`
	MCPPort    string `yaml:"mcp_port"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json | text | color
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:        "8000",
		AppName:     "Property Search",
		FrontendURL: "http://localhost:3000",

		SQLitePath:        "data/propsearch.db",
		ShortlistTTLHours: 24 * 30,

		DataCSVPath:    "data/properties.csv",
		FallbackToCSV:  true,
		RefreshTimeout: 2 * time.Minute,

		RapidAPIHost:         "uae-real-estate-api-propertyfinder-ae-data.p.rapidapi.com",
		RapidAPIEndpoint:     "/properties",
		RapidAPIMaxResults:   50,
		RapidAPIPages:        2,
		RapidAPICacheMinutes: 30,

		Narrator:         "none",
		NarrationTimeout: 15 * time.Second,

		OllamaChatURL:   "http://localhost:11434",
		OllamaChatModel: "qwen3",

		OpenAIBaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		OpenAIModel:   "gemini-2.0-flash",

		RabbitMQExchange: "leads",

		JWTSecret:     "change-me-in-production",
		JWTIssuer:     "property-search",
		JWTExpiration: 24,

		MCPEnabled: false,
		MCPPort:    "8002",

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads CONFIG_FILE (if set) over the defaults and applies environment overrides.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOrDefault("PORT", c.Port)
	c.AppName = envOrDefault("APP_NAME", c.AppName)
	c.FrontendURL = envOrDefault("FRONTEND_URL", c.FrontendURL)
	c.AllowedOrigins = envOrDefault("ALLOWED_ORIGINS", c.AllowedOrigins)

	c.DatabaseURL = envOrDefault("DATABASE_URL", c.DatabaseURL)
	c.SQLitePath = envOrDefault("SQLITE_PATH", c.SQLitePath)
	c.ShortlistTTLHours = envOrDefaultInt("SHORTLIST_TTL_HOURS", c.ShortlistTTLHours)

	c.DataCSVPath = envOrDefault("DATA_CSV_PATH", c.DataCSVPath)
	c.UseRealtimeData = envOrDefaultBool("USE_REALTIME_DATA", c.UseRealtimeData)
	c.FallbackToCSV = envOrDefaultBool("FALLBACK_TO_CSV", c.FallbackToCSV)
	c.RefreshInterval = envOrDefaultDuration("REFRESH_INTERVAL", c.RefreshInterval)
	c.RefreshTimeout = envOrDefaultDuration("REFRESH_TIMEOUT", c.RefreshTimeout)

	c.RapidAPIKey = envOrDefault("RAPIDAPI_KEY", c.RapidAPIKey)
	c.RapidAPIHost = envOrDefault("RAPIDAPI_HOST", c.RapidAPIHost)
	c.RapidAPIEndpoint = envOrDefault("RAPIDAPI_ENDPOINT", c.RapidAPIEndpoint)
	c.RapidAPIMaxResults = envOrDefaultInt("RAPIDAPI_MAX_RESULTS", c.RapidAPIMaxResults)
	c.RapidAPIPages = envOrDefaultInt("RAPIDAPI_PAGES", c.RapidAPIPages)
	c.RapidAPICacheMinutes = envOrDefaultInt("RAPIDAPI_CACHE_MINUTES", c.RapidAPICacheMinutes)
	c.CacheDir = envOrDefault("CACHE_DIR", c.CacheDir)

	c.Narrator = strings.ToLower(envOrDefault("NARRATOR", c.Narrator))
	c.NarrationTimeout = envOrDefaultDuration("NARRATION_TIMEOUT", c.NarrationTimeout)
	c.OllamaChatURL = envOrDefault("OLLAMA_CHAT_URL", envOrDefault("OLLAMA_BASE_URL", c.OllamaChatURL))
	c.OllamaChatModel = envOrDefault("OLLAMA_CHAT_MODEL", c.OllamaChatModel)
	c.OllamaChatToken = envOrDefault("OLLAMA_CHAT_TOKEN", c.OllamaChatToken)
	c.OpenAIBaseURL = envOrDefault("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIModel = envOrDefault("OPENAI_MODEL", c.OpenAIModel)
	c.OpenAIAPIKey = envOrDefault("OPENAI_API_KEY", envOrDefault("GEMINI_API_KEY", c.OpenAIAPIKey))

	c.RabbitMQURL = envOrDefault("RABBITMQ_URL", c.RabbitMQURL)
	c.RabbitMQExchange = envOrDefault("RABBITMQ_EXCHANGE", c.RabbitMQExchange)

	c.JWTSecret = envOrDefault("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = envOrDefault("JWT_ISSUER", c.JWTIssuer)
	c.JWTExpiration = envOrDefaultInt("JWT_EXPIRATION_HOURS", c.JWTExpiration)

	c.MCPEnabled = envOrDefaultBool("MCP_ENABLED", c.MCPEnabled)
	c.MCPPort = envOrDefault("MCP_PORT", c.MCPPort)

	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOrDefault("LOG_FORMAT", c.LogFormat)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Narrator {
	case "ollama", "openai", "none":
	default:
		return fmt.Errorf("invalid NARRATOR %q: want ollama, openai or none", c.Narrator)
	}
	if c.RapidAPIPages < 1 || c.RapidAPIMaxResults < 1 {
		return fmt.Errorf("RAPIDAPI_PAGES and RAPIDAPI_MAX_RESULTS must be positive")
	}
	if c.RefreshInterval < 0 || c.NarrationTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// Origins returns the CORS allow-list: ALLOWED_ORIGINS if set, else the frontend URL.
func (c *Config) Origins() []string {
	raw := c.AllowedOrigins
	if raw == "" {
		raw = c.FrontendURL
	}
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ShortlistTTL is the shortlist lifetime; zero disables expiry.
func (c *Config) ShortlistTTL() time.Duration {
	return time.Duration(c.ShortlistTTLHours) * time.Hour
}

// CacheTTL is the freshness window for cached API pages.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.RapidAPICacheMinutes) * time.Minute
}

// DSN returns the database URL with the password masked, for logging.
func (c *Config) DSN() string {
	if c.DatabaseURL == "" {
		return ""
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envOrDefaultDuration accepts Go durations ("90s") or plain seconds ("90").
func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
