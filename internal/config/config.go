package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Sink     SinkConfig
	Database DatabaseConfig
	Supabase SupabaseConfig
	Redis    RedisConfig
	Agent    AgentConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       float64
	RateBurst       int
	AllowedOrigins  []string
}

type ScraperConfig struct {
	SourcesDir   string
	MaxSessions  int
	WaitTimeout  time.Duration
	StepPause    time.Duration
	BatchPersist bool
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	TimezoneID     string
}

type SinkConfig struct {
	Backend string
	File    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	Table    string
}

type SupabaseConfig struct {
	URL   string
	Key   string
	Table string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type AgentConfig struct {
	SearchURL  string
	MaxResults int
	TypeDelay  time.Duration
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

const (
	SinkPostgres = "postgres"
	SinkSupabase = "supabase"
	SinkFile     = "file"
)

// envFiles are read before the environment. Variables already set win.
var envFiles = []string{".env"}

func Load() (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvInt("PORT", 8000),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimit:       getEnvFloat("API_RATE_LIMIT", 2),
			RateBurst:       getEnvInt("API_RATE_BURST", 5),
			AllowedOrigins:  getEnvSlice("API_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://localhost:*"}),
		},
		Scraper: ScraperConfig{
			SourcesDir:   getEnv("SOURCES_DIR", "./sources"),
			MaxSessions:  getEnvInt("SCRAPER_MAX_SESSIONS", 4),
			WaitTimeout:  getEnvDuration("SCRAPER_WAIT_TIMEOUT", 10*time.Second),
			StepPause:    getEnvDuration("SCRAPER_STEP_PAUSE", 500*time.Millisecond),
			BatchPersist: getEnvBool("SCRAPER_BATCH_PERSIST", false),
		},
		Browser: BrowserConfig{
			Headless:       getEnvBool("BROWSER_HEADLESS", true),
			Timeout:        getEnvDuration("BROWSER_TIMEOUT", 30*time.Second),
			UserAgent:      getEnv("BROWSER_USER_AGENT", defaultUserAgent),
			ViewportWidth:  getEnvInt("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getEnvInt("BROWSER_VIEWPORT_HEIGHT", 1080),
			Locale:         getEnv("BROWSER_LOCALE", "en-US"),
			TimezoneID:     getEnv("BROWSER_TIMEZONE", "America/New_York"),
		},
		Sink: SinkConfig{
			Backend: strings.ToLower(getEnv("SINK_BACKEND", SinkPostgres)),
			File:    getEnv("SINK_FILE", "./rates.json"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "mortgage_rates"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			Table:    getEnv("DB_TABLE", "mortgage_rates"),
		},
		Supabase: SupabaseConfig{
			URL:   getEnv("SUPABASE_URL", ""),
			Key:   getEnv("SUPABASE_KEY", ""),
			Table: getEnv("SUPABASE_TABLE", "mortgage_rates"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Stream:   getEnv("REDIS_STREAM", "stream:mortgage_rates"),
		},
		Agent: AgentConfig{
			SearchURL:  getEnv("AGENT_SEARCH_URL", "https://www.google.com"),
			MaxResults: getEnvInt("AGENT_MAX_RESULTS", 5),
			TypeDelay:  getEnvDuration("AGENT_TYPE_DELAY", 100*time.Millisecond),
			LLMBaseURL: getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			LLMAPIKey:  getEnv("LLM_API_KEY", ""),
			LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Scraper.MaxSessions < 1 {
		return fmt.Errorf("SCRAPER_MAX_SESSIONS must be at least 1")
	}

	if c.Scraper.WaitTimeout <= 0 {
		return fmt.Errorf("SCRAPER_WAIT_TIMEOUT must be positive")
	}

	if c.Scraper.SourcesDir == "" {
		return fmt.Errorf("SOURCES_DIR is required")
	}

	switch c.Sink.Backend {
	case SinkPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database host and name are required for the postgres sink")
		}
		if c.Database.Table == "" {
			return fmt.Errorf("DB_TABLE is required for the postgres sink")
		}
	case SinkSupabase:
		// credentials are checked when the sink is constructed
	case SinkFile:
		if c.Sink.File == "" {
			return fmt.Errorf("SINK_FILE is required for the file sink")
		}
	default:
		return fmt.Errorf("unknown SINK_BACKEND %q", c.Sink.Backend)
	}

	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("API_RATE_LIMIT and API_RATE_BURST cannot be negative")
	}

	return nil
}

// DSN builds the pgx connection string for the database section.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

func loadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
