package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production, test

	// Briefing core
	Briefing BriefingConfig

	// Archive
	Archive ArchiveConfig

	// Database (archive backend = postgres)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	KIS     KISConfig
	Yahoo   YahooConfig
	Naver   NaverConfig
	RSS     RSSConfig
	Threads ThreadsConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	TracingEnabled bool
}

// BriefingConfig holds the acquisition pipeline settings
type BriefingConfig struct {
	Timezone           string        // 기준 시간대 (호스트 시간대와 무관)
	RunBudget          time.Duration // 전체 실행 예산
	AdapterTimeout     time.Duration // 종목별 조회 타임아웃
	Workers            int
	MinDomestic        int
	MinInternational   int
	UniverseFile       string // 비어 있으면 내장 유니버스 사용
	TransportRetries   int
	TransportRetryWait time.Duration
	DryRun             bool
}

// ArchiveConfig holds snapshot archive settings
type ArchiveConfig struct {
	Backend       string // file, postgres
	Dir           string
	RetentionDays int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// KISConfig holds KIS (한국투자증권) API configuration
type KISConfig struct {
	AppKey    string
	AppSecret string
	BaseURL   string
	IsVirtual bool // 모의투자 여부
}

// Configured reports whether credentials are present
func (k KISConfig) Configured() bool {
	return k.AppKey != "" && k.AppSecret != ""
}

// YahooConfig holds Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL string
}

// NaverConfig holds Naver Finance configuration
type NaverConfig struct {
	BaseURL string
}

// RSSConfig holds international headline feeds
type RSSConfig struct {
	Feeds []string
}

// ThreadsConfig holds Threads publishing configuration
type ThreadsConfig struct {
	AccessToken string
	UserID      string
	BaseURL     string
}

// Configured reports whether a real post can be made
func (t ThreadsConfig) Configured() bool {
	return t.AccessToken != "" && t.UserID != ""
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("API_PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Briefing: BriefingConfig{
			Timezone:           getEnv("BRIEFING_TIMEZONE", "Asia/Seoul"),
			RunBudget:          getEnvAsDuration("BRIEFING_RUN_BUDGET", "45s"),
			AdapterTimeout:     getEnvAsDuration("BRIEFING_ADAPTER_TIMEOUT", "5s"),
			Workers:            getEnvAsInt("BRIEFING_WORKERS", 4),
			MinDomestic:        getEnvAsInt("BRIEFING_MIN_DOMESTIC", 2),
			MinInternational:   getEnvAsInt("BRIEFING_MIN_INTERNATIONAL", 2),
			UniverseFile:       getEnv("BRIEFING_UNIVERSE_FILE", ""),
			TransportRetries:   getEnvAsInt("BRIEFING_TRANSPORT_RETRIES", 1),
			TransportRetryWait: getEnvAsDuration("BRIEFING_TRANSPORT_RETRY_WAIT", "200ms"),
			DryRun:             getEnvAsBool("BRIEFING_DRY_RUN", false),
		},

		Archive: ArchiveConfig{
			Backend:       getEnv("ARCHIVE_BACKEND", "file"),
			Dir:           getEnv("ARCHIVE_DIR", "market_data"),
			RetentionDays: getEnvAsInt("ARCHIVE_RETENTION_DAYS", 30),
		},

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// External APIs
		KIS: KISConfig{
			AppKey:    getEnv("KIS_APP_KEY", ""),
			AppSecret: getEnv("KIS_APP_SECRET", ""),
			BaseURL:   getEnv("KIS_BASE_URL", "https://openapi.koreainvestment.com:9443"),
			IsVirtual: getEnvAsBool("KIS_IS_VIRTUAL", false),
		},

		Yahoo: YahooConfig{
			BaseURL: getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		},

		Naver: NaverConfig{
			BaseURL: getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
		},

		RSS: RSSConfig{
			Feeds: getEnvAsList("RSS_FEEDS", "https://finance.yahoo.com/news/rssindex"),
		},

		Threads: ThreadsConfig{
			AccessToken: getEnv("THREADS_ACCESS_TOKEN", ""),
			UserID:      getEnv("THREADS_USER_ID", ""),
			BaseURL:     getEnv("THREADS_BASE_URL", "https://graph.threads.net/v1.0"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		TracingEnabled: getEnvAsBool("TRACING_ENABLED", false),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Location resolves the reference timezone for slot selection.
// tzdata가 없는 환경에서는 KST 고정 오프셋을 사용
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Briefing.Timezone)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	switch c.Archive.Backend {
	case "file":
		if c.Archive.Dir == "" {
			return fmt.Errorf("ARCHIVE_DIR is required for file archive")
		}
	case "postgres":
		// Database URL is required only for the postgres archive
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when ARCHIVE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("ARCHIVE_BACKEND must be one of: file, postgres")
	}

	if c.Briefing.RunBudget <= 0 {
		return fmt.Errorf("BRIEFING_RUN_BUDGET must be positive")
	}
	if c.Briefing.AdapterTimeout <= 0 {
		return fmt.Errorf("BRIEFING_ADAPTER_TIMEOUT must be positive")
	}
	if c.Briefing.AdapterTimeout > c.Briefing.RunBudget {
		return fmt.Errorf("BRIEFING_ADAPTER_TIMEOUT (%s) exceeds BRIEFING_RUN_BUDGET (%s)",
			c.Briefing.AdapterTimeout, c.Briefing.RunBudget)
	}
	if c.Briefing.Workers < 1 {
		return fmt.Errorf("BRIEFING_WORKERS must be at least 1")
	}
	if c.Briefing.MinDomestic < 1 || c.Briefing.MinInternational < 1 {
		return fmt.Errorf("per-segment minimums must be at least 1")
	}
	if c.Archive.RetentionDays < 1 {
		return fmt.Errorf("ARCHIVE_RETENTION_DAYS must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
