package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Providers     ProvidersConfig
	Triage        TriageConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	QueryTimeout     time.Duration
}

// AuthConfig holds authentication configuration for the admin JWT flow
type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	BcryptCost   int
	APIKeyHeader string
}

// ProvidersConfig holds LLM provider configurations
type ProvidersConfig struct {
	OpenAI OpenAIConfig
	Azure  AzureConfig
}

// OpenAIConfig holds OpenAI provider configuration
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// AzureConfig holds Azure OpenAI provider configuration
type AzureConfig struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
	Timeout    time.Duration
}

// TriageConfig holds the triage supervisor endpoint configuration
type TriageConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env if it exists (no-op when missing)
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TokenTTL:     getEnvAsDuration("JWT_TOKEN_TTL", 8*time.Hour),
			BcryptCost:   getEnvAsInt("BCRYPT_COST", 10),
			APIKeyHeader: getEnv("API_KEY_HEADER", "X-API-Key"),
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Timeout: getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			},
			Azure: AzureConfig{
				APIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
				Endpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
				Deployment: getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
				APIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-02-01"),
				Timeout:    getEnvAsDuration("AZURE_OPENAI_TIMEOUT", 60*time.Second),
			},
		},
		Triage: TriageConfig{
			BaseURL: getEnv("TRIAGE_BASE_URL", "http://localhost:5005"),
			Timeout: getEnvAsDuration("TRIAGE_TIMEOUT", 30*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}

// IsProduction returns true when running in the production environment
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LogString returns a connection description safe for logging (no password)
func (c DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		if u, err := url.Parse(c.ConnectionString); err == nil {
			if u.User != nil {
				u.User = url.User(u.User.Username())
			}
			return u.Redacted()
		}
		return "DATABASE_URL"
	}
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		ConnectionString: getEnv("DATABASE_URL", ""),
		Host:             getEnv("DB_HOST", ""),
		Port:             getEnvAsInt("DB_PORT", 5432),
		User:             getEnv("DB_USER", ""),
		Password:         getEnv("DB_PASSWORD", ""),
		Database:         getEnv("DB_NAME", ""),
		SSLMode:          getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		QueryTimeout:     getEnvAsDuration("DB_QUERY_TIMEOUT", 5*time.Second),
	}
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a duration
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
