package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// PersistenceDriver selects the repository backend
type PersistenceDriver string

const (
	DriverMemory   PersistenceDriver = "memory"
	DriverDynamoDB PersistenceDriver = "dynamodb"
)

// Config holds the service configuration, loaded from environment
// variables
type Config struct {
	// Server
	ServerAddress string
	Environment   string
	LogLevel      string

	// AWS
	AWSRegion     string
	DynamoDBTable string
	EventBusName  string
	TracingOn     bool

	// Persistence
	Driver PersistenceDriver

	// Auth
	JWTSecret   string
	JWTIssuer   string
	AuthEnabled bool

	// Sweep
	SweepInterval time.Duration
	SweepEnabled  bool
}

// LoadConfig reads configuration from the environment with sensible
// defaults for local development
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		DynamoDBTable: getEnv("DYNAMODB_TABLE", "crm-backend"),
		EventBusName:  getEnv("EVENT_BUS_NAME", "crm-events"),
		TracingOn:     getEnvBool("TRACING_ENABLED", false),

		Driver: PersistenceDriver(getEnv("PERSISTENCE_DRIVER", string(DriverMemory))),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "crm-backend"),
		AuthEnabled: getEnvBool("AUTH_ENABLED", true),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Minute),
		SweepEnabled:  getEnvBool("SWEEP_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies that would
// only surface later at request time
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverMemory, DriverDynamoDB:
	default:
		return fmt.Errorf("unknown persistence driver %q", c.Driver)
	}
	if c.Driver == DriverDynamoDB && c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required with the dynamodb driver")
	}
	if c.AuthEnabled && c.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET is required when auth is enabled in production")
	}
	if c.SweepInterval < time.Second {
		return fmt.Errorf("SWEEP_INTERVAL must be at least one second")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
