// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"taskboard-core/pkg/authz"
	"taskboard-core/pkg/store/dynamostore"

	"go.uber.org/zap/zapcore"
)

const (
	DefaultRegion    = "us-east-1"
	DefaultTableName = "TaskboardTable"
)

type Config struct {
	Environment string
	LogLevel    string

	AWSRegion string
	// DynamoDBEndpoint overrides the service endpoint, e.g. for DynamoDB Local.
	DynamoDBEndpoint  string
	TableName         string
	BelongsToIndex    string
	DirectAccessIndex string
	BatchGetRetries   int

	JWTSecret    string
	JWTPublicKey string
	JWTIssuer    string
	JWTAudience  string

	MetricsEnabled bool
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		AWSRegion:         getEnv("AWS_REGION", DefaultRegion),
		DynamoDBEndpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
		TableName:         getEnv("TABLE_NAME", DefaultTableName),
		BelongsToIndex:    getEnv("BELONGS_TO_INDEX", dynamostore.DefaultBelongsToIndex),
		DirectAccessIndex: getEnv("DIRECT_ACCESS_INDEX", dynamostore.DefaultDirectAccessIndex),
		BatchGetRetries:   getEnvInt("BATCH_GET_RETRIES", 3),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTPublicKey: getEnv("JWT_PUBLIC_KEY", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", ""),
		JWTAudience:  getEnv("JWT_AUDIENCE", ""),

		MetricsEnabled: getEnvBool("ENABLE_METRICS", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable by a service that
// verifies tokens.
func (c *Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	return c.ValidateAuth()
}

// ValidateStore checks the settings needed to reach the table. Production
// additionally requires the real service endpoint. Tools that never verify
// tokens validate only this.
func (c *Config) ValidateStore() error {
	if c.TableName == "" {
		return fmt.Errorf("TABLE_NAME is required")
	}
	if c.AWSRegion == "" {
		return fmt.Errorf("AWS_REGION is required")
	}
	if c.BelongsToIndex == "" || c.DirectAccessIndex == "" {
		return fmt.Errorf("index names cannot be empty")
	}
	if c.BatchGetRetries < 0 {
		return fmt.Errorf("BATCH_GET_RETRIES cannot be negative, got %d", c.BatchGetRetries)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.IsProduction() && c.DynamoDBEndpoint != "" {
		return fmt.Errorf("DYNAMODB_ENDPOINT must not be set in production")
	}
	return nil
}

// ValidateAuth requires a token verification key in production.
func (c *Config) ValidateAuth() error {
	if c.IsProduction() && c.JWTSecret == "" && c.JWTPublicKey == "" {
		return fmt.Errorf("JWT_SECRET or JWT_PUBLIC_KEY is required in production")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// JWT returns the token verification settings.
func (c *Config) JWT() authz.JWTConfig {
	return authz.JWTConfig{
		SecretKey: c.JWTSecret,
		PublicKey: c.JWTPublicKey,
		Issuer:    c.JWTIssuer,
		Audience:  c.JWTAudience,
	}
}

// StoreOptions returns the DynamoDB backend options the configuration sets.
func (c *Config) StoreOptions() []dynamostore.Option {
	return []dynamostore.Option{
		dynamostore.WithIndexNames(c.BelongsToIndex, c.DirectAccessIndex),
		dynamostore.WithBatchGetRetries(c.BatchGetRetries),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
