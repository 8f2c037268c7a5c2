package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ModeDurable   = "durable"
	ModeEphemeral = "ephemeral"

	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Logging
	LogLevel  string
	LogFormat string

	// Vault
	VaultMode          string
	VaultStore         string
	VaultCatalogPath   string
	VaultTokenSalt     string
	VaultTokenSuffix   int
	VaultTokenAttempts int
	VaultStoreTimeout  time.Duration
	VaultIDMinDigits   int
	VaultIDMaxDigits   int
	VaultExclusions    []string

	// Cedula shape policy
	CedulaMin int
	CedulaMax int

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaGroupID     string
	KafkaInputTopic  string
	KafkaOutputTopic string

	// LLM
	LLMAPIKey            string
	LLMBaseURL           string
	LLMModelName         string
	LLMTimeout           time.Duration
	LLMOAuthTokenURL     string
	LLMOAuthClientID     string
	LLMOAuthClientSecret string

	// Gateway
	RateLimitRPS   int
	RateLimitBurst int
}

// LoadEnvFiles loads cedula.env when present, falling back to .env. Missing
// files are not an error; variables already set in the environment win.
func LoadEnvFiles() error {
	for _, path := range []string{"cedula.env", ".env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		return nil
	}
	return nil
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "3001"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		VaultMode:          strings.ToLower(getEnv("VAULT_MODE", ModeDurable)),
		VaultStore:         strings.ToLower(getEnv("VAULT_STORE", StorePostgres)),
		VaultCatalogPath:   getEnv("VAULT_CATALOG_PATH", ""),
		VaultTokenSalt:     getEnv("VAULT_TOKEN_SALT", ""),
		VaultTokenSuffix:   getIntEnv("VAULT_TOKEN_SUFFIX_LEN", 8),
		VaultTokenAttempts: getIntEnv("VAULT_TOKEN_MAX_ATTEMPTS", 5),
		VaultStoreTimeout:  getDuration("VAULT_STORE_TIMEOUT", 2*time.Second),
		VaultIDMinDigits:   getIntEnv("VAULT_ID_MIN_DIGITS", 0),
		VaultIDMaxDigits:   getIntEnv("VAULT_ID_MAX_DIGITS", 0),
		VaultExclusions:    getListEnv("VAULT_EXCLUSIONS", nil),

		CedulaMin: getIntEnv("CEDULA_MIN", 6),
		CedulaMax: getIntEnv("CEDULA_MAX", 12),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "vault"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "vault"),
		PostgresDB:       getEnv("POSTGRES_DB", "privacy_vault"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaEnabled:     getBoolEnv("KAFKA_ENABLED", false),
		KafkaBrokers:     getListEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "privacy-vault"),
		KafkaInputTopic:  getEnv("KAFKA_INPUT_TOPIC", "vault-raw-text"),
		KafkaOutputTopic: getEnv("KAFKA_OUTPUT_TOPIC", "vault-anonymized-text"),

		LLMAPIKey:            getEnv("LLM_API_KEY", ""),
		LLMBaseURL:           getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModelName:         getEnv("LLM_MODEL_NAME", "gpt-4o-mini"),
		LLMTimeout:           getDuration("LLM_TIMEOUT", 30*time.Second),
		LLMOAuthTokenURL:     getEnv("LLM_OAUTH_TOKEN_URL", ""),
		LLMOAuthClientID:     getEnv("LLM_OAUTH_CLIENT_ID", ""),
		LLMOAuthClientSecret: getEnv("LLM_OAUTH_CLIENT_SECRET", ""),

		RateLimitRPS:   getIntEnv("GATEWAY_RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("GATEWAY_RATE_LIMIT_BURST", 100),
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.VaultMode {
	case ModeDurable, ModeEphemeral:
	default:
		errs = append(errs, fmt.Errorf("unknown VAULT_MODE %q", c.VaultMode))
	}
	switch c.VaultStore {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown VAULT_STORE %q", c.VaultStore))
	}
	if c.VaultTokenSuffix < 4 || c.VaultTokenSuffix > 32 {
		errs = append(errs, fmt.Errorf("VAULT_TOKEN_SUFFIX_LEN must be within 4..32, got %d", c.VaultTokenSuffix))
	}
	if c.VaultTokenAttempts < 1 {
		errs = append(errs, errors.New("VAULT_TOKEN_MAX_ATTEMPTS must be positive"))
	}
	if c.VaultStoreTimeout <= 0 {
		errs = append(errs, errors.New("VAULT_STORE_TIMEOUT must be positive"))
	}
	if c.KafkaEnabled && c.VaultMode == ModeEphemeral {
		errs = append(errs, errors.New("KAFKA_ENABLED requires VAULT_MODE=durable: ephemeral tokens cannot be resolved downstream"))
	}
	if c.CedulaMin <= 0 || c.CedulaMax < c.CedulaMin {
		errs = append(errs, fmt.Errorf("invalid cedula bounds %d..%d", c.CedulaMin, c.CedulaMax))
	}
	return errors.Join(errs...)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
		c.PostgresPort,
		c.PostgresSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
