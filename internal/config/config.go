package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Session       SessionConfig       `mapstructure:"session"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Database      DatabaseConfig      `mapstructure:"database"`
	S3            S3Config            `mapstructure:"s3"`
	Generation    GenerationConfig    `mapstructure:"generation"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Log           LogConfig           `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release or test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// LLMConfig points at an OpenAI-compatible provider.
type LLMConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Temperature      float64       `mapstructure:"temperature"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"` // SDK-level retries before the fallback plan
	StructuredOutput bool          `mapstructure:"structured_output"`
}

// SessionConfig selects the session store and its expiry policy.
type SessionConfig struct {
	Store       string        `mapstructure:"store"` // memory, redis or mongo
	TTL         time.Duration `mapstructure:"ttl"`
	MaxEntries  int           `mapstructure:"max_entries"`
	TokenSecret string        `mapstructure:"token_secret"` // Empty disables session tokens
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

// RedisConfig is used when session.store is redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig is used when session.store is mongo.
type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// S3Config configures the optional audio archive. An empty bucket disables it.
type S3Config struct {
	Endpoint        string        `mapstructure:"endpoint"` // Empty means AWS; set for MinIO or Spaces
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	BucketName      string        `mapstructure:"bucket_name"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	Prefix          string        `mapstructure:"prefix"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

// GenerationConfig bounds workout generation.
type GenerationConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	MaxTokens   int `mapstructure:"max_tokens"`
}

// TranscriptionConfig configures the voice answer flow.
type TranscriptionConfig struct {
	Model           string `mapstructure:"model"`
	ExtractionModel string `mapstructure:"extraction_model"`
	MaxTokens       int    `mapstructure:"max_tokens"`
	MaxUploadBytes  int64  `mapstructure:"max_upload_bytes"` // Larger uploads get 413
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// LoadConfig reads configuration from a .env file, config.yaml in path and
// environment variables, in increasing order of precedence.
func LoadConfig(path string) (config Config, err error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load(strings.TrimSuffix(path, "/") + "/.env")

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Nested keys map to env vars, e.g. llm.api_key -> LLM_API_KEY
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))
	if err = v.BindEnv("llm.api_key", "LLM_API_KEY", "GROQ_API_KEY"); err != nil {
		return
	}

	// Set default values
	setDefaults(v)

	// Read config.yaml; its absence is not an error
	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		err = nil
	} else if err != nil {
		return
	}

	// Unmarshal the config into the struct
	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, config.Validate()
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1/")
	v.SetDefault("llm.model", "meta-llama/llama-4-scout-17b-16e-instruct")
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.max_retries", 0)
	v.SetDefault("llm.structured_output", false)

	v.SetDefault("session.store", StoreMemory)
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.max_entries", 10000)
	v.SetDefault("session.token_secret", "")
	v.SetDefault("session.token_ttl", "24h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "fitness_coach")

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.prefix", "audio/")
	v.SetDefault("s3.presign_expiry", "15m")

	v.SetDefault("generation.max_attempts", 2)
	v.SetDefault("generation.max_tokens", 1000)

	v.SetDefault("transcription.model", "whisper-large-v3-turbo")
	v.SetDefault("transcription.extraction_model", "llama-3.1-8b-instant")
	v.SetDefault("transcription.max_tokens", 400)
	v.SetDefault("transcription.max_upload_bytes", 10<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Session.Store {
	case StoreMemory, StoreRedis, StoreMongo:
		// Known backend
	default:
		return fmt.Errorf("session.store must be one of %s, %s or %s, got %q", StoreMemory, StoreRedis, StoreMongo, c.Session.Store)
	}
	if c.Generation.MaxAttempts < 1 {
		return fmt.Errorf("generation.max_attempts must be at least 1, got %d", c.Generation.MaxAttempts)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative")
	}
	return nil
}
