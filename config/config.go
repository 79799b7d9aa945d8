package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// State store backend selectors.
const (
	StateStoreMemory = "memory"
	StateStoreRedis  = "redis"
	StateStoreMongo  = "mongo"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling and env for environment variable binding.
type ServerConfig struct {
	HTTPPort string `mapstructure:"HTTP_PORT"`

	// StateStore selects the RuntimeState backend: memory, redis or mongo.
	StateStore     string `mapstructure:"STATE_STORE"`
	MongoURI       string `mapstructure:"MONGO_URI"`
	MongoDBName    string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// FlowTTLMin is the default flow session TTL in minutes, used when Init
	// does not override it.
	FlowTTLMin int `mapstructure:"FLOW_TTL_MIN"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/flow-engine/")
	v.AddConfigPath("$HOME/.flow-engine")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("STATE_STORE", StateStoreMemory)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/flow_engine_dev")
	v.SetDefault("MONGO_DB_NAME", "flow_engine_dev")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_KEY_PREFIX", "flow")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "flow-engine")
	v.SetDefault("FLOW_TTL_MIN", 15)

	if err := v.ReadInConfig(); err != nil {
		// ConfigFileNotFoundError is acceptable, means we use defaults/env vars.
		// Other errors (e.g. permission issues, malformed config) should be returned.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	switch cfg.StateStore {
	case StateStoreMemory, StateStoreRedis, StateStoreMongo:
	default:
		return nil, fmt.Errorf("unknown STATE_STORE %q", cfg.StateStore)
	}

	return &cfg, nil
}
