package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	Organization struct {
		ID string `mapstructure:"id"`
	} `mapstructure:"organization"`
	Gateway  GatewayConfig `mapstructure:"gateway"`
	Storage  StorageConfig `mapstructure:"storage"`
	Redis    RedisConfig   `mapstructure:"redis"`
	Poller   PollerConfig  `mapstructure:"poller"`
	Campaign struct {
		DelayMinSeconds int `mapstructure:"delayMinSeconds"` // per-recipient dispatch delay window
		DelayMaxSeconds int `mapstructure:"delayMaxSeconds"`
	} `mapstructure:"campaign"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
}

// GatewayConfig holds the WhatsApp gateway client configuration
type GatewayConfig struct {
	BaseURL    string        `mapstructure:"baseURL"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retryCount"`
}

// StorageConfig holds the object storage client configuration
type StorageConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	APIKey  string        `mapstructure:"apiKey"`
	Bucket  string        `mapstructure:"bucket"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig holds the redis connection used for reconcile locks
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PollerConfig holds configuration for the campaign reconciliation poller
type PollerConfig struct {
	Interval time.Duration `mapstructure:"interval"` // polling cadence
	PoolSize int           `mapstructure:"poolSize"` // concurrent reconciliations
	LockTTL  time.Duration `mapstructure:"lockTTL"`  // single-flight lock expiry
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)

	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.retryCount", 0)
	v.SetDefault("storage.timeout", 30*time.Second)
	v.SetDefault("storage.bucket", "chat-media")

	v.SetDefault("campaign.delayMinSeconds", 5)
	v.SetDefault("campaign.delayMaxSeconds", 15)

	v.SetDefault("poller.interval", 30*time.Second)
	v.SetDefault("poller.poolSize", 8)
	v.SetDefault("poller.lockTTL", time.Minute)

	// Config file settings
	v.SetConfigName("default")
	v.SetConfigType("yaml")

	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("/etc/wa-campaign-bridge")

	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("GATEWAY_BASE_URL"); url != "" {
		v.Set("gateway.baseURL", url)
	}
	if url := os.Getenv("STORAGE_BASE_URL"); url != "" {
		v.Set("storage.baseURL", url)
	}
	if key := os.Getenv("STORAGE_API_KEY"); key != "" {
		v.Set("storage.apiKey", key)
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		v.Set("redis.addr", addr)
	}
	if org := os.Getenv("ORG_ID"); org != "" {
		v.Set("organization.id", org)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(parts, tag)
		key := strings.Join(path, ".")

		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
