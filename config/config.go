package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/filedock/filedock/database"
	filedockhttp "github.com/filedock/filedock/http"
	"github.com/filedock/filedock/keybackend"
	"github.com/filedock/filedock/objectstore"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for filedock.
type Config struct {
	Server   ServerConfig            `mapstructure:"server"`
	Engine   EngineConfig            `mapstructure:"engine"`
	Database database.Config         `mapstructure:"database"`
	Storage  StorageConfig           `mapstructure:"storage"`
	Auth     AuthConfig              `mapstructure:"auth"`
	CORS     filedockhttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig               `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
	// BaseURL is the externally reachable address presigned blob URLs
	// point at. Only used with the local storage backend.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

// EngineConfig holds upload engine configuration. Durations are in seconds.
type EngineConfig struct {
	ReserveTTL    int `mapstructure:"reserve_ttl" validate:"min=1"`
	HandleTTL     int `mapstructure:"handle_ttl" validate:"min=1"`
	SweepInterval int `mapstructure:"sweep_interval" validate:"min=0"`
}

// StorageConfig selects and configures the object store backend.
type StorageConfig struct {
	Backend string                  `mapstructure:"backend" validate:"required,oneof=local minio"`
	Local   LocalStorageConfig      `mapstructure:"local"`
	Minio   objectstore.MinioConfig `mapstructure:"minio"`
}

// LocalStorageConfig holds filesystem storage configuration.
type LocalStorageConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// AuthConfig holds signing configuration for presigned blob URLs.
type AuthConfig struct {
	Region  string                `mapstructure:"region" validate:"required"`
	Service string                `mapstructure:"service" validate:"required"`
	Keys    keybackend.KeysConfig `mapstructure:"keys"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":         "database.type",
	"db-dsn":          "database.dsn",
	"db-table":        "database.table",
	"storage-backend": "storage.backend",
	"storage-path":    "storage.local.path",
	"port":            "server.port",
	"base-url":        "server.base_url",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5810)
	v.SetDefault("server.base_url", "http://localhost:5810")

	v.SetDefault("engine.reserve_ttl", 300)
	v.SetDefault("engine.handle_ttl", 300)
	v.SetDefault("engine.sweep_interval", 60)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "filedock.db")
	v.SetDefault("database.table", "filedock_files")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.path", "./data")

	v.SetDefault("auth.region", "us-east-1")
	v.SetDefault("auth.service", "s3")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("FILEDOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
