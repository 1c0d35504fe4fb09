// Package config loads hospitalcore settings from defaults, an optional YAML
// file and HOSPITALCORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"hospitalcore/internal/platform/logger"
)

const (
	configFileName = "hospitalcore"
	configFileType = "yaml"
	envPrefix      = "HOSPITALCORE"
)

// Config keys.
const (
	KeyHTTPAddr              = "http.addr"
	KeyHTTPReadHeaderTimeout = "http.read_header_timeout"
	KeyHTTPShutdownTimeout   = "http.shutdown_timeout"
	KeyLogLevel              = "log.level"
	KeyLogFormat             = "log.format"
	KeyPersistenceDriver     = "persistence.driver"
	KeyPersistencePath       = "persistence.path"
	KeyPersistenceAtomic     = "persistence.atomic_write"
	KeySQLitePath            = "persistence.sqlite_path"
	KeyPostgresDSN           = "persistence.postgres_dsn"
	KeyRedisURL              = "persistence.redis_url"
	KeyRedisKey              = "persistence.redis_key"
	KeyBlobKey               = "persistence.blob_key"
	KeyBlobDriver            = "blob.driver"
	KeyBlobFSRoot            = "blob.fs_root"
	KeyS3Bucket              = "blob.s3.bucket"
	KeyS3Region              = "blob.s3.region"
	KeyS3Endpoint            = "blob.s3.endpoint"
	KeyS3PathStyle           = "blob.s3.path_style"
	KeyTracePath             = "trace.path"
	KeyTraceLimit            = "trace.limit"
)

// Config validation errors.
var (
	ErrDriverUnknown     = errors.New("unknown persistence driver")
	ErrBlobDriverUnknown = errors.New("unknown blob driver")
	ErrParameterMissing  = errors.New("required parameter missing")
	ErrLogLevelUnknown   = errors.New("unknown log level")
	ErrLogFormatUnknown  = errors.New("unknown log format")
	ErrTimeoutInvalid    = errors.New("timeout must be positive")
)

// Config is the full process configuration.
type Config struct {
	HTTP        HTTP        `mapstructure:"http"`
	Log         Log         `mapstructure:"log"`
	Persistence Persistence `mapstructure:"persistence"`
	Blob        Blob        `mapstructure:"blob"`
	Trace       Trace       `mapstructure:"trace"`
}

// HTTP configures the web listener.
type HTTP struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Persistence selects and parameterizes the document store.
type Persistence struct {
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	AtomicWrite bool   `mapstructure:"atomic_write"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisKey    string `mapstructure:"redis_key"`
	BlobKey     string `mapstructure:"blob_key"`
}

// Blob selects the object store used by the blob driver and CSV export.
type Blob struct {
	Driver string `mapstructure:"driver"`
	FSRoot string `mapstructure:"fs_root"`
	S3     S3     `mapstructure:"s3"`
}

// S3 holds S3-compatible endpoint settings. Credentials come from the
// default AWS chain.
type S3 struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// Trace configures the JSON lines span log. An empty path disables it.
type Trace struct {
	Path  string `mapstructure:"path"`
	Limit int    `mapstructure:"limit"`
}

var (
	knownDrivers     = map[string]bool{"memory": true, "file": true, "sqlite": true, "postgres": true, "redis": true, "blob": true}
	knownBlobDrivers = map[string]bool{"fs": true, "s3": true, "memory": true}
	knownFormats     = map[string]bool{"text": true, "json": true}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyHTTPAddr, ":5000")
	v.SetDefault(KeyHTTPReadHeaderTimeout, 5*time.Second)
	v.SetDefault(KeyHTTPShutdownTimeout, 10*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyPersistenceDriver, "file")
	v.SetDefault(KeyPersistencePath, "hospital_data.json")
	v.SetDefault(KeyPersistenceAtomic, false)
	v.SetDefault(KeySQLitePath, "hospitalcore.db")
	v.SetDefault(KeyPostgresDSN, "")
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyRedisKey, "hospitalcore:state")
	v.SetDefault(KeyBlobKey, "snapshots/state.json")
	v.SetDefault(KeyBlobDriver, "fs")
	v.SetDefault(KeyBlobFSRoot, "./blobdata")
	v.SetDefault(KeyS3Bucket, "")
	v.SetDefault(KeyS3Region, "")
	v.SetDefault(KeyS3Endpoint, "")
	v.SetDefault(KeyS3PathStyle, false)
	v.SetDefault(KeyTracePath, "")
	v.SetDefault(KeyTraceLimit, 1000)
}

// Load resolves the configuration. With an empty path, hospitalcore.yaml is
// looked up in the working directory and a missing file is not an error; an
// explicit path must exist. PORT, when set, overrides the listen port.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTP.Addr = ":" + port
	}
	return cfg, nil
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package, wrapped with the offending key.
func (c Config) Validate() error {
	if !logger.ValidLevel(c.Log.Level) {
		return fmt.Errorf("%s=%q: %w", KeyLogLevel, c.Log.Level, ErrLogLevelUnknown)
	}
	if !knownFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("%s=%q: %w", KeyLogFormat, c.Log.Format, ErrLogFormatUnknown)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%s: %w", KeyHTTPAddr, ErrParameterMissing)
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("%s: %w", KeyHTTPReadHeaderTimeout, ErrTimeoutInvalid)
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("%s: %w", KeyHTTPShutdownTimeout, ErrTimeoutInvalid)
	}
	if !knownDrivers[c.Persistence.Driver] {
		return fmt.Errorf("%s=%q: %w", KeyPersistenceDriver, c.Persistence.Driver, ErrDriverUnknown)
	}
	if !knownBlobDrivers[c.Blob.Driver] {
		return fmt.Errorf("%s=%q: %w", KeyBlobDriver, c.Blob.Driver, ErrBlobDriverUnknown)
	}
	switch c.Persistence.Driver {
	case "file":
		if c.Persistence.Path == "" {
			return fmt.Errorf("%s: %w", KeyPersistencePath, ErrParameterMissing)
		}
	case "redis":
		if c.Persistence.RedisURL == "" {
			return fmt.Errorf("%s: %w", KeyRedisURL, ErrParameterMissing)
		}
	case "postgres":
		if c.Persistence.PostgresDSN == "" {
			return fmt.Errorf("%s: %w", KeyPostgresDSN, ErrParameterMissing)
		}
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("%s: %w", KeyS3Bucket, ErrParameterMissing)
	}
	return nil
}
