package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/bstardust/photo-meta/pkg/common"
	"github.com/bstardust/photo-meta/pkg/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. PHOTOMETA_STORAGE_BUCKET
const EnvPrefix = "PHOTOMETA"

// Config represents the application configuration
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Server    ServerConfig    `mapstructure:"server"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Converter ConverterConfig `mapstructure:"converter"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Upload    UploadConfig    `mapstructure:"upload"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	TempDir        string        `mapstructure:"temp_dir"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	CORSOrigin     string        `mapstructure:"cors_origin"`
}

// ExtractorConfig selects the metadata reader
type ExtractorConfig struct {
	Kind         string `mapstructure:"kind"`
	ExiftoolPath string `mapstructure:"exiftool_path"`
}

// ConverterConfig controls JPEG conversion before persistence
type ConverterConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Kind          string `mapstructure:"kind"`
	Command       string `mapstructure:"command"`
	Quality       int    `mapstructure:"quality"`
	MaxConcurrent int    `mapstructure:"max_concurrent"`
}

// StorageConfig represents object storage connection configuration
type StorageConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Backend       string        `mapstructure:"backend"`
	Endpoint      string        `mapstructure:"endpoint"`
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	Prefix        string        `mapstructure:"prefix"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	BlobURL       string        `mapstructure:"blob_url"`
}

// UploadConfig represents upload retry configuration
type UploadConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// New creates a new configuration with default values
func New() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:           ":3000",
			MaxUploadBytes: 50 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   120 * time.Second,
			CORSOrigin:     "*",
		},
		Extractor: ExtractorConfig{
			Kind: "auto",
		},
		Converter: ConverterConfig{
			Kind:          "native",
			Command:       "magick",
			Quality:       90,
			MaxConcurrent: 2,
		},
		Storage: StorageConfig{
			Backend: "minio",
			Region:  "us-east-1",
			UseSSL:  true,
			Prefix:  "photos",
		},
		Upload: UploadConfig{
			MaxRetries:     3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
			Timeout:        60 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, an optional config file,
// a .env file in the working directory, PHOTOMETA_* environment variables
// and any changed command line flags, in increasing order of precedence.
// flags maps configuration keys (e.g. "server.addr") to cobra flags.
func Load(configFile string, flags map[string]*pflag.Flag) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v, New())

	// PaaS-style PORT only replaces the default listen address
	if port := os.Getenv("PORT"); port != "" {
		v.SetDefault("server.addr", ":"+port)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.temp_dir", d.Server.TempDir)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.cors_origin", d.Server.CORSOrigin)

	v.SetDefault("extractor.kind", d.Extractor.Kind)
	v.SetDefault("extractor.exiftool_path", d.Extractor.ExiftoolPath)

	v.SetDefault("converter.enabled", d.Converter.Enabled)
	v.SetDefault("converter.kind", d.Converter.Kind)
	v.SetDefault("converter.command", d.Converter.Command)
	v.SetDefault("converter.quality", d.Converter.Quality)
	v.SetDefault("converter.max_concurrent", d.Converter.MaxConcurrent)

	v.SetDefault("storage.enabled", d.Storage.Enabled)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.endpoint", d.Storage.Endpoint)
	v.SetDefault("storage.region", d.Storage.Region)
	v.SetDefault("storage.bucket", d.Storage.Bucket)
	v.SetDefault("storage.access_key", d.Storage.AccessKey)
	v.SetDefault("storage.secret_key", d.Storage.SecretKey)
	v.SetDefault("storage.use_ssl", d.Storage.UseSSL)
	v.SetDefault("storage.prefix", d.Storage.Prefix)
	v.SetDefault("storage.public_base_url", d.Storage.PublicBaseURL)
	v.SetDefault("storage.presign_expiry", d.Storage.PresignExpiry)
	v.SetDefault("storage.blob_url", d.Storage.BlobURL)

	v.SetDefault("upload.max_retries", d.Upload.MaxRetries)
	v.SetDefault("upload.initial_backoff", d.Upload.InitialBackoff)
	v.SetDefault("upload.max_backoff", d.Upload.MaxBackoff)
	v.SetDefault("upload.timeout", d.Upload.Timeout)
}

// Validate checks the configuration for missing or inconsistent values
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return common.NewConfigError("unknown log level %q", c.LogLevel)
	}

	if c.Server.Addr == "" {
		return common.NewConfigError("server.addr is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return common.NewConfigError("server.max_upload_bytes must be positive")
	}
	if o := c.Server.CORSOrigin; o != "" && o != "*" {
		if !(strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://")) || strings.Contains(o, "*") {
			return common.NewConfigError("server.cors_origin must be *, empty or a single http(s) origin, got %q", o)
		}
	}

	switch c.Extractor.Kind {
	case "auto", "exiftool", "goexif":
	default:
		return common.NewConfigError("unknown extractor %q (want auto, exiftool or goexif)", c.Extractor.Kind)
	}

	if c.Converter.Enabled {
		switch c.Converter.Kind {
		case "native":
		case "command":
			if c.Converter.Command == "" {
				return common.NewConfigError("converter.command is required for the command converter")
			}
		default:
			return common.NewConfigError("unknown converter %q (want native or command)", c.Converter.Kind)
		}
		if c.Converter.Quality < 1 || c.Converter.Quality > 100 {
			return common.NewConfigError("converter.quality must be between 1 and 100")
		}
		if c.Converter.MaxConcurrent < 1 {
			return common.NewConfigError("converter.max_concurrent must be at least 1")
		}
	}

	if c.Storage.Enabled {
		if !c.Converter.Enabled {
			return common.NewConfigError("storage.enabled requires converter.enabled")
		}
		if err := c.Storage.validate(); err != nil {
			return err
		}
		if c.Upload.MaxRetries < 0 {
			return common.NewConfigError("upload.max_retries must not be negative")
		}
	}

	return nil
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case "minio":
		if s.Endpoint == "" {
			return common.NewConfigError("storage.endpoint is required for the minio backend")
		}
		if s.AccessKey == "" || s.SecretKey == "" {
			return common.NewConfigError("storage.access_key and storage.secret_key are required for the minio backend")
		}
	case "aws":
	case "blob":
		if s.BlobURL == "" {
			return common.NewConfigError("storage.blob_url is required for the blob backend")
		}
		return nil
	default:
		return common.NewConfigError("unknown storage backend %q (want minio, aws or blob)", s.Backend)
	}

	if s.Bucket == "" {
		return common.NewConfigError("storage.bucket is required")
	}
	if err := storage.ValidateBucketName(s.Bucket); err != nil {
		return common.NewConfigError("storage.bucket: %v", err)
	}
	return nil
}
