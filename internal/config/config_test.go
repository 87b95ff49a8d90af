package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bstardust/photo-meta/pkg/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "")
	t.Setenv("PHOTOMETA_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("PHOTOMETA_STORAGE_BUCKET", "photos-bucket")
	t.Setenv("PHOTOMETA_UPLOAD_MAX_BACKOFF", "2s")
	t.Setenv("PHOTOMETA_CONVERTER_ENABLED", "true")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "photos-bucket", cfg.Storage.Bucket)
	assert.Equal(t, 2*time.Second, cfg.Upload.MaxBackoff)
	assert.True(t, cfg.Converter.Enabled)
}

func TestLoad_Port(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "8080")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	t.Setenv("PHOTOMETA_SERVER_ADDR", ":9999")
	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PORT", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PHOTOMETA_LOG_LEVEL=debug\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PHOTOMETA_LOG_LEVEL") })

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ConfigFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PORT", "")

	path := filepath.Join(dir, "photo-meta.yaml")
	yaml := `
log_level: warn
storage:
  enabled: true
  backend: blob
  blob_url: mem://
converter:
  enabled: true
  quality: 75
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	fs.String("addr", ":3000", "")
	require.NoError(t, fs.Parse([]string{"--log-level", "error"}))

	cfg, err := Load(path, map[string]*pflag.Flag{
		"log_level":   fs.Lookup("log-level"),
		"server.addr": fs.Lookup("addr"),
	})
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel, "changed flag wins over file")
	assert.Equal(t, ":3000", cfg.Server.Addr, "unchanged flag keeps default")
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "blob", cfg.Storage.Backend)
	assert.Equal(t, "mem://", cfg.Storage.BlobURL)
	assert.Equal(t, 75, cfg.Converter.Quality)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load("does-not-exist.yaml", nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{name: "defaults", modify: func(c *Config) {}},
		{name: "bad log level", modify: func(c *Config) { c.LogLevel = "loud" }, wantErr: "unknown log level"},
		{name: "bad extractor", modify: func(c *Config) { c.Extractor.Kind = "magic" }, wantErr: "unknown extractor"},
		{name: "zero upload limit", modify: func(c *Config) { c.Server.MaxUploadBytes = 0 }, wantErr: "max_upload_bytes"},
		{name: "cors disabled", modify: func(c *Config) { c.Server.CORSOrigin = "" }},
		{name: "cors single origin", modify: func(c *Config) { c.Server.CORSOrigin = "https://app.example.com" }},
		{name: "cors bare host", modify: func(c *Config) { c.Server.CORSOrigin = "app.example.com" }, wantErr: "cors_origin"},
		{name: "cors wildcard subdomain", modify: func(c *Config) { c.Server.CORSOrigin = "https://*.example.com" }, wantErr: "cors_origin"},
		{
			name:    "bad quality",
			modify:  func(c *Config) { c.Converter.Enabled = true; c.Converter.Quality = 0 },
			wantErr: "quality",
		},
		{
			name:    "storage without converter",
			modify:  func(c *Config) { c.Storage.Enabled = true },
			wantErr: "requires converter.enabled",
		},
		{
			name: "minio without endpoint",
			modify: func(c *Config) {
				c.Converter.Enabled = true
				c.Storage.Enabled = true
				c.Storage.Bucket = "b"
			},
			wantErr: "storage.endpoint",
		},
		{
			name: "aws without bucket",
			modify: func(c *Config) {
				c.Converter.Enabled = true
				c.Storage.Enabled = true
				c.Storage.Backend = "aws"
			},
			wantErr: "storage.bucket",
		},
		{
			name: "complete minio",
			modify: func(c *Config) {
				c.Converter.Enabled = true
				c.Storage.Enabled = true
				c.Storage.Endpoint = "localhost:9000"
				c.Storage.Bucket = "photos"
				c.Storage.AccessKey = "a"
				c.Storage.SecretKey = "s"
			},
		},
		{
			name: "invalid bucket name",
			modify: func(c *Config) {
				c.Converter.Enabled = true
				c.Storage.Enabled = true
				c.Storage.Backend = "aws"
				c.Storage.Bucket = "My_Photos"
			},
			wantErr: "DNS compliant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var cfgErr *common.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
