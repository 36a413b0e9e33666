package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindTheRighConfigFile(t *testing.T) {
	userPath := filepath.FromSlash("/some/path")

	found := UserConfigPath(userPath)
	if found != userPath {
		t.Errorf("Expected %s but found %s", userPath, found)
	}

	found = UserConfigPath("")
	if !filepath.IsAbs(found) {
		t.Errorf("User config path was not rooted: %s", found)
	}

	found = UserConfigPath("relative/path")
	if found == "relative/path" {
		t.Errorf("relative user path should have been ignored")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, filepath.Join("output", "images"), cfg.ImagesDir)
	assert.Equal(t, "dj-images", cfg.PublicPrefix)
	assert.Equal(t, 3, cfg.MaxConcurrent)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxImageBytes)
	assert.Equal(t, 2024, cfg.ReferenceYear)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, PublishNone, cfg.Publish.Type)
	assert.False(t, cfg.Incremental)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output_dir: /var/lib/tml
max_concurrent: 5
fetch_timeout: 10s
incremental: true
publish:
  type: s3
  s3:
    endpoint: http://localhost:9000
    region: eu-west-1
    bucket: from-file
    key_id: key
`), 0o644))

	t.Setenv("TMLC_MAX_CONCURRENT", "7")
	t.Setenv("TMLC_PUBLISH_S3_BUCKET", "from-env")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/tml", cfg.OutputDir)
	assert.Equal(t, 7, cfg.MaxConcurrent, "environment wins over the file")
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.True(t, cfg.Incremental)
	assert.Equal(t, PublishS3, cfg.Publish.Type)
	assert.Equal(t, "from-env", cfg.Publish.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Publish.S3.Region)
	assert.Equal(t, time.Minute, cfg.Publish.S3.Timeout)
	assert.Equal(t, "TMLC_S3_ACCESS_KEY", cfg.Publish.S3.AccessKeyEnv)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		desc   string
		mutate func(*Config)
	}{
		{"no output dir", func(c *Config) { c.OutputDir = "" }},
		{"no images dir", func(c *Config) { c.ImagesDir = "" }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }},
		{"negative timeout", func(c *Config) { c.FetchTimeout = -time.Second }},
		{"zero image size", func(c *Config) { c.MaxImageBytes = 0 }},
		{"no reference year", func(c *Config) { c.ReferenceYear = 0 }},
		{"escaping prefix", func(c *Config) { c.PublicPrefix = "../etc" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }},
		{"unknown publish type", func(c *Config) { c.Publish.Type = "ftp" }},
		{"s3 without bucket", func(c *Config) {
			c.Publish.Type = PublishS3
			c.Publish.S3.Endpoint = "http://localhost"
		}},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			cfg, err := Load(New(), "")
			require.NoError(t, err)

			test.mutate(cfg)
			assert.Error(t, validate(cfg))
		})
	}
}
