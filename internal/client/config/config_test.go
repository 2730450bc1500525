package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.APIURL)
	assert.Equal(t, "sqlite", c.CacheBackend)
	assert.Equal(t, 2*time.Second, c.SaveDebounce)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, "text", c.LogFormat)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "gophdrive.db", cfg.CacheDSN)
	assert.Equal(t, 2*time.Second, cfg.SaveDebounce)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		var c Config
		c.LoadDefaults()
		c.APIKey = "key"
		return &c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults with key", mutate: func(*Config) {}},
		{name: "missing key", mutate: func(c *Config) { c.APIKey = "" }, wantErr: true},
		{name: "bad backend", mutate: func(c *Config) { c.CacheBackend = "bolt" }, wantErr: true},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.CacheDSN = "" }, wantErr: true},
		{name: "memory without dsn", mutate: func(c *Config) { c.CacheBackend = "memory"; c.CacheDSN = "" }},
		{name: "redis without addr", mutate: func(c *Config) { c.CacheBackend = "redis"; c.RedisAddr = "" }, wantErr: true},
		{name: "zero debounce", mutate: func(c *Config) { c.SaveDebounce = 0 }, wantErr: true},
		{name: "bad url", mutate: func(c *Config) { c.APIURL = "not a url" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "json" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
