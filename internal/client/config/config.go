package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings for the GophDrive client.
//
// Fields:
//   - APIURL: base URL of the remote HTTP API.
//   - SocketURL: websocket URL of the event stream.
//   - APIKey: session key sent with every request and the socket handshake.
//   - IdentityFile: path to the passphrase-sealed private key.
//   - CacheBackend: "sqlite", "memory" or "redis".
//   - CacheDSN: SQLite data source name, used by the sqlite backend.
//   - RedisAddr: host:port of the redis server, used by the redis backend.
//   - SaveDebounce: quiet period after an edit before it is saved.
//   - RequestTimeout: bound for a single remote call.
//   - LogFormat: "text" (slog) or "zap".
//   - LogLevel: "debug", "info", "warn" or "error".
type Config struct {
	APIURL         string        `validate:"required,url"`
	SocketURL      string        `validate:"required,url"`
	APIKey         string        `validate:"required"`
	IdentityFile   string        `validate:"required"`
	CacheBackend   string        `validate:"oneof=sqlite memory redis"`
	CacheDSN       string        `validate:"required_if=CacheBackend sqlite"`
	RedisAddr      string        `validate:"required_if=CacheBackend redis"`
	SaveDebounce   time.Duration `validate:"gt=0"`
	RequestTimeout time.Duration `validate:"gt=0"`
	LogFormat      string        `validate:"oneof=text zap"`
	LogLevel       string        `validate:"oneof=debug info warn error"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIURL = "http://127.0.0.1:8080"
	c.SocketURL = "ws://127.0.0.1:8080/socket"
	c.IdentityFile = "identity.json"
	c.CacheBackend = "sqlite"
	c.CacheDSN = "gophdrive.db"
	c.RedisAddr = "127.0.0.1:6379"
	c.SaveDebounce = 2 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.LogFormat = "text"
	c.LogLevel = "info"
}

// Validate checks field values after all sources were applied.
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
