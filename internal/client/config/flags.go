package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the remote API
//	-s string   websocket URL of the event stream
//	-k string   session API key
//	-i string   path to the sealed identity file
//	-b string   cache backend: sqlite, memory or redis
//	-d string   SQLite data source name
//	-r string   redis address
//	-w int      save debounce (in milliseconds)
//	-t int      request timeout (in seconds)
//	-l string   log format: text or zap
//	-v string   log level
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-k", "-i", "-b", "-d", "-r", "-w", "-t", "-l", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIURL, "a", cfg.APIURL, "base URL of the remote API")
	fs.StringVar(&cfg.SocketURL, "s", cfg.SocketURL, "websocket URL of the event stream")
	fs.StringVar(&cfg.APIKey, "k", cfg.APIKey, "session API key")
	fs.StringVar(&cfg.IdentityFile, "i", cfg.IdentityFile, "path to the sealed identity file")
	fs.StringVar(&cfg.CacheBackend, "b", cfg.CacheBackend, "cache backend (sqlite, memory, redis)")
	fs.StringVar(&cfg.CacheDSN, "d", cfg.CacheDSN, "SQLite data source name")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address")
	debounce := fs.Int("w", int(cfg.SaveDebounce.Milliseconds()), "save debounce (in milliseconds)")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.LogFormat, "l", cfg.LogFormat, "log format (text, zap)")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SaveDebounce = time.Duration(*debounce) * time.Millisecond
	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
