// Package config loads runtime configuration for the GophDrive client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the remote API
//	-s string   websocket URL of the event stream
//	-k string   session API key
//	-i string   path to the sealed identity file
//	-b string   cache backend: sqlite, memory or redis
//	-d string   SQLite data source name
//	-r string   redis address
//	-w int      save debounce (milliseconds)
//	-t int      request timeout (seconds)
//	-l string   log format: text or zap
//	-v string   log level
//
// # JSON schema
//
// The JSON loader uses timex.Duration for durations, so values can be either
// strings like "2s" or integer nanoseconds. Keys that are absent keep their
// default:
//
//	{
//	  "api_url": "https://drive.example.com",
//	  "socket_url": "wss://drive.example.com/socket",
//	  "api_key": "…",
//	  "identity_file": "identity.json",
//	  "cache_backend": "redis",
//	  "redis_addr": "127.0.0.1:6379",
//	  "save_debounce": "2s",
//	  "request_timeout": "30s",
//	  "log_format": "zap",
//	  "log_level": "debug"
//	}
//
// Call (*Config).Validate after loading; it reports missing or malformed
// values using the validate struct tags.
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
