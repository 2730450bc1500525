package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophdrive/internal/flagx"
	"github.com/dmitrijs2005/gophdrive/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify durations either as
// strings like "2s" or as integer nanoseconds. Fields left out of the file
// keep their current value.
type JsonConfig struct {
	APIURL         *string         `json:"api_url"`
	SocketURL      *string         `json:"socket_url"`
	APIKey         *string         `json:"api_key"`
	IdentityFile   *string         `json:"identity_file"`
	CacheBackend   *string         `json:"cache_backend"`
	CacheDSN       *string         `json:"cache_dsn"`
	RedisAddr      *string         `json:"redis_addr"`
	SaveDebounce   *timex.Duration `json:"save_debounce"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	LogFormat      *string         `json:"log_format"`
	LogLevel       *string         `json:"log_level"`
}

// configEnv names the environment variable holding the config file path.
const configEnv = "GOPHDRIVE_CONFIG"

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c, -config or --config) via flagx.ConfigPath.
//  2. The GOPHDRIVE_CONFIG environment variable.
//  3. If both are empty, no JSON is loaded and the function returns.
//
// Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:], os.Getenv(configEnv))
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.APIURL, jc.APIURL)
	setString(&cfg.SocketURL, jc.SocketURL)
	setString(&cfg.APIKey, jc.APIKey)
	setString(&cfg.IdentityFile, jc.IdentityFile)
	setString(&cfg.CacheBackend, jc.CacheBackend)
	setString(&cfg.CacheDSN, jc.CacheDSN)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.SaveDebounce != nil {
		cfg.SaveDebounce = jc.SaveDebounce.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
