package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	clientFlags := []string{"-a", "-s", "-b", "-d"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "keeps client flags with values",
			args:    []string{"-a", "https://api.example", "-test.v", "-b", "redis"},
			allowed: clientFlags,
			want:    []string{"-a", "https://api.example", "-b", "redis"},
		},
		{
			name:    "equals form",
			args:    []string{"-d=cache/gophdrive.db", "-x=1"},
			allowed: clientFlags,
			want:    []string{"-d=cache/gophdrive.db"},
		},
		{
			name:    "equals value may start with dash",
			args:    []string{"--config=--odd.json"},
			allowed: []string{"--config"},
			want:    []string{"--config=--odd.json"},
		},
		{
			name:    "next flag is not taken as a value",
			args:    []string{"-s", "-a", "https://api.example"},
			allowed: clientFlags,
			want:    []string{"-s", "-a", "https://api.example"},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-b"},
			allowed: clientFlags,
			want:    []string{"-b"},
		},
		{
			name:    "repeated flag keeps order",
			args:    []string{"-b", "sqlite", "-b", "memory"},
			allowed: clientFlags,
			want:    []string{"-b", "sqlite", "-b", "memory"},
		},
		{
			name:    "stops at double dash",
			args:    []string{"-b", "memory", "--", "-a", "ignored"},
			allowed: clientFlags,
			want:    []string{"-b", "memory"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"positional", "-z", "1"},
			allowed: clientFlags,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		fallback string
		want     string
	}{
		{name: "short -c with value", args: []string{"-c", "/path/short.json"}, want: "/path/short.json"},
		{name: "long -config with value", args: []string{"-config", "/path/long.json"}, want: "/path/long.json"},
		{name: "double dash form", args: []string{"--config=/path/eq.json"}, want: "/path/eq.json"},
		{name: "unknown flags are ignored", args: []string{"-x", "1", "-y", "2"}, want: ""},
		{name: "multiple flags, last wins", args: []string{"-c", "/path/1.json", "-config", "/path/2.json"}, want: "/path/2.json"},
		{name: "fallback when absent", args: []string{"-a", "http://x"}, fallback: "/etc/gophdrive.json", want: "/etc/gophdrive.json"},
		{name: "flag beats fallback", args: []string{"-c", "/path/flag.json"}, fallback: "/etc/gophdrive.json", want: "/path/flag.json"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ConfigPath(tc.args, tc.fallback))
		})
	}
}
