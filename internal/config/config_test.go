package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestDataDir(t *testing.T) {
	tests := []struct {
		name string
		xdg  string
		want string
	}{
		{
			name: "xdg set",
			xdg:  "/custom/data",
			want: "/custom/data/zfill",
		},
		{
			name: "xdg empty falls back to home",
			xdg:  "",
			want: filepath.Join(".local", "share", "zfill"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_DATA_HOME", tt.xdg)

			got := DataDir()
			if tt.xdg != "" {
				if got != tt.want {
					t.Errorf("DataDir() = %s, want %s", got, tt.want)
				}
			} else if !strings.HasSuffix(got, tt.want) {
				t.Errorf("DataDir() = %s, want suffix %s", got, tt.want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_DATA_HOME", "/xdg")
	t.Setenv("ZFILL_DATA_DIR", "")
	t.Setenv("SIMPLELOGIN_API_KEY", "")
	t.Setenv("SIMPLELOGIN_BASE_URL", "")
	t.Setenv("ZFILL_LOG_LEVEL", "")
	t.Setenv("ZFILL_RATE_LIMIT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/xdg/zfill" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.BaseURL != "https://app.simplelogin.io" {
		t.Errorf("BaseURL = %s", cfg.BaseURL)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("LogLevel = %v, want warn", cfg.LogLevel)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("RateLimit = %v, want 5", cfg.RateLimit)
	}
	if cfg.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.APIKey)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ZFILL_DATA_DIR", "/data")
	t.Setenv("SIMPLELOGIN_API_KEY", " sl-key ")
	t.Setenv("SIMPLELOGIN_BASE_URL", "http://localhost:7777")
	t.Setenv("ZFILL_LOG_LEVEL", "debug")
	t.Setenv("ZFILL_RATE_LIMIT", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Config{
		DataDir:   "/data",
		APIKey:    "sl-key",
		BaseURL:   "http://localhost:7777",
		LogLevel:  slog.LevelDebug,
		RateLimit: 2.5,
	}
	if cfg != want {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad level", "ZFILL_LOG_LEVEL", "loud"},
		{"bad rate", "ZFILL_RATE_LIMIT", "fast"},
		{"zero rate", "ZFILL_RATE_LIMIT", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("ZFILL_LOG_LEVEL", "")
			t.Setenv("ZFILL_RATE_LIMIT", "")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("%s=%q should fail", tt.key, tt.value)
			}
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	if got := (Config{APIKey: "env"}).ResolveAPIKey("stored"); got != "env" {
		t.Errorf("env key should win, got %q", got)
	}
	if got := (Config{}).ResolveAPIKey("stored"); got != "stored" {
		t.Errorf("stored key should be used, got %q", got)
	}
}
