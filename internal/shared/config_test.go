package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Search.Delay != 1.5 {
		t.Errorf("expected default delay 1.5, got %v", config.Search.Delay)
	}
	if config.Search.MaxRetries != 3 {
		t.Errorf("expected default max_retries 3, got %d", config.Search.MaxRetries)
	}
	if config.Search.Concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", config.Search.Concurrency)
	}
	if config.Search.Timeout != 10 {
		t.Errorf("expected default timeout 10, got %d", config.Search.Timeout)
	}
	if config.Sources.FourSharedURL == "" {
		t.Error("expected a default file host URL")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("loads a valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `[search]
delay = 2.0
max_retries = 5
concurrency = 2
timeout = 15

[database]
path = "runs.db"
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Search.Delay != 2.0 {
			t.Errorf("expected delay 2.0, got %v", config.Search.Delay)
		}
		if config.Search.MaxRetries != 5 {
			t.Errorf("expected max_retries 5, got %d", config.Search.MaxRetries)
		}
		if config.Database.Path != "runs.db" {
			t.Errorf("expected database path runs.db, got %s", config.Database.Path)
		}
	})

	t.Run("fills omitted settings with defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[search]\ndelay = 2.0\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Search.MaxRetries != 3 || config.Search.Concurrency != 1 || config.Search.Timeout != DefaultTimeout {
			t.Errorf("unexpected defaults: %+v", config.Search)
		}
	})

	t.Run("rejects out-of-range settings", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[search]\ndelay = 50.0\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		_, err := LoadConfig(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("fails for missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("fails for malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte("[search\ndelay = "), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("expected error for malformed file")
		}
	})
}

func TestSearchConfigValidate(t *testing.T) {
	tc := []struct {
		name    string
		config  SearchConfig
		wantErr bool
	}{
		{name: "valid", config: SearchConfig{Delay: 1.5, MaxRetries: 3, Concurrency: 2, Timeout: 10}},
		{name: "delay too small", config: SearchConfig{Delay: 0.05, MaxRetries: 3, Concurrency: 1, Timeout: 10}, wantErr: true},
		{name: "delay too large", config: SearchConfig{Delay: 11, MaxRetries: 3, Concurrency: 1, Timeout: 10}, wantErr: true},
		{name: "retries too large", config: SearchConfig{Delay: 1, MaxRetries: 11, Concurrency: 1, Timeout: 10}, wantErr: true},
		{name: "concurrency too large", config: SearchConfig{Delay: 1, MaxRetries: 3, Concurrency: 4, Timeout: 10}, wantErr: true},
		{name: "zero timeout", config: SearchConfig{Delay: 1, MaxRetries: 3, Concurrency: 1}, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSearchConfigClamp(t *testing.T) {
	t.Run("fills zero values with defaults", func(t *testing.T) {
		got := SearchConfig{}.Clamp()
		if got.Delay != 1.5 || got.MaxRetries != 3 || got.Concurrency != 1 || got.Timeout != DefaultTimeout {
			t.Errorf("unexpected defaults: %+v", got)
		}
	})

	t.Run("forces values into range", func(t *testing.T) {
		got := SearchConfig{Delay: 99, MaxRetries: 50, Concurrency: 8, Timeout: 5}.Clamp()
		if got.Delay != MaxDelay {
			t.Errorf("expected delay clamped to %v, got %v", MaxDelay, got.Delay)
		}
		if got.MaxRetries != MaxRetries {
			t.Errorf("expected max_retries clamped to %d, got %d", MaxRetries, got.MaxRetries)
		}
		if got.Concurrency != MaxConcurrency {
			t.Errorf("expected concurrency clamped to %d, got %d", MaxConcurrency, got.Concurrency)
		}
	})
}

func TestCreateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}
	if err := CreateConfigFile(path); err == nil {
		t.Fatal("expected error when file already exists")
	}
}
