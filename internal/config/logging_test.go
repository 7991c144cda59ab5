package config

import "testing"

func TestLoadLogDefaults(t *testing.T) {
	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "info" || cfg.MaxMB != 10 {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
}

func TestLoadLogParse(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("LOG_FILE", "/tmp/stockade.log")

	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "debug" || !cfg.Pretty || cfg.File != "/tmp/stockade.log" {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
}

func TestLoadLogRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "file without size", env: map[string]string{"LOG_FILE": "/tmp/stockade.log", "LOG_MAX_MB": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadLog(); err == nil {
				t.Fatal("LoadLog() error = nil, want error")
			}
		})
	}
}
