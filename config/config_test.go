package config

import (
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ServerConfig.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.ServerConfig.Port)
	}
	if cfg.LoggingConfig.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.LoggingConfig.Level)
	}
	if cfg.EngineConfig.StopLossPercent != 1.5 {
		t.Errorf("default stop loss = %v, want 1.5", cfg.EngineConfig.StopLossPercent)
	}
	want := []float64{1.5, 3.0, 4.5}
	if len(cfg.EngineConfig.TargetPercents) != len(want) {
		t.Fatalf("default targets = %v, want %v", cfg.EngineConfig.TargetPercents, want)
	}
	for i, v := range want {
		if cfg.EngineConfig.TargetPercents[i] != v {
			t.Errorf("target[%d] = %v, want %v", i, cfg.EngineConfig.TargetPercents[i], v)
		}
	}
	if cfg.EngineConfig.Alpha != 0.1 || cfg.EngineConfig.Gamma != 0.9 {
		t.Errorf("default alpha/gamma = %v/%v, want 0.1/0.9", cfg.EngineConfig.Alpha, cfg.EngineConfig.Gamma)
	}
}

func TestEnvOverridesTakePrecedence(t *testing.T) {
	t.Setenv("WEB_PORT", "9191")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENGINE_STOP_LOSS_PERCENT", "2.25")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ServerConfig.Port != 9191 {
		t.Errorf("port = %d, want 9191", cfg.ServerConfig.Port)
	}
	if cfg.LoggingConfig.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LoggingConfig.Level)
	}
	if cfg.EngineConfig.StopLossPercent != 2.25 {
		t.Errorf("stop loss = %v, want 2.25", cfg.EngineConfig.StopLossPercent)
	}
	if !cfg.RedisConfig.Enabled {
		t.Error("redis should be enabled")
	}
}

func TestNonPositiveSnapshotIntervalClamped(t *testing.T) {
	t.Setenv("ENGINE_SNAPSHOT_SECONDS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EngineConfig.SnapshotSeconds != 60 {
		t.Errorf("snapshot seconds = %d, want 60 when env is 0", cfg.EngineConfig.SnapshotSeconds)
	}

	t.Setenv("ENGINE_SNAPSHOT_SECONDS", "-30")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EngineConfig.SnapshotSeconds != 60 {
		t.Errorf("snapshot seconds = %d, want 60 when env is negative", cfg.EngineConfig.SnapshotSeconds)
	}
}

func TestMalformedEnvIntFallsBack(t *testing.T) {
	t.Setenv("WEB_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerConfig.Port != 8080 {
		t.Errorf("port = %d, want default 8080 on malformed env", cfg.ServerConfig.Port)
	}
}
