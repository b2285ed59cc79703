// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-key-32-bytes-long!!!"

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "BSR_SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/bsr.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/bsr.db")
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr() = %q, want localhost:8080", cfg.ServerAddr())
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development by default")
	}
	if cfg.StorageType != StorageSQLite {
		t.Errorf("StorageType = %q, want sqlite", cfg.StorageType)
	}
	if cfg.StorageQuota != 5<<20 {
		t.Errorf("StorageQuota = %d, want 5 MiB", cfg.StorageQuota)
	}
	if !cfg.StorageFallback {
		t.Error("expected StorageFallback by default")
	}
	if cfg.AIProvider != ProviderGemini {
		t.Errorf("AIProvider = %q, want gemini", cfg.AIProvider)
	}
	if cfg.AITimeout != 60*time.Second {
		t.Errorf("AITimeout = %v, want 60s", cfg.AITimeout)
	}
	if cfg.ChatIdleTimeout != 30*time.Minute {
		t.Errorf("ChatIdleTimeout = %v, want 30m", cfg.ChatIdleTimeout)
	}
	if cfg.AIAPIKey != "" {
		t.Errorf("AIAPIKey = %q, want empty", cfg.AIAPIKey)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "BSR_SESSION_SECRET", testSecret)
	setEnv(t, "BSR_ENV", "production")
	setEnv(t, "BSR_SERVER_PORT", "3000")
	setEnv(t, "BSR_STORAGE", "redis")
	setEnv(t, "BSR_REDIS_URL", "redis://localhost:6379/0")
	setEnv(t, "BSR_MASTER_ADMIN_EMAIL", "admin@bsr.org")
	setEnv(t, "BSR_AI_PROVIDER", "openai")
	setEnv(t, "BSR_AI_TIMEOUT", "15s")
	setEnv(t, "BSR_CSRF_TRUSTED_ORIGINS", "bsr.example.org,admin.bsr.example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.IsDevelopment() {
		t.Error("expected production")
	}
	if cfg.ServerPort != 3000 {
		t.Errorf("ServerPort = %d, want 3000", cfg.ServerPort)
	}
	if cfg.StorageType != StorageRedis || cfg.RedisURL == "" {
		t.Errorf("storage = %q %q", cfg.StorageType, cfg.RedisURL)
	}
	if cfg.MasterAdminEmail != "admin@bsr.org" {
		t.Errorf("MasterAdminEmail = %q", cfg.MasterAdminEmail)
	}
	if cfg.AIProvider != ProviderOpenAI || cfg.AITimeout != 15*time.Second {
		t.Errorf("ai = %q %v", cfg.AIProvider, cfg.AITimeout)
	}
	if len(cfg.CSRFTrustedOrigins) != 2 || cfg.CSRFTrustedOrigins[1] != "admin.bsr.example.org" {
		t.Errorf("CSRFTrustedOrigins = %v", cfg.CSRFTrustedOrigins)
	}
}

func TestLoad_ProviderKeyFallback(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		env      map[string]string
		want     string
	}{
		{"explicit key wins", "gemini", map[string]string{"BSR_AI_API_KEY": "explicit", "GEMINI_API_KEY": "g"}, "explicit"},
		{"gemini key", "gemini", map[string]string{"GEMINI_API_KEY": "g"}, "g"},
		{"legacy key", "gemini", map[string]string{"API_KEY": "legacy"}, "legacy"},
		{"openai key", "openai", map[string]string{"OPENAI_API_KEY": "o", "GEMINI_API_KEY": "g"}, "o"},
		{"no key", "openai", map[string]string{"GEMINI_API_KEY": "g"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "BSR_SESSION_SECRET", testSecret)
			setEnv(t, "BSR_AI_PROVIDER", tt.provider)
			for k, v := range tt.env {
				setEnv(t, k, v)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.AIAPIKey != tt.want {
				t.Errorf("AIAPIKey = %q, want %q", cfg.AIAPIKey, tt.want)
			}
		})
	}
}

func TestLoad_RequiredSessionSecret(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Error("expected error when BSR_SESSION_SECRET is missing")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"short secret", map[string]string{"BSR_SESSION_SECRET": "short"}, "at least 32 bytes"},
		{"weak secret", map[string]string{"BSR_SESSION_SECRET": "change-me-to-32-byte-secret-key!"}, "known default"},
		{"bad env", map[string]string{"BSR_ENV": "staging"}, "BSR_ENV"},
		{"bad storage", map[string]string{"BSR_STORAGE": "s3"}, "BSR_STORAGE"},
		{"redis without url", map[string]string{"BSR_STORAGE": "redis"}, "BSR_REDIS_URL"},
		{"bad provider", map[string]string{"BSR_AI_PROVIDER": "llama"}, "BSR_AI_PROVIDER"},
		{"bad port", map[string]string{"BSR_SERVER_PORT": "70000"}, "BSR_SERVER_PORT"},
		{"bad quality", map[string]string{"BSR_IMAGE_QUALITY": "0"}, "BSR_IMAGE_QUALITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "BSR_SESSION_SECRET", testSecret)
			for k, v := range tt.env {
				setEnv(t, k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := (Config{LogLevel: tt.level}).SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	if hasMinimumEntropy("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa") {
		t.Error("single class should fail")
	}
	if !hasMinimumEntropy(testSecret) {
		t.Error("three classes should pass")
	}
}
