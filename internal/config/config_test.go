package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/forPelevin/montage/internal/config"
)

var envKeys = []string{
	"OPENROUTER_API_KEY",
	"OPENROUTER_MODEL",
	"OPENROUTER_BASE_URL",
	"OPENROUTER_ALLOWED_HOSTS",
	"MONTAGE_TEMP_DIR",
	"MONTAGE_LOG_LEVEL",
	"MONTAGE_LOG_FORMAT",
	"MONTAGE_BIND",
	"MONTAGE_WHISPER_MODEL",
	"MONTAGE_FALLBACK",
}

// clearEnv unsets the montage variables for the test and restores them after.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unset %s: %v", k, err)
		}
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, resolved, exists, err := config.LoadWithEnvFile(filepath.Join(dir, "missing.toml"), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists || resolved != filepath.Join(dir, "missing.toml") {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if !reflect.DeepEqual(*cfg, config.Default()) {
		t.Fatalf("expected defaults, got %+v", *cfg)
	}
	if cfg.AIAvailable() {
		t.Fatal("expected AI to be unavailable without a key")
	}
}

func TestLoad_FileThenDotEnvThenEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "montage.toml")
	writeFile(t, cfgPath, `
[llm]
api_key = "file-key"
model = "file/model"
allowed_hosts = ["openrouter.ai"]
timeout_seconds = 30

[media]
temp_dir = "/var/tmp/montage"

[ranges]
strict = true

[logging]
format = "json"
`)
	envPath := filepath.Join(dir, ".env")
	writeFile(t, envPath, "OPENROUTER_MODEL=dotenv/model\nMONTAGE_BIND=0.0.0.0:9000\n")
	t.Setenv("MONTAGE_BIND", "127.0.0.1:9999")

	cfg, _, exists, err := config.LoadWithEnvFile(cfgPath, envPath)
	t.Cleanup(func() { _ = os.Unsetenv("OPENROUTER_MODEL") })
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.LLM.APIKey != "file-key" || cfg.LLM.TimeoutSeconds != 30 || !cfg.Ranges.Strict {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.LLM.Model != "dotenv/model" {
		t.Fatalf("expected .env to override file, got %q", cfg.LLM.Model)
	}
	if cfg.Server.Bind != "127.0.0.1:9999" {
		t.Fatalf("expected environment to win over .env, got %q", cfg.Server.Bind)
	}
	if cfg.Media.TempDir != "/var/tmp/montage" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected media/logging: %+v %+v", cfg.Media, cfg.Logging)
	}
	if cfg.LLM.RetryAttempts != config.Default().LLM.RetryAttempts {
		t.Fatalf("unset keys should keep defaults, got %d", cfg.LLM.RetryAttempts)
	}
}

func TestLoad_EnvironmentLists(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_ALLOWED_HOSTS", " proxy.internal , ,openrouter.ai")
	t.Setenv("MONTAGE_FALLBACK", "true")

	cfg, _, _, err := config.LoadWithEnvFile(filepath.Join(t.TempDir(), "none.toml"), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.LLM.AllowedHosts, []string{"proxy.internal", "openrouter.ai"}) {
		t.Fatalf("unexpected allowed hosts: %v", cfg.LLM.AllowedHosts)
	}
	if !cfg.Ranges.Fallback {
		t.Fatal("expected fallback from environment")
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "[llm\nmodel = ")
	if _, _, _, err := config.LoadWithEnvFile(bad, ""); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}

	format := filepath.Join(dir, "format.toml")
	writeFile(t, format, "[logging]\nformat = \"xml\"\n")
	if _, _, _, err := config.LoadWithEnvFile(format, ""); err == nil {
		t.Fatal("expected logging.format validation error")
	}

	t.Setenv("MONTAGE_FALLBACK", "sometimes")
	if _, _, _, err := config.LoadWithEnvFile(filepath.Join(dir, "none.toml"), ""); err == nil {
		t.Fatal("expected MONTAGE_FALLBACK parse error")
	}
}

func TestValidateServer(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("defaults should be servable: %v", err)
	}
	cfg.Server.Bind = " "
	if err := cfg.ValidateServer(); err == nil {
		t.Fatal("expected bind error")
	}
	cfg = config.Default()
	cfg.Whisper.Model = ""
	if err := cfg.ValidateTranscription(); err == nil {
		t.Fatal("expected whisper model error")
	}
}
