package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "surveylogic.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfigFile(t, `navigation_api:
  host: "127.0.0.1"
  port: 7000
  request_timeout: "2s"
  max_answers: 25
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 7000 {
		t.Errorf("Port = %d, want 7000", cfg.Port)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Errorf("RequestTimeout = %v, want 2s", cfg.RequestTimeout)
	}
	if cfg.MaxAnswers != 25 {
		t.Errorf("MaxAnswers = %d, want 25", cfg.MaxAnswers)
	}
	if cfg.MaxRules != 256 {
		t.Errorf("MaxRules = %d, want default 256", cfg.MaxRules)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() error = nil, want error for missing file")
	}
}

func TestLoadConfig_RejectsSecretsInFile(t *testing.T) {
	for _, content := range []string{
		"hmac_secret: \"nope\"\n",
		"navigation_api:\n  hmac_secret: \"nope\"\n",
	} {
		_, err := LoadConfig(writeConfigFile(t, content))
		if err == nil {
			t.Fatalf("LoadConfig(%q) error = nil, want rejection", content)
		}
		if err.Error() != "HMAC secrets not allowed in config files (use SL_HMAC_SECRET environment variable)" {
			t.Errorf("LoadConfig() error = %v", err)
		}
	}
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	os.Setenv("SL_NAVIGATION_API_PORT", "8080")
	defer os.Unsetenv("SL_NAVIGATION_API_PORT")

	cfg, err := LoadConfig(writeConfigFile(t, "navigation_api:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080 from environment", cfg.Port)
	}
}
