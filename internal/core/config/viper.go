package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/solatis/surveylogic/internal/types"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*NavigationAPIConfig, error) {
	v := viper.New()

	defaults := DefaultNavigationAPIConfig()
	v.SetDefault("navigation_api.host", defaults.Host)
	v.SetDefault("navigation_api.port", defaults.Port)
	v.SetDefault("navigation_api.max_connections", defaults.MaxConnections)
	v.SetDefault("navigation_api.request_timeout", defaults.RequestTimeout.String())
	v.SetDefault("navigation_api.max_answers", defaults.MaxAnswers)
	v.SetDefault("navigation_api.max_rules", defaults.MaxRules)

	// Bind environment variables with SL_ prefix
	v.SetEnvPrefix("SL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: reject secrets in config files
	// Secrets must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &NavigationAPIConfig{
		Host:           v.GetString("navigation_api.host"),
		Port:           v.GetInt("navigation_api.port"),
		MaxConnections: v.GetInt("navigation_api.max_connections"),
		RequestTimeout: v.GetDuration("navigation_api.request_timeout"),
		MaxAnswers:     v.GetInt("navigation_api.max_answers"),
		MaxRules:       v.GetInt("navigation_api.max_rules"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive limits.
func validateConfig(cfg *NavigationAPIConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.MaxConnections)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxAnswers <= 0 {
		return fmt.Errorf("max_answers must be positive, got %d", cfg.MaxAnswers)
	}
	if cfg.MaxRules <= 0 || cfg.MaxRules > types.MaxRulesPerSurvey {
		return fmt.Errorf("max_rules must be between 1 and %d, got %d", types.MaxRulesPerSurvey, cfg.MaxRules)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("hmac_secret") || v.IsSet("navigation_api.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use SL_HMAC_SECRET environment variable)")
	}
	return nil
}
