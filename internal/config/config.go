package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for the tuning service
type Config struct {
	LLM      LLMConfig      `json:"llm"`
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	Tuning   TuningConfig   `json:"tuning"`
}

// LLMConfig holds the OpenAI-compatible chat API configuration
type LLMConfig struct {
	URL       string `json:"url"`
	APIKey    string `json:"api_key"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	PostgresURL string `json:"postgres_url"`
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins"`
}

// TuningConfig holds the knobs of the tuning loop itself. Temperatures follow
// the roles: the writer drafts creatively, the critique and judge stay cool
// for consistent verdicts.
type TuningConfig struct {
	WriterTemperature   float64 `json:"writer_temperature"`
	CritiqueTemperature float64 `json:"critique_temperature"`
	JudgeTemperature    float64 `json:"judge_temperature"`
	SimulationMaxTurns  int     `json:"simulation_max_turns"` // turn pairs, agent + debtor = 1
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			URL:       "http://localhost:8000/v1",
			APIKey:    "",
			Model:     "Qwen/Qwen3-8B-AWQ",
			MaxTokens: 4096,
		},
		Database: DatabaseConfig{
			PostgresURL: "",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Tuning: TuningConfig{
			WriterTemperature:   0.7,
			CritiqueTemperature: 0.3,
			JudgeTemperature:    0.2,
			SimulationMaxTurns:  10,
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	envString("TUNELOOP_LLM_URL", &cfg.LLM.URL)
	envString("TUNELOOP_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("TUNELOOP_LLM_MODEL", &cfg.LLM.Model)
	envInt("TUNELOOP_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)

	envString("TUNELOOP_POSTGRES_URL", &cfg.Database.PostgresURL)

	envString("TUNELOOP_SERVER_HOST", &cfg.Server.Host)
	envInt("TUNELOOP_SERVER_PORT", &cfg.Server.Port)
	envStringSlice("TUNELOOP_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	envFloat("TUNELOOP_WRITER_TEMPERATURE", &cfg.Tuning.WriterTemperature)
	envFloat("TUNELOOP_CRITIQUE_TEMPERATURE", &cfg.Tuning.CritiqueTemperature)
	envFloat("TUNELOOP_JUDGE_TEMPERATURE", &cfg.Tuning.JudgeTemperature)
	envInt("TUNELOOP_SIMULATION_MAX_TURNS", &cfg.Tuning.SimulationMaxTurns)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDatabaseConfigured returns true if a PostgreSQL connection is configured
func (c *Config) IsDatabaseConfigured() bool {
	return c.Database.PostgresURL != ""
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "LLM max_tokens must be positive")
	}
	if c.LLM.URL == "" {
		errs = append(errs, "LLM URL is required")
	} else if !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}

	if c.Database.PostgresURL != "" && !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}

	if c.Tuning.WriterTemperature < 0 || c.Tuning.WriterTemperature > 2 {
		errs = append(errs, "writer temperature must be between 0 and 2")
	}
	if c.Tuning.CritiqueTemperature < 0 || c.Tuning.CritiqueTemperature > 2 {
		errs = append(errs, "critique temperature must be between 0 and 2")
	}
	if c.Tuning.JudgeTemperature < 0 || c.Tuning.JudgeTemperature > 2 {
		errs = append(errs, "judge temperature must be between 0 and 2")
	}
	if c.Tuning.SimulationMaxTurns < 1 {
		errs = append(errs, "simulation max turns must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("TUNELOOP_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	configDir := filepath.Join(homeDir, ".config", "tuneloop")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	altPath := filepath.Join(homeDir, ".tuneloop", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
