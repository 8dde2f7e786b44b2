package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	LLM        LLM        `yaml:"llm"`
	Quality    Quality    `yaml:"quality"`
	Extraction Extraction `yaml:"extraction"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

type LLM struct {
	Provider           string `yaml:"provider"`
	Model              string `yaml:"model"`
	OllamaURL          string `yaml:"ollama_url"`
	EmbeddingModel     string `yaml:"embedding_model"`
	VisionModel        string `yaml:"vision_model"`
	TranscriptionModel string `yaml:"transcription_model"`
	OpenAIModel        string `yaml:"openai_model"`
	APIKeyEnv          string `yaml:"api_key_env"`
	MaxTokens          int    `yaml:"max_tokens"`
}

// Quality holds the assessment thresholds. The search threshold controls
// retrieval breadth for the duplicate check; the duplicate threshold is the
// cutoff above which a near match blocks approval. They are separate knobs.
type Quality struct {
	MinQualityScore    float64 `yaml:"min_quality_score"`
	DuplicateThreshold float64 `yaml:"duplicate_threshold"`
	SearchThreshold    float64 `yaml:"search_threshold"`
}

type Extraction struct {
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	UserAgent           string `yaml:"user_agent"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for curator.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "curator")
}

// DataDir returns the XDG data directory for curator.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "curator")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/curator/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'curator init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, _ := parse(nil)
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		LLM: LLM{
			Provider:           "ollama",
			Model:              "qwen2.5:7b",
			OllamaURL:          "http://localhost:11434",
			EmbeddingModel:     "nomic-embed-text",
			VisionModel:        "llama3.2-vision",
			TranscriptionModel: "whisper-1",
			OpenAIModel:        "gpt-4o-mini",
			APIKeyEnv:          "OPENAI_API_KEY",
			MaxTokens:          1024,
		},
		Quality: Quality{
			MinQualityScore:    6.0,
			DuplicateThreshold: 0.95,
			SearchThreshold:    0.8,
		},
		Extraction: Extraction{
			FetchTimeoutSeconds: 15,
			UserAgent:           "Curator/1.0 (best-practice ingestion)",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
