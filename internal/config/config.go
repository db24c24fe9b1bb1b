package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Data struct {
		Dir string `yaml:"dir"`
	} `yaml:"data"`
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
	DB struct {
		Path string `yaml:"path"`
	} `yaml:"db"`
	AI struct {
		Provider  string `yaml:"provider"`
		Model     string `yaml:"model"`    // empty means the provider default
		APIKey    string `yaml:"api_key"`
		BaseURL   string `yaml:"base_url"` // OpenAI-compatible endpoint override
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"ai"`
	Review struct {
		CategoryWorkers int `yaml:"category_workers"`
		StoryWorkers    int `yaml:"story_workers"`
	} `yaml:"review"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Data.Dir = "data"
	cfg.Output.Dir = "output"
	cfg.DB.Path = "storycurator.db"
	cfg.AI.Provider = "openai"
	cfg.AI.MaxTokens = 4069
	cfg.Review.CategoryWorkers = 7
	cfg.Review.StoryWorkers = 5
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config; a missing file keeps the defaults
	file, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if apiKey := os.Getenv("CURATOR_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if provider := os.Getenv("CURATOR_AI_PROVIDER"); provider != "" {
		cfg.AI.Provider = provider
	}

	// 4. Fall back to the provider's conventional key variable
	if cfg.AI.APIKey == "" {
		switch cfg.AI.Provider {
		case "gemini":
			cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	return cfg, nil
}
