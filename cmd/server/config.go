package main

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"counselweb/internal/handlers"
	"counselweb/internal/services"
)

type config struct {
	Port string `yaml:"port"`

	LLM llmConfig `yaml:"llm"`
	TTS ttsConfig `yaml:"tts"`
}

type llmConfig struct {
	// Provider is one of "openai", "openrouter", or "ollama".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	// APIKey is the server-default credential; the OPENAI_API_KEY environment variable
	// backs it when empty. Clients may still override per request.
	APIKey string `yaml:"apiKey"`

	// Host is the Ollama server URL; only used by the ollama provider.
	Host string `yaml:"host"`
}

type ttsConfig struct {
	// Provider is "openai", "elevenlabs", or empty to disable voice synthesis.
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"apiKey"`
	Voice    string `yaml:"voice"`
	Model    string `yaml:"model"`
}

func loadConfig(path string) (config, error) {
	f, err := os.Open(path)
	if err != nil {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	cfg := config{}
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	return cfg, nil
}

func (c llmConfig) llm(logger *slog.Logger) (handlers.LLM, error) {
	switch c.Provider {
	case "", "openai":
		model := c.Model
		if model == "" {
			model = "gpt-4o-2024-11-20"
		}
		return services.NewOpenAI(model, logger), nil
	case "openrouter":
		if c.Model == "" {
			return nil, fmt.Errorf("model is required for openrouter")
		}
		apiKey := c.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENROUTER_API_KEY")
		}
		return services.NewOpenRouter(apiKey, c.Model, logger), nil
	case "ollama":
		if c.Model == "" {
			return nil, fmt.Errorf("model is required for ollama")
		}
		host := c.Host
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		return services.NewOllama(host, c.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", c.Provider)
	}
}

// serverAPIKey resolves the server-default upstream credential. An empty result is
// allowed; the gateway then requires clients to supply their own key.
func (c llmConfig) serverAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

func (c ttsConfig) speech(llm llmConfig, logger *slog.Logger) (handlers.Speech, error) {
	switch c.Provider {
	case "":
		return nil, nil
	case "openai":
		apiKey := c.APIKey
		if apiKey == "" {
			apiKey = llm.serverAPIKey()
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai tts requires an api key")
		}
		return services.NewOpenAISpeech(apiKey, c.Model, c.Voice, logger), nil
	case "elevenlabs":
		apiKey := c.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ELEVEN_LABS_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("elevenlabs tts requires an api key")
		}
		return services.NewElevenLabs(apiKey, c.Voice, c.Model, logger), nil
	default:
		return nil, fmt.Errorf("unknown tts provider: %s", c.Provider)
	}
}
