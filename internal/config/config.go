package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rdsxdev/misinfo-bot/internal/llm"
)

// Config holds application configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Twilio struct {
		AccountSID string `yaml:"account_sid"`
		AuthToken  string `yaml:"auth_token"`
		// Full WhatsApp sender address, e.g. "whatsapp:+14155238886".
		WhatsAppFrom string `yaml:"whatsapp_from"`
	} `yaml:"twilio"`

	// Explanation providers, tried in order.
	Providers []llm.ProviderConfig `yaml:"providers"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	MaxFailuresBeforeSwitch int `yaml:"max_failures_before_switch"`
}

// LoadConfig loads configuration from a YAML file. Secrets may reference
// environment variables with ${VAR} syntax; unset variables expand to empty
// strings and surface when the corresponding external call is attempted,
// not at startup.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Set defaults
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	if config.Database.Path == "" {
		config.Database.Path = "./data/messages.db"
	}

	if config.MaxFailuresBeforeSwitch == 0 {
		config.MaxFailuresBeforeSwitch = 3
	}

	if len(config.Providers) == 0 {
		config.Providers = []llm.ProviderConfig{
			{Type: llm.ProviderGemini, APIKey: "${GEMINI_API_KEY}", ModelName: "gemini-2.0-flash"},
		}
	}

	// Expand environment variables in secrets
	for i := range config.Providers {
		config.Providers[i].APIKey = os.ExpandEnv(config.Providers[i].APIKey)
	}
	config.Twilio.AccountSID = os.ExpandEnv(config.Twilio.AccountSID)
	config.Twilio.AuthToken = os.ExpandEnv(config.Twilio.AuthToken)
	config.Twilio.WhatsAppFrom = os.ExpandEnv(config.Twilio.WhatsAppFrom)

	return config, nil
}
