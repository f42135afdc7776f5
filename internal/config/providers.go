package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds one named classifier provider's settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Providers is the CLASSIFIER_CONFIG file: a default provider name and a map
// of provider settings. Values support ${VAR} and ${VAR:-default} expansion.
type Providers struct {
	Default   string                    `yaml:"default"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// LoadProviders reads a classifier provider file.
func LoadProviders(path string) (Providers, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Providers{}, fmt.Errorf("read provider config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	var p Providers
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Providers{}, fmt.Errorf("parse provider config: %w", err)
	}
	return p, nil
}

func (c *Config) applyProviders(p Providers) {
	if p.Default != "" {
		c.Provider = p.Default
	}
	if g, ok := p.Providers["gemini"]; ok {
		if g.APIKey != "" {
			c.GeminiAPIKey = g.APIKey
		}
		if g.Model != "" {
			c.GeminiModel = g.Model
		}
	}
	if o, ok := p.Providers["openai"]; ok {
		if o.APIKey != "" {
			c.OpenAIAPIKey = o.APIKey
		}
		if o.BaseURL != "" {
			c.OpenAIBaseURL = o.BaseURL
		}
		if o.Model != "" {
			c.OpenAIModel = o.Model
		}
	}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
