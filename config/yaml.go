package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlOverlay mirrors the subset of Config an operator is likely to want in
// a checked-in file rather than scattered across env vars: server/auth/rate
// limit basics and the three LLM backends. Nil fields are left untouched by
// applyYAMLOverlay so the file only needs to name what it overrides.
type yamlOverlay struct {
	Server *struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`

	Auth *struct {
		Enabled bool     `yaml:"enabled"`
		APIKeys []string `yaml:"api_keys"`
	} `yaml:"auth"`

	RateLimit *struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	LLM *struct {
		PrimaryBackend string `yaml:"primary_backend"`
		MaxTokens      int    `yaml:"max_tokens"`
		Temperature    *float64 `yaml:"temperature"`

		AnthropicModel    string `yaml:"anthropic_model"`
		AnthropicPriority *int   `yaml:"anthropic_priority"`

		LocalModelPath    string `yaml:"local_model_path"`
		LocalQuantization string `yaml:"local_quantization"`

		HostedBaseURL string `yaml:"hosted_base_url"`
		HostedModel   string `yaml:"hosted_model"`
	} `yaml:"llm"`

	Storage *struct {
		ExportDir             string `yaml:"export_dir"`
		SpreadsheetShareEmail string `yaml:"spreadsheet_share_email"`
	} `yaml:"storage"`
}

// applyYAMLOverlay reads the file named by CONFIG_FILE, if set, and merges
// its values onto cfg. Secrets (API keys, credentials) stay env-var-only;
// the overlay is for the ambient, non-secret shape of a deployment.
func applyYAMLOverlay(cfg *Config) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: CONFIG_FILE set but unreadable, ignoring: %v\n", err)
		return
	}

	var overlay yamlOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		fmt.Fprintf(os.Stderr, "config: CONFIG_FILE parse failed, ignoring: %v\n", err)
		return
	}

	if s := overlay.Server; s != nil {
		if s.Host != "" {
			cfg.Server.Host = s.Host
		}
		if s.Port != 0 {
			cfg.Server.Port = s.Port
		}
		if s.Mode != "" {
			cfg.Server.Mode = s.Mode
		}
	}
	if a := overlay.Auth; a != nil {
		cfg.Auth.Enabled = a.Enabled
		if len(a.APIKeys) > 0 {
			cfg.Auth.APIKeys = a.APIKeys
		}
	}
	if r := overlay.RateLimit; r != nil {
		if r.RequestsPerSecond != 0 {
			cfg.RateLimit.RequestsPerSecond = r.RequestsPerSecond
		}
		if r.Burst != 0 {
			cfg.RateLimit.Burst = r.Burst
		}
	}
	if l := overlay.LLM; l != nil {
		if l.PrimaryBackend != "" {
			cfg.LLM.PrimaryBackend = l.PrimaryBackend
		}
		if l.MaxTokens != 0 {
			cfg.LLM.MaxTokens = l.MaxTokens
		}
		if l.Temperature != nil {
			cfg.LLM.Temperature = *l.Temperature
		}
		if l.AnthropicModel != "" {
			cfg.LLM.AnthropicModel = l.AnthropicModel
		}
		if l.AnthropicPriority != nil {
			cfg.LLM.AnthropicPriority = *l.AnthropicPriority
		}
		if l.LocalModelPath != "" {
			cfg.LLM.LocalModelPath = l.LocalModelPath
		}
		if l.LocalQuantization != "" {
			cfg.LLM.LocalQuantization = l.LocalQuantization
		}
		if l.HostedBaseURL != "" {
			cfg.LLM.HostedBaseURL = l.HostedBaseURL
		}
		if l.HostedModel != "" {
			cfg.LLM.HostedModel = l.HostedModel
		}
	}
	if st := overlay.Storage; st != nil {
		if st.ExportDir != "" {
			cfg.Storage.ExportDir = st.ExportDir
		}
		if st.SpreadsheetShareEmail != "" {
			cfg.Storage.SpreadsheetShareEmail = st.SpreadsheetShareEmail
		}
	}
}
