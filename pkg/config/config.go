// Package config provides application configuration.
package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/integrail/poetry-assistant/pkg/llm"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration.
type Config struct {
	Provider        string        `json:"provider" yaml:"provider"`
	OllamaURL       string        `json:"ollamaUrl" yaml:"ollamaUrl"`
	OpenAIBaseURL   string        `json:"openaiBaseUrl" yaml:"openaiBaseUrl"`
	OpenAIToken     string        `json:"-" yaml:"-"`
	Model           string        `json:"model" yaml:"model"`
	UpstreamTimeout time.Duration `json:"upstreamTimeout" yaml:"upstreamTimeout"`
	Port            string        `json:"port" yaml:"port"`
	ProxyURL        string        `json:"proxyUrl" yaml:"proxyUrl"`
	CORSOrigins     []string      `json:"corsOrigins" yaml:"corsOrigins"`
	Debug           bool          `json:"debug" yaml:"debug"`

	timeoutErr error // UPSTREAM_TIMEOUT was set but is not a duration
}

// Load reads configuration from environment variables. The result is not
// validated: flags may still override it, so call Validate afterwards.
func Load() *Config {
	cfg := &Config{
		Provider:        strings.ToLower(getEnv("LLM_PROVIDER", ProviderOllama)),
		OllamaURL:       getEnv("OLLAMA_URL", llm.DefaultOllamaURL),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", llm.DefaultOllamaURL+"/v1"),
		OpenAIToken:     getEnv("OPENAI_API_KEY", "ollama"),
		Model:           getEnv("OLLAMA_MODEL", llm.DefaultModel),
		UpstreamTimeout: 60 * time.Second,
		Port:            getEnv("PORT", "3000"),
		ProxyURL:        getEnv("POETRY_PROXY_URL", "http://localhost:3000"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
	}
	if timeout, err := getEnvDuration("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout); err != nil {
		cfg.UpstreamTimeout = 0
		cfg.timeoutErr = err
	} else {
		cfg.UpstreamTimeout = timeout
	}
	return cfg
}

// BindPersistentFlags registers the flags shared by every command.
func (c *Config) BindPersistentFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.Debug, "debug", "d", c.Debug, "Debug logging")
	fs.DurationVarP(&c.UpstreamTimeout, "timeout", "t", c.UpstreamTimeout, "Max time to wait for a completion, default: 60s")
}

// BindServeFlags registers the proxy flags. Flags override the environment.
func (c *Config) BindServeFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Port, "port", "p", c.Port, "Port to listen on")
	fs.StringVarP(&c.OllamaURL, "ollama-url", "o", c.OllamaURL, "Ollama base URL")
	fs.StringVarP(&c.Model, "model", "m", c.Model, "Model name sent upstream")
	fs.StringVar(&c.Provider, "provider", c.Provider, "Upstream API: ollama or openai")
}

// BindChatFlags registers the session client flags.
func (c *Config) BindChatFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.ProxyURL, "proxy-url", "u", c.ProxyURL, "Poetry proxy URL")
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.ValidateServe(); err != nil {
		return err
	}
	return c.ValidateChat()
}

// ValidateChat checks what the session client needs.
func (c *Config) ValidateChat() error {
	if err := c.validateTimeout(); err != nil {
		return err
	}
	return errors.Wrap(validateURL(c.ProxyURL), "POETRY_PROXY_URL is invalid")
}

// ValidateServe checks what the proxy needs.
func (c *Config) ValidateServe() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.Model == "" {
		return errors.New("OLLAMA_MODEL cannot be empty")
	}
	if !lo.Contains([]string{ProviderOllama, ProviderOpenAI}, c.Provider) {
		return errors.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOllama, ProviderOpenAI, c.Provider)
	}
	if err := c.validateTimeout(); err != nil {
		return err
	}
	if err := validateURL(c.UpstreamURL()); err != nil {
		return errors.Wrapf(err, "%s is invalid", lo.If(c.Provider == ProviderOpenAI, "OPENAI_BASE_URL").Else("OLLAMA_URL"))
	}
	return nil
}

func (c *Config) validateTimeout() error {
	if c.UpstreamTimeout > 0 {
		return nil
	}
	if c.timeoutErr != nil {
		return errors.Wrap(c.timeoutErr, "UPSTREAM_TIMEOUT is invalid")
	}
	return errors.New("UPSTREAM_TIMEOUT must be > 0")
}

// proxyMargin is how much longer than the upstream call a proxy exchange may take.
const proxyMargin = 5 * time.Second

// ProxyTimeout bounds one client to proxy exchange. It outlasts UpstreamTimeout
// so the proxy's own failure body reaches the client.
func (c *Config) ProxyTimeout() time.Duration {
	return c.UpstreamTimeout + proxyMargin
}

// UpstreamURL is the base URL of the configured model server.
func (c *Config) UpstreamURL() string {
	return lo.If(c.Provider == ProviderOpenAI, c.OpenAIBaseURL).Else(c.OllamaURL)
}

// UpstreamName is the human-readable name of the configured model server.
func (c *Config) UpstreamName() string {
	return lo.If(c.Provider == ProviderOpenAI, "the OpenAI-compatible server").Else("Ollama")
}

// UpstreamPort is the port of UpstreamURL, defaulting by scheme.
func (c *Config) UpstreamPort() string {
	u, err := url.Parse(c.UpstreamURL())
	if err != nil {
		return ""
	}
	if port := u.Port(); port != "" {
		return port
	}
	return lo.If(u.Scheme == "https", "443").Else("80")
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return errors.Errorf("missing host in %q", raw)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.Wrapf(err, "%s=%q", key, value)
	}
	return d, nil
}

func splitList(value string) []string {
	return lo.Compact(lo.Map(strings.Split(value, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}
