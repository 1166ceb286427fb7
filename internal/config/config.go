package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

const (
	configDirName = "ai-cli"
	defaultConfig = ".config"
)

var configFiles = []string{
	"config.yaml",
	"config.yml",
	"config.toml",
}

// Config represents the structure of the configuration file used by the application.
type Config struct {
	Model   string            `yaml:"model" toml:"model" default:"deepseek-chat"`
	BaseURL string            `yaml:"base_url" toml:"base_url" default:"https://api.deepseek.com/v1"`
	APIKey  string            `yaml:"api_key" toml:"api_key"`
	Editor  string            `yaml:"editor" toml:"editor"`
	Timeout time.Duration     `yaml:"timeout" toml:"timeout" default:"60s"`
	Render  RenderConfig      `yaml:"render" toml:"render"`
	Modify  ModifyConfig      `yaml:"modify" toml:"modify"`
	Prompts map[string]Prompt `yaml:"prompts" toml:"prompts"`
}

// RenderConfig controls ask-mode output.
type RenderConfig struct {
	// Format is "markdown" or "plain".
	Format string `yaml:"format" toml:"format" default:"markdown"`
}

// ModifyConfig controls modify mode.
type ModifyConfig struct {
	ContextLines  int     `yaml:"context_lines" toml:"context_lines" default:"3"`
	MergeDistance int     `yaml:"merge_distance" toml:"merge_distance" default:"3"`
	Temperature   float64 `yaml:"temperature" toml:"temperature" default:"0.1"`
	MaxTokens     int     `yaml:"max_tokens" toml:"max_tokens" default:"8192"`
}

// Prompt is a predefined prompt exposed as a subcommand. A plain string in
// the config file is shorthand for a prompt with only a template.
type Prompt struct {
	Prompt string `yaml:"prompt" toml:"prompt"`
	Model  string `yaml:"model" toml:"model"`
}

func (p *Prompt) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Prompt = node.Value
		return nil
	}
	type plain Prompt
	return node.Decode((*plain)(p))
}

func (p *Prompt) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		p.Prompt = v
	case map[string]any:
		p.Prompt, _ = v["prompt"].(string)
		p.Model, _ = v["model"].(string)
	default:
		return fmt.Errorf("prompt must be a string or a table, got %T", data)
	}
	return nil
}

// configResult is a struct used to return the configuration and any error that occurs during loading.
type configResult struct {
	config *Config
	err    error
}

// NewDefaultConfig creates a configuration populated from the default tags.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("invalid config defaults: %v", err))
	}
	cfg.Prompts = map[string]Prompt{}
	return cfg
}

// Validate reports values that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("model must not be empty"))
	}
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url must not be empty"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.Modify.ContextLines < 0 {
		errs = append(errs, errors.New("modify.context_lines must not be negative"))
	}
	if c.Modify.MergeDistance < 0 {
		errs = append(errs, errors.New("modify.merge_distance must not be negative"))
	}
	if c.Modify.MaxTokens <= 0 {
		errs = append(errs, errors.New("modify.max_tokens must be positive"))
	}
	switch c.Render.Format {
	case "markdown", "plain":
	default:
		errs = append(errs, fmt.Errorf("render.format must be markdown or plain, got %q", c.Render.Format))
	}
	for name, p := range c.Prompts {
		if p.Prompt == "" {
			errs = append(errs, fmt.Errorf("prompt %q is empty", name))
		}
	}
	return errors.Join(errs...)
}

// getConfigPath retrieves the path to the configuration directory based on the XDG_CONFIG_HOME environment variable.
func getConfigPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(home, defaultConfig)
	}

	return filepath.Join(configHome, configDirName), nil
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	return parse(func(cfg *Config) error { return yaml.Unmarshal(data, cfg) })
}

// ParseTOML decodes TOML on top of the defaults.
func ParseTOML(data []byte) (*Config, error) {
	return parse(func(cfg *Config) error { return toml.Unmarshal(data, cfg) })
}

func parse(decode func(*Config) error) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Prompts == nil {
		cfg.Prompts = map[string]Prompt{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// tryLoadConfig attempts to load a configuration file from the specified path.
func tryLoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".toml" {
		return ParseTOML(data)
	}
	return Parse(data)
}

// LoadConfig loads the configuration from the user's home directory, with a timeout.
func LoadConfig(ctx context.Context) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := make(chan configResult, 1)

	go func() {
		cfg, err := loadConfigFiles(ctx)
		result <- configResult{config: cfg, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-result:
		return r.config, r.err
	}
}

// loadConfigFiles loads configuration files from the user's home directory.
func loadConfigFiles(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error before loading config: %w", err)
	}

	configDir, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Return default config early if directory doesn't exist
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return NewDefaultConfig(), nil
	}

	for _, filename := range configFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg, err := tryLoadConfig(filepath.Join(configDir, filename))
		if err == nil {
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config from %s: %w", filename, err)
		}
	}

	return NewDefaultConfig(), nil
}
