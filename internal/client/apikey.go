package client

import (
	"errors"
	"os"
	"strings"

	"github.com/markis/ai-cli/internal/config"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("API key not found: set DEEPSEEK_API_KEY or api_key in the config file")

var apiKeyEnv = []string{"AI_CLI_API_KEY", "DEEPSEEK_API_KEY"}

// APIKey retrieves the API key from environment variables or the config file.
func APIKey(cfg *config.Config) (string, error) {
	// Check environment variables first - fast path
	for _, name := range apiKeyEnv {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key, nil
		}
	}

	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key, nil
	}

	return "", ErrNoAPIKey
}
