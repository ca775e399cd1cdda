package utils

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds the service settings loaded at startup. Backends, stores and timeouts
// are all chosen from it once, so lookups are read-mostly and guarded by an RWMutex
type Config struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewConfig creates a Config holding a copy of the provided values
func NewConfig(values map[string]string) *Config {
	config := &Config{
		values: make(map[string]string, len(values)),
	}

	maps.Copy(config.values, values)

	return config
}

// NewConfigFromEnv creates a Config from the process environment after loading the
// given .env files (later files do not override earlier ones, see LoadEnv)
func NewConfigFromEnv(files ...string) *Config {
	return NewConfig(LoadEnv(files...))
}

// Get retrieves a configuration value by key, or an empty string
func (c *Config) Get(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// GetWithDefault retrieves a configuration value by key with a fallback for missing or empty values
func (c *Config) GetWithDefault(key, defaultValue string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if value, exists := c.values[key]; exists && strings.TrimSpace(value) != "" {
		return value
	}
	return defaultValue
}

// GetBool retrieves a configuration value as a boolean
func (c *Config) GetBool(key string) bool {
	value := strings.ToLower(strings.TrimSpace(c.Get(key)))

	switch value {
	case "1", "yes", "on", "enabled":
		return true
	case "0", "no", "off", "disabled", "":
		return false
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return parsed
}

// GetIntWithDefault retrieves a configuration value as an integer. Missing or unparsable
// values return the default
func (c *Config) GetIntWithDefault(key string, defaultValue int) int {
	value := strings.TrimSpace(c.Get(key))
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetDuration reads an integer value expressed in the given unit (for example
// BACKEND_TIMEOUT_SECONDS with time.Second). Negative values clamp to zero
func (c *Config) GetDuration(key string, unit time.Duration, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(c.Get(key))
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	if parsed < 0 {
		return 0
	}
	return time.Duration(parsed) * unit
}

// Require returns the value for a key, or an error naming it when it is unset
func (c *Config) Require(key string) (string, error) {
	value := strings.TrimSpace(c.Get(key))
	if value == "" {
		return "", fmt.Errorf("%s not set in config or environment", key)
	}
	return value, nil
}

// Set modifies a configuration value
func (c *Config) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}
