package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the global daemon configuration
type Config struct {
	// General configuration
	General struct {
		// AppName identifies this instance in logs
		AppName string `yaml:"appName"`

		// LogLevel is the logging level
		LogLevel string `yaml:"logLevel"`

		// Development enables development mode
		Development bool `yaml:"development"`
	} `yaml:"general"`

	// HTTP server configuration
	HTTP struct {
		// Address to bind the HTTP server
		Address string `yaml:"address"`

		// Port to bind the HTTP server
		Port int `yaml:"port"`

		// CORS configuration
		CORS struct {
			// Enabled enables CORS
			Enabled bool `yaml:"enabled"`

			// AllowedOrigins is the list of allowed origins
			AllowedOrigins []string `yaml:"allowedOrigins"`
		} `yaml:"cors"`

		// JWT configuration
		JWT struct {
			// Secret is the signing key for session tokens; when empty the
			// key is derived from the hardware machine ID
			Secret string `yaml:"secret"`

			// ExpirationMinutes is the token validity duration
			ExpirationMinutes int `yaml:"expirationMinutes"`
		} `yaml:"jwt"`
	} `yaml:"http"`

	// Security configuration
	Security struct {
		// EnableAuthentication requires a session token on API calls
		EnableAuthentication bool `yaml:"enableAuthentication"`
	} `yaml:"security"`

	// Workspace configuration
	Workspace struct {
		// DefaultLocation overrides the OS default workspace path
		DefaultLocation string `yaml:"defaultLocation"`

		// DocumentExtensions lists the file extensions treated as documents
		DocumentExtensions []string `yaml:"documentExtensions"`

		// WatchDebounce coalesces rapid filesystem events per file
		WatchDebounce time.Duration `yaml:"watchDebounce"`
	} `yaml:"workspace"`

	Logging struct {
		Level       string `yaml:"level"` // "ERROR", "WARN", "INFO", "DEBUG"
		ChannelSize int    `yaml:"channelSize"`
		Format      string `yaml:"format"`
		Output      string `yaml:"output"`
		FilePath    string `yaml:"filePath"`
	} `yaml:"logging"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	c := &Config{}

	c.General.AppName = "mdreaderd"
	c.General.LogLevel = "info"
	c.General.Development = false

	// HTTP server configuration; bound to loopback, the daemon serves a
	// local UI only
	c.HTTP.Address = "127.0.0.1"
	c.HTTP.Port = 8990
	c.HTTP.CORS.Enabled = true
	c.HTTP.CORS.AllowedOrigins = []string{"http://localhost:1420", "tauri://localhost"}
	c.HTTP.JWT.Secret = ""
	c.HTTP.JWT.ExpirationMinutes = 12 * 60

	c.Security.EnableAuthentication = true

	// Workspace configuration
	c.Workspace.DefaultLocation = ""
	c.Workspace.DocumentExtensions = []string{"md", "markdown"}
	c.Workspace.WatchDebounce = 300 * time.Millisecond

	// Logging configuration defaults
	c.Logging.Level = "INFO"
	c.Logging.ChannelSize = 1000
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"
	c.Logging.FilePath = ""

	return c
}

// LoadConfig loads the configuration from a file
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// defaults first, the file overrides
	config := DefaultConfig()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Workspace.DefaultLocation != "" && !filepath.IsAbs(config.Workspace.DefaultLocation) {
		dir, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		config.Workspace.DefaultLocation = filepath.Join(dir, config.Workspace.DefaultLocation)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	logLevel := strings.ToLower(config.General.LogLevel)
	if logLevel != "debug" && logLevel != "info" && logLevel != "warn" && logLevel != "error" {
		return fmt.Errorf("invalid log level: %s", config.General.LogLevel)
	}

	if config.HTTP.Port < 1 || config.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", config.HTTP.Port)
	}

	if len(config.Workspace.DocumentExtensions) == 0 {
		return fmt.Errorf("at least one document extension is required")
	}
	for _, ext := range config.Workspace.DocumentExtensions {
		if strings.ContainsAny(ext, "./\\") {
			return fmt.Errorf("invalid document extension: %s", ext)
		}
	}

	if config.Workspace.WatchDebounce < 0 {
		return fmt.Errorf("invalid watch debounce: %s", config.Workspace.WatchDebounce)
	}

	if config.HTTP.JWT.ExpirationMinutes < 1 {
		return fmt.Errorf("invalid JWT expiration: %d", config.HTTP.JWT.ExpirationMinutes)
	}

	return nil
}
