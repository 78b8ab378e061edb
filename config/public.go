package config

import "time"

// safe for API structure
type PublicConfig struct {
	General struct {
		AppName     string `yaml:"appName" json:"appName"`
		LogLevel    string `yaml:"logLevel" json:"logLevel"`
		Development bool   `yaml:"development" json:"development"`
	} `yaml:"general" json:"general"`

	HTTP struct {
		Address string `yaml:"address" json:"address"`
		Port    int    `yaml:"port" json:"port"`

		CORS struct {
			Enabled        bool     `yaml:"enabled" json:"enabled"`
			AllowedOrigins []string `yaml:"allowedOrigins" json:"allowedOrigins"`
		} `yaml:"cors" json:"cors"`

		JWT struct {
			ExpirationMinutes int `yaml:"expirationMinutes" json:"expirationMinutes"`
		} `yaml:"jwt" json:"jwt"`
	} `yaml:"http" json:"http"`

	Security struct {
		EnableAuthentication bool `yaml:"enableAuthentication" json:"enableAuthentication"`
	} `yaml:"security" json:"security"`

	Workspace struct {
		DefaultLocation    string        `yaml:"defaultLocation" json:"defaultLocation"`
		DocumentExtensions []string      `yaml:"documentExtensions" json:"documentExtensions"`
		WatchDebounce      time.Duration `yaml:"watchDebounce" json:"watchDebounce"`
	} `yaml:"workspace" json:"workspace"`

	Logging struct {
		Level       string `yaml:"level" json:"level"`
		ChannelSize int    `yaml:"channelSize" json:"channelSize"`
		Format      string `yaml:"format" json:"format"`
		Output      string `yaml:"output" json:"output"`
		FilePath    string `yaml:"filePath" json:"filePath"`
	} `yaml:"logging" json:"logging"`
}

// ToPublic strips secrets from the configuration for API exposure.
func (c *Config) ToPublic() *PublicConfig {
	p := &PublicConfig{}

	p.General.AppName = c.General.AppName
	p.General.LogLevel = c.General.LogLevel
	p.General.Development = c.General.Development

	p.HTTP.Address = c.HTTP.Address
	p.HTTP.Port = c.HTTP.Port
	p.HTTP.CORS.Enabled = c.HTTP.CORS.Enabled
	p.HTTP.CORS.AllowedOrigins = c.HTTP.CORS.AllowedOrigins
	p.HTTP.JWT.ExpirationMinutes = c.HTTP.JWT.ExpirationMinutes

	p.Security.EnableAuthentication = c.Security.EnableAuthentication

	p.Workspace.DefaultLocation = c.Workspace.DefaultLocation
	p.Workspace.DocumentExtensions = c.Workspace.DocumentExtensions
	p.Workspace.WatchDebounce = c.Workspace.WatchDebounce

	p.Logging.Level = c.Logging.Level
	p.Logging.ChannelSize = c.Logging.ChannelSize
	p.Logging.Format = c.Logging.Format
	p.Logging.Output = c.Logging.Output
	p.Logging.FilePath = c.Logging.FilePath

	return p
}
