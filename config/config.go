package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Mapstructure tags are used to map environment variables and config file keys.
type Config struct {
	// Server Configuration
	ServerAddress  string `mapstructure:"SERVER_ADDRESS"`  // e.g., ":8080"
	AppEnv         string `mapstructure:"APP_ENV"`         // "production" switches gin and zap to release presets
	LogLevel       string `mapstructure:"LOG_LEVEL"`       // debug, info, warn, error
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"` // comma separated origins for the status websocket

	// Storage Configuration
	DatabasePath string `mapstructure:"DATABASE_PATH"` // SQLite file, ":memory:" for ephemeral runs
	ExportDir    string `mapstructure:"EXPORT_DIR"`    // root directory for project exports

	// AI Configuration
	OpenAIKey     string `mapstructure:"OPENAI_API_KEY"`  // API key for OpenAI
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"` // optional, for OpenAI compatible gateways
	DefaultModel  string `mapstructure:"DEFAULT_MODEL"`   // used when a request carries no model selector

	// Preview Configuration
	PreviewReactURL     string `mapstructure:"PREVIEW_REACT_URL"`
	PreviewReactDOMURL  string `mapstructure:"PREVIEW_REACT_DOM_URL"`
	PreviewBabelURL     string `mapstructure:"PREVIEW_BABEL_URL"`
	PreviewDefaultTitle string `mapstructure:"PREVIEW_DEFAULT_TITLE"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS":        ":8080",
	"APP_ENV":               "development",
	"LOG_LEVEL":             "",
	"ALLOWED_ORIGINS":       "http://localhost:3000,http://localhost:5173",
	"DATABASE_PATH":         "data/builder.db",
	"EXPORT_DIR":            "tmp",
	"OPENAI_API_KEY":        "",
	"OPENAI_BASE_URL":       "",
	"DEFAULT_MODEL":         "gpt-4o",
	"PREVIEW_REACT_URL":     "https://unpkg.com/react@18/umd/react.development.js",
	"PREVIEW_REACT_DOM_URL": "https://unpkg.com/react-dom@18/umd/react-dom.development.js",
	"PREVIEW_BABEL_URL":     "https://unpkg.com/@babel/standalone/babel.min.js",
	"PREVIEW_DEFAULT_TITLE": "Preview",
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)     // Path to look for the config file in
	v.SetConfigName("config") // Name of config file (without extension)
	v.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	// Defaults double as the key registry, so AutomaticEnv can see every key on Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file ('config.yaml') not found in specified path, relying solely on environment variables.")
		} else {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.Printf("Using configuration file: %s", v.ConfigFileUsed())
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if config.OpenAIKey == "" {
		log.Println("WARN: OPENAI_API_KEY is not set. Generation endpoints will fail.")
	}

	return
}

// Origins splits AllowedOrigins into a trimmed list.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
