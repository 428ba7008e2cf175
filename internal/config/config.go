package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Version   int           `toml:"version"`
	Program   string        `toml:"program"`    // indexer executable name or path
	IndexFile string        `toml:"index_file"` // cross-reference database, absolute or relative
	ExtraArgs []string      `toml:"extra_args"` // static arguments passed to every invocation
	UI        UISettings    `toml:"ui"`
	Query     QuerySettings `toml:"query"`
}

// UISettings represents UI-related configuration
type UISettings struct {
	ShowPreview     bool `toml:"show_preview"`
	PreviewContext  int  `toml:"preview_context"`   // lines of context around the match
	MaxContentWidth int  `toml:"max_content_width"` // display truncation width for match content
}

// QuerySettings controls how raw input is interpreted
type QuerySettings struct {
	NarrowRune   string `toml:"narrow_rune"`   // character that introduces pattern and filter terms
	PrefillQuery bool   `toml:"prefill_query"` // seed text pre-fills the input instead of waiting on the history key
}

// Service handles configuration management
type Service interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
}

// service is the concrete implementation
type service struct {
	filePath string
}

// NewService creates a new config service rooted at the user config dir
func NewService() Service {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}

	cseekDir := filepath.Join(configDir, "cseek")
	os.MkdirAll(cseekDir, 0755)

	return &service{
		filePath: filepath.Join(cseekDir, "config.toml"),
	}
}

// Load loads the configuration from the default file
func (s *service) Load() (*Config, error) {
	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return s.LoadFromPath(s.filePath)
}

// Save saves the configuration to the default file
func (s *service) Save(config *Config) error {
	return s.SaveToPath(config, s.filePath)
}

// LoadFromPath loads configuration from a specific path
func (s *service) LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// SaveToPath saves configuration to a specific path
func (s *service) SaveToPath(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyDefaults fills in zero values left out of a loaded config file
func applyDefaults(cfg *Config) {
	if cfg.Program == "" {
		cfg.Program = "cscope"
	}
	if cfg.IndexFile == "" {
		cfg.IndexFile = "cscope.out"
	}
	if cfg.UI.MaxContentWidth <= 0 {
		cfg.UI.MaxContentWidth = 120
	}
	if cfg.UI.PreviewContext <= 0 {
		cfg.UI.PreviewContext = 8
	}
	if cfg.Query.NarrowRune == "" {
		cfg.Query.NarrowRune = "#"
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:   1,
		Program:   "cscope",
		IndexFile: "cscope.out",
		ExtraArgs: nil,
		UI: UISettings{
			ShowPreview:     true,
			PreviewContext:  8,
			MaxContentWidth: 120,
		},
		Query: QuerySettings{
			NarrowRune:   "#",
			PrefillQuery: true,
		},
	}
}
