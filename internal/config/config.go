package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
)

// Project config file names, in lookup order.
const (
	ProjectConfigFile    = ".contentsearch.yaml"
	projectConfigFileAlt = ".contentsearch.yml"
)

// Config represents the complete contentsearch configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Provider ProviderConfig `yaml:"provider" json:"provider"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Index    IndexConfig    `yaml:"index" json:"index"`
	Site     SiteConfig     `yaml:"site" json:"site"`
	Server   ServerConfig   `yaml:"server" json:"server"`
}

// ProviderConfig configures the search providers' identity and result rendering.
type ProviderConfig struct {
	Area      string `yaml:"area" json:"area"`
	SortOrder int    `yaml:"sort_order" json:"sort_order"`

	// IncludeInvariant queries the language-neutral partition too.
	IncludeInvariant bool `yaml:"include_invariant" json:"include_invariant"`

	// DefaultCulture is used for edit links when neither the content nor the
	// caller has a language.
	DefaultCulture string `yaml:"default_culture" json:"default_culture"`

	// TooltipResourceBase prefixes the tooltip label resource keys. Empty
	// disables tooltips.
	TooltipResourceBase string `yaml:"tooltip_resource_base" json:"tooltip_resource_base"`

	PreviewLength int `yaml:"preview_length" json:"preview_length"`

	// StrictHits fails the whole result set on the first unusable hit.
	StrictHits bool `yaml:"strict_hits" json:"strict_hits"`
}

// SearchConfig configures query planning and fan-out.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	MaxLimit     int `yaml:"max_limit" json:"max_limit"`
	Parallelism  int `yaml:"parallelism" json:"parallelism"`

	// CacheSize is the number of resolved records kept in memory.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// IndexConfig configures index storage and the indexing run.
type IndexConfig struct {
	// DataDir holds content.db and the language indices. Relative paths are
	// resolved against the project directory.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Languages are the language partitions, in fan-out order.
	Languages []string `yaml:"languages" json:"languages"`

	// Invariant enables the language-neutral partition.
	Invariant bool `yaml:"invariant" json:"invariant"`

	MaxAttachmentBytes  int64    `yaml:"max_attachment_bytes" json:"max_attachment_bytes"`
	AttachmentMIMETypes []string `yaml:"attachment_mime_types" json:"attachment_mime_types"`
	BatchSize           int      `yaml:"batch_size" json:"batch_size"`
}

// SiteConfig identifies the site the caller works in.
type SiteConfig struct {
	CurrentURL string `yaml:"current_url" json:"current_url"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Provider: ProviderConfig{
			Area:                "CMS",
			SortOrder:           99,
			IncludeInvariant:    false,
			DefaultCulture:      "en",
			TooltipResourceBase: "/contentsearch/tooltip",
			PreviewLength:       200,
			StrictHits:          false,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
			Parallelism:  4,
			CacheSize:    1000,
		},
		Index: IndexConfig{
			DataDir:            ".contentsearch",
			Languages:          []string{"en"},
			Invariant:          true,
			MaxAttachmentBytes: 10 << 20,
			AttachmentMIMETypes: []string{
				"application/pdf",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.*",
				"application/rtf",
				"text/*",
			},
			BatchSize: 100,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
// $XDG_CONFIG_HOME/contentsearch/config.yaml, else ~/.config/contentsearch/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "contentsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "contentsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "contentsearch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the project in dir. Precedence, lowest first:
//  1. Defaults
//  2. User config
//  3. Project config (.contentsearch.yaml, then .contentsearch.yml)
//  4. CONTENTSEARCH_* environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if path := ProjectConfigPath(dir); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, cserrors.New(cserrors.ErrCodeConfigInvalid, "invalid configuration", err).
			WithSuggestion("Check " + ProjectConfigFile + " and CONTENTSEARCH_* variables")
	}
	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "".
func ProjectConfigPath(dir string) string {
	for _, name := range []string{ProjectConfigFile, projectConfigFileAlt} {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return ""
}

// loadYAML overlays the keys present in path onto c. Unknown keys are rejected.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return cserrors.New(cserrors.ErrCodeConfigNotFound, "failed to read config file "+path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return cserrors.New(cserrors.ErrCodeConfigInvalid, "failed to parse config file "+path, err).
			WithDetail("path", path)
	}
	return nil
}

// applyEnvOverrides applies CONTENTSEARCH_* environment variable overrides.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CONTENTSEARCH_INCLUDE_INVARIANT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Provider.IncludeInvariant = b
		}
	}
	if v := os.Getenv("CONTENTSEARCH_DEFAULT_CULTURE"); v != "" {
		c.Provider.DefaultCulture = v
	}
	if v := os.Getenv("CONTENTSEARCH_DATA_DIR"); v != "" {
		c.Index.DataDir = v
	}
	if v := os.Getenv("CONTENTSEARCH_LANGUAGES"); v != "" {
		var langs []string
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				langs = append(langs, l)
			}
		}
		c.Index.Languages = langs
	}
	if v := os.Getenv("CONTENTSEARCH_CURRENT_SITE"); v != "" {
		c.Site.CurrentURL = v
	}
	if v := os.Getenv("CONTENTSEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CONTENTSEARCH_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.Parallelism = n
		}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit (%d) must be at least search.default_limit (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.Parallelism <= 0 {
		return fmt.Errorf("search.parallelism must be positive, got %d", c.Search.Parallelism)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}
	if c.Provider.PreviewLength <= 0 {
		return fmt.Errorf("provider.preview_length must be positive, got %d", c.Provider.PreviewLength)
	}
	if c.Provider.DefaultCulture != "" {
		if _, err := language.Parse(c.Provider.DefaultCulture); err != nil {
			return fmt.Errorf("provider.default_culture %q is not a language tag: %w", c.Provider.DefaultCulture, err)
		}
	}

	if len(c.Index.Languages) == 0 && !c.Index.Invariant {
		return fmt.Errorf("index.languages is empty and the invariant partition is disabled")
	}
	for _, l := range c.Index.Languages {
		if _, err := language.Parse(l); err != nil {
			return fmt.Errorf("index.languages: %q is not a language tag: %w", l, err)
		}
	}
	if c.Index.MaxAttachmentBytes < 0 {
		return fmt.Errorf("index.max_attachment_bytes must be non-negative, got %d", c.Index.MaxAttachmentBytes)
	}
	if c.Index.DataDir == "" {
		return fmt.Errorf("index.data_dir must be set")
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	return nil
}

// DataPath resolves the data directory against the project directory.
func (c *Config) DataPath(projectDir string) string {
	if filepath.IsAbs(c.Index.DataDir) {
		return c.Index.DataDir
	}
	return filepath.Join(projectDir, c.Index.DataDir)
}

// ContentDBPath returns the SQLite content database path.
func (c *Config) ContentDBPath(projectDir string) string {
	return filepath.Join(c.DataPath(projectDir), "content.db")
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
