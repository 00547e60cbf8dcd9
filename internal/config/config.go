package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
)

// DefaultFile is the configuration file name used when none is given.
const DefaultFile = "openapi-docs-gen.yaml"

// Config is the site configuration.
type Config struct {
	SiteName string         `yaml:"site_name,omitempty"`
	DocsDir  string         `yaml:"docs_dir"`
	SiteDir  string         `yaml:"site_dir"`
	Plugins  []PluginConfig `yaml:"plugins"`
	Watch    WatchConfig    `yaml:"watch,omitempty"`
	Serve    ServeConfig    `yaml:"serve,omitempty"`

	// path is the file the configuration was loaded from.
	path string
}

// WatchConfig controls rebuilds while serving.
type WatchConfig struct {
	// Debounce is how long file events are coalesced before a rebuild.
	Debounce time.Duration `yaml:"debounce,omitempty"`
	// SpecRefreshInterval periodically reloads OpenAPI documents; 0 disables it.
	SpecRefreshInterval time.Duration `yaml:"spec_refresh_interval,omitempty"`
}

// ServeConfig controls the preview HTTP server.
type ServeConfig struct {
	Addr        string `yaml:"addr,omitempty"`
	MetricsPath string `yaml:"metrics_path,omitempty"`
}

// PluginConfig enables a plugin by entry-point name with its settings.
//
// In YAML a plugin is either a bare name or a single-key mapping:
//
//	plugins:
//	  - search
//	  - openapi-docs-gen:
//	      openapi_file: api/openapi.yaml
type PluginConfig struct {
	Name     string
	Settings map[string]any
}

// UnmarshalYAML accepts both the bare-name and the mapping form.
func (p *PluginConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		p.Name = node.Value
		p.Settings = map[string]any{}
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: plugin entry must have exactly one name", node.Line)
		}
		p.Name = node.Content[0].Value
		p.Settings = map[string]any{}
		if node.Content[1].Tag == "!!null" {
			return nil
		}
		if err := node.Content[1].Decode(&p.Settings); err != nil {
			return fmt.Errorf("plugin %s: %w", p.Name, err)
		}
		return nil
	default:
		return fmt.Errorf("line %d: plugin entry must be a name or a mapping", node.Line)
	}
}

// MarshalYAML emits the mapping form, or the bare name when there are no settings.
func (p PluginConfig) MarshalYAML() (any, error) {
	if len(p.Settings) == 0 {
		return p.Name, nil
	}
	return map[string]any{p.Name: p.Settings}, nil
}

// Load reads the configuration file at path, expanding ${VAR} references
// from the environment (including .env files) and applying defaults.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "failed to load .env file").Build()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, derrors.ConfigError(fmt.Sprintf("configuration file not found: %s", path)).
			WithContext("path", path).
			Build()
	}
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "failed to read config file").
			WithContext("path", path).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "failed to parse config file").
			WithContext("path", path).
			Build()
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration YAML and applies defaults. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.DocsDir == "" {
		c.DocsDir = "docs"
	}
	if c.SiteDir == "" {
		c.SiteDir = "site"
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 300 * time.Millisecond
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8000"
	}
	if c.Serve.MetricsPath == "" {
		c.Serve.MetricsPath = "/metrics"
	}
}

// Path returns the file the configuration was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the directory relative paths are resolved against: the
// config file's directory, or the working directory for in-memory configs.
func (c *Config) Dir() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// ResolvePath resolves p against Dir. Absolute paths and URLs are returned unchanged.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// DocsPath is the resolved docs directory.
func (c *Config) DocsPath() string {
	return c.ResolvePath(c.DocsDir)
}

// SitePath is the resolved output directory.
func (c *Config) SitePath() string {
	return c.ResolvePath(c.SiteDir)
}

// Plugin returns the configuration of the named plugin.
func (c *Config) Plugin(name string) (PluginConfig, bool) {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return PluginConfig{}, false
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return derrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path)).
			WithContext("path", path).
			Build()
	}

	example := Config{
		SiteName: "API Documentation",
		DocsDir:  "docs",
		SiteDir:  "site",
		Plugins: []PluginConfig{{
			Name: "openapi-docs-gen",
			Settings: map[string]any{
				"openapi_file": "openapi.yaml",
				"strict":       false,
			},
		}},
		Serve: ServeConfig{Addr: ":8000"},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&example); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to create config directory").Build()
		}
	}
	// #nosec G306 -- config file is meant to be readable
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
