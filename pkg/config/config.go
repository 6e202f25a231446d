// Package config loads the merge tool's own configuration: the list of
// sources to merge plus output and listener settings, and the built-in base
// document used when no base file is given.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr = "127.0.0.1"
	DefaultOutputPath = "merged.yaml"
)

// SourceConfig describes one subscription or local snippet to merge.
type SourceConfig struct {
	// Name is the namespace and provider name for this source.
	Name string `yaml:"name"`
	// Port is the listener port bound to this source's rule bucket.
	Port int `yaml:"port"`
	// URL is the subscription URL, or "local" for a local-only snippet.
	URL string `yaml:"url"`
	// Snippet is the path of the YAML fragment (proxy-groups + rules at
	// least; optionally rule-providers and, for local sources, proxies).
	Snippet string `yaml:"snippet"`
}

// Local reports whether the source is a local snippet.
func (s SourceConfig) Local() bool {
	return strings.EqualFold(strings.TrimSpace(s.URL), "local")
}

type Config struct {
	// Listen is the address every generated listener binds.
	Listen string `yaml:"listen"`
	// Out is the merged document's output path.
	Out string `yaml:"out"`
	// Base optionally points at a base document (dns/tun and other shared
	// settings). Empty means the built-in base document.
	Base string `yaml:"base"`
	// KeepOriginal keeps each snippet's own groups and rules (default).
	// When false every namespace gets an ACL4SSR bucket instead.
	KeepOriginal bool `yaml:"keep_original"`

	Sources []SourceConfig `yaml:"sources"`

	keepOriginalSet bool `yaml:"-"`
}

func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		Listen       string         `yaml:"listen"`
		Out          string         `yaml:"out"`
		Base         string         `yaml:"base"`
		KeepOriginal bool           `yaml:"keep_original"`
		Sources      []SourceConfig `yaml:"sources"`
	}
	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Listen = raw.Listen
	c.Out = raw.Out
	c.Base = raw.Base
	c.KeepOriginal = raw.KeepOriginal
	c.Sources = raw.Sources
	c.keepOriginalSet = false

	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if strings.TrimSpace(value.Content[i].Value) == "keep_original" {
			c.keepOriginalSet = true
		}
	}
	return nil
}

// Default returns a config with defaults applied and no sources.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates a sources file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config path comes from the user's own CLI invocation.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = DefaultListenAddr
	}
	if strings.TrimSpace(c.Out) == "" {
		c.Out = DefaultOutputPath
	}
	if !c.keepOriginalSet {
		c.KeepOriginal = true
	}
}

// Validate checks every source entry. An empty source list is valid here;
// the CLI decides whether to prompt interactively instead.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i, src := range c.Sources {
		if strings.TrimSpace(src.Name) == "" {
			return fmt.Errorf("source #%d: name must not be empty", i+1)
		}
		if src.Port < 1 || src.Port > 65535 {
			return fmt.Errorf("source %q: port %d out of range 1-65535", src.Name, src.Port)
		}
		if strings.TrimSpace(src.URL) == "" {
			return fmt.Errorf("source %q: url must not be empty (use \"local\" for local snippets)", src.Name)
		}
		if strings.TrimSpace(src.Snippet) == "" {
			return fmt.Errorf("source %q: snippet path must not be empty", src.Name)
		}
		if seen[src.Name] {
			return fmt.Errorf("source %q: duplicate name", src.Name)
		}
		seen[src.Name] = true
	}
	return nil
}

var errNotMapping = errors.New("top level must be a mapping")

// LoadDocument reads one YAML file into a string-keyed tree.
func LoadDocument(path string) (map[string]any, error) {
	// #nosec G304 -- snippet paths come from the user's own configuration.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse %s: %w", path, errNotMapping)
	}
	return m, nil
}

// WriteDocument writes a document tree as YAML, creating parent directories.
func WriteDocument(path string, doc map[string]any) error {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	// #nosec G306 -- merged config is meant to be read by mihomo.
	return os.WriteFile(path, b, 0o644)
}
