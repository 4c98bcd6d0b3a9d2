package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPortWidth applies to ports the configuration does not mention.
	DefaultPortWidth = 16
	// DefaultConfiguredWidth applies to configured ports without a width.
	DefaultConfiguredWidth = 14
	// DefaultName names the module when the configuration does not.
	DefaultName = "sigproc"
	// RegisterInterface binds a port to a bus register of the board wrapper.
	RegisterInterface = "reg"
)

// DefaultStreams are the reserved stream names used when no port carries an
// explicit stream role.
var DefaultStreams = []string{"a", "b"}

// Port describes one input or output of the synthesized function.
type Port struct {
	Name      string `toml:"name" yaml:"name"`
	Interface string `toml:"interface" yaml:"interface"`
	Width     int    `toml:"width" yaml:"width"`
	Stream    bool   `toml:"stream" yaml:"stream"`
}

// Config is the board configuration: port list, widths and interface binding.
type Config struct {
	Name         string   `toml:"name" yaml:"name"`
	DefaultWidth int      `toml:"default_width" yaml:"default_width"`
	Streams      []string `toml:"streams" yaml:"streams"`
	Inputs       []Port   `toml:"inputs" yaml:"inputs"`
	Outputs      []Port   `toml:"outputs" yaml:"outputs"`
}

// Load reads a configuration file, choosing the decoder by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return ParseTOML(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}
}

// ParseTOML decodes a TOML configuration.
func ParseTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: toml: %w", err)
	}
	return cfg, cfg.normalize()
}

// ParseYAML decodes a YAML configuration.
func ParseYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: yaml: %w", err)
	}
	return cfg, cfg.normalize()
}

// Default returns an empty configuration: every port takes the default width.
func Default() *Config {
	return &Config{Name: DefaultName, DefaultWidth: DefaultPortWidth}
}

func (c *Config) normalize() error {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.DefaultWidth <= 0 {
		c.DefaultWidth = DefaultPortWidth
	}
	seen := make(map[string]bool)
	for _, list := range [][]Port{c.Inputs, c.Outputs} {
		for i := range list {
			p := &list[i]
			if p.Name == "" {
				return fmt.Errorf("config: port %d has no name", i)
			}
			if seen[p.Name] {
				return fmt.Errorf("config: port %q declared twice", p.Name)
			}
			seen[p.Name] = true
			if p.Width <= 0 {
				p.Width = DefaultConfiguredWidth
			}
			if p.Interface == "" {
				p.Interface = RegisterInterface
			}
		}
	}
	return nil
}

// Input returns the configured input port.
func (c *Config) Input(name string) (Port, bool) {
	return find(c.Inputs, name)
}

// Output returns the configured output port.
func (c *Config) Output(name string) (Port, bool) {
	return find(c.Outputs, name)
}

// IsStream reports whether the named input carries the pipeline stream.
// Explicit stream roles win over the reserved names.
func (c *Config) IsStream(name string) bool {
	explicit := false
	for _, p := range c.Inputs {
		if p.Stream {
			explicit = true
			if p.Name == name {
				return true
			}
		}
	}
	if explicit {
		return false
	}
	streams := c.Streams
	if len(streams) == 0 {
		streams = DefaultStreams
	}
	for _, s := range streams {
		if s == name {
			return true
		}
	}
	return false
}

func find(ports []Port, name string) (Port, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}
