// Package config loads and validates the chunker configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Consiliency/treesitter-chunker-sub001/internal/chunk"
)

// Config is the complete tschunk configuration.
type Config struct {
	Version   int              `yaml:"version" json:"version"`
	MaxTokens int              `yaml:"max_tokens" json:"max_tokens"`
	Tokenizer string           `yaml:"tokenizer" json:"tokenizer"` // heuristic | cl100k
	LogLevel  string           `yaml:"log_level" json:"log_level"`
	Window    WindowSettings   `yaml:"window" json:"window"`
	Languages []LanguageConfig `yaml:"languages" json:"languages"`
}

// WindowSettings configures the sliding-window fallback path.
type WindowSettings struct {
	Size               int     `yaml:"size" json:"size"`
	Unit               string  `yaml:"unit" json:"unit"`
	OverlapStrategy    string  `yaml:"overlap_strategy" json:"overlap_strategy"`
	OverlapAmount      float64 `yaml:"overlap_amount" json:"overlap_amount"`
	MinSize            int     `yaml:"min_size" json:"min_size"`
	MaxSize            int     `yaml:"max_size" json:"max_size"`
	PreserveBoundaries bool    `yaml:"preserve_boundaries" json:"preserve_boundaries"`
	DynamicSizing      bool    `yaml:"dynamic_sizing" json:"dynamic_sizing"`
}

// LanguageConfig declares or extends a language in the rule registry.
type LanguageConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Extensions  []string `yaml:"extensions" json:"extensions"`
	Inherits    []string `yaml:"inherits" json:"inherits"`
	ChunkTypes  []string `yaml:"chunk_types" json:"chunk_types"`
	IgnoreTypes []string `yaml:"ignore_types" json:"ignore_types"`
	Rules       []Rule   `yaml:"rules" json:"rules"`
}

// Rule is the YAML form of a chunk rule.
type Rule struct {
	NodeType        string            `yaml:"node_type" json:"node_type"`
	ParentType      string            `yaml:"parent_type" json:"parent_type"`
	Priority        int               `yaml:"priority" json:"priority"`
	IncludeChildren *bool             `yaml:"include_children" json:"include_children"`
	Metadata        map[string]string `yaml:"metadata" json:"metadata"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version:   1,
		MaxTokens: chunk.DefaultMaxChunkTokens,
		Tokenizer: "heuristic",
		LogLevel:  "info",
		Window: WindowSettings{
			Size:            chunk.DefaultMaxChunkTokens * chunk.TokensPerChar,
			Unit:            string(chunk.UnitCharacters),
			OverlapStrategy: string(chunk.OverlapFixed),
			OverlapAmount:   float64(chunk.DefaultOverlapTokens * chunk.TokensPerChar),
		},
	}
}

// Load reads a YAML config file, filling unset fields from defaults and
// validating the result. All configuration errors surface here, before
// any chunking run starts.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, chunk.ConfigError(fmt.Sprintf("failed to read config %s", path), err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, chunk.ConfigError(fmt.Sprintf("failed to parse config %s", path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.MaxTokens < 0 {
		return chunk.ConfigError("max_tokens must be non-negative", nil)
	}
	switch c.Tokenizer {
	case "", "heuristic", "cl100k":
	default:
		return chunk.ConfigError(fmt.Sprintf("unknown tokenizer %q", c.Tokenizer), nil)
	}
	if err := c.WindowConfig().Validate(); err != nil {
		return err
	}
	for _, lang := range c.Languages {
		if lang.Name == "" {
			return chunk.ConfigError("language entry missing name", nil)
		}
	}
	return nil
}

// WindowConfig converts the YAML window settings to the engine's form.
func (c *Config) WindowConfig() chunk.WindowConfig {
	return chunk.WindowConfig{
		WindowSize:         c.Window.Size,
		Unit:               chunk.Unit(c.Window.Unit),
		OverlapStrategy:    chunk.OverlapStrategy(c.Window.OverlapStrategy),
		OverlapAmount:      c.Window.OverlapAmount,
		MinWindowSize:      c.Window.MinSize,
		MaxWindowSize:      c.Window.MaxSize,
		PreserveBoundaries: c.Window.PreserveBoundaries,
		DynamicSizing:      c.Window.DynamicSizing,
	}
}

// Counter builds the configured token counter.
func (c *Config) Counter() (chunk.TokenCounter, error) {
	if c.Tokenizer == "cl100k" {
		return chunk.NewTiktokenCounter()
	}
	return chunk.HeuristicCounter, nil
}

// Apply registers the config's custom languages into the registry,
// resolving inheritance against previously-defined entries and the
// registry's built-ins. Inherited rule lists are concatenated in parent
// order; duplicates from diamond inheritance are preserved.
func (c *Config) Apply(registry *chunk.Registry) error {
	defined := make(map[string]*chunk.LanguageConfig)
	for _, lang := range c.Languages {
		child := &chunk.LanguageConfig{
			Name:        lang.Name,
			Extensions:  lang.Extensions,
			ChunkTypes:  lang.ChunkTypes,
			IgnoreTypes: lang.IgnoreTypes,
		}
		for _, r := range lang.Rules {
			include := true
			if r.IncludeChildren != nil {
				include = *r.IncludeChildren
			}
			child.Rules = append(child.Rules, chunk.ChunkRule{
				NodeType:        r.NodeType,
				ParentType:      r.ParentType,
				Priority:        r.Priority,
				IncludeChildren: include,
				Metadata:        r.Metadata,
			})
		}

		var parents []*chunk.LanguageConfig
		for _, name := range lang.Inherits {
			parent, ok := defined[name]
			if !ok {
				parent, ok = registry.Config(name)
			}
			if !ok {
				return chunk.ConfigError(fmt.Sprintf("language %q inherits unknown %q", lang.Name, name), nil)
			}
			parents = append(parents, parent)
		}

		merged := child
		if len(parents) > 0 {
			merged = chunk.NewCompositeConfig(child, parents...)
		}
		defined[lang.Name] = merged
		registry.Register(merged)
	}
	return nil
}
