// Package config loads the lexigate policy: punctuation, language cues,
// swap margin, length classes, distribution minimums and whitelist mode.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/lexigate/pkg/check"
	"github.com/japaniel/lexigate/pkg/langid"
	"github.com/japaniel/lexigate/pkg/registry"
	"github.com/japaniel/lexigate/pkg/text"
)

var configValidate = validator.New()

// Config holds all lexigate configuration.
type Config struct {
	Tokenizer    TokenizerConfig    `yaml:"tokenizer"`
	Tiling       TilingConfig       `yaml:"tiling"`
	Whitelist    WhitelistConfig    `yaml:"whitelist"`
	LangID       LangIDConfig       `yaml:"langid"`
	FCFS         FCFSConfig         `yaml:"fcfs"`
	Distribution DistributionConfig `yaml:"distribution"`
	Workers      int                `yaml:"workers" validate:"gte=1,lte=256"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// TokenizerConfig configures the normalizer.
type TokenizerConfig struct {
	Punctuation string `yaml:"punctuation"`
	Segmenter   string `yaml:"segmenter" validate:"omitempty,oneof=whitespace kagome"`
}

// TilingConfig configures the tiling comparison.
type TilingConfig struct {
	TerminalPunctuation string  `yaml:"terminal_punctuation"`
	Joiner              *string `yaml:"joiner"`
}

// WhitelistConfig selects the single inclusion policy applied everywhere.
type WhitelistConfig struct {
	Mode string `yaml:"mode" validate:"oneof=strictly_before include_seed include_unit"`
}

// LangIDConfig configures swap detection.
type LangIDConfig struct {
	Margin      float64           `yaml:"margin" validate:"gte=0"`
	Uncertainty float64           `yaml:"uncertainty" validate:"gte=0"`
	Profile     langid.Profile    `yaml:"profile"`
	Overrides   map[string]string `yaml:"overrides"`
}

// FCFSConfig configures FD conflict triage.
type FCFSConfig struct {
	InfinitiveMarker string `yaml:"infinitive_marker"`
	GerundSuffix     string `yaml:"gerund_suffix"`
}

// DistributionConfig configures the length classifier.
type DistributionConfig struct {
	Classes  []check.LengthClass `yaml:"classes" validate:"min=1"`
	Minimums map[string]int      `yaml:"minimums"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in policy.
func Default() *Config {
	dist := check.DefaultDistributionPolicy()
	fcfs := check.DefaultFCFSPolicy()
	return &Config{
		Tokenizer: TokenizerConfig{Punctuation: text.DefaultPunctuation, Segmenter: text.SegmenterWhitespace},
		Tiling:    TilingConfig{TerminalPunctuation: check.DefaultTerminalPunctuation},
		Whitelist: WhitelistConfig{Mode: string(registry.IncludeUnit)},
		LangID: LangIDConfig{
			Margin:      10,
			Uncertainty: 3,
			Profile:     langid.SpanishEnglish(),
		},
		FCFS:         FCFSConfig{InfinitiveMarker: fcfs.InfinitiveMarker, GerundSuffix: fcfs.GerundSuffix},
		Distribution: DistributionConfig{Classes: dist.Classes, Minimums: dist.Minimums},
		Workers:      4,
		Logging:      LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// Environment overrides are applied last, then the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		// yaml.v3 merges into the default map; a file that lists minimums
		// replaces them instead.
		var mins struct {
			Distribution struct {
				Minimums map[string]int `yaml:"minimums"`
			} `yaml:"distribution"`
		}
		if err := yaml.Unmarshal(raw, &mins); err == nil && mins.Distribution.Minimums != nil {
			cfg.Distribution.Minimums = mins.Distribution.Minimums
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LEXIGATE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("LEXIGATE_WHITELIST_MODE"); v != "" {
		c.Whitelist.Mode = v
	}
	if v := os.Getenv("LEXIGATE_SWAP_MARGIN"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.LangID.Margin = f
		}
	}
	if v := os.Getenv("LEXIGATE_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// Validate checks field ranges and the length class layout.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.DistributionPolicy().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Normalizer builds the configured text normalizer.
func (c *Config) Normalizer() (*text.Normalizer, error) {
	seg, err := text.NewSegmenter(c.Tokenizer.Segmenter)
	if err != nil {
		return nil, err
	}
	return text.NewNormalizer(c.Tokenizer.Punctuation, seg), nil
}

// TilingPolicy returns the tiling settings. The joiner defaults to one space.
func (c *Config) TilingPolicy() check.TilingPolicy {
	p := check.TilingPolicy{TerminalPunctuation: c.Tiling.TerminalPunctuation, Joiner: " "}
	if c.Tiling.Joiner != nil {
		p.Joiner = *c.Tiling.Joiner
	}
	return p
}

// WhitelistMode returns the parsed inclusion mode.
func (c *Config) WhitelistMode() registry.Mode {
	m, err := registry.ParseMode(c.Whitelist.Mode)
	if err != nil {
		return registry.IncludeUnit
	}
	return m
}

// FCFSPolicy returns the FD triage settings.
func (c *Config) FCFSPolicy() check.FCFSPolicy {
	return check.FCFSPolicy{InfinitiveMarker: c.FCFS.InfinitiveMarker, GerundSuffix: c.FCFS.GerundSuffix}
}

// DistributionPolicy returns the length classes and minimums.
func (c *Config) DistributionPolicy() check.DistributionPolicy {
	return check.DistributionPolicy{Classes: c.Distribution.Classes, Minimums: c.Distribution.Minimums}
}

// Detector builds the swap detector with the configured overrides.
func (c *Config) Detector() *langid.Detector {
	d := langid.NewDetector(langid.NewScorer(c.LangID.Profile), c.LangID.Margin, c.LangID.Uncertainty)
	d.Overrides = c.LangID.Overrides
	return d
}
