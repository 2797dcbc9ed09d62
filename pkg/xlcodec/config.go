// Package xlcodec reads and writes OOXML spreadsheet packages.
package xlcodec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"gopkg.in/yaml.v3"
)

// Compression selects how package entries are stored.
type Compression string

const (
	// CompressionDeflate compresses every entry with deflate.
	CompressionDeflate Compression = "deflate"
	// CompressionStore stores every entry uncompressed.
	CompressionStore Compression = "store"
)

// Strategy selects how worksheet and shared-strings parts are produced.
type Strategy string

const (
	// StrategyStream writes events straight to the package entry.
	StrategyStream Strategy = "stream"
	// StrategyTree builds each part in memory before serializing it.
	StrategyTree Strategy = "tree"
)

// Preset names a ready-made Config.
type Preset string

const (
	// PresetDefault is compressed, compact output.
	PresetDefault Preset = "default"
	// PresetDebug is uncompressed, indented output for inspection.
	PresetDebug Preset = "debug"
	// PresetSmallest trades speed for the best compression.
	PresetSmallest Preset = "smallest"
)

// ConfigFileName is the file LoadConfig looks for in a directory.
const ConfigFileName = "xlcodec.yaml"

// Config controls package output. The zero value is the default preset.
type Config struct {
	// Compression applies to every entry. Empty means deflate.
	Compression Compression `yaml:"compression"`
	// Pretty indents the XML parts.
	Pretty bool `yaml:"pretty"`
	// Strategy for worksheets and shared strings. Empty means stream.
	Strategy Strategy `yaml:"strategy"`
	// InlineStrings stores text in the cells instead of a shared strings part.
	InlineStrings bool `yaml:"inline_strings"`
	// Level is the deflate level, 1 to 9. Zero means the library default.
	Level int `yaml:"level"`
}

// ConfigForPreset returns the Config a preset names.
func ConfigForPreset(p Preset) (Config, error) {
	switch p {
	case PresetDefault, "":
		return Config{}, nil
	case PresetDebug:
		return Config{Compression: CompressionStore, Pretty: true}, nil
	case PresetSmallest:
		return Config{Compression: CompressionDeflate, Level: flate.BestCompression}, nil
	}
	return Config{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, p)
}

// DebugConfig is the debug preset: stored entries and indented XML.
func DebugConfig() Config {
	c, _ := ConfigForPreset(PresetDebug)
	return c
}

// configFile is the YAML shape: a preset plus optional overrides.
type configFile struct {
	Preset        Preset       `yaml:"preset"`
	Compression   *Compression `yaml:"compression"`
	Pretty        *bool        `yaml:"pretty"`
	Strategy      *Strategy    `yaml:"strategy"`
	InlineStrings *bool        `yaml:"inline_strings"`
	Level         *int         `yaml:"level"`
}

// ParseConfig reads a YAML configuration: an optional preset followed by
// individual overrides.
//
//	preset: debug
//	strategy: tree
func ParseConfig(data []byte) (Config, error) {
	var f configFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg, err := ConfigForPreset(f.Preset)
	if err != nil {
		return Config{}, err
	}
	if f.Compression != nil {
		cfg.Compression = *f.Compression
	}
	if f.Pretty != nil {
		cfg.Pretty = *f.Pretty
	}
	if f.Strategy != nil {
		cfg.Strategy = *f.Strategy
	}
	if f.InlineStrings != nil {
		cfg.InlineStrings = *f.InlineStrings
	}
	if f.Level != nil {
		cfg.Level = *f.Level
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads path, which may be a YAML file or a directory holding
// ConfigFileName.
func LoadConfig(path string) (Config, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ConfigFileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, ErrConfigNotFound
		}
		return Config{}, err
	}
	return ParseConfig(data)
}

// Validate reports settings with no meaning.
func (c Config) Validate() error {
	switch c.Compression {
	case "", CompressionDeflate, CompressionStore:
	default:
		return fmt.Errorf("%w: unknown compression %q", ErrInvalidConfig, c.Compression)
	}
	switch c.Strategy {
	case "", StrategyStream, StrategyTree:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}
	if c.Level != 0 && (c.Level < flate.BestSpeed || c.Level > flate.BestCompression) {
		return fmt.Errorf("%w: deflate level %d outside 1..9", ErrInvalidConfig, c.Level)
	}
	if c.Level != 0 && c.Compression == CompressionStore {
		return fmt.Errorf("%w: deflate level set with stored entries", ErrInvalidConfig)
	}
	return nil
}

// Compressed reports whether entries are deflated.
func (c Config) Compressed() bool {
	return c.Compression != CompressionStore
}

// Streaming reports whether worksheets are written with the emitter.
func (c Config) Streaming() bool {
	return c.Strategy != StrategyTree
}

func (c Config) level() int {
	if c.Level == 0 {
		return flate.DefaultCompression
	}
	return c.Level
}
