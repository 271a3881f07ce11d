package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/roi-annotator/pkg/classes"
	"github.com/menta2k/roi-annotator/pkg/export"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "ANNOTATOR_"

// Config holds the application configuration
type Config struct {
	Annotator AnnotatorConfig `yaml:"annotator"`
	Export    ExportConfig    `yaml:"export"`
	Vision    VisionConfig    `yaml:"vision"`
	Overlay   OverlayConfig   `yaml:"overlay"`
}

// AnnotatorConfig holds configuration for drawing and labelling
type AnnotatorConfig struct {
	Tolerance     float64  `yaml:"tolerance"`
	ClassOrdering string   `yaml:"class_ordering"`
	Classes       []string `yaml:"classes,omitempty"` // registered when a session starts
}

// ExportConfig holds configuration for dataset output
type ExportConfig struct {
	Format      string `yaml:"format"`
	OutputDir   string `yaml:"output_dir"`
	Concurrency int    `yaml:"concurrency"`
}

// VisionConfig holds configuration for model suggestions
type VisionConfig struct {
	Backend     string `yaml:"backend"` // ollama, llamacpp or saliency
	URL         string `yaml:"url,omitempty"`
	Model       string `yaml:"model"`
	SendFormat  string `yaml:"send_format"`
	SendSize    int    `yaml:"send_size"`
	SendQuality int    `yaml:"send_quality"`
}

// OverlayConfig holds configuration for rendered preview images
type OverlayConfig struct {
	Format   string `yaml:"format"`
	Quality  int    `yaml:"quality"`
	Lossless bool   `yaml:"lossless"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Annotator: AnnotatorConfig{
			Tolerance:     5,
			ClassOrdering: classes.OrderSorted.String(),
		},
		Export: ExportConfig{
			Format:      string(export.FormatYOLO),
			OutputDir:   "./annotations",
			Concurrency: 4,
		},
		Vision: VisionConfig{
			Backend:     "ollama",
			Model:       "openbmb/minicpm-v4.5",
			SendFormat:  "jpg",
			SendSize:    1536,
			SendQuality: 85,
		},
		Overlay: OverlayConfig{
			Format:  "png",
			Quality: 92,
		},
	}
}

// LoadFromFile loads configuration from a YAML file. Keys absent from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename if it exists and falls back to defaults otherwise.
// Environment overrides are applied in both cases.
func Load(filename string) (*Config, error) {
	config := Default()
	if filename != "" {
		loaded, err := LoadFromFile(filename)
		switch {
		case err == nil:
			config = loaded
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}
	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from ANNOTATOR_* variables found through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}

	if v, ok := lookup(EnvPrefix + "TOLERANCE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sTOLERANCE: %w", EnvPrefix, err)
		}
		c.Annotator.Tolerance = f
	}
	str("CLASS_ORDERING", &c.Annotator.ClassOrdering)
	if v, ok := lookup(EnvPrefix + "CLASSES"); ok && v != "" {
		c.Annotator.Classes = nil
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.Annotator.Classes = append(c.Annotator.Classes, name)
			}
		}
	}

	str("EXPORT_FORMAT", &c.Export.Format)
	str("OUTPUT_DIR", &c.Export.OutputDir)
	if err := num("CONCURRENCY", &c.Export.Concurrency); err != nil {
		return err
	}

	str("VISION_BACKEND", &c.Vision.Backend)
	str("VISION_URL", &c.Vision.URL)
	str("VISION_MODEL", &c.Vision.Model)
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Annotator.Tolerance < 0 {
		return fmt.Errorf("annotator.tolerance must not be negative")
	}

	if _, err := classes.ParseOrdering(c.Annotator.ClassOrdering); err != nil {
		return fmt.Errorf("annotator.class_ordering: %w", err)
	}

	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return fmt.Errorf("export.format: %w", err)
	}

	if c.Export.Concurrency < 1 {
		return fmt.Errorf("export.concurrency must be positive")
	}

	switch c.Vision.Backend {
	case "ollama", "llamacpp", "saliency":
	default:
		return fmt.Errorf("vision.backend must be ollama, llamacpp or saliency")
	}

	switch c.Vision.SendFormat {
	case "jpg", "png":
	default:
		return fmt.Errorf("vision.send_format must be jpg or png")
	}

	if c.Vision.SendSize < 0 {
		return fmt.Errorf("vision.send_size must not be negative")
	}

	if c.Vision.SendQuality < 1 || c.Vision.SendQuality > 100 {
		return fmt.Errorf("vision.send_quality must be between 1 and 100")
	}

	switch c.Overlay.Format {
	case "png", "jpg", "webp":
	default:
		return fmt.Errorf("overlay.format must be png, jpg or webp")
	}

	if c.Overlay.Quality < 1 || c.Overlay.Quality > 100 {
		return fmt.Errorf("overlay.quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "roi-annotator", "config.yaml")
}
