// Package config holds converter settings loaded from yaml and command line flags.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging  LoggingConfig `yaml:"logging"`
	Import   ImportConfig  `yaml:"import"`
	Export   ExportConfig  `yaml:"export"`
	Lod      LodConfig     `yaml:"lod"`
	Encoding string        `yaml:"encoding"`
	Server   ServerConfig  `yaml:"server"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ImportConfig controls the interchange document reader.
type ImportConfig struct {
	// Authoring tools (matched by prefix of the document's authoring_tool)
	// whose material symbols carry a "-material" suffix that must be removed.
	StripMaterialSuffixTools []string `yaml:"strip_material_suffix_tools"`
	StripMaterialSuffix      bool     `yaml:"strip_material_suffix"`
}

type ExportConfig struct {
	AuthoringTool string `yaml:"authoring_tool"`
	Author        string `yaml:"author"`
}

// LodConfig controls generated level-of-detail switch distances.
type LodConfig struct {
	FirstCutoff float32 `yaml:"first_cutoff"`
	FarDistance float32 `yaml:"far_distance"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Import: ImportConfig{
			StripMaterialSuffixTools: []string{"vmeshconv"},
			StripMaterialSuffix:      true,
		},
		Export: ExportConfig{
			AuthoringTool: "vmeshconv",
			Author:        "vmeshconv user",
		},
		Lod: LodConfig{
			FirstCutoff: 2250,
			FarDistance: 1000000,
		},
		Encoding: DefaultEncoding,
		Server: ServerConfig{
			Addr: ":8000",
		},
	}
}

// Load returns defaults merged with the yaml file at path. Empty path means defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read config %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Invalid config %q", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Lod.FirstCutoff <= 0 {
		return errors.Errorf("lod.first_cutoff must be positive, got %v", c.Lod.FirstCutoff)
	}
	if c.Lod.FarDistance <= c.Lod.FirstCutoff {
		return errors.Errorf("lod.far_distance %v must be greater than lod.first_cutoff %v",
			c.Lod.FarDistance, c.Lod.FirstCutoff)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if _, err := findEncoding(c.Encoding); err != nil {
		return err
	}
	return nil
}

// Apply activates process-wide settings (name encoding).
func (c *Config) Apply() error {
	return SetEncoding(c.Encoding)
}
