package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML config file. Pointer fields distinguish
// "unset" from the zero value.
type FileConfig struct {
	OutDir        string `yaml:"out_dir"`
	BaseURL       string `yaml:"base_url"`
	Floor         string `yaml:"floor"`
	Retries       *int   `yaml:"retries"`
	Timeout       string `yaml:"timeout"`
	Debug         *bool  `yaml:"debug"`
	NoUpdateCheck *bool  `yaml:"no_update_check"`
}

func Load(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config: %w", err)
	}

	return FromString(string(raw))
}

func FromString(s string) (FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal([]byte(s), &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config YAML: %w", err)
	}
	return cfg, nil
}
