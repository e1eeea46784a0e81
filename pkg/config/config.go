package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LogConfig controls the logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

type Config struct {
	InputDir     string    `mapstructure:"input_dir" yaml:"input_dir" validate:"required"`
	Extension    string    `mapstructure:"extension" yaml:"extension" validate:"required,startswith=."`
	OutputDir    string    `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	Workbook     string    `mapstructure:"workbook" yaml:"workbook" validate:"required,endswith=.xlsx"`
	JSONExport   string    `mapstructure:"json_export" yaml:"json_export" validate:"required"`
	RecordsSheet string    `mapstructure:"records_sheet" yaml:"records_sheet" validate:"required,max=31,nefield=ErrorsSheet"`
	ErrorsSheet  string    `mapstructure:"errors_sheet" yaml:"errors_sheet" validate:"required,max=31"`
	RulesFile    string    `mapstructure:"rules_file" yaml:"rules_file,omitempty"`
	Database     string    `mapstructure:"database" yaml:"database,omitempty"`
	DumpTrees    bool      `mapstructure:"dump_trees" yaml:"dump_trees"`
	KeepDumps    bool      `mapstructure:"keep_dumps" yaml:"keep_dumps"`
	Log          LogConfig `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		InputDir:     ".",
		Extension:    ".nessus",
		OutputDir:    ".",
		Workbook:     "output_combined.xlsx",
		JSONExport:   "params.json",
		RecordsSheet: "Findings",
		ErrorsSheet:  "Errors",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// GetConfigPath returns the default config file location
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nessus-authcheck", "config.yaml"), nil
}

// SaveConfig writes cfg as YAML to path, creating its directory
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
