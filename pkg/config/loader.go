package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. AUTHCHECK_LOG_LEVEL
const EnvPrefix = "AUTHCHECK"

// Load reads configuration from path, or from the default location when
// path is empty. A missing default file yields the defaults. Environment
// variables override file values. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		p, err := GetConfigPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		_, statErr := os.Stat(path)
		switch {
		case statErr == nil:
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "failed to read config file %s", path)
			}
		case explicit:
			return nil, errors.Wrapf(statErr, "config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := NewValidator().Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("input_dir", d.InputDir)
	v.SetDefault("extension", d.Extension)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("workbook", d.Workbook)
	v.SetDefault("json_export", d.JSONExport)
	v.SetDefault("records_sheet", d.RecordsSheet)
	v.SetDefault("errors_sheet", d.ErrorsSheet)
	v.SetDefault("rules_file", d.RulesFile)
	v.SetDefault("database", d.Database)
	v.SetDefault("dump_trees", d.DumpTrees)
	v.SetDefault("keep_dumps", d.KeepDumps)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}
