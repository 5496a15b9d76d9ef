package rulestore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the conventional config location
const DefaultConfigFile = "configs.yml"

// Config holds detection settings read from configs.yml
type Config struct {
	MinLength     int    `yaml:"minlength"`
	CheckUnsigned bool   `yaml:"check_unsigned"`
	Regexes       string `yaml:"regexes"`
	Whitelist     string `yaml:"whitelist"`
	RulesDir      string `yaml:"rules_dir"`
	CacheSize     int    `yaml:"cache_size"`
}

// DefaultConfig returns the default detection configuration
func DefaultConfig() Config {
	return Config{
		MinLength:     1000,
		CheckUnsigned: false,
		Regexes:       "rules/regexes.txt",
		Whitelist:     "rules/whitelist.txt",
		RulesDir:      "rules/yaml",
		CacheSize:     4096,
	}
}

// LoadConfig reads a YAML config file over the defaults. On any error the
// returned Config is still usable: it holds the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	loaded := DefaultConfig()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if loaded.MinLength <= 0 {
		loaded.MinLength = cfg.MinLength
	}
	if loaded.CacheSize < 0 {
		loaded.CacheSize = 0
	}
	return loaded, nil
}
