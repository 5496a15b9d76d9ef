package rulestore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/digggggmori-pixel/ferret-evtx/internal/logger"
)

// RuleStore resolves rule sources and builds the Registry.
// Relative paths are looked up in the working directory first, then
// next to the executable.
type RuleStore struct {
	baseDirs []string
}

// NewRuleStore creates a new RuleStore
func NewRuleStore() *RuleStore {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if exe := execDir(); len(dirs) == 0 || exe != dirs[0] {
		dirs = append(dirs, exe)
	}
	return &RuleStore{baseDirs: dirs}
}

// NewRuleStoreAt creates a RuleStore resolving relative paths against dirs
func NewRuleStoreAt(dirs ...string) *RuleStore {
	return &RuleStore{baseDirs: dirs}
}

// Resolve returns the first existing candidate for path. If none exists,
// the first candidate is returned so diagnostics name a concrete path.
func (rs *RuleStore) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	var first string
	for _, dir := range rs.baseDirs {
		c := filepath.Join(dir, path)
		if first == "" {
			first = c
		}
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	if first == "" {
		return path
	}
	return first
}

// LoadConfig loads the config file, falling back to defaults with a
// warning when it is missing or malformed.
func (rs *RuleStore) LoadConfig(path string) Config {
	resolved := rs.Resolve(path)
	cfg, err := LoadConfig(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("No config at %s, using defaults", resolved)
		} else {
			logger.Notice("%v (using defaults)", err)
		}
	}
	return cfg
}

// Build loads every configured rule source. Each source fails open: an
// unreadable or malformed source contributes nothing and is reported as a
// warning.
func (rs *RuleStore) Build(cfg Config) *Registry {
	logger.Section("Rule Loading")

	var rules []Rule
	if cfg.Regexes != "" {
		path := rs.Resolve(cfg.Regexes)
		loaded, err := LoadRuleTable(path)
		if err != nil {
			logger.Notice("%s not found or unreadable, %v", path, err)
		}
		rules = append(rules, loaded...)
	}

	if cfg.RulesDir != "" {
		dir := rs.Resolve(cfg.RulesDir)
		loaded, err := LoadYAMLRules(dir)
		if err != nil {
			logger.Debug("YAML rules skipped: %v", err)
		}
		rules = append(rules, loaded...)
	}

	var whitelist []*regexp.Regexp
	if cfg.Whitelist != "" {
		path := rs.Resolve(cfg.Whitelist)
		loaded, err := LoadWhitelist(path)
		if err != nil {
			logger.Notice("%s not found or unreadable, %v", path, err)
		}
		whitelist = loaded
	}

	reg := NewRegistry(rules, whitelist)
	logger.Info("Registry built: %d rules, %d whitelist patterns", reg.RuleCount(), reg.WhitelistCount())
	return reg
}

// execDir returns the directory containing the current executable.
// Falls back to "." if the executable path cannot be determined.
func execDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
