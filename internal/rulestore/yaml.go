package rulestore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/digggggmori-pixel/ferret-evtx/internal/fsutil"
	"github.com/digggggmori-pixel/ferret-evtx/internal/logger"
	"gopkg.in/yaml.v3"
)

// yamlRule is one YAML rule document. Documents without enabled: true
// are ignored.
type yamlRule struct {
	Title       string `yaml:"title"`
	Enabled     bool   `yaml:"enabled"`
	Domain      int    `yaml:"domain"`
	Regex       string `yaml:"regex"`
	Description string `yaml:"description"`
}

// LoadYAMLRules reads every .yml/.yaml file below dir. The tree is walked
// with an explicit stack, files are visited in lexical order per
// directory. Files that cannot be read or parsed are skipped with a
// warning. A missing dir yields no rules and an error.
func LoadYAMLRules(dir string) ([]Rule, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("rules dir %s is not a directory", dir)
	}

	var rules []Rule
	for _, path := range fsutil.WalkFiles(dir, fsutil.HasExt(".yml", ".yaml")) {
		fileRules, err := loadYAMLFile(path)
		if err != nil {
			logger.Notice("fail to read rule file: %s, %v", path, err)
			continue
		}
		rules = append(rules, fileRules...)
	}
	logger.RuleInfo(dir, len(rules))
	return rules, nil
}

func loadYAMLFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseYAMLRules(data, path)
}

func parseYAMLRules(data []byte, source string) ([]Rule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var rules []Rule
	for {
		var doc yamlRule
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
		if !doc.Enabled {
			continue
		}
		if doc.Regex == "" || doc.Description == "" {
			logger.Warn("%s: rule %q missing regex or description", source, doc.Title)
			continue
		}
		re, err := regexp.Compile(doc.Regex)
		if err != nil {
			logger.Warn("%s: rule %q invalid pattern: %v", source, doc.Title, err)
			continue
		}
		rules = append(rules, Rule{
			Domain:      doc.Domain,
			Pattern:     re,
			Description: doc.Description,
			Source:      source,
		})
	}
	return rules, nil
}
