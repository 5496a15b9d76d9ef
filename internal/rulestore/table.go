package rulestore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/digggggmori-pixel/ferret-evtx/internal/logger"
)

// ErrEmptyPattern is returned for a rule row without a pattern
var ErrEmptyPattern = errors.New("empty pattern")

// LoadRuleTable reads a three-column CSV table (domain, regex, description).
// The first row is a header. Rows that fail to parse or compile are skipped
// with a warning; the remaining rows keep their file order.
func LoadRuleTable(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule table: %w", err)
	}
	defer f.Close()

	return ParseRuleTable(f, path)
}

// ParseRuleTable parses a rule table from r. source is used in diagnostics.
func ParseRuleTable(r io.Reader, source string) ([]Rule, error) {
	rows, err := readRows(r, source)
	if err != nil {
		return nil, err
	}

	var rules []Rule
	for i, row := range rows {
		rule, err := parseRuleRow(row)
		if err != nil {
			logger.Warn("%s row %d skipped: %v", source, i+2, err)
			continue
		}
		if rule.Description == "" {
			continue
		}
		rule.Source = source
		rules = append(rules, rule)
	}
	logger.RuleInfo(source, len(rules))
	return rules, nil
}

func parseRuleRow(row []string) (Rule, error) {
	if len(row) < 3 {
		return Rule{}, fmt.Errorf("expected 3 columns, got %d", len(row))
	}
	domain, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return Rule{}, fmt.Errorf("invalid domain %q: %w", row[0], err)
	}
	if row[1] == "" {
		return Rule{}, ErrEmptyPattern
	}
	re, err := regexp.Compile(row[1])
	if err != nil {
		return Rule{}, fmt.Errorf("invalid pattern: %w", err)
	}
	return Rule{Domain: domain, Pattern: re, Description: row[2]}, nil
}

// LoadWhitelist reads a one-column CSV table of whitelist patterns.
// The first row is a header.
func LoadWhitelist(path string) ([]*regexp.Regexp, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open whitelist: %w", err)
	}
	defer f.Close()

	return ParseWhitelist(f, path)
}

// ParseWhitelist parses a whitelist table from r
func ParseWhitelist(r io.Reader, source string) ([]*regexp.Regexp, error) {
	rows, err := readRows(r, source)
	if err != nil {
		return nil, err
	}

	var out []*regexp.Regexp
	for i, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		re, err := regexp.Compile(row[0])
		if err != nil {
			logger.Warn("%s row %d skipped: %v", source, i+2, err)
			continue
		}
		out = append(out, re)
	}
	logger.RuleInfo(source, len(out))
	return out, nil
}

// readRows returns every data row after the header. Individual malformed
// records are skipped.
func readRows(r io.Reader, source string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	header := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				logger.Warn("%s: %v", source, err)
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", source, err)
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, rec)
	}
	return rows, nil
}
