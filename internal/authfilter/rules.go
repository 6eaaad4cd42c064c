package authfilter

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed denylist.yaml
var defaultDenylist []byte

// Rule rejects text containing Phrase or matching Pattern. Exactly one of
// the two is set.
type Rule struct {
	Phrase  string `yaml:"phrase,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
	Reason  string `yaml:"reason"`
}

func (r Rule) String() string {
	if r.Phrase != "" {
		return r.Phrase
	}
	return r.Pattern
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules returns the embedded denylist.
func DefaultRules() []Rule {
	rules, err := parseRules(defaultDenylist)
	if err != nil {
		panic(fmt.Sprintf("embedded denylist: %v", err))
	}
	return rules
}

// LoadRules reads a denylist file. An empty path returns DefaultRules.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading denylist: %w", err)
	}
	rules, err := parseRules(data)
	if err != nil {
		return nil, fmt.Errorf("denylist %s: %w", path, err)
	}
	return rules, nil
}

func parseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	for i, r := range f.Rules {
		if (r.Phrase == "") == (r.Pattern == "") {
			return nil, fmt.Errorf("rule %d: exactly one of phrase or pattern is required", i)
		}
		if strings.TrimSpace(r.Reason) == "" {
			return nil, fmt.Errorf("rule %d (%s): reason is required", i, r)
		}
	}
	return f.Rules, nil
}

type compiledRule struct {
	rule   Rule
	phrase string
	re     *regexp.Regexp
}

func compile(rules []Rule) ([]compiledRule, error) {
	var errs []error
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		c := compiledRule{rule: r}
		if r.Phrase != "" {
			c.phrase = strings.ToLower(r.Phrase)
		} else {
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				errs = append(errs, fmt.Errorf("pattern %q: %w", r.Pattern, err))
				continue
			}
			c.re = re
		}
		out = append(out, c)
	}
	return out, errors.Join(errs...)
}

func (c compiledRule) match(lower, original string) bool {
	if c.re != nil {
		return c.re.MatchString(original)
	}
	return strings.Contains(lower, c.phrase)
}
