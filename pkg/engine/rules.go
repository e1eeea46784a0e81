package engine

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// PluginRule describes a plugin known to signal a credential or privilege failure
type PluginRule struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ExtractorRule is a named free-text pattern applied to known-bad plugin output
type ExtractorRule struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`
}

// RuleFile is the on-disk form of a rule set
type RuleFile struct {
	Version        int             `yaml:"version"`
	MessagePattern string          `yaml:"message_pattern"`
	Plugins        []PluginRule    `yaml:"plugins"`
	Extractors     []ExtractorRule `yaml:"extractors"`
}

// Extractor is a compiled ExtractorRule
type Extractor struct {
	ExtractorRule
	re *regexp.Regexp
}

// Match returns one message per match of the pattern in text.
// Patterns without groups yield the whole match, a single group yields the
// group, several groups yield a tuple rendering of all of them.
func (e Extractor) Match(text string) []string {
	matches := e.re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		groups := m[1:]
		switch len(groups) {
		case 0:
			out = append(out, strings.TrimSpace(m[0]))
		case 1:
			out = append(out, strings.TrimSpace(groups[0]))
		default:
			out = append(out, formatTuple(groups))
		}
	}
	return out
}

func formatTuple(groups []string) string {
	quoted := make([]string, len(groups))
	for i, g := range groups {
		quoted[i] = fmt.Sprintf("%q", g)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// RuleSet holds the compiled classification rules
type RuleSet struct {
	Version    int
	Plugins    []PluginRule
	message    *regexp.Regexp
	knownBad   map[int]PluginRule
	extractors []Extractor
}

// DefaultRules returns the built-in rule set
func DefaultRules() (*RuleSet, error) {
	return ParseRules(defaultRules)
}

// LoadRulesFile reads a YAML rule set from the file system
func LoadRulesFile(fs afero.Fs, path string) (*RuleSet, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rules %s", path)
	}
	rs, err := ParseRules(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load rules %s", path)
	}
	return rs, nil
}

// ParseRules decodes and compiles a YAML rule set
func ParseRules(data []byte) (*RuleSet, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, errors.Wrap(err, "failed to parse rules")
	}
	return Compile(rf)
}

// Compile validates a RuleFile and compiles its patterns
func Compile(rf RuleFile) (*RuleSet, error) {
	if rf.MessagePattern == "" {
		return nil, errors.New("rules: message_pattern is required")
	}
	msg, err := regexp.Compile(rf.MessagePattern)
	if err != nil {
		return nil, errors.Wrap(err, "rules: invalid message_pattern")
	}
	if msg.NumSubexp() < 1 {
		return nil, errors.New("rules: message_pattern must capture the message text")
	}
	if len(rf.Extractors) == 0 {
		return nil, errors.New("rules: at least one extractor is required")
	}

	rs := &RuleSet{
		Version:  rf.Version,
		message:  msg,
		knownBad: make(map[int]PluginRule, len(rf.Plugins)),
	}

	for _, p := range rf.Plugins {
		if p.ID <= 0 {
			return nil, errors.Errorf("rules: plugin id must be positive (got %d)", p.ID)
		}
		if _, dup := rs.knownBad[p.ID]; dup {
			return nil, errors.Errorf("rules: duplicate plugin id %d", p.ID)
		}
		rs.knownBad[p.ID] = p
		rs.Plugins = append(rs.Plugins, p)
	}
	sort.SliceStable(rs.Plugins, func(i, j int) bool { return rs.Plugins[i].ID < rs.Plugins[j].ID })

	seen := make(map[string]bool, len(rf.Extractors))
	for _, x := range rf.Extractors {
		if x.Name == "" {
			return nil, errors.New("rules: extractor name is required")
		}
		if seen[x.Name] {
			return nil, errors.Errorf("rules: duplicate extractor %q", x.Name)
		}
		seen[x.Name] = true

		re, err := regexp.Compile(x.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "rules: invalid pattern for extractor %q", x.Name)
		}
		rs.extractors = append(rs.extractors, Extractor{ExtractorRule: x, re: re})
	}
	return rs, nil
}

// IsKnownBad reports whether the plugin id is in the known-bad set
func (r *RuleSet) IsKnownBad(pluginID int) bool {
	_, ok := r.knownBad[pluginID]
	return ok
}

// Plugin returns the rule for a known-bad plugin id
func (r *RuleSet) Plugin(pluginID int) (PluginRule, bool) {
	p, ok := r.knownBad[pluginID]
	return p, ok
}

// Extractors returns the extractors in evaluation order
func (r *RuleSet) Extractors() []Extractor {
	return r.extractors
}

// Messages returns the trimmed "Message :" fragments found in text
func (r *RuleSet) Messages(text string) []string {
	matches := r.message.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// DefaultRulesYAML returns the YAML source of the built-in rule set
func DefaultRulesYAML() []byte {
	out := make([]byte, len(defaultRules))
	copy(out, defaultRules)
	return out
}
