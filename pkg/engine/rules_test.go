package engine

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)

	for _, id := range []int{110385, 24786, 110723, 135860, 21745, 104410, 117885, 26917, 10428, 50350} {
		assert.True(t, rules.IsKnownBad(id), "plugin %d", id)
	}
	assert.False(t, rules.IsKnownBad(19506))
	assert.Len(t, rules.Plugins, 10)
	assert.True(t, rules.Plugins[0].ID < rules.Plugins[len(rules.Plugins)-1].ID, "plugins sorted by id")

	var names []string
	for _, x := range rules.Extractors() {
		names = append(names, x.Name)
	}
	assert.Equal(t, []string{"credential_checks", "however", "no_credentials", "cant_connect", "unable", "error_occurred"}, names)

	p, ok := rules.Plugin(24786)
	require.True(t, ok)
	assert.Contains(t, p.Name, "Admin Privileges")
}

func TestDefaultRulesYAMLRoundTrip(t *testing.T) {
	rules, err := ParseRules(DefaultRulesYAML())
	require.NoError(t, err)
	assert.Len(t, rules.Plugins, 10)
}

func TestCompileErrors(t *testing.T) {
	valid := func() RuleFile {
		return RuleFile{
			MessagePattern: `Message:(.*)`,
			Plugins:        []PluginRule{{ID: 1}},
			Extractors:     []ExtractorRule{{Name: "x", Pattern: `x`}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*RuleFile)
	}{
		{"no message pattern", func(rf *RuleFile) { rf.MessagePattern = "" }},
		{"invalid message pattern", func(rf *RuleFile) { rf.MessagePattern = "(" }},
		{"message pattern without group", func(rf *RuleFile) { rf.MessagePattern = "Message:" }},
		{"no extractors", func(rf *RuleFile) { rf.Extractors = nil }},
		{"zero plugin id", func(rf *RuleFile) { rf.Plugins = []PluginRule{{ID: 0}} }},
		{"duplicate plugin", func(rf *RuleFile) { rf.Plugins = []PluginRule{{ID: 7}, {ID: 7}} }},
		{"unnamed extractor", func(rf *RuleFile) { rf.Extractors = []ExtractorRule{{Pattern: "x"}} }},
		{"duplicate extractor", func(rf *RuleFile) {
			rf.Extractors = []ExtractorRule{{Name: "a", Pattern: "x"}, {Name: "a", Pattern: "y"}}
		}},
		{"invalid extractor pattern", func(rf *RuleFile) { rf.Extractors = []ExtractorRule{{Name: "a", Pattern: "[a"}} }},
	}

	_, err := Compile(valid())
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf := valid()
			tt.mutate(&rf)
			_, err := Compile(rf)
			assert.Error(t, err)
		})
	}
}

func TestLoadRulesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	custom := `version: 2
message_pattern: 'Error:\s*(.+)'
plugins:
  - id: 99999
    name: Custom
extractors:
  - name: denied
    pattern: 'denied'
`
	require.NoError(t, afero.WriteFile(fs, "/etc/rules.yaml", []byte(custom), 0644))

	rules, err := LoadRulesFile(fs, "/etc/rules.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, rules.Version)
	assert.True(t, rules.IsKnownBad(99999))
	assert.False(t, rules.IsKnownBad(24786))
	assert.Equal(t, []string{"boom"}, rules.Messages("Error: boom"))

	_, err = LoadRulesFile(fs, "/etc/missing.yaml")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/etc/bad.yaml", []byte("plugins: ["), 0644))
	_, err = LoadRulesFile(fs, "/etc/bad.yaml")
	assert.Error(t, err)
}

func TestExtractorMatch(t *testing.T) {
	rules, err := Compile(RuleFile{
		MessagePattern: `M:(.*)`,
		Extractors: []ExtractorRule{
			{Name: "whole", Pattern: `fail\w*`},
			{Name: "one", Pattern: `code=(\d+)`},
			{Name: "two", Pattern: `(\w+)@(\w+)`},
		},
	})
	require.NoError(t, err)

	x := rules.Extractors()
	assert.Equal(t, []string{"failed", "failure"}, x[0].Match("failed then failure"))
	assert.Equal(t, []string{"5", "17"}, x[1].Match("code=5 code=17"))
	assert.Equal(t, []string{`("root", "host")`}, x[2].Match("root@host"))
	assert.Nil(t, x[0].Match("ok"))
}
