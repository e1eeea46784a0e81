package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/nessus-authcheck/pkg/engine"
	"github.com/user/nessus-authcheck/pkg/pipeline"
)

func TestRenderReport(t *testing.T) {
	rep := &pipeline.Report{
		RunID:      "run-1",
		Classified: true,
		Errors: []engine.ClassifiedError{
			{HostAddress: "10.0.0.1"},
			{HostAddress: "10.0.0.2"},
			{HostAddress: "10.0.0.1"},
		},
		Diff: &engine.SnapshotDiff{New: []engine.ClassifiedError{{HostAddress: "10.0.0.2", Message: "denied"}}},
	}

	out := RenderReport(rep)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "10.0.0.1")
	assert.Contains(t, out, "(2)")
	assert.Contains(t, out, "NEW: 1")
	assert.Contains(t, out, "denied")
}

func TestRenderReportNothingToClassify(t *testing.T) {
	out := RenderReport(&pipeline.Report{RunID: "run-2"})
	assert.Contains(t, out, "No output to process.")
}

func TestCountByHost(t *testing.T) {
	counts := countByHost([]engine.ClassifiedError{
		{HostAddress: "b"}, {HostAddress: "a"}, {HostAddress: "b"},
	})
	assert.Equal(t, []hostCount{{host: "b", count: 2}, {host: "a", count: 1}}, counts)
}

func TestRenderRules(t *testing.T) {
	rules, err := engine.DefaultRules()
	require.NoError(t, err)

	out := RenderRules(rules)
	assert.Contains(t, out, "24786")
	assert.Contains(t, out, "however")
}
