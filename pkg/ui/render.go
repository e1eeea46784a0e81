package ui

import (
	"fmt"
	"strings"

	"github.com/user/nessus-authcheck/pkg/engine"
	"github.com/user/nessus-authcheck/pkg/pipeline"
)

func line(sb *strings.Builder, label string, value interface{}) {
	sb.WriteString(LabelStyle.Render(label))
	sb.WriteString(ValueStyle.Render(fmt.Sprint(value)))
	sb.WriteString("\n")
}

// RenderReport summarizes a finished run
func RenderReport(rep *pipeline.Report) string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Nessus Authentication Check"))
	sb.WriteString("\n\n")

	line(&sb, "Run", rep.RunID)
	line(&sb, "Input files", len(rep.Inputs))
	line(&sb, "Processed", len(rep.Processed))
	line(&sb, "Skipped", len(rep.Failed))
	line(&sb, "Findings", len(rep.Records))
	line(&sb, "Auth errors", len(rep.Errors))
	line(&sb, "Workbook", rep.Workbook)
	line(&sb, "JSON export", rep.JSON)
	if rep.Archive != "" {
		line(&sb, "Archive", rep.Archive)
	}

	if len(rep.Failed) > 0 {
		sb.WriteString(SectionStyle.Render("Skipped files"))
		sb.WriteString("\n")
		for _, f := range rep.Failed {
			sb.WriteString(WarningStyle.Render("  [!] " + f.Error()))
			sb.WriteString("\n")
		}
	}

	if !rep.Classified {
		sb.WriteString("\n")
		sb.WriteString(WarningStyle.Render("No output to process."))
		sb.WriteString("\n")
	} else if len(rep.Errors) == 0 {
		sb.WriteString("\n")
		sb.WriteString(SuccessStyle.Render("No authentication errors found."))
		sb.WriteString("\n")
	} else {
		sb.WriteString(SectionStyle.Render("Hosts with authentication errors"))
		sb.WriteString("\n")
		for _, h := range countByHost(rep.Errors) {
			sb.WriteString(ErrorStyle.Render(fmt.Sprintf("  [x] %s", h.host)))
			sb.WriteString(MutedStyle.Render(fmt.Sprintf(" (%d)", h.count)))
			sb.WriteString("\n")
		}
	}

	if rep.Diff != nil {
		sb.WriteString(RenderDiff(*rep.Diff))
	}
	return sb.String()
}

type hostCount struct {
	host  string
	count int
}

func countByHost(errs []engine.ClassifiedError) []hostCount {
	var out []hostCount
	idx := make(map[string]int)
	for _, e := range errs {
		i, ok := idx[e.HostAddress]
		if !ok {
			i = len(out)
			idx[e.HostAddress] = i
			out = append(out, hostCount{host: e.HostAddress})
		}
		out[i].count++
	}
	return out
}

// RenderDiff prints a baseline comparison
func RenderDiff(diff engine.SnapshotDiff) string {
	var sb strings.Builder
	sb.WriteString(SectionStyle.Render("Baseline comparison"))
	sb.WriteString("\n")

	sb.WriteString(ErrorStyle.Render(fmt.Sprintf("NEW: %d", len(diff.New))))
	sb.WriteString("\n")
	for _, e := range diff.New {
		sb.WriteString(fmt.Sprintf("  [+] %s:%d %s - %s\n", e.HostAddress, e.Port, e.PluginName, e.Message))
	}
	sb.WriteString(SuccessStyle.Render(fmt.Sprintf("FIXED: %d", len(diff.Fixed))))
	sb.WriteString("\n")
	for _, e := range diff.Fixed {
		sb.WriteString(fmt.Sprintf("  [-] %s:%d %s - %s\n", e.HostAddress, e.Port, e.PluginName, e.Message))
	}
	sb.WriteString(MutedStyle.Render(fmt.Sprintf("UNCHANGED: %d", len(diff.Unchanged))))
	sb.WriteString("\n")
	return sb.String()
}

// RenderRules lists the known-bad plugins and the extractors in order
func RenderRules(rs *engine.RuleSet) string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render(fmt.Sprintf("Rule set v%d", rs.Version)))
	sb.WriteString("\n")

	sb.WriteString(SectionStyle.Render(fmt.Sprintf("Known-bad plugins (%d)", len(rs.Plugins))))
	sb.WriteString("\n")
	for _, p := range rs.Plugins {
		sb.WriteString(fmt.Sprintf("  %-8d %s\n", p.ID, p.Name))
		if p.Description != "" {
			sb.WriteString(MutedStyle.Render("           " + p.Description))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(SectionStyle.Render(fmt.Sprintf("Extractors (%d, in order)", len(rs.Extractors()))))
	sb.WriteString("\n")
	for i, x := range rs.Extractors() {
		sb.WriteString(fmt.Sprintf("  %d. %-18s %s\n", i+1, x.Name, x.Pattern))
	}
	return sb.String()
}
