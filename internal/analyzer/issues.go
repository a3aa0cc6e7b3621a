package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"modelprof-mcp/internal/optable"
)

// Issue is a heuristic finding about the profiled model.
type Issue struct {
	Severity    string // "Critical", "High", "Medium", "Low"
	Category    string // e.g. "Cost Hotspot", "Accelerator Fallback"
	Description string
	OperatorID  string
	Impact      float64 // % of total cost
}

// DetectIssues identifies potential performance problems from the table.
func DetectIssues(table *optable.Table) []Issue {
	issues := []Issue{}

	// Operations dominating the estimated cost.
	for _, hs := range FindHotspots(table, 10) {
		if hs.Percentage > 20.0 {
			issues = append(issues, Issue{
				Severity:    "Critical",
				Category:    "Cost Hotspot",
				Description: fmt.Sprintf("Operation %s consumes %.2f%% of estimated model cost", hs.OperatorName, hs.Percentage),
				OperatorID:  hs.OperatorID,
				Impact:      hs.Percentage,
			})
		} else if hs.Percentage > 10.0 {
			issues = append(issues, Issue{
				Severity:    "High",
				Category:    "Cost Hotspot",
				Description: fmt.Sprintf("Operation %s consumes %.2f%% of estimated model cost", hs.OperatorName, hs.Percentage),
				OperatorID:  hs.OperatorID,
				Impact:      hs.Percentage,
			})
		}
	}

	// Costly work pinned to the CPU even though an accelerator exists in
	// the graph.
	shares := DeviceShares(table)
	total := 0.0
	for _, c := range shares {
		total += c
	}
	if total > 0 && (shares["GPU"] > 0 || shares["ANE"] > 0) {
		cpuPct := shares["CPU"] / total * 100.0
		if cpuPct > 50.0 {
			issues = append(issues, Issue{
				Severity:    "Medium",
				Category:    "Accelerator Fallback",
				Description: fmt.Sprintf("%.2f%% of estimated cost prefers the CPU despite accelerator-capable operations", cpuPct),
				Impact:      cpuPct,
			})
		}
	}

	// Operations the accelerator backend explicitly complained about.
	for _, row := range table.Rows() {
		if row.ValidationMessage == "" || row.PreferredDevice == "ANE" {
			continue
		}
		if strings.Contains(strings.ToLower(row.ValidationMessage), "unsupported") {
			issues = append(issues, Issue{
				Severity:    "Low",
				Category:    "Backend Rejection",
				Description: fmt.Sprintf("Operation %s rejected by the accelerator: %s", row.OperatorName, row.ValidationMessage),
				OperatorID:  row.OperatorID,
				Impact:      row.Cost * 100.0,
			})
		}
	}

	// Sort by severity, then impact (descending)
	sort.Slice(issues, func(i, j int) bool {
		if severityRank[issues[i].Severity] != severityRank[issues[j].Severity] {
			return severityRank[issues[i].Severity] > severityRank[issues[j].Severity]
		}
		return issues[i].Impact > issues[j].Impact
	})

	return issues
}

var severityRank = map[string]int{
	"Critical": 4,
	"High":     3,
	"Medium":   2,
	"Low":      1,
}
