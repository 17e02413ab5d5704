package formatting

import (
	"fmt"
	"strings"

	"github.com/scimma/lsst-quality-filter/internal/engine"
	"github.com/scimma/lsst-quality-filter/internal/types"
)

const rule = "────────────────────────\n"

// FormatLocus renders the header printed before a filter run.
func FormatLocus(locus *types.Locus) string {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("  Locus ID : %s\n", locus.ID))
	output.WriteString(fmt.Sprintf("  RA       : %v\n", locus.RA))
	output.WriteString(fmt.Sprintf("  Dec      : %v\n", locus.Dec))
	output.WriteString(fmt.Sprintf("  Alerts   : %d\n", len(locus.Alerts)))

	return output.String()
}

func FormatReport(report *engine.Report) string {
	var output strings.Builder

	output.WriteString("\nLOCUS\n")
	output.WriteString(rule)
	output.WriteString(fmt.Sprintf("%s\n", report.LocusID))
	if report.AlertID != "" {
		output.WriteString(fmt.Sprintf("Latest alert: %s\n", report.AlertID))
	}
	output.WriteString("\n")

	output.WriteString("FILTER\n")
	output.WriteString(rule)
	output.WriteString(fmt.Sprintf("%s -> %s\n\n", report.Filter, report.OutputTag))

	output.WriteString("DECISION\n")
	output.WriteString(rule)
	switch {
	case report.Error != "":
		output.WriteString(fmt.Sprintf("ERROR: %s\n\n", report.Error))
	case report.Passed:
		output.WriteString("passed all quality cuts\n\n")
	default:
		output.WriteString(fmt.Sprintf("rejected by %s: %s\n\n", report.Check, report.Reason))
	}

	output.WriteString("NEW TAGS\n")
	output.WriteString(rule)
	if len(report.NewTags) == 0 {
		output.WriteString("(none)\n")
	}
	for _, tag := range report.NewTags {
		output.WriteString(fmt.Sprintf("✓ %s\n", tag))
	}

	return output.String()
}

// VerdictLine is the one-line outcome printed after a report.
func VerdictLine(report *engine.Report) string {
	for _, tag := range report.NewTags {
		if tag == report.OutputTag {
			return fmt.Sprintf("PASS: locus tagged '%s'", report.OutputTag)
		}
	}
	return "REJECT: locus was not tagged"
}

func GenerateSummary(reports []engine.Report) map[string]interface{} {
	summary := map[string]interface{}{
		"total":    len(reports),
		"passed":   0,
		"rejected": 0,
		"errors":   0,
		"by_check": make(map[string]int),
	}

	for _, r := range reports {
		switch {
		case r.Error != "":
			summary["errors"] = summary["errors"].(int) + 1
		case r.Passed:
			summary["passed"] = summary["passed"].(int) + 1
		default:
			summary["rejected"] = summary["rejected"].(int) + 1
			byCheck := summary["by_check"].(map[string]int)
			byCheck[string(r.Check)]++
		}
	}

	return summary
}
