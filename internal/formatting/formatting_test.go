package formatting

import (
	"strings"
	"testing"
	"time"

	"github.com/scimma/lsst-quality-filter/internal/engine"
	"github.com/scimma/lsst-quality-filter/internal/types"
)

const tag = "lsst_scimma_quality_transient"

func TestFormatReport_Passed(t *testing.T) {
	report := &engine.Report{
		Filter:      "lsst_transient_quality_filter_scimma",
		LocusID:     "ANT2026abcde",
		AlertID:     "lsst:1234",
		OutputTag:   tag,
		Passed:      true,
		NewTags:     []string{tag},
		EvaluatedAt: time.Now(),
	}

	out := FormatReport(report)

	for _, section := range []string{"LOCUS", "FILTER", "DECISION", "NEW TAGS"} {
		if !strings.Contains(out, section) {
			t.Errorf("Expected '%s' section in report", section)
		}
	}
	if !strings.Contains(out, "ANT2026abcde") {
		t.Error("Expected locus ID in report")
	}
	if !strings.Contains(out, "lsst:1234") {
		t.Error("Expected alert ID in report")
	}
	if !strings.Contains(out, "✓ "+tag) {
		t.Error("Expected new tag in report")
	}
	if !strings.Contains(out, "passed all quality cuts") {
		t.Error("Expected pass decision in report")
	}
}

func TestFormatReport_Rejected(t *testing.T) {
	report := &engine.Report{
		LocusID:   "ANT2026abcde",
		OutputTag: tag,
		Check:     engine.CheckEdge,
		Reason:    "lsst_diaSource_pixelFlags_edge is set",
		NewTags:   []string{},
	}

	out := FormatReport(report)

	if !strings.Contains(out, "rejected by pixel_edge") {
		t.Errorf("Expected rejection check in report, got:\n%s", out)
	}
	if !strings.Contains(out, "(none)") {
		t.Error("Expected empty new tags marker")
	}
}

func TestFormatReport_Error(t *testing.T) {
	report := &engine.Report{
		LocusID: "ANT2026abcde",
		Error:   "lsst_diaSource_snr: missing required field",
	}

	out := FormatReport(report)
	if !strings.Contains(out, "ERROR: lsst_diaSource_snr") {
		t.Errorf("Expected error in report, got:\n%s", out)
	}
}

func TestVerdictLine(t *testing.T) {
	passed := &engine.Report{OutputTag: tag, Passed: true, NewTags: []string{tag}}
	if got := VerdictLine(passed); got != "PASS: locus tagged '"+tag+"'" {
		t.Errorf("Unexpected verdict line: %s", got)
	}

	rejected := &engine.Report{OutputTag: tag, NewTags: []string{}}
	if got := VerdictLine(rejected); got != "REJECT: locus was not tagged" {
		t.Errorf("Unexpected verdict line: %s", got)
	}
}

func TestFormatLocus(t *testing.T) {
	locus := &types.Locus{
		ID:     "ANT2026abcde",
		RA:     150.25,
		Dec:    -30.5,
		Alerts: make([]types.Alert, 3),
	}

	out := FormatLocus(locus)
	for _, want := range []string{"Locus ID : ANT2026abcde", "RA       : 150.25", "Dec      : -30.5", "Alerts   : 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestGenerateSummary(t *testing.T) {
	reports := []engine.Report{
		{Passed: true},
		{Check: engine.CheckSNR},
		{Check: engine.CheckSNR},
		{Check: engine.CheckDipole},
		{Error: "boom"},
	}

	summary := GenerateSummary(reports)

	if summary["total"] != 5 {
		t.Errorf("Expected total 5, got %v", summary["total"])
	}
	if summary["passed"] != 1 {
		t.Errorf("Expected 1 passed, got %v", summary["passed"])
	}
	if summary["rejected"] != 3 {
		t.Errorf("Expected 3 rejected, got %v", summary["rejected"])
	}
	if summary["errors"] != 1 {
		t.Errorf("Expected 1 error, got %v", summary["errors"])
	}

	byCheck := summary["by_check"].(map[string]int)
	if byCheck["snr"] != 2 || byCheck["is_dipole"] != 1 {
		t.Errorf("Unexpected by_check counts: %v", byCheck)
	}
}
