package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/haldvik/othala/internal/audit"
	"github.com/haldvik/othala/internal/models"
)

func sampleReport() *audit.Report {
	return &audit.Report{
		Totals: audit.Totals{
			Files: 3, Notes: 4, Links: 5, Edges: 3, Orphans: 1, Dangling: 1,
			Findings: map[models.FindingKind]int{
				models.FindingOrphan:       1,
				models.FindingDanglingLink: 1,
			},
		},
		Orphans: []string{"loner.md"},
		Hubs:    []audit.Hub{},
		Dangling: []audit.DanglingRef{
			{Source: "a.md", Target: "Missing", Kind: models.LinkInline},
		},
		Roles: []audit.RoleSummary{
			{Role: "concept", Notes: 2, Covered: true, Complete: 1},
		},
		Findings: []models.Finding{
			{Kind: models.FindingDanglingLink, NoteID: "a.md", Target: "Missing", Message: "m"},
			{Kind: models.FindingOrphan, NoteID: "loner.md", Message: "m"},
		},
	}
}

func TestJSON_RoundTripsAndIsStable(t *testing.T) {
	r := sampleReport()
	out1, err := JSON(r)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	out2, _ := JSON(r)
	if string(out1) != string(out2) {
		t.Error("JSON rendering is not stable")
	}

	var decoded audit.Report
	if err := json.Unmarshal(out1, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Totals.Notes != 4 || len(decoded.Orphans) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
	if !strings.HasSuffix(string(out1), "\n") {
		t.Error("JSON output should end with newline")
	}
}

func TestMarkdown_ContainsSections(t *testing.T) {
	out := string(Markdown(sampleReport()))

	for _, want := range []string{
		"# Vault Structural Audit Report",
		"## Summary",
		"| Notes | 4 |",
		"## Orphan notes",
		"`loner.md`",
		"## Dangling links",
		"| `a.md` | Missing | inline-reference |",
		"## Field completeness by role",
		"| concept | 2 | 1 | yes |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdown_EmptyListsSayNone(t *testing.T) {
	r := sampleReport()
	r.Orphans = nil
	r.Dangling = nil
	out := string(Markdown(r))
	if !strings.Contains(out, "None.") {
		t.Error("empty sections should render None.")
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	if _, err := Render(sampleReport(), "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
