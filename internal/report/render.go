// Package report renders an audit report for machine (JSON) or human
// (markdown) consumption. Rendering is a thin presentation layer; all
// numbers come from the audit package untouched.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/haldvik/othala/internal/audit"
	"github.com/haldvik/othala/internal/models"
)

// Formats accepted by Render.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Render serializes the report in the requested format.
func Render(r *audit.Report, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return JSON(r)
	case FormatMarkdown:
		return Markdown(r), nil
	default:
		return nil, fmt.Errorf("report: unknown format %q", format)
	}
}

// JSON renders the report as indented JSON with a trailing newline.
// Output is byte-identical for identical reports.
func JSON(r *audit.Report) ([]byte, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: marshal: %w", err)
	}
	return append(out, '\n'), nil
}

// Markdown renders the report as a human-readable document mirroring the
// shape of the vault's own hand-written audit reports.
func Markdown(r *audit.Report) []byte {
	var b strings.Builder

	b.WriteString("# Vault Structural Audit Report\n\n")

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Files | %d |\n", r.Totals.Files)
	fmt.Fprintf(&b, "| Notes | %d |\n", r.Totals.Notes)
	fmt.Fprintf(&b, "| Links | %d |\n", r.Totals.Links)
	fmt.Fprintf(&b, "| Resolved edges | %d |\n", r.Totals.Edges)
	fmt.Fprintf(&b, "| Orphans | %d |\n", r.Totals.Orphans)
	fmt.Fprintf(&b, "| Hubs | %d |\n", r.Totals.Hubs)
	fmt.Fprintf(&b, "| Dangling links | %d |\n", r.Totals.Dangling)

	if len(r.Totals.Findings) > 0 {
		b.WriteString("\n## Findings by kind\n\n| Kind | Count |\n|---|---|\n")
		kinds := make([]string, 0, len(r.Totals.Findings))
		for k := range r.Totals.Findings {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&b, "| %s | %d |\n", k, r.Totals.Findings[models.FindingKind(k)])
		}
	}

	b.WriteString("\n## Orphan notes\n\n")
	b.WriteString("Orphan: zero incoming AND zero outgoing resolved links.\n\n")
	if len(r.Orphans) == 0 {
		b.WriteString("None.\n")
	} else {
		for _, id := range r.Orphans {
			fmt.Fprintf(&b, "- `%s`\n", id)
		}
	}

	b.WriteString("\n## Hub notes\n\n")
	if len(r.Hubs) == 0 {
		b.WriteString("None.\n")
	} else {
		b.WriteString("| Note | In | Out |\n|---|---|---|\n")
		for _, h := range r.Hubs {
			fmt.Fprintf(&b, "| `%s` | %d | %d |\n", h.NoteID, h.In, h.Out)
		}
	}

	b.WriteString("\n## Dangling links\n\n")
	if len(r.Dangling) == 0 {
		b.WriteString("None.\n")
	} else {
		b.WriteString("| Source | Target | Kind |\n|---|---|---|\n")
		for _, d := range r.Dangling {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", d.Source, d.Target, d.Kind)
		}
	}

	b.WriteString("\n## Field completeness by role\n\n")
	if len(r.Roles) == 0 {
		b.WriteString("No roles declared in the corpus.\n")
	} else {
		b.WriteString("| Role | Notes | Complete | Rule |\n|---|---|---|---|\n")
		for _, rs := range r.Roles {
			rule := "none"
			if rs.Covered {
				rule = "yes"
			}
			fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", rs.Role, rs.Notes, rs.Complete, rule)
		}
	}

	return []byte(b.String())
}
