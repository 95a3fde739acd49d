package audit

import (
	"fmt"
	"sort"

	"github.com/haldvik/othala/internal/graph"
	"github.com/haldvik/othala/internal/models"
	"github.com/haldvik/othala/internal/schema"
)

// Report is the structured output of one audit run. Every list is sorted
// so serialized reports are byte-identical across runs on unchanged
// input. The report deliberately carries no timestamp for that reason;
// run metadata lives in the persistence layer, not the report.
type Report struct {
	Totals   Totals           `json:"totals"`
	Orphans  []string         `json:"orphans"`
	Hubs     []Hub            `json:"hubs"`
	Dangling []DanglingRef    `json:"dangling"`
	Roles    []RoleSummary    `json:"roles"`
	Findings []models.Finding `json:"findings"`
}

// Totals holds the aggregate counts of a run.
type Totals struct {
	Files    int                        `json:"files"`
	Notes    int                        `json:"notes"`
	Links    int                        `json:"links"`
	Edges    int                        `json:"edges"`
	Orphans  int                        `json:"orphans"`
	Hubs     int                        `json:"hubs"`
	Dangling int                        `json:"dangling"`
	Findings map[models.FindingKind]int `json:"findings"`
}

// Hub is a note whose in or out degree exceeds the configured threshold.
type Hub struct {
	NoteID string `json:"note_id"`
	In     int    `json:"in"`
	Out    int    `json:"out"`
}

// DanglingRef is a link whose target resolves to no note.
type DanglingRef struct {
	Source string          `json:"source"`
	Target string          `json:"target"`
	Kind   models.LinkKind `json:"kind"`
}

// RoleSummary is the field-completeness summary for one role value
// observed in the corpus. Covered reports whether any rule applies;
// Complete counts notes satisfying every required field of that rule.
type RoleSummary struct {
	Role     string `json:"role"`
	Notes    int    `json:"notes"`
	Covered  bool   `json:"covered"`
	Complete int    `json:"complete"`
}

// buildReport computes the aggregate view of a finished run.
//
// Orphan definition: a note with zero resolved outgoing edges AND zero
// resolved incoming edges. This is the authoritative definition for this
// tool; dangling links do not count as connections.
func buildReport(g *graph.Graph, rules *schema.RuleSet, hubThreshold, files, links int, findings []models.Finding) *Report {
	r := &Report{
		Orphans:  []string{},
		Hubs:     []Hub{},
		Dangling: []DanglingRef{},
		Roles:    []RoleSummary{},
	}

	covered := make(map[string]bool)
	for _, role := range rules.Roles() {
		covered[role] = true
	}

	roleNotes := make(map[string]int)
	roleComplete := make(map[string]int)

	for _, id := range g.NoteIDs() {
		in, out := g.InDegree(id), g.OutDegree(id)
		if in == 0 && out == 0 {
			r.Orphans = append(r.Orphans, id)
			findings = append(findings, models.Finding{
				Kind:    models.FindingOrphan,
				NoteID:  id,
				Message: "note has no incoming or outgoing resolved links",
			})
		}
		if in > hubThreshold || out > hubThreshold {
			r.Hubs = append(r.Hubs, Hub{NoteID: id, In: in, Out: out})
			findings = append(findings, models.Finding{
				Kind:    models.FindingHub,
				NoteID:  id,
				Message: fmt.Sprintf("degree exceeds threshold %d (in=%d, out=%d)", hubThreshold, in, out),
			})
		}

		n := g.Note(id)
		if role := n.Role(); role != "" {
			roleNotes[role]++
			if rules.Complete(n) {
				roleComplete[role]++
			}
		}
	}

	for _, l := range g.Dangling() {
		r.Dangling = append(r.Dangling, DanglingRef{Source: l.Source, Target: l.Target, Kind: l.Kind})
	}
	sort.Slice(r.Dangling, func(i, j int) bool {
		a, b := r.Dangling[i], r.Dangling[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Kind < b.Kind
	})
	sort.Slice(r.Hubs, func(i, j int) bool { return r.Hubs[i].NoteID < r.Hubs[j].NoteID })

	roles := make([]string, 0, len(roleNotes))
	for role := range roleNotes {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		r.Roles = append(r.Roles, RoleSummary{
			Role:     role,
			Notes:    roleNotes[role],
			Covered:  covered[role],
			Complete: roleComplete[role],
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.NoteID != b.NoteID {
			return a.NoteID < b.NoteID
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Message < b.Message
	})
	r.Findings = findings
	if r.Findings == nil {
		r.Findings = []models.Finding{}
	}

	byKind := make(map[models.FindingKind]int)
	for _, f := range findings {
		byKind[f.Kind]++
	}
	r.Totals = Totals{
		Files:    files,
		Notes:    len(g.NoteIDs()),
		Links:    links,
		Edges:    len(g.Edges()),
		Orphans:  len(r.Orphans),
		Hubs:     len(r.Hubs),
		Dangling: len(r.Dangling),
		Findings: byKind,
	}
	return r
}
