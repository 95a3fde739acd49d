// Package graph resolves extracted links against the loaded corpus and
// builds the directed note graph with O(1) degree lookups.
//
// Resolution is title-based: the target text is normalized (case-folded,
// trimmed, fragment and alias already stripped by the extractor) and
// matched against a precomputed index of normalized note titles and
// aliases. Zero matches mark the link dangling; multiple matches fan the
// edge out to every candidate, since the corpus legitimately contains
// duplicate titles and silently picking one would hide content drift.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/haldvik/othala/internal/models"
)

// Graph is the resolved corpus: notes plus resolved edges, with degree
// counts and adjacency precomputed in a single build pass.
type Graph struct {
	notes    map[string]*models.Note
	order    []string // note ids, sorted
	edges    []models.Edge
	dangling []models.Link
	out      map[string]int
	in       map[string]int
	inAdj    map[string][]string
}

// Build resolves links against notes and returns the graph together with
// the findings produced during resolution (dangling-link, ambiguous-link,
// duplicate-title).
func Build(notes []*models.Note, links []models.Link) (*Graph, []models.Finding) {
	g := &Graph{
		notes: make(map[string]*models.Note, len(notes)),
		out:   make(map[string]int),
		in:    make(map[string]int),
		inAdj: make(map[string][]string),
	}
	var findings []models.Finding

	// Title index: normalized title/alias -> candidate note ids.
	byTitle := make(map[string][]string)
	titleOnly := make(map[string][]string)
	for _, n := range notes {
		g.notes[n.ID] = n
		g.order = append(g.order, n.ID)
		if key := normalize(n.Title); key != "" {
			byTitle[key] = append(byTitle[key], n.ID)
			titleOnly[key] = append(titleOnly[key], n.ID)
		}
		for _, a := range n.Aliases {
			if key := normalize(a); key != "" {
				byTitle[key] = append(byTitle[key], n.ID)
			}
		}
	}
	sort.Strings(g.order)
	for key := range byTitle {
		ids := dedupe(byTitle[key])
		sort.Strings(ids)
		byTitle[key] = ids
	}

	// Duplicate titles are expected in this corpus (two notes both titled
	// "Admissibility") and are reported, not collapsed.
	var dupKeys []string
	for key, ids := range titleOnly {
		if len(dedupe(ids)) > 1 {
			dupKeys = append(dupKeys, key)
		}
	}
	sort.Strings(dupKeys)
	for _, key := range dupKeys {
		ids := dedupe(titleOnly[key])
		sort.Strings(ids)
		findings = append(findings, models.Finding{
			Kind:    models.FindingDuplicateTitle,
			Target:  key,
			Message: fmt.Sprintf("title %q is shared by notes: %s", key, strings.Join(ids, ", ")),
		})
	}

	seenEdge := make(map[models.Edge]struct{})
	for _, l := range links {
		candidates := byTitle[normalize(l.Target)]
		if len(candidates) == 0 {
			g.dangling = append(g.dangling, l)
			findings = append(findings, models.Finding{
				Kind:    models.FindingDanglingLink,
				NoteID:  l.Source,
				Target:  l.Target,
				Message: fmt.Sprintf("%s link %q does not resolve to any note", l.Kind, l.Target),
			})
			continue
		}
		if len(candidates) > 1 {
			findings = append(findings, models.Finding{
				Kind:    models.FindingAmbiguousLink,
				NoteID:  l.Source,
				Target:  l.Target,
				Message: fmt.Sprintf("link %q matches multiple notes: %s", l.Target, strings.Join(candidates, ", ")),
			})
		}
		for _, target := range candidates {
			e := models.Edge{Source: l.Source, Target: target, Kind: l.Kind}
			if _, dup := seenEdge[e]; dup {
				continue
			}
			seenEdge[e] = struct{}{}
			g.edges = append(g.edges, e)
			g.out[e.Source]++
			g.in[e.Target]++
			g.inAdj[e.Target] = append(g.inAdj[e.Target], e.Source)
		}
	}

	sort.Slice(g.edges, func(i, j int) bool {
		a, b := g.edges[i], g.edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Kind < b.Kind
	})
	for id := range g.inAdj {
		sources := dedupe(g.inAdj[id])
		sort.Strings(sources)
		g.inAdj[id] = sources
	}

	return g, findings
}

// NoteIDs returns all note ids in sorted order.
func (g *Graph) NoteIDs() []string { return g.order }

// Note returns the note with the given id, or nil.
func (g *Graph) Note(id string) *models.Note { return g.notes[id] }

// Edges returns all resolved edges, sorted by (source, target, kind).
func (g *Graph) Edges() []models.Edge { return g.edges }

// Dangling returns every link that resolved to no note, in input order.
func (g *Graph) Dangling() []models.Link { return g.dangling }

// OutDegree returns the number of distinct resolved edges leaving id.
func (g *Graph) OutDegree(id string) int { return g.out[id] }

// InDegree returns the number of distinct resolved edges entering id.
func (g *Graph) InDegree(id string) int { return g.in[id] }

// Backlinks returns the sorted ids of notes with an edge into id.
func (g *Graph) Backlinks(id string) []string { return g.inAdj[id] }

// normalize case-folds and trims a title or link target for matching.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
