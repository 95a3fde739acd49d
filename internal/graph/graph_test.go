package graph

import (
	"strings"
	"testing"

	"github.com/haldvik/othala/internal/models"
)

func note(id, title string, aliases ...string) *models.Note {
	return &models.Note{ID: id, Path: id, Title: title, Aliases: aliases}
}

func inline(source, target string) models.Link {
	return models.Link{Source: source, Target: target, Kind: models.LinkInline}
}

func findingsOfKind(fs []models.Finding, kind models.FindingKind) []models.Finding {
	var out []models.Finding
	for _, f := range fs {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func TestBuild_ExactResolution(t *testing.T) {
	notes := []*models.Note{note("a.md", "Alpha"), note("b.md", "Beta")}
	g, findings := Build(notes, []models.Link{inline("a.md", "Beta")})

	if len(findings) != 0 {
		t.Fatalf("unexpected findings: %v", findings)
	}
	edges := g.Edges()
	if len(edges) != 1 || edges[0].Source != "a.md" || edges[0].Target != "b.md" {
		t.Fatalf("edges = %v", edges)
	}
	if g.OutDegree("a.md") != 1 || g.InDegree("b.md") != 1 {
		t.Errorf("degrees: out(a)=%d in(b)=%d", g.OutDegree("a.md"), g.InDegree("b.md"))
	}
}

func TestBuild_CaseInsensitiveMatch(t *testing.T) {
	notes := []*models.Note{note("a.md", "Alpha"), note("b.md", "Constraint Load")}
	g, _ := Build(notes, []models.Link{inline("a.md", "constraint load")})
	if len(g.Edges()) != 1 {
		t.Fatalf("case-folded target should resolve, edges = %v", g.Edges())
	}
}

func TestBuild_AliasMatch(t *testing.T) {
	notes := []*models.Note{note("a.md", "Alpha"), note("b.md", "Beta", "Second Letter")}
	g, findings := Build(notes, []models.Link{inline("a.md", "Second Letter")})
	if len(findings) != 0 {
		t.Fatalf("unexpected findings: %v", findings)
	}
	if len(g.Edges()) != 1 || g.Edges()[0].Target != "b.md" {
		t.Fatalf("alias should resolve to b.md, edges = %v", g.Edges())
	}
}

func TestBuild_DanglingLink(t *testing.T) {
	notes := []*models.Note{note("a.md", "Alpha")}
	g, findings := Build(notes, []models.Link{inline("a.md", "Nonexistent Note")})

	if len(g.Edges()) != 0 {
		t.Errorf("dangling link must not create an edge: %v", g.Edges())
	}
	if len(g.Dangling()) != 1 || g.Dangling()[0].Target != "Nonexistent Note" {
		t.Fatalf("dangling = %v", g.Dangling())
	}
	df := findingsOfKind(findings, models.FindingDanglingLink)
	if len(df) != 1 || df[0].NoteID != "a.md" || df[0].Target != "Nonexistent Note" {
		t.Fatalf("dangling findings = %v", df)
	}
}

func TestBuild_AmbiguousFanOut(t *testing.T) {
	// Two distinct notes titled "Admissibility" plus a note linking the title.
	notes := []*models.Note{
		note("concepts/admissibility.md", "Admissibility"),
		note("diagnostics/admissibility.md", "Admissibility"),
		note("c.md", "Caller"),
	}
	g, findings := Build(notes, []models.Link{inline("c.md", "Admissibility")})

	if len(g.Edges()) != 2 {
		t.Fatalf("ambiguous link should fan out to both candidates, edges = %v", g.Edges())
	}
	af := findingsOfKind(findings, models.FindingAmbiguousLink)
	if len(af) != 1 {
		t.Fatalf("ambiguous findings = %v", af)
	}
	if !strings.Contains(af[0].Message, "concepts/admissibility.md") ||
		!strings.Contains(af[0].Message, "diagnostics/admissibility.md") {
		t.Errorf("finding should list both candidates: %s", af[0].Message)
	}
	dup := findingsOfKind(findings, models.FindingDuplicateTitle)
	if len(dup) != 1 {
		t.Errorf("duplicate-title findings = %v", dup)
	}
}

func TestBuild_EdgeDeduplication(t *testing.T) {
	notes := []*models.Note{note("a.md", "Alpha"), note("b.md", "Beta")}
	links := []models.Link{inline("a.md", "Beta"), inline("a.md", "beta")}
	g, _ := Build(notes, links)
	if len(g.Edges()) != 1 {
		t.Fatalf("repeated link should yield one edge, got %v", g.Edges())
	}
	if g.OutDegree("a.md") != 1 {
		t.Errorf("out degree = %d, want 1", g.OutDegree("a.md"))
	}
}

func TestBuild_DeclaredAndInlineAreDistinctEdges(t *testing.T) {
	notes := []*models.Note{note("a.md", "Alpha"), note("b.md", "Beta")}
	links := []models.Link{
		inline("a.md", "Beta"),
		{Source: "a.md", Target: "Beta", Kind: models.LinkDeclared, Offset: -1},
	}
	g, _ := Build(notes, links)
	if len(g.Edges()) != 2 {
		t.Fatalf("inline and declared edges are distinct, got %v", g.Edges())
	}
}

func TestBuild_Backlinks(t *testing.T) {
	notes := []*models.Note{note("a.md", "Alpha"), note("b.md", "Beta"), note("c.md", "Gamma")}
	links := []models.Link{inline("a.md", "Gamma"), inline("b.md", "Gamma")}
	g, _ := Build(notes, links)
	bl := g.Backlinks("c.md")
	if len(bl) != 2 || bl[0] != "a.md" || bl[1] != "b.md" {
		t.Errorf("backlinks = %v", bl)
	}
}

func TestBuild_OrderIndependentFindingSet(t *testing.T) {
	notes := []*models.Note{note("a.md", "Alpha"), note("b.md", "Beta")}
	links := []models.Link{inline("a.md", "Missing One"), inline("b.md", "Missing Two")}

	_, f1 := Build(notes, links)
	reversedNotes := []*models.Note{notes[1], notes[0]}
	reversedLinks := []models.Link{links[1], links[0]}
	_, f2 := Build(reversedNotes, reversedLinks)

	set := func(fs []models.Finding) map[models.Finding]int {
		m := make(map[models.Finding]int)
		for _, f := range fs {
			m[f]++
		}
		return m
	}
	s1, s2 := set(f1), set(f2)
	if len(s1) != len(s2) {
		t.Fatalf("finding sets differ: %v vs %v", f1, f2)
	}
	for f, n := range s1 {
		if s2[f] != n {
			t.Errorf("finding %v count %d vs %d", f, n, s2[f])
		}
	}
}
