package parser

import (
	"strings"
	"testing"

	"github.com/haldvik/othala/internal/models"
)

func TestParseFile_SingleSection(t *testing.T) {
	input := []byte("---\nrole: concept\nlayer: primitive\n---\n# Admissibility\nBody text.\n")
	secs := ParseFile(input)
	if len(secs) != 1 {
		t.Fatalf("len(sections) = %d, want 1", len(secs))
	}
	s := secs[0]
	if s.Malformed {
		t.Error("unexpected malformed flag")
	}
	if s.Frontmatter["role"] != "concept" {
		t.Errorf("role = %v", s.Frontmatter["role"])
	}
	if s.Title() != "Admissibility" {
		t.Errorf("title = %q", s.Title())
	}
}

func TestParseFile_MultipleSections(t *testing.T) {
	input := []byte("---\nrole: concept\n---\n# First\nbody one\n---\nrole: template\n---\n# Second\nbody two\n")
	secs := ParseFile(input)
	if len(secs) != 2 {
		t.Fatalf("len(sections) = %d, want 2", len(secs))
	}
	if secs[0].Title() != "First" || secs[1].Title() != "Second" {
		t.Errorf("titles = %q, %q", secs[0].Title(), secs[1].Title())
	}
	if secs[1].Frontmatter["role"] != "template" {
		t.Errorf("second role = %v", secs[1].Frontmatter["role"])
	}
}

func TestParseFile_HorizontalRuleNotSectionBreak(t *testing.T) {
	input := []byte("# Only Note\nabove the rule\n\n---\n\nbelow the rule\n")
	secs := ParseFile(input)
	if len(secs) != 1 {
		t.Fatalf("len(sections) = %d, want 1 (--- is a horizontal rule here)", len(secs))
	}
}

func TestParseFile_ProseBetweenRulesNotSectionBreak(t *testing.T) {
	input := []byte("# Only Note\nIntro.\n---\nNote: see the appendix for details.\n---\nOutro.\n")
	secs := ParseFile(input)
	if len(secs) != 1 {
		t.Fatalf("len(sections) = %d, want 1 (sentence-case prose is not frontmatter)", len(secs))
	}
	body := secs[0].Body
	for _, want := range []string{"Note: see the appendix", "Outro."} {
		if !strings.Contains(body, want) {
			t.Errorf("body lost %q: %q", want, body)
		}
	}
}

func TestParseFile_UnclosedFrontmatter(t *testing.T) {
	input := []byte("---\nrole: concept\n# Heading swallowed\n")
	secs := ParseFile(input)
	if len(secs) != 1 {
		t.Fatalf("len(sections) = %d, want 1", len(secs))
	}
	if !secs[0].Malformed {
		t.Error("expected malformed flag for unclosed block")
	}
	if secs[0].Frontmatter != nil {
		t.Errorf("frontmatter should be empty, got %v", secs[0].Frontmatter)
	}
}

func TestParseFile_InvalidYAML(t *testing.T) {
	input := []byte("---\n: not: valid: {{{\n---\n# Body\n")
	secs := ParseFile(input)
	if len(secs) != 1 {
		t.Fatalf("len(sections) = %d, want 1", len(secs))
	}
	if !secs[0].Malformed {
		t.Error("expected malformed flag for invalid YAML")
	}
	if secs[0].Title() != "Body" {
		t.Errorf("title = %q, want Body", secs[0].Title())
	}
}

func TestParseFile_NoFrontmatter(t *testing.T) {
	secs := ParseFile([]byte("# Plain\ntext\n"))
	if len(secs) != 1 || secs[0].Frontmatter != nil {
		t.Fatalf("sections = %+v", secs)
	}
}

func TestParseFile_Empty(t *testing.T) {
	secs := ParseFile(nil)
	if len(secs) != 1 {
		t.Fatalf("empty file should yield one empty section, got %d", len(secs))
	}
	if secs[0].Title() != "" {
		t.Errorf("title = %q", secs[0].Title())
	}
}

func TestExtractLinks_AllForms(t *testing.T) {
	body := "See [[Plain]], [[Target#Section]], [[Target|shown]], and [[Other#Part|label]]."
	links := ExtractLinks("n.md", body)
	if len(links) != 4 {
		t.Fatalf("len(links) = %d, want 4", len(links))
	}

	want := []models.Link{
		{Target: "Plain"},
		{Target: "Target", Heading: "Section"},
		{Target: "Target", Alias: "shown"},
		{Target: "Other", Heading: "Part", Alias: "label"},
	}
	for i, w := range want {
		got := links[i]
		if got.Target != w.Target || got.Heading != w.Heading || got.Alias != w.Alias {
			t.Errorf("link %d = %+v, want %+v", i, got, w)
		}
		if got.Kind != models.LinkInline {
			t.Errorf("link %d kind = %q", i, got.Kind)
		}
		if got.Source != "n.md" {
			t.Errorf("link %d source = %q", i, got.Source)
		}
	}
}

func TestExtractLinks_OrderAndOffsets(t *testing.T) {
	body := "[[B]] then [[A]] then [[B]] again"
	links := ExtractLinks("n.md", body)
	if len(links) != 3 {
		t.Fatalf("len(links) = %d, want 3 (duplicates kept)", len(links))
	}
	if links[0].Target != "B" || links[1].Target != "A" || links[2].Target != "B" {
		t.Errorf("order = %v %v %v", links[0].Target, links[1].Target, links[2].Target)
	}
	if !(links[0].Offset < links[1].Offset && links[1].Offset < links[2].Offset) {
		t.Errorf("offsets not increasing: %d %d %d", links[0].Offset, links[1].Offset, links[2].Offset)
	}
}

func TestExtractLinks_EmptyTargetSkipped(t *testing.T) {
	links := ExtractLinks("n.md", "bad [[ ]] and [[|alias only]]")
	if len(links) != 0 {
		t.Errorf("expected no links, got %v", links)
	}
}

func TestDependsOn_WikilinkAndBareEntries(t *testing.T) {
	fm := map[string]any{
		"depends_on": []any{"[[Constraint Load]]", "[[Ledger#Scope]]", "Bare Title", 42},
	}
	links := DependsOn("n.md", fm)
	if len(links) != 3 {
		t.Fatalf("len(links) = %d, want 3", len(links))
	}
	if links[0].Target != "Constraint Load" {
		t.Errorf("target = %q", links[0].Target)
	}
	if links[1].Target != "Ledger" || links[1].Heading != "Scope" {
		t.Errorf("heading link = %+v", links[1])
	}
	if links[2].Target != "Bare Title" {
		t.Errorf("bare target = %q", links[2].Target)
	}
	for _, l := range links {
		if l.Kind != models.LinkDeclared {
			t.Errorf("kind = %q, want declared-dependency", l.Kind)
		}
		if l.Offset != -1 {
			t.Errorf("offset = %d, want -1", l.Offset)
		}
	}
}

func TestDependsOn_AbsentField(t *testing.T) {
	if links := DependsOn("n.md", map[string]any{"role": "concept"}); links != nil {
		t.Errorf("expected nil, got %v", links)
	}
	if links := DependsOn("n.md", nil); links != nil {
		t.Errorf("expected nil for nil frontmatter, got %v", links)
	}
}

func TestSectionAliases(t *testing.T) {
	s := Section{Frontmatter: map[string]any{"aliases": []any{"Alt Name", "", "Another"}}}
	got := s.Aliases()
	if len(got) != 2 || got[0] != "Alt Name" || got[1] != "Another" {
		t.Errorf("aliases = %v", got)
	}
}
