// Package audit runs the integrity pipeline over a vault: load, extract,
// resolve, validate, report. A run is stateless and idempotent: given
// unchanged input files it produces a byte-identical report.
package audit

import (
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/haldvik/othala/internal/graph"
	"github.com/haldvik/othala/internal/models"
	"github.com/haldvik/othala/internal/parser"
	"github.com/haldvik/othala/internal/schema"
	"github.com/haldvik/othala/internal/storage"
)

// DefaultHubThreshold is the degree above which a note is reported as a hub.
const DefaultHubThreshold = 20

// Auditor runs the audit pipeline. It holds no per-run state.
type Auditor struct {
	store        storage.Provider
	rules        *schema.RuleSet
	hubThreshold int
	logger       *slog.Logger
}

// New creates an Auditor. A zero or negative hubThreshold falls back to
// DefaultHubThreshold.
func New(store storage.Provider, rules *schema.RuleSet, hubThreshold int, logger *slog.Logger) *Auditor {
	if hubThreshold <= 0 {
		hubThreshold = DefaultHubThreshold
	}
	if rules == nil {
		rules = schema.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{store: store, rules: rules, hubThreshold: hubThreshold, logger: logger}
}

// Result is the complete output of one audit run.
type Result struct {
	Notes  []*models.Note
	Links  []models.Link
	Graph  *graph.Graph
	Report *Report
}

// Run executes the pipeline. Per-file problems (unreadable file,
// malformed frontmatter) become findings and never abort the run; the
// only error returned is a failure to enumerate the vault root itself.
func (a *Auditor) Run() (*Result, error) {
	metas, err := a.store.List("")
	if err != nil {
		return nil, fmt.Errorf("audit: enumerate vault: %w", err)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Path < metas[j].Path })

	var (
		notes    []*models.Note
		links    []models.Link
		findings []models.Finding
	)

	for _, m := range metas {
		data, readErr := a.store.Read(m.Path)
		if readErr != nil {
			a.logger.Warn("audit: read failed", slog.String("path", m.Path), slog.String("error", readErr.Error()))
			findings = append(findings, models.Finding{
				Kind:    models.FindingUnreadableFile,
				NoteID:  m.Path,
				Message: fmt.Sprintf("file could not be read: %v", readErr),
			})
			continue
		}

		for i, sec := range parser.ParseFile(data) {
			id := m.Path
			if i > 0 {
				id = fmt.Sprintf("%s#%d", m.Path, i+1)
			}
			title := sec.Title()
			if title == "" {
				title = fileStem(m.Path)
			}
			n := &models.Note{
				ID:          id,
				Path:        m.Path,
				Section:     i + 1,
				Title:       title,
				Body:        sec.Body,
				Frontmatter: sec.Frontmatter,
				Aliases:     sec.Aliases(),
				Checksum:    m.Checksum,
			}
			notes = append(notes, n)

			if sec.Malformed {
				findings = append(findings, models.Finding{
					Kind:    models.FindingMalformedFrontmatter,
					NoteID:  id,
					Message: "frontmatter block is not valid YAML or was never closed",
				})
			}

			links = append(links, parser.ExtractLinks(id, sec.Body)...)
			links = append(links, parser.DependsOn(id, sec.Frontmatter)...)
		}
	}

	g, graphFindings := graph.Build(notes, links)
	findings = append(findings, graphFindings...)

	for _, n := range notes {
		findings = append(findings, a.rules.Check(n)...)
	}

	report := buildReport(g, a.rules, a.hubThreshold, len(metas), len(links), findings)

	a.logger.Debug("audit: run complete",
		slog.Int("files", len(metas)),
		slog.Int("notes", len(notes)),
		slog.Int("links", len(links)),
		slog.Int("findings", len(report.Findings)))

	return &Result{Notes: notes, Links: links, Graph: g, Report: report}, nil
}

// fileStem returns the filename without directory or extension, the
// title fallback for notes lacking a level-1 heading.
func fileStem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
