package api

import (
	"context"
	"fmt"

	"github.com/haldvik/othala/internal/audit"
	"github.com/haldvik/othala/internal/index"
	"github.com/haldvik/othala/internal/models"
	"github.com/haldvik/othala/internal/sse"
)

// Service coordinates the auditor and the index for the API layer.
type Service struct {
	db      index.AuditIndex
	auditor *audit.Auditor
	broker  *sse.Broker
}

// NewService creates a new API service. broker may be nil when no SSE
// broadcasting is wanted (one-shot contexts, tests).
func NewService(db index.AuditIndex, auditor *audit.Auditor, broker *sse.Broker) *Service {
	return &Service{db: db, auditor: auditor, broker: broker}
}

// NoteDetail is the response payload for a single note.
type NoteDetail struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Role        string         `json:"role"`
	Body        string         `json:"body"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Backlinks   []string       `json:"backlinks"`
	Checksum    string         `json:"checksum"`
}

// GraphNode is a node in the link graph response.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Role  string `json:"role,omitempty"`
}

// GraphLink is an edge in the link graph response.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// Report returns the latest persisted audit report.
func (s *Service) Report(ctx context.Context) (*audit.Report, error) {
	return s.db.LatestReport()
}

// Findings returns persisted findings, optionally filtered by kind.
func (s *Service) Findings(ctx context.Context, kind string) ([]models.Finding, error) {
	return s.db.Findings(kind)
}

// Graph returns the persisted link graph.
func (s *Service) Graph(ctx context.Context) ([]GraphNode, []GraphLink, error) {
	rows, err := s.db.ListNotes()
	if err != nil {
		return nil, nil, err
	}
	edges, err := s.db.Edges()
	if err != nil {
		return nil, nil, err
	}

	nodes := make([]GraphNode, len(rows))
	for i, r := range rows {
		nodes[i] = GraphNode{ID: r.ID, Title: r.Title, Role: r.Role}
	}
	links := make([]GraphLink, len(edges))
	for i, e := range edges {
		links[i] = GraphLink{Source: e.Source, Target: e.Target, Kind: string(e.Kind)}
	}
	return nodes, links, nil
}

// ListNotes returns lightweight rows for all indexed notes.
func (s *Service) ListNotes(ctx context.Context) ([]index.NoteRow, error) {
	return s.db.ListNotes()
}

// GetNote returns a single note enriched with backlinks.
func (s *Service) GetNote(ctx context.Context, id string) (*NoteDetail, error) {
	n, err := s.db.GetNote(id)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(id)
	if err != nil {
		return nil, err
	}
	if bl == nil {
		bl = []string{}
	}
	return &NoteDetail{
		ID:          n.ID,
		Path:        n.Path,
		Title:       n.Title,
		Role:        n.Role(),
		Body:        n.Body,
		Frontmatter: n.Frontmatter,
		Backlinks:   bl,
		Checksum:    n.Checksum,
	}, nil
}

// Search delegates to the index.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Refresh re-runs the full audit, persists the result, and broadcasts an
// audit.updated event.
func (s *Service) Refresh(ctx context.Context) (*audit.Report, error) {
	res, err := s.auditor.Run()
	if err != nil {
		return nil, fmt.Errorf("api: refresh: %w", err)
	}
	if err := s.db.SaveResult(res); err != nil {
		return nil, fmt.Errorf("api: refresh: %w", err)
	}
	if s.broker != nil {
		s.broker.PublishAuditUpdated(res.Report.Totals)
	}
	return res.Report, nil
}
