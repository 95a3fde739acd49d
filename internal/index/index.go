package index

import (
	"github.com/haldvik/othala/internal/audit"
	"github.com/haldvik/othala/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// AuditIndex defines the interface for persisted audit state. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type AuditIndex interface {
	SaveResult(res *audit.Result) error
	LatestReport() (*audit.Report, error)
	ListNotes() ([]NoteRow, error)
	GetNote(id string) (*models.Note, error)
	Edges() ([]models.Edge, error)
	Backlinks(id string) ([]string, error)
	Findings(kind string) ([]models.Finding, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies AuditIndex at compile time.
var _ AuditIndex = (*DB)(nil)
