// Package models defines the domain types for Othala.
package models

// Note is a single document section loaded from the vault. A file usually
// holds one note, but files with several concatenated frontmatter+body
// segments yield one Note per segment. Notes are immutable after load.
type Note struct {
	// ID uniquely identifies the note. For the first section of a file it
	// equals the vault-relative path; subsequent sections append "#2",
	// "#3" and so on in document order.
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Section     int            `json:"section"`
	Title       string         `json:"title"`
	Body        string         `json:"body,omitempty"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Aliases     []string       `json:"aliases,omitempty"`
	Checksum    string         `json:"checksum,omitempty"`
}

// Role returns the frontmatter "role" value, or empty string when the
// field is absent or not a string.
func (n *Note) Role() string {
	return n.StringField("role")
}

// StringField returns the named frontmatter field as a string, or empty
// string when absent or of a different type.
func (n *Note) StringField(key string) string {
	if n.Frontmatter == nil {
		return ""
	}
	if s, ok := n.Frontmatter[key].(string); ok {
		return s
	}
	return ""
}

// LinkKind distinguishes how a link was declared.
type LinkKind string

const (
	// LinkInline is a [[wikilink]] found in the note body.
	LinkInline LinkKind = "inline-reference"
	// LinkDeclared is an entry of the frontmatter depends_on list.
	// A broken declared dependency carries more diagnostic weight than
	// a broken inline mention.
	LinkDeclared LinkKind = "declared-dependency"
)

// Link is a directed reference from a source note to a raw target string,
// before resolution. Derived data; never mutated after extraction.
type Link struct {
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Heading string   `json:"heading,omitempty"`
	Alias   string   `json:"alias,omitempty"`
	Kind    LinkKind `json:"kind"`
	// Offset is the byte position of the link in the note body, used for
	// diagnostics. Frontmatter links have offset -1.
	Offset int `json:"offset"`
}

// Edge is a Link whose target resolved to an existing note id. Heading
// fragments resolve at note granularity; the fragment is display-only.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   LinkKind `json:"kind"`
}

// FindingKind classifies a reportable observation.
type FindingKind string

const (
	FindingOrphan               FindingKind = "orphan"
	FindingHub                  FindingKind = "hub"
	FindingDanglingLink         FindingKind = "dangling-link"
	FindingAmbiguousLink        FindingKind = "ambiguous-link"
	FindingMissingField         FindingKind = "missing-field"
	FindingInvalidFieldType     FindingKind = "invalid-field-type"
	FindingMalformedFrontmatter FindingKind = "malformed-frontmatter"
	FindingDuplicateTitle       FindingKind = "duplicate-title"
	FindingUnreadableFile       FindingKind = "unreadable-file"
)

// Finding is a single reportable observation produced by validation or
// graph analysis. Findings are data, never failures: a corpus full of
// findings still yields a successful run.
type Finding struct {
	Kind    FindingKind `json:"kind"`
	NoteID  string      `json:"note_id,omitempty"`
	Target  string      `json:"target,omitempty"`
	Message string      `json:"message"`
}
