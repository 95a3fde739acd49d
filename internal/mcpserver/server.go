// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala audit tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/haldvik/othala/internal/audit"
	"github.com/haldvik/othala/internal/index"
	"github.com/haldvik/othala/internal/schema"
	"github.com/haldvik/othala/internal/storage"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp     *server.MCPServer
	store   storage.Provider
	db      index.AuditIndex
	auditor *audit.Auditor
	rules   *schema.RuleSet
}

// New creates a new MCP server with all Othala tools registered.
func New(store storage.Provider, db index.AuditIndex, auditor *audit.Auditor, rules *schema.RuleSet) *Server {
	s := &Server{store: store, db: db, auditor: auditor, rules: rules}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("run_audit",
		mcp.WithDescription("Run a full structural audit of the vault and return the report as JSON. "+
			"The report covers dangling links, ambiguous links, orphans, hubs, and schema findings."),
	), s.runAudit)

	s.mcp.AddTool(mcp.NewTool("list_findings",
		mcp.WithDescription("List integrity findings from the latest persisted audit, optionally filtered by kind "+
			"(e.g. dangling-link, ambiguous-link, missing-field, invalid-field-type, orphan, hub)."),
		mcp.WithString("kind", mcp.Description("Optional finding kind to filter by (empty for all)")),
	), s.listFindings)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through indexed note titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the raw content of a Markdown note file from the vault."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes whose links resolve to the specified note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id to find backlinks for (path, or path#N for later sections)")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_schema_rules",
		mcp.WithDescription("Returns the frontmatter contract and the active role schema rules. "+
			"Call this before editing notes to keep them audit-clean."),
	), s.getSchemaRules)

	// Resource: frontmatter contract plus active rules.
	s.mcp.AddResource(
		mcp.NewResource("othala://schema-rules", "Schema Rules",
			mcp.WithResourceDescription("Frontmatter contract and role schema rules the audit enforces."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSchemaRulesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) runAudit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.auditor.Run()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.db.SaveResult(res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res.Report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listFindings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := ""
	if k, err := req.RequireString("kind"); err == nil {
		kind = k
	}
	findings, err := s.db.Findings(kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(findings) == 0 {
		return mcp.NewToolResultText("no findings"), nil
	}
	out, _ := json.MarshalIndent(findings, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.db.Backlinks(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getSchemaRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.schemaRulesText()), nil
}

func (s *Server) readSchemaRulesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://schema-rules",
			MIMEType: "text/markdown",
			Text:     s.schemaRulesText(),
		},
	}, nil
}

// schemaRulesText renders the static contract followed by the active rule
// table so consumers see custom rules, not just the defaults.
func (s *Server) schemaRulesText() string {
	var b strings.Builder
	b.WriteString(FrontmatterContract)
	b.WriteString("\n## Active Role Rules\n\n")
	for _, rule := range s.rules.Rules {
		fmt.Fprintf(&b, "- role `%s` requires:", rule.Role)
		for _, f := range rule.Requires {
			fmt.Fprintf(&b, " `%s` (%s)", f.Name, f.Type)
		}
		b.WriteString("\n")
	}
	return b.String()
}
