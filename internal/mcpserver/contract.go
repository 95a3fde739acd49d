package mcpserver

// FrontmatterContract describes the note format the audit expects. It is
// served to LLM consumers so notes they write stay audit-clean.
const FrontmatterContract = `# Othala Frontmatter Contract

Every Markdown note audited by Othala SHOULD follow this structure.

## Structure

` + "```" + `markdown
---
role: concept                       # Selects which schema rule applies
layer: accounting                   # Role-specific required fields
canonical: true
aliases:                            # OPTIONAL - alternate titles for link resolution
  - Other Name
depends_on:                         # OPTIONAL - declared dependencies
  - "[[Prerequisite Note]]"
---

# Human-Readable Title

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes by title.
Use [[target#heading]] to point at a heading, [[target|alias]] for display text.
` + "```" + `

## Rules

1. **Frontmatter is optional but recommended.** When present, the ` + "```" + `---` + "```" + `
   fences open the file (no leading blank lines) and contain a YAML mapping.
2. **The first ` + "`" + `# ` + "`" + ` heading is the note's title.** Links resolve against
   titles and aliases, case-insensitively, with surrounding whitespace ignored.
3. **` + "`" + `role` + "`" + ` selects the schema rule.** Notes without a role, or with a role
   no rule covers, skip schema validation entirely.
4. **` + "`" + `depends_on` + "`" + ` entries** may be bare titles or wikilink syntax; both
   produce declared-dependency edges in the graph.
5. **Duplicate titles are flagged.** Links to a duplicated title fan out to
   every candidate and are reported as ambiguous.
6. **A file may hold several notes.** A mid-body ` + "`" + `---` + "`" + ` line that opens a
   valid frontmatter block starts a new section; otherwise it is a plain
   horizontal rule.
7. **Encoding** is UTF-8 with a trailing newline.
`
