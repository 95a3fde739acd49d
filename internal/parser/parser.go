// Package parser splits vault files into frontmatter+body sections and
// extracts wikilinks and declared dependencies from them.
package parser

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haldvik/othala/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	// fmKeyRe matches the shape of every frontmatter key in the corpus:
	// lowercase snake_case identifiers.
	fmKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Section is one frontmatter+body segment of a vault file. Files in the
// corpus may concatenate several such segments, each delimited by its own
// pair of --- markers; every segment becomes an independent note.
type Section struct {
	Frontmatter map[string]any
	Body        string
	// Malformed is set when the YAML block was opened but never closed,
	// or when the block is not valid YAML. The section is still usable
	// with empty frontmatter; callers record a finding and continue.
	Malformed bool
}

// Title returns the first level-1 heading of the section body, or empty
// string when none exists. Filename fallback is the loader's concern.
func (s *Section) Title() string {
	for _, line := range strings.Split(s.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// Aliases returns the frontmatter "aliases" list entries that are strings.
func (s *Section) Aliases() []string {
	return stringList(s.Frontmatter, "aliases")
}

// ParseFile splits raw file content into sections. Every file yields at
// least one section, so empty files still produce a (titleless) note.
func ParseFile(data []byte) []Section {
	lines := strings.Split(string(data), "\n")
	var sections []Section

	i := 0
	for i < len(lines) {
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
		if i >= len(lines) {
			break
		}

		var sec Section
		if isDelim(lines[i]) {
			end := nextDelim(lines, i+1)
			if end < 0 {
				// Open block never closed: malformed, rest of file is body.
				sec.Malformed = true
				sec.Body = strings.Join(lines[i+1:], "\n")
				sections = append(sections, sec)
				break
			}
			block := strings.Join(lines[i+1:end], "\n")
			var fm map[string]any
			if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
				sec.Malformed = true
			} else {
				sec.Frontmatter = fm
			}
			i = end + 1
		}

		start := i
		for i < len(lines) {
			if isDelim(lines[i]) && opensFrontmatter(lines, i) {
				break
			}
			i++
		}
		sec.Body = strings.Trim(strings.Join(lines[start:i], "\n"), "\n\r")
		sections = append(sections, sec)
	}

	if len(sections) == 0 {
		sections = []Section{{}}
	}
	return sections
}

func isDelim(line string) bool {
	return strings.TrimRight(line, " \t\r") == "---"
}

// nextDelim returns the index of the next --- line at or after from, or -1.
func nextDelim(lines []string, from int) int {
	for j := from; j < len(lines); j++ {
		if isDelim(lines[j]) {
			return j
		}
	}
	return -1
}

// opensFrontmatter reports whether the --- line at i starts a new
// frontmatter block: it must have a closing delimiter and the enclosed
// block must parse as a non-empty YAML mapping whose keys all look like
// frontmatter keys (lowercase snake_case). A lone --- inside prose (a
// horizontal rule) fails this check and stays part of the body, as does
// sentence-case prose that happens to parse as a mapping ("Note: see
// below"). Prose shaped exactly like lowercase key: value pairs between
// two rules remains ambiguous and is read as a section start.
func opensFrontmatter(lines []string, i int) bool {
	end := nextDelim(lines, i+1)
	if end < 0 {
		return false
	}
	block := strings.Join(lines[i+1:end], "\n")
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return false
	}
	if len(fm) == 0 {
		return false
	}
	for key := range fm {
		if !fmKeyRe.MatchString(key) {
			return false
		}
	}
	return true
}

// ExtractLinks returns every wikilink in body, in order of first byte,
// attributed to the given source note id. Recognized forms: [[T]],
// [[T#Heading]], [[T|Alias]], [[T#Heading|Alias]]. Duplicates are kept;
// deduplication is the graph builder's concern.
func ExtractLinks(source, body string) []models.Link {
	var out []models.Link
	for _, m := range wikilinkRe.FindAllStringSubmatchIndex(body, -1) {
		raw := body[m[2]:m[3]]
		target, heading, alias := splitTarget(raw)
		if target == "" {
			continue
		}
		out = append(out, models.Link{
			Source:  source,
			Target:  target,
			Heading: heading,
			Alias:   alias,
			Kind:    models.LinkInline,
			Offset:  m[0],
		})
	}
	return out
}

// DependsOn extracts the frontmatter depends_on list as declared-dependency
// links. Entries may be wikilink-formatted ("[[X#Section]]") or bare titles.
func DependsOn(source string, fm map[string]any) []models.Link {
	var out []models.Link
	for _, entry := range stringList(fm, "depends_on") {
		raw := strings.TrimSpace(entry)
		raw = strings.TrimPrefix(raw, "[[")
		raw = strings.TrimSuffix(raw, "]]")
		target, heading, alias := splitTarget(raw)
		if target == "" {
			continue
		}
		out = append(out, models.Link{
			Source:  source,
			Target:  target,
			Heading: heading,
			Alias:   alias,
			Kind:    models.LinkDeclared,
			Offset:  -1,
		})
	}
	return out
}

// splitTarget parses the inside of a wikilink into target, heading
// fragment, and display alias. All three are whitespace-trimmed.
func splitTarget(raw string) (target, heading, alias string) {
	target = raw
	if i := strings.Index(target, "|"); i >= 0 {
		alias = strings.TrimSpace(target[i+1:])
		target = target[:i]
	}
	if i := strings.Index(target, "#"); i >= 0 {
		heading = strings.TrimSpace(target[i+1:])
		target = target[:i]
	}
	return strings.TrimSpace(target), heading, alias
}

func stringList(fm map[string]any, key string) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
