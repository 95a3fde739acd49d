// Package schema validates note frontmatter against a declarative rule
// table keyed by role. Validation is purely structural: it checks field
// presence and scalar types and never inspects prose content.
package schema

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/haldvik/othala/internal/models"
	pkgconfig "github.com/haldvik/othala/pkg/config"
)

// Field value types a rule may require.
const (
	TypeString = "string"
	TypeBool   = "bool"
	TypeList   = "list"
)

// FieldRule requires one frontmatter field of a given type.
type FieldRule struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Validate validates the field rule declaration itself.
func (f FieldRule) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Type, validation.Required, validation.In(TypeString, TypeBool, TypeList)),
	)
}

// Rule is the set of required fields for one role value.
type Rule struct {
	Role     string      `yaml:"role"`
	Requires []FieldRule `yaml:"requires"`
}

// Validate validates the rule declaration itself.
func (r Rule) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required),
	); err != nil {
		return err
	}
	for _, f := range r.Requires {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("role %q: %w", r.Role, err)
		}
	}
	return nil
}

// RuleSet is the full rule table. Rules are static configuration, never
// derived from the corpus.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// Validate validates every rule and rejects duplicate roles.
func (rs *RuleSet) Validate() error {
	seen := make(map[string]struct{}, len(rs.Rules))
	for _, r := range rs.Rules {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.Role]; dup {
			return fmt.Errorf("schema: duplicate rule for role %q", r.Role)
		}
		seen[r.Role] = struct{}{}
	}
	return nil
}

// Roles returns the sorted role names covered by the table.
func (rs *RuleSet) Roles() []string {
	out := make([]string, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		out = append(out, r.Role)
	}
	sort.Strings(out)
	return out
}

// rule returns the rule for a role, or nil when the role is uncovered.
func (rs *RuleSet) rule(role string) *Rule {
	for i := range rs.Rules {
		if rs.Rules[i].Role == role {
			return &rs.Rules[i]
		}
	}
	return nil
}

// Default returns the built-in rule table covering the roles observed in
// the corpus. A vault may override it with its own rules file.
func Default() *RuleSet {
	return &RuleSet{Rules: []Rule{
		{Role: "concept", Requires: []FieldRule{
			{Name: "layer", Type: TypeString},
			{Name: "canonical", Type: TypeBool},
		}},
		{Role: "invariant", Requires: []FieldRule{
			{Name: "status", Type: TypeString},
		}},
		{Role: "template", Requires: []FieldRule{
			{Name: "type", Type: TypeString},
		}},
		{Role: "diagnostic", Requires: []FieldRule{
			{Name: "facets", Type: TypeList},
		}},
		{Role: "report", Requires: []FieldRule{
			{Name: "generated", Type: TypeString},
		}},
	}}
}

// Load reads a rule table from a YAML file, validating it on load.
func Load(path string) (*RuleSet, error) {
	rs := &RuleSet{}
	if err := pkgconfig.Load(path, rs); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return rs, nil
}

// Check validates one note's frontmatter against the table and returns
// zero or more findings. A note without a role, or with a role no rule
// covers, produces no findings: both are legitimate, distinct conditions
// in a loosely-typed corpus, not violations.
func (rs *RuleSet) Check(n *models.Note) []models.Finding {
	rule := rs.rule(n.Role())
	if rule == nil {
		return nil
	}

	var out []models.Finding
	for _, f := range rule.Requires {
		raw, present := n.Frontmatter[f.Name]
		if !present {
			out = append(out, models.Finding{
				Kind:    models.FindingMissingField,
				NoteID:  n.ID,
				Target:  f.Name,
				Message: fmt.Sprintf("role %q requires field %q", rule.Role, f.Name),
			})
			continue
		}
		if !typeMatches(raw, f.Type) {
			out = append(out, models.Finding{
				Kind:    models.FindingInvalidFieldType,
				NoteID:  n.ID,
				Target:  f.Name,
				Message: fmt.Sprintf("field %q must be a %s, got %T", f.Name, f.Type, raw),
			})
		}
	}
	return out
}

// Complete reports whether a note satisfies every required field of its
// role's rule. Notes with no applicable rule are vacuously complete.
func (rs *RuleSet) Complete(n *models.Note) bool {
	return len(rs.Check(n)) == 0
}

func typeMatches(v any, want string) bool {
	switch want {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeList:
		_, ok := v.([]any)
		return ok
	}
	return false
}
