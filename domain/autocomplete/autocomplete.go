// Package autocomplete defines the type-ahead fields of the explorer and how
// their lookups match and order names.
package autocomplete

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Field is an input that offers suggestions.
type Field string

const (
	FieldUser     Field = "user"
	FieldRepo     Field = "repo"
	FieldLanguage Field = "language"
)

// Fields lists the suggestion fields in display order.
var Fields = []Field{FieldUser, FieldRepo, FieldLanguage}

// ParseField validates a field name.
func ParseField(s string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// MatchMode selects how typed text is compared with stored names.
type MatchMode int

const (
	MatchStartsWith MatchMode = iota
	MatchContains
)

func (m MatchMode) String() string {
	switch m {
	case MatchContains:
		return "contains"
	default:
		return "starts-with"
	}
}

// FieldSpec describes where a field's names live and when it looks them up.
type FieldSpec struct {
	Field     Field
	Label     string
	Property  string
	Mode      MatchMode
	MinLength int
}

// DefaultSpecs returns the user, repo and language fields with their
// standard thresholds.
func DefaultSpecs() map[Field]FieldSpec {
	return map[Field]FieldSpec{
		FieldUser: {
			Field:    FieldUser,
			Label:    "User",
			Property: "login",
			Mode:     MatchStartsWith,
		},
		FieldRepo: {
			Field:    FieldRepo,
			Label:    "Repo",
			Property: "name",
			Mode:     MatchContains,
		},
		FieldLanguage: {
			Field:     FieldLanguage,
			Label:     "Language",
			Property:  "name",
			Mode:      MatchStartsWith,
			MinLength: 1,
		},
	}
}

// Accepts reports whether text is long enough to trigger a lookup.
func (s FieldSpec) Accepts(text string) bool {
	return utf8.RuneCountInString(text) >= s.MinLength
}

// LookupCypher returns the parameterised lookup for the field. The typed
// text is bound as $term; a positive limit adds ORDER BY and LIMIT $limit.
func (s FieldSpec) LookupCypher(limit int) string {
	op := "STARTS WITH"
	if s.Mode == MatchContains {
		op = "CONTAINS"
	}

	q := fmt.Sprintf("MATCH (n:%s) WHERE toLower(n.%s) %s toLower($term) RETURN n.%s",
		s.Label, s.Property, op, s.Property)
	if limit > 0 {
		q += fmt.Sprintf(" ORDER BY toLower(n.%s) LIMIT $limit", s.Property)
	}
	return q
}

// ListCypher returns the query listing every name of the field.
func (s FieldSpec) ListCypher() string {
	return fmt.Sprintf("MATCH (n:%s) RETURN n.%s", s.Label, s.Property)
}

// Match applies the field's match rule in memory. It mirrors LookupCypher
// and is used by in-memory lookups.
func (s FieldSpec) Match(name, text string) bool {
	name, text = strings.ToLower(name), strings.ToLower(text)
	if s.Mode == MatchContains {
		return strings.Contains(name, text)
	}
	return strings.HasPrefix(name, text)
}

// SortNames returns a copy of names ordered ascending by their lower-cased
// form. Duplicates are kept; equal keys keep their input order.
func SortNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}
