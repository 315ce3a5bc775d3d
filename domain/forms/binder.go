// Package forms turns form input into Cypher query text.
//
// Each Action reads a fixed set of named fields and substitutes their values
// positionally into a query template. Binding never fails: missing values
// bind as empty strings and the database decides what to do with the result.
package forms

import (
	"fmt"
	"strings"
)

// Action identifies a form submission.
type Action string

const (
	ActionShortestPath        Action = "shortest-path"
	ActionUserKnows           Action = "user-knows"
	ActionUserContributes     Action = "user-contributes"
	ActionUserCodesIn         Action = "user-codes-in"
	ActionRepoLanguages       Action = "repo-languages"
	ActionRepoContributors    Action = "repo-contributors"
	ActionTopReposForLanguage Action = "top-repos-for-language"
	ActionTopUsersForLanguage Action = "top-users-for-language"
)

// Field is the stable name of a form input.
type Field string

const (
	FieldUser      Field = "user"
	FieldRepo      Field = "repo"
	FieldLanguage  Field = "language"
	FieldUser1Path Field = "user1_path"
	FieldUser2Path Field = "user2_path"
	FieldSearch    Field = "search"
)

// Values holds the raw text of the form inputs keyed by field name.
type Values map[string]string

// Get returns the value of a field, or "" when it is absent.
func (v Values) Get(f Field) string {
	if v == nil {
		return ""
	}
	return v[string(f)]
}

type actionSpec struct {
	fields []Field
	// template receives the field values in the order of fields.
	template string
	// alternate replaces template when the contributors flag is set.
	alternate string
}

var actionOrder = []Action{
	ActionShortestPath,
	ActionUserKnows,
	ActionUserContributes,
	ActionUserCodesIn,
	ActionRepoLanguages,
	ActionRepoContributors,
	ActionTopReposForLanguage,
	ActionTopUsersForLanguage,
}

var actionSpecs = map[Action]actionSpec{
	ActionShortestPath: {
		fields:   []Field{FieldUser1Path, FieldUser2Path},
		template: "MATCH (u1:User { login: '%s' }),(u2:User { login: '%s' }), p = shortestPath((u1)-[r:KNOWS *]-(u2)) RETURN p",
	},
	ActionUserKnows: {
		fields:   []Field{FieldUser},
		template: "MATCH (u1:User { login: '%s' })-[k:KNOWS]->(u2) RETURN *",
	},
	ActionUserContributes: {
		fields:    []Field{FieldUser},
		template:  "MATCH (u1:User { login: '%s' })-[k:CONTRIBUTES]->(r) RETURN *",
		alternate: "MATCH (u1:User { login: '%s' })-[k:CONTRIBUTES]->(r)<-[c:CONTRIBUTES]-(u2:User) RETURN *",
	},
	ActionUserCodesIn: {
		fields:   []Field{FieldUser},
		template: "MATCH (u1:User { login: '%s' })-[k:CODES_IN]->(l) RETURN *",
	},
	ActionRepoLanguages: {
		fields:   []Field{FieldRepo},
		template: "MATCH (u1:Repo { name: '%s' })-[k:CONTAINS]->(l) RETURN *",
	},
	ActionRepoContributors: {
		fields:   []Field{FieldRepo},
		template: "MATCH (u1:Repo { name: '%s' })<-[k:CONTRIBUTES]-(u) RETURN *",
	},
	ActionTopReposForLanguage: {
		fields:   []Field{FieldLanguage},
		template: "MATCH p=((r:Repo)-[c:CONTAINS]->(l:Language { name: '%s' })) WITH r,c,p ORDER BY c.size DESC LIMIT 10 RETURN p",
	},
	ActionTopUsersForLanguage: {
		fields:   []Field{FieldLanguage},
		template: "MATCH p=((u:User)-[c:CODES_IN]->(l:Language { name: '%s' })) WITH u,c,p ORDER BY c.size DESC LIMIT 10 RETURN p",
	},
}

// ActionInfo describes a supported action for clients building forms.
type ActionInfo struct {
	Action           Action  `json:"action"`
	Fields           []Field `json:"fields"`
	WithContributors bool    `json:"supports_with_contributors"`
}

// Actions lists the supported actions in a stable order.
func Actions() []ActionInfo {
	infos := make([]ActionInfo, 0, len(actionOrder))
	for _, a := range actionOrder {
		spec := actionSpecs[a]
		fields := make([]Field, len(spec.fields))
		copy(fields, spec.fields)
		infos = append(infos, ActionInfo{
			Action:           a,
			Fields:           fields,
			WithContributors: spec.alternate != "",
		})
	}
	return infos
}

// ParseAction validates an action name.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := actionSpecs[a]
	return a, ok
}

// Binder substitutes form values into action templates.
type Binder struct {
	raw bool
}

// Option configures a Binder.
type Option func(*Binder)

// WithRawInterpolation disables literal escaping. Values are then pasted into
// the query text exactly as typed, which lets a value close the quoted
// literal and inject arbitrary Cypher.
func WithRawInterpolation(raw bool) Option {
	return func(b *Binder) {
		b.raw = raw
	}
}

// NewBinder creates a binder. Values are escaped as Cypher string literal
// content unless WithRawInterpolation(true) is given.
func NewBinder(opts ...Option) *Binder {
	b := &Binder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Supports reports whether the action is known.
func (b *Binder) Supports(action Action) bool {
	_, ok := actionSpecs[action]
	return ok
}

// Bind produces the query for an action. withContributors only affects
// ActionUserContributes. Unknown actions bind to "".
func (b *Binder) Bind(action Action, values Values, withContributors bool) string {
	spec, ok := actionSpecs[action]
	if !ok {
		return ""
	}

	template := spec.template
	if withContributors && spec.alternate != "" {
		template = spec.alternate
	}

	args := make([]interface{}, 0, len(spec.fields))
	for _, f := range spec.fields {
		v := values.Get(f)
		if !b.raw {
			v = EscapeLiteral(v)
		}
		args = append(args, v)
	}
	return fmt.Sprintf(template, args...)
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// EscapeLiteral escapes s for use inside a single-quoted Cypher string.
func EscapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}
