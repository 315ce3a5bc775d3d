// Package catalog holds the fixed list of shortcut queries offered by the explorer.
package catalog

import (
	"strings"
)

// InitialQuery is rendered and shown in the search box when a view opens.
const InitialQuery = "MATCH p=(:User)-[:CONTRIBUTES]->(:Repo) RETURN p LIMIT 300"

// QueryTemplate pairs a display label with a literal query string.
// Templates are defined at startup and never mutated.
type QueryTemplate struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Pattern string `json:"query"`
}

var defaultTemplates = []QueryTemplate{
	{
		Name:    "Display graph",
		Pattern: "MATCH p=(:User)-[:CONTRIBUTES]->(:Repo) RETURN p",
	},
	{
		Name:    "User knows",
		Pattern: "MATCH p=(:User{login:'maximelovino'})-[:KNOWS]->() RETURN p",
	},
	{
		Name:    "User codes in",
		Pattern: "MATCH p=(:User{login:'maximelovino'})-[:CODES_IN]->() RETURN p",
	},
	{
		Name:    "User contributes",
		Pattern: "MATCH p=(:User{login:'maximelovino'})-[:CONTRIBUTES]->() RETURN p",
	},
	{
		Name:    "User contributes with contributors",
		Pattern: "MATCH p=(:User{login:'maximelovino'})-[:CONTRIBUTES]->()<-[:CONTRIBUTES]-(:User) RETURN p",
	},
	{
		Name:    "Shortest path between users",
		Pattern: "MATCH (u1:User { login: 'maximelovino' }),(u2:User { login: 'kroitor' }), p = shortestPath((u1)-[r:KNOWS *]-(u2)) RETURN p",
	},
	{
		Name:    "Repository and languages",
		Pattern: "MATCH p=(:Repo)-[r:CONTAINS]->(:Language) RETURN p",
	},
	{
		Name:    "Most prolific users in language",
		Pattern: "MATCH p=((u:User)-[c:CODES_IN]->(n:Language{name:'JavaScript'})) WITH u,c,p ORDER BY c.size DESC LIMIT 10 RETURN p",
	},
}

// Catalog is an ordered, read-only set of query templates.
type Catalog struct {
	templates []QueryTemplate
	index     map[string]int
}

// New builds a catalog from the given templates, preserving their order.
// Missing slugs are derived from the template name.
func New(templates ...QueryTemplate) *Catalog {
	c := &Catalog{
		templates: make([]QueryTemplate, 0, len(templates)),
		index:     make(map[string]int, len(templates)*2),
	}
	for _, t := range templates {
		if t.Slug == "" {
			t.Slug = Slugify(t.Name)
		}
		c.index[t.Name] = len(c.templates)
		c.index[t.Slug] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c
}

// Default returns the catalog shipped with the explorer.
func Default() *Catalog {
	return New(defaultTemplates...)
}

// List returns the templates in display order.
func (c *Catalog) List() []QueryTemplate {
	out := make([]QueryTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}

// Find looks a template up by display name or slug.
func (c *Catalog) Find(nameOrSlug string) (QueryTemplate, bool) {
	i, ok := c.index[nameOrSlug]
	if !ok {
		return QueryTemplate{}, false
	}
	return c.templates[i], true
}

// Slugify lower-cases a label and joins its words with dashes.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
