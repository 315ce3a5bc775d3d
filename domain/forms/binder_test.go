package forms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBind_ShortestPathSubstitutesBothLogins(t *testing.T) {
	b := NewBinder()

	query := b.Bind(ActionShortestPath, Values{"user1_path": "alice", "user2_path": "bob"}, false)

	assert.Equal(t,
		"MATCH (u1:User { login: 'alice' }),(u2:User { login: 'bob' }), p = shortestPath((u1)-[r:KNOWS *]-(u2)) RETURN p",
		query,
	)
}

func TestBind_EmptyValuesStillProduceQuery(t *testing.T) {
	b := NewBinder()

	query := b.Bind(ActionUserKnows, nil, false)

	assert.Equal(t, "MATCH (u1:User { login: '' })-[k:KNOWS]->(u2) RETURN *", query)
}

func TestBind_WithContributorsSelectsAlternateTemplate(t *testing.T) {
	b := NewBinder()
	values := Values{"user": "kroitor"}

	plain := b.Bind(ActionUserContributes, values, false)
	with := b.Bind(ActionUserContributes, values, true)

	assert.Equal(t, "MATCH (u1:User { login: 'kroitor' })-[k:CONTRIBUTES]->(r) RETURN *", plain)
	assert.Equal(t, "MATCH (u1:User { login: 'kroitor' })-[k:CONTRIBUTES]->(r)<-[c:CONTRIBUTES]-(u2:User) RETURN *", with)

	// The flag is ignored by actions without an alternate template.
	assert.Equal(t, b.Bind(ActionUserKnows, values, false), b.Bind(ActionUserKnows, values, true))
}

func TestBind_EveryActionUsesItsFields(t *testing.T) {
	b := NewBinder()
	values := Values{
		"user":       "u-val",
		"repo":       "r-val",
		"language":   "l-val",
		"user1_path": "p1-val",
		"user2_path": "p2-val",
	}

	tests := []struct {
		action Action
		want   []string
	}{
		{ActionShortestPath, []string{"p1-val", "p2-val"}},
		{ActionUserKnows, []string{"u-val", "KNOWS"}},
		{ActionUserContributes, []string{"u-val", "CONTRIBUTES"}},
		{ActionUserCodesIn, []string{"u-val", "CODES_IN"}},
		{ActionRepoLanguages, []string{"r-val", "CONTAINS"}},
		{ActionRepoContributors, []string{"r-val", "<-[k:CONTRIBUTES]-"}},
		{ActionTopReposForLanguage, []string{"l-val", ":Repo", "LIMIT 10"}},
		{ActionTopUsersForLanguage, []string{"l-val", ":User", "LIMIT 10"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			query := b.Bind(tt.action, values, false)
			for _, fragment := range tt.want {
				assert.Contains(t, query, fragment)
			}
		})
	}
}

func TestBind_EscapesQuotesByDefault(t *testing.T) {
	query := NewBinder().Bind(ActionUserKnows, Values{"user": `o'brien\`}, false)

	assert.Contains(t, query, `login: 'o\'brien\\'`)
}

func TestBind_RawInterpolationKeepsInput(t *testing.T) {
	query := NewBinder(WithRawInterpolation(true)).Bind(ActionUserKnows, Values{"user": "o'brien"}, false)

	assert.Contains(t, query, "login: 'o'brien'")
}

func TestBind_UnknownAction(t *testing.T) {
	b := NewBinder()

	assert.False(t, b.Supports(Action("drop-everything")))
	assert.Empty(t, b.Bind(Action("drop-everything"), Values{"user": "x"}, false))
}

func TestActions_ListsEverySupportedAction(t *testing.T) {
	infos := Actions()
	require.Len(t, infos, 8)
	assert.Equal(t, ActionShortestPath, infos[0].Action)
	assert.Equal(t, []Field{FieldUser1Path, FieldUser2Path}, infos[0].Fields)

	for _, info := range infos {
		_, ok := ParseAction(string(info.Action))
		assert.True(t, ok, info.Action)
		assert.Equal(t, info.Action == ActionUserContributes, info.WithContributors)
	}
}

func TestEscapeLiteral_RoundTrips(t *testing.T) {
	unescape := strings.NewReplacer(`\\`, `\`, `\'`, `'`)

	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		escaped := EscapeLiteral(s)

		assert.Equal(t, s, unescape.Replace(escaped))
		// every quote left in the output is escaped
		stripped := strings.ReplaceAll(escaped, `\\`, "")
		assert.Equal(t, strings.Count(stripped, "'"), strings.Count(stripped, `\'`))
	})
}
