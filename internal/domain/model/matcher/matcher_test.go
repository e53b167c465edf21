package matcher

import (
	"encoding/json"
	"testing"

	model "go_stub_server/internal/domain/model/mock_rule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenizerOf(s string) model.Tokenizer { return model.Tokenizer(s) }

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func methodMatcher() *SingleValueMatcher[string] {
	word := model.TokenizerWord
	return &SingleValueMatcher[string]{
		EntityName: "method",
		Target:     MethodTarget{},
		Comparator: NewExactComparator(false),
		DiffWith:   &word,
	}
}

func TestSingleValueMatcher(t *testing.T) {
	m := methodMatcher()

	t.Run("case insensitive", func(t *testing.T) {
		req := &RequestView{Method: strPtr("get")}
		mock := &RequestView{Method: strPtr("GET")}
		assert.True(t, m.Matches(req, mock))
		assert.Empty(t, m.Mismatches(req, mock))
	})

	t.Run("not declared", func(t *testing.T) {
		req := &RequestView{Method: strPtr("DELETE")}
		assert.True(t, m.Matches(req, &RequestView{}))
		assert.Empty(t, m.Mismatches(req, &RequestView{}))
	})

	t.Run("declared but missing", func(t *testing.T) {
		mock := &RequestView{Method: strPtr("GET")}
		assert.False(t, m.Matches(&RequestView{}, mock))
		mismatches := m.Mismatches(&RequestView{}, mock)
		require.Len(t, mismatches, 1)
		assert.Equal(t, "method mismatch", mismatches[0].Title)
		require.NotNil(t, mismatches[0].Diff)
		assert.Equal(t, float32(1), mismatches[0].Diff.Distance)
	})

	t.Run("mismatch with diff", func(t *testing.T) {
		req := &RequestView{Method: strPtr("GET")}
		mock := &RequestView{Method: strPtr("POST")}
		assert.False(t, m.Matches(req, mock))
		assert.Equal(t, 3, m.Distance(req, mock))

		mismatches := m.Mismatches(req, mock)
		require.Len(t, mismatches, 1)
		assert.Equal(t, "method mismatch", mismatches[0].Title)
		assert.Nil(t, mismatches[0].Reason)
		require.NotNil(t, mismatches[0].Diff)
		assert.Equal(t, model.TokenizerWord, mismatches[0].Diff.Tokenizer)
		assert.JSONEq(t, `[{"Rem":"POST"},{"Add":"GET"}]`, toJSON(t, mismatches[0].Diff.Differences))
	})

	t.Run("reason", func(t *testing.T) {
		withReason := &SingleValueMatcher[string]{
			EntityName: "body string match",
			Target:     StringBodyTarget{},
			Comparator: NewRegexComparator(),
			WithReason: true,
		}
		mismatches := withReason.Mismatches(&RequestView{}, &RequestView{Body: []byte("^ok$")})
		require.Len(t, mismatches, 1)
		require.NotNil(t, mismatches[0].Reason)
		assert.Equal(t, model.Reason{Expected: "^ok$", Actual: "not found", Comparison: "matches regex"}, *mismatches[0].Reason)
		assert.Nil(t, mismatches[0].Diff)
	})
}

func queryMatcher() *MultiValueMatcher {
	return &MultiValueMatcher{
		EntityName:      "query parameter",
		Target:          QueryParameterTarget{},
		KeyComparator:   NewExactComparator(true),
		ValueComparator: NewRegexComparator(),
		Weight:          1,
	}
}

func TestMultiValueMatcher(t *testing.T) {
	m := queryMatcher()

	t.Run("all present", func(t *testing.T) {
		req := &RequestView{QueryParams: map[string]string{"page": "12", "size": "10"}}
		mock := &RequestView{QueryParams: map[string]string{"page": `^\d+$`}}
		assert.True(t, m.Matches(req, mock))
		assert.Equal(t, 0, m.Distance(req, mock))
		assert.Empty(t, m.Mismatches(req, mock))
	})

	t.Run("not declared", func(t *testing.T) {
		req := &RequestView{QueryParams: map[string]string{"page": "1"}}
		assert.True(t, m.Matches(req, &RequestView{}))
	})

	t.Run("best match by key", func(t *testing.T) {
		req := &RequestView{QueryParams: map[string]string{"page": "abc", "size": "10"}}
		mock := &RequestView{QueryParams: map[string]string{"page": `\d+`}}
		assert.False(t, m.Matches(req, mock))

		mismatches := m.Mismatches(req, mock)
		require.Len(t, mismatches, 1)
		assert.Equal(t, `expected query parameter 'page' to have value '\d+', but no such entry was found`, mismatches[0].Title)
		require.NotNil(t, mismatches[0].Reason)
		assert.Equal(t, model.Reason{
			Expected:   `page=\d+`,
			Actual:     "page=abc",
			Comparison: "key=equals, value=matches regex",
			BestMatch:  true,
		}, *mismatches[0].Reason)
	})

	t.Run("best match by distance", func(t *testing.T) {
		req := &RequestView{QueryParams: map[string]string{"pag": "1", "limit": "100"}}
		mock := &RequestView{QueryParams: map[string]string{"page": "1"}}
		mismatches := m.Mismatches(req, mock)
		require.Len(t, mismatches, 1)
		require.NotNil(t, mismatches[0].Reason)
		assert.Equal(t, "pag=1", mismatches[0].Reason.Actual)
		assert.Equal(t, 1, m.Distance(req, mock))
	})

	t.Run("nothing to compare with", func(t *testing.T) {
		mock := &RequestView{QueryParams: map[string]string{"page": "1"}}
		mismatches := m.Mismatches(&RequestView{}, mock)
		require.Len(t, mismatches, 1)
		assert.Nil(t, mismatches[0].Reason)
		// key 4 + value 1
		assert.Equal(t, 5, m.Distance(&RequestView{}, mock))
	})

	t.Run("weight", func(t *testing.T) {
		weighted := queryMatcher()
		weighted.Weight = 3
		req := &RequestView{QueryParams: map[string]string{"page": "2"}}
		mock := &RequestView{QueryParams: map[string]string{"page": "1"}}
		assert.Equal(t, 3, weighted.Distance(req, mock))
	})

	t.Run("key without value", func(t *testing.T) {
		mock := []KeyValue{{Key: "debug"}}
		assert.Empty(t, m.findUnmatched([]KeyValue{{Key: "debug", Value: strPtr("1")}}, mock))
		unmatched := m.findUnmatched([]KeyValue{{Key: "trace", Value: strPtr("1")}}, mock)
		require.Len(t, unmatched, 1)
		assert.Equal(t, "debug", unmatched[0].String())
	})

	t.Run("header keys are lower cased", func(t *testing.T) {
		h := &MultiValueMatcher{
			EntityName:      "header",
			Target:          HeaderTarget{},
			KeyComparator:   NewExactComparator(false),
			ValueComparator: NewRegexComparator(),
			Weight:          1,
		}
		req := &RequestView{Headers: map[string]string{"x-token": "abc"}}
		mock := &RequestView{Headers: map[string]string{"X-Token": "^a"}}
		assert.True(t, h.Matches(req, mock))

		mismatches := h.Mismatches(req, &RequestView{Headers: map[string]string{"X-Trace": "1"}})
		require.Len(t, mismatches, 1)
		assert.Equal(t, "expected header 'x-trace' to have value '1', but no such entry was found", mismatches[0].Title)
	})
}

func jsonRegexMatcher() *RegexValueMatcher {
	return &RegexValueMatcher{
		EntityName: "body json regex match",
		Target:     JSONBodyTarget{},
		Comparator: NewJSONRegexComparator(),
		WithReason: true,
	}
}

func TestRegexValueMatcher(t *testing.T) {
	m := jsonRegexMatcher()
	mock := &RequestView{Body: []byte(`{"name":"^a"}`)}

	assert.True(t, m.Matches(&RequestView{Body: []byte(`{"name":"alice"}`)}, mock))
	assert.True(t, m.Matches(&RequestView{}, &RequestView{}))
	assert.False(t, m.Matches(&RequestView{Body: []byte(`{}`)}, &RequestView{}))
	assert.False(t, m.Matches(&RequestView{Body: []byte("plain text")}, mock))

	req := &RequestView{Body: []byte(`{"name":"bob"}`)}
	assert.False(t, m.Matches(req, mock))
	mismatches := m.Mismatches(req, mock)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "$name value mismatch, expected: ^a, actual: bob", mismatches[0].Title)
	require.NotNil(t, mismatches[0].Reason)
	assert.Equal(t, `{"name":"^a"}`, mismatches[0].Reason.Expected)
	assert.Equal(t, `{"name":"bob"}`, mismatches[0].Reason.Actual)
	assert.Equal(t, "json_equal", mismatches[0].Reason.Comparison)

	missing := m.Mismatches(&RequestView{}, mock)
	require.Len(t, missing, 1)
	assert.Equal(t, "body json regex match mismatch", missing[0].Title)
	assert.Equal(t, "not found", missing[0].Reason.Actual)

	assert.Empty(t, m.Mismatches(req, &RequestView{}))
}

func TestJSONSchemaMatcher(t *testing.T) {
	m := &JSONSchemaMatcher{
		EntityName: "body schema match",
		Target:     JSONBodyTarget{},
		Source:     JSONSchemaTarget{},
		Comparator: NewJSONSchemaComparator(),
	}
	mock := &RequestView{BodySchema: []byte(`{"type":"object","required":["id"]}`)}

	assert.True(t, m.Matches(&RequestView{Body: []byte(`{"id":1}`)}, mock))
	assert.False(t, m.Matches(&RequestView{Body: []byte(`{"name":"x"}`)}, mock))
	assert.False(t, m.Matches(&RequestView{}, mock))
	assert.False(t, m.Matches(&RequestView{Body: []byte(`{"id":1}`)}, &RequestView{}))
	assert.True(t, m.Matches(&RequestView{}, &RequestView{}))

	mismatches := m.Mismatches(&RequestView{Body: []byte(`{"name":"x"}`)}, mock)
	require.Len(t, mismatches, 1)
	assert.Contains(t, mismatches[0].Title, "body schema match mismatch: ")

	missing := m.Mismatches(&RequestView{}, mock)
	require.Len(t, missing, 1)
	assert.Equal(t, "body schema match mismatch", missing[0].Title)

	assert.Empty(t, m.Mismatches(&RequestView{Body: []byte(`{"id":1}`)}, mock))
	assert.Empty(t, m.Mismatches(&RequestView{Body: []byte(`{"id":1}`)}, &RequestView{}))
}
