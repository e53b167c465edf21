package matcher

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestComparatorMatches(t *testing.T) {
	tests := []struct {
		name       string
		comparator Comparator[string]
		expected   string
		actual     string
		want       bool
	}{
		{"exact equal", NewExactComparator(true), "GET", "GET", true},
		{"exact case sensitive", NewExactComparator(true), "GET", "get", false},
		{"exact case insensitive", NewExactComparator(false), "GET", "get", true},
		{"exact wildcard", NewExactComparator(true), "*", "anything", true},
		{"contains", NewContainsComparator(true), "test", "a test string", true},
		{"contains case", NewContainsComparator(true), "TEST", "a test string", false},
		{"contains case insensitive", NewContainsComparator(false), "TEST", "a test string", true},
		{"regex find", NewRegexComparator(), `\d+`, "page 12", true},
		{"regex anchored", NewRegexComparator(), `^\d+$`, "page 12", false},
		{"regex invalid falls back to literal", NewRegexComparator(), "a(b", "a(b", true},
		{"regex invalid literal mismatch", NewRegexComparator(), "a(b", "ab", false},
		{"any", AnyComparator[string]{}, "x", "y", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.comparator.Matches(tt.expected, tt.actual))
		})
	}
}

func TestComparatorDistance(t *testing.T) {
	exact := NewExactComparator(true)
	assert.Equal(t, 6, exact.Distance(strPtr("test string"), strPtr("not a test string")))
	assert.Equal(t, 0, exact.Distance(strPtr("same"), strPtr("same")))
	assert.Equal(t, 3, exact.Distance(strPtr("abc"), nil))
	assert.Equal(t, 4, exact.Distance(nil, strPtr("abcd")))
	assert.Equal(t, 0, exact.Distance(nil, nil))

	assert.Equal(t, 1, NewRegexComparator().Distance(strPtr("abc"), strPtr("abd")))
	assert.Equal(t, 0, AnyComparator[string]{}.Distance(strPtr("abc"), nil))

	var expected, actual any = "ab", json.Number("12")
	assert.Equal(t, 2, NewJSONRegexComparator().Distance(&expected, &actual))
}

func TestComparatorNames(t *testing.T) {
	assert.Equal(t, "equals", NewExactComparator(false).Name())
	assert.Equal(t, "contains", NewContainsComparator(false).Name())
	assert.Equal(t, "matches regex", NewRegexComparator().Name())
	assert.Equal(t, "json_equal", NewJSONRegexComparator().Name())
	assert.Equal(t, "json_schema", NewJSONSchemaComparator().Name())
	assert.Equal(t, "any", AnyComparator[int]{}.Name())
}

func TestJSONSchemaComparator(t *testing.T) {
	c := NewJSONSchemaComparator()
	schema, ok := parseJSON([]byte(`{"type":"object","required":["id"],"properties":{"id":{"type":"integer"}}}`))
	require.True(t, ok)

	valid, _ := parseJSON([]byte(`{"id": 12}`))
	missing, _ := parseJSON([]byte(`{"name": "x"}`))
	wrongType, _ := parseJSON([]byte(`{"id": "12"}`))

	assert.True(t, c.Matches(schema, valid))
	assert.False(t, c.Matches(schema, missing))
	assert.False(t, c.Matches(schema, wrongType))
	assert.Error(t, c.Validate(schema, missing))

	// 同一个 schema 只编译一次
	assert.Len(t, c.cache, 1)

	bad, _ := parseJSON([]byte(`{"type": 12}`))
	err := c.Validate(bad, valid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile schema")
}
