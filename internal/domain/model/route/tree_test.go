package route

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeMatch(t *testing.T) {
	tree := NewTree()
	patterns := []struct {
		pattern string
		id      uint64
	}{
		{"/", 1},
		{"/users", 2},
		{"/users/:id", 3},
		{"/users/me", 4},
		{`/users/:id/orders/:oid<\d+>`, 5},
		{"/users/:id/orders/:name", 6},
		{"/static/*filepath", 7},
		{"/userstats", 8},
		{"/v1/things:batchGet", 9},
	}
	for _, p := range patterns {
		require.NoError(t, tree.Add(p.pattern, p.id, 0), p.pattern)
	}
	assert.Equal(t, len(patterns), tree.Len())

	tests := []struct {
		name    string
		path    string
		found   bool
		ids     []uint64
		params  map[string]string
		pattern string
	}{
		{name: "root", path: "/", found: true, ids: []uint64{1}, params: map[string]string{}, pattern: "/"},
		{name: "empty path is root", path: "", found: true, ids: []uint64{1}, params: map[string]string{}},
		{name: "static", path: "/users", found: true, ids: []uint64{2}, params: map[string]string{}},
		{name: "static wins over capture", path: "/users/me", found: true, ids: []uint64{4}, params: map[string]string{}},
		{name: "named capture", path: "/users/42", found: true, ids: []uint64{3}, params: map[string]string{"id": "42"}, pattern: "/users/:id"},
		{name: "regex capture before named capture", path: "/users/42/orders/7", found: true, ids: []uint64{5},
			params: map[string]string{"id": "42", "oid": "7"}},
		{name: "named capture when regex fails", path: "/users/42/orders/abc", found: true, ids: []uint64{6},
			params: map[string]string{"id": "42", "name": "abc"}},
		{name: "backtrack from static me", path: "/users/me/orders/1", found: true, ids: []uint64{5},
			params: map[string]string{"id": "me", "oid": "1"}},
		{name: "wildcard", path: "/static/css/site.css", found: true, ids: []uint64{7},
			params: map[string]string{"filepath": "css/site.css"}},
		{name: "wildcard empty remainder", path: "/static/", found: true, ids: []uint64{7},
			params: map[string]string{"filepath": ""}},
		{name: "split static sibling", path: "/userstats", found: true, ids: []uint64{8}, params: map[string]string{}},
		{name: "literal colon", path: "/v1/things:batchGet", found: true, ids: []uint64{9}, params: map[string]string{}},
		{name: "no route", path: "/orders", found: false},
		{name: "capture needs a segment", path: "/users/", found: false},
		{name: "too deep", path: "/users/42/profile", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := tree.Match(tt.path)
			assert.Equal(t, tt.found, ok)
			if !tt.found {
				return
			}
			assert.Equal(t, tt.ids, m.IDs)
			assert.Equal(t, tt.params, m.ParamMap())
			if tt.pattern != "" {
				assert.Equal(t, tt.pattern, m.Pattern)
			}
		})
	}
}

func TestTreeAddPriority(t *testing.T) {
	tests := []struct {
		name string
		adds [][2]int // id, priority
		want []uint64
	}{
		{"ascending", [][2]int{{1, 0}, {2, 1}, {3, 2}}, []uint64{1, 2, 3}},
		{"descending", [][2]int{{1, 2}, {2, 1}, {3, 0}}, []uint64{3, 2, 1}},
		{"non contiguous", [][2]int{{5, 5}, {3, 3}}, []uint64{3, 5}},
		{"sparse values", [][2]int{{1, 100}, {2, 7}, {3, 50}, {4, 7}}, []uint64{2, 4, 3, 1}},
		{"equal keeps insertion order", [][2]int{{10, 1}, {20, 0}, {30, 1}, {40, 99}}, []uint64{20, 10, 30, 40}},
		{"lower after higher", [][2]int{{1, 0}, {2, 0}, {3, 1}, {4, 0}}, []uint64{1, 2, 4, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := NewTree()
			for _, a := range tt.adds {
				require.NoError(t, tree.Add("/users/:id", uint64(a[0]), a[1]))
			}
			m, ok := tree.Match("/users/1")
			require.True(t, ok)
			assert.Equal(t, tt.want, m.IDs)
			assert.Equal(t, 1, tree.Len())
		})
	}
}

func TestTreeAddIdempotent(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Add("/ping", 1, 1))
	for i := 0; i < 3; i++ {
		require.NoError(t, tree.Add("/ping", 7, 0))
	}
	m, ok := tree.Match("/ping")
	require.True(t, ok)
	assert.Equal(t, []uint64{7, 1}, m.IDs)

	// 优先级变化时移动位置, 不重复
	require.NoError(t, tree.Add("/ping", 7, 2))
	m, _ = tree.Match("/ping")
	assert.Equal(t, []uint64{1, 7}, m.IDs)
}

func TestTreeMatchReturnsCopy(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Add("/ping", 1, 0))

	m, _ := tree.Match("/ping")
	m.IDs[0] = 99

	again, _ := tree.Match("/ping")
	assert.Equal(t, []uint64{1}, again.IDs)
}

func TestTreeAddConflict(t *testing.T) {
	tests := []struct {
		name   string
		first  string
		second string
	}{
		{name: "named capture", first: "/users/:id", second: "/users/:name"},
		{name: "wildcard", first: "/static/*path", second: "/static/*rest"},
		{name: "regex name", first: `/users/:id<\d+>`, second: `/users/:uid<\d+>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := NewTree()
			require.NoError(t, tree.Add(tt.first, 1, 0))
			err := tree.Add(tt.second, 2, 0)
			assert.True(t, errors.Is(err, ErrPathConflict), "got %v", err)
		})
	}
}

func TestTreeAddInvalid(t *testing.T) {
	tree := NewTree()
	assert.ErrorIs(t, tree.Add("users", 1, 0), ErrInvalidPath)
	assert.ErrorIs(t, tree.Add("/users/:id<(>", 1, 0), ErrInvalidRegex)
	assert.Equal(t, 0, tree.Len())
}

func TestTreeRemove(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Add("/users/:id", 1, 0))
	require.NoError(t, tree.Add("/users/:id", 2, 1))

	assert.True(t, tree.Remove("/users/{id}", 1))
	assert.False(t, tree.Remove("/users/:id", 1))
	assert.False(t, tree.Remove("/unknown", 2))

	m, ok := tree.Match("/users/5")
	require.True(t, ok)
	assert.Equal(t, []uint64{2}, m.IDs)
}

func TestTreeFirstInsertedWins(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Add(`/items/:id<[a-z]+>`, 1, 0))
	require.NoError(t, tree.Add(`/items/:id<[a-c]+>`, 2, 0))

	m, ok := tree.Match("/items/abc")
	require.True(t, ok)
	assert.Equal(t, []uint64{1}, m.IDs)
}

func BenchmarkTreeMatch(b *testing.B) {
	tree := NewTree()
	for i := 0; i < 1000; i++ {
		_ = tree.Add(fmt.Sprintf("/api/v1/resource%d/:id/items/*rest", i), uint64(i), 0)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Match("/api/v1/resource500/42/items/a/b/c")
	}
}
