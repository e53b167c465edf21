// Package route implements the dispatch tree that maps URL path patterns to
// ordered lists of rule ids.
//
// The tree is a radix tree over static path text with three kinds of
// capture edges hanging off any node: regex captures (`:id<\d+>`), a single
// named capture (`:id`) and a single wildcard tail (`*rest`). Lookup walks
// static edges first, then regex captures, then the named capture, then the
// wildcard, backtracking when a branch dead-ends. Cost is proportional to the
// number of path segments, not to the number of patterns.
//
// A Tree is not safe for concurrent use; callers guard it with their own lock.
package route

import (
	"fmt"
	"regexp"
	"strings"
)

// Param is one captured path value.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Match is the result of a successful lookup.
type Match struct {
	// Pattern is the canonical pattern of the terminal node.
	Pattern string
	Params  []Param
	// IDs is a copy of the terminal's id list in priority order.
	IDs []uint64
}

// ParamMap returns the captures as a map.
func (m *Match) ParamMap() map[string]string {
	out := make(map[string]string, len(m.Params))
	for _, p := range m.Params {
		out[p.Key] = p.Value
	}
	return out
}

type node struct {
	kind   tokenKind
	prefix string // static edge label
	name   string // capture name
	reSrc  string
	re     *regexp.Regexp

	static   []*node
	regex    []*node
	param    *node
	wildcard *node

	leaf    bool
	pattern string
	ids     []rankedID
}

// rankedID is a terminal's id together with the priority it was added with.
type rankedID struct {
	id       uint64
	priority int
}

// Tree maps path patterns to ordered id lists.
type Tree struct {
	root  *node
	count int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{root: &node{}}
}

// Len returns the number of distinct terminal patterns.
func (t *Tree) Len() int {
	return t.count
}

// Add inserts id into the terminal node for pattern, before the first id
// with a greater priority and after every id with the same priority, so a
// lower value is tried first. The path structure is created when missing.
// Adding an id already present with the same priority is a no-op; with a
// different priority the id is moved.
func (t *Tree) Add(pattern string, id uint64, priority int) error {
	tokens, err := parsePattern(pattern)
	if err != nil {
		return err
	}

	n := t.root
	for _, tk := range tokens {
		switch tk.kind {
		case tokenStatic:
			n = n.insertStatic(tk.text)
		case tokenParam:
			if n.param == nil {
				n.param = &node{kind: tokenParam, name: tk.text}
			} else if n.param.name != tk.text {
				return conflictErr(pattern, n.param.name, tk.text)
			}
			n = n.param
		case tokenRegex:
			var found *node
			for _, c := range n.regex {
				if c.reSrc != tk.reSrc {
					continue
				}
				if c.name != tk.text {
					return conflictErr(pattern, c.name, tk.text)
				}
				found = c
				break
			}
			if found == nil {
				found = &node{kind: tokenRegex, name: tk.text, reSrc: tk.reSrc, re: tk.re}
				n.regex = append(n.regex, found)
			}
			n = found
		case tokenWildcard:
			if n.wildcard == nil {
				n.wildcard = &node{kind: tokenWildcard, name: tk.text}
			} else if n.wildcard.name != tk.text {
				return conflictErr(pattern, n.wildcard.name, tk.text)
			}
			n = n.wildcard
		}
	}

	if !n.leaf {
		n.leaf = true
		n.pattern = renderTokens(tokens)
		t.count++
	}
	n.insertID(id, priority)
	return nil
}

// Remove drops id from the terminal node of pattern. It reports whether the
// id was present. The path structure is kept.
func (t *Tree) Remove(pattern string, id uint64) bool {
	tokens, err := parsePattern(pattern)
	if err != nil {
		return false
	}
	n := t.root.find(tokens)
	if n == nil || !n.leaf {
		return false
	}
	return n.removeID(id)
}

// Match looks up a concrete request path.
func (t *Tree) Match(path string) (*Match, bool) {
	if path == "" {
		path = "/"
	}
	var params []Param
	n := t.root.lookup(path, &params)
	if n == nil {
		return nil, false
	}
	ids := make([]uint64, len(n.ids))
	for i, r := range n.ids {
		ids[i] = r.id
	}
	return &Match{Pattern: n.pattern, Params: params, IDs: ids}, true
}

func conflictErr(pattern, existing, incoming string) error {
	return fmt.Errorf("%w: %q uses capture %q where %q is already registered", ErrPathConflict, pattern, incoming, existing)
}

func (n *node) insertID(id uint64, priority int) {
	for _, r := range n.ids {
		if r.id == id {
			if r.priority == priority {
				return
			}
			n.removeID(id)
			break
		}
	}

	pos := len(n.ids)
	for i, r := range n.ids {
		if r.priority > priority {
			pos = i
			break
		}
	}
	n.ids = append(n.ids, rankedID{})
	copy(n.ids[pos+1:], n.ids[pos:])
	n.ids[pos] = rankedID{id: id, priority: priority}
}

func (n *node) removeID(id uint64) bool {
	for i, r := range n.ids {
		if r.id == id {
			n.ids = append(n.ids[:i], n.ids[i+1:]...)
			return true
		}
	}
	return false
}

// insertStatic walks or creates the static edges spelling s and returns the
// node at the end of s. Static siblings never share a first byte.
func (n *node) insertStatic(s string) *node {
	for {
		var next *node
		for i, c := range n.static {
			l := commonPrefix(c.prefix, s)
			if l == 0 {
				continue
			}
			if l < len(c.prefix) {
				split := &node{kind: tokenStatic, prefix: c.prefix[:l], static: []*node{c}}
				c.prefix = c.prefix[l:]
				n.static[i] = split
				c = split
			}
			if l == len(s) {
				return c
			}
			s = s[l:]
			next = c
			break
		}
		if next == nil {
			child := &node{kind: tokenStatic, prefix: s}
			n.static = append(n.static, child)
			return child
		}
		n = next
	}
}

// find walks an existing path structure without creating anything.
func (n *node) find(tokens []token) *node {
	for _, tk := range tokens {
		switch tk.kind {
		case tokenStatic:
			s := tk.text
			for s != "" {
				var next *node
				for _, c := range n.static {
					if strings.HasPrefix(s, c.prefix) {
						next = c
						break
					}
				}
				if next == nil {
					return nil
				}
				s = s[len(next.prefix):]
				n = next
			}
		case tokenParam:
			if n.param == nil || n.param.name != tk.text {
				return nil
			}
			n = n.param
		case tokenRegex:
			var found *node
			for _, c := range n.regex {
				if c.reSrc == tk.reSrc && c.name == tk.text {
					found = c
					break
				}
			}
			if found == nil {
				return nil
			}
			n = found
		case tokenWildcard:
			if n.wildcard == nil || n.wildcard.name != tk.text {
				return nil
			}
			n = n.wildcard
		}
	}
	return n
}

func (n *node) lookup(path string, params *[]Param) *node {
	if path == "" {
		if n.leaf {
			return n
		}
		if n.wildcard != nil && n.wildcard.leaf {
			*params = append(*params, Param{Key: n.wildcard.name})
			return n.wildcard
		}
		return nil
	}

	for _, c := range n.static {
		if c.prefix[0] != path[0] {
			continue
		}
		if strings.HasPrefix(path, c.prefix) {
			if r := c.lookup(path[len(c.prefix):], params); r != nil {
				return r
			}
		}
		break
	}

	seg, rest := path, ""
	if i := strings.IndexByte(path, '/'); i >= 0 {
		seg, rest = path[:i], path[i:]
	}
	if seg != "" {
		mark := len(*params)
		for _, c := range n.regex {
			if !c.re.MatchString(seg) {
				continue
			}
			*params = append(*params, Param{Key: c.name, Value: seg})
			if r := c.lookup(rest, params); r != nil {
				return r
			}
			*params = (*params)[:mark]
		}
		if n.param != nil {
			*params = append(*params, Param{Key: n.param.name, Value: seg})
			if r := n.param.lookup(rest, params); r != nil {
				return r
			}
			*params = (*params)[:mark]
		}
	}

	if n.wildcard != nil && n.wildcard.leaf {
		*params = append(*params, Param{Key: n.wildcard.name, Value: path})
		return n.wildcard
	}
	return nil
}

func commonPrefix(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	i := 0
	for i < max && a[i] == b[i] {
		i++
	}
	return i
}
