package route

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidPath 路径模式格式错误
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidRegex 路径中的正则无法编译
	ErrInvalidRegex = errors.New("invalid regex in path")
	// ErrPathConflict 同一位置出现名字不同的捕获
	ErrPathConflict = errors.New("duplicate path conflict")
)

type tokenKind int

const (
	tokenStatic tokenKind = iota
	tokenParam
	tokenRegex
	tokenWildcard
)

// token is one piece of a parsed path pattern.
type token struct {
	kind  tokenKind
	text  string // literal text, or the capture name
	reSrc string
	re    *regexp.Regexp
}

func (t token) String() string {
	switch t.kind {
	case tokenParam:
		return ":" + t.text
	case tokenRegex:
		return ":" + t.text + "<" + t.reSrc + ">"
	case tokenWildcard:
		if t.text == "*" {
			return "*"
		}
		return "*" + t.text
	default:
		return t.text
	}
}

// Canonical parses a pattern and renders it back in the `:name`, `:name<re>`
// and `*name` form, so `/users/{id}` and `/users/:id` compare equal.
func Canonical(pattern string) (string, error) {
	tokens, err := parsePattern(pattern)
	if err != nil {
		return "", err
	}
	return renderTokens(tokens), nil
}

func renderTokens(tokens []token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.String())
	}
	return b.String()
}

// parsePattern splits a pattern into static text and captures.
//
//	/users/:id              => "/users/", :id
//	/users/:id<\d+>/orders  => "/users/", :id<\d+>, "/orders"
//	/users/{id}             => "/users/", :id
//	/users/{id:[0-9]+}      => "/users/", :id<[0-9]+>
//	/static/*filepath       => "/static/", *filepath
//
// ':' '*' '{' only start a capture at the beginning of a segment, elsewhere
// they are literal characters (e.g. /v1/things:batchGet).
func parsePattern(pattern string) ([]token, error) {
	pattern = strings.TrimSpace(pattern)
	if i := strings.IndexByte(pattern, '?'); i >= 0 {
		pattern = pattern[:i]
	}
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w: %q must start with '/'", ErrInvalidPath, pattern)
	}

	var (
		tokens []token
		static strings.Builder
	)
	flush := func() {
		if static.Len() > 0 {
			tokens = append(tokens, token{kind: tokenStatic, text: static.String()})
			static.Reset()
		}
	}

	i := 0
	for i < len(pattern) {
		c := pattern[i]
		atSegmentStart := i > 0 && pattern[i-1] == '/'
		if !atSegmentStart || (c != ':' && c != '*' && c != '{') {
			static.WriteByte(c)
			i++
			continue
		}

		end := strings.IndexByte(pattern[i:], '/')
		if end < 0 {
			end = len(pattern)
		} else {
			end += i
		}

		switch c {
		case '*':
			name := pattern[i+1:]
			if strings.Contains(name, "/") {
				return nil, fmt.Errorf("%w: wildcard must be the last segment in %q", ErrInvalidPath, pattern)
			}
			if name == "" {
				name = "*"
			}
			flush()
			tokens = append(tokens, token{kind: tokenWildcard, text: name})
			return tokens, nil

		case '{':
			closeAt := strings.IndexByte(pattern[i:], '}')
			if closeAt < 0 {
				return nil, fmt.Errorf("%w: unterminated '{' in %q", ErrInvalidPath, pattern)
			}
			closeAt += i
			if closeAt+1 < len(pattern) && pattern[closeAt+1] != '/' {
				return nil, fmt.Errorf("%w: capture must span a whole segment in %q", ErrInvalidPath, pattern)
			}
			name, reSrc, hasRe := strings.Cut(pattern[i+1:closeAt], ":")
			tk, err := newCapture(pattern, name, reSrc, hasRe)
			if err != nil {
				return nil, err
			}
			flush()
			tokens = append(tokens, tk)
			i = closeAt + 1

		case ':':
			seg := pattern[i+1 : end]
			name, reSrc, hasRe := seg, "", false
			if lt := strings.IndexByte(seg, '<'); lt >= 0 {
				// 正则里可能含有 '/', 找到后面紧跟 '/' 或结尾的 '>'
				gt := closingAngle(pattern, i+1+lt)
				if gt < 0 {
					return nil, fmt.Errorf("%w: unterminated '<' in %q", ErrInvalidPath, pattern)
				}
				name, reSrc, hasRe = seg[:lt], pattern[i+1+lt+1:gt], true
				end = gt + 1
			}
			tk, err := newCapture(pattern, name, reSrc, hasRe)
			if err != nil {
				return nil, err
			}
			flush()
			tokens = append(tokens, tk)
			i = end
		}
	}
	flush()
	return tokens, nil
}

func closingAngle(pattern string, from int) int {
	for j := from + 1; j < len(pattern); j++ {
		if pattern[j] == '>' && (j+1 == len(pattern) || pattern[j+1] == '/') {
			return j
		}
	}
	return -1
}

func newCapture(pattern, name, reSrc string, hasRe bool) (token, error) {
	if name == "" {
		return token{}, fmt.Errorf("%w: empty capture name in %q", ErrInvalidPath, pattern)
	}
	if strings.ContainsAny(name, "<>{}:*/") {
		return token{}, fmt.Errorf("%w: bad capture name %q in %q", ErrInvalidPath, name, pattern)
	}
	if !hasRe {
		return token{kind: tokenParam, text: name}, nil
	}
	if reSrc == "" {
		return token{}, fmt.Errorf("%w: empty regex for capture %q in %q", ErrInvalidPath, name, pattern)
	}
	re, err := regexp.Compile("^(?:" + reSrc + ")$")
	if err != nil {
		return token{}, fmt.Errorf("%w: %q: %v", ErrInvalidRegex, reSrc, err)
	}
	return token{kind: tokenRegex, text: name, reSrc: reSrc, re: re}, nil
}

// NormalizePath 将路径中的动态部分替换为 *, 用作存储层的索引 key
//
//	/api/user/:id             => /api/user/*
//	/api/user/:id<\d+>        => /api/user/*
//	/api/order/{order_id}     => /api/order/*
//	/static/*filepath         => /static/*
//
// Patterns that fail to parse are returned trimmed but otherwise untouched.
func NormalizePath(path string) string {
	tokens, err := parsePattern(path)
	if err != nil {
		return strings.TrimSpace(path)
	}
	var b strings.Builder
	for _, t := range tokens {
		if t.kind == tokenStatic {
			b.WriteString(t.text)
			continue
		}
		b.WriteByte('*')
	}
	return b.String()
}
