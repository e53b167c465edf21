package matcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Comparator 比较规则声明的值和请求中的实际值
//
// Distance 是粗粒度的相似度, 0 表示相同, 只用于给诊断信息排序, nil 表示该侧缺失.
type Comparator[T any] interface {
	Matches(expected, actual T) bool
	Distance(expected, actual *T) int
	Name() string
}

var (
	_ Comparator[string] = (*ExactComparator)(nil)
	_ Comparator[string] = (*ContainsComparator)(nil)
	_ Comparator[string] = (*RegexComparator)(nil)
	_ Comparator[any]    = (*JSONRegexComparator)(nil)
	_ Comparator[any]    = (*JSONSchemaComparator)(nil)
	_ Comparator[string] = AnyComparator[string]{}
)

// ExactComparator 字符串相等, "*" 匹配任意值
type ExactComparator struct {
	CaseSensitive bool
}

func NewExactComparator(caseSensitive bool) *ExactComparator {
	return &ExactComparator{CaseSensitive: caseSensitive}
}

func (c *ExactComparator) Matches(expected, actual string) bool {
	if expected == "*" {
		return true
	}
	if c.CaseSensitive {
		return expected == actual
	}
	return strings.EqualFold(expected, actual)
}

func (c *ExactComparator) Distance(expected, actual *string) int {
	return stringDistance(expected, actual)
}

func (c *ExactComparator) Name() string {
	return "equals"
}

// ContainsComparator 实际值包含期望值
type ContainsComparator struct {
	CaseSensitive bool
}

func NewContainsComparator(caseSensitive bool) *ContainsComparator {
	return &ContainsComparator{CaseSensitive: caseSensitive}
}

func (c *ContainsComparator) Matches(expected, actual string) bool {
	if expected == "*" {
		return true
	}
	if c.CaseSensitive {
		return strings.Contains(actual, expected)
	}
	return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
}

func (c *ContainsComparator) Distance(expected, actual *string) int {
	return stringDistance(expected, actual)
}

func (c *ContainsComparator) Name() string {
	return "contains"
}

// RegexComparator 期望值作为正则在实际值中查找, 正则编译失败时退化为字面量相等
type RegexComparator struct{}

func NewRegexComparator() *RegexComparator {
	return &RegexComparator{}
}

func (c *RegexComparator) Matches(expected, actual string) bool {
	return matchStringRegex(expected, actual)
}

func (c *RegexComparator) Distance(expected, actual *string) int {
	return stringDistance(expected, actual)
}

func (c *RegexComparator) Name() string {
	return "matches regex"
}

// JSONRegexComparator 递归的 JSON 正则匹配, 见 MatchJSONKey
type JSONRegexComparator struct{}

func NewJSONRegexComparator() *JSONRegexComparator {
	return &JSONRegexComparator{}
}

func (c *JSONRegexComparator) Matches(expected, actual any) bool {
	return MatchJSONKey("$", expected, actual) == nil
}

func (c *JSONRegexComparator) Distance(expected, actual *any) int {
	return jsonDistance(expected, actual)
}

func (c *JSONRegexComparator) Name() string {
	return "json_equal"
}

// AnyComparator 总是匹配
type AnyComparator[T any] struct{}

func (AnyComparator[T]) Matches(_, _ T) bool { return true }

func (AnyComparator[T]) Distance(_, _ *T) int { return 0 }

func (AnyComparator[T]) Name() string { return "any" }

// JSONSchemaComparator 用 expected 作为 JSON schema 校验 actual
//
// 编译后的 schema 按文本缓存.
type JSONSchemaComparator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

func NewJSONSchemaComparator() *JSONSchemaComparator {
	return &JSONSchemaComparator{cache: make(map[string]*jsonschema.Schema)}
}

func (c *JSONSchemaComparator) Matches(expected, actual any) bool {
	return c.Validate(expected, actual) == nil
}

// Validate 返回校验失败的原因
func (c *JSONSchemaComparator) Validate(schemaDoc, actual any) error {
	schema, err := c.compile(schemaDoc)
	if err != nil {
		return err
	}
	return schema.Validate(actual)
}

func (c *JSONSchemaComparator) Distance(expected, actual *any) int {
	return jsonDistance(expected, actual)
}

func (c *JSONSchemaComparator) Name() string {
	return "json_schema"
}

func (c *JSONSchemaComparator) compile(schemaDoc any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	key := string(raw)

	c.mu.RLock()
	if s, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	c.mu.Lock()
	if existing, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.cache[key] = schema
	c.mu.Unlock()
	return schema, nil
}

// stringDistance 两侧字符串的编辑距离, 缺失的一侧按空串计算
func stringDistance(expected, actual *string) int {
	var e, a string
	if expected != nil {
		e = *expected
	}
	if actual != nil {
		a = *actual
	}
	return levenshtein.ComputeDistance(e, a)
}

func jsonDistance(expected, actual *any) int {
	var e, a string
	if expected != nil {
		e = stringify(*expected)
	}
	if actual != nil {
		a = stringify(*actual)
	}
	return levenshtein.ComputeDistance(e, a)
}

var regexCache = struct {
	sync.RWMutex
	m map[string]*regexp.Regexp
}{m: make(map[string]*regexp.Regexp)}

// matchStringRegex 正则非法时按字面量比较
func matchStringRegex(pattern, value string) bool {
	regexCache.RLock()
	re, ok := regexCache.m[pattern]
	regexCache.RUnlock()
	if !ok {
		compiled, _ := regexp.Compile(pattern)
		regexCache.Lock()
		regexCache.m[pattern] = compiled
		regexCache.Unlock()
		re = compiled
	}
	if re == nil {
		return pattern == value
	}
	return re.MatchString(value)
}
