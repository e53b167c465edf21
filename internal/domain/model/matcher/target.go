package matcher

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	model "go_stub_server/internal/domain/model/mock_rule"
)

// RequestView 请求和规则模式的统一视图, 目标从这里取值
type RequestView struct {
	Method      *string
	Headers     map[string]string
	QueryParams map[string]string
	Body        []byte
	BodySchema  []byte
}

// ViewOfRequest 实际请求的视图
func ViewOfRequest(req *model.IncomingRequest) *RequestView {
	v := &RequestView{
		Headers:     req.Headers,
		QueryParams: req.QueryParams,
		Body:        req.Body,
	}
	if req.Method != "" {
		m := req.Method
		v.Method = &m
	}
	return v
}

// ViewOfPattern 规则模式的视图
func ViewOfPattern(p *model.RequestPattern) *RequestView {
	v := &RequestView{
		Method:      p.Method,
		Headers:     p.Headers,
		QueryParams: p.QueryParams,
		Body:        p.Body,
	}
	if p.BodySchema != "" {
		v.BodySchema = []byte(p.BodySchema)
	}
	return v
}

// ValueTarget 从视图中取出一个值, 不存在时 ok 为 false
type ValueTarget[T any] interface {
	Parse(v *RequestView) (T, bool)
}

// KeyValue 多值目标中的一项, Value 为 nil 表示只要求 key 存在
type KeyValue struct {
	Key   string
	Value *string
}

// MultiValueTarget 从视图中取出 key/value 列表, 不存在时返回 nil
type MultiValueTarget interface {
	Parse(v *RequestView) []KeyValue
}

var (
	_ ValueTarget[string] = MethodTarget{}
	_ ValueTarget[string] = StringBodyTarget{}
	_ ValueTarget[any]    = JSONBodyTarget{}
	_ ValueTarget[any]    = JSONSchemaTarget{}
	_ MultiValueTarget    = HeaderTarget{}
	_ MultiValueTarget    = QueryParameterTarget{}
)

type MethodTarget struct{}

func (MethodTarget) Parse(v *RequestView) (string, bool) {
	if v.Method == nil {
		return "", false
	}
	return *v.Method, true
}

type StringBodyTarget struct{}

func (StringBodyTarget) Parse(v *RequestView) (string, bool) {
	if v.Body == nil {
		return "", false
	}
	return string(bytes.ToValidUTF8(v.Body, []byte("�"))), true
}

// JSONBodyTarget 请求体解析为 JSON, 为空或不是合法 JSON 时视为不存在
type JSONBodyTarget struct{}

func (JSONBodyTarget) Parse(v *RequestView) (any, bool) {
	return parseJSON(v.Body)
}

// JSONSchemaTarget 规则中的 body schema
type JSONSchemaTarget struct{}

func (JSONSchemaTarget) Parse(v *RequestView) (any, bool) {
	return parseJSON(v.BodySchema)
}

// HeaderTarget header 的 key 统一转成小写
type HeaderTarget struct{}

func (HeaderTarget) Parse(v *RequestView) []KeyValue {
	if v.Headers == nil {
		return nil
	}
	return sortedPairs(v.Headers, strings.ToLower)
}

type QueryParameterTarget struct{}

func (QueryParameterTarget) Parse(v *RequestView) []KeyValue {
	if v.QueryParams == nil {
		return nil
	}
	return sortedPairs(v.QueryParams, nil)
}

func sortedPairs(m map[string]string, keyFn func(string) string) []KeyValue {
	out := make([]KeyValue, 0, len(m))
	for k, val := range m {
		val := val
		if keyFn != nil {
			k = keyFn(k)
		}
		out = append(out, KeyValue{Key: k, Value: &val})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func parseJSON(data []byte) (any, bool) {
	if len(data) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	// 只允许一个 JSON 值
	if dec.More() {
		return nil, false
	}
	return out, true
}
