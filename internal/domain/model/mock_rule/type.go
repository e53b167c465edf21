package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrRuleNotFound 规则不存在
var ErrRuleNotFound = errors.New("rule not found")

// DispatchErrorKind 分发失败的类型
type DispatchErrorKind string

const (
	NoRouteFound       DispatchErrorKind = "no_route_found"       // 路径没有注册
	NoRuleMatched      DispatchErrorKind = "no_rule_matched"      // 路径命中, 规则条件都不满足
	NoResponseProduced DispatchErrorKind = "no_response_produced" // 既没有响应也没有诊断信息
)

func (k DispatchErrorKind) String() string {
	return string(k)
}

// StatusCode 对应的 HTTP 状态码
func (k DispatchErrorKind) StatusCode() int {
	switch k {
	case NoRouteFound:
		return http.StatusNotFound
	case NoRuleMatched:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// DispatchError 分发流水线的失败结果
type DispatchError struct {
	Kind       DispatchErrorKind
	Path       string
	Mismatches []Mismatch
}

func (e *DispatchError) Error() string {
	switch e.Kind {
	case NoRouteFound:
		return fmt.Sprintf("no route found for %s", e.Path)
	case NoRuleMatched:
		return fmt.Sprintf("no rule matched %s (%d mismatches)", e.Path, len(e.Mismatches))
	default:
		return fmt.Sprintf("no response produced for %s", e.Path)
	}
}

func (e *DispatchError) StatusCode() int {
	return e.Kind.StatusCode()
}

// Body 返回给调用方的响应体: 404 为空, 400 为格式化后的诊断列表
func (e *DispatchError) Body() []byte {
	switch e.Kind {
	case NoRouteFound:
		return nil
	case NoRuleMatched:
		b, err := json.MarshalIndent(e.Mismatches, "", "  ")
		if err != nil {
			return []byte(err.Error())
		}
		return b
	default:
		return []byte(e.Error())
	}
}

// RuleFilter 规则列表的过滤条件, 为 nil 的字段不过滤
type RuleFilter struct {
	MatchIndex *string // 标准化后的路径, 如 /api/user/*
}

// NewPathFilter 按路径模式过滤, path 会先做标准化
func NewPathFilter(path string) *RuleFilter {
	idx := BuildMatchIndexKey(path)
	return &RuleFilter{MatchIndex: &idx}
}

// Match 在内存中判断规则是否满足过滤条件
func (f *RuleFilter) Match(rule *RuleDefinition) bool {
	if f == nil {
		return true
	}
	if f.MatchIndex != nil && BuildMatchIndexKeyFromRule(rule) != *f.MatchIndex {
		return false
	}
	return true
}
