package matcher

import (
	model "go_stub_server/internal/domain/model/mock_rule"
	"go_stub_server/utils"

	"github.com/sirupsen/logrus"
)

// RequestFilter 规则的请求过滤器
//
// Matchers 必须全部满足. BodyMatchers 只看规则里声明了的策略, 满足任意一个即可,
// 一个都没声明时不约束请求体.
// 不满足时只从失败的那一组里收集诊断信息, 组内每个匹配器都会参与.
type RequestFilter struct {
	Matchers     []Matcher
	BodyMatchers []Matcher
}

// NewRequestFilter 默认的匹配链
func NewRequestFilter() *RequestFilter {
	word := model.TokenizerWord
	schemaComparator := NewJSONSchemaComparator()

	return &RequestFilter{
		Matchers: []Matcher{
			&SingleValueMatcher[string]{
				EntityName: "method",
				Target:     MethodTarget{},
				Comparator: NewExactComparator(false),
				DiffWith:   &word,
			},
			&MultiValueMatcher{
				EntityName:      "query parameter",
				Target:          QueryParameterTarget{},
				KeyComparator:   NewExactComparator(true),
				ValueComparator: NewRegexComparator(),
				Weight:          1,
			},
			&MultiValueMatcher{
				EntityName:      "header",
				Target:          HeaderTarget{},
				KeyComparator:   NewExactComparator(false),
				ValueComparator: NewRegexComparator(),
				Weight:          1,
			},
		},
		BodyMatchers: []Matcher{
			&JSONSchemaMatcher{
				EntityName: "body schema match",
				Target:     JSONBodyTarget{},
				Source:     JSONSchemaTarget{},
				Comparator: schemaComparator,
			},
			&RegexValueMatcher{
				EntityName: "body json regex match",
				Target:     JSONBodyTarget{},
				Comparator: NewJSONRegexComparator(),
				WithReason: true,
			},
			&SingleValueMatcher[string]{
				EntityName: "body string match",
				Target:     StringBodyTarget{},
				Comparator: NewRegexComparator(),
				DiffWith:   &word,
			},
		},
	}
}

// Evaluate 判断请求是否满足规则模式, 不满足时返回诊断信息
func (f *RequestFilter) Evaluate(req *model.IncomingRequest, pattern *model.RequestPattern) (bool, []model.Mismatch) {
	reqView, mockView := ViewOfRequest(req), ViewOfPattern(pattern)

	allMatched := true
	for _, m := range f.Matchers {
		if !m.Matches(reqView, mockView) {
			allMatched = false
			break
		}
	}

	bodyMatchers := declaredOnly(f.BodyMatchers, mockView)
	bodyMatched := len(bodyMatchers) == 0
	for _, m := range bodyMatchers {
		if m.Matches(reqView, mockView) {
			bodyMatched = true
			break
		}
	}

	if allMatched && bodyMatched {
		return true, nil
	}

	var mismatches []model.Mismatch
	if !allMatched {
		mismatches = append(mismatches, collect(f.Matchers, reqView, mockView)...)
	}
	if !bodyMatched {
		mismatches = append(mismatches, collect(bodyMatchers, reqView, mockView)...)
	}

	utils.GetLogger().WithFields(logrus.Fields{
		"path":         req.Path,
		"method":       req.Method,
		"filter_all":   allMatched,
		"filter_body":  bodyMatched,
		"mismatch_cnt": len(mismatches),
	}).Debug("request filter rejected")
	return false, mismatches
}

func collect(matchers []Matcher, req, mock *RequestView) []model.Mismatch {
	var out []model.Mismatch
	for _, m := range matchers {
		out = append(out, m.Mismatches(req, mock)...)
	}
	return out
}

// Declarer 匹配器可以告知规则是否声明了它关心的字段
type Declarer interface {
	Declared(mock *RequestView) bool
}

func declaredOnly(matchers []Matcher, mock *RequestView) []Matcher {
	out := make([]Matcher, 0, len(matchers))
	for _, m := range matchers {
		if d, ok := m.(Declarer); ok && !d.Declared(mock) {
			continue
		}
		out = append(out, m)
	}
	return out
}
