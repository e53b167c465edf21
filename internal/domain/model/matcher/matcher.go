package matcher

import (
	"fmt"

	model "go_stub_server/internal/domain/model/mock_rule"
)

// Matcher 对请求和规则模式做判定, 同时给出距离和诊断信息
type Matcher interface {
	Matches(req, mock *RequestView) bool
	Distance(req, mock *RequestView) int
	Mismatches(req, mock *RequestView) []model.Mismatch
}

var (
	_ Declarer = (*SingleValueMatcher[string])(nil)
	_ Declarer = (*RegexValueMatcher)(nil)
	_ Declarer = (*JSONSchemaMatcher)(nil)

	_ Matcher = (*SingleValueMatcher[string])(nil)
	_ Matcher = (*MultiValueMatcher)(nil)
	_ Matcher = (*RegexValueMatcher)(nil)
	_ Matcher = (*JSONSchemaMatcher)(nil)
)

// SingleValueMatcher 单个值(方法, 字符串请求体)
//
// 规则未声明时总是匹配; 规则声明了而请求中没有时不匹配.
type SingleValueMatcher[T any] struct {
	EntityName string
	Target     ValueTarget[T]
	Comparator Comparator[T]
	WithReason bool
	DiffWith   *model.Tokenizer
}

func (m *SingleValueMatcher[T]) Matches(req, mock *RequestView) bool {
	mockValue, hasMock := m.Target.Parse(mock)
	reqValue, hasReq := m.Target.Parse(req)
	switch {
	case !hasMock:
		return true
	case !hasReq:
		return false
	default:
		return m.Comparator.Matches(mockValue, reqValue)
	}
}

func (m *SingleValueMatcher[T]) Declared(mock *RequestView) bool {
	_, ok := m.Target.Parse(mock)
	return ok
}

func (m *SingleValueMatcher[T]) Distance(req, mock *RequestView) int {
	mockValue, hasMock := m.Target.Parse(mock)
	reqValue, hasReq := m.Target.Parse(req)
	return m.Comparator.Distance(optional(mockValue, hasMock), optional(reqValue, hasReq))
}

func (m *SingleValueMatcher[T]) Mismatches(req, mock *RequestView) []model.Mismatch {
	mockValue, hasMock := m.Target.Parse(mock)
	if !hasMock {
		return nil
	}
	reqValue, hasReq := m.Target.Parse(req)
	if hasReq && m.Comparator.Matches(mockValue, reqValue) {
		return nil
	}

	expected := stringify(mockValue)
	actual := "not found"
	diffActual := ""
	if hasReq {
		actual = stringify(reqValue)
		diffActual = actual
	}

	mismatch := model.Mismatch{Title: fmt.Sprintf("%s mismatch", m.EntityName)}
	if m.WithReason {
		mismatch.Reason = &model.Reason{
			Expected:   expected,
			Actual:     actual,
			Comparison: m.Comparator.Name(),
		}
	}
	if m.DiffWith != nil {
		mismatch.Diff = DiffStrings(expected, diffActual, *m.DiffWith)
	}
	return []model.Mismatch{mismatch}
}

// MultiValueMatcher key/value 集合(header, 查询参数)
//
// 规则中的每一项都要在请求中找到 key 和 value 都匹配的项. 找不到的逐项报告,
// 并附上请求中最接近的一项: 优先 key 完全相同, 否则取 key 距离加 value 距离最小的.
type MultiValueMatcher struct {
	EntityName      string
	Target          MultiValueTarget
	KeyComparator   Comparator[string]
	ValueComparator Comparator[string]
	Weight          int
}

func (m *MultiValueMatcher) Matches(req, mock *RequestView) bool {
	return len(m.findUnmatched(m.Target.Parse(req), m.Target.Parse(mock))) == 0
}

func (m *MultiValueMatcher) Distance(req, mock *RequestView) int {
	reqValues := m.Target.Parse(req)
	total := 0
	for _, kv := range m.findUnmatched(reqValues, m.Target.Parse(mock)) {
		key := kv.Key
		best, ok := m.findBestMatch(kv, reqValues)
		var d int
		if !ok {
			d = m.KeyComparator.Distance(&key, nil) + m.ValueComparator.Distance(kv.Value, nil)
		} else {
			d = m.KeyComparator.Distance(&key, &best.Key) + m.ValueComparator.Distance(kv.Value, best.Value)
		}
		total += d * m.Weight
	}
	return total
}

func (m *MultiValueMatcher) Mismatches(req, mock *RequestView) []model.Mismatch {
	reqValues := m.Target.Parse(req)
	unmatched := m.findUnmatched(reqValues, m.Target.Parse(mock))
	if len(unmatched) == 0 {
		return nil
	}

	out := make([]model.Mismatch, 0, len(unmatched))
	for _, kv := range unmatched {
		mismatch := model.Mismatch{}
		if kv.Value == nil {
			mismatch.Title = fmt.Sprintf("expected %s '%s' to exist, but it is missing", m.EntityName, kv.Key)
		} else {
			mismatch.Title = fmt.Sprintf("expected %s '%s' to have value '%s', but no such entry was found", m.EntityName, kv.Key, *kv.Value)
		}
		if best, ok := m.findBestMatch(kv, reqValues); ok {
			mismatch.Reason = &model.Reason{
				Expected:   kv.String(),
				Actual:     best.String(),
				Comparison: fmt.Sprintf("key=%s, value=%s", m.KeyComparator.Name(), m.ValueComparator.Name()),
				BestMatch:  true,
			}
		}
		out = append(out, mismatch)
	}
	return out
}

func (m *MultiValueMatcher) findUnmatched(reqValues, mockValues []KeyValue) []KeyValue {
	var unmatched []KeyValue
	for _, mk := range mockValues {
		found := false
		for _, rk := range reqValues {
			if !m.KeyComparator.Matches(mk.Key, rk.Key) {
				continue
			}
			switch {
			case mk.Value == nil:
				found = true
			case rk.Value == nil:
				// 规则要求有值, 请求中没有
			default:
				found = m.ValueComparator.Matches(*mk.Value, *rk.Value)
			}
			if found {
				break
			}
		}
		if !found {
			unmatched = append(unmatched, mk)
		}
	}
	return unmatched
}

func (m *MultiValueMatcher) findBestMatch(expected KeyValue, reqValues []KeyValue) (KeyValue, bool) {
	if len(reqValues) == 0 {
		return KeyValue{}, false
	}
	for _, rk := range reqValues {
		if rk.Key == expected.Key {
			return rk, true
		}
	}

	best, bestDistance := KeyValue{}, -1
	for _, rk := range reqValues {
		key := rk.Key
		d := m.KeyComparator.Distance(&expected.Key, &key) + m.ValueComparator.Distance(expected.Value, rk.Value)
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = rk, d
		}
	}
	return best, true
}

func (kv KeyValue) String() string {
	if kv.Value == nil {
		return kv.Key
	}
	return kv.Key + "=" + *kv.Value
}

// RegexValueMatcher JSON 请求体的递归正则匹配
//
// 规则未声明 JSON 模式而请求带了请求体时不匹配, 交给其他请求体匹配器处理.
type RegexValueMatcher struct {
	EntityName string
	Target     ValueTarget[any]
	Comparator Comparator[any]
	WithReason bool
}

func (m *RegexValueMatcher) Matches(req, mock *RequestView) bool {
	mockValue, hasMock := m.Target.Parse(mock)
	reqValue, hasReq := m.Target.Parse(req)
	switch {
	case !hasMock:
		return req.Body == nil
	case !hasReq:
		return false
	default:
		return m.Comparator.Matches(mockValue, reqValue)
	}
}

func (m *RegexValueMatcher) Declared(mock *RequestView) bool {
	_, ok := m.Target.Parse(mock)
	return ok
}

func (m *RegexValueMatcher) Distance(req, mock *RequestView) int {
	mockValue, hasMock := m.Target.Parse(mock)
	reqValue, hasReq := m.Target.Parse(req)
	return m.Comparator.Distance(optional(mockValue, hasMock), optional(reqValue, hasReq))
}

func (m *RegexValueMatcher) Mismatches(req, mock *RequestView) []model.Mismatch {
	mockValue, hasMock := m.Target.Parse(mock)
	if !hasMock {
		return nil
	}
	reqValue, hasReq := m.Target.Parse(req)
	if !hasReq {
		return []model.Mismatch{m.mismatch(fmt.Sprintf("%s mismatch", m.EntityName), mockValue, "not found")}
	}
	title := MatchJSONKey("$", mockValue, reqValue)
	if title == nil {
		return nil
	}
	return []model.Mismatch{m.mismatch(*title, mockValue, stringify(reqValue))}
}

func (m *RegexValueMatcher) mismatch(title string, expected any, actual string) model.Mismatch {
	mismatch := model.Mismatch{Title: title}
	if m.WithReason {
		mismatch.Reason = &model.Reason{
			Expected:   stringify(expected),
			Actual:     actual,
			Comparison: m.Comparator.Name(),
		}
	}
	return mismatch
}

// JSONSchemaMatcher 用规则中的 body schema 校验 JSON 请求体
//
// 规则没有 schema 而请求带了请求体时不匹配.
type JSONSchemaMatcher struct {
	EntityName string
	Target     ValueTarget[any]
	Source     ValueTarget[any]
	Comparator *JSONSchemaComparator
	WithReason bool
}

func (m *JSONSchemaMatcher) Matches(req, mock *RequestView) bool {
	schema, hasSchema := m.Source.Parse(mock)
	body, hasBody := m.Target.Parse(req)
	switch {
	case !hasSchema:
		return req.Body == nil
	case !hasBody:
		return false
	default:
		return m.Comparator.Matches(schema, body)
	}
}

func (m *JSONSchemaMatcher) Declared(mock *RequestView) bool {
	_, ok := m.Source.Parse(mock)
	return ok
}

func (m *JSONSchemaMatcher) Distance(req, mock *RequestView) int {
	schema, hasSchema := m.Source.Parse(mock)
	body, hasBody := m.Target.Parse(req)
	return m.Comparator.Distance(optional(schema, hasSchema), optional(body, hasBody))
}

func (m *JSONSchemaMatcher) Mismatches(req, mock *RequestView) []model.Mismatch {
	schema, hasSchema := m.Source.Parse(mock)
	if !hasSchema {
		return nil
	}
	body, hasBody := m.Target.Parse(req)
	actual := "not found"
	title := fmt.Sprintf("%s mismatch", m.EntityName)
	if hasBody {
		err := m.Comparator.Validate(schema, body)
		if err == nil {
			return nil
		}
		actual = stringify(body)
		title = fmt.Sprintf("%s mismatch: %v", m.EntityName, err)
	}

	mismatch := model.Mismatch{Title: title}
	if m.WithReason {
		mismatch.Reason = &model.Reason{
			Expected:   stringify(schema),
			Actual:     actual,
			Comparison: m.Comparator.Name(),
		}
	}
	return []model.Mismatch{mismatch}
}

func optional[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}
