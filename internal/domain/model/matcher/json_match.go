package matcher

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// MatchJSONKey 递归比较 JSON 模式和实际值, 匹配时返回 nil, 否则返回第一处不匹配的描述
//
//   - 模式中的字符串是正则, 和实际值的字符串形式匹配(数字, 布尔值也转成字符串);
//     字符串 "*" 匹配任意数组或对象
//   - 数字, 布尔值, null 必须相等
//   - 数组按位置逐个匹配, 长度必须一致
//   - 对象只检查模式中声明的 key, 实际值多出来的 key 忽略
//
// 描述里的路径是 root 加上各级 key, 例如 $name.
func MatchJSONKey(root string, pattern, actual any) *string {
	switch p := pattern.(type) {
	case string:
		switch a := actual.(type) {
		case []any, map[string]any:
			if p == "*" {
				return nil
			}
			return mismatchf(root, p, actual)
		case string:
			if matchStringRegex(p, a) {
				return nil
			}
			return mismatchf(root, p, actual)
		case bool:
			if matchStringRegex(p, strconv.FormatBool(a)) {
				return nil
			}
			return mismatchf(root, p, actual)
		default:
			if s, ok := numberString(actual); ok && matchStringRegex(p, s) {
				return nil
			}
			return mismatchf(root, p, actual)
		}

	case bool:
		if a, ok := actual.(bool); ok && a == p {
			return nil
		}
		return mismatchf(root, p, actual)

	case nil:
		if actual == nil {
			return nil
		}
		return mismatchf(root, nil, actual)

	case []any:
		a, ok := actual.([]any)
		if !ok {
			return mismatchf(root, p, actual)
		}
		if len(a) != len(p) {
			msg := fmt.Sprintf("%s length mismatch, expected: %d, actual: %d", root, len(p), len(a))
			return &msg
		}
		for i := range p {
			if msg := MatchJSONKey(root, p[i], a[i]); msg != nil {
				return msg
			}
		}
		return nil

	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return mismatchf(root, p, actual)
		}
		// 按 key 排序保证诊断信息稳定
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, exists := a[k]
			if !exists {
				msg := fmt.Sprintf("%s value mismatch, expected key: %s, not found", root, k)
				return &msg
			}
			if msg := MatchJSONKey(root+k, p[k], v); msg != nil {
				return msg
			}
		}
		return nil

	default:
		pn, ok := numberValue(pattern)
		if !ok {
			return nil
		}
		if an, ok := numberValue(actual); ok && an == pn {
			return nil
		}
		return mismatchf(root, pattern, actual)
	}
}

func mismatchf(root string, expected, actual any) *string {
	msg := fmt.Sprintf("%s value mismatch, expected: %s, actual: %s", root, stringify(expected), stringify(actual))
	return &msg
}

func numberString(v any) (string, bool) {
	switch n := v.(type) {
	case json.Number:
		return n.String(), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	}
	return "", false
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// stringify 字符串原样返回, 其他值编码为 JSON
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
