package matcher

import (
	"strings"

	model "go_stub_server/internal/domain/model/mock_rule"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffStrings 按指定粒度比较两个字符串
//
// Distance 为新增和删除的 token 数之和.
func DiffStrings(expected, actual string, tokenizer model.Tokenizer) *model.DiffResult {
	a, b := tokenize(expected, tokenizer), tokenize(actual, tokenizer)
	sep := separator(tokenizer)

	m := difflib.NewMatcher(a, b)
	result := &model.DiffResult{Tokenizer: tokenizer, Differences: []model.Diff{}}
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			result.Differences = append(result.Differences, model.Diff{Kind: model.DiffSame, Text: strings.Join(a[op.I1:op.I2], sep)})
		case 'd':
			result.Differences = append(result.Differences, model.Diff{Kind: model.DiffRem, Text: strings.Join(a[op.I1:op.I2], sep)})
			result.Distance += float32(op.I2 - op.I1)
		case 'i':
			result.Differences = append(result.Differences, model.Diff{Kind: model.DiffAdd, Text: strings.Join(b[op.J1:op.J2], sep)})
			result.Distance += float32(op.J2 - op.J1)
		case 'r':
			result.Differences = append(result.Differences,
				model.Diff{Kind: model.DiffRem, Text: strings.Join(a[op.I1:op.I2], sep)},
				model.Diff{Kind: model.DiffAdd, Text: strings.Join(b[op.J1:op.J2], sep)},
			)
			result.Distance += float32(op.I2 - op.I1 + op.J2 - op.J1)
		}
	}
	return result
}

func separator(t model.Tokenizer) string {
	switch t {
	case model.TokenizerLine:
		return "\n"
	case model.TokenizerWord:
		return " "
	default:
		return ""
	}
}

func tokenize(s string, t model.Tokenizer) []string {
	if s == "" {
		return nil
	}
	switch t {
	case model.TokenizerLine:
		return strings.Split(s, "\n")
	case model.TokenizerWord:
		return strings.Split(s, " ")
	default:
		out := make([]string, 0, len(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		return out
	}
}
