package model

import (
	"encoding/json"
	"fmt"
)

// Mismatch 一条不匹配的诊断信息
type Mismatch struct {
	Title  string      `json:"title"`
	Reason *Reason     `json:"reason"`
	Diff   *DiffResult `json:"diff"`
}

// Reason 期望值与实际值
type Reason struct {
	Expected   string `json:"expected"`
	Actual     string `json:"actual"`
	Comparison string `json:"comparison"`
	BestMatch  bool   `json:"best_match"`
}

// Tokenizer 字符串 diff 的切分粒度
type Tokenizer string

const (
	TokenizerLine      Tokenizer = "Line"
	TokenizerWord      Tokenizer = "Word"
	TokenizerCharacter Tokenizer = "Character"
)

// DiffKind 表示一段 diff 的类型
type DiffKind string

const (
	DiffSame DiffKind = "Same"
	DiffAdd  DiffKind = "Add"
	DiffRem  DiffKind = "Rem"
)

// Diff 一段 diff, JSON 编码为 {"Same":"text"}
type Diff struct {
	Kind DiffKind
	Text string
}

func (d Diff) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{string(d.Kind): d.Text})
}

func (d *Diff) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("diff must have exactly one key, got %d", len(m))
	}
	for k, v := range m {
		switch DiffKind(k) {
		case DiffSame, DiffAdd, DiffRem:
			d.Kind, d.Text = DiffKind(k), v
		default:
			return fmt.Errorf("unknown diff kind %q", k)
		}
	}
	return nil
}

// DiffResult 字符串 diff 结果
type DiffResult struct {
	Differences []Diff    `json:"differences"`
	Distance    float32   `json:"distance"`
	Tokenizer   Tokenizer `json:"tokenizer"`
}
