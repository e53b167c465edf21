package http_mock_app

import (
	"encoding/json"
	"fmt"
	"os"

	model "go_stub_server/internal/domain/model/mock_rule"

	"gopkg.in/yaml.v3"
)

// ruleFile 规则文件, 顶层可以是 {rules: [...]} 也可以直接是列表
type ruleFile struct {
	Rules []MockRuleRequest `json:"rules"`
}

// LoadRuleFile 读取 YAML / JSON 规则文件
func LoadRuleFile(path string) ([]*model.RuleDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseRules 先按 YAML 解析再转成 JSON, 字段名与 mock_add 的请求体一致
func ParseRules(data []byte) ([]*model.RuleDefinition, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	if list, ok := doc.([]any); ok {
		doc = map[string]any{"rules": list}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert rule file to json: %w", err)
	}
	var file ruleFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}

	rules := make([]*model.RuleDefinition, 0, len(file.Rules))
	seen := make(map[uint64]bool, len(file.Rules))
	for i := range file.Rules {
		dto := &file.Rules[i]
		if err := dto.Validate(); err != nil {
			return nil, fmt.Errorf("rule #%d: %w", i, err)
		}
		if seen[dto.ID] {
			return nil, fmt.Errorf("rule #%d: duplicate id %d", i, dto.ID)
		}
		seen[dto.ID] = true

		rule, err := dto.ConvertToRuleDefinition()
		if err != nil {
			return nil, fmt.Errorf("rule #%d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
