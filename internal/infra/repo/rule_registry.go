package repo

import (
	"fmt"
	"sort"
	"sync"

	model "go_stub_server/internal/domain/model/mock_rule"
	"go_stub_server/internal/domain/model/route"
)

// Lookup 一次路由查询的结果, Rules 是按优先级排好的规则副本
type Lookup struct {
	Pattern string
	Params  map[string]string
	Rules   []*model.RuleDefinition
	Stale   int // 路由树里还在, 但规则已删除或已迁移到其他路径的 id 数
}

// RuleRegistry 内存中的规则注册表
//
// 路由树和 id->规则 两个结构各自加锁. 写入时两把锁都拿(先树后表), 删除只动表,
// 树里残留的 id 在查询时跳过. 任何方法返回时都不持有锁.
type RuleRegistry struct {
	treeMu sync.RWMutex
	tree   *route.Tree

	rulesMu sync.RWMutex
	rules   map[uint64]registeredRule
}

// registeredRule 规则副本和 Add 时算好的规范路径
type registeredRule struct {
	rule    *model.RuleDefinition
	pattern string
}

func NewRuleRegistry() *RuleRegistry {
	return &RuleRegistry{
		tree:  route.NewTree(),
		rules: make(map[uint64]registeredRule),
	}
}

// Add 按 id 整体替换规则, 并按 priority 把 id 插入路由树, 相同优先级排在已有 id 之后
//
// 规则换了路径时, 旧路径上的 id 会被移除.
func (r *RuleRegistry) Add(rule *model.RuleDefinition, priority int) error {
	if rule == nil {
		return fmt.Errorf("rule is nil")
	}
	pattern, err := route.Canonical(rule.Req.Path)
	if err != nil {
		return err
	}
	stored := rule.Clone()

	r.treeMu.Lock()
	defer r.treeMu.Unlock()
	r.rulesMu.Lock()
	defer r.rulesMu.Unlock()

	if err := r.tree.Add(pattern, rule.ID, priority); err != nil {
		return err
	}
	if old, ok := r.rules[rule.ID]; ok {
		if old.pattern != pattern {
			r.tree.Remove(old.pattern, rule.ID)
		}
	}
	r.rules[rule.ID] = registeredRule{rule: stored, pattern: pattern}
	return nil
}

// Delete 只从表中删除, 返回规则是否存在
func (r *RuleRegistry) Delete(rule *model.RuleDefinition) bool {
	if rule == nil {
		return false
	}
	r.rulesMu.Lock()
	defer r.rulesMu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return false
	}
	delete(r.rules, rule.ID)
	return true
}

// Get 返回规则副本
func (r *RuleRegistry) Get(id uint64) (*model.RuleDefinition, bool) {
	r.rulesMu.RLock()
	defer r.rulesMu.RUnlock()
	entry, ok := r.rules[id]
	if !ok {
		return nil, false
	}
	return entry.rule.Clone(), true
}

// ListAll 全部规则的副本, 按 id 排序
func (r *RuleRegistry) ListAll() []*model.RuleDefinition {
	r.rulesMu.RLock()
	out := make([]*model.RuleDefinition, 0, len(r.rules))
	for _, entry := range r.rules {
		out = append(out, entry.rule.Clone())
	}
	r.rulesMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *RuleRegistry) Len() int {
	r.rulesMu.RLock()
	defer r.rulesMu.RUnlock()
	return len(r.rules)
}

// Candidates 查询路径对应的候选规则, 路径没有注册时 ok 为 false
func (r *RuleRegistry) Candidates(path string) (*Lookup, bool) {
	r.treeMu.RLock()
	match, ok := r.tree.Match(path)
	r.treeMu.RUnlock()
	if !ok {
		return nil, false
	}

	lookup := &Lookup{
		Pattern: match.Pattern,
		Params:  match.ParamMap(),
		Rules:   make([]*model.RuleDefinition, 0, len(match.IDs)),
	}

	r.rulesMu.RLock()
	defer r.rulesMu.RUnlock()
	for _, id := range match.IDs {
		entry, ok := r.rules[id]
		if !ok || entry.pattern != match.Pattern {
			lookup.Stale++
			continue
		}
		lookup.Rules = append(lookup.Rules, entry.rule.Clone())
	}
	return lookup, true
}
