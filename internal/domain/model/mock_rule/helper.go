package model

import (
	"go_stub_server/internal/domain/model/route"
)

// BuildMatchIndexKeyFromRule 规则在存储层的索引 key
func BuildMatchIndexKeyFromRule(rule *RuleDefinition) string {
	return BuildMatchIndexKey(rule.Req.Path)
}

// BuildMatchIndexKey 标准化后的路径, 同一个路由节点上的规则 key 相同
//
//	/api/user/:id     => /api/user/*
//	/api/user/{name}  => /api/user/*
func BuildMatchIndexKey(path string) string {
	return route.NormalizePath(path)
}
