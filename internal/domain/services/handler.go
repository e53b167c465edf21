package services

import (
	"context"

	model "go_stub_server/internal/domain/model/mock_rule"
)

// EvaluationContext 一个候选规则的求值上下文, Rule 是注册表中规则的副本
type EvaluationContext struct {
	Rule    *model.RuleDefinition
	Request *model.IncomingRequest
	Params  map[string]string
}

// ResponseHandler 规则匹配后生成响应
//
// 只有 ctx 被取消时才返回 error, 其他失败都体现在响应内容里.
type ResponseHandler interface {
	Handle(ctx context.Context, ec *EvaluationContext) (*model.MockResponse, error)
}
