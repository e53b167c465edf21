package services

import (
	"context"
	"time"

	"go_stub_server/internal/domain/iface"
	"go_stub_server/internal/domain/model/matcher"
	model "go_stub_server/internal/domain/model/mock_rule"
	"go_stub_server/internal/infra/repo"
	"go_stub_server/utils"

	"github.com/sirupsen/logrus"
)

// RuleMatchService 请求分发流水线
//
// 查路由和复制规则时持有注册表的读锁, 之后的匹配、渲染、转发都不持锁.
type RuleMatchService struct {
	ruleRepo  repo.RuleRepositoryIface
	filter    *matcher.RequestFilter
	responder ResponseHandler
	relay     ResponseHandler
}

var _ iface.RuleMatchService = (*RuleMatchService)(nil)

func NewRuleMatchService(ruleRepo repo.RuleRepositoryIface, responder *TemplateResponder, relay *RelayHandler) *RuleMatchService {
	return &RuleMatchService{
		ruleRepo:  ruleRepo,
		filter:    matcher.NewRequestFilter(),
		responder: responder,
		relay:     relay,
	}
}

// Dispatch 按优先级依次尝试候选规则, 第一个完全匹配的规则生成响应
//
// 失败时返回 *model.DispatchError; ctx 被取消时返回 ctx.Err().
func (s *RuleMatchService) Dispatch(ctx context.Context, req *model.IncomingRequest) (*model.MockResponse, error) {
	start := time.Now()
	log := utils.GetLogger().WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.Path,
	})

	lookup, ok := s.ruleRepo.Candidates(req.Path)
	if !ok || len(lookup.Rules) == 0 {
		log.Info("no route found")
		return nil, &model.DispatchError{Kind: model.NoRouteFound, Path: req.Path}
	}
	log = log.WithFields(logrus.Fields{
		"pattern":    lookup.Pattern,
		"candidates": len(lookup.Rules),
		"stale":      lookup.Stale,
	})
	log.Debug("route matched")

	var mismatches []model.Mismatch
	for _, rule := range lookup.Rules {
		matched, ms := s.filter.Evaluate(req, &rule.Req)
		if !matched {
			mismatches = append(mismatches, ms...)
			continue
		}

		ec := &EvaluationContext{Rule: rule, Request: req, Params: lookup.Params}
		handler := s.responder
		if rule.IsRelay() {
			handler = s.relay
		}
		resp, err := handler.Handle(ctx, ec)
		if err != nil {
			log.WithError(err).WithField("rule_id", rule.ID).Info("dispatch aborted")
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"rule_id": rule.ID,
			"status":  resp.Status,
			"cost":    time.Since(start).String(),
		}).Info("rule matched")
		return resp, nil
	}

	if len(mismatches) > 0 {
		log.WithField("mismatches", len(mismatches)).Info("no rule matched")
		return nil, &model.DispatchError{Kind: model.NoRuleMatched, Path: req.Path, Mismatches: mismatches}
	}
	log.Warn("no response produced")
	return nil, &model.DispatchError{Kind: model.NoResponseProduced, Path: req.Path}
}
