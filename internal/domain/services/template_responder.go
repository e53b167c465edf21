package services

import (
	"context"
	"time"

	model "go_stub_server/internal/domain/model/mock_rule"
	"go_stub_server/internal/domain/template"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/utils"

	"github.com/sirupsen/logrus"
)

const defaultDelayThreshold = 120 * time.Millisecond

// TemplateResponder 渲染规则里的响应模板, 并处理延时
type TemplateResponder struct {
	renderer       template.Renderer
	delayThreshold time.Duration
}

var _ ResponseHandler = (*TemplateResponder)(nil)

func NewTemplateResponder(renderer template.Renderer, c *configs.TemplateConfig) *TemplateResponder {
	threshold := c.DelayThreshold
	if threshold <= 0 {
		threshold = defaultDelayThreshold
	}
	return &TemplateResponder{renderer: renderer, delayThreshold: threshold}
}

// Handle 渲染失败时把错误信息作为渲染结果
func (h *TemplateResponder) Handle(ctx context.Context, ec *EvaluationContext) (*model.MockResponse, error) {
	start := time.Now()
	spec := ec.Rule.Resp
	tctx := template.NewContext(ec.Request, ec.Params)

	resp := &model.MockResponse{Status: spec.StatusOrDefault()}
	if len(spec.Body) > 0 {
		resp.Body = []byte(h.render(string(spec.Body), tctx, ec.Rule.ID))
	}
	if len(spec.Headers) > 0 {
		resp.Headers = make([][2]string, 0, len(spec.Headers))
		for _, kv := range spec.Headers {
			resp.Headers = append(resp.Headers, [2]string{kv[0], h.render(kv[1], tctx, ec.Rule.ID)})
		}
	}

	if spec.Delay != nil {
		if err := h.sleep(ctx, spec.Delay.Duration()-time.Since(start)); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (h *TemplateResponder) render(tmpl string, tctx *template.Context, ruleID uint64) string {
	out, err := h.renderer.Render(tmpl, tctx)
	if err != nil {
		utils.GetLogger().WithFields(logrus.Fields{
			"rule_id": ruleID,
			"error":   err,
		}).Warn("template render failed")
		return err.Error()
	}
	return out
}

// sleep 剩余时间不超过阈值时直接返回
func (h *TemplateResponder) sleep(ctx context.Context, remaining time.Duration) error {
	if remaining <= h.delayThreshold {
		return nil
	}
	utils.GetLogger().WithField("delay", remaining.String()).Debug("delay response")

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
