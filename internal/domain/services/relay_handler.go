package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/utils"

	"github.com/sirupsen/logrus"
)

// hopHeaders 不转发的逐跳头, 小写
var hopHeaders = map[string]bool{
	"connection":          true,
	"proxy-connection":    true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
	"host":                true,
	"content-length":      true,
}

// RelayHandler 把请求转发到规则的 relay_url, 原样返回上游响应
type RelayHandler struct {
	client *http.Client
}

var _ ResponseHandler = (*RelayHandler)(nil)

func NewRelayHandler(c *configs.RelayConfig) *RelayHandler {
	return &RelayHandler{
		client: &http.Client{
			Timeout: c.Timeout,
			// 重定向也原样返回给调用方
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Handle 传输失败时返回 500, body 为错误信息
func (h *RelayHandler) Handle(ctx context.Context, ec *EvaluationContext) (*model.MockResponse, error) {
	log := utils.GetLogger().WithFields(logrus.Fields{
		"rule_id": ec.Rule.ID,
		"relay":   *ec.Rule.RelayURL,
	})

	resp, err := h.forward(ctx, ec)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Error("relay request failed")
		return &model.MockResponse{
			Status: http.StatusInternalServerError,
			Body:   []byte(err.Error()),
		}, nil
	}
	log.WithField("status", resp.Status).Debug("relay response")
	return resp, nil
}

func (h *RelayHandler) forward(ctx context.Context, ec *EvaluationContext) (*model.MockResponse, error) {
	target, err := relayTarget(*ec.Rule.RelayURL, ec.Request.URL)
	if err != nil {
		return nil, err
	}

	req := ec.Request.Clone()
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	upstream, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build relay request: %w", err)
	}
	for k, v := range req.Headers {
		if hopHeaders[strings.ToLower(k)] {
			continue
		}
		upstream.Header.Set(k, v)
	}
	// Host 取自 relay_url
	upstream.Host = upstream.URL.Host

	resp, err := h.client.Do(upstream)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read relay response: %w", err)
	}

	out := &model.MockResponse{Status: resp.StatusCode, Body: respBody}
	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		if !hopHeaders[strings.ToLower(k)] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			out.Headers = append(out.Headers, [2]string{k, v})
		}
	}
	return out, nil
}

// relayTarget 把原请求的查询串追加到 relay_url 上
func relayTarget(relayURL, requestURI string) (string, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return "", fmt.Errorf("invalid relay_url %q: %w", relayURL, err)
	}
	i := strings.IndexByte(requestURI, '?')
	if i < 0 || i == len(requestURI)-1 {
		return u.String(), nil
	}
	query := requestURI[i+1:]
	if u.RawQuery != "" {
		u.RawQuery += "&" + query
	} else {
		u.RawQuery = query
	}
	return u.String(), nil
}
