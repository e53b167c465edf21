package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// IncomingRequest 已解析的请求, 每次调用一份
type IncomingRequest struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	URL         string            `json:"url"` // 原始请求 URI, 含查询串
	Headers     map[string]string `json:"headers,omitempty"`
	QueryParams map[string]string `json:"query_params,omitempty"`
	Body        []byte            `json:"body,omitempty"`
}

// NewIncomingRequest 从 http.Request 构造请求, 预读请求体并放回
//
// Header 的 key 统一小写, 多个值用 "," 拼接; 查询参数只取第一个值.
func NewIncomingRequest(r *http.Request) (*IncomingRequest, error) {
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewBuffer(b))
		if len(b) > 0 {
			body = b
		}
	}

	headers := make(map[string]string, len(r.Header)+1)
	for k, v := range r.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ",")
	}
	if r.Host != "" {
		headers["host"] = r.Host
	}

	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	return &IncomingRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		URL:         r.URL.RequestURI(),
		Headers:     headers,
		QueryParams: query,
		Body:        body,
	}, nil
}

// Clone 深拷贝请求
func (r *IncomingRequest) Clone() *IncomingRequest {
	c := *r
	c.Headers = cloneMap(r.Headers)
	c.QueryParams = cloneMap(r.QueryParams)
	c.Body = cloneBytes(r.Body)
	return &c
}

func (r *IncomingRequest) GetHeader(key string) (string, bool) {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// GetBodyJSON 把请求体解析为 JSON, 请求体为空时返回 nil, nil
func (r *IncomingRequest) GetBodyJSON() (any, error) {
	if len(r.Body) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(r.Body, &result); err != nil {
		return nil, fmt.Errorf("JSON解析失败: %w", err)
	}
	return result, nil
}

// MockResponse 返回给调用方的响应
type MockResponse struct {
	Status  int         `json:"status"`
	Headers [][2]string `json:"headers,omitempty"`
	Body    []byte      `json:"body,omitempty"`
}

func (r *MockResponse) String() string {
	return fmt.Sprintf("Status: %d, Headers: %v, Body: %s", r.Status, r.Headers, string(r.Body))
}
