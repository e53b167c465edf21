package template

import (
	"encoding/json"
	"fmt"

	model "go_stub_server/internal/domain/model/mock_rule"
)

// Renderer 把模板渲染成字符串
type Renderer interface {
	Render(tmpl string, ctx *Context) (string, error)
}

const (
	EngineExpr       = "expr"
	EngineGoTemplate = "gotemplate"
)

// Context 渲染模板时可以访问的请求数据
type Context struct {
	Path        map[string]string // 路径参数
	URL         string
	Body        any // JSON 请求体解析后的值, 不是 JSON 时为原始字符串
	Method      string
	Headers     map[string]string
	QueryParams map[string]string
}

// NewContext 由请求和路径参数构造模板上下文
func NewContext(req *model.IncomingRequest, params map[string]string) *Context {
	ctx := &Context{
		Path:        params,
		URL:         req.URL,
		Method:      req.Method,
		Headers:     req.Headers,
		QueryParams: req.QueryParams,
	}
	if ctx.Path == nil {
		ctx.Path = map[string]string{}
	}
	if len(req.Body) > 0 {
		var body any
		if err := json.Unmarshal(req.Body, &body); err == nil {
			ctx.Body = body
		} else {
			ctx.Body = string(req.Body)
		}
	}
	return ctx
}

// Env 模板中的变量名
func (c *Context) Env() map[string]any {
	return map[string]any{
		"path":         c.Path,
		"url":          c.URL,
		"body":         c.Body,
		"method":       c.Method,
		"headers":      c.Headers,
		"query_params": c.QueryParams,
	}
}

// NewRenderer 按引擎名创建渲染器, 空串为 expr
func NewRenderer(engine string, lib *FuncLibrary) (Renderer, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprRenderer(lib), nil
	case EngineGoTemplate:
		return NewGoTemplateRenderer(lib), nil
	default:
		return nil, fmt.Errorf("unknown template engine %q", engine)
	}
}
