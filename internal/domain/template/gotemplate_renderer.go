package template

import (
	"strings"
	"text/template"
)

// GoTemplateRenderer 基于 text/template 的渲染器
//
// 请求数据通过 dot 访问: {{ .path.id }}, {{ index .headers "x-token" }};
// 函数库以同名函数暴露: {{ NUM 1 10 }}, {{ "x" | base64Encode }}.
// 没有编译缓存, 函数库可以随时变化.
type GoTemplateRenderer struct {
	lib *FuncLibrary
}

var _ Renderer = (*GoTemplateRenderer)(nil)

func NewGoTemplateRenderer(lib *FuncLibrary) *GoTemplateRenderer {
	return &GoTemplateRenderer{lib: lib}
}

func (r *GoTemplateRenderer) Render(tmpl string, ctx *Context) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}
	funcs, _ := r.lib.Snapshot()
	fm := make(template.FuncMap, len(funcs))
	for name, fn := range funcs {
		fm[name] = fn
	}

	t, err := template.New("resp").Option("missingkey=zero").Funcs(fm).Parse(tmpl)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, ctx.Env()); err != nil {
		return "", err
	}
	return sb.String(), nil
}
