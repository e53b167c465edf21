package template

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// blockRegex 匹配 {{ expression }}
var blockRegex = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

// ExprRenderer 逐个求值模板里的 {{ }} 表达式
//
// 表达式语法是 expr-lang, 例如 {{ path.id }}, {{ NUM(1, 10) }}, {{ "x" | base64Encode() }}.
// 编译结果按表达式缓存, 函数库变化后缓存整体失效.
type ExprRenderer struct {
	lib *FuncLibrary

	mu       sync.RWMutex
	version  uint64
	programs map[string]*vm.Program
}

var _ Renderer = (*ExprRenderer)(nil)

func NewExprRenderer(lib *FuncLibrary) *ExprRenderer {
	return &ExprRenderer{lib: lib, programs: make(map[string]*vm.Program)}
}

// Render 任一表达式失败时返回第一个错误
func (r *ExprRenderer) Render(tmpl string, ctx *Context) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}
	env := ctx.Env()

	var firstErr error
	out := blockRegex.ReplaceAllStringFunc(tmpl, func(match string) string {
		if firstErr != nil {
			return match
		}
		inner := blockRegex.FindStringSubmatch(match)
		if len(inner) < 2 {
			return match
		}
		value, err := r.eval(strings.TrimSpace(inner[1]), env)
		if err != nil {
			firstErr = err
			return match
		}
		return toString(value)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func (r *ExprRenderer) eval(expression string, env map[string]any) (any, error) {
	program, err := r.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", expression, err)
	}
	return result, nil
}

func (r *ExprRenderer) compile(expression string) (*vm.Program, error) {
	funcs, version := r.lib.Snapshot()

	r.mu.RLock()
	if r.version == version {
		if program, ok := r.programs[expression]; ok {
			r.mu.RUnlock()
			return program, nil
		}
	}
	r.mu.RUnlock()

	opts := make([]expr.Option, 0, len(funcs)+1)
	opts = append(opts, expr.AllowUndefinedVariables())
	for name, fn := range funcs {
		opts = append(opts, expr.Function(name, fn))
	}
	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if version > r.version {
		r.version = version
		r.programs = make(map[string]*vm.Program)
	}
	if version != r.version {
		return program, nil
	}
	if existing, ok := r.programs[expression]; ok {
		return existing, nil
	}
	r.programs[expression] = program
	return program, nil
}
