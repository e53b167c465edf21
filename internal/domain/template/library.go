package template

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Func 模板函数, 参数个数和类型由函数自己检查
type Func func(args ...any) (any, error)

// FuncLibrary 模板函数库, 可以在运行时注册新函数
//
// version 每次注册都会加一, 渲染器用它判断编译缓存是否过期.
type FuncLibrary struct {
	mu      sync.RWMutex
	funcs   map[string]Func
	version uint64
}

func NewFuncLibrary() *FuncLibrary {
	return &FuncLibrary{funcs: make(map[string]Func)}
}

// Register 注册或覆盖同名函数
func (l *FuncLibrary) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("function name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("function %s is nil", name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.funcs[name] = fn
	l.version++
	return nil
}

func (l *FuncLibrary) Lookup(name string) (Func, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn, ok := l.funcs[name]
	return fn, ok
}

// Snapshot 当前函数表的拷贝和对应的版本号
func (l *FuncLibrary) Snapshot() (map[string]Func, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]Func, len(l.funcs))
	for k, v := range l.funcs {
		out[k] = v
	}
	return out, l.version
}

// Names 已注册的函数名, 按字典序
func (l *FuncLibrary) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.funcs))
	for k := range l.funcs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DefaultLibrary 内置的全部函数和过滤器
func DefaultLibrary() *FuncLibrary {
	l := NewFuncLibrary()
	for name, fn := range fakeFuncs() {
		_ = l.Register(name, fn)
	}
	for name, fn := range dateFuncs() {
		_ = l.Register(name, fn)
	}
	for name, fn := range codecFuncs() {
		_ = l.Register(name, fn)
	}

	// 过滤器, 管道左侧的值作为第一个参数
	filters := map[string]string{
		"base64Encode": "BASE64_EN",
		"AesEcbEnc":    "AES_ECB_EN",
		"AesCbcEnc":    "AES_CBC_EN",
		"AesCtrEnc":    "AES_CTR_EN",
	}
	for alias, name := range filters {
		fn, _ := l.Lookup(name)
		_ = l.Register(alias, fn)
	}
	return l
}

// 参数处理

func argCount(name string, args []any, min, max int) error {
	if len(args) < min || len(args) > max {
		if min == max {
			return fmt.Errorf("%s: expected %d arguments, got %d", name, min, len(args))
		}
		return fmt.Errorf("%s: expected %d to %d arguments, got %d", name, min, max, len(args))
	}
	return nil
}

func argString(name string, args []any, i int) (string, error) {
	switch v := args[i].(type) {
	case string:
		return v, nil
	case nil:
		return "", fmt.Errorf("%s: argument %d is nil", name, i+1)
	default:
		return toString(v), nil
	}
}

// optString 第 i 个参数存在且不为 nil 时返回它
func optString(name string, args []any, i int) (string, bool, error) {
	if i >= len(args) || args[i] == nil {
		return "", false, nil
	}
	s, err := argString(name, args, i)
	return s, err == nil, err
}

func argInt(name string, args []any, i int) (int64, error) {
	switch v := args[i].(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s: argument %d must be an integer, got %T", name, i+1, v)
	}
}

// argRange 取 [low, high) 区间, high <= low 时 high = low + 1
func argRange(name string, args []any) (int64, int64, error) {
	if err := argCount(name, args, 2, 2); err != nil {
		return 0, 0, err
	}
	low, err := argInt(name, args, 0)
	if err != nil {
		return 0, 0, err
	}
	high, err := argInt(name, args, 1)
	if err != nil {
		return 0, 0, err
	}
	if low < 0 {
		return 0, 0, fmt.Errorf("%s: low must not be negative", name)
	}
	if high <= low {
		high = low + 1
	}
	return low, high, nil
}

// toString 渲染结果转字符串: 字符串原样, nil 为空, 对象和数组编码为 JSON
func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	case map[string]any, []any, map[string]string:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
