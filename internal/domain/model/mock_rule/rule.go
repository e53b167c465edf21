package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go_stub_server/internal/domain/model/route"

	"gorm.io/gorm"
)

// RuleDefinition Mock 规则（核心领域对象）
//
// 同一路径下可以注册多条规则, 按 Priority 决定尝试顺序, 数值越小越先匹配.
// RelayURL 不为空时规则进入转发模式, Resp 被忽略.
// ReqScript/RespScript 只做存储和透传, 分发时不执行.
type RuleDefinition struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Remark     string         `gorm:"type:varchar(255)" json:"remark"`
	ReqScript  *string        `gorm:"type:text" json:"req_script,omitempty"`
	RespScript *string        `gorm:"type:text" json:"resp_script,omitempty"`
	Req        RequestPattern `gorm:"type:json" json:"req" validate:"required"`
	Resp       ResponseSpec   `gorm:"type:json" json:"resp"`
	RelayURL   *string        `gorm:"type:varchar(1024)" json:"relay_url,omitempty" validate:"omitempty,url"`
	Priority   int            `gorm:"default:0" json:"priority" validate:"min=0"`
	MatchIndex string         `gorm:"type:varchar(255);index:idx_match_index" json:"-"` // 标准化后的路径（如 /api/user/*）
	CreatedAt  int64          `gorm:"autoCreateTime" json:"-"`
	UpdatedAt  int64          `gorm:"autoUpdateTime" json:"-"`
}

func (RuleDefinition) TableName() string {
	return "stub_rules"
}

// RequestPattern 请求匹配条件, 为空的字段表示不做约束
type RequestPattern struct {
	Path        string            `json:"path" validate:"required,startswith=/"`
	Method      *string           `json:"method,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	QueryParams map[string]string `json:"query_params,omitempty"`
	Body        []byte            `json:"body,omitempty"` // base64
	BodySchema  string            `json:"body_schema,omitempty"`
}

// ResponseSpec 响应配置, body 和 header 的值都可以是模板
type ResponseSpec struct {
	Status  *int        `json:"status,omitempty" validate:"omitempty,min=100,max=599"`
	Headers [][2]string `json:"headers,omitempty"`
	Body    []byte      `json:"body,omitempty"` // base64
	Delay   *Delay      `json:"delay,omitempty"`
}

// StatusOrDefault 未配置状态码时返回 200
func (r *ResponseSpec) StatusOrDefault() int {
	if r.Status == nil || *r.Status == 0 {
		return 200
	}
	return *r.Status
}

// IsRelay reports whether the rule forwards to an upstream.
func (m *RuleDefinition) IsRelay() bool {
	return m.RelayURL != nil && *m.RelayURL != ""
}

// Validate checks the fields that the dispatch tree and the relay handler
// depend on.
func (m *RuleDefinition) Validate() error {
	if _, err := route.Canonical(m.Req.Path); err != nil {
		return fmt.Errorf("rule %d: %w", m.ID, err)
	}
	if m.Priority < 0 {
		return fmt.Errorf("rule %d: priority must not be negative", m.ID)
	}
	if m.IsRelay() {
		u := *m.RelayURL
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("rule %d: relay_url must be an absolute http(s) url, got %q", m.ID, u)
		}
	}
	if m.Resp.Status != nil && (*m.Resp.Status < 100 || *m.Resp.Status > 599) {
		return fmt.Errorf("rule %d: invalid status code %d", m.ID, *m.Resp.Status)
	}
	if m.Req.BodySchema != "" && !json.Valid([]byte(m.Req.BodySchema)) {
		return fmt.Errorf("rule %d: body_schema is not valid json", m.ID)
	}
	return nil
}

// Clone returns a deep copy, so evaluation never shares memory with the
// registry.
func (m *RuleDefinition) Clone() *RuleDefinition {
	if m == nil {
		return nil
	}
	c := *m
	c.ReqScript = cloneStr(m.ReqScript)
	c.RespScript = cloneStr(m.RespScript)
	c.RelayURL = cloneStr(m.RelayURL)
	c.Req = m.Req.clone()
	c.Resp = m.Resp.clone()
	return &c
}

func (p RequestPattern) clone() RequestPattern {
	c := p
	c.Method = cloneStr(p.Method)
	c.Headers = cloneMap(p.Headers)
	c.QueryParams = cloneMap(p.QueryParams)
	c.Body = cloneBytes(p.Body)
	return c
}

func (r ResponseSpec) clone() ResponseSpec {
	c := r
	if r.Status != nil {
		s := *r.Status
		c.Status = &s
	}
	if r.Headers != nil {
		c.Headers = make([][2]string, len(r.Headers))
		copy(c.Headers, r.Headers)
	}
	c.Body = cloneBytes(r.Body)
	if r.Delay != nil {
		d := *r.Delay
		c.Delay = &d
	}
	return c
}

// BeforeSave 写库前刷新匹配索引
func (m *RuleDefinition) BeforeSave(tx *gorm.DB) (err error) {
	m.MatchIndex = BuildMatchIndexKeyFromRule(m)
	return nil
}

// 为 RequestPattern / ResponseSpec 实现 GORM 的 Scanner/Valuer 接口

func (p *RequestPattern) Scan(value interface{}) error {
	return scanJSON(value, p)
}

func (p RequestPattern) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *ResponseSpec) Scan(value interface{}) error {
	return scanJSON(value, r)
}

func (r ResponseSpec) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(value interface{}, dst any) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return nil
	default:
		return errors.New("类型转换失败")
	}
	return json.Unmarshal(data, dst)
}

// Delay 响应延时
//
// JSON 中可以写成 "200ms" 这样的字符串, 毫秒数, 或 {"secs":1,"nanos":0}.
type Delay time.Duration

func (d Delay) Duration() time.Duration {
	return time.Duration(d)
}

func (d Delay) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Delay) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", v, err)
		}
		*d = Delay(parsed)
	case float64:
		*d = Delay(time.Duration(v * float64(time.Millisecond)))
	case map[string]any:
		secs, _ := v["secs"].(float64)
		nanos, _ := v["nanos"].(float64)
		*d = Delay(time.Duration(secs)*time.Second + time.Duration(nanos))
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid delay %s", string(data))
	}
	return nil
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
