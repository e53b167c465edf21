package http_mock_app

import (
	"encoding/json"
	"fmt"

	model "go_stub_server/internal/domain/model/mock_rule"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// MockRuleRequest mock_add 的请求体, 也是规则文件中一条规则的格式
//
// body 为 base64, body_text 为明文, 两者都给时以 body_text 为准.
type MockRuleRequest struct {
	ID         uint64            `json:"id"`
	Remark     string            `json:"remark" validate:"max=255"`
	ReqScript  *string           `json:"req_script,omitempty"`
	RespScript *string           `json:"resp_script,omitempty"`
	Req        RequestPatternDTO `json:"req"`
	Resp       ResponseSpecDTO   `json:"resp"`
	RelayURL   *string           `json:"relay_url,omitempty" validate:"omitempty,url"`
	Priority   int               `json:"priority" validate:"min=0"`
}

type RequestPatternDTO struct {
	Path        string            `json:"path" validate:"required,startswith=/"`
	Method      *string           `json:"method,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	QueryParams map[string]string `json:"query_params,omitempty"`
	Body        []byte            `json:"body,omitempty"`
	BodyText    *string           `json:"body_text,omitempty"`
	// 字符串或 JSON 对象
	BodySchema any `json:"body_schema,omitempty"`
}

type ResponseSpecDTO struct {
	Status   *int         `json:"status,omitempty" validate:"omitempty,min=100,max=599"`
	Headers  [][2]string  `json:"headers,omitempty"`
	Body     []byte       `json:"body,omitempty"`
	BodyText *string      `json:"body_text,omitempty"`
	Delay    *model.Delay `json:"delay,omitempty"`
}

// RemoveMockRuleRequest mock_remove 的请求体, 只需要 id
type RemoveMockRuleRequest struct {
	ID *uint64 `json:"id" validate:"required"`
}

// Validate performs validation on MockRuleRequest
func (req *MockRuleRequest) Validate() error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func (req *RemoveMockRuleRequest) Validate() error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// ConvertToRuleDefinition converts the DTO to the domain model
func (dto *MockRuleRequest) ConvertToRuleDefinition() (*model.RuleDefinition, error) {
	schema, err := schemaString(dto.Req.BodySchema)
	if err != nil {
		return nil, err
	}

	rule := &model.RuleDefinition{
		ID:         dto.ID,
		Remark:     dto.Remark,
		ReqScript:  dto.ReqScript,
		RespScript: dto.RespScript,
		Req: model.RequestPattern{
			Path:        dto.Req.Path,
			Method:      dto.Req.Method,
			Headers:     dto.Req.Headers,
			QueryParams: dto.Req.QueryParams,
			Body:        pickBody(dto.Req.Body, dto.Req.BodyText),
			BodySchema:  schema,
		},
		Resp: model.ResponseSpec{
			Status:  dto.Resp.Status,
			Headers: dto.Resp.Headers,
			Body:    pickBody(dto.Resp.Body, dto.Resp.BodyText),
			Delay:   dto.Resp.Delay,
		},
		RelayURL: dto.RelayURL,
		Priority: dto.Priority,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

func pickBody(raw []byte, text *string) []byte {
	if text != nil {
		return []byte(*text)
	}
	return raw
}

func schemaString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return "", fmt.Errorf("invalid body_schema: %w", err)
		}
		return string(b), nil
	}
}
