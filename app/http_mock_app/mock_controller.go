package http_mock_app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go_stub_server/internal/domain/iface"
	model "go_stub_server/internal/domain/model/mock_rule"
	"go_stub_server/utils"

	"github.com/sirupsen/logrus"
)

type MockController struct {
	MockService       iface.RuleMatchService
	RuleManageService iface.RuleService
}

func NewMockController(mockService iface.RuleMatchService, ruleManageService iface.RuleService) *MockController {
	return &MockController{
		MockService:       mockService,
		RuleManageService: ruleManageService,
	}
}

// ListMockRules GET {admin}/mock_list, 可选 ?path= 过滤同一路由上的规则
func (c *MockController) ListMockRules(w http.ResponseWriter, r *http.Request) {
	var filter *model.RuleFilter
	if path := r.URL.Query().Get("path"); path != "" {
		filter = model.NewPathFilter(path)
	}

	rules, err := c.RuleManageService.ListRules(r.Context(), filter)
	if err != nil {
		utils.GetLogger().WithError(err).Error("list mock rules failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rules == nil {
		rules = []*model.RuleDefinition{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// AddMockRule POST {admin}/mock_add
func (c *MockController) AddMockRule(w http.ResponseWriter, r *http.Request) {
	logger := utils.GetLogger()

	var req MockRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Errorf("read request body err: %v", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid rule json: %w", err))
		return
	}

	// Validate request
	if err := req.Validate(); err != nil {
		logger.Errorf("validate request err: %v", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Convert request to model
	rule, err := req.ConvertToRuleDefinition()
	if err != nil {
		logger.Errorf("convert request to model err: %v", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := c.RuleManageService.CreateRule(r.Context(), rule); err != nil {
		logger.WithFields(logrus.Fields{
			"rule_id": rule.ID,
			"error":   err,
		}).Error("create mock rule failed")
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "success"})
}

// RemoveMockRule POST {admin}/mock_remove
func (c *MockController) RemoveMockRule(w http.ResponseWriter, r *http.Request) {
	var req RemoveMockRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid rule json: %w", err))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := c.RuleManageService.RemoveRule(r.Context(), *req.ID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrRuleNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "success"})
}

// HandleMock 其余所有请求交给分发流水线
func (c *MockController) HandleMock(w http.ResponseWriter, r *http.Request) {
	req, err := model.NewIncomingRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := c.MockService.Dispatch(r.Context(), req)
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeMockResponse(w, resp)
}
