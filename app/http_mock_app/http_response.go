package http_mock_app

import (
	"encoding/json"
	"errors"
	"net/http"

	model "go_stub_server/internal/domain/model/mock_rule"
	"go_stub_server/utils"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.GetLogger().WithError(err).Warn("write json response failed")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeMockResponse 按规则生成的响应原样输出
func writeMockResponse(w http.ResponseWriter, resp *model.MockResponse) {
	for _, kv := range resp.Headers {
		w.Header().Add(kv[0], kv[1])
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		w.Write(resp.Body)
	}
}

// writeDispatchError 404 空 body, 400 诊断列表, 其他为错误文本
func writeDispatchError(w http.ResponseWriter, err error) {
	var de *model.DispatchError
	if !errors.As(err, &de) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}

	body := de.Body()
	switch de.Kind {
	case model.NoRuleMatched:
		w.Header().Set("Content-Type", "application/json")
	case model.NoResponseProduced:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(de.StatusCode())
	if len(body) > 0 {
		w.Write(body)
	}
}
