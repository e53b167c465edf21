package http_mock_app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go_stub_server/internal/domain/services"
	"go_stub_server/internal/domain/template"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/internal/infra/repo"
	"go_stub_server/internal/infra/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, adminPrefix string) *httptest.Server {
	t.Helper()
	cfg := configs.DefaultServerConfig()
	cfg.Server.AdminPrefix = adminPrefix
	cfg.Relay.Timeout = 2 * time.Second

	store, closeStore, err := storage.NewRuleStore(&cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(closeStore)
	ruleRepo, closeRepo, err := repo.NewRuleRepoImpl(repo.NewRuleRegistry(), store, &cfg.RuleRepo)
	require.NoError(t, err)
	t.Cleanup(closeRepo)

	renderer, err := services.NewTemplateRenderer(&cfg.Template, template.DefaultLibrary())
	require.NoError(t, err)
	matchService := services.NewRuleMatchService(ruleRepo,
		services.NewTemplateResponder(renderer, &cfg.Template),
		services.NewRelayHandler(&cfg.Relay))
	controller := NewMockController(matchService, services.NewRuleManageService(ruleRepo))

	srv := httptest.NewServer(NewRouter(controller, &cfg.Server))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func doRequest(t *testing.T, method, url, body string, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestManageAPI(t *testing.T) {
	srv := newTestServer(t, "")

	status, body := postJSON(t, srv.URL+"/mock_add", `{
		"id": 1,
		"remark": "user detail",
		"req": {"path": "/users/:id", "method": "GET"},
		"resp": {"status": 200, "body_text": "{\"id\":\"{{path.id}}\"}"}
	}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"success"}`, body)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/mock_list", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var rules []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, float64(1), rules[0]["id"])
	assert.Equal(t, "user detail", rules[0]["remark"])

	_, body = doRequest(t, http.MethodGet, srv.URL+"/mock_list?path=/orders", "", nil)
	assert.JSONEq(t, `[]`, body)

	status, _ = postJSON(t, srv.URL+"/mock_remove", `{"id": 1}`)
	assert.Equal(t, http.StatusOK, status)
	status, body = postJSON(t, srv.URL+"/mock_remove", `{"id": 1}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "rule not found")
}

func TestManageAPIInvalid(t *testing.T) {
	srv := newTestServer(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing path", `{"id": 1, "req": {}}`},
		{"relative path", `{"id": 1, "req": {"path": "users"}}`},
		{"bad relay", `{"id": 1, "req": {"path": "/a"}, "relay_url": "nope"}`},
		{"bad status", `{"id": 1, "req": {"path": "/a"}, "resp": {"status": 1000}}`},
		{"bad regex", `{"id": 1, "req": {"path": "/a/:id<[>"}}`},
		{"negative priority", `{"id": 1, "req": {"path": "/a"}, "priority": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := postJSON(t, srv.URL+"/mock_add", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, body, `"error"`)
		})
	}

	status, _ := postJSON(t, srv.URL+"/mock_remove", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminPrefix(t *testing.T) {
	srv := newTestServer(t, "/_admin/")
	status, _ := postJSON(t, srv.URL+"/_admin/mock_add", `{"id": 1, "req": {"path": "/mock_list"}, "resp": {"body_text": "mocked"}}`)
	require.Equal(t, http.StatusOK, status)

	// 没有前缀的 /mock_list 是普通 mock 路径
	_, body := doRequest(t, http.MethodGet, srv.URL+"/mock_list", "", nil)
	assert.Equal(t, "mocked", body)
}

// 场景 A
func TestMockTemplateResponse(t *testing.T) {
	srv := newTestServer(t, "")
	status, _ := postJSON(t, srv.URL+"/mock_add", `{
		"id": 1,
		"req": {"path": "/users/:id", "method": "POST", "headers": {"x-token": "^tk-\\d+$"}},
		"resp": {
			"status": 201,
			"headers": [["content-type", "application/json"], ["x-echo", "{{ headers[\"x-token\"] }}"]],
			"body_text": "{\"id\":\"{{path.id}}\",\"name\":\"{{body.name}}\"}"
		}
	}`)
	require.Equal(t, http.StatusOK, status)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/users/42", `{"name":"alice"}`, map[string]string{"X-Token": "tk-7"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "tk-7", resp.Header.Get("X-Echo"))
	assert.JSONEq(t, `{"id":"42","name":"alice"}`, body)
}

// 场景 B
func TestMockMismatchDiagnostics(t *testing.T) {
	srv := newTestServer(t, "")
	status, _ := postJSON(t, srv.URL+"/mock_add", `{"id": 1, "req": {"path": "/users/:id", "method": "POST"}}`)
	require.Equal(t, http.StatusOK, status)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/users/42", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var mismatches []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &mismatches))
	require.NotEmpty(t, mismatches)
	assert.Equal(t, "method mismatch", mismatches[0]["title"])
	assert.Contains(t, body, "\n  ", "pretty printed")

	resp, body = doRequest(t, http.MethodGet, srv.URL+"/nothing/here", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, body)
}

// 场景 C
func TestMockRelay(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream-Path", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, "echo %s %s", r.Method, r.URL.RawQuery)
	}))
	defer upstream.Close()

	srv := newTestServer(t, "")
	status, _ := postJSON(t, srv.URL+"/mock_add", fmt.Sprintf(`{"id": 1, "req": {"path": "/api/*rest"}, "relay_url": "%s/echo"}`, upstream.URL))
	require.Equal(t, http.StatusOK, status)

	resp, body := doRequest(t, http.MethodPut, srv.URL+"/api/x/y?a=1", "", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "/echo", resp.Header.Get("X-Upstream-Path"))
	assert.Equal(t, "echo PUT a=1", body)

	addr := upstream.URL
	upstream.Close()
	resp, body = doRequest(t, http.MethodGet, srv.URL+"/api/x", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, strings.TrimPrefix(addr, "http://"))
}

// 场景 D
func TestMockDelay(t *testing.T) {
	srv := newTestServer(t, "")
	status, _ := postJSON(t, srv.URL+"/mock_add", `{"id": 1, "req": {"path": "/slow"}, "resp": {"body_text": "done", "delay": "200ms"}}`)
	require.Equal(t, http.StatusOK, status)

	start := time.Now()
	resp, body := doRequest(t, http.MethodGet, srv.URL+"/slow", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "done", body)
	assert.GreaterOrEqual(t, time.Since(start), 190*time.Millisecond)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}
