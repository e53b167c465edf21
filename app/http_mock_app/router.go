package http_mock_app

import (
	"net/http"
	"strings"

	configs "go_stub_server/internal/infra/config"

	"github.com/gorilla/mux"
)

// NewRouter 管理接口挂在 adminPrefix 下, 其余路径全部进入 mock 分发
func NewRouter(c *MockController, cfg *configs.HTTPConfig) *mux.Router {
	router := mux.NewRouter().SkipClean(true)
	router.Use(RecoveryMiddleware, AccessLogMiddleware)

	prefix := "/" + strings.Trim(cfg.AdminPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	router.HandleFunc(prefix+"/mock_list", c.ListMockRules).Methods(http.MethodGet)
	router.HandleFunc(prefix+"/mock_add", c.AddMockRule).Methods(http.MethodPost)
	router.HandleFunc(prefix+"/mock_remove", c.RemoveMockRule).Methods(http.MethodPost)

	router.PathPrefix("/").HandlerFunc(c.HandleMock)
	return router
}

// NewHTTPServer 未 ListenAndServe 的 server
func NewHTTPServer(router *mux.Router, cfg *configs.HTTPConfig) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
