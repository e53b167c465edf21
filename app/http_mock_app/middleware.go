package http_mock_app

import (
	"net/http"
	"runtime/debug"
	"time"

	"go_stub_server/utils"

	"github.com/sirupsen/logrus"
)

// statusRecorder 记录写出的状态码
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// AccessLogMiddleware method, path, status, latency
func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		utils.GetLogger().WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  status,
			"size":    rec.size,
			"latency": time.Since(start).String(),
			"remote":  r.RemoteAddr,
		}).Info("access")
	})
}

// RecoveryMiddleware handler panic 时记录堆栈并返回 500
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				utils.GetLogger().WithFields(logrus.Fields{
					"panic": err,
					"stack": string(debug.Stack()),
					"path":  r.URL.Path,
				}).Error("handle request panic")
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
