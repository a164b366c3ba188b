// 文件: pkg/api/router.go
// HTTP 路由 (chi)

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sim.com/pkg/broker"
)

// NewRouter 注册全部路由; feed / balances 可为 nil，对应接口返回 503
func NewRouter(engine *broker.Engine, feed Notifications, balances Balances, logger *zap.Logger) chi.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(requestLogging(logger.Named("http")))
	r.Use(contentTypeJSON)

	h := &Handler{engine: engine, feed: feed, balances: balances, logger: logger.Named("api")}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// 下单
	r.Post("/orders/check", h.CheckOrder)
	r.Post("/orders/preview", h.PreviewOrder)
	r.Post("/orders", h.PlaceOrder)
	r.Delete("/orders/{order_id}", h.CancelOrder)
	r.Post("/orders/{order_id}/settle", h.SettleOrder)

	// 用户视图
	r.Get("/users/{user_id}/orders", h.ListOrders)
	r.Get("/users/{user_id}/notifications", h.ListNotifications)
	r.Get("/users/{user_id}/balance", h.GetBalance)

	return r
}

// requestLogging 每个请求一行日志
func requestLogging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON 有请求体的方法必须是 application/json
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request", errBadBody.Error())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
