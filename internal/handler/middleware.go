package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/luan78zao/model_downloader/internal/logging"
)

// RequestIDHeader 是请求关联 ID 的头部名
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext 返回中间件写入的请求 ID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush 透传给底层 writer，SSE 依赖它
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// WithRequestID 为每个请求分配 X-Request-ID 并记录访问日志
func WithRequestID(next http.Handler, logger logging.Logger) http.Handler {
	logger = logger.With("module", "http")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		began := time.Now()

		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.Debug(ctx, "http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed_ms", time.Since(began).Milliseconds())
	})
}
