package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// responseMeta captures the status code and body size as the handler
// writes them, so the access log can report both.
type responseMeta struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (m *responseMeta) WriteHeader(code int) {
	m.status = code
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeta) Write(p []byte) (int, error) {
	n, err := m.ResponseWriter.Write(p)
	m.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the real writer, which the
// websocket upgrade needs in order to hijack the connection.
func (m *responseMeta) Unwrap() http.ResponseWriter {
	return m.ResponseWriter
}

// RequestLogger logs one line per request. Server errors log at error
// level and client errors at warn, so a quiet log means a healthy server.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			meta := &responseMeta{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(meta, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", meta.status),
				slog.Int("bytes", meta.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", RealIP(r)),
			}

			level := slog.LevelInfo
			switch {
			case meta.status >= 500:
				level = slog.LevelError
			case meta.status >= 400:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}
