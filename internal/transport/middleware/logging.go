package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cpdo/zoning-tracker/pkg/logger"
	"github.com/go-chi/chi/middleware"
)

// sensitiveFields are field names that should be filtered from logs
var sensitiveFields = []string{
	"password",
	"password_hash",
	"passwordhash",
	"token",
	"access_token",
	"refresh_token",
	"authorization",
	"secret",
	"key",
	"api_key",
	"session",
	"credential",
	"auth",
	"content",
	"signature",
}

const (
	// maxLoggedBody caps how much of a body is logged.
	maxLoggedBody = 4 << 10
	filteredValue = "[FILTERED]"
)

func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := middleware.GetReqID(r.Context())

			lg := base
			if lg == nil {
				lg = logger.From(r.Context())
			}

			logRequest(lg, r, reqID)

			ww := &responseWriter{
				ResponseWriter: w,
				body:           &bytes.Buffer{},
			}

			next.ServeHTTP(ww, r)

			logResponse(lg, r, ww, time.Since(start), reqID)
		})
	}
}

// responseWriter keeps the first maxLoggedBody bytes of the response.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - rw.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		rw.body.Write(b[:room])
	}
	rw.size += len(b)
	return rw.ResponseWriter.Write(b)
}

func logRequest(lg *slog.Logger, r *http.Request, reqID string) {
	body := ""
	if r.Body != nil && isJSON(r.Header.Get("Content-Type")) {
		// large or unsized bodies stream straight to the handler
		if r.ContentLength >= 0 && r.ContentLength < maxLoggedBody {
			raw, err := io.ReadAll(r.Body)
			var replay io.Reader = bytes.NewReader(raw)
			if err != nil {
				// hand the read error (e.g. body too large) on to the handler
				replay = io.MultiReader(replay, failingReader{err})
			}
			r.Body = io.NopCloser(replay)
			body = maskBody(raw)
		} else {
			body = "[TRUNCATED]"
		}
	}

	lg.InfoContext(r.Context(), "incoming request",
		"request_id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
		"query", r.URL.RawQuery,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"headers", maskHeaders(r.Header),
		"body", body,
	)
}

func logResponse(lg *slog.Logger, r *http.Request, rw *responseWriter, duration time.Duration, reqID string) {
	status := rw.statusCode
	if status == 0 {
		status = http.StatusOK
	}

	var body string
	if isJSON(rw.Header().Get("Content-Type")) {
		body = maskBody(rw.body.Bytes())
	}

	lg.Log(r.Context(), levelFor(status), "response",
		"request_id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"duration_ms", duration.Milliseconds(),
		"response_size", rw.size,
		"body", body,
	)
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "application/json")
}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, f := range sensitiveFields {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

func maskHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filteredValue
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// maskBody renders a JSON body with sensitive keys replaced at any depth.
func maskBody(body []byte) string {
	switch {
	case len(body) == 0:
		return ""
	case len(body) >= maxLoggedBody:
		return "[TRUNCATED]"
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "[UNPARSEABLE]"
	}
	masked, err := json.Marshal(maskValue(doc))
	if err != nil {
		return "[UNPARSEABLE]"
	}
	return string(masked)
}

func maskValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if isSensitive(k) {
				t[k] = filteredValue
			} else {
				t[k] = maskValue(val)
			}
		}
		return t
	case []interface{}:
		for i := range t {
			t[i] = maskValue(t[i])
		}
		return t
	default:
		return v
	}
}
