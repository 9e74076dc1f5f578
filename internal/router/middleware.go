package router

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/olgasafonova/benkyokai-mcp-server/metrics"
	"github.com/olgasafonova/benkyokai-mcp-server/tracing"
)

const (
	// RequestIDHeader carries the per-request correlation ID.
	RequestIDHeader = "X-Request-ID"

	// PreviewLength is how many characters of a response body are logged.
	PreviewLength = 300

	unmatchedRoute = "unmatched"
)

// Matcher resolves a request to a route
type Matcher interface {
	Lookup(method, target string) (Route, error)
}

// Logging wraps next with request and response logging, a request ID,
// Prometheus metrics, a trace span and panic recovery. Headers and a body
// preview are logged at debug level.
func Logging(logger *slog.Logger, routes Matcher, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		target := RequestTarget(r)
		label := unmatchedRoute
		controller := ""
		route, err := routes.Lookup(r.Method, target)
		if err == nil {
			label = route.Path
			controller = route.Name
		}

		log := logger.With("request_id", requestID)
		log.Info("Request received",
			"method", r.Method,
			"url", r.RequestURI,
			"proto", r.Proto,
		)
		if log.Enabled(r.Context(), slog.LevelDebug) {
			log.Debug("Request headers", "headers", flattenHeaders(r.Header))
		}
		if err != nil {
			log.Info("No route matched, serving 404", "route", r.Method+" "+target)
		} else {
			log.Info("Routing", "route", route.Key(), "controller", controller)
		}

		ctx, span := tracing.StartSpan(r.Context(), "http "+r.Method+" "+label)
		defer span.End()
		tracing.AddRouteAttributes(span, r.Method, target, err == nil)
		span.SetAttributes(attribute.String("http.request_id", requestID))

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				metrics.PanicsRecovered.WithLabelValues("route").Inc()
				log.Error("Panic in route handler",
					"route", label,
					"panic", p,
					"stack", string(debug.Stack()),
				)
				tracing.RecordError(span, fmt.Errorf("panic: %v", p))
				if !rec.wroteHeader {
					rec.Header().Set("Content-Type", "text/html; charset=utf-8")
					rec.WriteHeader(http.StatusInternalServerError)
					_, _ = rec.Write([]byte("<h1>500 Internal Server Error</h1>"))
				}
			}

			duration := time.Since(start)
			metrics.RecordHTTPRequest(r.Method, label, rec.status, duration.Seconds())
			span.SetAttributes(attribute.Int("http.status_code", rec.status))

			log.Info("Response sent",
				"status", rec.status,
				"bytes", rec.size,
				"duration_ms", duration.Milliseconds(),
			)
			if log.Enabled(ctx, slog.LevelDebug) {
				log.Debug("Response detail",
					"headers", flattenHeaders(rec.Header()),
					"body", Preview(rec.preview.Bytes(), PreviewLength),
				)
			}
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

// Preview returns the first n characters of body, marked when truncated.
func Preview(body []byte, n int) string {
	if utf8.RuneCount(body) <= n {
		return string(body)
	}
	i, count := 0, 0
	for i < len(body) && count < n {
		_, size := utf8.DecodeRune(body[i:])
		i += size
		count++
	}
	return string(body[:i]) + "...(truncated)"
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = fmt.Sprint(v)
		if len(v) == 1 {
			out[k] = v[0]
		}
	}
	return out
}

// recorder captures the status, size and the start of the body.
type recorder struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
	preview     bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	// Enough bytes for PreviewLength runes plus one, at four bytes a rune.
	if room := (PreviewLength+1)*utf8.UTFMax - r.preview.Len(); room > 0 {
		r.preview.Write(b[:min(room, len(b))])
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (r *recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
