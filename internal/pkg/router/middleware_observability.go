package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shandysiswandi/notifyflow/internal/pkg/config"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxLoggedBody = 16 * 1024
	masked        = "***"

	surfaceCron   = "cron"
	surfaceAdmin  = "admin"
	surfaceInbox  = "inbox"
	surfaceSystem = "system"
)

var attrSurface = attribute.Key("notifyflow.api.surface")

// surfaceOf groups routes by caller: the scheduler trigger, rule admins and
// end users reading their inbox.
func surfaceOf(route string) string {
	switch {
	case route == "/api/v1/orchestration/cron", route == "/api/v1/orchestration/executions/retry":
		return surfaceCron
	case strings.HasPrefix(route, "/api/v1/orchestration/"):
		return surfaceAdmin
	case strings.HasPrefix(route, "/api/v1/notifications"):
		return surfaceInbox
	default:
		return surfaceSystem
	}
}

type recorder struct {
	http.ResponseWriter
	status int
	size   int
	body   bytes.Buffer
	err    error
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.capturing() {
		w.body.Write(p[:min(len(p), maxLoggedBody-w.body.Len())])
	}
	n, err := w.ResponseWriter.Write(p)
	w.size += n
	return n, err
}

// streams are never buffered for the log
func (w *recorder) capturing() bool {
	return w.body.Len() < maxLoggedBody &&
		!strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream")
}

func (w *recorder) SetError(err error) { w.err = err }

func (w *recorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *recorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *recorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

type masker map[string]struct{}

func newMasker(cfg config.Config) masker {
	m := masker{"authorization": {}, "x-cron-secret": {}, "access_token": {}}
	if cfg == nil {
		return m
	}
	for _, field := range cfg.GetArray("instrument.log_mask_fields") {
		m[strings.ToLower(field)] = struct{}{}
	}
	return m
}

func (m masker) hides(key string) bool {
	_, ok := m[strings.ToLower(key)]
	return ok
}

// first keeps the first value of each header or query key.
func (m masker) first(values map[string][]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		switch {
		case m.hides(k):
			out[k] = masked
		case len(v) > 0:
			out[k] = v[0]
		}
	}
	return out
}

// body returns a JSON body with sensitive keys masked at any depth.
// Anything else is logged as text, or dropped when it is not UTF-8.
func (m masker) body(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return m.value(v)
	}
	if !utf8.Valid(raw) {
		return "<binary>"
	}
	return string(raw)
}

func (m masker) value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			if m.hides(k) {
				val[k] = masked
			} else {
				val[k] = m.value(inner)
			}
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = m.value(inner)
		}
		return val
	default:
		return v
	}
}

// peekBody reads up to maxLoggedBody bytes and puts them back in front of
// whatever is left, so the handler still sees the whole body.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	return head
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	mask := newMasker(cfg)
	tracer := ins.Tracer("notifyflow.http")
	meter := ins.Meter("notifyflow.http")

	requests, err := meter.Int64Counter("notifyflow.api.requests",
		metric.WithDescription("API calls, by surface, route and status"))
	if err != nil {
		slog.Error("failed to create api request counter", "error", err)
	}
	latency, err := meter.Float64Histogram("notifyflow.api.duration",
		metric.WithDescription("API call latency"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create api latency histogram", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := routeOf(r)
			surface := surfaceOf(route)

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
					attrSurface.String(surface),
				),
			)
			defer span.End()

			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"route", route,
				"surface", surface,
				"query", mask.first(r.URL.Query()),
				"headers", mask.first(r.Header),
				"body", mask.body(peekBody(r)),
			)

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.code()
			elapsed := time.Since(start)
			attrs := metric.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
				attrSurface.String(surface),
			)

			span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(status))
			if rec.err != nil {
				span.RecordError(rec.err)
			}
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			if requests != nil {
				requests.Add(ctx, 1, attrs)
			}
			if latency != nil {
				latency.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
			}

			slog.InfoContext(ctx, "response sent",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", rec.size,
				"latency_ms", elapsed.Milliseconds(),
				"body", mask.body(rec.body.Bytes()),
			)
		})
	}
}
