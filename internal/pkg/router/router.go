// Package router serves the JSON API on top of httprouter: middlewares,
// bearer authentication and one response envelope for every endpoint.
package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/notifyflow/internal/pkg/config"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/jwt"
	"github.com/shandysiswandi/notifyflow/internal/pkg/uid"
	"github.com/shandysiswandi/notifyflow/internal/pkg/validator"
)

type errorResponse struct {
	Message string            `json:"message" example:"rule not found"`
	Error   map[string]string `json:"error,omitempty"`
}

type successResponse struct {
	Message string         `json:"message" example:"request has been successfully"`
	Data    any            `json:"data" swaggertype:"object"`
	Meta    map[string]any `json:"meta,omitempty" swaggertype:"object"`
}

// Handler returns the payload for the "data" field, or an error mapped to a
// status through goerror. A payload may customise the envelope by
// implementing StatusCode() int, Message() string or Meta() map[string]any.
type Handler func(r *Request) (any, error)

type Config struct {
	Config         config.Config
	UUID           uid.StringID
	JWT            jwt.JWT
	Instrument     instrument.Instrumentation
	ServiceName    string
	ServiceVersion string
}

type Router struct {
	hr     *httprouter.Router
	mws    []Middleware
	public map[string]map[string]struct{}
}

func NewRouter(cfg Config) *Router {
	r := &Router{
		hr: &httprouter.Router{
			RedirectTrailingSlash:  true,
			RedirectFixedPath:      true,
			HandleMethodNotAllowed: true,
			HandleOPTIONS:          true,
			SaveMatchedRoutePath:   true,
			NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, errorResponse{Message: "endpoint not found"}, http.StatusNotFound)
			}),
			MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, errorResponse{Message: "method not allowed"}, http.StatusMethodNotAllowed)
			}),
		},
		public: map[string]map[string]struct{}{},
	}
	r.mws = []Middleware{
		middlewareRecoverer,
		middlewareClientIP,
		middlewareCorrelationID(cfg.UUID),
		middlewareObservability(cfg.Config, cfg.Instrument),
		middlewareMaintenance(cfg.Config),
		middlewareAuthentication(cfg.JWT, r.public),
	}

	health := map[string]string{"service": cfg.ServiceName, "version": cfg.ServiceVersion, "status": "ok"}
	r.GET("/health", func(*Request) (any, error) { return alive(health), nil })
	r.Public(http.MethodGet, "/health")

	return r
}

type alive map[string]string

func (alive) Message() string { return "service is alive" }

// Public lets method+path through without a token. Call it before serving.
func (r *Router) Public(method, path string) {
	if r.public[method] == nil {
		r.public[method] = make(map[string]struct{})
	}
	r.public[method][path] = struct{}{}
}

func (r *Router) GET(path string, h Handler)    { r.handle(http.MethodGet, path, h) }
func (r *Router) POST(path string, h Handler)   { r.handle(http.MethodPost, path, h) }
func (r *Router) PATCH(path string, h Handler)  { r.handle(http.MethodPatch, path, h) }
func (r *Router) DELETE(path string, h Handler) { r.handle(http.MethodDelete, path, h) }

// GETRaw registers a handler that owns the response, such as an SSE stream.
func (r *Router) GETRaw(path string, h http.Handler) {
	r.hr.Handler(http.MethodGet, path, Chain(h, r.mws...))
}

func (r *Router) handle(method, path string, h Handler) {
	r.hr.Handler(method, path, Chain(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err != nil {
			if rec, ok := w.(interface{ SetError(error) }); ok {
				rec.SetError(err)
			}
			writeError(w, err)
			return
		}
		writeSuccess(w, resp)
	}), r.mws...))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

// writeError only exposes goerror messages; anything else is a 500 whose
// cause stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Message: gerr.Msg(), Error: gerr.Fields()}
	var verr validator.V10ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Values()
	}
	writeJSON(w, resp, gerr.StatusCode())
}

func writeSuccess(w http.ResponseWriter, resp any) {
	code := http.StatusOK
	if sc, ok := resp.(interface{ StatusCode() int }); ok {
		code = sc.StatusCode()
	}
	if resp == nil || code == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	env := successResponse{Message: "request has been successfully", Data: resp}
	if m, ok := resp.(interface{ Message() string }); ok {
		env.Message = m.Message()
	}
	if m, ok := resp.(interface{ Meta() map[string]any }); ok {
		env.Meta = m.Meta()
	}
	writeJSON(w, env, code)
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
