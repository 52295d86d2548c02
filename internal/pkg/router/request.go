package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
)

// Request gives handlers typed access to path params, query and body. Parse
// failures come back as goerror format errors, so handlers can return them.
type Request struct {
	*http.Request
}

func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

func (r *Request) GetParamInt64(key string) (int64, error) {
	v, err := strconv.ParseInt(r.GetParam(key), 10, 64)
	if err != nil {
		return 0, goerror.NewInvalidFormat("param " + key + " must be an integer")
	}
	return v, nil
}

func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// GetQueryInt32 returns 0 when the query is absent.
func (r *Request) GetQueryInt32(key string) (int32, error) {
	v, err := r.queryInt(key, 32)
	return int32(v), err
}

// GetQueryInt64 returns 0 when the query is absent.
func (r *Request) GetQueryInt64(key string) (int64, error) {
	return r.queryInt(key, 64)
}

func (r *Request) queryInt(key string, bits int) (int64, error) {
	raw := r.GetQuery(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, bits)
	if err != nil {
		return 0, goerror.NewInvalidFormat("query " + key + " must be an integer")
	}
	return v, nil
}

// GetQueryBool returns nil when the query is absent, so "not filtered"
// differs from "false".
func (r *Request) GetQueryBool(key string) (*bool, error) {
	raw := r.GetQuery(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, goerror.NewInvalidFormat("query " + key + " must be a boolean")
	}
	return &v, nil
}

// DecodeBody accepts exactly one JSON value and rejects unknown fields.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}
	return nil
}
