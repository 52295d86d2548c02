// Package valueobject holds small value types shared by entities and storage.
package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrScanValueNotBytes is returned by Scan for column values that are not JSON text.
var ErrScanValueNotBytes = errors.New("valueobject: jsonmap scan value is not []byte")

// JSONMap is a free-form JSON object, stored in a JSONB column.
// @swaggertype object
type JSONMap map[string]any

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

// Scan accepts JSON as []byte or string. NULL scans to an empty map.
func (j *JSONMap) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = JSONMap{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case map[string]any:
		*j = v
		return nil
	default:
		return ErrScanValueNotBytes
	}

	m := JSONMap{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*j = m
	return nil
}

// GetString returns the top-level string under key, "" for anything else.
func (j JSONMap) GetString(key string) string {
	s, _ := j[key].(string)
	return s
}

// Lookup walks a dotted path such as "document.id". A top-level key that
// itself contains dots wins over traversal.
func (j JSONMap) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	if v, ok := j[path]; ok {
		return v, true
	}

	cur := map[string]any(j)
	parts := strings.Split(path, ".")
	for i, part := range parts {
		v, ok := cur[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		switch next := v.(type) {
		case map[string]any:
			cur = next
		case JSONMap:
			cur = next
		default:
			return nil, false
		}
	}
	return nil, false
}

// LookupString is Lookup with scalars rendered as text. Missing values,
// null, objects and arrays give "".
func (j JSONMap) LookupString(path string) string {
	v, _ := j.Lookup(path)
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	}
	return ""
}
