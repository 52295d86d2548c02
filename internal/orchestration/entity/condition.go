package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
)

// Operator names a node of the condition tree.
type Operator string

const (
	OpExists Operator = "exists"
	OpEq     Operator = "eq"
	OpNeq    Operator = "neq"
	OpGt     Operator = "gt"
	OpLt     Operator = "lt"
	OpIn     Operator = "in"
	OpAnd    Operator = "and"
	OpOr     Operator = "or"
)

// fieldPath matches dotted payload paths such as document.type or items.0.
var fieldPath = regexp.MustCompile(`^[A-Za-z0-9_\-]+(\.[A-Za-z0-9_\-]+)*$`)

// Condition is one node of a rule's condition tree.
//
// Leaf nodes (exists, eq, neq, gt, lt, in) test a dotted payload path.
// Branch nodes (and, or) combine Conditions.
//
// Stored JSON looks like:
//
//	{"op":"and","conditions":[
//	  {"op":"eq","field":"step_label","value":"Payment"},
//	  {"op":"gt","field":"amount","value":100}
//	]}
//
// An object without "op" is shorthand for an AND of equalities:
//
//	{"step_label":"Payment","dossier.kind":"SAS"}
type Condition struct {
	Op         Operator
	Field      string
	Value      any
	Conditions []Condition
}

// ParseCondition decodes a stored condition tree. An empty or null document
// yields (nil, nil), meaning the rule has no condition.
func ParseCondition(raw []byte) (*Condition, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var doc any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}

	c, err := buildCondition(doc, "$")
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func buildCondition(doc any, at string) (Condition, error) {
	switch node := doc.(type) {
	case []any:
		children, err := buildChildren(node, at)
		if err != nil {
			return Condition{}, err
		}
		return Condition{Op: OpAnd, Conditions: children}, nil

	case map[string]any:
		rawOp, hasOp := node["op"]
		if !hasOp {
			return buildShorthand(node, at)
		}

		name, ok := rawOp.(string)
		if !ok {
			return Condition{}, fmt.Errorf("%w: %s.op must be a string", ErrInvalidCondition, at)
		}
		op := Operator(strings.ToLower(strings.TrimSpace(name)))

		switch op {
		case OpAnd, OpOr:
			list, ok := node["conditions"].([]any)
			if !ok {
				return Condition{}, fmt.Errorf("%w: %s.conditions must be an array", ErrInvalidCondition, at)
			}
			children, err := buildChildren(list, at+".conditions")
			if err != nil {
				return Condition{}, err
			}
			return Condition{Op: op, Conditions: children}, nil

		case OpExists, OpEq, OpNeq, OpGt, OpLt, OpIn:
			field, _ := node["field"].(string)
			field = strings.TrimSpace(field)
			if field == "" {
				return Condition{}, fmt.Errorf("%w: %s.field is required for %q", ErrInvalidCondition, at, op)
			}
			if !fieldPath.MatchString(field) {
				return Condition{}, fmt.Errorf("%w: %s.field %q is not a dotted path", ErrInvalidCondition, at, field)
			}

			value, hasValue := node["value"]
			if op != OpExists && !hasValue {
				return Condition{}, fmt.Errorf("%w: %s.value is required for %q", ErrInvalidCondition, at, op)
			}
			if op == OpIn {
				if _, ok := value.([]any); !ok {
					return Condition{}, fmt.Errorf("%w: %s.value must be an array for \"in\"", ErrInvalidCondition, at)
				}
			}

			return Condition{Op: op, Field: field, Value: value}, nil

		default:
			return Condition{}, fmt.Errorf("%w: unknown operator %q at %s", ErrInvalidCondition, name, at)
		}

	default:
		return Condition{}, fmt.Errorf("%w: %s must be an object or array", ErrInvalidCondition, at)
	}
}

func buildChildren(list []any, at string) ([]Condition, error) {
	children := make([]Condition, 0, len(list))
	for i, item := range list {
		c, err := buildCondition(item, fmt.Sprintf("%s[%d]", at, i))
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, nil
}

func buildShorthand(node map[string]any, at string) (Condition, error) {
	children := make([]Condition, 0, len(node))
	for field, value := range node {
		if !fieldPath.MatchString(field) {
			return Condition{}, fmt.Errorf("%w: field %q at %s is not a dotted path", ErrInvalidCondition, field, at)
		}
		children = append(children, Condition{Op: OpEq, Field: field, Value: value})
	}
	return Condition{Op: OpAnd, Conditions: children}, nil
}

// Match evaluates the tree against payload. A nil condition always matches.
// A missing field fails every comparison, neq included.
func (c *Condition) Match(payload valueobject.JSONMap) bool {
	if c == nil {
		return true
	}

	switch c.Op {
	case OpAnd:
		for i := range c.Conditions {
			if !c.Conditions[i].Match(payload) {
				return false
			}
		}
		return true

	case OpOr:
		for i := range c.Conditions {
			if c.Conditions[i].Match(payload) {
				return true
			}
		}
		return false
	}

	actual, found := payload.Lookup(c.Field)
	if !found {
		return false
	}

	switch c.Op {
	case OpExists:
		return actual != nil
	case OpEq:
		return scalarEqual(actual, c.Value)
	case OpNeq:
		return !scalarEqual(actual, c.Value)
	case OpGt:
		return compare(actual, c.Value) > 0
	case OpLt:
		return compare(actual, c.Value) < 0
	case OpIn:
		set, ok := c.Value.([]any)
		if !ok {
			return false
		}
		for _, item := range set {
			if scalarEqual(actual, item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func scalarEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}

	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}

// compare returns -1, 0 or 1 for comparable operands, and 0 when the
// operands cannot be ordered so that neither gt nor lt holds.
func compare(a, b any) int {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0
		}
		switch {
		case fa > fb:
			return 1
		case fa < fb:
			return -1
		default:
			return 0
		}
	}

	as, ok := a.(string)
	if !ok {
		return 0
	}
	bs, ok := b.(string)
	if !ok {
		return 0
	}

	return strings.Compare(as, bs)
}
