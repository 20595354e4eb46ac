// Package conditions implements the declarative boolean-expression
// interpreter shared by workflow connections, decision nodes and automation
// rules. Expressions are JSON-shaped operator trees, never host code: a map
// with exactly one operator key whose value holds the operands, e.g.
//
//	{"==": [{"var": "triggerData.status"}, "Done"]}
//	{"and": [{">": [{"var": "variables.estimate"}, 3]}, {"var": "userId"}]}
//
// Operand trees originate from end users, so evaluation fails closed: any
// malformed input yields false, never a panic or an error escaping to the
// caller of Evaluate.
package conditions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Supported operator keys.
const (
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpContains     = "contains"
	OpAnd          = "and"
	OpOr           = "or"
	OpNot          = "!"
	OpVar          = "var"
)

// Evaluate interprets expr against the context and returns its truthiness.
// A nil expression is vacuously true (an unconditioned edge always
// traverses). Legacy string input is accepted only when it decodes into a
// valid tree; everything else fails closed to false.
func Evaluate(expr any, context map[string]any) bool {
	if expr == nil {
		return true
	}

	if s, ok := expr.(string); ok {
		decoded, err := Decode(s)
		if err != nil {
			return false
		}

		expr = decoded
	}

	result, err := eval(expr, context)
	if err != nil {
		return false
	}

	return Truthy(result)
}

// Decode parses a legacy string condition into an expression tree. Only JSON
// trees are accepted; free-form code strings are rejected so stored
// conditions can never reach anything that executes them.
func Decode(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var tree any
	if err := json.Unmarshal([]byte(s), &tree); err != nil {
		return nil, fmt.Errorf("condition is not a valid expression tree: %w", err)
	}

	switch tree.(type) {
	case map[string]any, bool:
		return tree, nil
	default:
		return nil, fmt.Errorf("condition must be an operator tree or boolean, got %T", tree)
	}
}

// Valid reports whether expr is a well-formed expression tree. Used by the
// graph validator to reject definitions before they ever execute.
func Valid(expr any) error {
	if expr == nil {
		return nil
	}

	if s, ok := expr.(string); ok {
		decoded, err := Decode(s)
		if err != nil {
			return err
		}

		expr = decoded
	}

	_, err := eval(expr, map[string]any{})

	return err
}

func eval(expr any, context map[string]any) (any, error) {
	node, ok := expr.(map[string]any)
	if !ok {
		// Literals evaluate to themselves.
		return expr, nil
	}

	if len(node) != 1 {
		return nil, fmt.Errorf("expression node must have exactly one operator, got %d", len(node))
	}

	var op string

	var operand any

	for k, v := range node {
		op, operand = k, v
	}

	switch op {
	case OpVar:
		path, ok := operand.(string)
		if !ok {
			return nil, fmt.Errorf("var operand must be a string path, got %T", operand)
		}

		// Unknown paths resolve to nil (falsy), never an error.
		return resolvePath(path, context), nil

	case OpAnd:
		return evalAnd(operand, context)

	case OpOr:
		return evalOr(operand, context)

	case OpNot:
		return evalNot(operand, context)

	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpContains:
		return evalBinary(op, operand, context)

	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}

func operands(operand any) ([]any, error) {
	list, ok := operand.([]any)
	if !ok {
		return nil, fmt.Errorf("operator expects a list of operands, got %T", operand)
	}

	return list, nil
}

func evalAnd(operand any, context map[string]any) (any, error) {
	list, err := operands(operand)
	if err != nil {
		return nil, err
	}

	for _, item := range list {
		v, err := eval(item, context)
		if err != nil {
			return nil, err
		}

		if !Truthy(v) {
			return false, nil
		}
	}

	return true, nil
}

func evalOr(operand any, context map[string]any) (any, error) {
	list, err := operands(operand)
	if err != nil {
		return nil, err
	}

	for _, item := range list {
		v, err := eval(item, context)
		if err != nil {
			return nil, err
		}

		if Truthy(v) {
			return true, nil
		}
	}

	return false, nil
}

func evalNot(operand any, context map[string]any) (any, error) {
	// Accept both {"!": expr} and {"!": [expr]}.
	if list, ok := operand.([]any); ok {
		if len(list) != 1 {
			return nil, fmt.Errorf("! expects exactly one operand, got %d", len(list))
		}

		operand = list[0]
	}

	v, err := eval(operand, context)
	if err != nil {
		return nil, err
	}

	return !Truthy(v), nil
}

func evalBinary(op string, operand any, context map[string]any) (any, error) {
	list, err := operands(operand)
	if err != nil {
		return nil, err
	}

	if len(list) != 2 {
		return nil, fmt.Errorf("%s expects exactly two operands, got %d", op, len(list))
	}

	left, err := eval(list[0], context)
	if err != nil {
		return nil, err
	}

	right, err := eval(list[1], context)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpEqual:
		return looseEqual(left, right), nil
	case OpNotEqual:
		return !looseEqual(left, right), nil
	case OpGreater:
		return numericCompare(left, right, func(a, b float64) bool { return a > b }), nil
	case OpLess:
		return numericCompare(left, right, func(a, b float64) bool { return a < b }), nil
	case OpGreaterEqual:
		return numericCompare(left, right, func(a, b float64) bool { return a >= b }), nil
	case OpLessEqual:
		return numericCompare(left, right, func(a, b float64) bool { return a <= b }), nil
	case OpContains:
		return contains(left, right), nil
	default:
		return nil, fmt.Errorf("unknown binary operator %q", op)
	}
}

// Resolve walks a dotted path through nested context maps. Any missing
// segment yields nil. Shared with trigger matchers, which address the same
// context shape as expressions do.
func Resolve(path string, context map[string]any) any {
	return resolvePath(path, context)
}

// resolvePath walks a dotted path through nested maps. Any missing segment
// yields nil.
func resolvePath(path string, context map[string]any) any {
	if path == "" {
		return nil
	}

	var current any = context

	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}

		current, ok = m[segment]
		if !ok {
			return nil
		}
	}

	return current
}

// Truthy mirrors the falsiness rules the product's stored conditions rely
// on: nil, false, zero and the empty string are false, everything else true.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int, int32, int64, float32, float64:
		f, _ := toFloat(t)
		return f != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func looseEqual(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}

	if lf, lok := toFloat(left); lok {
		if rf, rok := toFloat(right); rok {
			return lf == rf
		}
	}

	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}

func numericCompare(left, right any, cmp func(a, b float64) bool) bool {
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)

	if !lok || !rok {
		return false
	}

	return cmp(lf, rf)
}

func contains(left, right any) bool {
	switch l := left.(type) {
	case string:
		return strings.Contains(l, fmt.Sprintf("%v", right))
	case []any:
		for _, item := range l {
			if looseEqual(item, right) {
				return true
			}
		}

		return false
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
