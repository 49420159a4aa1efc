package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ArgError reports tool input that passed the schema but still makes no sense.
type ArgError struct {
	Name    string
	Problem string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Name, e.Problem)
}

func intArg(args map[string]any, name string) (int64, bool) {
	switch v := args[name].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

func requireInt(args map[string]any, name string) (int64, error) {
	n, ok := intArg(args, name)
	if !ok {
		return 0, &ArgError{Name: name, Problem: "is required"}
	}
	return n, nil
}

func floatArg(args map[string]any, name string) (float64, bool) {
	switch v := args[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func positiveAmount(args map[string]any, name string) (float64, error) {
	v, ok := floatArg(args, name)
	if !ok {
		return 0, &ArgError{Name: name, Problem: "is required"}
	}
	if v <= 0 {
		return 0, &ArgError{Name: name, Problem: "must be greater than zero"}
	}
	return v, nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

func currencyArg(args map[string]any) string {
	c := strings.ToUpper(stringArg(args, "currency"))
	if c == "" {
		return "OOM"
	}
	return c
}

func boolArg(args map[string]any, name string) (bool, bool) {
	b, ok := args[name].(bool)
	return b, ok
}

func intsArg(args map[string]any, name string) []int64 {
	raw, _ := args[name].([]any)
	out := make([]int64, 0, len(raw))
	for i := range raw {
		if n, ok := intArg(map[string]any{name: raw[i]}, name); ok {
			out = append(out, n)
		}
	}
	return out
}

func stringsArg(args map[string]any, name string) []string {
	var raw []any
	switch v := args[name].(type) {
	case []any:
		raw = v
	case []string:
		return v
	}
	out := make([]string, 0, len(raw))
	for _, x := range raw {
		if s, ok := x.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
