package mcpserver

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ValidationError reports arguments that do not satisfy a tool's input schema.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid arguments: " + strings.Join(e.Problems, "; ")
}

// ValidateArgs checks args against a JSON Schema object description and returns a copy
// with property defaults filled in. It understands the subset tools use: type, properties,
// required, enum, default, minimum, maximum and array items.
func ValidateArgs(schema map[string]any, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	if schema == nil {
		return out, nil
	}

	props, _ := schema["properties"].(map[string]any)
	var problems []string

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, _ := props[name].(map[string]any)
		v, ok := out[name]
		if !ok || v == nil {
			if def, has := prop["default"]; has {
				out[name] = def
			} else {
				delete(out, name)
			}
			continue
		}
		problems = append(problems, checkValue(name, prop, v)...)
	}

	for _, name := range stringList(schema["required"]) {
		if _, ok := out[name]; !ok {
			problems = append(problems, fmt.Sprintf("%s is required", name))
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return out, nil
}

func checkValue(name string, prop map[string]any, v any) []string {
	typ, _ := prop["type"].(string)
	if typ != "" && !hasType(typ, v) {
		return []string{fmt.Sprintf("%s must be %s, got %s", name, withArticle(typ), jsonType(v))}
	}

	var problems []string
	if enum, ok := prop["enum"]; ok && !inEnum(enum, v) {
		problems = append(problems, fmt.Sprintf("%s must be one of %s", name, formatList(enum)))
	}
	if n, ok := toFloat(v); ok {
		if lo, ok := toFloat(prop["minimum"]); ok && n < lo {
			problems = append(problems, fmt.Sprintf("%s must be >= %v", name, prop["minimum"]))
		}
		if hi, ok := toFloat(prop["maximum"]); ok && n > hi {
			problems = append(problems, fmt.Sprintf("%s must be <= %v", name, prop["maximum"]))
		}
	}
	if typ == "array" {
		items, _ := prop["items"].(map[string]any)
		for i, item := range toSlice(v) {
			problems = append(problems, checkValue(fmt.Sprintf("%s[%d]", name, i), items, item)...)
		}
	}
	return problems
}

func hasType(typ string, v any) bool {
	switch typ {
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "number":
		_, ok := toFloat(v)
		return ok
	case "integer":
		f, ok := toFloat(v)
		return ok && f == math.Trunc(f)
	case "array":
		return toSlice(v) != nil
	case "object":
		_, ok := v.(map[string]any)
		return ok
	}
	return true
}

func jsonType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	if toSlice(v) != nil {
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

func withArticle(typ string) string {
	switch typ {
	case "integer", "array", "object":
		return "an " + typ
	}
	return "a " + typ
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
	}
	return 0, false
}

func toSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		if s == nil {
			return []any{}
		}
		return s
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	}
	return nil
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, x := range l {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func inEnum(enum any, v any) bool {
	for _, candidate := range toSlice(enum) {
		switch v.(type) {
		case string, bool:
			if candidate == v {
				return true
			}
			continue
		}
		a, okA := toFloat(candidate)
		b, okB := toFloat(v)
		if okA && okB && a == b {
			return true
		}
	}
	return false
}

func formatList(v any) string {
	items := toSlice(v)
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprint(item)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
