package marketapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
)

// Request is a logical call to the remote API. Only Get, Post and Patch implement it.
type Request interface {
	Method() string
	Path() string
	isRequest()
}

// Get carries query parameters only.
type Get struct {
	Endpoint string
	Query    Query
}

// Post carries an optional JSON body. A nil body is sent as {}.
type Post struct {
	Endpoint string
	Body     any
}

// Patch carries an optional JSON body. A nil body is sent as {}.
type Patch struct {
	Endpoint string
	Body     any
}

func (Get) Method() string   { return http.MethodGet }
func (Post) Method() string  { return http.MethodPost }
func (Patch) Method() string { return http.MethodPatch }

func (r Get) Path() string   { return r.Endpoint }
func (r Post) Path() string  { return r.Endpoint }
func (r Patch) Path() string { return r.Endpoint }

func (Get) isRequest()   {}
func (Post) isRequest()  {}
func (Patch) isRequest() {}

// Query is an ordered set of query parameters.
type Query struct {
	params []queryParam
}

type queryParam struct {
	key   string
	value any
}

// Add appends a parameter. Scalars (strings, booleans, numbers, json.Number, fmt.Stringer) are sent
// once; slices of scalars are sent as repeated key=value pairs in slice order. Nil values are
// skipped so optional arguments can be passed straight through.
func (q *Query) Add(key string, value any) *Query {
	if value == nil {
		return q
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return q
		}
		value = rv.Elem().Interface()
	}
	q.params = append(q.params, queryParam{key: key, value: value})
	return q
}

// Len returns the number of Add calls that were kept.
func (q Query) Len() int { return len(q.params) }

// Pairs flattens the query into the exact pairs that go on the URL.
func (q Query) Pairs() ([]Pair, error) {
	pairs := make([]Pair, 0, len(q.params))
	for _, p := range q.params {
		rv := reflect.ValueOf(p.value)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				s, err := formatScalar(rv.Index(i).Interface())
				if err != nil {
					return nil, fmt.Errorf("query param %q[%d]: %w", p.key, i, err)
				}
				pairs = append(pairs, Pair{Key: p.key, Value: s})
			}
			continue
		}
		s, err := formatScalar(p.value)
		if err != nil {
			return nil, fmt.Errorf("query param %q: %w", p.key, err)
		}
		pairs = append(pairs, Pair{Key: p.key, Value: s})
	}
	return pairs, nil
}

func formatScalar(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case fmt.Stringer:
		return x.String(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	}
	return "", fmt.Errorf("unsupported value type %T", v)
}
