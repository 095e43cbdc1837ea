// Package normalize extracts record lists from the upstream API's
// inconsistently wrapped payloads. The upstream sometimes returns a bare
// array, sometimes {"data": [...]}, and sometimes {"data": {"<key>": [...]}}.
// Every caller goes through Decode so an unexpected shape degrades to an
// empty list instead of an error.
package normalize

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Shape identifies which payload layout a response matched.
type Shape int

const (
	// ShapeUnrecognized covers invalid JSON, null, scalars, error envelopes
	// and objects without a list where one was expected.
	ShapeUnrecognized Shape = iota
	// ShapeList is a bare JSON array.
	ShapeList
	// ShapeWrappedList is {"data": [...]}.
	ShapeWrappedList
	// ShapeKeyedList is {"data": {"<key>": [...]}} or {"<key>": [...]}.
	ShapeKeyedList
)

func (s Shape) String() string {
	switch s {
	case ShapeList:
		return "list"
	case ShapeWrappedList:
		return "wrapped_list"
	case ShapeKeyedList:
		return "keyed_list"
	default:
		return "unrecognized"
	}
}

// Result is the outcome of decoding a list payload. Records is never nil.
type Result struct {
	Shape   Shape
	Records []json.RawMessage
}

// Recognized reports whether the payload matched one of the list layouts.
func (r Result) Recognized() bool {
	return r.Shape != ShapeUnrecognized
}

// Decode classifies body and returns its records in order.
func Decode(body []byte, expectedKey string) Result {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return unrecognized()
	}

	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return Result{Shape: ShapeList, Records: records(root)}
	}
	if !root.IsObject() {
		return unrecognized()
	}

	target := root
	if data := root.Get("data"); data.Exists() {
		if data.IsArray() {
			return Result{Shape: ShapeWrappedList, Records: records(data)}
		}
		target = data
	}

	if expectedKey != "" && target.IsObject() {
		if list, ok := target.Map()[expectedKey]; ok && list.IsArray() {
			return Result{Shape: ShapeKeyedList, Records: records(list)}
		}
	}

	return unrecognized()
}

// Into decodes the records of an already classified result. Records that
// do not decode into T are skipped.
func Into[T any](res Result) []T {
	out := make([]T, 0, len(res.Records))
	for _, raw := range res.Records {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Record applies the same unwrapping policy to single-object payloads:
// {...}, {"data": {...}} and {"data": {"<key>": {...}}}. It reports false
// when no object could be found.
func Record(body []byte, expectedKey string) (json.RawMessage, bool) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil, false
	}

	target := gjson.ParseBytes(body)
	if !target.IsObject() {
		return nil, false
	}
	if data := target.Get("data"); data.Exists() {
		if !data.IsObject() {
			return nil, false
		}
		target = data
	}
	if expectedKey != "" {
		if inner, ok := target.Map()[expectedKey]; ok && inner.IsObject() {
			target = inner
		}
	}
	return json.RawMessage(target.Raw), true
}

func records(list gjson.Result) []json.RawMessage {
	elems := list.Array()
	out := make([]json.RawMessage, 0, len(elems))
	for _, e := range elems {
		out = append(out, json.RawMessage(e.Raw))
	}
	return out
}

func unrecognized() Result {
	return Result{Shape: ShapeUnrecognized, Records: []json.RawMessage{}}
}
