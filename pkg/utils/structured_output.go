package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Shape is the expected top-level JSON type of a model response
type Shape int

const (
	ShapeAny Shape = iota
	ShapeArray
	ShapeObject
)

// Extraction stages reported by MalformedOutputError
const (
	StageLocate   = "locate"
	StageParse    = "parse"
	StageValidate = "validate"
)

// ExtractOptions controls shape validation
type ExtractOptions struct {
	Shape        Shape
	RequiredKeys []string
	AllowEmpty   bool
}

// MalformedOutputError is returned when no valid structure can be recovered.
// It keeps both the raw and the repaired text for diagnosis.
type MalformedOutputError struct {
	Stage    string
	Reason   string
	Original string
	Repaired string
	Err      error
}

func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed structured output (%s): %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed structured output (%s): %s", e.Stage, e.Reason)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}

var fencePattern = regexp.MustCompile("```[A-Za-z0-9_-]*")

// ExtractJSON recovers a JSON value from free-form model output and returns it
// as canonical JSON. The pipeline is: strip code fences, slice from the first
// opening bracket to the matching last closing bracket, repair, parse, validate.
func ExtractJSON(raw string, opts ExtractOptions) ([]byte, error) {
	stripped := fencePattern.ReplaceAllString(raw, "")

	candidate, ok := locateJSON(stripped, opts.Shape)
	if !ok {
		return nil, &MalformedOutputError{Stage: StageLocate, Reason: "no JSON value found", Original: raw}
	}

	repaired, err := RepairJSON(candidate)
	if err != nil {
		return nil, &MalformedOutputError{Stage: StageParse, Reason: "output cannot be repaired without guessing", Original: raw, Err: err}
	}

	var value interface{}
	if err := json.Unmarshal([]byte(repaired), &value); err != nil {
		return nil, &MalformedOutputError{Stage: StageParse, Reason: "repaired text is not valid JSON", Original: raw, Repaired: repaired, Err: err}
	}

	value = coerceShape(value, opts.Shape)

	if reason := validateShape(value, opts); reason != "" {
		return nil, &MalformedOutputError{Stage: StageValidate, Reason: reason, Original: raw, Repaired: repaired}
	}

	out, err := json.Marshal(value)
	if err != nil {
		return nil, &MalformedOutputError{Stage: StageParse, Reason: "re-encoding failed", Original: raw, Repaired: repaired, Err: err}
	}
	return out, nil
}

// ExtractInto runs ExtractJSON and decodes the result into dst
func ExtractInto(raw string, opts ExtractOptions, dst interface{}) error {
	data, err := ExtractJSON(raw, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &MalformedOutputError{Stage: StageValidate, Reason: "unexpected field types", Original: raw, Repaired: string(data), Err: err}
	}
	return nil
}

func locateJSON(s string, shape Shape) (string, bool) {
	openers := "[{"
	switch shape {
	case ShapeArray:
		if strings.Contains(s, "[") {
			openers = "["
		}
	case ShapeObject:
		if strings.Contains(s, "{") {
			openers = "{"
		}
	}

	start := strings.IndexAny(s, openers)
	if start < 0 {
		return "", false
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return s[start:], true
	}
	return s[start : end+1], true
}

// coerceShape unwraps {"key": [...]} when an array is wanted and wraps a lone
// object in an array.
func coerceShape(value interface{}, shape Shape) interface{} {
	obj, isObj := value.(map[string]interface{})
	if shape != ShapeArray || !isObj {
		return value
	}
	var arrays [][]interface{}
	for _, v := range obj {
		if arr, ok := v.([]interface{}); ok {
			arrays = append(arrays, arr)
		}
	}
	if len(arrays) == 1 {
		return arrays[0]
	}
	return []interface{}{obj}
}

func validateShape(value interface{}, opts ExtractOptions) string {
	switch v := value.(type) {
	case []interface{}:
		if opts.Shape == ShapeObject {
			return "expected an object, got an array"
		}
		if len(v) == 0 && !opts.AllowEmpty {
			return "array is empty"
		}
		for i, item := range v {
			if len(opts.RequiredKeys) == 0 {
				break
			}
			obj, ok := item.(map[string]interface{})
			if !ok {
				return fmt.Sprintf("element %d is not an object", i)
			}
			if missing := missingKey(obj, opts.RequiredKeys); missing != "" {
				return fmt.Sprintf("element %d is missing key %q", i, missing)
			}
		}
	case map[string]interface{}:
		if opts.Shape == ShapeArray {
			return "expected an array, got an object"
		}
		if len(v) == 0 && !opts.AllowEmpty {
			return "object is empty"
		}
		if missing := missingKey(v, opts.RequiredKeys); missing != "" {
			return fmt.Sprintf("missing key %q", missing)
		}
	default:
		return "top-level value is neither an array nor an object"
	}
	return ""
}

func missingKey(obj map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return k
		}
	}
	return ""
}
