// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// toMap converts a document into its JSON object form. Integral numbers
// become int64 and the rest float64, so every backend stores the same
// representation and integer fields decode back cleanly.
func toMap(doc any) (map[string]any, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("document is null")
	}
	return convertNumbers(m).(map[string]any), nil
}

// toScalar normalizes a filter value the same way toMap normalizes fields.
func toScalar(v any) (any, error) {
	m, err := toMap(map[string]any{"v": v})
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}

func convertNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := t.Int64(); err == nil {
				return n
			}
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = convertNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = convertNumbers(e)
		}
		return t
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// matches evaluates a filter against a normalized field value. Missing
// fields and mismatched types never match.
func matches(field any, op Operator, want any) bool {
	if field == nil {
		return false
	}
	if a, ok := toFloat(field); ok {
		b, ok := toFloat(want)
		if !ok {
			return false
		}
		return compareOrdered(a, b, op)
	}
	if a, ok := field.(string); ok {
		b, ok := want.(string)
		if !ok {
			return false
		}
		return compareOrdered(a, b, op)
	}
	if a, ok := field.(bool); ok {
		b, ok := want.(bool)
		return ok && op == Eq && a == b
	}
	return false
}

func compareOrdered[T float64 | string](a, b T, op Operator) bool {
	switch op {
	case Eq:
		return a == b
	case Lt:
		return a < b
	case Lte:
		return a <= b
	case Gt:
		return a > b
	case Gte:
		return a >= b
	}
	return false
}
