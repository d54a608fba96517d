// Package variables resolves the flat variable table used by one pricing pass.
package variables

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Type is advisory metadata; arithmetic treats every variable as a plain number.
type Type string

const (
	TypeFixed      Type = "fixed"
	TypePercentage Type = "percentage"
)

// Variable is a named numeric input.
type Variable struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Type        Type    `json:"type" yaml:"type"`
	Value       float64 `json:"value" yaml:"value"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// Table maps variable id to variable.
type Table map[string]Variable

// Value implements expr.Lookup.
func (t Table) Value(id string) (float64, bool) {
	v, ok := t[id]
	return v.Value, ok
}

// Put inserts or replaces v.
func (t Table) Put(v Variable) {
	t[v.ID] = v
}

func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// IDs returns the variable ids in sorted order.
func (t Table) IDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Context is the free-form purchase context supplied with a pricing request.
type Context map[string]any

// Number coerces context[key] to a float. Missing or non-numeric values
// report ok=false.
func (c Context) Number(key string) (float64, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	return toNumber(v)
}

// Flag reports whether context[key] is truthy.
func (c Context) Flag(key string) bool {
	v, ok := c[key]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		return s == "true" || s == "yes" || s == "1"
	}
	f, ok := toNumber(v)
	return ok && f != 0
}

// Custom returns the numeric entries of context["customVariables"].
func (c Context) Custom() map[string]float64 {
	raw, ok := c["customVariables"]
	if !ok || raw == nil {
		return nil
	}
	out := make(map[string]float64)
	switch m := raw.(type) {
	case map[string]any:
		for k, v := range m {
			f, _ := toNumber(v)
			out[k] = f
		}
	case map[string]float64:
		for k, v := range m {
			out[k] = v
		}
	case map[any]any:
		for k, v := range m {
			key, ok := k.(string)
			if !ok {
				continue
			}
			f, _ := toNumber(v)
			out[key] = f
		}
	}
	return out
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
