package schema

type defaultState uint8

const (
	defaultAbsent defaultState = iota
	defaultNull
	defaultValue
)

// Default is a field default with three states: absent, explicit null, or a value.
// The zero value is absent.
type Default struct {
	state defaultState
	value any
}

// NoDefault returns an absent default.
func NoDefault() Default { return Default{} }

// NullDefault returns an explicit null default.
func NullDefault() Default { return Default{state: defaultNull} }

// ValueDefault returns a default holding v. A nil v is an explicit null.
//
// Accepted values are those produced by encoding/json with UseNumber (nil, bool,
// string, json.Number, []any, map[string]any) plus Go ints and floats.
func ValueDefault(v any) Default {
	if v == nil {
		return NullDefault()
	}
	return Default{state: defaultValue, value: v}
}

// Present reports whether a default was declared, including an explicit null.
func (d Default) Present() bool { return d.state != defaultAbsent }

// IsNull reports whether the default is an explicit null.
func (d Default) IsNull() bool { return d.state == defaultNull }

// Value returns the default value; nil for absent and explicit-null defaults.
func (d Default) Value() any { return d.value }
