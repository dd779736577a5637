// Package types provides the core data types for the fsweep pipeline.
package types

import "strconv"

// ValueKind identifies the scalar type stored in a Value.
type ValueKind uint8

const (
	// KindInvalid is the zero ValueKind; no valid Value carries it.
	KindInvalid ValueKind = iota

	// KindString is a UTF-8 string scalar.
	KindString

	// KindInt is a 64-bit signed integer scalar.
	KindInt

	// KindFloat is a 64-bit IEEE-754 float scalar.
	KindFloat
)

// String returns a human-readable name for the kind.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "invalid"
	}
}

// Value is a tagged scalar: exactly one of string, int64 or float64.
// The zero Value is invalid and is rejected by schema validation.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	fl   float64
}

// String constructs a string Value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Int constructs an integer Value.
func Int(i int64) Value {
	return Value{kind: KindInt, num: i}
}

// Float constructs a float Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, fl: f}
}

// Kind returns the scalar kind of the value.
func (v Value) Kind() ValueKind {
	return v.kind
}

// Str returns the string payload. It is only meaningful for KindString.
func (v Value) Str() string {
	return v.str
}

// Int returns the integer payload. It is only meaningful for KindInt.
func (v Value) Int() int64 {
	return v.num
}

// Float returns the float payload. It is only meaningful for KindFloat.
func (v Value) Float() float64 {
	return v.fl
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	return v == o
}

// GoString renders the value for diagnostics and test failure messages.
func (v Value) GoString() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.str)
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.fl, 'g', -1, 64)
	default:
		return "<invalid>"
	}
}
