package settings

import "fmt"

// ValueType is the type tag suffixed onto every settings key on disk, e.g.
// "boot_count@n". It lets the store round-trip a value's Go type through a
// flat string-keyed journal without a schema.
type ValueType byte

const (
	TypeString       ValueType = 's'
	TypeBool         ValueType = 'b'
	TypeNumber       ValueType = 'n'
	TypeNull         ValueType = 'x'
	TypeIP           ValueType = 'a'
	TypeObject       ValueType = 'o'
	TypeNumberVector ValueType = 'F'
	Type2DVector     ValueType = '2'
	TypeStringVector ValueType = 'S'
	TypeBoolVector   ValueType = 'B'
)

// suffix returns the "@x" tag appended to a bare key for this type.
func (t ValueType) suffix() string {
	return "@" + string(rune(t))
}

// Value is the tagged union stored for every key: exactly one of the
// fields is meaningful, selected by Type.
type Value struct {
	Type         ValueType
	String       string
	Bool         bool
	Number       float64
	IP           string
	Object       string
	NumberVector []float64
	Vector2D     [][]float64
	StringVector []string
	BoolVector   []bool
}

func (v Value) key(base string) string {
	return base + v.Type.suffix()
}

// StringValue builds a string-typed Value.
func StringValue(s string) Value { return Value{Type: TypeString, String: s} }

// BoolValue builds a bool-typed Value.
func BoolValue(b bool) Value { return Value{Type: TypeBool, Bool: b} }

// NumberValue builds a number-typed Value.
func NumberValue(n float64) Value { return Value{Type: TypeNumber, Number: n} }

// NullValue builds a null-typed Value (presence-only marker).
func NullValue() Value { return Value{Type: TypeNull} }

// IPValue builds an IP-address-typed Value.
func IPValue(ip string) Value { return Value{Type: TypeIP, IP: ip} }

// ObjectValue builds an opaque-JSON-object-typed Value.
func ObjectValue(json string) Value { return Value{Type: TypeObject, Object: json} }

// NumberVectorValue builds a 1D float vector Value.
func NumberVectorValue(v []float64) Value { return Value{Type: TypeNumberVector, NumberVector: v} }

// Number2DVectorValue builds a 2D float vector Value.
func Number2DVectorValue(v [][]float64) Value { return Value{Type: Type2DVector, Vector2D: v} }

// StringVectorValue builds a string vector Value.
func StringVectorValue(v []string) Value { return Value{Type: TypeStringVector, StringVector: v} }

// BoolVectorValue builds a bool vector Value.
func BoolVectorValue(v []bool) Value { return Value{Type: TypeBoolVector, BoolVector: v} }

// ErrTypeMismatch names a type-tag mismatch. No store method returns it: a
// typed Get against a key stored under another tag reports the key absent.
var ErrTypeMismatch = fmt.Errorf("settings: type mismatch")
