package ast

// ValueKind discriminates the value variants.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
	ValueString
	ValueColumn
	ValueParam
	ValueNamedParam
	ValueArray
)

// Value represents a literal, column reference or parameter placeholder
// appearing inside a command.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Int    int64
	Float  float64
	Str    string
	Index  uint16
	Values []Value
}

// Null constructs a SQL NULL value.
func Null() Value { return Value{Kind: ValueNull} }

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// Int constructs a 64-bit integer value.
func Int(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// Float constructs a 64-bit float value.
func Float(f float64) Value { return Value{Kind: ValueFloat, Float: f} }

// String constructs a string value. Single quotes are doubled while rendering.
func String(s string) Value { return Value{Kind: ValueString, Str: s} }

// ColumnRef constructs a column reference value, rendered without quoting.
func ColumnRef(name string) Value { return Value{Kind: ValueColumn, Str: name} }

// Param constructs a positional parameter placeholder, rendered as $n.
func Param(n uint16) Value { return Value{Kind: ValueParam, Index: n} }

// NamedParam constructs a named parameter placeholder, rendered as :name.
func NamedParam(name string) Value { return Value{Kind: ValueNamedParam, Str: name} }

// Array constructs an array of values.
func Array(values ...Value) Value { return Value{Kind: ValueArray, Values: values} }
