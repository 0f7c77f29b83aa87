package config

import (
	"fmt"
	"math"
)

// Kind is the JSON/YAML type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a format-independent document value.
type Value struct {
	Kind   Kind
	Str    string
	Num    float64
	Bool   bool
	List   []Value
	Object *Object
}

// Object is a mapping that remembers key declaration order.
// A repeated key keeps its first position and its last value.
type Object struct {
	keys   []string
	fields map[string]Value
}

func newObject() *Object {
	return &Object{fields: make(map[string]Value)}
}

func (o *Object) set(key string, v Value) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Keys returns the keys in declaration order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// IsNull reports whether the value is absent or null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Interface converts the value into plain Go values.
// Integral numbers become int64, other numbers float64, objects map[string]any.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1<<53 {
			return int64(v.Num)
		}
		return v.Num
	case KindBool:
		return v.Bool
	case KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.Object.Len())
		for _, k := range v.Object.keys {
			out[k] = v.Object.fields[k].Interface()
		}
		return out
	}
	return nil
}

// Scalar renders scalar values as text. It is how script and decoration values are read.
func (v Value) Scalar() (string, bool) {
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindNumber:
		return fmt.Sprint(v.Interface()), true
	case KindBool:
		return fmt.Sprint(v.Bool), true
	}
	return "", false
}
