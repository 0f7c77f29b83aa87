package config

import (
	"errors"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("invalid JSON document")

// decodeJSON parses data with gjson, which iterates object members in document order.
func decodeJSON(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, errInvalidJSON
	}
	return fromGJSON(gjson.ParseBytes(data)), nil
}

func fromGJSON(r gjson.Result) Value {
	switch {
	case r.IsObject():
		obj := newObject()
		r.ForEach(func(key, value gjson.Result) bool {
			obj.set(key.String(), fromGJSON(value))
			return true
		})
		return Value{Kind: KindObject, Object: obj}
	case r.IsArray():
		var list []Value
		r.ForEach(func(_, value gjson.Result) bool {
			list = append(list, fromGJSON(value))
			return true
		})
		return Value{Kind: KindList, List: list}
	}

	switch r.Type {
	case gjson.String:
		return Value{Kind: KindString, Str: r.Str}
	case gjson.Number:
		return Value{Kind: KindNumber, Num: r.Num}
	case gjson.True:
		return Value{Kind: KindBool, Bool: true}
	case gjson.False:
		return Value{Kind: KindBool, Bool: false}
	}
	return Value{Kind: KindNull}
}
