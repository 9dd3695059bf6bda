package ldvalue

import "encoding/json"

// JSONString returns the JSON representation of the value.
func (v Value) JSONString() string {
	bytes, err := json.Marshal(v)
	if err == nil {
		return string(bytes)
	}
	return "null"
}

// MarshalJSON converts the Value to its JSON representation. This is the json.Marshaler method.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.valueType {
	case NullType:
		return []byte("null"), nil
	case BoolType:
		if v.boolValue {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case NumberType:
		return json.Marshal(v.numberValue)
	case StringType:
		return json.Marshal(v.stringValue)
	case ArrayType:
		return json.Marshal(v.arrayValue)
	case ObjectType:
		return json.Marshal(v.objectValue)
	case RawType:
		if len(v.rawValue) == 0 {
			return []byte("null"), nil
		}
		return v.rawValue, nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON parses a Value from JSON. This is the json.Unmarshaler method.
func (v *Value) UnmarshalJSON(data []byte) error {
	firstCh := byte(' ')
	for _, ch := range data {
		if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
			firstCh = ch
			break
		}
	}
	switch firstCh {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case '[':
		var a []Value
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		*v = Value{valueType: ArrayType, arrayValue: a}
	case '{':
		var m map[string]Value
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		*v = Value{valueType: ObjectType, objectValue: m}
	case 'n':
		var raw interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*v = Null()
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Float64(n)
	}
	return nil
}
