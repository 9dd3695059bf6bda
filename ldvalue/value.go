// Package ldvalue provides an immutable Value type that represents any JSON value.
//
// The SDK uses Value for flag variation values, context attributes, and custom event
// data. Using Value instead of interface{} keeps the type system honest about what can
// appear in JSON and lets values be compared and copied safely.
package ldvalue

import (
	"encoding/json"
	"sort"
	"strconv"
)

// ValueType indicates which JSON type is contained in a Value.
type ValueType int

const (
	// NullType describes a null value. This is the type of the zero value of Value.
	NullType ValueType = iota
	// BoolType describes a boolean value.
	BoolType
	// NumberType describes a numeric value. JSON does not distinguish between integers
	// and floating-point values; they are both represented as NumberType.
	NumberType
	// StringType describes a string value.
	StringType
	// ArrayType describes an array value.
	ArrayType
	// ObjectType describes an object (map) value.
	ObjectType
	// RawType describes a pre-serialized JSON fragment created with Raw().
	RawType
)

// String returns the name of the value type.
func (t ValueType) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case NumberType:
		return "number"
	case StringType:
		return "string"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	case RawType:
		return "raw"
	default:
		return "unknown"
	}
}

// Value represents any of the data types supported by JSON, all of which can be used for
// a flag variation value or a context attribute. A Value is immutable once created.
//
// The zero value of Value is a JSON null.
type Value struct {
	valueType   ValueType
	boolValue   bool
	numberValue float64
	stringValue string
	arrayValue  []Value
	objectValue map[string]Value
	rawValue    json.RawMessage
}

// Null creates a null Value. This is the same as the zero value of Value.
func Null() Value {
	return Value{valueType: NullType}
}

// Bool creates a boolean Value.
func Bool(value bool) Value {
	return Value{valueType: BoolType, boolValue: value}
}

// Int creates a numeric Value from an integer.
func Int(value int) Value {
	return Float64(float64(value))
}

// Float64 creates a numeric Value.
func Float64(value float64) Value {
	return Value{valueType: NumberType, numberValue: value}
}

// String creates a string Value.
func String(value string) Value {
	return Value{valueType: StringType, stringValue: value}
}

// Raw creates an unparsed JSON Value. The bytes are used as-is during serialization;
// no validation is performed.
func Raw(value json.RawMessage) Value {
	return Value{valueType: RawType, rawValue: value}
}

// CopyArbitraryValue creates a Value from an arbitrary interface{} value of any type.
//
// Types that do not have a JSON equivalent become null.
func CopyArbitraryValue(valueAsInterface interface{}) Value {
	switch o := valueAsInterface.(type) {
	case nil:
		return Null()
	case Value:
		return o
	case *Value:
		if o == nil {
			return Null()
		}
		return *o
	case bool:
		return Bool(o)
	case int:
		return Int(o)
	case int8:
		return Int(int(o))
	case int16:
		return Int(int(o))
	case int32:
		return Int(int(o))
	case int64:
		return Float64(float64(o))
	case uint:
		return Float64(float64(o))
	case uint8:
		return Int(int(o))
	case uint16:
		return Int(int(o))
	case uint32:
		return Float64(float64(o))
	case uint64:
		return Float64(float64(o))
	case float32:
		return Float64(float64(o))
	case float64:
		return Float64(o)
	case string:
		return String(o)
	case json.Number:
		if n, err := o.Float64(); err == nil {
			return Float64(n)
		}
		return Null()
	case []interface{}:
		a := make([]Value, 0, len(o))
		for _, v := range o {
			a = append(a, CopyArbitraryValue(v))
		}
		return Value{valueType: ArrayType, arrayValue: a}
	case []Value:
		return ArrayOf(o...)
	case map[string]interface{}:
		m := make(map[string]Value, len(o))
		for k, v := range o {
			m[k] = CopyArbitraryValue(v)
		}
		return Value{valueType: ObjectType, objectValue: m}
	case map[string]Value:
		return CopyObject(o)
	case json.RawMessage:
		return Raw(o)
	default:
		// Fall back to JSON round-tripping for structs and other types.
		if bytes, err := json.Marshal(valueAsInterface); err == nil {
			var v Value
			if json.Unmarshal(bytes, &v) == nil {
				return v
			}
		}
		return Null()
	}
}

// ArrayOf creates an array Value from a list of Values.
func ArrayOf(items ...Value) Value {
	copied := make([]Value, len(items))
	copy(copied, items)
	return Value{valueType: ArrayType, arrayValue: copied}
}

// CopyObject creates an object Value from a map of Values. The map is copied, so
// subsequent changes to it do not affect the Value.
func CopyObject(m map[string]Value) Value {
	copied := make(map[string]Value, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return Value{valueType: ObjectType, objectValue: copied}
}

// ArrayBuilder is a builder for constructing an array Value.
type ArrayBuilder interface {
	// Add appends an element to the array.
	Add(value Value) ArrayBuilder
	// Build creates the array Value. Continuing to modify the builder afterward does not
	// affect the returned Value.
	Build() Value
}

type arrayBuilderImpl struct {
	copyOnWrite bool
	output      []Value
}

// ArrayBuild creates a builder for constructing an array Value.
func ArrayBuild() ArrayBuilder {
	return ArrayBuildWithCapacity(1)
}

// ArrayBuildWithCapacity creates a builder for constructing an array Value, preallocating
// the given capacity.
func ArrayBuildWithCapacity(capacity int) ArrayBuilder {
	return &arrayBuilderImpl{output: make([]Value, 0, capacity)}
}

func (b *arrayBuilderImpl) Add(value Value) ArrayBuilder {
	if b.copyOnWrite {
		n := len(b.output)
		newSlice := make([]Value, n, n+1)
		copy(newSlice, b.output)
		b.output = newSlice
		b.copyOnWrite = false
	}
	b.output = append(b.output, value)
	return b
}

func (b *arrayBuilderImpl) Build() Value {
	b.copyOnWrite = true
	return Value{valueType: ArrayType, arrayValue: b.output}
}

// ObjectBuilder is a builder for constructing an object Value.
type ObjectBuilder interface {
	// Set sets a property in the object.
	Set(name string, value Value) ObjectBuilder
	// Build creates the object Value. Continuing to modify the builder afterward does not
	// affect the returned Value.
	Build() Value
}

type objectBuilderImpl struct {
	copyOnWrite bool
	output      map[string]Value
}

// ObjectBuild creates a builder for constructing an object Value.
func ObjectBuild() ObjectBuilder {
	return ObjectBuildWithCapacity(1)
}

// ObjectBuildWithCapacity creates a builder for constructing an object Value,
// preallocating the given capacity.
func ObjectBuildWithCapacity(capacity int) ObjectBuilder {
	return &objectBuilderImpl{output: make(map[string]Value, capacity)}
}

func (b *objectBuilderImpl) Set(name string, value Value) ObjectBuilder {
	if b.copyOnWrite {
		newMap := make(map[string]Value, len(b.output)+1)
		for k, v := range b.output {
			newMap[k] = v
		}
		b.output = newMap
		b.copyOnWrite = false
	}
	b.output[name] = value
	return b
}

func (b *objectBuilderImpl) Build() Value {
	b.copyOnWrite = true
	return Value{valueType: ObjectType, objectValue: b.output}
}

// Type returns the ValueType of the Value.
func (v Value) Type() ValueType {
	return v.valueType
}

// IsNull returns true if the Value is a null.
func (v Value) IsNull() bool {
	return v.valueType == NullType
}

// IsBool returns true if the Value is a boolean.
func (v Value) IsBool() bool {
	return v.valueType == BoolType
}

// IsNumber returns true if the Value is numeric.
func (v Value) IsNumber() bool {
	return v.valueType == NumberType
}

// IsInt returns true if the Value is numeric and has no fractional component.
func (v Value) IsInt() bool {
	return v.valueType == NumberType && v.numberValue == float64(int(v.numberValue))
}

// IsString returns true if the Value is a string.
func (v Value) IsString() bool {
	return v.valueType == StringType
}

// BoolValue returns the Value as a boolean. If the Value is not a boolean, it returns false.
func (v Value) BoolValue() bool {
	return v.valueType == BoolType && v.boolValue
}

// IntValue returns the Value as an int, truncating any fractional component. If the Value
// is not numeric, it returns zero.
func (v Value) IntValue() int {
	if v.valueType == NumberType {
		return int(v.numberValue)
	}
	return 0
}

// Float64Value returns the Value as a float64. If the Value is not numeric, it returns zero.
func (v Value) Float64Value() float64 {
	if v.valueType == NumberType {
		return v.numberValue
	}
	return 0
}

// StringValue returns the Value as a string. If the Value is not a string, it returns an
// empty string; use JSONString if you want a JSON representation of any type.
func (v Value) StringValue() string {
	if v.valueType == StringType {
		return v.stringValue
	}
	return ""
}

// AsRaw returns the Value as a raw JSON fragment, serializing if necessary.
func (v Value) AsRaw() json.RawMessage {
	if v.valueType == RawType {
		return v.rawValue
	}
	bytes, err := json.Marshal(v)
	if err == nil {
		return json.RawMessage(bytes)
	}
	return nil
}

// AsArbitraryValue converts the Value to its closest equivalent Go type: nil, bool,
// float64, string, []interface{}, or map[string]interface{}.
func (v Value) AsArbitraryValue() interface{} {
	switch v.valueType {
	case NullType:
		return nil
	case BoolType:
		return v.boolValue
	case NumberType:
		return v.numberValue
	case StringType:
		return v.stringValue
	case ArrayType:
		ret := make([]interface{}, len(v.arrayValue))
		for i, element := range v.arrayValue {
			ret[i] = element.AsArbitraryValue()
		}
		return ret
	case ObjectType:
		ret := make(map[string]interface{}, len(v.objectValue))
		for key, element := range v.objectValue {
			ret[key] = element.AsArbitraryValue()
		}
		return ret
	case RawType:
		var ret interface{}
		_ = json.Unmarshal(v.rawValue, &ret)
		return ret
	}
	return nil
}

// AsPointer returns either a pointer to a copy of this Value, or nil if it is a null value.
func (v Value) AsPointer() *Value {
	if v.IsNull() {
		return nil
	}
	return &v
}

// Count returns the number of elements in an array or object. For all other types it
// returns zero.
func (v Value) Count() int {
	switch v.valueType {
	case ArrayType:
		return len(v.arrayValue)
	case ObjectType:
		return len(v.objectValue)
	}
	return 0
}

// GetByIndex gets an element of an array by index. It returns Null() if the value is not
// an array or the index is out of range.
func (v Value) GetByIndex(index int) Value {
	ret, _ := v.TryGetByIndex(index)
	return ret
}

// TryGetByIndex gets an element of an array by index, with a second return value of true
// if successful.
func (v Value) TryGetByIndex(index int) (Value, bool) {
	if v.valueType == ArrayType && index >= 0 && index < len(v.arrayValue) {
		return v.arrayValue[index], true
	}
	return Null(), false
}

// Keys returns the property names of an object value, sorted for determinacy. For all
// other types it returns nil.
func (v Value) Keys() []string {
	if v.valueType != ObjectType {
		return nil
	}
	ret := make([]string, 0, len(v.objectValue))
	for key := range v.objectValue {
		ret = append(ret, key)
	}
	sort.Strings(ret)
	return ret
}

// GetByKey gets a property of an object by name. It returns Null() if the value is not an
// object or the property does not exist.
func (v Value) GetByKey(name string) Value {
	ret, _ := v.TryGetByKey(name)
	return ret
}

// TryGetByKey gets a property of an object by name, with a second return value of true if
// the property exists.
func (v Value) TryGetByKey(name string) (Value, bool) {
	if v.valueType == ObjectType {
		ret, ok := v.objectValue[name]
		return ret, ok
	}
	return Null(), false
}

// Equal tests whether this Value is deeply equal to another.
func (v Value) Equal(other Value) bool {
	if v.valueType == RawType || other.valueType == RawType {
		// Raw values have to be parsed before they can be compared structurally.
		var left, right Value
		if json.Unmarshal(v.AsRaw(), &left) != nil || json.Unmarshal(other.AsRaw(), &right) != nil {
			return false
		}
		return left.Equal(right)
	}
	if v.valueType != other.valueType {
		return false
	}
	switch v.valueType {
	case NullType:
		return true
	case BoolType:
		return v.boolValue == other.boolValue
	case NumberType:
		return v.numberValue == other.numberValue
	case StringType:
		return v.stringValue == other.stringValue
	case ArrayType:
		if len(v.arrayValue) != len(other.arrayValue) {
			return false
		}
		for i, element := range v.arrayValue {
			if !element.Equal(other.arrayValue[i]) {
				return false
			}
		}
		return true
	case ObjectType:
		if len(v.objectValue) != len(other.objectValue) {
			return false
		}
		for key, element := range v.objectValue {
			otherElement, ok := other.objectValue[key]
			if !ok || !element.Equal(otherElement) {
				return false
			}
		}
		return true
	}
	return false
}

// String converts the value to a string representation: identical to StringValue for
// strings, otherwise the JSON representation. This is the fmt.Stringer method.
func (v Value) String() string {
	switch v.valueType {
	case StringType:
		return v.stringValue
	case NumberType:
		if v.IsInt() {
			return strconv.Itoa(int(v.numberValue))
		}
		return strconv.FormatFloat(v.numberValue, 'f', -1, 64)
	default:
		return v.JSONString()
	}
}
