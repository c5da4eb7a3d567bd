package sensor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType tags the variant held by a Value.
type ValueType uint8

const (
	ValueNull ValueType = iota
	ValueNumber
	ValueBool
	ValueText
)

// Value is the payload of a reading: a number, a flag, a string, or nothing.
type Value struct {
	typ  ValueType
	num  float64
	flag bool
	text string
}

// Number wraps a numeric reading.
func Number(f float64) Value { return Value{typ: ValueNumber, num: f} }

// Bool wraps a boolean reading.
func Bool(b bool) Value { return Value{typ: ValueBool, flag: b} }

// Text wraps a string reading such as an RFID tag or an object label.
func Text(s string) Value { return Value{typ: ValueText, text: s} }

// Null is the empty value.
func Null() Value { return Value{} }

// Type returns the variant tag.
func (v Value) Type() ValueType { return v.typ }

// IsNull reports whether the value is missing.
func (v Value) IsNull() bool { return v.typ == ValueNull }

// Float returns the numeric form of v. Booleans map to 1 and 0. Text, null,
// NaN and infinities are not numeric.
func (v Value) Float() (float64, bool) {
	switch v.typ {
	case ValueNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return 0, false
		}
		return v.num, true
	case ValueBool:
		if v.flag {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// String renders the value for reasons and logs.
func (v Value) String() string {
	switch v.typ {
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.flag)
	case ValueText:
		return v.text
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.typ {
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueBool:
		return json.Marshal(v.flag)
	case ValueText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("sensor value: %w", err)
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("sensor value: %w", err)
		}
		*v = Text(s)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			// Objects and arrays are not readings; keep the batch alive.
			*v = Null()
			return nil
		}
		*v = Number(f)
	}
	return nil
}

// ParseValue converts a textual value (XML payloads carry everything as
// text) into the most specific variant.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Null()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	switch strings.ToLower(s) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	return Text(s)
}
