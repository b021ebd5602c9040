package domain

import (
	"bytes"
	"encoding/json"
)

// Field is one named cell of a FlatRow. Value is nil, string, int64,
// float64 or bool.
type Field struct {
	Name  string
	Value any
}

// FlatRow is the fixed-schema representation of one node for one cycle.
// Field order is the column order.
type FlatRow []Field

func (r FlatRow) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

func (r FlatRow) Values() []any {
	values := make([]any, len(r))
	for i, f := range r {
		values[i] = f.Value
	}
	return values
}

func (r FlatRow) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the row as an object whose keys keep column order.
func (r FlatRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
