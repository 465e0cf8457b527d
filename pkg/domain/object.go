package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is a single key/value pair of an Object.
type Field struct {
	Key   string
	Value any
}

// Object is a JSON object that keeps its keys in source order. Nested objects
// decode to Object, arrays to []any and numbers to json.Number.
type Object struct {
	fields []Field
}

func NewObject(fields ...Field) Object {
	return Object{fields: fields}
}

func (o Object) Len() int {
	return len(o.fields)
}

// Fields returns a copy of the pairs in source order.
func (o Object) Fields() []Field {
	out := make([]Field, len(o.fields))
	copy(out, o.fields)
	return out
}

func (o Object) Get(key string) (any, bool) {
	for _, f := range o.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value under key when it is a JSON string.
func (o Object) String(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// UnmarshalJSON decodes a JSON object. Any other JSON value decodes to an
// empty Object.
func (o *Object) UnmarshalJSON(data []byte) error {
	o.fields = nil
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading object: %w", err)
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("reading value of %q: %w", key, err)
		}
		value, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("decoding value of %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: value})
	}

	o.fields = fields
	return nil
}

func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding value of %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	switch raw[0] {
	case '{':
		var obj Object
		if err := obj.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
