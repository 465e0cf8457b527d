package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type OutputKind int

const (
	OutputAbsent OutputKind = iota
	OutputString
	OutputList
	OutputMap
	OutputScalar
)

// Output is the polymorphic "output" field of a prediction: absent, a single
// URL string, an ordered list, or a map of named values.
type Output struct {
	kind   OutputKind
	str    string
	list   []any
	fields Object
	raw    json.RawMessage
}

func StringOutput(s string) Output {
	return Output{kind: OutputString, str: s}
}

func ListOutput(items ...any) Output {
	return Output{kind: OutputList, list: items}
}

func MapOutput(fields ...Field) Output {
	return Output{kind: OutputMap, fields: NewObject(fields...)}
}

func (o Output) Kind() OutputKind {
	return o.kind
}

// Present reports whether the output carries anything worth downloading.
func (o Output) Present() bool {
	switch o.kind {
	case OutputAbsent:
		return false
	case OutputString:
		return o.str != ""
	case OutputScalar:
		s := string(o.raw)
		return s != "false" && s != "0"
	default:
		return true
	}
}

// URLs returns the candidate download URLs in a stable order. Lists yield
// every string element; maps yield string values with an http(s) scheme.
func (o Output) URLs() []string {
	switch o.kind {
	case OutputString:
		if o.str == "" {
			return nil
		}
		return []string{o.str}
	case OutputList:
		var urls []string
		for _, item := range o.list {
			if s, ok := item.(string); ok {
				urls = append(urls, s)
			}
		}
		return urls
	case OutputMap:
		var urls []string
		for _, f := range o.fields.fields {
			if s, ok := f.Value.(string); ok && IsHTTPURL(s) {
				urls = append(urls, s)
			}
		}
		return urls
	default:
		return nil
	}
}

func (o *Output) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*o = Output{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding string output: %w", err)
		}
		*o = StringOutput(s)
	case '[':
		v, err := decodeValue(data)
		if err != nil {
			return fmt.Errorf("decoding list output: %w", err)
		}
		*o = Output{kind: OutputList, list: v.([]any)}
	case '{':
		var obj Object
		if err := obj.UnmarshalJSON(data); err != nil {
			return fmt.Errorf("decoding map output: %w", err)
		}
		*o = Output{kind: OutputMap, fields: obj}
	default:
		*o = Output{kind: OutputScalar, raw: append(json.RawMessage(nil), data...)}
	}
	return nil
}

func (o Output) MarshalJSON() ([]byte, error) {
	switch o.kind {
	case OutputString:
		return json.Marshal(o.str)
	case OutputList:
		return json.Marshal(o.list)
	case OutputMap:
		return o.fields.MarshalJSON()
	case OutputScalar:
		return o.raw, nil
	default:
		return []byte("null"), nil
	}
}

func IsHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http")
}
