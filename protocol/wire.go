package protocol

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// marshal is json.Marshal without HTML escaping. The server emits '<', '>'
// and '&' verbatim and frames must match it byte for byte.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func isNull(raw []byte) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// List is a JSON array that is never written as null. An empty or nil List
// encodes as [] and decodes back to nil; a JSON null is rejected.
type List[T any] []T

func (l List[T]) MarshalJSON() ([]byte, error) {
	if len(l) == 0 {
		return []byte("[]"), nil
	}
	return marshal([]T(l))
}

func (l *List[T]) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return errors.New("expected an array, got null")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if len(items) == 0 {
		*l = nil
		return nil
	}
	elem := reflect.TypeFor[T]()
	out := make(List[T], len(items))
	for i, item := range items {
		if err := checkFields(item, elem); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
		if err := json.Unmarshal(item, &out[i]); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	*l = out
	return nil
}

// Binary is an opaque byte payload. It is written as an array of byte values
// (the server's format) and also accepted as a string on input.
type Binary []byte

func (b Binary) MarshalJSON() ([]byte, error) {
	out := make([]byte, 0, len(b)*4+2)
	out = append(out, '[')
	for i, v := range b {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(v), 10)
	}
	return append(out, ']'), nil
}

func (b *Binary) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return errors.New("expected bytes, got null")
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = nilIfEmpty(Binary(s))
		return nil
	}
	var values []uint16
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	out := make(Binary, len(values))
	for i, v := range values {
		if v > 0xFF {
			return fmt.Errorf("byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = nilIfEmpty(out)
	return nil
}

func nilIfEmpty(b Binary) Binary {
	if len(b) == 0 {
		return nil
	}
	return b
}

var (
	jsonUnmarshaler = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()
	rawMessage      = reflect.TypeFor[json.RawMessage]()
)

// selfDecoding types validate their own input.
func selfDecoding(t reflect.Type) bool {
	p := reflect.PointerTo(t)
	return t.Implements(jsonUnmarshaler) || p.Implements(jsonUnmarshaler) ||
		t.Implements(textUnmarshaler) || p.Implements(textUnmarshaler)
}

type wireField struct {
	name     string
	typ      reflect.Type
	required bool
}

var fieldCache sync.Map // reflect.Type -> []wireField

// wireFields lists the JSON fields of a struct, flattening embedded structs.
// A field is optional when it is a pointer (absent means none) or carries
// the `wire:"default"` tag (absent means the zero value).
func wireFields(t reflect.Type) []wireField {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]wireField)
	}
	var fields []wireField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		if f.Anonymous && tag == "" && f.Type.Kind() == reflect.Struct {
			fields = append(fields, wireFields(f.Type)...)
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		fields = append(fields, wireField{
			name:     name,
			typ:      f.Type,
			required: f.Type.Kind() != reflect.Pointer && f.Tag.Get("wire") != "default",
		})
	}
	fieldCache.Store(t, fields)
	return fields
}

// checkFields enforces what encoding/json does not: required fields must be
// present and non-null, keys must match field names exactly, and structs
// must not be null. Types with their own decoders are trusted to validate
// their contents.
func checkFields(raw json.RawMessage, t reflect.Type) error {
	if selfDecoding(t) {
		return nil
	}
	switch t.Kind() {
	case reflect.Pointer:
		if isNull(raw) {
			return nil
		}
		return checkFields(raw, t.Elem())
	case reflect.Struct:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return err
		}
		if obj == nil {
			return errors.New("expected an object, got null")
		}
		fields := wireFields(t)
		if err := checkKeyCase(obj, fields); err != nil {
			return err
		}
		for _, f := range fields {
			v, ok := obj[f.name]
			if !ok {
				if f.required {
					return fmt.Errorf("missing field %q", f.name)
				}
				continue
			}
			// json.RawMessage carries arbitrary JSON, null included
			if f.required && f.typ != rawMessage && isNull(v) {
				return fmt.Errorf("field %q: null", f.name)
			}
			if err := checkFields(v, f.typ); err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
		}
	}
	return nil
}

// checkKeyCase rejects keys that name a field in a different case.
// encoding/json would accept them, and with both spellings present the
// last one would win.
func checkKeyCase(obj map[string]json.RawMessage, fields []wireField) error {
	for key := range obj {
		for _, f := range fields {
			if key != f.name && strings.EqualFold(key, f.name) {
				return fmt.Errorf("field %q: key must be spelled %q", key, f.name)
			}
		}
	}
	return nil
}

// decodeStrict validates raw against T's wire rules and then decodes it.
func decodeStrict(raw json.RawMessage, out any) error {
	t := reflect.TypeOf(out).Elem()
	if err := checkFields(raw, t); err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Char is a single Unicode scalar, written as a one-character string.
type Char rune

func (c Char) MarshalJSON() ([]byte, error) {
	return marshal(string(rune(c)))
}

func (c *Char) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return fmt.Errorf("expected a single character, got %q", s)
	}
	*c = Char(runes[0])
	return nil
}
