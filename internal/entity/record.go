package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one parsed invoice: an ordered mapping from field name to value.
// A nil value means the field is absent, which is distinct from an empty string.
// The zero value is an empty record ready to use.
type Record struct {
	keys   []string
	values map[string]*string
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: map[string]*string{}}
}

// Set stores v under name, keeping the position of an existing key.
func (r *Record) Set(name string, v *string) {
	if r.values == nil {
		r.values = map[string]*string{}
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = v
}

// SetString stores a present value.
func (r *Record) SetString(name, v string) {
	r.Set(name, &v)
}

// SetAbsent stores an explicit absent value.
func (r *Record) SetAbsent(name string) {
	r.Set(name, nil)
}

// Get returns the raw value and whether the key exists at all.
func (r *Record) Get(name string) (*string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Value returns the value and true when the field is present.
func (r *Record) Value(name string) (string, bool) {
	v := r.values[name]
	if v == nil {
		return "", false
	}
	return *v, true
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields, present or absent.
func (r *Record) Len() int { return len(r.keys) }

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := NewRecord()
	for _, k := range r.keys {
		if v := r.values[k]; v != nil {
			c.SetString(k, *v)
		} else {
			c.SetAbsent(k)
		}
	}
	return c
}

// Equal compares keys, order and values.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if len(r.keys) != len(o.keys) {
		return false
	}
	for i, k := range r.keys {
		if o.keys[i] != k {
			return false
		}
		a, b := r.values[k], o.values[k]
		if (a == nil) != (b == nil) || (a != nil && *a != *b) {
			return false
		}
	}
	return true
}

// MarshalJSON writes an object in key order; absent fields become null.
// Characters such as & and < are written as is.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1) // Encode ends with a newline
		buf.WriteByte(':')
		if err := enc.Encode(r.values[k]); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of string or null members, preserving order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	*r = Record{values: map[string]*string{}}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var v *string
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record: field %q: %w", key, err)
		}
		r.Set(key, v)
	}
	_, err = dec.Token()
	return err
}
