package secrets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Record is the key/value blob stored as one secret's string value: a flat
// JSON object. Key order and the raw encoding of every value are kept, so a
// rewrite changes only the key that was set.
type Record struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: map[string]json.RawMessage{}}
}

// ParseRecord decodes a secret string into a Record. The input must be a
// single JSON object. A repeated key keeps its first position and its last
// value.
func ParseRecord(s string) (*Record, error) {
	dec := json.NewDecoder(strings.NewReader(s))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse secret record: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("parse secret record: not a JSON object")
	}

	r := NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse secret record: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("parse secret record: unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse secret record: value of %q: %w", key, err)
		}
		r.put(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse secret record: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("parse secret record: trailing data after object")
	}
	return r, nil
}

func (r *Record) put(key string, raw json.RawMessage) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = raw
}

// Keys returns the record's keys in stored order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of keys.
func (r *Record) Len() int { return len(r.keys) }

// Get returns the value of key. String values are returned unquoted; any
// other JSON value is returned as its raw text. A missing key and an explicit
// null are both reported as absent.
func (r *Record) Get(key string) (string, bool) {
	raw, ok := r.values[key]
	if !ok {
		return "", false
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, true
	}
	return string(trimmed), true
}

// Set stores value as a JSON string under key, appending the key when new.
func (r *Record) Set(key, value string) {
	r.put(key, encodeString(value))
}

// MarshalJSON encodes the record as a JSON object in stored key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.Write(encodeString(key))
		buf.WriteString(": ")
		buf.Write(bytes.TrimSpace(r.values[key]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String returns the JSON encoding of the record.
func (r *Record) String() string {
	b, _ := r.MarshalJSON()
	return string(b)
}

func encodeString(s string) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}
