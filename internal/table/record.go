package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Header is the ordered, immutable field list of a table.
type Header struct {
	names []string
	index map[string]int
}

func NewHeader(names ...string) Header {
	h := Header{names: append([]string(nil), names...), index: make(map[string]int, len(names))}
	for i, n := range h.names {
		if _, dup := h.index[n]; !dup {
			h.index[n] = i
		}
	}
	return h
}

func (h Header) Names() []string { return append([]string(nil), h.names...) }
func (h Header) Len() int        { return len(h.names) }

// Index returns the position of name, or -1.
func (h Header) Index(name string) int {
	if i, ok := h.index[name]; ok {
		return i
	}
	return -1
}

// Append returns a new header with names added after the existing fields.
func (h Header) Append(names ...string) Header {
	out := make([]string, 0, len(h.names)+len(names))
	out = append(out, h.names...)
	return NewHeader(append(out, names...)...)
}

// Record is one table row; values are aligned to its header.
type Record struct {
	header Header
	values []string
}

// NewRecord pads missing trailing values with "". Extra values are an error.
func NewRecord(h Header, values []string) (Record, error) {
	if len(values) > h.Len() {
		return Record{}, fmt.Errorf("record has %d values, header has %d fields", len(values), h.Len())
	}
	vs := make([]string, h.Len())
	copy(vs, values)
	return Record{header: h, values: vs}, nil
}

func (r Record) Header() Header   { return r.header }
func (r Record) Len() int         { return len(r.values) }
func (r Record) Values() []string { return append([]string(nil), r.values...) }

func (r Record) Get(name string) (string, bool) {
	i := r.header.Index(name)
	if i < 0 {
		return "", false
	}
	return r.values[i], true
}

// Set replaces the value of an existing field.
func (r Record) Set(name, value string) error {
	i := r.header.Index(name)
	if i < 0 {
		return fmt.Errorf("unknown field %q", name)
	}
	r.values[i] = value
	return nil
}

// Extend copies the record onto h, which must start with r's fields, and
// fills the remaining fields from values.
func (r Record) Extend(h Header, values ...string) (Record, error) {
	if h.Len() != r.Len()+len(values) {
		return Record{}, fmt.Errorf("extend: header has %d fields, record %d + %d new", h.Len(), r.Len(), len(values))
	}
	vs := make([]string, 0, h.Len())
	vs = append(vs, r.values...)
	return Record{header: h, values: append(vs, values...)}, nil
}

// String renders the record as a field→value mapping in header order.
func (r Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range r.header.names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", strconv.Quote(n), strconv.Quote(r.values[i]))
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the record as an object keeping field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.header.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
