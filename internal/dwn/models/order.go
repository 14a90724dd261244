package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// orderedObject builds a JSON object with keys in write order.
type orderedObject struct {
	buf bytes.Buffer
}

func (o *orderedObject) write(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	o.writeRaw(key, raw)
	return nil
}

func (o *orderedObject) writeRaw(key string, raw []byte) {
	if o.buf.Len() == 0 {
		o.buf.WriteByte('{')
	} else {
		o.buf.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	o.buf.Write(k)
	o.buf.WriteByte(':')
	o.buf.Write(raw)
}

func (o *orderedObject) close() []byte {
	if o.buf.Len() == 0 {
		return []byte("{}")
	}
	o.buf.WriteByte('}')
	return o.buf.Bytes()
}

// marshalOrdered writes m with keys in order, then any remaining keys sorted.
// A nil map is written as null.
func marshalOrdered[V any](m map[string]V, order []string) ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var obj orderedObject
	for _, key := range orderedKeys(m, order) {
		if err := obj.write(key, m[key]); err != nil {
			return nil, err
		}
	}
	return obj.close(), nil
}

// orderedKeys lists the keys of m following order; keys missing from order
// follow in sorted order.
func orderedKeys[V any](m map[string]V, order []string) []string {
	keys := make([]string, 0, len(m))
	for _, key := range order {
		if _, ok := m[key]; ok && !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	for _, key := range sortedKeys(m) {
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// objectKeys returns the distinct keys of a JSON object in document order.
// Empty input and null yield no keys.
func objectKeys(data []byte) ([]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key")
		}
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// documentOrder drops an order that matches sorted order, so decoded and
// code-built definitions compare equal.
func documentOrder(keys []string) []string {
	if slices.IsSorted(keys) {
		return nil
	}
	return keys
}
