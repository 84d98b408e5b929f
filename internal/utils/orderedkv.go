package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// OrderedKV is one entry of an OrderedKVMap.
type OrderedKV[T any] struct {
	Key   string
	Value T
}

// OrderedKVMap is a JSON object whose keys keep their insertion order on the
// wire in both directions.
type OrderedKVMap[T any] struct {
	entries []OrderedKV[T]
	index   map[string]int
}

// Set inserts key or overwrites it in place.
func (om *OrderedKVMap[T]) Set(key string, value T) {
	if om.index == nil {
		om.index = map[string]int{}
	}
	if i, ok := om.index[key]; ok {
		om.entries[i].Value = value
		return
	}
	om.index[key] = len(om.entries)
	om.entries = append(om.entries, OrderedKV[T]{Key: key, Value: value})
}

func (om *OrderedKVMap[T]) Get(key string) (T, bool) {
	var zero T
	i, ok := om.index[key]
	if !ok {
		return zero, false
	}
	return om.entries[i].Value, true
}

func (om *OrderedKVMap[T]) Keys() []string {
	keys := make([]string, len(om.entries))
	for i, e := range om.entries {
		keys[i] = e.Key
	}
	return keys
}

func (om *OrderedKVMap[T]) Len() int {
	return len(om.entries)
}

// SortBy reorders the entries by rank(key), keeping ties in insertion order.
func (om *OrderedKVMap[T]) SortBy(rank func(key string) int) {
	sort.SliceStable(om.entries, func(i, j int) bool {
		return rank(om.entries[i].Key) < rank(om.entries[j].Key)
	})
	for i, e := range om.entries {
		om.index[e.Key] = i
	}
}

func (om OrderedKVMap[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range om.entries {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valueBytes, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (om *OrderedKVMap[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ordered map: expected object, got %v", tok)
	}

	om.entries = nil
	om.index = map[string]int{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("ordered map: expected key, got %v", tok)
		}

		var value T
		if err := dec.Decode(&value); err != nil {
			return err
		}
		om.Set(key, value)
	}

	_, err = dec.Token()
	return err
}
