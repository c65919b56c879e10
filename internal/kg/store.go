// Package kg talks to the knowledge store and standardizes its results.
package kg

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is the knowledge-store contract: a finalized query in, standardized
// binding records (possibly empty) or an explicit error out.
type Store interface {
	Select(ctx context.Context, query string) ([]BindingRecord, error)
	ListSensorNames(ctx context.Context) ([]string, error)
	Close(ctx context.Context) error
}

// QueryError wraps any backend failure so callers get a stage-identified
// error instead of a raw driver one.
type QueryError struct {
	Backend string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("graph query execution failed (%s): %v", e.Backend, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// BindingRecord is one standardized result row. Field insertion order is
// preserved for display.
type BindingRecord struct {
	keys   []string
	values map[string]string
}

func NewBindingRecord() BindingRecord {
	return BindingRecord{values: make(map[string]string)}
}

func (r *BindingRecord) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r BindingRecord) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r BindingRecord) Keys() []string { return r.keys }

func (r BindingRecord) Len() int { return len(r.keys) }

// MarshalJSON emits fields in insertion order.
func (r BindingRecord) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range r.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}
