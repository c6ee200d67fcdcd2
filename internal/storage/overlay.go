package storage

import (
	"context"
	"sort"
)

// Overlay buffers writes on top of a Backend for the duration of one call.
// Reads see buffered writes first. Nothing reaches the backend until Flush,
// so dropping an Overlay discards every mutation it holds.
type Overlay struct {
	parent Backend
	writes map[string]Write
}

// NewOverlay creates an empty overlay over parent.
func NewOverlay(parent Backend) *Overlay {
	return &Overlay{
		parent: parent,
		writes: make(map[string]Write),
	}
}

// Get returns the buffered value for key, falling back to the backend.
func (o *Overlay) Get(ctx context.Context, key []byte) ([]byte, error) {
	if w, ok := o.writes[string(key)]; ok {
		if w.Delete {
			return nil, nil
		}
		return cloneBytes(w.Value), nil
	}
	return o.parent.Get(ctx, key)
}

// Set buffers a write.
func (o *Overlay) Set(_ context.Context, key, value []byte) error {
	if len(key) == 0 {
		return ErrInvalidInput
	}
	o.writes[string(key)] = Write{Key: cloneBytes(key), Value: cloneBytes(value)}
	return nil
}

// Delete buffers a deletion.
func (o *Overlay) Delete(_ context.Context, key []byte) error {
	if len(key) == 0 {
		return ErrInvalidInput
	}
	o.writes[string(key)] = Write{Key: cloneBytes(key), Delete: true}
	return nil
}

// Writes returns buffered mutations sorted by key.
func (o *Overlay) Writes() []Write {
	keys := make([]string, 0, len(o.writes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Write, 0, len(keys))
	for _, k := range keys {
		out = append(out, o.writes[k])
	}
	return out
}

// Len returns the number of buffered keys.
func (o *Overlay) Len() int {
	return len(o.writes)
}

// Flush applies all buffered writes to the backend in one batch and resets the overlay.
func (o *Overlay) Flush(ctx context.Context) error {
	if len(o.writes) == 0 {
		return nil
	}
	if err := o.parent.WriteBatch(ctx, o.Writes()); err != nil {
		return err
	}
	o.writes = make(map[string]Write)
	return nil
}

// Discard drops all buffered writes.
func (o *Overlay) Discard() {
	o.writes = make(map[string]Write)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Verify interface compliance at compile time.
var _ KVStore = (*Overlay)(nil)
