package dao

import (
	"context"
	"iter"

	"go.mongodb.org/mongo-driver/mongo"
)

// Cursor is a forward-only, single-pass sequence of records matching a Find.
// Each element is decoded independently, so a malformed document surfaces as an
// error for that element only.
type Cursor[V any] struct {
	cur    *mongo.Cursor
	closed bool
}

func newCursor[V any](cur *mongo.Cursor) *Cursor[V] {
	return &Cursor[V]{cur: cur}
}

// Next advances to the next document. It returns false when the sequence is
// exhausted, the cursor is closed or the engine failed; check Err afterwards.
func (c *Cursor[V]) Next(ctx context.Context) bool {
	if c.closed {
		return false
	}
	return c.cur.Next(ctx)
}

// Decode decodes the document the cursor currently points at.
func (c *Cursor[V]) Decode() (V, error) {
	v, err := Decode[V](c.cur.Current)
	if err != nil {
		return v, storageError("find", err)
	}
	return v, nil
}

// Err returns the engine error that stopped iteration, if any.
func (c *Cursor[V]) Err() error {
	return storageError("find", c.cur.Err())
}

// Close releases the server-side cursor. It is safe to call more than once.
func (c *Cursor[V]) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	return storageError("close cursor", c.cur.Close(ctx))
}

// All yields every remaining record with its decode error, then any engine
// error, and closes the cursor. The sequence cannot be restarted.
func (c *Cursor[V]) All(ctx context.Context) iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		defer c.Close(ctx)
		for c.Next(ctx) {
			if !yield(c.Decode()) {
				return
			}
		}
		if err := c.Err(); err != nil {
			var zero V
			yield(zero, err)
		}
	}
}

// Collect drains the cursor, projecting every record through fn. It stops at
// the first decode or engine error and returns it without partial results.
func Collect[V any, R any](ctx context.Context, c *Cursor[V], fn func(V) R) ([]R, error) {
	out := []R{}
	for v, err := range c.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, fn(v))
	}
	return out, nil
}
