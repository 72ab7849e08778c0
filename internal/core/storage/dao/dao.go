// Package dao provides a typed, key-indexed view over a single MongoDB collection.
//
// A Dao is the only code that talks to its collection. It is safe for concurrent
// use: the underlying *mongo.Collection is goroutine-safe and the Dao adds no
// state of its own. Every method blocks until the engine answers; callers bound
// that with the context they pass in. Nothing is retried internally.
package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/syntrixbase/sdastore/pkg/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Dao stores documents of shape V keyed by a unique field of type K.
type Dao[K any, V any] struct {
	coll     *mongo.Collection
	keyField string
}

// New wraps coll. keyField is the document field holding the primary key.
func New[K any, V any](coll *mongo.Collection, keyField string) *Dao[K, V] {
	return &Dao[K, V]{
		coll:     coll,
		keyField: keyField,
	}
}

// KeyField returns the name of the primary key field.
func (d *Dao[K, V]) KeyField() string {
	return d.keyField
}

// Ping checks that the backing deployment is reachable.
func (d *Dao[K, V]) Ping(ctx context.Context) error {
	if err := d.coll.Database().Client().Ping(ctx, nil); err != nil {
		return connectionError(err)
	}
	return nil
}

// EnsureUniqueIndex declares a uniqueness constraint on field. Creating an index
// that already exists with the same definition is a no-op on the server.
func (d *Dao[K, V]) EnsureUniqueIndex(ctx context.Context, field string) error {
	_, err := d.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return setupError(field, err)
	}
	return nil
}

// UniqueIndexes returns the fields carrying a single-field unique index, in the
// order the engine lists them.
func (d *Dao[K, V]) UniqueIndexes(ctx context.Context) ([]string, error) {
	cur, err := d.coll.Indexes().List(ctx)
	if err != nil {
		return nil, listError(err)
	}
	defer cur.Close(context.WithoutCancel(ctx))

	fields := []string{}
	for cur.Next(ctx) {
		var spec struct {
			Key    bson.D `bson:"key"`
			Unique bool   `bson:"unique"`
		}
		if err := cur.Decode(&spec); err != nil {
			return nil, listError(err)
		}
		if spec.Unique && len(spec.Key) == 1 {
			fields = append(fields, spec.Key[0].Key)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, listError(err)
	}
	return fields, nil
}

// GetByID returns the document with the given key, or nil if there is none.
func (d *Dao[K, V]) GetByID(ctx context.Context, key K) (*V, error) {
	filter, err := d.keyFilter(key)
	if err != nil {
		return nil, storageError("get by id", err)
	}
	return d.Get(ctx, filter)
}

// Get returns the first document matching filter, or nil if there is none.
func (d *Dao[K, V]) Get(ctx context.Context, filter bson.D) (*V, error) {
	raw, err := d.coll.FindOne(ctx, nonNil(filter)).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storageError("get", err)
	}
	v, err := Decode[V](raw)
	if err != nil {
		return nil, storageError("get", err)
	}
	return &v, nil
}

// Find returns a lazy cursor over every document matching filter. An empty or nil
// filter scans the whole collection in the engine's natural order.
func (d *Dao[K, V]) Find(ctx context.Context, filter bson.D) (*Cursor[V], error) {
	cur, err := d.coll.Find(ctx, nonNil(filter))
	if err != nil {
		return nil, storageError("find", err)
	}
	return newCursor[V](cur), nil
}

// Count returns the number of documents matching filter.
func (d *Dao[K, V]) Count(ctx context.Context, filter bson.D) (int64, error) {
	n, err := d.coll.CountDocuments(ctx, nonNil(filter))
	if err != nil {
		return 0, storageError("count", err)
	}
	return n, nil
}

// ModifyByID applies u to the document with the given key. Modifying a key that
// has no document matches nothing and is not an error.
func (d *Dao[K, V]) ModifyByID(ctx context.Context, key K, u Update) error {
	return d.update(ctx, "modify by id", key, u, options.Update())
}

// ModisertByID applies u to the document with the given key, creating it with the
// key and the updated fields if it does not exist yet.
func (d *Dao[K, V]) ModisertByID(ctx context.Context, key K, u Update) error {
	return d.update(ctx, "modisert by id", key, u, options.Update().SetUpsert(true))
}

func (d *Dao[K, V]) update(ctx context.Context, op string, key K, u Update, opts *options.UpdateOptions) error {
	if u.IsEmpty() {
		return fmt.Errorf("%s: %w: empty update", op, model.ErrEncoding)
	}
	expr, err := u.expression()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, model.ErrEncoding, err)
	}
	filter, err := d.keyFilter(key)
	if err != nil {
		return storageError(op, err)
	}
	if _, err := d.coll.UpdateOne(ctx, filter, expr, opts); err != nil {
		return storageError(op, err)
	}
	return nil
}

func (d *Dao[K, V]) keyFilter(key K) (bson.D, error) {
	rv, err := EncodeKey(key)
	if err != nil {
		return nil, err
	}
	return bson.D{{Key: d.keyField, Value: rv}}, nil
}

func nonNil(filter bson.D) bson.D {
	if filter == nil {
		return bson.D{}
	}
	return filter
}
