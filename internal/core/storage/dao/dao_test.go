package dao

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/sdastore/pkg/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockDao(mt *mtest.T) *Dao[string, widget] {
	return New[string, widget](mt.Coll, "id")
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestDao_Ping(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("ok", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(t, newMockDao(mt).Ping(context.Background()))
	})

	mt.Run("auth failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    18,
			Name:    "AuthenticationFailed",
			Message: "auth failed",
		}))
		err := newMockDao(mt).Ping(context.Background())
		assert.ErrorIs(t, err, model.ErrConnection)
	})
}

func TestDao_EnsureUniqueIndex(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("created", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(t, newMockDao(mt).EnsureUniqueIndex(context.Background(), "id"))
	})

	mt.Run("duplicate data", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Name:    "DuplicateKey",
			Message: "E11000 duplicate key error collection: test index: id_1",
		}))
		err := newMockDao(mt).EnsureUniqueIndex(context.Background(), "id")
		assert.ErrorIs(t, err, model.ErrSetup)
	})
}

func TestDao_GetByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "id", Value: "w1"}, {Key: "name", Value: "one"}, {Key: "tags", Value: bson.A{"a"}}}))

		got, err := newMockDao(mt).GetByID(context.Background(), "w1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, widget{ID: "w1", Name: "one", Tags: []string{"a"}}, *got)
	})

	mt.Run("missing is not an error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		got, err := newMockDao(mt).GetByID(context.Background(), "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	mt.Run("malformed document", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "id", Value: "w1"}}))

		_, err := newMockDao(mt).GetByID(context.Background(), "w1")
		assert.ErrorIs(t, err, model.ErrDecoding)
	})

	mt.Run("engine failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "unknown operator",
		}))

		_, err := newMockDao(mt).GetByID(context.Background(), "w1")
		assert.ErrorIs(t, err, model.ErrStorage)
	})
}

func TestDao_Find(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("lazy across batches", func(mt *mtest.T) {
		ns := namespace(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(42, ns, mtest.FirstBatch,
				bson.D{{Key: "id", Value: "w1"}, {Key: "name", Value: "one"}}),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch,
				bson.D{{Key: "id", Value: "w2"}, {Key: "name", Value: "two"}}),
		)

		ctx := context.Background()
		cur, err := newMockDao(mt).Find(ctx, nil)
		require.NoError(t, err)

		var ids []string
		for w, err := range cur.All(ctx) {
			require.NoError(t, err)
			ids = append(ids, w.ID)
		}
		assert.Equal(t, []string{"w1", "w2"}, ids)

		// single pass: a drained cursor yields nothing more
		for range cur.All(ctx) {
			t.Fatal("cursor must not restart")
		}
	})

	mt.Run("per element decode errors", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "id", Value: "w1"}, {Key: "name", Value: "one"}},
			bson.D{{Key: "id", Value: "broken"}},
			bson.D{{Key: "id", Value: "w3"}, {Key: "name", Value: "three"}},
		))

		ctx := context.Background()
		cur, err := newMockDao(mt).Find(ctx, bson.D{})
		require.NoError(t, err)

		var ok []string
		var failed int
		for w, err := range cur.All(ctx) {
			if err != nil {
				assert.ErrorIs(t, err, model.ErrDecoding)
				failed++
				continue
			}
			ok = append(ok, w.ID)
		}
		assert.Equal(t, []string{"w1", "w3"}, ok)
		assert.Equal(t, 1, failed)
	})

	mt.Run("collect is fail fast", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "id", Value: "w1"}, {Key: "name", Value: "one"}},
			bson.D{{Key: "id", Value: "broken"}},
		))

		ctx := context.Background()
		cur, err := newMockDao(mt).Find(ctx, nil)
		require.NoError(t, err)

		names, err := Collect(ctx, cur, func(w widget) string { return w.Name })
		assert.ErrorIs(t, err, model.ErrDecoding)
		assert.Nil(t, names)
	})

	mt.Run("collect empty collection", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		ctx := context.Background()
		cur, err := newMockDao(mt).Find(ctx, nil)
		require.NoError(t, err)

		names, err := Collect(ctx, cur, func(w widget) string { return w.Name })
		require.NoError(t, err)
		assert.NotNil(t, names)
		assert.Empty(t, names)
	})

	mt.Run("engine failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    50,
			Name:    "MaxTimeMSExpired",
			Message: "operation exceeded time limit",
		}))

		_, err := newMockDao(mt).Find(context.Background(), nil)
		assert.ErrorIs(t, err, model.ErrStorage)
	})
}

func TestDao_ModifyByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing key is a no-op", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		u, err := Set("name", "renamed")
		require.NoError(t, err)
		assert.NoError(t, newMockDao(mt).ModifyByID(context.Background(), "nope", u))
	})

	mt.Run("empty update is rejected locally", func(mt *mtest.T) {
		err := newMockDao(mt).ModifyByID(context.Background(), "w1", Update{})
		assert.ErrorIs(t, err, model.ErrEncoding)
	})

	mt.Run("pipeline update is sent as an array", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		u, err := ReplaceElement("tags", "id", "t1", widget{ID: "t1", Name: "one"})
		require.NoError(t, err)
		require.NoError(t, newMockDao(mt).ModifyByID(context.Background(), "w1", u))

		evt := mt.GetStartedEvent()
		require.NotNil(t, evt)
		assert.Equal(t, "update", evt.CommandName)
		stmt := evt.Command.Lookup("updates", "0")
		assert.Equal(t, bson.TypeArray, stmt.Document().Lookup("u").Type)
		assert.Equal(t, "w1", stmt.Document().Lookup("q", "id").StringValue())
		upsert, _ := stmt.Document().Lookup("upsert").BooleanOK()
		assert.False(t, upsert)
	})

	mt.Run("mixed update forms are rejected locally", func(mt *mtest.T) {
		set, err := Set("name", "renamed")
		require.NoError(t, err)
		replace, err := ReplaceElement("tags", "id", "t1", widget{ID: "t1", Name: "one"})
		require.NoError(t, err)

		err = newMockDao(mt).ModifyByID(context.Background(), "w1", set.And(replace))
		assert.ErrorIs(t, err, model.ErrEncoding)
		assert.Nil(t, mt.GetStartedEvent())
	})

	mt.Run("engine failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad update",
		}))

		u, err := Push("tags", "x")
		require.NoError(t, err)
		err = newMockDao(mt).ModifyByID(context.Background(), "w1", u)
		assert.ErrorIs(t, err, model.ErrStorage)
	})
}

func TestDao_ModisertByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upserts", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "oid"}}}},
		))

		u, err := Set("name", "one")
		require.NoError(t, err)
		assert.NoError(t, newMockDao(mt).ModisertByID(context.Background(), "w1", u))
	})

	mt.Run("uniqueness violation", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		u, err := Set("name", "one")
		require.NoError(t, err)
		err = newMockDao(mt).ModisertByID(context.Background(), "w1", u)
		assert.ErrorIs(t, err, model.ErrConflict)
		assert.NotErrorIs(t, err, model.ErrStorage)
	})
}

func TestDao_Count(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("counts", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: int32(3)}}))

		n, err := newMockDao(mt).Count(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}

func TestDao_CanceledContext(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get", func(mt *mtest.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newMockDao(mt).GetByID(ctx, "w1")
		assert.ErrorIs(t, err, model.ErrCanceled)
	})
}

func TestDao_UniqueIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("lists single field unique indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "v", Value: 2}, {Key: "key", Value: bson.D{{Key: "_id", Value: 1}}}, {Key: "name", Value: "_id_"}},
			bson.D{{Key: "v", Value: 2}, {Key: "key", Value: bson.D{{Key: "id", Value: 1}}}, {Key: "name", Value: "id_1"}, {Key: "unique", Value: true}},
			bson.D{{Key: "v", Value: 2}, {Key: "key", Value: bson.D{{Key: "a", Value: 1}, {Key: "b", Value: 1}}}, {Key: "name", Value: "a_1_b_1"}, {Key: "unique", Value: true}},
			bson.D{{Key: "v", Value: 2}, {Key: "key", Value: bson.D{{Key: "name", Value: 1}}}, {Key: "name", Value: "name_1"}},
		))

		fields, err := newMockDao(mt).UniqueIndexes(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"id"}, fields)
		assert.Equal(t, "id", newMockDao(mt).KeyField())
	})

	mt.Run("engine failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized to list indexes",
		}))

		_, err := newMockDao(mt).UniqueIndexes(context.Background())
		assert.ErrorIs(t, err, model.ErrSetup)
	})
}

func TestDao_CanceledPing(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("ping", func(mt *mtest.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := newMockDao(mt).Ping(ctx)
		assert.ErrorIs(t, err, model.ErrCanceled)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, model.ErrConnection)
	})
}
