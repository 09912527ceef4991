package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/tarancss/eosapi/lib/entity"
	"github.com/tarancss/eosapi/lib/plan"
	"github.com/tarancss/eosapi/lib/query"
	"github.com/tarancss/eosapi/lib/store"
)

func newMock(mt *mtest.T) *Mongo {
	return NewWithClient(mt.Client, "eos", time.Second, nil)
}

func getPlan(t *testing.T, k entity.Kind, ident string) *plan.Plan {
	t.Helper()

	p, err := plan.Get(k, ident, query.Projection{}, nil)
	require.NoError(t, err)

	return p
}

func TestExecute(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	oid := primitive.NewObjectID()
	created := time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC)

	mt.Run("documents", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "eos.Blocks", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: oid},
				{Key: "block_num", Value: int64(42)},
				{Key: "createdAt", Value: primitive.NewDateTimeFromTime(created)},
				{Key: "transactions", Value: bson.A{
					bson.D{{Key: "_id", Value: oid}, {Key: "transaction_id", Value: "t1"}},
					nil,
				}},
			}))

		docs, err := newMock(mt).Execute(context.Background(), getPlan(t, entity.Blocks, "42"))
		require.NoError(t, err)
		require.Len(t, docs, 1)

		assert.Equal(t, oid.Hex(), docs[0]["_id"])
		assert.Equal(t, int64(42), docs[0]["block_num"])
		assert.Equal(t, created, docs[0]["createdAt"])
		assert.Equal(t, []interface{}{
			map[string]interface{}{"_id": oid.Hex(), "transaction_id": "t1"},
			nil,
		}, docs[0]["transactions"])
	})

	mt.Run("empty", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "eos.Accounts", mtest.FirstBatch))

		docs, err := newMock(mt).Execute(context.Background(), getPlan(t, entity.Accounts, "inita"))
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	mt.Run("not_found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "eos.Accounts", mtest.FirstBatch))

		_, err := newMock(mt).ExecuteOne(context.Background(), getPlan(t, entity.Accounts, "inita"))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	mt.Run("execution_error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 2, Name: "BadValue", Message: "unknown operator",
		}))

		_, err := newMock(mt).Execute(context.Background(), getPlan(t, entity.Accounts, "inita"))
		assert.ErrorIs(t, err, store.ErrQueryExecution)
		assert.NotErrorIs(t, err, store.ErrTimeout)
	})
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(context.DeadlineExceeded), store.ErrTimeout)
	assert.ErrorIs(t, classify(context.DeadlineExceeded), context.DeadlineExceeded)

	cause := errors.New("boom")
	assert.ErrorIs(t, classify(cause), store.ErrQueryExecution)
	assert.ErrorIs(t, classify(cause), cause)
}

func TestUsers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u := &store.User{Email: "Alice@Example.com", Password: "hash", Role: store.RoleUser}
		require.NoError(t, newMock(mt).CreateUser(context.Background(), u))
		assert.Len(t, u.ID, 24)
		assert.Equal(t, "alice@example.com", u.Email)
	})

	mt.Run("duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))

		err := newMock(mt).CreateUser(context.Background(), &store.User{Email: "a@b.c"})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	mt.Run("find_by_email", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "eos.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "email", Value: "a@b.c"},
			{Key: "password", Value: "hash"},
			{Key: "role", Value: "admin"},
		}))

		u, err := newMock(mt).FindUserByEmail(context.Background(), "A@B.C")
		require.NoError(t, err)
		assert.Equal(t, &store.User{ID: oid.Hex(), Email: "a@b.c", Password: "hash", Role: "admin"}, u)
	})

	mt.Run("find_missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "eos.users", mtest.FirstBatch))

		_, err := newMock(mt).FindUser(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	mt.Run("bad_id", func(mt *mtest.T) {
		_, err := newMock(mt).FindUser(context.Background(), "me")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	mt.Run("update", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		u := &store.User{ID: primitive.NewObjectID().Hex(), Email: "a@b.c"}
		require.NoError(t, newMock(mt).UpdateUser(context.Background(), u))
		assert.False(t, u.UpdatedAt.IsZero())
	})

	mt.Run("update_missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := newMock(mt).UpdateUser(context.Background(), &store.User{ID: primitive.NewObjectID().Hex()})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		require.NoError(t, newMock(mt).DeleteUser(context.Background(), primitive.NewObjectID().Hex()))

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		err := newMock(mt).DeleteUser(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestTokens(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("consume_refresh", func(mt *mtest.T) {
		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "token", Value: "u1.abc"},
			{Key: "userId", Value: "u1"},
			{Key: "userEmail", Value: "a@b.c"},
			{Key: "expires", Value: expires},
		}}))

		tok, err := newMock(mt).ConsumeRefreshToken(context.Background(), "a@b.c", "u1.abc")
		require.NoError(t, err)
		assert.Equal(t, "u1", tok.UserID)
		assert.Equal(t, expires, tok.Expires.UTC())
	})

	mt.Run("consume_refresh_missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := newMock(mt).ConsumeRefreshToken(context.Background(), "a@b.c", "u1.abc")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	mt.Run("find_reset", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "eos.resettokens", mtest.FirstBatch, bson.D{
			{Key: "resetToken", Value: "u1.r"},
			{Key: "userEmail", Value: "a@b.c"},
		}))

		tok, err := newMock(mt).FindResetToken(context.Background(), "a@b.c")
		require.NoError(t, err)
		assert.Equal(t, "u1.r", tok.Token)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		assert.NoError(t, newMock(mt).DeleteTokens(context.Background(), "u1"))
	})
}

func TestMirrorWrites(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("cursor", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "eos.cursors", mtest.FirstBatch, bson.D{
			{Key: "chain", Value: "eos"},
			{Key: "block", Value: int64(208)},
			{Key: "ids", Value: bson.A{"first", "second", "third"}},
			{Key: "idx", Value: int32(1)},
		}))

		c, err := newMock(mt).LoadCursor(context.Background(), "eos")
		require.NoError(t, err)
		assert.Equal(t, store.Cursor{Chain: "eos", Block: 208, Ids: []string{"first", "second", "third"}, Idx: 1}, c)

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		assert.NoError(t, newMock(mt).SaveCursor(context.Background(), c))
	})

	mt.Run("no_cursor", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "eos.cursors", mtest.FirstBatch))

		_, err := newMock(mt).LoadCursor(context.Background(), "eos")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	mt.Run("block", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}), // action
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: primitive.NewObjectID()}}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}), // block
		)

		err := newMock(mt).SaveBlock(context.Background(), store.ChainBlock{
			Block:        store.Block{BlockNum: 42, BlockID: "b42"},
			Transactions: []store.Transaction{{TransactionID: "t1"}},
			Actions:      []store.Action{{TransactionID: "t1", Name: "transfer"}},
		})
		assert.NoError(t, err)
	})

	mt.Run("block_error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue"}))

		err := newMock(mt).SaveBlock(context.Background(), store.ChainBlock{
			Block:   store.Block{BlockNum: 42},
			Actions: []store.Action{{TransactionID: "t1"}},
		})
		assert.ErrorIs(t, err, store.ErrQueryExecution)
	})

	mt.Run("account_and_request", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		m := newMock(mt)
		assert.NoError(t, m.SaveAccount(context.Background(), store.Account{Name: "inita", EOSBalance: "1.0000 EOS"}))
		assert.NoError(t, m.SaveRequest(context.Background(), store.FaucetRequest{EOSAccount: "inita"}))
	})
}
