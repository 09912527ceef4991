package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarancss/eosapi/lib/entity"
	"github.com/tarancss/eosapi/lib/store"
)

// LoadCursor loads from db the mirror cursor of chain.
func (m *Mongo) LoadCursor(ctx context.Context, chain string) (c store.Cursor, err error) {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	err = classify(m.db.Collection(cursors).FindOne(ctx, bson.D{{Key: "chain", Value: chain}}).Decode(&c))

	return
}

// SaveCursor saves to db the mirror cursor.
func (m *Mongo) SaveCursor(ctx context.Context, c store.Cursor) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	_, err := m.db.Collection(cursors).UpdateOne(ctx,
		bson.D{{Key: "chain", Value: c.Chain}}, // filter
		bson.D{ // update
			{
				Key: "$set", Value: bson.D{
					{Key: "block", Value: c.Block},
					{Key: "ids", Value: c.Ids},
					{Key: "idx", Value: c.Idx},
				},
			},
		},
		options.Update().SetUpsert(true))

	return classify(err)
}

// upsert sets doc on the record matching filter, stamping createdAt on insert.
func upsert(doc interface{}, now time.Time) (bson.D, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var set bson.D
	if err = bson.Unmarshal(raw, &set); err != nil {
		return nil, err
	}

	return bson.D{
		{Key: "$set", Value: append(set, bson.E{Key: "updatedAt", Value: now})},
		{Key: "$setOnInsert", Value: bson.D{{Key: "createdAt", Value: now}}},
	}, nil
}

// SaveBlock writes the actions, then the transactions, then the block so a block is never visible before its
// children. Writes are upserts so a block can be saved again.
func (m *Mongo) SaveBlock(ctx context.Context, b store.ChainBlock) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	now := time.Now().UTC()

	for _, a := range b.Actions {
		up, err := upsert(a, now)
		if err != nil {
			return fmt.Errorf("cannot encode action: %w", err)
		}

		_, err = m.db.Collection(entity.Actions.Collection()).UpdateOne(ctx,
			bson.D{{Key: "transaction_id", Value: a.TransactionID}, {Key: "action_id", Value: a.ActionID}},
			up, options.Update().SetUpsert(true))
		if err != nil {
			return classify(err)
		}
	}

	ids := make(bson.A, 0, len(b.Transactions))

	for _, t := range b.Transactions {
		up, err := upsert(t, now)
		if err != nil {
			return fmt.Errorf("cannot encode transaction: %w", err)
		}

		var res struct {
			ID primitive.ObjectID `bson:"_id"`
		}

		err = m.db.Collection(entity.Transactions.Collection()).FindOneAndUpdate(ctx,
			bson.D{{Key: "transaction_id", Value: t.TransactionID}}, up,
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After).
				SetProjection(bson.D{{Key: "_id", Value: 1}})).Decode(&res)
		if err != nil {
			return classify(err)
		}

		ids = append(ids, res.ID)
	}

	up, err := upsert(b.Block, now)
	if err != nil {
		return fmt.Errorf("cannot encode block: %w", err)
	}

	up[0].Value = append(up[0].Value.(bson.D), bson.E{Key: "transactions", Value: ids})

	_, err = m.db.Collection(entity.Blocks.Collection()).UpdateOne(ctx,
		bson.D{{Key: "block_num", Value: b.Block.BlockNum}}, up, options.Update().SetUpsert(true))

	return classify(err)
}

// SaveAccount upserts an account by name.
func (m *Mongo) SaveAccount(ctx context.Context, a store.Account) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	up, err := upsert(a, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cannot encode account: %w", err)
	}

	_, err = m.db.Collection(entity.Accounts.Collection()).UpdateOne(ctx,
		bson.D{{Key: "name", Value: a.Name}}, up, options.Update().SetUpsert(true))

	return classify(err)
}

// SaveRequest logs a faucet request, replacing an earlier request for the same account.
func (m *Mongo) SaveRequest(ctx context.Context, r store.FaucetRequest) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	now := time.Now().UTC()

	_, err := m.db.Collection(requests).UpdateOne(ctx,
		bson.D{{Key: "eos_account", Value: r.EOSAccount}},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "email", Value: r.Email},
				{Key: "first_name", Value: r.FirstName},
				{Key: "last_name", Value: r.LastName},
				{Key: "owner_key", Value: r.OwnerKey},
				{Key: "active_key", Value: r.ActiveKey},
				{Key: "updatedAt", Value: now},
			}},
			{Key: "$setOnInsert", Value: bson.D{{Key: "createdAt", Value: now}}},
		},
		options.Update().SetUpsert(true))

	return classify(err)
}
