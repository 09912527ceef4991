package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tarancss/eosapi/lib/entity"
	"github.com/tarancss/eosapi/lib/plan"
	"github.com/tarancss/eosapi/lib/store"
)

// Execute runs p as an aggregation and returns the documents normalised to plain Go values.
func (m *Mongo) Execute(ctx context.Context, p *plan.Plan) ([]entity.Document, error) {
	pipe, err := Pipeline(p)
	if err != nil {
		return nil, m.failed(p, classify(err))
	}

	ctx, cancel := m.bound(ctx)
	defer cancel()

	cur, err := m.db.Collection(p.Kind.Collection()).Aggregate(ctx, pipe)
	if err != nil {
		return nil, m.failed(p, classify(err))
	}
	defer cur.Close(ctx)

	docs := []entity.Document{}

	for cur.Next(ctx) {
		var raw bson.M
		if err = cur.Decode(&raw); err != nil {
			return nil, m.failed(p, classify(err))
		}

		docs = append(docs, entity.Document(normalize(raw).(map[string]interface{})))
	}

	if err = cur.Err(); err != nil {
		return nil, m.failed(p, classify(err))
	}

	return docs, nil
}

// ExecuteOne runs p and returns its first document.
func (m *Mongo) ExecuteOne(ctx context.Context, p *plan.Plan) (entity.Document, error) {
	docs, err := m.Execute(ctx, p)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, store.ErrNotFound
	}

	return docs[0], nil
}

func (m *Mongo) failed(p *plan.Plan, err error) error {
	m.log.Error("query failed", "plan", p.String(), "err", err)

	return err
}

// normalize replaces driver types with maps, slices, hex ids and UTC times.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		return normalizeMap(t)
	case map[string]interface{}:
		return normalizeMap(t)
	case bson.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}

		return out
	case bson.A:
		return normalizeSlice(t)
	case []interface{}:
		return normalizeSlice(t)
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case primitive.Decimal128:
		return t.String()
	case primitive.Null, primitive.Undefined:
		return nil
	}

	return v
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}

	return out
}

func normalizeSlice(a []interface{}) []interface{} {
	out := make([]interface{}, len(a))
	for i, v := range a {
		out[i] = normalize(v)
	}

	return out
}
