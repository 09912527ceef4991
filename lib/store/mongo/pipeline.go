package mongo

import (
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mgo "go.mongodb.org/mongo-driver/mongo"

	"github.com/tarancss/eosapi/lib/entity"
	"github.com/tarancss/eosapi/lib/plan"
	"github.com/tarancss/eosapi/lib/query"
)

var hexID = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// Pipeline renders p as an aggregation pipeline over p.Kind's collection.
func Pipeline(p *plan.Plan) (mgo.Pipeline, error) {
	pipe := make(mgo.Pipeline, 0, len(p.Stages)+1)

	for _, s := range p.Stages {
		switch t := s.(type) {
		case plan.Derive:
			pipe = append(pipe, derive(t))
		case plan.Match:
			m, err := match(t.Filter)
			if err != nil {
				return nil, err
			}

			pipe = append(pipe, bson.D{{Key: "$match", Value: m}})
		case plan.Join:
			j, err := join(t)
			if err != nil {
				return nil, err
			}

			pipe = append(pipe, j...)
		case plan.Project:
			pipe = append(pipe, bson.D{{Key: "$project", Value: projection(t.Mode, t.Fields)}})
		case plan.Sort:
			pipe = append(pipe, bson.D{{Key: "$sort", Value: sortKeys(t.Keys)}})
		case plan.Skip:
			pipe = append(pipe, bson.D{{Key: "$skip", Value: t.N}})
		case plan.Limit:
			pipe = append(pipe, bson.D{{Key: "$limit", Value: t.N}})
		case plan.Trim:
			pipe = append(pipe, bson.D{{Key: "$unset", Value: t.Fields}})
		default:
			return nil, fmt.Errorf("unsupported stage %q", s.Name())
		}
	}

	return pipe, nil
}

// derive computes each shadow from the leading number of its string source ("1000.0000 EOS"), or from the source
// itself when it is already a number. Unparsable values become null.
func derive(d plan.Derive) bson.D {
	fields := bson.D{}

	for _, s := range d.Shadows {
		src := "$" + s.Source
		leading := bson.D{{Key: "$arrayElemAt", Value: bson.A{
			bson.D{{Key: "$split", Value: bson.A{bson.D{{Key: "$trim", Value: bson.D{{Key: "input", Value: src}}}}, " "}}},
			0,
		}}}

		fields = append(fields, bson.E{Key: s.Field, Value: bson.D{{Key: "$cond", Value: bson.D{
			{Key: "if", Value: bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: src}}, "string"}}}},
			{Key: "then", Value: toDouble(leading)},
			{Key: "else", Value: toDouble(src)},
		}}}})
	}

	return bson.D{{Key: "$addFields", Value: fields}}
}

func toDouble(input interface{}) bson.D {
	return bson.D{{Key: "$convert", Value: bson.D{
		{Key: "input", Value: input},
		{Key: "to", Value: "double"},
		{Key: "onError", Value: nil},
		{Key: "onNull", Value: nil},
	}}}
}

func match(e query.Expr) (bson.D, error) {
	switch t := e.(type) {
	case *query.Predicate:
		return predicate(t)
	case query.And:
		return combine("$and", t)
	case query.Or:
		return combine("$or", t)
	case query.Nor:
		return combine("$nor", t)
	}

	return nil, fmt.Errorf("unsupported filter node %T", e)
}

func combine(op string, es []query.Expr) (bson.D, error) {
	a := make(bson.A, 0, len(es))

	for _, e := range es {
		m, err := match(e)
		if err != nil {
			return nil, err
		}

		a = append(a, m)
	}

	return bson.D{{Key: op, Value: a}}, nil
}

var operators = map[query.Op]string{ //nolint:gochecknoglobals // operator table
	query.Eq:  "$eq",
	query.Ne:  "$ne",
	query.Gt:  "$gt",
	query.Gte: "$gte",
	query.Lt:  "$lt",
	query.Lte: "$lte",
	query.In:  "$in",
	query.Nin: "$nin",
}

func predicate(p *query.Predicate) (bson.D, error) {
	var cond interface{}

	switch p.Op {
	case query.Exists:
		cond = bson.D{{Key: "$exists", Value: true}}
	case query.NotExists:
		cond = bson.D{{Key: "$exists", Value: false}}
	case query.Regex, query.NotRegex:
		pat, ok := p.Value.(query.Pattern)
		if !ok {
			return nil, fmt.Errorf("field %s: pattern expected, got %T", p.Field, p.Value)
		}

		re := primitive.Regex{Pattern: pat.Source, Options: pat.Flags}
		if p.Op == query.Regex {
			cond = re
		} else {
			cond = bson.D{{Key: "$not", Value: re}}
		}
	default:
		op, ok := operators[p.Op]
		if !ok {
			return nil, fmt.Errorf("field %s: unsupported operator %s", p.Field, p.Op)
		}

		v, err := value(p.Field, p.Value)
		if err != nil {
			return nil, err
		}

		cond = bson.D{{Key: op, Value: v}}
	}

	return bson.D{{Key: p.Field, Value: cond}}, nil
}

// value converts identities to ObjectIDs: query.ObjectID values anywhere, and hex strings on _id paths.
func value(field string, v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case query.ObjectID:
		id, err := primitive.ObjectIDFromHex(string(t))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}

		return id, nil
	case string:
		if isIDPath(field) && hexID.MatchString(t) {
			return primitive.ObjectIDFromHex(t)
		}
	case []interface{}:
		a := make(bson.A, len(t))

		for i, it := range t {
			c, err := value(field, it)
			if err != nil {
				return nil, err
			}

			a[i] = c
		}

		return a, nil
	}

	return v, nil
}

func isIDPath(field string) bool {
	return field == query.IDField || strings.HasSuffix(field, "."+query.IDField)
}

func join(j plan.Join) ([]bson.D, error) {
	rel := j.Relation

	switch rel.Strategy {
	case entity.StoredKeyList:
		keys := bson.D{{Key: "$ifNull", Value: bson.A{"$" + rel.Field, bson.A{}}}}
		sub := bson.A{bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
			{Key: "$in", Value: bson.A{"$" + rel.ChildKey, "$$keys"}},
		}}}}}}
		sub = appendProjection(sub, j.Projection)

		lookup := bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: j.From},
			{Key: "let", Value: bson.D{{Key: "keys", Value: keys}}},
			{Key: "pipeline", Value: sub},
			{Key: "as", Value: plan.JoinedField},
		}}}

		// children are put back in key order, keys without a child become null
		found := bson.D{{Key: "$filter", Value: bson.D{
			{Key: "input", Value: "$" + plan.JoinedField},
			{Key: "as", Value: "c"},
			{Key: "cond", Value: bson.D{{Key: "$eq", Value: bson.A{"$$c." + rel.ChildKey, "$$k"}}}},
		}}}
		restore := bson.D{{Key: "$addFields", Value: bson.D{{Key: rel.Field, Value: bson.D{{Key: "$map", Value: bson.D{
			{Key: "input", Value: keys},
			{Key: "as", Value: "k"},
			{Key: "in", Value: bson.D{{Key: "$ifNull", Value: bson.A{
				bson.D{{Key: "$arrayElemAt", Value: bson.A{found, 0}}},
				nil,
			}}}},
		}}}}}}}

		return []bson.D{lookup, restore}, nil
	case entity.ReverseLookup:
		sub := bson.A{
			bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
				{Key: "$eq", Value: bson.A{"$" + rel.ChildKey, "$$parent"}},
			}}}}},
		}

		order := bson.D{}
		if rel.OrderBy != "" {
			order = append(order, bson.E{Key: rel.OrderBy, Value: 1})
		}

		sub = append(sub, bson.D{{Key: "$sort", Value: append(order, bson.E{Key: query.IDField, Value: 1})}})
		sub = appendProjection(sub, j.Projection)

		return []bson.D{{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: j.From},
			{Key: "let", Value: bson.D{{Key: "parent", Value: "$" + rel.ParentKey}}},
			{Key: "pipeline", Value: sub},
			{Key: "as", Value: rel.Field},
		}}}}, nil
	}

	return nil, fmt.Errorf("relation %s cannot be joined", rel.Strategy)
}

func appendProjection(pipe bson.A, p query.Projection) bson.A {
	if p.Mode == query.None || len(p.Fields) == 0 {
		return pipe
	}

	return append(pipe, bson.D{{Key: "$project", Value: projection(p.Mode, p.Fields)}})
}

func projection(mode query.Mode, fields []string) bson.D {
	flag := 1
	if mode == query.Exclude {
		flag = 0
	}

	d := make(bson.D, len(fields))
	for i, f := range fields {
		d[i] = bson.E{Key: f, Value: flag}
	}

	return d
}

func sortKeys(keys []query.SortKey) bson.D {
	d := make(bson.D, len(keys))

	for i, k := range keys {
		dir := 1
		if k.Desc {
			dir = -1
		}

		d[i] = bson.E{Key: k.Field, Value: dir}
	}

	return d
}
