// Package plan builds backend-neutral execution plans for collection queries.
//
// A list plan always runs its stages in this order:
//
//	derive? -> match -> join (+ match on related paths) -> project -> sort -> skip -> limit -> trim?
//
// Matching before the join avoids resolving relations of rows that are filtered out, projecting after the join
// keeps the keys the join needs, and sorting before skip/limit makes pages contiguous. Derive computes numeric
// shadows of numeric-as-string fields and Trim removes what was only carried for sorting.
package plan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tarancss/eosapi/lib/entity"
	"github.com/tarancss/eosapi/lib/query"
)

// JoinedField is the scratch field a StoredKeyList join reads children into before restoring key order.
const JoinedField = "__joined"

// ShadowPrefix prefixes the derived numeric form of a numeric-as-string field.
const ShadowPrefix = "__num_"

// DefaultSort is applied when a list query has no sort.
var DefaultSort = []query.SortKey{{Field: "createdAt", Desc: true}} //nolint:gochecknoglobals // documented default

// ErrBadIdentifier is returned by Get when the identifier cannot name any record of the kind.
var ErrBadIdentifier = errors.New("identifier is not valid for this kind")

// Stage is one step of a plan.
type Stage interface {
	Name() string
}

// Shadow derives the numeric value of Source into Field.
type Shadow struct {
	Field  string
	Source string
}

// Derive adds numeric shadow fields.
type Derive struct{ Shadows []Shadow }

// Match keeps the records satisfying Filter.
type Match struct{ Filter query.Expr }

// Join resolves Relation, applying Projection (relative to the child) to every child.
type Join struct {
	Relation   entity.Relation
	From       string // child collection
	Projection query.Projection
}

// Project shapes the records.
type Project struct {
	Mode   query.Mode
	Fields []string
}

// Sort orders the records.
type Sort struct{ Keys []query.SortKey }

// Skip drops the first N records.
type Skip struct{ N int64 }

// Limit keeps at most N records.
type Limit struct{ N int64 }

// Trim removes Fields (carried sort keys, shadows and excluded identities).
type Trim struct{ Fields []string }

func (Derive) Name() string  { return "derive" }
func (Match) Name() string   { return "match" }
func (Join) Name() string    { return "join" }
func (Project) Name() string { return "project" }
func (Sort) Name() string    { return "sort" }
func (Skip) Name() string    { return "skip" }
func (Limit) Name() string   { return "limit" }
func (Trim) Name() string    { return "trim" }

// Plan is an ordered list of stages over the collection of Kind.
type Plan struct {
	Kind   entity.Kind
	Stages []Stage
	// Projection is the caller's projection, used to shape the returned records.
	Projection query.Projection
}

// String describes the stages, used when logging failed plans.
func (p *Plan) String() string {
	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = fmt.Sprintf("%s%+v", s.Name(), s)
	}

	return p.Kind.Collection() + ": " + strings.Join(names, " -> ")
}

// List plans a list query for kind k. scope, when not nil, is ANDed with the descriptor's filter (nested routes use
// it to restrict children to their parent).
func List(k entity.Kind, d *query.Descriptor, scope query.Expr) (*Plan, error) {
	b := newBuilder(k, d.Projection)

	filter := b.numeric(query.AllOf(scope, d.Filter))

	keys := d.Sort
	if len(keys) == 0 {
		keys = DefaultSort
	}

	keys = tieBreak(keys)
	for i := range keys {
		keys[i].Field = b.shadowOf(keys[i].Field)
	}

	root, post := b.partition(filter)
	b.requireJoin(post, keys)

	b.derive()
	b.match(root)
	b.join()
	b.match(post)
	b.project(keys)
	b.add(Sort{Keys: keys})

	if d.Skip > 0 {
		b.add(Skip{N: d.Skip})
	}

	b.add(Limit{N: d.Limit})
	b.trim()

	return b.plan(), nil
}

// Get plans a single record lookup. An identifier that parses as a non-negative integer selects by the kind's
// sequence key when it has one, otherwise the natural key is used.
func Get(k entity.Kind, ident string, p query.Projection, scope query.Expr) (*Plan, error) {
	id, err := Identify(k, ident)
	if err != nil {
		return nil, err
	}

	b := newBuilder(k, p)
	root, post := b.partition(b.numeric(query.AllOf(id, scope)))
	b.requireJoin(post, nil)

	b.derive()
	b.match(root)
	b.join()
	b.match(post)
	b.project(nil)
	b.add(Limit{N: 1})
	b.trim()

	return b.plan(), nil
}

// Identify returns the predicate selecting the record named by ident.
func Identify(k entity.Kind, ident string) (*query.Predicate, error) {
	if ident == "" {
		return nil, ErrBadIdentifier
	}

	if seq := k.SequenceKey(); seq != "" && isNumber(ident) {
		n, err := strconv.ParseInt(ident, 10, 64)
		if err == nil {
			return &query.Predicate{Field: seq, Op: query.Eq, Value: n}, nil
		}
	}

	if k.ObjectIDKey() {
		if !isObjectID(ident) {
			return nil, ErrBadIdentifier
		}

		return &query.Predicate{Field: query.IDField, Op: query.Eq, Value: query.ObjectID(ident)}, nil
	}

	return &query.Predicate{Field: k.NaturalKey(), Op: query.Eq, Value: ident}, nil
}

func isNumber(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}

	return s != ""
}

func isObjectID(s string) bool {
	if len(s) != 24 { //nolint:gomnd // 12 bytes in hex
		return false
	}

	for _, c := range strings.ToLower(s) {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}

// tieBreak returns a copy of keys ending with the identity so equal keys still sort deterministically.
func tieBreak(keys []query.SortKey) []query.SortKey {
	out := make([]query.SortKey, 0, len(keys)+1)
	out = append(out, keys...)

	for _, k := range keys {
		if k.Field == query.IDField {
			return out
		}
	}

	return append(out, query.SortKey{Field: query.IDField})
}
