package plan

import (
	"github.com/tarancss/eosapi/lib/entity"
	"github.com/tarancss/eosapi/lib/query"
)

type builder struct {
	kind    entity.Kind
	rel     entity.Relation
	hasRel  bool
	p       query.Projection
	related query.Projection
	local   query.Projection
	shadows []Shadow
	trimmed []string
	stages  []Stage
	doJoin  bool
}

func newBuilder(k entity.Kind, p query.Projection) *builder {
	b := &builder{kind: k, p: p, local: p}
	b.rel, b.hasRel = k.Relation()

	if b.hasRel {
		b.local, b.related = query.Split(p, b.rel.Field)
	}

	return b
}

func (b *builder) add(s Stage) {
	b.stages = append(b.stages, s)
}

func (b *builder) plan() *Plan {
	return &Plan{Kind: b.kind, Stages: b.stages, Projection: b.p}
}

func (b *builder) joined() bool {
	return b.hasRel && b.rel.Strategy.Joined()
}

// requireJoin decides whether the join runs: it is skipped when nothing reads the related records.
func (b *builder) requireJoin(post query.Expr, keys []query.SortKey) {
	if !b.joined() {
		return
	}

	b.doJoin = post != nil || b.p.Selects(b.rel.Field)

	for _, k := range keys {
		if query.Under(k.Field, b.rel.Field) {
			b.doJoin = true
		}
	}
}

func (b *builder) isNumeric(field string) bool {
	for _, f := range b.kind.NumericStrings() {
		if f == field {
			return true
		}
	}

	return false
}

// shadowOf returns the shadow field standing for field, registering it, or field itself when it is not numeric.
func (b *builder) shadowOf(field string) string {
	if !b.isNumeric(field) {
		return field
	}

	name := ShadowPrefix + field

	for _, s := range b.shadows {
		if s.Field == name {
			return name
		}
	}

	b.shadows = append(b.shadows, Shadow{Field: name, Source: field})

	return name
}

// numeric points predicates comparing numeric-as-string fields with numbers at their shadows.
func (b *builder) numeric(e query.Expr) query.Expr {
	if e == nil || len(b.kind.NumericStrings()) == 0 {
		return e
	}

	return query.Rewrite(e, func(p *query.Predicate) *query.Predicate {
		if b.isNumeric(p.Field) && numericValue(p.Value) {
			p.Field = b.shadowOf(p.Field)
		}

		return p
	})
}

func numericValue(v interface{}) bool {
	switch t := v.(type) {
	case int64, float64:
		return true
	case []interface{}:
		for _, it := range t {
			if !numericValue(it) {
				return false
			}
		}

		return len(t) > 0
	}

	return false
}

// partition splits the conjuncts of e into those on root fields and those needing the joined children.
func (b *builder) partition(e query.Expr) (root, post query.Expr) {
	if !b.joined() {
		return e, nil
	}

	var rs, ps []query.Expr

	for _, c := range query.Conjuncts(e) {
		if b.needsJoin(c) {
			ps = append(ps, c)
		} else {
			rs = append(rs, c)
		}
	}

	return query.AllOf(rs...), query.AllOf(ps...)
}

func (b *builder) needsJoin(e query.Expr) bool {
	for _, f := range e.Fields() {
		if query.Under(f, b.rel.Field) {
			return true
		}
	}

	return false
}

func (b *builder) derive() {
	if len(b.shadows) > 0 {
		b.add(Derive{Shadows: b.shadows})
	}
}

func (b *builder) match(e query.Expr) {
	if e != nil {
		b.add(Match{Filter: e})
	}
}

func (b *builder) join() {
	if !b.doJoin {
		return
	}

	child, ok := entity.Lookup(b.rel.Child)

	from := b.rel.Child
	if ok {
		from = child.Collection()
	}

	// identities are dropped by the trim stage, the join itself keeps them
	sub := b.related
	sub.ExcludeIDs = nil

	b.add(Join{Relation: b.rel, From: from, Projection: sub})
}

// project adds the projection stage. Sort keys the caller's projection would drop are carried through it and
// trimmed at the end, as are shadows and excluded identities.
func (b *builder) project(keys []query.SortKey) {
	for _, e := range b.p.ExcludeIDs {
		if e == "" {
			b.trimmed = query.AppendPath(b.trimmed, query.IDField)
		} else {
			b.trimmed = query.AppendPath(b.trimmed, e+"."+query.IDField)
		}
	}

	switch b.p.Mode {
	case query.Include:
		b.include(keys)
	case query.Exclude:
		b.exclude(keys)
	default:
		if b.doJoin && b.rel.Strategy == entity.StoredKeyList {
			b.add(Project{Mode: query.Exclude, Fields: []string{JoinedField}})
		}
	}

	for _, s := range b.shadows {
		b.trimmed = query.AppendPath(b.trimmed, s.Field)
	}
}

func (b *builder) include(keys []query.SortKey) {
	fields := append([]string(nil), b.local.Fields...)

	if b.hasRel && !b.related.Empty() {
		if b.rel.Strategy == entity.Embedded && b.related.Mode == query.Include {
			for _, f := range b.related.Fields {
				fields = query.AppendPath(fields, b.rel.Field+"."+f)
			}
		} else {
			fields = query.AppendPath(fields, b.rel.Field)
		}
	}

	covered := query.Projection{Mode: query.Include, Fields: fields}

	for _, k := range keys {
		if k.Field == query.IDField || covered.Selects(k.Field) {
			continue
		}

		fields = query.AppendPath(fields, k.Field)
		b.trimmed = query.AppendPath(b.trimmed, k.Field)
	}

	for _, s := range b.shadows {
		fields = query.AppendPath(fields, s.Field)
	}

	b.add(Project{Mode: query.Include, Fields: fields})
}

func (b *builder) exclude(keys []query.SortKey) {
	var fields []string

	for _, f := range b.local.Fields {
		fields = query.AppendPath(fields, f)
	}

	if b.hasRel && b.rel.Strategy == entity.Embedded {
		for _, f := range b.related.Fields {
			fields = query.AppendPath(fields, b.rel.Field+"."+f)
		}
	}

	// sort keys (or their ancestors) that are excluded are kept until the trim
	kept := fields[:0:0]

	for _, f := range fields {
		carried := false

		for _, k := range keys {
			if query.Under(k.Field, f) {
				carried = true

				break
			}
		}

		if carried {
			b.trimmed = query.AppendPath(b.trimmed, f)
		} else {
			kept = append(kept, f)
		}
	}

	if b.doJoin && b.rel.Strategy == entity.StoredKeyList {
		kept = append(kept, JoinedField)
	}

	if len(kept) > 0 {
		b.add(Project{Mode: query.Exclude, Fields: kept})
	}
}

func (b *builder) trim() {
	if len(b.trimmed) > 0 {
		b.add(Trim{Fields: b.trimmed})
	}
}
