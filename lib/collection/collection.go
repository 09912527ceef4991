// Package collection answers the list and get requests of the REST API: the request query is parsed, planned,
// executed by the store and the documents are shaped into records.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tarancss/eosapi/lib/entity"
	"github.com/tarancss/eosapi/lib/metrics"
	"github.com/tarancss/eosapi/lib/plan"
	"github.com/tarancss/eosapi/lib/query"
	"github.com/tarancss/eosapi/lib/store"
	"github.com/tarancss/eosapi/lib/telemetry"
)

// ErrUnknownKind is returned for kinds that are not registered.
var ErrUnknownKind = errors.New("unknown entity kind")

// Service runs collection queries.
type Service struct {
	db     store.Collections
	log    *slog.Logger
	opts   query.Options
	tracer trace.Tracer
}

// New returns a service querying db with the list paging bounds of the REST API.
func New(db store.Collections, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{db: db, log: log, opts: query.ListOptions, tracer: telemetry.Tracer()}
}

func kindOf(name string) (entity.Kind, error) {
	k, ok := entity.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, name)
	}

	return k, nil
}

// List returns the records of kind matching values. scope, when not nil, further restricts the records.
func (s *Service) List(ctx context.Context, kind string, values url.Values, scope query.Expr) ([]entity.Record, error) {
	k, err := kindOf(kind)
	if err != nil {
		return nil, err
	}

	d, err := query.Parse(values, s.opts)
	if err != nil {
		return nil, err
	}

	return s.list(ctx, k, d, scope, "list")
}

// Head returns the newest record of kind: the highest sequence key, or the latest created.
func (s *Service) Head(ctx context.Context, kind string, values url.Values) (entity.Record, error) {
	k, err := kindOf(kind)
	if err != nil {
		return nil, err
	}

	p, err := query.ParseProjection(values)
	if err != nil {
		return nil, err
	}

	d := &query.Descriptor{Limit: 1, Projection: p, Sort: plan.DefaultSort}
	if seq := k.SequenceKey(); seq != "" {
		d.Sort = []query.SortKey{{Field: seq, Desc: true}}
	}

	recs, err := s.list(ctx, k, d, nil, "head")
	if err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: no %s", store.ErrNotFound, kind)
	}

	return recs[0], nil
}

func (s *Service) list(ctx context.Context, k entity.Kind, d *query.Descriptor, scope query.Expr, op string,
) ([]entity.Record, error) {
	pl, err := plan.List(k, d, scope)
	if err != nil {
		return nil, err
	}

	docs, err := s.execute(ctx, pl, op)
	if err != nil {
		return nil, err
	}

	return entity.TransformAll(k, docs, d.Projection), nil
}

// Get returns the record of kind named by ident. Only the fields parameter of values is used.
func (s *Service) Get(ctx context.Context, kind, ident string, values url.Values, scope query.Expr,
) (entity.Record, error) {
	k, err := kindOf(kind)
	if err != nil {
		return nil, err
	}

	p, err := query.ParseProjection(values)
	if err != nil {
		return nil, err
	}

	return s.get(ctx, k, ident, p, scope)
}

// Parent names the record a child collection is nested under: the child's ChildKey must equal the parent's Key.
type Parent struct {
	Kind     string
	Ident    string
	Key      string
	ChildKey string
}

// ListIn lists the records of kind under parent. The query is parsed before the parent is looked up, so a bad query
// never reaches the store.
func (s *Service) ListIn(ctx context.Context, kind string, values url.Values, parent Parent) ([]entity.Record, error) {
	k, err := kindOf(kind)
	if err != nil {
		return nil, err
	}

	d, err := query.Parse(values, s.opts)
	if err != nil {
		return nil, err
	}

	scope, err := s.Scope(ctx, parent.Kind, parent.Ident, parent.Key, parent.ChildKey)
	if err != nil {
		return nil, err
	}

	return s.list(ctx, k, d, scope, "list")
}

// GetIn returns the record of kind named by ident only when it is under parent. Like ListIn, the fields parameter is
// checked first.
func (s *Service) GetIn(ctx context.Context, kind, ident string, values url.Values, parent Parent,
) (entity.Record, error) {
	k, err := kindOf(kind)
	if err != nil {
		return nil, err
	}

	p, err := query.ParseProjection(values)
	if err != nil {
		return nil, err
	}

	scope, err := s.Scope(ctx, parent.Kind, parent.Ident, parent.Key, parent.ChildKey)
	if err != nil {
		return nil, err
	}

	return s.get(ctx, k, ident, p, scope)
}

func (s *Service) get(ctx context.Context, k entity.Kind, ident string, p query.Projection, scope query.Expr,
) (entity.Record, error) {
	pl, err := plan.Get(k, ident, p, scope)
	if err != nil {
		return nil, err
	}

	docs, err := s.execute(ctx, pl, "get")
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s %s", store.ErrNotFound, k.Name(), ident)
	}

	return entity.Transform(k, docs[0], p), nil
}

// Scope returns the filter restricting a child collection to the parent of kind named by ident: the child's
// childKey must equal the parent's parentKey.
func (s *Service) Scope(ctx context.Context, kind, ident, parentKey, childKey string) (query.Expr, error) {
	k, err := kindOf(kind)
	if err != nil {
		return nil, err
	}

	pl, err := plan.Get(k, ident, query.Projection{Mode: query.Include, Fields: []string{parentKey}}, nil)
	if err != nil {
		return nil, err
	}

	doc, err := s.db.ExecuteOne(ctx, pl)
	if err != nil {
		return nil, err
	}

	v, ok := doc[parentKey]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s %s has no %s", store.ErrNotFound, kind, ident, parentKey)
	}

	return &query.Predicate{Field: childKey, Op: query.Eq, Value: v}, nil
}

func (s *Service) execute(ctx context.Context, pl *plan.Plan, op string) ([]entity.Document, error) {
	kind := pl.Kind.Name()

	ctx, span := s.tracer.Start(ctx, "collection."+op, trace.WithAttributes(
		attribute.String("kind", kind),
		attribute.Int("stages", len(pl.Stages)),
	))
	defer span.End()

	start := time.Now()
	docs, err := s.db.Execute(ctx, pl)

	metrics.QueryDuration.WithLabelValues(kind, op).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.DebugContext(ctx, "collection query failed", "kind", kind, "op", op, "err", err)

		return nil, err
	}

	span.SetAttributes(attribute.Int("documents", len(docs)))

	return docs, nil
}
