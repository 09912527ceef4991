package query

import (
	"fmt"
	"sort"
	"strings"
)

// Op is a leaf predicate operator.
type Op int

// Supported leaf operators.
const (
	Eq Op = iota
	Ne
	Gt
	Gte
	Lt
	Lte
	In
	Nin
	Exists
	NotExists
	Regex
	NotRegex
)

var opNames = [...]string{"eq", "ne", "gt", "gte", "lt", "lte", "in", "nin", "exists", "notexists", "regex", "notregex"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}

	return "unknown"
}

// Ordered reports whether the operator compares by order (>, >=, <, <=).
func (o Op) Ordered() bool {
	return o == Gt || o == Gte || o == Lt || o == Lte
}

// Pattern is the value of Regex and NotRegex predicates. Flags are passed to storage unchanged.
type Pattern struct {
	Source string
	Flags  string
}

// ObjectID is a storage-assigned identifier in its hex form. Repositories convert it to their native id type.
type ObjectID string

// Expr is a node of the filter tree: a *Predicate or one of And, Or, Nor.
type Expr interface {
	// Fields returns every field path referenced below this node.
	Fields() []string
	expr()
}

// Predicate is a filter leaf. Value holds a coerced scalar for comparisons, []interface{} for In/Nin, a Pattern for
// Regex/NotRegex and nil for Exists/NotExists.
type Predicate struct {
	Field string
	Op    Op
	Value interface{}
}

// And, Or and Nor combine sub-expressions.
type (
	And []Expr
	Or  []Expr
	Nor []Expr
)

func (p *Predicate) Fields() []string { return []string{p.Field} }
func (a And) Fields() []string        { return fieldsOf(a) }
func (o Or) Fields() []string         { return fieldsOf(o) }
func (n Nor) Fields() []string        { return fieldsOf(n) }

func (*Predicate) expr() {}
func (And) expr()        {}
func (Or) expr()         {}
func (Nor) expr()        {}

func fieldsOf(es []Expr) []string {
	var fs []string
	for _, e := range es {
		fs = append(fs, e.Fields()...)
	}

	return fs
}

// AllOf combines expressions with a logical AND, dropping nil operands and flattening nested Ands. It returns nil
// when nothing is left and the single operand when only one is.
func AllOf(es ...Expr) Expr {
	var out And

	for _, e := range es {
		switch t := e.(type) {
		case nil:
		case And:
			out = append(out, t...)
		default:
			out = append(out, e)
		}
	}

	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}

	return out
}

// Conjuncts returns the top level operands of e when it is an And, or e alone.
func Conjuncts(e Expr) []Expr {
	switch t := e.(type) {
	case nil:
		return nil
	case And:
		return t
	}

	return []Expr{e}
}

// Rewrite returns a copy of e where every predicate has been replaced by fn(p). Predicates are copied before being
// handed to fn so the original tree is never modified.
func Rewrite(e Expr, fn func(*Predicate) *Predicate) Expr {
	switch t := e.(type) {
	case *Predicate:
		c := *t

		return fn(&c)
	case And:
		return And(rewriteAll(t, fn))
	case Or:
		return Or(rewriteAll(t, fn))
	case Nor:
		return Nor(rewriteAll(t, fn))
	}

	return e
}

func rewriteAll(es []Expr, fn func(*Predicate) *Predicate) []Expr {
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = Rewrite(e, fn)
	}

	return out
}

// Under reports whether path equals prefix or addresses a field below it.
func Under(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+".")
}

// sortPredicates orders ad-hoc predicates by field and operator so equal query strings give equal trees.
func sortPredicates(ps []*Predicate) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Field != ps[j].Field {
			return ps[i].Field < ps[j].Field
		}

		return ps[i].Op < ps[j].Op
	})
}

func (p *Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
}
