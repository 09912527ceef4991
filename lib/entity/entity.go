// Package entity describes the kinds of records served by the collection endpoints: where they are stored, how they
// are keyed, which fields are returned and how they relate to other kinds.
package entity

import "sort"

// Strategy is how a kind resolves its related records.
type Strategy int

// Relation strategies.
const (
	// StoredKeyList parents hold an ordered array of child ids.
	StoredKeyList Strategy = iota + 1
	// ReverseLookup children hold the parent's natural key.
	ReverseLookup
	// Embedded parents hold the children as sub-documents.
	Embedded
)

func (s Strategy) String() string {
	switch s {
	case StoredKeyList:
		return "stored-key-list"
	case ReverseLookup:
		return "reverse-lookup"
	case Embedded:
		return "embedded"
	}

	return "none"
}

// Joined reports whether the strategy reads another collection.
func (s Strategy) Joined() bool {
	return s == StoredKeyList || s == ReverseLookup
}

// Relation links a kind to its related records.
type Relation struct {
	Field    string // parent field holding the related records
	Strategy Strategy
	Child    string // kind name of the related records (joined strategies)
	// ParentKey and ChildKey are the matched fields. For StoredKeyList ChildKey is the child identity and ParentKey
	// is Field itself.
	ParentKey string
	ChildKey  string
	OrderBy   string // child ordering of ReverseLookup relations
}

// Kind is the capability set the planner, the repositories and the transform layer need from an entity kind.
type Kind interface {
	Name() string
	Collection() string
	NaturalKey() string
	// SequenceKey is the numeric key accepted in place of the natural key, or "".
	SequenceKey() string
	// ObjectIDKey reports whether the natural key is the storage identity.
	ObjectIDKey() bool
	Whitelist() []string
	// NumericStrings are fields stored as strings holding a number ("1000.0000 EOS").
	NumericStrings() []string
	// Arrays are fields always returned, as [] when absent.
	Arrays() []string
	Relation() (Relation, bool)
}

// Schema is the Kind implementation used by every registered kind.
type Schema struct {
	KindName   string
	Coll       string
	Natural    string
	Sequence   string
	ObjectID   bool
	Fields     []string
	Numeric    []string
	ArrayField []string
	Rel        *Relation
}

func (s *Schema) Name() string             { return s.KindName }
func (s *Schema) Collection() string       { return s.Coll }
func (s *Schema) NaturalKey() string       { return s.Natural }
func (s *Schema) SequenceKey() string      { return s.Sequence }
func (s *Schema) ObjectIDKey() bool        { return s.ObjectID }
func (s *Schema) Whitelist() []string      { return s.Fields }
func (s *Schema) NumericStrings() []string { return s.Numeric }
func (s *Schema) Arrays() []string         { return s.ArrayField }

func (s *Schema) Relation() (Relation, bool) {
	if s.Rel == nil {
		return Relation{}, false
	}

	return *s.Rel, true
}

var registry = map[string]Kind{} //nolint:gochecknoglobals // filled at init from kinds.go

// Register adds a kind to the registry. Registering a name twice replaces the previous kind.
func Register(k Kind) {
	registry[k.Name()] = k
}

// Lookup returns the kind registered under name.
func Lookup(name string) (Kind, bool) {
	k, ok := registry[name]

	return k, ok
}

// Names returns the registered kind names, sorted.
func Names() []string {
	ns := make([]string, 0, len(registry))
	for n := range registry {
		ns = append(ns, n)
	}

	sort.Strings(ns)

	return ns
}

// Document is a stored record as read from a repository, normalised to plain Go values: maps, slices, strings,
// numbers, bools, time.Time and nil. Identities are hex strings.
type Document map[string]interface{}

// Record is the wire form of a Document.
type Record map[string]interface{}
