// Package query turns the query string of a collection request into a typed Descriptor: a filter tree, sort keys,
// paging and a field projection.
//
// The grammar accepted for ad-hoc parameters is
//
//	field=value  field!=value  field>value  field>=value  field<value  field<=value
//	field=v1,v2 (one of)  field!=v1,v2 (none of)  field (exists)  !field (does not exist)
//	field=/re/flags  field!=/re/flags
//
// and the reserved parameters are filter (JSON, ANDed with the above), sort, skip, limit, fields, page and perPage.
package query

// IDField is the identity field of every stored entity. The wire name "id" is accepted as an alias.
const IDField = "_id"

// Mode tells whether a Projection includes or excludes its fields.
type Mode int

// Projection modes.
const (
	None Mode = iota
	Include
	Exclude
)

func (m Mode) String() string {
	switch m {
	case Include:
		return "include"
	case Exclude:
		return "exclude"
	}

	return "none"
}

// Projection selects returned fields. Fields are all in Mode; identity exclusions are kept apart in ExcludeIDs
// because they are the only exclusion allowed alongside an inclusion list.
type Projection struct {
	Mode   Mode
	Fields []string
	// ExcludeIDs lists the paths whose _id is excluded. The root identity is "".
	ExcludeIDs []string
}

// Empty reports whether the projection selects all fields.
func (p Projection) Empty() bool {
	return p.Mode == None && len(p.ExcludeIDs) == 0
}

// ExcludesID reports whether the identity of the path prefix ("" for the root) is excluded.
func (p Projection) ExcludesID(prefix string) bool {
	for _, e := range p.ExcludeIDs {
		if e == prefix {
			return true
		}
	}

	return false
}

// Selects reports whether the projection returns the field at path, either because it is included (or an
// ancestor or descendant of it is) or because it is not excluded.
func (p Projection) Selects(path string) bool {
	switch p.Mode {
	case Include:
		for _, f := range p.Fields {
			if Under(path, f) || Under(f, path) {
				return true
			}
		}

		return false
	case Exclude:
		for _, f := range p.Fields {
			if Under(path, f) {
				return false
			}
		}
	}

	return true
}

// Split separates the paths below prefix (stripped of it) from the rest. Both halves keep the caller's mode, so
// neither can be mixed.
func Split(p Projection, prefix string) (local, related Projection) {
	if p.Empty() {
		return Projection{}, Projection{}
	}

	pre := prefix + "."

	for _, f := range p.Fields {
		if len(f) > len(pre) && f[:len(pre)] == pre {
			related.Fields = append(related.Fields, f[len(pre):])
		} else {
			local.Fields = append(local.Fields, f)
		}
	}

	for _, e := range p.ExcludeIDs {
		switch {
		case e == prefix:
			related.ExcludeIDs = append(related.ExcludeIDs, "")
		case len(e) > len(pre) && e[:len(pre)] == pre:
			related.ExcludeIDs = append(related.ExcludeIDs, e[len(pre):])
		default:
			local.ExcludeIDs = append(local.ExcludeIDs, e)
		}
	}

	if len(local.Fields) > 0 {
		local.Mode = p.Mode
	}

	if len(related.Fields) > 0 {
		related.Mode = p.Mode
	}

	return local, related
}

// SortKey is one sort criterion.
type SortKey struct {
	Field string
	Desc  bool
}

// Descriptor is the typed form of a collection query.
type Descriptor struct {
	Filter     Expr
	Sort       []SortKey
	Skip       int64
	Limit      int64
	Projection Projection
}
