// Package resource declares the twelve resource types the API exposes.
//
// A Descriptor is everything the generic layers need to know about one
// resource: its URL segment, table, field rules and many-to-many relations.
// Validation, persistence, the handler factory and the documentation
// generator all read the same descriptor, so adding a field is a one-line
// change here.
package resource

import (
	"fmt"
	"strings"
)

// Type is the JSON shape a field accepts.
type Type int

const (
	String Type = iota
	Integer
	Number
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Number:
		return "number"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Field is one scalar attribute of a resource.
type Field struct {
	Name     string // JSON key and column name
	Label    string // used in validation messages, e.g. "First Name"
	Type     Type
	Required bool   // must be present on create
	Nullable bool   // JSON null is accepted and stored as NULL
	Rules    string // validator tags checked after the type, e.g. "min=2,max=225"

	// Ref names the resource path this integer column points at.
	Ref string

	// WriteOnly fields are accepted on input but never read back.
	WriteOnly bool

	Description string
}

// Relation is a many-to-many association exposed as an array of ids.
type Relation struct {
	Field     string // JSON key, e.g. "signed_artists"
	Label     string
	Target    string // target resource path
	JoinTable string
}

// Descriptor describes one resource type.
type Descriptor struct {
	Path      string // URL segment under /api/v1, e.g. "record-labels"
	Table     string
	Name      string // singular display name, e.g. "Record label"
	Key       string // singular snake_case key, used for join columns
	Tag       string // documentation group, e.g. "Record Labels"
	Fields    []Field
	Relations []Relation
}

// Field returns the scalar field with the given name.
func (d *Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Relation returns the relation with the given JSON field name.
func (d *Descriptor) Relation(name string) (Relation, bool) {
	for _, rel := range d.Relations {
		if rel.Field == name {
			return rel, true
		}
	}
	return Relation{}, false
}

// JoinColumn is the column in a join table that points back at d.
func (d *Descriptor) JoinColumn() string {
	return d.Key + "_id"
}

// LowerName is the display name in lower case, for messages like
// "Invalid record label ID".
func (d *Descriptor) LowerName() string {
	return strings.ToLower(d.Name)
}

// Registry is the ordered set of known resources.
type Registry struct {
	list   []*Descriptor
	byPath map[string]*Descriptor
}

// NewRegistry checks that paths and tables are unique and that every
// foreign key and relation points at a registered resource.
func NewRegistry(descs ...*Descriptor) (*Registry, error) {
	r := &Registry{byPath: make(map[string]*Descriptor, len(descs))}
	tables := make(map[string]bool, len(descs))

	for _, d := range descs {
		if d.Path == "" || d.Table == "" || d.Key == "" {
			return nil, fmt.Errorf("resource: descriptor %q is missing path, table or key", d.Name)
		}
		if _, dup := r.byPath[d.Path]; dup {
			return nil, fmt.Errorf("resource: duplicate path %q", d.Path)
		}
		if tables[d.Table] {
			return nil, fmt.Errorf("resource: duplicate table %q", d.Table)
		}
		r.byPath[d.Path] = d
		tables[d.Table] = true
		r.list = append(r.list, d)
	}

	for _, d := range descs {
		for _, f := range d.Fields {
			if f.Ref == "" {
				continue
			}
			if f.Type != Integer {
				return nil, fmt.Errorf("resource: %s.%s references %s but is not an integer", d.Path, f.Name, f.Ref)
			}
			if _, ok := r.byPath[f.Ref]; !ok {
				return nil, fmt.Errorf("resource: %s.%s references unknown resource %q", d.Path, f.Name, f.Ref)
			}
		}
		for _, rel := range d.Relations {
			if _, ok := r.byPath[rel.Target]; !ok {
				return nil, fmt.Errorf("resource: %s.%s targets unknown resource %q", d.Path, rel.Field, rel.Target)
			}
			if rel.JoinTable == "" {
				return nil, fmt.Errorf("resource: %s.%s has no join table", d.Path, rel.Field)
			}
		}
	}

	return r, nil
}

// All returns every descriptor in registration order.
func (r *Registry) All() []*Descriptor {
	return r.list
}

// MustLookup is Lookup for paths known at compile time.
func (r *Registry) MustLookup(path string) *Descriptor {
	d, ok := r.byPath[path]
	if !ok {
		panic(fmt.Sprintf("resource: unknown path %q", path))
	}
	return d
}
