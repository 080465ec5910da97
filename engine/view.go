package engine

import (
	"rxsavings/claims"
	"rxsavings/source"
)

// Clause is one named row predicate of a view.
type Clause struct {
	Name  string
	Match func(*claims.Record) bool
}

// View is a deferred query over a set of dataset partitions: a partition list
// plus an ordered conjunction of clauses. Nothing is read until Each, Count or
// Materialize runs, and those never modify the underlying records.
//
// Views are values. Filter returns a new view and leaves the receiver usable,
// so one base view can feed several recipes.
type View struct {
	parts   []source.Partition
	clauses []Clause
}

// NewView returns an unfiltered view over parts.
func NewView(parts []source.Partition) View {
	return View{parts: parts}
}

// Filter returns a view that additionally requires c.
func (v View) Filter(c Clause) View {
	clauses := make([]Clause, len(v.clauses), len(v.clauses)+1)
	copy(clauses, v.clauses)
	return View{parts: v.parts, clauses: append(clauses, c)}
}

// Where is Filter for an anonymous predicate.
func (v View) Where(name string, match func(*claims.Record) bool) View {
	return v.Filter(Clause{Name: name, Match: match})
}

func (v View) match(r *claims.Record) bool {
	for _, c := range v.clauses {
		if !c.Match(r) {
			return false
		}
	}
	return true
}

// Each calls fn for every matching record, partitions in catalogue order and
// records in load order. fn must not retain or modify the record.
func (v View) Each(fn func(*claims.Record)) {
	for _, p := range v.parts {
		for i := range p.Records {
			r := &p.Records[i]
			if v.match(r) {
				fn(r)
			}
		}
	}
}

// Count returns the number of matching records.
func (v View) Count() int {
	n := 0
	v.Each(func(*claims.Record) { n++ })
	return n
}

// Materialize evaluates the view into a new slice of record copies.
func (v View) Materialize() []claims.Record {
	var out []claims.Record
	v.Each(func(r *claims.Record) { out = append(out, *r) })
	return out
}

// Datasets returns the IDs of the partitions the view reads.
func (v View) Datasets() []string {
	ids := make([]string, len(v.parts))
	for i, p := range v.parts {
		ids[i] = p.ID
	}
	return ids
}

// Clauses returns the clause names in application order.
func (v View) Clauses() []string {
	names := make([]string, len(v.clauses))
	for i, c := range v.clauses {
		names[i] = c.Name
	}
	return names
}
