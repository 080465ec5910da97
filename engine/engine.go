// Package engine filters and aggregates pharmacy claim records for the
// savings dashboard.
//
// A request builds a View from a dataset selection and a FilterCriteria, then
// hands it to one recipe (ClassSavingsShare, DrugScatter, ChargePerRx,
// MonthlySpend, ...) or to Summarize. Views are lazy: predicates are composed
// first and the partitions are scanned once, inside the recipe.
//
// An Engine holds only immutable state and may serve concurrent requests.
package engine

import (
	"github.com/samber/lo"
	"go.uber.org/zap"

	"rxsavings/claims"
	"rxsavings/source"
)

// Engine answers dashboard queries against one snapshot.
type Engine struct {
	snap    *source.Snapshot
	classes claims.ClassNames
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassNames sets the drug-class display mapping.
func WithClassNames(names claims.ClassNames) Option {
	return func(e *Engine) { e.classes = names }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an engine over snap.
func New(snap *source.Snapshot, opts ...Option) *Engine {
	e := &Engine{
		snap:    snap,
		classes: claims.DefaultClassNames(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Datasets returns the dataset catalogue.
func (e *Engine) Datasets() []string {
	return e.snap.Datasets()
}

// NumRecords returns the number of records across every dataset.
func (e *Engine) NumRecords() int {
	return e.snap.NumRecords()
}

// ClassLabel returns the display label for a raw drug class.
func (e *Engine) ClassLabel(code string) string {
	return e.classes.Display(code)
}

// BuildFilteredView selects the named datasets and composes every constraint
// present in c. No records are read.
//
// An empty selection yields an empty view. Unknown dataset IDs fail with
// source.ErrDatasetNotFound and an inverted date range with
// ErrInvertedDateRange.
func (e *Engine) BuildFilteredView(sources []string, c FilterCriteria) (View, error) {
	if err := c.Validate(); err != nil {
		return View{}, err
	}
	parts, err := e.snap.Select(sources)
	if err != nil {
		return View{}, err
	}

	v := NewView(parts)
	for _, clause := range clausesFor(c) {
		v = v.Filter(clause)
	}

	e.logger.Debug("built filtered view",
		zap.Strings("datasets", v.Datasets()),
		zap.Strings("clauses", v.Clauses()),
	)
	return v, nil
}

// clausesFor translates criteria into clauses, most selective first: the date
// range usually cuts the most rows, set membership is the costliest check.
func clausesFor(c FilterCriteria) []Clause {
	var out []Clause

	if c.DateRange.Bounded() {
		start, end := dayOf(*c.DateRange.Start), dayOf(*c.DateRange.End)
		out = append(out, Clause{
			Name: "date_range",
			Match: func(r *claims.Record) bool {
				return !r.DateOfService.Before(start) && !r.DateOfService.After(end)
			},
		})
	}
	if t := c.Affiliated; t != TriAll {
		out = append(out, Clause{Name: "affiliated", Match: func(r *claims.Record) bool { return t.Matches(r.Affiliated) }})
	}
	if t := c.IsSpecial; t != TriAll {
		out = append(out, Clause{Name: "is_special", Match: func(r *claims.Record) bool { return t.Matches(r.IsSpecial) }})
	}
	if t := c.IsFTC; t != TriAll {
		out = append(out, Clause{Name: "is_ftc", Match: func(r *claims.Record) bool { return t.Matches(r.IsFTC) }})
	}
	if len(c.DrugClasses) > 0 {
		set := lo.Keyify(c.DrugClasses)
		out = append(out, Clause{Name: "drug_class_in", Match: func(r *claims.Record) bool {
			_, ok := set[r.DrugClass]
			return ok
		}})
	}
	if len(c.GenericNames) > 0 {
		set := lo.Keyify(c.GenericNames)
		out = append(out, Clause{Name: "generic_name_in", Match: func(r *claims.Record) bool {
			_, ok := set[r.GenericName]
			return ok
		}})
	}
	return out
}
