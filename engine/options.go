package engine

import (
	"slices"

	"github.com/samber/lo"

	"rxsavings/claims"
)

// DrugClassOptions lists the distinct drug classes present in v, sorted.
func DrugClassOptions(v View) []string {
	return distinct(v, func(r *claims.Record) string { return r.DrugClass })
}

// GenericNameOptions lists the distinct generic names present in v, sorted.
func GenericNameOptions(v View) []string {
	return distinct(v, func(r *claims.Record) string { return r.GenericName })
}

func distinct(v View, key func(*claims.Record) string) []string {
	seen := make(map[string]struct{})
	v.Each(func(r *claims.Record) { seen[key(r)] = struct{}{} })
	out := lo.Keys(seen)
	slices.Sort(out)
	return out
}
