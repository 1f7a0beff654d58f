package services

import (
	"sort"

	"molgenx/models"
)

// DeriveView filtert und sortiert eine Ergebnisliste für die Anzeige.
// Die Eingabe wird nie verändert; Gleichstände behalten die Eingabereihenfolge.
func DeriveView[T models.Compoundish](source []T, filters models.FilterState) []T {
	out := make([]T, 0, len(source))
	for _, item := range source {
		if passes(item.Base(), filters) {
			out = append(out, item)
		}
	}

	less := comparator(filters.SortBy)
	if less == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].Base(), out[j].Base())
	})
	return out
}

// passes: alle drei Schwellwerte müssen erfüllt sein.
func passes(c models.Compound, f models.FilterState) bool {
	return c.Likeliness >= f.MinLikeliness &&
		c.Toxicity <= f.MaxToxicity &&
		c.BindingAffinity >= f.MinBindingAffinity
}

func comparator(key models.SortKey) func(a, b models.Compound) bool {
	switch key {
	case models.SortLikelinessDesc:
		return func(a, b models.Compound) bool { return a.Likeliness > b.Likeliness }
	case models.SortLikelinessAsc:
		return func(a, b models.Compound) bool { return a.Likeliness < b.Likeliness }
	case models.SortToxicityDesc:
		return func(a, b models.Compound) bool { return a.Toxicity > b.Toxicity }
	case models.SortToxicityAsc:
		return func(a, b models.Compound) bool { return a.Toxicity < b.Toxicity }
	case models.SortBindingDesc:
		return func(a, b models.Compound) bool { return a.BindingAffinity > b.BindingAffinity }
	case models.SortBindingAsc:
		return func(a, b models.Compound) bool { return a.BindingAffinity < b.BindingAffinity }
	}
	return nil
}
