package models

import "fmt"

// SortKey bestimmt Sortierfeld und Richtung der angezeigten Liste.
type SortKey string

const (
	SortLikelinessDesc SortKey = "likeliness-desc"
	SortLikelinessAsc  SortKey = "likeliness-asc"
	SortToxicityDesc   SortKey = "toxicity-desc"
	SortToxicityAsc    SortKey = "toxicity-asc"
	SortBindingDesc    SortKey = "binding-desc"
	SortBindingAsc     SortKey = "binding-asc"
)

// Valid meldet, ob der Schlüssel einer der sechs bekannten Werte ist.
func (k SortKey) Valid() bool {
	switch k {
	case SortLikelinessDesc, SortLikelinessAsc,
		SortToxicityDesc, SortToxicityAsc,
		SortBindingDesc, SortBindingAsc:
		return true
	}
	return false
}

// FilterState sind die Schwellwerte und die Sortierung der Ergebnisansicht.
// Wird nie ans Backend gesendet.
type FilterState struct {
	MinLikeliness      float64 `json:"minLikeliness"`
	MaxToxicity        float64 `json:"maxToxicity"`
	MinBindingAffinity float64 `json:"minBindingAffinity"`
	SortBy             SortKey `json:"sortBy"`
}

// DefaultFilters entspricht dem Ausgangszustand der Filterleiste.
func DefaultFilters() FilterState {
	return FilterState{
		MinLikeliness:      0,
		MaxToxicity:        10,
		MinBindingAffinity: 0,
		SortBy:             SortLikelinessDesc,
	}
}

// Validate prüft den Sortierschlüssel.
func (f FilterState) Validate() error {
	if !f.SortBy.Valid() {
		return fmt.Errorf("unbekannte Sortierung %q", f.SortBy)
	}
	return nil
}
