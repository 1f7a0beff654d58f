package models

import (
	"fmt"
	"math"
)

// Grenzen der Gewichtsregler.
const (
	MinWeight = 0.0
	MaxWeight = 2.0
)

// OptimizationWeights sind die Multiplikatoren, mit denen das Backend die Kandidaten gewichtet.
// Wird unverändert im Request verschickt.
type OptimizationWeights struct {
	Druglikeness           float64 `json:"druglikeness"`
	SyntheticAccessibility float64 `json:"synthetic_accessibility"`
	LipinskiViolations     float64 `json:"lipinski_violations"`
	Toxicity               float64 `json:"toxicity"`
	BindingAffinity        float64 `json:"binding_affinity"`
	Solubility             float64 `json:"solubility"`
}

// DefaultWeights liefert die Startgewichte einer neuen Session.
func DefaultWeights() OptimizationWeights {
	return OptimizationWeights{
		Druglikeness:           1.0,
		SyntheticAccessibility: 0.8,
		LipinskiViolations:     0.7,
		Toxicity:               1.2,
		BindingAffinity:        1.5,
		Solubility:             0.6,
	}
}

// WeightNames listet die Metrik-Namen in fester Reihenfolge.
var WeightNames = []string{
	"druglikeness",
	"synthetic_accessibility",
	"lipinski_violations",
	"toxicity",
	"binding_affinity",
	"solubility",
}

// Get liefert das Gewicht zu einem Metrik-Namen.
func (w OptimizationWeights) Get(name string) (float64, bool) {
	switch name {
	case "druglikeness":
		return w.Druglikeness, true
	case "synthetic_accessibility":
		return w.SyntheticAccessibility, true
	case "lipinski_violations":
		return w.LipinskiViolations, true
	case "toxicity":
		return w.Toxicity, true
	case "binding_affinity":
		return w.BindingAffinity, true
	case "solubility":
		return w.Solubility, true
	}
	return 0, false
}

// Set setzt ein einzelnes Gewicht und prüft dabei den erlaubten Bereich.
func (w *OptimizationWeights) Set(name string, v float64) error {
	if err := checkWeight(name, v); err != nil {
		return err
	}
	switch name {
	case "druglikeness":
		w.Druglikeness = v
	case "synthetic_accessibility":
		w.SyntheticAccessibility = v
	case "lipinski_violations":
		w.LipinskiViolations = v
	case "toxicity":
		w.Toxicity = v
	case "binding_affinity":
		w.BindingAffinity = v
	case "solubility":
		w.Solubility = v
	default:
		return fmt.Errorf("unbekanntes Gewicht %q", name)
	}
	return nil
}

// Validate prüft, dass alle Gewichte in [0, 2] liegen.
func (w OptimizationWeights) Validate() error {
	for _, name := range WeightNames {
		v, _ := w.Get(name)
		if err := checkWeight(name, v); err != nil {
			return err
		}
	}
	return nil
}

func checkWeight(name string, v float64) error {
	if math.IsNaN(v) || v < MinWeight || v > MaxWeight {
		return fmt.Errorf("gewicht %s=%v liegt nicht in [%.0f, %.0f]", name, v, MinWeight, MaxWeight)
	}
	return nil
}
