// Package optimizer kapselt den Request/Response-Zyklus zum Optimierungs-Backend.
package optimizer

import "molgenx/models"

// optimizePath ist der Endpunkt relativ zur Basis-URL.
const optimizePath = "/api/optimize"

// Request ist der JSON-Body von POST /api/optimize.
type Request struct {
	Protein string                     `json:"protein"`
	Weights models.OptimizationWeights `json:"weights"`
}

// Felder der Antwort. optimized_compounds und optimized_variants kommen entweder
// als Array oder als JSON-String, der ein Array enthält.
const (
	fieldCompounds           = "optimized_compounds"
	fieldExplanation         = "explanation"
	fieldVariants            = "optimized_variants"
	fieldVariantsExplanation = "variants_explanation"
)
