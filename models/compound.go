package models

// Compound repräsentiert ein Kandidatenmolekül aus Suche oder Optimierung.
// Alle numerischen Felder sind immer gesetzt (Default 0).
type Compound struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Summenformel oder SMILES, je nach Quelle
	Formula         string  `json:"formula"`
	MolecularWeight float64 `json:"molecularWeight"`
	Toxicity        float64 `json:"toxicity"`
	Likeliness      float64 `json:"likeliness"`
	BindingAffinity float64 `json:"binding_affinity"`
	Structure       string  `json:"structure"`

	SyntheticAccessibility float64 `json:"synthetic_accessibility"`
	LipinskiViolations     float64 `json:"lipinski_violations"`
	Solubility             float64 `json:"solubility"`
}

// Base gibt das Compound selbst zurück, damit Compound und OptimizedCompound
// gemeinsam gefiltert werden können.
func (c Compound) Base() Compound { return c }

// Metrics ist die redundante Metrik-Sicht eines optimierten Compounds für das Detail-Panel.
type Metrics struct {
	Druglikeness           float64 `json:"druglikeness"`
	SyntheticAccessibility float64 `json:"synthetic_accessibility"`
	LipinskiViolations     float64 `json:"lipinski_violations"`
	Toxicity               float64 `json:"toxicity"`
	BindingAffinity        float64 `json:"binding_affinity"`
	Solubility             float64 `json:"solubility"`
}

// OptimizedCompound ist ein Compound mit zusätzlicher Metrik-Sicht.
type OptimizedCompound struct {
	Compound
	Metrics Metrics `json:"metrics"`
}

// Base gibt das eingebettete Compound zurück.
func (o OptimizedCompound) Base() Compound { return o.Compound }

// Compoundish wird von allen Typen erfüllt, die ein Compound tragen.
type Compoundish interface {
	Base() Compound
}
