// Package catalog enthält den eingebauten Demo-Katalog für die Compound-Suche.
package catalog

const structureBase = "https://cdn.rcsb.org/images/structures/examples/"

// mockCompounds sind die Roh-Datensätze des Demo-Katalogs. Sie laufen wie API-Antworten durch den Normalizer.
var mockCompounds = []map[string]any{
	entry("c001", "Compound A", "C22H24N2O8", 445.43, 2.34, 0.87, "5fyi-assembly-1.png"),
	entry("c002", "Compound B", "C17H19NO3", 285.34, 3.15, 0.79, "7ehu-assembly-1.png"),
	entry("c003", "Compound C", "C21H30O2", 314.47, 4.56, 0.75, "7mj4-assembly-1.png"),
	entry("c004", "Compound D", "C15H11ClN2O", 270.72, 3.02, 0.68, "7rcc-assembly-1.png"),
	entry("c005", "Compound E", "C16H13ClN2O", 284.74, 3.18, 0.64, "7u32-assembly-1.png"),
	entry("c006", "Compound F", "C19H21NO4", 327.38, 2.76, 0.59, "8qw9-assembly-1.png"),
}

// entry baut einen Datensatz; die übrigen Metriken sind im Katalog für alle Einträge gleich.
func entry(id, name, formula string, weight, toxicity, likeliness float64, image string) map[string]any {
	return map[string]any{
		"id":                      id,
		"name":                    name,
		"formula":                 formula,
		"molecularWeight":         weight,
		"toxicity":                toxicity,
		"likeliness":              likeliness,
		"structure":               structureBase + image,
		"synthetic_accessibility": 10.0,
		"lipinski_violations":     4.0,
		"binding_affinity":        0.0,
		"solubility":              -5.0,
	}
}

// Size ist die Anzahl der Einträge im Demo-Katalog.
func Size() int { return len(mockCompounds) }
