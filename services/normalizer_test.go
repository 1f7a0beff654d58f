package services

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedID(id string) IDGenerator {
	return func() string { return id }
}

func TestNormalize_EmptyObjectGetsDefaults(t *testing.T) {
	c := NewCompoundNormalizer(fixedID("abc123xyz")).Normalize(map[string]any{})

	assert.Equal(t, "abc123xyz", c.ID)
	assert.Equal(t, "Compound-abc123xyz", c.Name)
	assert.Equal(t, "", c.Formula)
	assert.Equal(t, PlaceholderStructure, c.Structure)
	assert.Zero(t, c.MolecularWeight)
	assert.Zero(t, c.Toxicity)
	assert.Zero(t, c.Likeliness)
	assert.Zero(t, c.BindingAffinity)
	assert.Zero(t, c.SyntheticAccessibility)
	assert.Zero(t, c.LipinskiViolations)
	assert.Zero(t, c.Solubility)
}

func TestNormalize_NonObjectInput(t *testing.T) {
	n := NewCompoundNormalizer(fixedID("gen"))
	for _, raw := range []any{nil, 42, "text", []any{1, 2}, json.RawMessage(`[1,2]`), json.RawMessage(`{broken`)} {
		c := n.Normalize(raw)
		assert.Equal(t, "gen", c.ID)
		assert.Equal(t, PlaceholderStructure, c.Structure)
	}
}

func TestNormalize_OptimizedAliases(t *testing.T) {
	raw := map[string]any{
		"rank":   3,
		"name":   "X",
		"smiles": "CCO",
		"metrics": map[string]any{
			"druglikeness":            0.5,
			"toxicity":                1.2,
			"synthetic_accessibility": 3.1,
			"binding_affinity":        -7.4,
		},
		"visualization_url": "https://img/x.svg",
	}

	o := NewCompoundNormalizer(fixedID("unused")).NormalizeOptimized(raw)
	assert.Equal(t, "3", o.ID)
	assert.Equal(t, "X", o.Name)
	assert.Equal(t, "CCO", o.Formula)
	assert.Equal(t, 0.5, o.Likeliness)
	assert.Equal(t, 1.2, o.Toxicity)
	assert.Equal(t, -7.4, o.BindingAffinity)
	assert.Equal(t, "https://img/x.svg", o.Structure)

	assert.Equal(t, 0.5, o.Metrics.Druglikeness)
	assert.Equal(t, 3.1, o.Metrics.SyntheticAccessibility)
	assert.Equal(t, -7.4, o.Metrics.BindingAffinity)
}

func TestNormalize_FlatKeysWinOverMetrics(t *testing.T) {
	raw := map[string]any{
		"id":         "c1",
		"likeliness": 0.9,
		"metrics":    map[string]any{"druglikeness": 0.1},
	}
	c := Normalize(raw)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, 0.9, c.Likeliness)
}

func TestNormalize_SmilesPreferredOverFormula(t *testing.T) {
	c := Normalize(map[string]any{"id": "1", "smiles": "c1ccccc1", "formula": "C6H6"})
	assert.Equal(t, "c1ccccc1", c.Formula)
}

func TestNormalize_NumericStringsAndGarbage(t *testing.T) {
	c := Normalize(map[string]any{
		"id":              "1",
		"toxicity":        "2.5",
		"likeliness":      "high",
		"molecularWeight": math.NaN(),
	})
	assert.Equal(t, 2.5, c.Toxicity)
	assert.Zero(t, c.Likeliness)
	assert.Zero(t, c.MolecularWeight)
}

func TestNormalize_DecodedJSONNumbers(t *testing.T) {
	v, err := TryNormalizeJSON([]byte(`{"rank": 12, "molecular_weight": 301.25}`))
	require.NoError(t, err)

	c := Normalize(v)
	assert.Equal(t, "12", c.ID)
	assert.Equal(t, 301.25, c.MolecularWeight)
}

func TestTryNormalizeJSON_RejectsTrailingData(t *testing.T) {
	for _, raw := range []string{`[] []`, `[{"rank":1}] not valid json[`, `{"id":"a"}}`, `1 2`} {
		_, err := TryNormalizeJSON([]byte(raw))
		assert.Error(t, err, raw)
	}

	v, err := TryNormalizeJSON([]byte(" [1] \n"))
	require.NoError(t, err)
	assert.Equal(t, []any{json.Number("1")}, v)
}

func TestNormalize_RawMessage(t *testing.T) {
	c := Normalize(json.RawMessage(`{"id":"r1","name":"Raw"}`))
	assert.Equal(t, "r1", c.ID)
	assert.Equal(t, "Raw", c.Name)
}

func TestRandomID(t *testing.T) {
	a, b := RandomID(), RandomID()
	assert.Len(t, a, 9)
	assert.NotEqual(t, a, b)
}

func TestNormalize_RoundTripFlatAPICompound(t *testing.T) {
	raw := map[string]any{
		"rank":             3,
		"name":             "X",
		"smiles":           "C1=CC=CC=C1",
		"druglikeness":     0.8,
		"toxicity":         1.2,
		"binding_affinity": 5.0,
	}

	c := NewCompoundNormalizer(fixedID("unused")).Normalize(raw)
	assert.Equal(t, "3", c.ID)
	assert.Equal(t, "X", c.Name)
	assert.Equal(t, "C1=CC=CC=C1", c.Formula)
	assert.Equal(t, 0.8, c.Likeliness)
	assert.Equal(t, 1.2, c.Toxicity)
	assert.Equal(t, 5.0, c.BindingAffinity)
	assert.Zero(t, c.MolecularWeight)
	assert.Equal(t, PlaceholderStructure, c.Structure)
}
