package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"molgenx/models"
)

// PlaceholderStructure wird verwendet, wenn die Quelle kein Strukturbild liefert.
const PlaceholderStructure = "https://placeholder.com/molecule.svg"

// IDGenerator erzeugt IDs für Compounds ohne eigene ID.
type IDGenerator func() string

// RandomID liefert ein zufälliges alphanumerisches Token mit 9 Zeichen.
func RandomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// Feld-Aliase der verschiedenen Antwortformate. Erster Treffer gewinnt;
// "metrics.x" adressiert das verschachtelte Objekt.
var (
	idKeys         = []string{"id", "rank"}
	formulaKeys    = []string{"smiles", "formula"}
	structureKeys  = []string{"visualization_url", "structure"}
	weightKeys     = []string{"molecularWeight", "molecular_weight", "metrics.molecular_weight", "metrics.molecularWeight"}
	likelinessKeys = []string{"likeliness", "druglikeness", "metrics.druglikeness", "metrics.likeliness"}
	toxicityKeys   = []string{"toxicity", "metrics.toxicity"}
	bindingKeys    = []string{"binding_affinity", "bindingAffinity", "metrics.binding_affinity"}
	synthKeys      = []string{"synthetic_accessibility", "metrics.synthetic_accessibility"}
	lipinskiKeys   = []string{"lipinski_violations", "metrics.lipinski_violations"}
	solubilityKeys = []string{"solubility", "metrics.solubility"}
)

// CompoundNormalizer bringt Roh-Objekte aus Mock-Daten oder API-Antworten in die Compound-Form.
type CompoundNormalizer struct {
	newID IDGenerator
}

// NewCompoundNormalizer erstellt einen Normalizer; gen == nil nutzt RandomID.
func NewCompoundNormalizer(gen IDGenerator) *CompoundNormalizer {
	if gen == nil {
		gen = RandomID
	}
	return &CompoundNormalizer{newID: gen}
}

var defaultNormalizer = NewCompoundNormalizer(nil)

// Normalize nutzt den Standard-Normalizer.
func Normalize(raw any) models.Compound {
	return defaultNormalizer.Normalize(raw)
}

// NormalizeOptimized nutzt den Standard-Normalizer.
func NormalizeOptimized(raw any) models.OptimizedCompound {
	return defaultNormalizer.NormalizeOptimized(raw)
}

// Normalize schlägt nie fehl: fehlende oder kaputte Felder werden mit Defaults belegt.
func (n *CompoundNormalizer) Normalize(raw any) models.Compound {
	obj := asObject(raw)

	id := firstString(obj, idKeys)
	if id == "" {
		id = n.newID()
	}
	name := firstString(obj, []string{"name"})
	if name == "" {
		name = "Compound-" + id
	}
	structure := firstString(obj, structureKeys)
	if structure == "" {
		structure = PlaceholderStructure
	}

	return models.Compound{
		ID:                     id,
		Name:                   name,
		Formula:                firstString(obj, formulaKeys),
		MolecularWeight:        firstNumber(obj, weightKeys),
		Toxicity:               firstNumber(obj, toxicityKeys),
		Likeliness:             firstNumber(obj, likelinessKeys),
		BindingAffinity:        firstNumber(obj, bindingKeys),
		Structure:              structure,
		SyntheticAccessibility: firstNumber(obj, synthKeys),
		LipinskiViolations:     firstNumber(obj, lipinskiKeys),
		Solubility:             firstNumber(obj, solubilityKeys),
	}
}

// NormalizeOptimized ergänzt die redundante Metrik-Sicht für das Detail-Panel.
func (n *CompoundNormalizer) NormalizeOptimized(raw any) models.OptimizedCompound {
	c := n.Normalize(raw)
	return models.OptimizedCompound{
		Compound: c,
		Metrics: models.Metrics{
			Druglikeness:           c.Likeliness,
			SyntheticAccessibility: c.SyntheticAccessibility,
			LipinskiViolations:     c.LipinskiViolations,
			Toxicity:               c.Toxicity,
			BindingAffinity:        c.BindingAffinity,
			Solubility:             c.Solubility,
		},
	}
}

// asObject macht aus beliebigem Input ein Objekt; alles Unbekannte wird zu {}.
func asObject(raw any) map[string]any {
	switch t := raw.(type) {
	case map[string]any:
		return t
	case json.RawMessage:
		return decodeObject(t)
	case []byte:
		return decodeObject(t)
	}
	return map[string]any{}
}

func decodeObject(raw []byte) map[string]any {
	v, err := TryNormalizeJSON(raw)
	if err != nil {
		return map[string]any{}
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// lookup löst "a.b" über verschachtelte Objekte auf.
func lookup(obj map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	var cur any = obj
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := lookup(obj, k)
		if !ok {
			continue
		}
		if s := toString(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(obj map[string]any, keys []string) float64 {
	for _, k := range keys {
		v, ok := lookup(obj, k)
		if !ok {
			continue
		}
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return 0
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// TryNormalizeJSON dekodiert rohes JSON in konkrete maps/slices; Zahlen bleiben json.Number.
// Nach dem Wert ist nur noch Whitespace erlaubt.
func TryNormalizeJSON(raw []byte) (any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}
