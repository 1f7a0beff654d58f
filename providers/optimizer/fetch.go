package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"molgenx/config"
	"molgenx/models"
	"molgenx/services"
)

const userAgent = "molgenx/1.0 (compound optimizer client)"

// Fetcher schickt Optimierungs-Requests an das Backend unter BaseURL.
type Fetcher struct {
	BaseURL string
	Logger  *zap.Logger

	client     *resty.Client
	normalizer *services.CompoundNormalizer
}

// NewFetcher erstellt einen neuen Optimierungs-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	baseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	client := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	return &Fetcher{
		BaseURL:    baseURL,
		Logger:     logger,
		client:     client,
		normalizer: services.NewCompoundNormalizer(nil),
	}
}

// WithNormalizer ersetzt den Normalizer, z.B. für deterministische IDs in Tests.
func (f *Fetcher) WithNormalizer(n *services.CompoundNormalizer) *Fetcher {
	f.normalizer = n
	return f
}

// RequestOptimization führt genau einen POST gegen /api/optimize aus.
// Eine unlesbare Antwort ist kein Fehler, sondern ein Ergebnis mit Malformed=true.
func (f *Fetcher) RequestOptimization(ctx context.Context, proteinKey string, weights models.OptimizationWeights) (*services.OptimizationResult, error) {
	key := strings.TrimSpace(proteinKey)
	if key == "" {
		requestsTotal.WithLabelValues(outcomeInvalidInput).Inc()
		return nil, services.InvalidInputf("protein key is empty")
	}

	log := f.Logger.With(zap.String("protein", key), zap.String("base_url", f.BaseURL))
	log.Info("Starte Optimierung.")

	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(Request{Protein: key, Weights: weights}).
		Post(optimizePath)
	requestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		requestsTotal.WithLabelValues(outcomeNetworkError).Inc()
		log.Error("Optimierungs-Backend nicht erreichbar", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", services.ErrNetwork, err)
	}

	if !resp.IsSuccess() {
		requestsTotal.WithLabelValues(outcomeRequestFailed).Inc()
		log.Error("Optimierungs-Backend antwortet mit Fehler",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", truncate(resp.String(), 500)))
		return nil, &services.RequestFailedError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	result := f.parseResponse(resp.Body())
	if result.Malformed {
		requestsTotal.WithLabelValues(outcomeMalformed).Inc()
		log.Warn("Antwort des Optimierungs-Backends nicht lesbar", zap.Strings("issues", result.Issues))
		return result, nil
	}

	requestsTotal.WithLabelValues(outcomeSuccess).Inc()
	log.Info("Optimierung abgeschlossen",
		zap.Int("optimized_compounds", len(result.Compounds)),
		zap.Int("optimized_variants", len(result.Variants)))
	return result, nil
}

// parseResponse liest den Body tolerant. optimized_compounds ist Pflicht,
// optimized_variants optional.
func (f *Fetcher) parseResponse(body []byte) *services.OptimizationResult {
	result := &services.OptimizationResult{
		Compounds: []models.OptimizedCompound{},
		Variants:  []models.OptimizedCompound{},
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return malformed(result, "empty response body")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return malformed(result, fmt.Sprintf("response is not a JSON object: %v", err))
	}

	items, err := decodeArray(fields[fieldCompounds])
	if err != nil {
		return malformed(result, fmt.Sprintf("%s: %v", fieldCompounds, err))
	}
	for _, item := range items {
		result.Compounds = append(result.Compounds, f.normalizer.NormalizeOptimized(item))
	}
	result.Explanation = decodeString(fields[fieldExplanation])

	if raw, ok := fields[fieldVariants]; ok && !isNull(raw) {
		variants, err := decodeArray(raw)
		if err != nil {
			// Varianten sind optional; die Hauptliste bleibt gültig.
			result.Issues = append(result.Issues, fmt.Sprintf("%s: %v", fieldVariants, err))
		} else {
			for _, item := range variants {
				result.Variants = append(result.Variants, f.normalizer.NormalizeOptimized(item))
			}
		}
	}
	result.VariantsExplanation = decodeString(fields[fieldVariantsExplanation])

	return result
}

func malformed(result *services.OptimizationResult, issue string) *services.OptimizationResult {
	result.Malformed = true
	result.Issues = append(result.Issues, issue)
	result.Compounds = []models.OptimizedCompound{}
	result.Variants = []models.OptimizedCompound{}
	return result
}

// decodeArray akzeptiert ein JSON-Array oder einen String, der ein Array enthält.
// Der String wird genau einmal dekodiert.
func decodeArray(raw json.RawMessage) ([]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return nil, fmt.Errorf("field missing")
	}

	switch raw[0] {
	case '[':
		return toArray(raw)
	case '"':
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("invalid string: %w", err)
		}
		return toArray([]byte(inner))
	}
	return nil, fmt.Errorf("expected array or encoded array")
}

func toArray(raw []byte) ([]any, error) {
	v, err := services.TryNormalizeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	return arr, nil
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
