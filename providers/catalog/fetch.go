package catalog

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"molgenx/config"
	"molgenx/models"
	"molgenx/services"
)

// Ergebnisgröße einer Demo-Suche.
const (
	minResults = 3
	maxResults = 6
)

// Fetcher implementiert das Provider-Interface für den Demo-Katalog.
type Fetcher struct {
	Logger *zap.Logger
	Delay  time.Duration

	mu         sync.Mutex
	rng        *rand.Rand
	normalizer *services.CompoundNormalizer
}

// NewFetcher erstellt einen neuen Katalog-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Logger:     logger,
		Delay:      cfg.CatalogDelay,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		normalizer: services.NewCompoundNormalizer(nil),
	}
}

// WithRand setzt eine deterministische Zufallsquelle (Tests).
func (f *Fetcher) WithRand(r *rand.Rand) *Fetcher {
	f.rng = r
	return f
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "catalog"
}

// Search liefert eine zufällige Auswahl von 3 bis 6 Katalog-Compounds nach optionaler Verzögerung.
func (f *Fetcher) Search(ctx context.Context, proteinKey string) ([]models.Compound, error) {
	log := f.Logger.With(zap.String("protein", proteinKey))
	log.Info("Starte Suche im Demo-Katalog.")

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	order := f.rng.Perm(len(mockCompounds))
	n := minResults + f.rng.Intn(maxResults-minResults+1)
	f.mu.Unlock()

	compounds := make([]models.Compound, 0, n)
	for _, idx := range order[:n] {
		compounds = append(compounds, f.normalizer.Normalize(mockCompounds[idx]))
	}

	log.Info("Suche im Demo-Katalog abgeschlossen", zap.Int("found_compounds", len(compounds)))
	return compounds, nil
}
