package providers

import (
	"context"

	"molgenx/models"
)

// Provider ist das Interface, das jede Compound-Suche (z.B. Demo-Katalog) implementieren muss.
type Provider interface {
	// Search sucht Compounds zu einer Proteinsequenz oder einem Identifier und gibt normalisierte Compounds zurück.
	Search(ctx context.Context, proteinKey string) ([]models.Compound, error)

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "catalog").
	Name() string
}
