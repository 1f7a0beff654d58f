package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	// Optimierungs-Backend
	APIBaseURL     string        `envconfig:"API_BASE_URL" default:"http://localhost:5000"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`

	// any | pdb | strict
	ProteinKeyMode string `envconfig:"PROTEIN_KEY_MODE" default:"any"`

	// Demo-Katalog
	CatalogDelay time.Duration `envconfig:"CATALOG_DELAY" default:"0s"`

	SessionIdleTTL       time.Duration `envconfig:"SESSION_IDLE_TTL" default:"2h"`
	SessionSweepSchedule string        `envconfig:"SESSION_SWEEP_SCHEDULE" default:"@every 10m"`

	// Export der angezeigten Liste nach S3 (optional)
	ExportS3URL    string `envconfig:"EXPORT_S3_URL"`
	ExportS3Region string `envconfig:"EXPORT_S3_REGION" default:"eu-central-1"`
	ExportS3Bucket string `envconfig:"EXPORT_S3_BUCKET"`
	ExportS3Key    string `envconfig:"EXPORT_S3_KEY"`
	ExportS3Secret string `envconfig:"EXPORT_S3_SECRET"`
}

// ExportEnabled meldet, ob alle S3-Parameter für den Export gesetzt sind.
func (c *Config) ExportEnabled() bool {
	return c.ExportS3URL != "" && c.ExportS3Bucket != "" && c.ExportS3Key != "" && c.ExportS3Secret != ""
}

// Validate prüft Werte, die envconfig nicht selbst prüfen kann.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("API_BASE_URL darf nicht leer sein")
	}
	switch c.ProteinKeyMode {
	case "any", "pdb", "strict":
	default:
		return fmt.Errorf("unbekannter PROTEIN_KEY_MODE: %q", c.ProteinKeyMode)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT muss positiv sein")
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	return &c, c.Validate()
}
