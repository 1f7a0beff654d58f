package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"molgenx/config"
	"molgenx/services"
)

// ObjectPutter ist der Teil des S3-Clients, den der Export braucht.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client erstellt einen S3-Client für einen S3-kompatiblen Export-Speicher.
func NewS3Client(cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.ExportS3URL,
				SigningRegion:     cfg.ExportS3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.ExportS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ExportS3Key, cfg.ExportS3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// ExportDocument ist der Inhalt einer exportierten Ergebnisliste.
type ExportDocument struct {
	Session     string            `json:"session"`
	Protein     string            `json:"protein"`
	Source      services.Selector `json:"source"`
	ExportedAt  time.Time         `json:"exported_at"`
	Summary     services.Summary  `json:"summary"`
	Explanation string            `json:"explanation,omitempty"`
	Compounds   any               `json:"compounds"`
}

// ExportKey baut den Objekt-Schlüssel einer Exportdatei.
func ExportKey(sessionID string, at time.Time) string {
	return fmt.Sprintf("exports/%s/%s.json", sessionID, at.UTC().Format("20060102T150405Z"))
}

// ExportView lädt die aktuell angezeigte Liste einer Session als JSON hoch und gibt den Link zurück.
func ExportView(ctx context.Context, client ObjectPutter, cfg *config.Config, view services.SessionView, at time.Time) (string, error) {
	doc := ExportDocument{
		Session:     view.ID,
		Protein:     view.ProteinKey,
		Source:      view.Active,
		ExportedAt:  at.UTC(),
		Summary:     view.Summary,
		Explanation: view.Explanation,
		Compounds:   view.Compounds,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export serialisieren: %w", err)
	}
	return UploadFile(ctx, client, cfg.ExportS3Bucket, ExportKey(view.ID, at), data, cfg)
}

// UploadFile lädt eine Datei ins S3 hoch und gibt den Link zurück.
func UploadFile(ctx context.Context, client ObjectPutter, bucket, key string, data []byte, cfg *config.Config) (string, error) {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", err
	}
	link := fmt.Sprintf("%s/%s/%s", cfg.ExportS3URL, bucket, key)
	return link, nil
}
