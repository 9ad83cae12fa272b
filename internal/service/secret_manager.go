package service

import (
	"context"
	"fmt"

	"app/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SecretManagerService resolves provider credentials from GCP Secret
// Manager. In production the API keys live there instead of the
// environment; locally the env values win.
type SecretManagerService interface {
	GetSecret(ctx context.Context, name string) (string, error)
	LoadProviderKeys(ctx context.Context, cfg *config.Config) error
	Close() error
}

type secretManagerService struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretManagerService(ctx context.Context, cfg *config.Config) (SecretManagerService, error) {
	projectID := cfg.GetGCPProjectID()
	if projectID == "" {
		return nil, fmt.Errorf("GCP Project ID is not set for the current environment")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &secretManagerService{
		client:    client,
		projectID: projectID,
	}, nil
}

// GetSecret reads the latest version of a named secret.
func (s *secretManagerService) GetSecret(ctx context.Context, name string) (string, error) {
	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", name, err)
	}
	return string(result.Payload.Data), nil
}

// LoadProviderKeys overrides the config's provider credentials with
// Secret Manager values when the corresponding secrets exist. Missing
// secrets are not an error; the env value stays.
func (s *secretManagerService) LoadProviderKeys(ctx context.Context, cfg *config.Config) error {
	overrides := []struct {
		secret string
		target *string
	}{
		{"perplexity-api-key", &cfg.PerplexityAPIKey},
		{"youtube-api-key", &cfg.YouTubeAPIKey},
		{"stripe-secret-key", &cfg.StripeSecretKey},
		{"stripe-webhook-secret", &cfg.StripeWebhookSecret},
	}
	for _, o := range overrides {
		value, err := s.GetSecret(ctx, o.secret)
		if err != nil {
			continue
		}
		if value != "" {
			*o.target = value
		}
	}
	return nil
}

func (s *secretManagerService) Close() error {
	return s.client.Close()
}
