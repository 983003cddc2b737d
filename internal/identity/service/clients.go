package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
	"github.com/ironbark-dev/ironbark/internal/identity/store"
	"github.com/ironbark-dev/ironbark/pkg/cryptox"
	"github.com/ironbark-dev/ironbark/pkg/idx"
	"github.com/ironbark-dev/ironbark/pkg/slogx"
)

// ClientService manages client-credential registrations. Persistence flows
// through the store's flattening codec; this layer owns identity assignment
// and secret handling.
type ClientService struct {
	Store store.Store
}

// RegisterClientInput is the structured registration request.
type RegisterClientInput struct {
	ClientID              string
	Secret                string // plaintext; generated when empty
	Name                  string
	AuthenticationMethods []string
	GrantTypes            []string
	RedirectURIs          []string
	Scopes                []string
	ClientSettings        map[string]any
	TokenSettings         map[string]any
	SecretExpiresAt       *time.Time
}

// Register persists a new client credential. The plaintext secret is
// returned exactly once; only its argon2 hash is stored.
func (s *ClientService) Register(ctx context.Context, in RegisterClientInput) (clientID, plaintextSecret string, err error) {
	log := slogx.FromContext(ctx)

	if strings.TrimSpace(in.ClientID) == "" {
		return "", "", ErrInvalidInput
	}

	// 1. client_id is the external lookup key and must be unique.
	_, err = s.Store.Clients().GetClientByClientID(ctx, in.ClientID)
	if err == nil {
		return "", "", ErrClientIDTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check client_id availability", "error", err)
		return "", "", err
	}

	// 2. Generate a secret when the caller did not bring one.
	plaintextSecret = in.Secret
	if plaintextSecret == "" {
		plaintextSecret, err = cryptox.GenerateSecret(cryptox.SecretSize256)
		if err != nil {
			log.Error("failed to generate client secret", "error", err)
			return "", "", err
		}
	}

	secretHash, err := cryptox.HashPassword(plaintextSecret)
	if err != nil {
		log.Error("failed to hash client secret", "error", err)
		return "", "", err
	}

	credential := domain.ClientCredential{
		ID:                    idx.New().String(),
		ClientID:              in.ClientID,
		ClientSecret:          secretHash,
		Name:                  in.Name,
		AuthenticationMethods: in.AuthenticationMethods,
		GrantTypes:            in.GrantTypes,
		RedirectURIs:          in.RedirectURIs,
		Scopes:                in.Scopes,
		ClientSettings:        in.ClientSettings,
		TokenSettings:         in.TokenSettings,
		CreatedAt:             time.Now().UTC(),
		SecretExpiresAt:       in.SecretExpiresAt,
	}

	if err := s.Store.Clients().SaveClient(ctx, credential); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", "", ErrClientIDTaken
		}
		log.Error("failed to save client", "client_id", in.ClientID, "error", err)
		return "", "", err
	}

	log.Info("client registered", "client_id", in.ClientID, "id", credential.ID)
	return in.ClientID, plaintextSecret, nil
}

// FindByClientID fetches a registration by its external key. Absence is not
// an error here: the second return value reports whether it exists, and the
// caller decides what missing means.
func (s *ClientService) FindByClientID(ctx context.Context, clientID string) (domain.ClientCredential, bool, error) {
	credential, err := s.Store.Clients().GetClientByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ClientCredential{}, false, nil
		}
		return domain.ClientCredential{}, false, err
	}
	return credential, true, nil
}

// FindByID fetches a registration by internal id; absence is ErrNotFound.
func (s *ClientService) FindByID(ctx context.Context, id string) (domain.ClientCredential, error) {
	credential, err := s.Store.Clients().GetClientByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ClientCredential{}, ErrNotFound
		}
		return domain.ClientCredential{}, err
	}
	return credential, nil
}

// BootstrapClient describes the client seeded at startup so a fresh install
// has a working registration.
type BootstrapClient struct {
	ClientID    string
	Secret      string
	Name        string
	RedirectURI string
	AccessTTL   time.Duration
}

// Bootstrap registers the configured client if its client_id is not already
// present. Idempotent across restarts.
func (s *ClientService) Bootstrap(ctx context.Context, seed BootstrapClient) error {
	log := slogx.FromContext(ctx)

	if seed.ClientID == "" {
		return nil // nothing configured
	}

	_, found, err := s.FindByClientID(ctx, seed.ClientID)
	if err != nil {
		return err
	}
	if found {
		log.Debug("bootstrap client already registered", "client_id", seed.ClientID)
		return nil
	}

	_, _, err = s.Register(ctx, RegisterClientInput{
		ClientID:              seed.ClientID,
		Secret:                seed.Secret,
		Name:                  seed.Name,
		AuthenticationMethods: []string{"client_secret_basic"},
		GrantTypes:            []string{"authorization_code"},
		RedirectURIs:          []string{seed.RedirectURI},
		Scopes:                []string{"openid"},
		TokenSettings: map[string]any{
			"settings.token.access-token-time-to-live":    seed.AccessTTL,
			"settings.token.access-token-format":          domain.TokenFormat{Value: "self-contained"},
			"settings.token.id-token-signature-algorithm": domain.SigningAlgorithm("RS256"),
		},
	})
	if err != nil {
		return err
	}

	log.Info("bootstrap client registered", "client_id", seed.ClientID)
	return nil
}
