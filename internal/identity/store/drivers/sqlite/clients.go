package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
)

type clientsRepo struct {
	q querier
}

// clientRow is the flattened persisted shape of a client credential: one row
// with the set-valued fields comma-joined and both settings maps as JSON
// text. This layout is the interoperability contract with existing data.
type clientRow struct {
	ID                    string
	ClientID              string
	ClientSecret          string
	ClientName            string
	AuthenticationMethods string
	GrantTypes            string
	RedirectURIs          string
	Scopes                string
	ClientSettings        string
	TokenSettings         string
	CreatedAt             time.Time
	SecretExpiresAt       sql.NullTime
}

// encodeClient flattens a structured credential into its row form.
func encodeClient(c domain.ClientCredential) (clientRow, error) {
	clientSettings, err := encodeSettings(c.ClientSettings)
	if err != nil {
		return clientRow{}, err
	}
	tokenSettings, err := encodeSettings(c.TokenSettings)
	if err != nil {
		return clientRow{}, err
	}

	return clientRow{
		ID:                    c.ID,
		ClientID:              c.ClientID,
		ClientSecret:          c.ClientSecret,
		ClientName:            c.Name,
		AuthenticationMethods: joinList(c.AuthenticationMethods),
		GrantTypes:            joinList(c.GrantTypes),
		RedirectURIs:          joinList(c.RedirectURIs),
		Scopes:                joinList(c.Scopes),
		ClientSettings:        clientSettings,
		TokenSettings:         tokenSettings,
		CreatedAt:             c.CreatedAt,
		SecretExpiresAt:       mapOptionalTime(c.SecretExpiresAt),
	}, nil
}

// decodeClient rebuilds the structured credential from its row form,
// including the heuristic type-recovery pass over both settings maps.
func decodeClient(row clientRow) (domain.ClientCredential, error) {
	clientSettings, err := decodeSettings(row.ClientSettings)
	if err != nil {
		return domain.ClientCredential{}, err
	}
	tokenSettings, err := decodeSettings(row.TokenSettings)
	if err != nil {
		return domain.ClientCredential{}, err
	}

	return domain.ClientCredential{
		ID:                    row.ID,
		ClientID:              row.ClientID,
		ClientSecret:          row.ClientSecret,
		Name:                  row.ClientName,
		AuthenticationMethods: splitList(row.AuthenticationMethods),
		GrantTypes:            splitList(row.GrantTypes),
		RedirectURIs:          splitList(row.RedirectURIs),
		Scopes:                splitList(row.Scopes),
		ClientSettings:        clientSettings,
		TokenSettings:         tokenSettings,
		CreatedAt:             row.CreatedAt,
		SecretExpiresAt:       mapNullTimePtr(row.SecretExpiresAt),
	}, nil
}

const clientColumns = `id, client_id, client_secret, client_name,
	authentication_methods, grant_types, redirect_uris, scopes,
	client_settings, token_settings, created_at, secret_expires_at`

func (r *clientsRepo) SaveClient(ctx context.Context, c domain.ClientCredential) error {
	row, err := encodeClient(c)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO registered_clients (`+clientColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.ClientID, row.ClientSecret, row.ClientName,
		row.AuthenticationMethods, row.GrantTypes, row.RedirectURIs, row.Scopes,
		row.ClientSettings, row.TokenSettings, row.CreatedAt, row.SecretExpiresAt,
	)
	return mapAlreadyExists(err)
}

func (r *clientsRepo) GetClientByClientID(ctx context.Context, clientID string) (domain.ClientCredential, error) {
	return r.getClient(ctx,
		`SELECT `+clientColumns+` FROM registered_clients WHERE client_id = ?`, clientID)
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.ClientCredential, error) {
	return r.getClient(ctx,
		`SELECT `+clientColumns+` FROM registered_clients WHERE id = ?`, id)
}

func (r *clientsRepo) getClient(ctx context.Context, query, arg string) (domain.ClientCredential, error) {
	var row clientRow
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&row.ID, &row.ClientID, &row.ClientSecret, &row.ClientName,
		&row.AuthenticationMethods, &row.GrantTypes, &row.RedirectURIs, &row.Scopes,
		&row.ClientSettings, &row.TokenSettings, &row.CreatedAt, &row.SecretExpiresAt,
	)
	if err != nil {
		return domain.ClientCredential{}, mapNotFound(err)
	}
	return decodeClient(row)
}
