package domain

import "time"

// ClientCredential is a registered OAuth2-style client. The set-valued fields
// and the two settings maps are flattened by the store driver into a single
// row (comma-joined columns plus JSON blobs) and must round-trip losslessly.
type ClientCredential struct {
	ID                    string
	ClientID              string // external lookup key, unique
	ClientSecret          string // hashed or opaque, never plaintext at rest
	Name                  string
	AuthenticationMethods []string
	GrantTypes            []string
	RedirectURIs          []string
	Scopes                []string
	ClientSettings        map[string]any
	TokenSettings         map[string]any
	CreatedAt             time.Time
	SecretExpiresAt       *time.Time
}

// SigningAlgorithm identifies a JWS algorithm inside a settings map
// (e.g. "RS256"). Stored as its raw string value.
type SigningAlgorithm string

// TokenFormat is the wrapper shape some settings values take: a nested
// object carrying a single "value" key (e.g. {"value":"self-contained"}).
type TokenFormat struct {
	Value string
}
