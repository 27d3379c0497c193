package domain

import "time"

// Identity is an authentication identity owned by a credential store. The password
// never leaves the store.
type Identity struct {
	// ID is the opaque provider-assigned id. Profiles are keyed by it.
	ID          string
	Email       string
	DisplayName string
	Confirmed   bool
	Provider    Provider
	CreatedAt   time.Time
}

// Provider names the credential store that owns an identity.
type Provider string

const (
	ProviderLocal    Provider = "local"
	ProviderKeycloak Provider = "keycloak"
)

// AccessToken is the result of a successful password login. The token is opaque to
// everything except the credential store that issued it.
type AccessToken struct {
	Token     string
	TokenType string
	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int64
}
