// Package keycloak is the credential store backed by a Keycloak realm: the admin REST API
// creates and deletes users, the OIDC userinfo endpoint verifies bearer tokens and the
// resource-owner password grant performs logins.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"servicehub/backend/internal/identity/credential"
	"servicehub/backend/internal/identity/domain"
)

// Config configures the realm client. The service account of ClientID needs the
// realm-management manage-users role.
type Config struct {
	// Issuer is the realm issuer URL, e.g. https://sso.example.com/realms/servicehub.
	Issuer string
	// AdminBaseURL is the realm admin API root, e.g. https://sso.example.com/admin/realms/servicehub.
	AdminBaseURL string
	ClientID     string
	ClientSecret string
	// HTTPClient is shared by every call to Keycloak and carries the provider timeout.
	HTTPClient *http.Client
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store implements credential.Store against Keycloak.
type Store struct {
	provider  *oidc.Provider
	oauth     *oauth2.Config
	http      *http.Client
	admin     *http.Client
	adminBase string
	log       *slog.Logger
}

var _ credential.Store = (*Store)(nil)

// New discovers the realm's OIDC configuration and builds the admin client. It fails when the
// realm is unreachable so a misconfigured deployment stops at startup.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Issuer == "" || cfg.AdminBaseURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("keycloak: issuer, admin url, client id and client secret are required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("keycloak: discover %s: %w", cfg.Issuer, err)
	}
	endpoint := provider.Endpoint()

	sa := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     endpoint.TokenURL,
	}
	// The token source outlives ctx, so it gets its own background context.
	admin := sa.Client(context.WithValue(context.Background(), oauth2.HTTPClient, httpClient))
	admin.Timeout = httpClient.Timeout

	return &Store{
		provider: provider,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		http:      httpClient,
		admin:     admin,
		adminBase: strings.TrimRight(cfg.AdminBaseURL, "/"),
		log:       log,
	}, nil
}

type credentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type userRepresentation struct {
	Username      string                     `json:"username"`
	Email         string                     `json:"email"`
	Enabled       bool                       `json:"enabled"`
	EmailVerified bool                       `json:"emailVerified"`
	Attributes    map[string][]string        `json:"attributes,omitempty"`
	Credentials   []credentialRepresentation `json:"credentials,omitempty"`
}

// CreateIdentity creates an enabled realm user with a non-temporary password. The new id is
// read from the Location header of the 201 response.
func (s *Store) CreateIdentity(ctx context.Context, p credential.CreateIdentityParams) (*domain.Identity, error) {
	email := credential.NormalizeEmail(p.Email)
	user := userRepresentation{
		Username:      email,
		Email:         email,
		Enabled:       true,
		EmailVerified: p.Confirmed,
		Credentials:   []credentialRepresentation{{Type: "password", Value: p.Password}},
	}
	if p.DisplayName != "" {
		user.Attributes = map[string][]string{"display_name": {p.DisplayName}}
	}
	body, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.adminBase+"/users", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.admin.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", credential.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusConflict:
		return nil, credential.ErrEmailTaken
	default:
		return nil, statusError("create user", resp)
	}

	loc := resp.Header.Get("Location")
	id := path.Base(loc)
	if loc == "" || id == "." || id == "/" {
		return nil, errors.New("keycloak: create user: response has no Location")
	}
	return &domain.Identity{
		ID:          id,
		Email:       email,
		DisplayName: p.DisplayName,
		Confirmed:   p.Confirmed,
		Provider:    domain.ProviderKeycloak,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// DeleteIdentity deletes the realm user.
func (s *Store) DeleteIdentity(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.adminBase+"/users/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	resp, err := s.admin.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", credential.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return credential.ErrIdentityNotFound
	default:
		return statusError("delete user", resp)
	}
}

// VerifyToken calls the userinfo endpoint with token. The realm decides validity, so a
// revoked session or disabled user is rejected on the next request.
func (s *Store) VerifyToken(ctx context.Context, token string) (*domain.Identity, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	info, err := s.provider.UserInfo(oidc.ClientContext(ctx, s.http), ts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", credential.ErrInvalidToken, err)
	}
	if info.Subject == "" {
		return nil, credential.ErrInvalidToken
	}
	var claims struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
	}
	var name string
	if err := info.Claims(&claims); err != nil {
		// The subject is already verified; only the display name is lost.
		s.log.DebugContext(ctx, "keycloak.userinfo_claims_invalid", slog.String("subject", info.Subject), slog.Any("error", err))
	} else {
		name = claims.DisplayName
		if name == "" {
			name = claims.Name
		}
	}
	return &domain.Identity{
		ID:          info.Subject,
		Email:       info.Email,
		DisplayName: name,
		Confirmed:   info.EmailVerified,
		Provider:    domain.ProviderKeycloak,
	}, nil
}

// PasswordAuthenticate runs the resource-owner password grant for email and password.
func (s *Store) PasswordAuthenticate(ctx context.Context, email, password string) (*domain.AccessToken, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.http)
	tok, err := s.oauth.PasswordCredentialsToken(ctx, credential.NormalizeEmail(email), password)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil &&
			(rerr.Response.StatusCode == http.StatusBadRequest || rerr.Response.StatusCode == http.StatusUnauthorized) {
			return nil, credential.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", credential.ErrProviderUnavailable, err)
	}
	var expiresIn int64
	if !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	tokenType := tok.Type()
	return &domain.AccessToken{Token: tok.AccessToken, TokenType: tokenType, ExpiresIn: expiresIn}, nil
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("keycloak: %s: %s: %s", op, resp.Status, strings.TrimSpace(string(msg)))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %v", credential.ErrProviderUnavailable, err)
	}
	return err
}
