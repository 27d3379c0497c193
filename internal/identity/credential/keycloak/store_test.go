package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"servicehub/backend/internal/identity/credential"
	"servicehub/backend/internal/platform/logging"
)

const (
	testClientID     = "servicehub-api"
	testClientSecret = "s3cret"
	adminToken       = "admin-token"
)

type fakeUser struct {
	id, email, password, displayName string
	verified                         bool
}

// fakeRealm serves the subset of the Keycloak API the store uses.
type fakeRealm struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	users  map[string]*fakeUser
	nextID int
	// failAdmin makes admin endpoints answer 503.
	failAdmin bool
	// badNameClaim makes userinfo send a non-string name claim.
	badNameClaim bool
}

func newFakeRealm(t *testing.T) *fakeRealm {
	t.Helper()
	r := &fakeRealm{t: t, users: make(map[string]*fakeUser)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /realms/test/.well-known/openid-configuration", r.discovery)
	mux.HandleFunc("POST /realms/test/protocol/openid-connect/token", r.token)
	mux.HandleFunc("GET /realms/test/protocol/openid-connect/userinfo", r.userinfo)
	mux.HandleFunc("POST /admin/realms/test/users", r.createUser)
	mux.HandleFunc("DELETE /admin/realms/test/users/{id}", r.deleteUser)
	r.srv = httptest.NewServer(mux)
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRealm) issuer() string { return r.srv.URL + "/realms/test" }

func (r *fakeRealm) discovery(w http.ResponseWriter, _ *http.Request) {
	base := r.issuer() + "/protocol/openid-connect"
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                r.issuer(),
		"authorization_endpoint":                base + "/auth",
		"token_endpoint":                        base + "/token",
		"userinfo_endpoint":                     base + "/userinfo",
		"jwks_uri":                              base + "/certs",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (r *fakeRealm) clientOK(req *http.Request) bool {
	if id, secret, ok := req.BasicAuth(); ok {
		return id == testClientID && secret == testClientSecret
	}
	return req.PostForm.Get("client_id") == testClientID && req.PostForm.Get("client_secret") == testClientSecret
}

func (r *fakeRealm) token(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil || !r.clientOK(req) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	switch req.PostForm.Get("grant_type") {
	case "client_credentials":
		writeJSON(w, http.StatusOK, map[string]any{"access_token": adminToken, "token_type": "Bearer", "expires_in": 60})
	case "password":
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, u := range r.users {
			if u.email == req.PostForm.Get("username") && u.password == req.PostForm.Get("password") {
				writeJSON(w, http.StatusOK, map[string]any{"access_token": "user-" + u.id, "token_type": "Bearer", "expires_in": 300})
				return
			}
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_grant", "error_description": "Invalid user credentials"})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (r *fakeRealm) userinfo(w http.ResponseWriter, req *http.Request) {
	token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[strings.TrimPrefix(token, "user-")]
	if !ok || !strings.HasPrefix(token, "user-") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	claims := map[string]any{
		"sub":            u.id,
		"email":          u.email,
		"email_verified": u.verified,
		"display_name":   u.displayName,
	}
	if r.badNameClaim {
		claims["name"] = 42
	}
	writeJSON(w, http.StatusOK, claims)
}

func (r *fakeRealm) setFailAdmin(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAdmin = v
}

func (r *fakeRealm) user(id string) *fakeUser {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

func (r *fakeRealm) adminOK(w http.ResponseWriter, req *http.Request) bool {
	r.mu.Lock()
	fail := r.failAdmin
	r.mu.Unlock()
	if fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		return false
	}
	if req.Header.Get("Authorization") != "Bearer "+adminToken {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (r *fakeRealm) createUser(w http.ResponseWriter, req *http.Request) {
	if !r.adminOK(w, req) {
		return
	}
	var body userRepresentation
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.email == body.Email {
			writeJSON(w, http.StatusConflict, map[string]string{"errorMessage": "User exists with same email"})
			return
		}
	}
	if len(body.Credentials) != 1 || body.Credentials[0].Type != "password" || body.Credentials[0].Temporary {
		r.t.Errorf("credentials = %+v, want one non-temporary password", body.Credentials)
	}
	if !body.Enabled {
		r.t.Error("user should be created enabled")
	}
	r.nextID++
	id := "kc-" + string(rune('0'+r.nextID))
	u := &fakeUser{id: id, email: body.Email, password: body.Credentials[0].Value, verified: body.EmailVerified}
	if v := body.Attributes["display_name"]; len(v) == 1 {
		u.displayName = v[0]
	}
	r.users[id] = u
	w.Header().Set("Location", r.srv.URL+"/admin/realms/test/users/"+id)
	w.WriteHeader(http.StatusCreated)
}

func (r *fakeRealm) deleteUser(w http.ResponseWriter, req *http.Request) {
	if !r.adminOK(w, req) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := req.PathValue("id")
	if _, ok := r.users[id]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(r.users, id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestStore(t *testing.T) (*Store, *fakeRealm) {
	t.Helper()
	realm := newFakeRealm(t)
	s, err := New(context.Background(), Config{
		Issuer:       realm.issuer(),
		AdminBaseURL: realm.srv.URL + "/admin/realms/test",
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, realm
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{Issuer: "http://x"}); err == nil {
		t.Fatal("New should reject incomplete config")
	}
}

func TestNew_DiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := New(context.Background(), Config{
		Issuer: srv.URL + "/realms/test", AdminBaseURL: srv.URL + "/admin/realms/test",
		ClientID: testClientID, ClientSecret: testClientSecret,
	})
	if err == nil {
		t.Fatal("New should fail when discovery fails")
	}
}

func TestStore_CreateLoginVerifyDelete(t *testing.T) {
	s, realm := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateIdentity(ctx, credential.CreateIdentityParams{
		Email: "Ana@Example.com", Password: "pw-123456", DisplayName: "Ana Lopez", Confirmed: true,
	})
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if id.ID != "kc-1" || id.Email != "ana@example.com" {
		t.Fatalf("identity = %+v", id)
	}
	if u := realm.user("kc-1"); u == nil || !u.verified || u.displayName != "Ana Lopez" {
		t.Fatalf("realm user = %+v", u)
	}

	tok, err := s.PasswordAuthenticate(ctx, "ana@example.com", "pw-123456")
	if err != nil {
		t.Fatalf("PasswordAuthenticate: %v", err)
	}
	if tok.Token != "user-kc-1" || tok.TokenType != "Bearer" {
		t.Fatalf("token = %+v", tok)
	}
	if tok.ExpiresIn < 290 || tok.ExpiresIn > 300 {
		t.Errorf("ExpiresIn = %d, want about 300", tok.ExpiresIn)
	}

	got, err := s.VerifyToken(ctx, tok.Token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if got.ID != "kc-1" || got.Email != "ana@example.com" || !got.Confirmed || got.DisplayName != "Ana Lopez" {
		t.Errorf("VerifyToken = %+v", got)
	}

	if err := s.DeleteIdentity(ctx, "kc-1"); err != nil {
		t.Fatalf("DeleteIdentity: %v", err)
	}
	if _, err := s.VerifyToken(ctx, tok.Token); !errors.Is(err, credential.ErrInvalidToken) {
		t.Fatalf("VerifyToken after delete: want ErrInvalidToken, got %v", err)
	}
}

func TestStore_CreateIdentity_Conflict(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := credential.CreateIdentityParams{Email: "ana@example.com", Password: "pw"}
	if _, err := s.CreateIdentity(ctx, p); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if _, err := s.CreateIdentity(ctx, p); !errors.Is(err, credential.ErrEmailTaken) {
		t.Fatalf("duplicate: want ErrEmailTaken, got %v", err)
	}
}

func TestStore_AdminUnavailable(t *testing.T) {
	s, realm := newTestStore(t)
	realm.setFailAdmin(true)
	ctx := context.Background()
	if _, err := s.CreateIdentity(ctx, credential.CreateIdentityParams{Email: "a@b.co", Password: "pw"}); !errors.Is(err, credential.ErrProviderUnavailable) {
		t.Errorf("CreateIdentity: want ErrProviderUnavailable, got %v", err)
	}
	if err := s.DeleteIdentity(ctx, "kc-1"); !errors.Is(err, credential.ErrProviderUnavailable) {
		t.Errorf("DeleteIdentity: want ErrProviderUnavailable, got %v", err)
	}
}

func TestStore_DeleteIdentity_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.DeleteIdentity(context.Background(), "missing"); !errors.Is(err, credential.ErrIdentityNotFound) {
		t.Fatalf("want ErrIdentityNotFound, got %v", err)
	}
}

func TestStore_PasswordAuthenticate_InvalidGrant(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.PasswordAuthenticate(context.Background(), "nobody@example.com", "pw"); !errors.Is(err, credential.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestStore_VerifyToken_Rejected(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.VerifyToken(context.Background(), "forged"); !errors.Is(err, credential.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestStore_ProviderDown(t *testing.T) {
	s, realm := newTestStore(t)
	realm.srv.Close()
	ctx := context.Background()
	if _, err := s.PasswordAuthenticate(ctx, "a@b.co", "pw"); !errors.Is(err, credential.ErrProviderUnavailable) {
		t.Errorf("PasswordAuthenticate: want ErrProviderUnavailable, got %v", err)
	}
	if _, err := s.VerifyToken(ctx, "user-kc-1"); !errors.Is(err, credential.ErrInvalidToken) {
		t.Errorf("VerifyToken: want ErrInvalidToken, got %v", err)
	}
}

func TestStore_VerifyToken_UndecodableClaims(t *testing.T) {
	realm := newFakeRealm(t)
	var buf bytes.Buffer
	s, err := New(context.Background(), Config{
		Issuer:       realm.issuer(),
		AdminBaseURL: realm.srv.URL + "/admin/realms/test",
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
		Logger:       logging.New(&buf, "debug"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	realm.mu.Lock()
	realm.users["kc-9"] = &fakeUser{id: "kc-9", email: "eva@example.com", displayName: "Eva", verified: true}
	realm.badNameClaim = true
	realm.mu.Unlock()

	got, err := s.VerifyToken(context.Background(), "user-kc-9")
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if got.ID != "kc-9" || got.Email != "eva@example.com" {
		t.Errorf("identity = %+v", got)
	}
	if got.DisplayName != "" {
		t.Errorf("DisplayName = %q, want empty when claims cannot be decoded", got.DisplayName)
	}
	if !strings.Contains(buf.String(), "keycloak.userinfo_claims_invalid") {
		t.Errorf("debug record missing: %s", buf.String())
	}
}
