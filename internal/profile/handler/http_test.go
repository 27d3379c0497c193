package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	identitydomain "servicehub/backend/internal/identity/domain"
	"servicehub/backend/internal/platform/logging"
	"servicehub/backend/internal/profile/domain"
	"servicehub/backend/internal/server/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

type memRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Profile
	err     error
	lastLim int
	lastOff int
}

func newMemRepo(ps ...*domain.Profile) *memRepo {
	r := &memRepo{byID: map[string]*domain.Profile{}}
	for _, p := range ps {
		r.byID[p.IdentityID] = p
	}
	return r
}

func (r *memRepo) Create(ctx context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.IdentityID] = p
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) List(ctx context.Context, limit, offset int) ([]*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLim, r.lastOff = limit, offset
	if r.err != nil {
		return nil, r.err
	}
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []*domain.Profile
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, r.byID[ids[i]])
	}
	return out, nil
}

func (r *memRepo) Update(ctx context.Context, p *domain.Profile) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.IdentityID]; !ok {
		return false, nil
	}
	r.byID[p.IdentityID] = p
	return true, nil
}

func (r *memRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

func profile(id string) *domain.Profile {
	return &domain.Profile{
		IdentityID:  id,
		DisplayName: "Ana",
		Surname1:    "García",
		BirthDate:   time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC),
		Email:       id + "@example.com",
	}
}

// withIdentity stands in for the access middleware.
func withIdentity(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != "" {
			c.Request = c.Request.WithContext(middleware.WithIdentity(c.Request.Context(), &identitydomain.Identity{ID: id}))
		}
		c.Next()
	}
}

func newRouter(repo *memRepo, caller string) *gin.Engine {
	h := NewHandler(repo, logging.Discard())
	h.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	r := gin.New()
	r.Use(withIdentity(caller))
	r.GET("/profiles", h.List)
	r.GET("/profiles/:id", h.Get)
	r.PUT("/profiles/:id", h.Update)
	r.DELETE("/profiles/:id", h.Delete)
	r.GET("/me", h.Me)
	r.GET("/users/:id/profile", h.OwnProfile)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestList_Pagination(t *testing.T) {
	repo := newMemRepo(profile("a"), profile("b"), profile("c"))
	r := newRouter(repo, "")

	w := do(r, http.MethodGet, "/profiles?limit=2&offset=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if len(body["profiles"].([]any)) != 2 {
		t.Errorf("profiles = %v", body["profiles"])
	}

	do(r, http.MethodGet, "/profiles", "")
	if repo.lastLim != 20 || repo.lastOff != 0 {
		t.Errorf("default limit/offset = %d/%d, want 20/0", repo.lastLim, repo.lastOff)
	}
	do(r, http.MethodGet, "/profiles?limit=1000", "")
	if repo.lastLim != 100 {
		t.Errorf("limit cap = %d, want 100", repo.lastLim)
	}
	for _, q := range []string{"limit=0", "limit=x", "offset=-1"} {
		if w := do(r, http.MethodGet, "/profiles?"+q, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}

func TestList_Empty(t *testing.T) {
	w := do(newRouter(newMemRepo(), ""), http.MethodGet, "/profiles", "")
	if !strings.Contains(w.Body.String(), `"profiles":[]`) {
		t.Errorf("body = %s, want empty array", w.Body.String())
	}
}

func TestGet(t *testing.T) {
	r := newRouter(newMemRepo(profile("a")), "")
	w := do(r, http.MethodGet, "/profiles/a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["identityId"] != "a" || body["birthDate"] != "1990-04-12" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["surname2"]; ok {
		t.Error("absent surname2 should be omitted")
	}
	if w := do(r, http.MethodGet, "/profiles/zzz", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", w.Code)
	}
}

func TestMe(t *testing.T) {
	repo := newMemRepo(profile("a"))
	if w := do(newRouter(repo, "a"), http.MethodGet, "/me", ""); w.Code != http.StatusOK {
		t.Errorf("own profile: status = %d", w.Code)
	}
	if w := do(newRouter(repo, "orphan"), http.MethodGet, "/me", ""); w.Code != http.StatusNotFound {
		t.Errorf("identity without profile: status = %d, want 404", w.Code)
	}
	if w := do(newRouter(repo, ""), http.MethodGet, "/me", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no identity: status = %d, want 401", w.Code)
	}
}

func TestOwnProfile(t *testing.T) {
	w := do(newRouter(newMemRepo(profile("a")), "a"), http.MethodGet, "/users/a/profile", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestUpdate(t *testing.T) {
	repo := newMemRepo(profile("a"))
	r := newRouter(repo, "b")

	w := do(r, http.MethodPut, "/profiles/a", `{"displayName":"Anabel","surname2":"Ruiz","birthDate":"1991-01-02"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	got := repo.byID["a"]
	if got.DisplayName != "Anabel" || got.Surname2 == nil || *got.Surname2 != "Ruiz" {
		t.Errorf("stored = %+v", got)
	}
	if got.BirthDate.Format(domain.BirthDateLayout) != "1991-01-02" {
		t.Errorf("birth date = %v", got.BirthDate)
	}
	if got.Email != "a@example.com" {
		t.Error("email must not change")
	}

	w = do(r, http.MethodPut, "/profiles/a", `{"surname2":""}`)
	if w.Code != http.StatusOK || repo.byID["a"].Surname2 != nil {
		t.Errorf("clearing surname2: status %d, surname2 %v", w.Code, repo.byID["a"].Surname2)
	}
}

func TestUpdate_Errors(t *testing.T) {
	r := newRouter(newMemRepo(profile("a")), "a")
	testCases := []struct {
		name, path, body string
		want             int
	}{
		{"bad json", "/profiles/a", `{`, 400},
		{"empty patch", "/profiles/a", `{}`, 400},
		{"blank display name", "/profiles/a", `{"displayName":"  "}`, 400},
		{"bad date", "/profiles/a", `{"birthDate":"01/02/1990"}`, 400},
		{"future date", "/profiles/a", `{"birthDate":"2099-01-01"}`, 400},
		{"missing", "/profiles/zzz", `{"displayName":"X"}`, 404},
	}
	for _, tc := range testCases {
		if w := do(r, http.MethodPut, tc.path, tc.body); w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestDelete(t *testing.T) {
	repo := newMemRepo(profile("a"))
	r := newRouter(repo, "a")
	if w := do(r, http.MethodDelete, "/profiles/a", ""); w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w := do(r, http.MethodDelete, "/profiles/a", ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", w.Code)
	}
}

func TestRepoError(t *testing.T) {
	repo := newMemRepo(profile("a"))
	repo.err = errors.New("db down")
	r := newRouter(repo, "a")
	for _, path := range []string{"/profiles", "/profiles/a", "/me"} {
		if w := do(r, http.MethodGet, path, ""); w.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want 500", path, w.Code)
		}
	}
}
