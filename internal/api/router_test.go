package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/furqan899/safelift-ai/internal/api"
	mw "github.com/furqan899/safelift-ai/internal/api/middleware"
	"github.com/furqan899/safelift-ai/internal/cache"
	"github.com/furqan899/safelift-ai/internal/store"
	"github.com/furqan899/safelift-ai/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// stubStore serves API key lookups from a fixed slice. Anything else panics
// through the embedded nil interface, which is fine: the router tests only
// exercise the auth path.
type stubStore struct {
	store.Store

	keys []*models.APIKey
}

func (s *stubStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *stubStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

type stubCache struct {
	cache.Cache
}

func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// mintKey returns a raw key and the stored record that authenticates it.
func mintKey(t *testing.T, scopes ...string) (string, *models.APIKey) {
	t.Helper()
	rawKey := "slk_" + uuid.New().String()
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.MinCost)
	require.NoError(t, err)
	return rawKey, &models.APIKey{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Name:      "test",
		KeyHash:   string(hash),
		KeyPrefix: rawKey[:8],
		Scopes:    scopes,
	}
}

func newTestRouter(st store.Store, mediaRoot string) http.Handler {
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(st),
		RateLimit: mw.NewRateLimit(&stubCache{}, 60),
		MediaRoot: mediaRoot,
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	})
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter(&stubStore{}, "")

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter(&stubStore{}, "")

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/knowledge-base/entries"},
		{"POST", "/api/v1/knowledge-base/entries"},
		{"POST", "/api/v1/knowledge-base/search"},
		{"GET", "/api/v1/knowledge-base/stats"},
		{"POST", "/api/v1/exports/"},
		{"GET", "/api/v1/exports/"},
		{"GET", "/api/v1/exports/stats"},
		{"GET", "/api/v1/dashboard/metrics"},
		{"POST", "/api/v1/admin/keys"},
		{"GET", "/api/v1/admin/keys"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_AdminRoutes_RequireAdminScope(t *testing.T) {
	rawKey, key := mintKey(t, "read")
	router := newTestRouter(&stubStore{keys: []*models.APIKey{key}}, "")

	req := httptest.NewRequest("GET", "/api/v1/admin/keys", nil)
	req.Header.Set("Authorization", "Bearer "+rawKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "FORBIDDEN", errObj["code"])
}

func TestRouter_AdminScope_ReachesHandler(t *testing.T) {
	rawKey, key := mintKey(t, "read", "admin")
	router := newTestRouter(&stubStore{keys: []*models.APIKey{key}}, "")

	req := httptest.NewRequest("GET", "/api/v1/admin/keys", nil)
	req.Header.Set("Authorization", "Bearer "+rawKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// No handler wired in this test, so reaching the 501 placeholder proves
	// the scope check passed.
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_MediaFiles_Served(t *testing.T) {
	mediaRoot := t.TempDir()
	dir := filepath.Join(mediaRoot, "exports", "abc")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conversations.csv"), []byte("id\n1\n"), 0o644))

	router := newTestRouter(&stubStore{}, mediaRoot)

	req := httptest.NewRequest("GET", "/media/exports/abc/conversations.csv", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id\n1\n", w.Body.String())
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(&stubStore{}, "")

	req := httptest.NewRequest("GET", "/api/v1/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
