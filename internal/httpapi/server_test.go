package httpapi

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/larkspur-labs/subproxy/internal/config"
)

func newTestSettingsStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.NewStore(filepath.Join(t.TempDir(), "settings.json"), config.Settings{
		Catalog:   config.CatalogConfig{BaseURL: "https://api.example.com", APIKey: "secret-key"},
		LLM:       config.LLMConfig{APIURL: "https://llm.example.com", APIKey: "llm-secret", Model: "gpt-test"},
		Translate: config.TranslateConfig{TargetLanguage: language.Spanish},
		VFS:       config.VFSConfig{LocalRoots: []string{"/media"}},
		CacheDir:  filepath.Join(t.TempDir(), "cache"),
	})
	require.NoError(t, err)
	return store
}

func TestHandleSettings_GETMasksSecrets(t *testing.T) {
	t.Parallel()

	srv := NewServer(WithSettingsStore(newTestSettingsStore(t)))

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "\"catalog_api_key\":\"********\"")
	require.Contains(t, rec.Body.String(), "\"target_language\":\"es\"")
}

func TestHandleSettings_POSTPreservesSecretOnMaskedResend(t *testing.T) {
	t.Parallel()

	settings := newTestSettingsStore(t)
	srv := NewServer(WithSettingsStore(settings))

	body := `{"catalog_base_url":"https://api.example.com","catalog_api_key":"********","target_language":"fr"}`
	req := httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "secret-key", settings.Get().Catalog.APIKey)
	require.Equal(t, "fr", settings.Get().Translate.TargetLanguage.String())
}

func TestHandleStatus_ReportsWiredComponents(t *testing.T) {
	t.Parallel()

	srv := NewServer()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "\"catalog_configured\":false")
}

func TestHandleStatus_IncludesReloginScheduleWhenConfigured(t *testing.T) {
	t.Parallel()

	srv := NewServer(WithReloginSchedule("@every 20m"))
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "catalog_relogin")
}

func TestHandleStatic_FallsBackToIndexForExtensionlessPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>dashboard</html>"), 0o644))

	srv := NewServer(WithUI(dir, true))
	req := httptest.NewRequest(http.MethodGet, "/dashboard/subtitles", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "dashboard")
}
