package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/cedula"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/config"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/models"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/deid"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/dlp"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("VAULT_STORE", config.StoreMemory)
	cfg := config.Load()

	catalog, err := loadCatalog(cfg)
	require.NoError(t, err)
	service := deid.NewService(catalog, deid.NewMemoryBackend(), deid.Settings{Mode: cfg.VaultMode})

	return &App{
		service:   service,
		generator: llm.New(llm.Config{}),
		policy:    cedula.Policy{Min: cfg.CedulaMin, Max: cfg.CedulaMax},
		cfg:       cfg,
		started:   time.Now(),
	}
}

func TestHealthAndReady(t *testing.T) {
	router := newTestApp(t).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.HTTP)
	assert.Equal(t, "connected", health.DB)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPromptEndToEndOffline(t *testing.T) {
	router := newTestApp(t).Router()

	body, err := json.Marshal(models.PromptRequest{Prompt: "Contact Juan Perez at juan@x.com"})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/prompt", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.PromptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Received: Contact Juan Perez at juan@x.com", out.Response)
	assert.NotContains(t, out.AnonymizedPrompt, "juan@x.com")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "vault_anonymize_calls_total")
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - code: EMA
    name: email
    priority: 1
    kind: regex
    pattern: '[a-z]+@[a-z]+\.[a-z]{2,}'
  - code: CED
    name: cedula
    priority: 2
    kind: digits
    min_digits: 7
    max_digits: 9
exclusions: [hola]
`), 0o600))

	t.Setenv("VAULT_CATALOG_PATH", path)
	t.Setenv("VAULT_ID_MIN_DIGITS", "6")
	t.Setenv("VAULT_ID_MAX_DIGITS", "12")
	catalog, err := loadCatalog(config.Load())
	require.NoError(t, err)

	assert.Equal(t, []string{dlp.CodeEmail, dlp.CodeCedula}, catalog.Codes())
	got := dlp.Detect("id 123456 or 123456789012", catalog.Default())
	assert.Len(t, got, 2)
}
