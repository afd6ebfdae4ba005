package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/omoide/internal/config"
	"github.com/hyperjump/omoide/internal/embedding"
	"github.com/hyperjump/omoide/internal/keyword"
	"github.com/hyperjump/omoide/internal/models"
	"github.com/hyperjump/omoide/internal/search"
	"github.com/hyperjump/omoide/internal/storage"
	"github.com/hyperjump/omoide/internal/vector"
)

// flakyEmbedder wraps a real embedder and fails on demand, for exercising
// provider error mapping at the HTTP layer.
type flakyEmbedder struct {
	inner embedding.Embedder
	err   error
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.inner.Embed(ctx, text)
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.inner.EmbedBatch(ctx, texts)
}

func (f *flakyEmbedder) Dimensions() int { return f.inner.Dimensions() }
func (f *flakyEmbedder) Close() error    { return f.inner.Close() }

func newTestServer(t *testing.T) (*Server, *flakyEmbedder) {
	t.Helper()

	const dims = 16
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "records.db"), dims)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	keywordIndex, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatalf("failed to create keyword index: %v", err)
	}
	t.Cleanup(func() { keywordIndex.Close() })

	flaky := &flakyEmbedder{inner: embedding.NewMockEmbedder(dims)}
	cached := embedding.NewCachedEmbedder(flaky, embedding.NewLRUCache(100, 0))

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	engine := search.NewEngine(store, cached, vector.NewHNSW(dims), keywordIndex,
		&cfg.Search, cfg.Index.EFSearch, zap.NewNop())
	return NewServer(engine, &cfg.Server, zap.NewNop()), flaky
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIngestEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/texts",
		models.IngestRequest{Text: "how to return an order"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.IngestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID == 0 || resp.Text != "how to return an order" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestIngestBlankText(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/texts", models.IngestRequest{Text: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank text, got %d", rec.Code)
	}
}

func TestIngestInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/texts", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	for _, text := range []string{"password reset steps", "refund policy details"} {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/texts", models.IngestRequest{Text: text})
		if rec.Code != http.StatusCreated {
			t.Fatalf("ingest failed with %d", rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/search",
		models.SearchQuery{Query: "password reset steps", Limit: 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total == 0 || resp.Results[0].Text != "password reset steps" {
		t.Errorf("unexpected search response: %+v", resp)
	}
}

func TestSearchEmptyCorpusReturnsEmptyList(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/search", models.SearchQuery{Query: "anything"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on empty corpus, got %d", rec.Code)
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("expected no results, got %+v", resp)
	}
}

func TestGetAndDeleteText(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/texts", models.IngestRequest{Text: "short lived note"})
	var created models.IngestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode ingest response: %v", err)
	}

	path := fmt.Sprintf("/api/v1/texts/%d", created.ID)
	if rec := doJSON(t, router, http.MethodGet, path, nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200 on get, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodDelete, path, nil); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 on delete, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestGetUnknownID(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	if rec := doJSON(t, router, http.MethodGet, "/api/v1/texts/9999", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/v1/texts/abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestProviderErrorMapping(t *testing.T) {
	srv, flaky := newTestServer(t)
	router := srv.Router()

	flaky.err = &models.ProviderError{Transient: true, Err: context.DeadlineExceeded}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/texts", models.IngestRequest{Text: "some text"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("transient provider failure should map to 502, got %d", rec.Code)
	}

	flaky.err = &models.ProviderError{Transient: false, Err: fmt.Errorf("input too long")}
	rec = doJSON(t, router, http.MethodPost, "/api/v1/texts", models.IngestRequest{Text: "some text"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("permanent provider failure should map to 422, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if stats["status"] != "ok" {
		t.Errorf("expected status ok, got %v", stats["status"])
	}
}
