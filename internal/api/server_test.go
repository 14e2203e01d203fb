package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/streed/synapse/internal/config"
	"github.com/streed/synapse/internal/embeddings"
	"github.com/streed/synapse/internal/graph"
	"github.com/streed/synapse/internal/metrics"
	"github.com/streed/synapse/internal/services"
	"github.com/streed/synapse/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimensions = 128

type testServer struct {
	handler http.Handler
	graph   *graph.SQLiteStore
}

func newTestServer(t *testing.T, embedder embeddings.Provider, assets AssetProvider, metricsHandler http.Handler) *testServer {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	vectors, err := vectorstore.NewSQLiteStore(ctx, filepath.Join(dir, "vectors.db"), testDimensions)
	require.NoError(t, err)
	t.Cleanup(func() { vectors.Close() })

	graphStore, err := graph.NewSQLiteStore(ctx, filepath.Join(dir, "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { graphStore.Close() })

	if embedder == nil {
		embedder = embeddings.NewHashEmbedder(testDimensions)
	}
	notes := services.NewNotesService(embedder, vectors, graphStore, config.GraphBackendSQLite)
	cfg := &config.Config{EmbeddingProvider: config.ProviderHash, GraphBackend: config.GraphBackendSQLite}

	srv := NewAPIServer(cfg, notes, assets, metricsHandler)
	return &testServer{handler: srv.Handler(), graph: graphStore}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (ts *testServer) createNote(t *testing.T, title, content string, tags ...string) string {
	t.Helper()
	payload, err := json.Marshal(CreateNoteRequest{Title: title, Content: content, Tags: tags})
	require.NoError(t, err)
	status, body := ts.do(t, "POST", "/api/notes", string(payload))
	require.Equal(t, http.StatusCreated, status, body)
	note := body["note"].(map[string]any)
	return note["id"].(string)
}

type failingEmbedder struct {
	*embeddings.HashEmbedder
}

func (failingEmbedder) Embed(context.Context, string, embeddings.EmbeddingType) ([]float32, error) {
	return nil, fmt.Errorf("connection refused")
}

func TestCreateNote(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	status, body := ts.do(t, "POST", "/api/notes", `{"title":"Calculus","content":"Derivative rules","tags":["math"]}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])

	note := body["note"].(map[string]any)
	assert.NotEmpty(t, note["id"])
	assert.Equal(t, "Calculus", note["title"])
	assert.Equal(t, []any{"math"}, note["tags"])
}

func TestCreateNoteErrors(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "missing title", body: `{"content":"x"}`, status: http.StatusBadRequest},
		{name: "blank content", body: `{"title":"x","content":"  "}`, status: http.StatusBadRequest},
		{name: "malformed json", body: `{"title":`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ts.do(t, "POST", "/api/notes", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
		})
	}

	_, body := ts.do(t, "GET", "/api/notes", "")
	assert.Equal(t, float64(0), body["count"])
}

func TestCreateNoteEmbeddingFailure(t *testing.T) {
	ts := newTestServer(t, failingEmbedder{embeddings.NewHashEmbedder(testDimensions)}, nil, nil)

	status, body := ts.do(t, "POST", "/api/notes", `{"title":"a","content":"b"}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, false, body["success"])
}

func TestListNotes(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)
	for i := 0; i < 3; i++ {
		ts.createNote(t, fmt.Sprintf("note %d", i), "content")
	}

	status, body := ts.do(t, "GET", "/api/notes", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["count"])

	status, body = ts.do(t, "GET", "/api/notes?limit=2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["count"])
	assert.Len(t, body["notes"], 2)

	status, body = ts.do(t, "GET", "/api/notes?limit=0", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["count"])

	status, _ = ts.do(t, "GET", "/api/notes?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, "GET", "/api/notes?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetAndDeleteNote(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)
	id := ts.createNote(t, "Temp", "to delete")

	status, body := ts.do(t, "GET", "/api/notes/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Temp", body["note"].(map[string]any)["title"])

	status, body = ts.do(t, "DELETE", "/api/notes/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["message"])

	status, _ = ts.do(t, "DELETE", "/api/notes/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, "GET", "/api/notes/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)
	id := ts.createNote(t, "Calculus", "Derivative rules", "math")
	ts.createNote(t, "Groceries", "Milk and eggs")

	status, body := ts.do(t, "POST", "/api/search", `{"query":"derivative","top_k":1}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "derivative", body["query"])
	assert.Equal(t, float64(1), body["count"])

	results := body["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, id, first["id"])
	assert.Greater(t, first["similarity_score"].(float64), 0.5)
	assert.True(t, strings.HasSuffix(first["similarity_percentage"].(string), "%"))

	status, _ = ts.do(t, "POST", "/api/search", `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRelations(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)
	a := ts.createNote(t, "A", "first")
	b := ts.createNote(t, "B", "second")

	status, body := ts.do(t, "POST", "/api/notes/"+a+"/relations", fmt.Sprintf(`{"target_id":%q}`, b))
	require.Equal(t, http.StatusCreated, status, body)

	status, body = ts.do(t, "GET", "/api/notes/"+b+"/related", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])
	related := body["notes"].([]any)[0].(map[string]any)
	assert.Equal(t, a, related["id"])
	assert.Equal(t, "RELATED_TO", related["relation_type"])

	status, _ = ts.do(t, "POST", "/api/notes/"+a+"/relations", `{"target_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, "POST", "/api/notes/"+a+"/relations", fmt.Sprintf(`{"target_id":%q,"type":"bad type"}`, b))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTagsAndStats(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)
	ts.createNote(t, "A", "first", "go", "db")
	ts.createNote(t, "B", "second", "go")

	status, body := ts.do(t, "GET", "/api/tags", "")
	require.Equal(t, http.StatusOK, status)
	tags := body["tags"].([]any)
	require.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0].(map[string]any)["name"])

	status, body = ts.do(t, "GET", "/api/stats", "")
	require.Equal(t, http.StatusOK, status)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["total_notes_neo4j"])
	assert.Equal(t, float64(2), stats["total_notes_chroma"])
	assert.Equal(t, "hash", stats["embedding_provider"])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	status, body := ts.do(t, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, serviceName, body["service"])

	require.NoError(t, ts.graph.Close())
	status, body = ts.do(t, "GET", "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	recorder := metrics.EnablePrometheus()
	t.Cleanup(func() { metrics.SetRecorder(nil) })

	ts := newTestServer(t, nil, nil, recorder.Handler())
	id := ts.createNote(t, "Metrics", "count me")
	ts.do(t, "GET", "/api/notes/"+id, "")

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	assert.Contains(t, out, `route="/api/notes/{id}"`)
	assert.Contains(t, out, "synapse_store_ops_total")
	assert.Contains(t, out, "synapse_embeddings_total")
	assert.NotContains(t, out, id)
}

func TestMetricsNotMountedByDefault(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type testAssets struct{}

func (testAssets) GetTemplates() (*template.Template, error) {
	return template.New("index.html").Parse(`<ul>{{range .Notes}}<li>{{.Title}}</li>{{end}}</ul>`)
}

func (testAssets) GetStaticHandler() http.Handler {
	return http.FileServer(http.FS(fstest.MapFS{
		"app.js": {Data: []byte("console.log('synapse')")},
	}))
}

func TestWebUI(t *testing.T) {
	ts := newTestServer(t, nil, testAssets{}, nil)
	ts.createNote(t, "Shown in sidebar", "content")

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<li>Shown in sidebar</li>")

	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest("GET", "/static/app.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("synapse")))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest("OPTIONS", "/api/notes", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
