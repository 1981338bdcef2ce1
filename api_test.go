package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(t *testing.T, store *corpus.Store) *KnowledgeService {
	t.Helper()
	strategy, err := search.New(search.ModeHybrid, search.Deps{Store: store})
	require.NoError(t, err)
	return NewKnowledgeService(store, strategy, search.ModeHybrid, "", false, discardLogger())
}

func knowledgeStore() *corpus.Store {
	return corpus.NewStore(corpus.Build([]corpus.Chunk{
		corpus.NewChunk("sbi_0", "Use the SBI model: situation, behavior, impact when giving feedback.",
			corpus.ChunkMetadata{SourceFile: "sbi.pdf", Framework: "SBI Framework", Category: "Feedback", Section: "Basics"}),
		corpus.NewChunk("grow_0", "The GROW model structures a coaching conversation.",
			corpus.ChunkMetadata{SourceFile: "grow.docx", Framework: "GROW Model", Category: "Coaching"}),
	}, ""))
}

func doRequest(t *testing.T, svc *KnowledgeService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := setupNegroni(setupRoutes(svc, discardLogger()))
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func Test_API_Root(t *testing.T) {
	rec := doRequest(t, testService(t, knowledgeStore()), http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, serviceName, body["service"])
	assert.Equal(t, "running", body["status"])
}

func Test_API_Health(t *testing.T) {
	rec := doRequest(t, testService(t, knowledgeStore()), http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["knowledge_loaded"])
	assert.Equal(t, "hybrid", body["search_strategy"])
	assert.Equal(t, []any{"keyword"}, body["capabilities"])
	assert.Contains(t, body["namespaces"], corpus.DefaultNamespace)
}

func Test_API_Health_Loading(t *testing.T) {
	rec := doRequest(t, testService(t, corpus.NewStore(nil)), http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "loading", body["status"])
	assert.Equal(t, false, body["knowledge_loaded"])
}

func Test_API_Search(t *testing.T) {
	rec := doRequest(t, testService(t, knowledgeStore()), http.MethodPost, "/api/search",
		`{"query": "feedback", "top_k": 50}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[searchResponse](t, rec)
	assert.Equal(t, "feedback", body.Query)
	assert.Equal(t, corpus.DefaultNamespace, body.Namespace)
	assert.Equal(t, search.MethodKeyword, body.Method)
	require.Equal(t, 1, body.TotalResults)
	assert.Equal(t, "sbi_0", body.Results[0].ID)
	assert.Equal(t, "Basics", body.Results[0].Metadata.Section)
}

func Test_API_Search_Errors(t *testing.T) {
	cases := []struct {
		name   string
		store  *corpus.Store
		body   string
		status int
		detail string
	}{
		{"bad_json", knowledgeStore(), `{"query":`, http.StatusBadRequest, "Invalid request body"},
		{"not_loaded", corpus.NewStore(nil), `{"query": "x"}`, http.StatusServiceUnavailable, "Knowledge base not loaded yet"},
		{"unknown_namespace", knowledgeStore(), `{"query": "x", "namespace": "nope"}`, http.StatusNotFound, `namespace "nope" not found`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := doRequest(t, testService(t, c.store), http.MethodPost, "/api/search", c.body)

			assert.Equal(t, c.status, rec.Code)
			assert.Contains(t, decode[errorResponse](t, rec).Detail, c.detail)
		})
	}
}

func Test_API_Ask(t *testing.T) {
	rec := doRequest(t, testService(t, knowledgeStore()), http.MethodPost, "/api/ask",
		`{"question": "How do I run a coaching conversation?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[AskResult](t, rec)
	assert.Empty(t, body.Answer)
	assert.NotEmpty(t, body.Note)
	require.NotEmpty(t, body.Sources)
	assert.Equal(t, "grow_0", body.Sources[0].ID)
}

func Test_API_Ask_NoMatches(t *testing.T) {
	rec := doRequest(t, testService(t, knowledgeStore()), http.MethodPost, "/api/ask",
		`{"question": "zzz"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[AskResult](t, rec)
	assert.Equal(t, noInfoAnswer, body.Answer)
	assert.Equal(t, []search.Result{}, body.Sources)
	assert.Equal(t, "zzz", body.Question)
}

func Test_API_MethodNotAllowed(t *testing.T) {
	rec := doRequest(t, testService(t, knowledgeStore()), http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
