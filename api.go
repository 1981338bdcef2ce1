package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gamma-omg/mgmt-knowledge/search"
	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
)

const (
	serviceName    = "Management Knowledge Service"
	serviceVersion = "1.0.0"
)

type searchRequest struct {
	Query     string `json:"query"`
	TopK      int    `json:"top_k"`
	Namespace string `json:"namespace"`
}

type askRequest struct {
	Question  string `json:"question"`
	TopK      int    `json:"top_k"`
	Namespace string `json:"namespace"`
}

type searchResponse struct {
	Results      []search.Result `json:"results"`
	TotalResults int             `json:"total_results"`
	Query        string          `json:"query"`
	Namespace    string          `json:"namespace"`
	Method       search.Method   `json:"method"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type apiHandler struct {
	svc *KnowledgeService
	log *slog.Logger
}

func setupRoutes(svc *KnowledgeService, log *slog.Logger) *mux.Router {
	h := &apiHandler{svc: svc, log: log.With("component", "api")}

	r := mux.NewRouter()
	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/api/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/search", h.search).Methods(http.MethodPost)
	r.HandleFunc("/api/ask", h.ask).Methods(http.MethodPost)

	return r
}

func setupNegroni(r *mux.Router) *negroni.Negroni {
	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())
	n.UseHandler(r)
	return n
}

func (h *apiHandler) root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"version": serviceVersion,
		"status":  "running",
		"endpoints": map[string]string{
			"health": "GET /api/health",
			"search": "POST /api/search",
			"ask":    "POST /api/ask",
		},
	})
}

func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	status := "loading"
	if h.svc.Loaded() {
		status = "healthy"
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":           status,
		"service":          serviceName,
		"version":          serviceVersion,
		"knowledge_loaded": h.svc.Loaded(),
		"namespaces":       h.svc.Stats(),
		"search_strategy":  h.svc.mode,
		"capabilities":     h.svc.Capabilities(),
	})
}

func (h *apiHandler) search(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req, resp, err := h.svc.Search(r.Context(), search.Request{
		Query:     body.Query,
		TopK:      body.TopK,
		Namespace: body.Namespace,
	})
	if err != nil {
		h.writeSearchError(w, "Search failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, searchResponse{
		Results:      resp.Results,
		TotalResults: len(resp.Results),
		Query:        req.Query,
		Namespace:    req.Namespace,
		Method:       resp.Method,
	})
}

func (h *apiHandler) ask(w http.ResponseWriter, r *http.Request) {
	var body askRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.svc.Ask(r.Context(), search.Request{
		Query:     body.Question,
		TopK:      body.TopK,
		Namespace: body.Namespace,
	})
	if err != nil {
		h.writeSearchError(w, "Question processing failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

func (h *apiHandler) writeSearchError(w http.ResponseWriter, prefix string, err error) {
	switch {
	case errors.Is(err, search.ErrCorpusNotLoaded):
		h.writeError(w, http.StatusServiceUnavailable, "Knowledge base not loaded yet")
	case errors.Is(err, search.ErrNamespaceNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("request failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %s", prefix, err))
	}
}

func (h *apiHandler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, errorResponse{Detail: detail})
}

func (h *apiHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to write response", "err", err)
	}
}
