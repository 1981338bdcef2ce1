package main

import (
	"context"
	"log/slog"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/search"
)

const noInfoAnswer = "I don't have specific information about this in the knowledge base."

// KnowledgeService is the transport independent core shared by the REST API
// and the MCP tools.
type KnowledgeService struct {
	store     *corpus.Store
	strategy  search.Strategy
	mode      search.Mode
	namespace string
	vector    bool
	log       *slog.Logger
}

type AskResult struct {
	Answer    string          `json:"answer,omitempty"`
	Sources   []search.Result `json:"sources"`
	Question  string          `json:"question"`
	Namespace string          `json:"namespace"`
	Note      string          `json:"note,omitempty"`
}

func NewKnowledgeService(store *corpus.Store, strategy search.Strategy, mode search.Mode, namespace string, vector bool, log *slog.Logger) *KnowledgeService {
	if namespace == "" {
		namespace = corpus.DefaultNamespace
	}
	return &KnowledgeService{
		store:     store,
		strategy:  strategy,
		mode:      mode,
		namespace: namespace,
		vector:    vector,
		log:       log.With("component", "knowledge"),
	}
}

// Search returns the normalized request alongside the response so callers
// can echo what was actually searched.
func (s *KnowledgeService) Search(ctx context.Context, req search.Request) (search.Request, *search.Response, error) {
	if req.Namespace == "" {
		req.Namespace = s.namespace
	}
	req = search.Normalize(req)

	resp, err := s.strategy.Search(ctx, req)
	if err != nil {
		s.log.Warn("search failed", "query", req.Query, "namespace", req.Namespace, "err", err)
		return req, nil, err
	}

	s.log.Info("search", "query", req.Query, "namespace", req.Namespace,
		"results", len(resp.Results), "method", resp.Method)
	return req, resp, nil
}

// Ask returns context sources for a question. Answer generation is left to
// the client; only the no-match case carries a canned answer.
func (s *KnowledgeService) Ask(ctx context.Context, req search.Request) (*AskResult, error) {
	req, resp, err := s.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return &AskResult{
			Answer:    noInfoAnswer,
			Sources:   []search.Result{},
			Question:  req.Query,
			Namespace: req.Namespace,
		}, nil
	}

	return &AskResult{
		Sources:   resp.Results,
		Question:  req.Query,
		Namespace: req.Namespace,
		Note:      "Use these sources to generate the answer",
	}, nil
}

func (s *KnowledgeService) Loaded() bool {
	return s.store.Loaded()
}

func (s *KnowledgeService) Stats() map[string]corpus.NamespaceStats {
	return s.store.Get().Stats()
}

func (s *KnowledgeService) Capabilities() []string {
	caps := []string{string(search.MethodKeyword)}
	if s.vector {
		caps = append(caps, string(search.MethodVector))
	}
	return caps
}
