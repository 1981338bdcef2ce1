// Package chunker segments extracted documents into retrieval-sized chunks
// and audits the result.
package chunker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/readers"
)

const (
	DefaultMinWords  = 100
	DefaultMaxChunks = 20
	DefaultMaxTokens = 8000
)

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type Engine struct {
	gen        Generator
	log        *slog.Logger
	target     WordRange
	minWords   int
	maxChunks  int
	maxTokens  int
	windowSize int
}

type Option func(*Engine)

func WithGenerator(g Generator) Option {
	return func(e *Engine) { e.gen = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithTarget(r WordRange) Option {
	return func(e *Engine) {
		if r.Min > 0 && r.Max >= r.Min {
			e.target = r
		}
	}
}

func WithMinWords(n int) Option {
	return func(e *Engine) { e.minWords = n }
}

func WithMaxChunks(n int) Option {
	return func(e *Engine) { e.maxChunks = n }
}

func WithMaxTokens(n int) Option {
	return func(e *Engine) { e.maxTokens = n }
}

func WithWindowSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.windowSize = n
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		log:        slog.Default(),
		target:     DefaultTarget,
		minWords:   DefaultMinWords,
		maxChunks:  DefaultMaxChunks,
		maxTokens:  DefaultMaxTokens,
		windowSize: DefaultWindowSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "chunker")
	return e
}

// Fingerprint identifies the settings that shape the produced chunks.
func (e *Engine) Fingerprint() string {
	return fmt.Sprintf("ai=%t;target=%d-%d;window=%d;chunks=%d;min=%d",
		e.gen != nil, e.target.Min, e.target.Max, e.windowSize, e.maxChunks, e.minWords)
}

type Result struct {
	Chunks []corpus.Chunk
	// Skipped is set for documents below the minimum word count.
	Skipped bool
	// Fallback is set when the chunks came from mechanical segmentation.
	Fallback bool
}

// Chunk segments one document. A segmentation failure is recovered by
// falling back to fixed word windows; an error is returned only when the
// document cannot be chunked at all.
func (e *Engine) Chunk(ctx context.Context, doc readers.RawDocument) (Result, error) {
	if !doc.OK() {
		return Result{}, fmt.Errorf("%w: %s", ErrNotExtracted, doc.ErrorMessage)
	}

	words := corpus.CountWords(doc.Content)
	if words < e.minWords {
		e.log.Warn("skipping short document", "file", doc.Filename, "words", words)
		return Result{Skipped: true}, nil
	}

	if e.gen != nil {
		chunks, err := e.segment(ctx, doc)
		if err == nil {
			return Result{Chunks: chunks}, nil
		}
		e.log.Warn("ai chunking failed, using fallback", "file", doc.Filename, "err", err)
	}

	chunks := Fallback(doc, e.windowSize)
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoContent, doc.Filename)
	}

	return Result{Chunks: chunks, Fallback: true}, nil
}

func (e *Engine) segment(ctx context.Context, doc readers.RawDocument) ([]corpus.Chunk, error) {
	prompt := BuildPrompt(doc.Filename, doc.Content, e.target)

	reply, err := e.gen.Generate(ctx, prompt, e.maxTokens)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply) == "" {
		return nil, ErrNoSegments
	}

	return parseSegmentation(reply, doc, e.maxChunks)
}
