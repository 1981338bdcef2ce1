package main

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"
	"sort"
	"sync"

	"github.com/gamma-omg/mgmt-knowledge/corpus"
)

// VectorStore receives the chunks of the loaded corpus.
type VectorStore interface {
	Has(namespace string) bool
	Index(ctx context.Context, namespace string, chunks []corpus.Chunk) error
	Forget(ctx context.Context, namespace, sourceFile string) error
}

type docKey struct {
	Namespace string
	File      string
}

type indexedDoc struct {
	Crc    uint32
	Chunks []corpus.Chunk
}

type corpusDocs map[docKey]indexedDoc
type storeDocs map[docKey]uint32

// DocRegistry keeps the vector store in step with the corpus. Documents are
// identified by namespace and source file; a document is re-indexed when the
// checksum over its chunks changes.
type DocRegistry struct {
	log     *slog.Logger
	store   VectorStore
	mu      sync.Mutex
	indexed storeDocs
}

func NewDocRegistry(store VectorStore, log *slog.Logger) *DocRegistry {
	return &DocRegistry{
		log:     log.With("component", "registry"),
		store:   store,
		indexed: make(storeDocs),
	}
}

func (dr *DocRegistry) Sync(ctx context.Context, c *corpus.Corpus) error {
	if c == nil {
		return nil
	}

	dr.mu.Lock()
	defer dr.mu.Unlock()

	docs := dr.collectDocs(c)

	err := dr.indexNewDocuments(ctx, docs)
	if err != nil {
		return err
	}

	err = dr.forgetRemovedDocuments(ctx, docs)
	if err != nil {
		return err
	}

	dr.log.Info("vector index synced", "documents", len(dr.indexed))
	return nil
}

func (dr *DocRegistry) collectDocs(c *corpus.Corpus) corpusDocs {
	docs := make(corpusDocs)
	for _, ns := range c.Namespaces() {
		if !dr.store.Has(ns) {
			dr.log.Debug("namespace has no vector collection", "namespace", ns)
			continue
		}

		chunks, _ := c.Chunks(ns)
		for _, ch := range chunks {
			key := docKey{Namespace: ns, File: ch.Metadata.SourceFile}
			doc := docs[key]
			doc.Chunks = append(doc.Chunks, ch)
			docs[key] = doc
		}
	}

	for key, doc := range docs {
		doc.Crc = checksum(doc.Chunks)
		docs[key] = doc
	}

	return docs
}

func (dr *DocRegistry) indexNewDocuments(ctx context.Context, docs corpusDocs) error {
	for _, key := range sortedKeys(docs) {
		doc := docs[key]
		crc, ok := dr.indexed[key]
		if ok && crc == doc.Crc {
			continue
		}

		// chunks of an untracked document may already be in the store
		err := dr.store.Forget(ctx, key.Namespace, key.File)
		if err != nil {
			return fmt.Errorf("failed to remove stale document %s: %w", key.File, err)
		}
		delete(dr.indexed, key)

		err = dr.store.Index(ctx, key.Namespace, doc.Chunks)
		if err != nil {
			return fmt.Errorf("failed to index document %s: %w", key.File, err)
		}
		dr.indexed[key] = doc.Crc
		dr.log.Debug("document indexed", "namespace", key.Namespace, "file", key.File, "chunks", len(doc.Chunks))
	}

	return nil
}

func (dr *DocRegistry) forgetRemovedDocuments(ctx context.Context, docs corpusDocs) error {
	for key := range dr.indexed {
		if _, ok := docs[key]; ok {
			continue
		}

		err := dr.store.Forget(ctx, key.Namespace, key.File)
		if err != nil {
			return fmt.Errorf("failed to remove document %s from store: %w", key.File, err)
		}
		delete(dr.indexed, key)
	}

	return nil
}

func checksum(chunks []corpus.Chunk) uint32 {
	h := crc32.NewIEEE()
	for _, c := range chunks {
		h.Write([]byte(c.ID))
		h.Write([]byte{0})
		h.Write([]byte(c.Content))
		h.Write([]byte{0})
	}
	return h.Sum32()
}

func sortedKeys(docs corpusDocs) []docKey {
	keys := make([]docKey, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Namespace != keys[j].Namespace {
			return keys[i].Namespace < keys[j].Namespace
		}
		return keys[i].File < keys[j].File
	})
	return keys
}
