package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	gemini "github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	openai "github.com/amikos-tech/chroma-go/pkg/embeddings/openai"
	"github.com/gamma-omg/mgmt-knowledge/chunker"
	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/docstore"
	"github.com/gamma-omg/mgmt-knowledge/ingest"
	"github.com/gamma-omg/mgmt-knowledge/llm"
	"github.com/gamma-omg/mgmt-knowledge/readers"
	"github.com/gamma-omg/mgmt-knowledge/search"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v2"
)

type app struct {
	cfg     *Config
	log     *slog.Logger
	logFile *os.File
}

func main() {
	a := &app{}
	cliApp := &cli.App{
		Name:  "knowledge",
		Usage: "Management knowledge ingestion and retrieval service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "cfg/config.yaml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override logging level (debug, info, warn, error)",
			},
		},
		Before: a.setup,
		After:  a.close,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the REST API and MCP tools over the chunk corpus",
				Action: a.serveCommand,
			},
			{
				Name:   "ingest",
				Usage:  "Chunk the materials directory and write the exports",
				Action: a.ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "materials-dir", Usage: "Directory with source documents"},
					&cli.StringFlag{Name: "output-dir", Usage: "Directory for exports and the report"},
					&cli.StringFlag{Name: "ai-provider", Usage: "anthropic, openai or gemini"},
					&cli.StringSliceFlag{Name: "formats", Usage: "Export formats (chromadb, custom_gpt)"},
					&cli.BoolFlag{Name: "no-ai", Usage: "Use word-window chunking only"},
					&cli.IntFlag{Name: "workers", Usage: "Documents chunked concurrently"},
					&cli.BoolFlag{Name: "gzip", Usage: "Compress the chromadb export"},
				},
			},
			{
				Name:      "report",
				Usage:     "Print the summary of an ingestion report",
				ArgsUsage: "[report path]",
				Action:    a.reportCommand,
			},
			{
				Name:      "audit",
				Usage:     "Run the quality audit over a corpus file",
				ArgsUsage: "[corpus path]",
				Action:    a.auditCommand,
			},
			{
				Name:   "check-materials",
				Usage:  "List the supported documents and their extraction status",
				Action: a.checkMaterialsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "materials-dir", Usage: "Directory with source documents"},
				},
			},
			{
				Name:   "index",
				Usage:  "Upload the corpus into the vector index",
				Action: a.indexCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "reset", Usage: "Recreate the collections from scratch"},
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func (a *app) setup(c *cli.Context) error {
	cfg, err := readConfig(c.String("config"), c.IsSet("config"))
	if err != nil {
		return err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	out := os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		out = f
	}

	a.cfg = cfg
	a.log = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.log)
	return nil
}

func (a *app) close(c *cli.Context) error {
	if a.logFile != nil {
		return a.logFile.Close()
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func createEmbeddingFunction(cfg *Config) (embeddings.EmbeddingFunction, error) {
	if cfg.Chroma.OpenAI != nil {
		ef, err := openai.NewOpenAIEmbeddingFunction(
			cfg.Chroma.OpenAI.ApiKey,
			openai.WithModel(openai.EmbeddingModel(cfg.Chroma.OpenAI.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedding function: %w", err)
		}

		return ef, nil
	}

	if cfg.Chroma.Gemini != nil {
		ef, err := gemini.NewGeminiEmbeddingFunction(
			gemini.WithAPIKey(cfg.Chroma.Gemini.ApiKey),
			gemini.WithDefaultModel(embeddings.EmbeddingModel(cfg.Chroma.Gemini.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
		}

		return ef, nil
	}

	return nil, errors.New("invalid embeddings provider configuration")
}

func initDocStore(cfg *Config, namespaces []string, reset bool) (*docstore.ChromaStore, error) {
	ef, err := createEmbeddingFunction(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding function: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := docstore.NewChromaStore(ctx, docstore.ChromaStoreConfig{
		BaseURL:          cfg.Chroma.BaseURL,
		EmbeddingFunc:    ef,
		Results:          cfg.Chroma.Results,
		RequestSize:      cfg.Chroma.RequestSize,
		Reset:            reset,
		CollectionPrefix: cfg.Chroma.CollectionPrefix,
		Namespaces:       namespaces,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Chroma doc store: %w", err)
	}

	return store, nil
}

func (a *app) serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	store := corpus.NewStore(nil)
	if loaded, err := store.LoadFile(cfg.Corpus.Path, cfg.Corpus.Namespace); err != nil {
		a.log.Error("failed to load corpus, serving without it", "path", cfg.Corpus.Path, "err", err)
	} else {
		a.log.Info("corpus loaded", "chunks", loaded.Size(), "namespaces", loaded.Namespaces())
	}

	deps := search.Deps{Store: store, MinVectorScore: cfg.Search.MinVectorScore}
	var vectors *docstore.ChromaStore
	if cfg.Chroma != nil {
		var err error
		vectors, err = initDocStore(cfg, cfg.Chroma.Namespaces, false)
		if err != nil {
			a.log.Warn("vector search disabled", "err", err)
		} else {
			deps.Index = vectors
		}
	}

	mode := search.Mode(cfg.Search.Strategy)
	strategy, err := search.New(mode, deps)
	if err != nil {
		return err
	}
	svc := NewKnowledgeService(store, strategy, mode, cfg.Corpus.Namespace, deps.Index != nil, a.log)

	if cfg.Corpus.Watch {
		watcher := NewCorpusWatcher(store, cfg.Corpus.Path, cfg.Corpus.Namespace, msDuration(cfg.Corpus.MergeEventsMs), a.log)
		if vectors != nil {
			reg := NewDocRegistry(vectors, a.log)
			sync := func(ctx context.Context, loaded *corpus.Corpus) {
				if err := reg.Sync(ctx, loaded); err != nil {
					a.log.Error("vector index sync failed", "err", err)
				}
			}
			watcher.OnReload(sync)
			go sync(ctx, store.Get())
		}
		if err := watcher.Watch(ctx); err != nil {
			return err
		}
	}

	httpSrv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           setupNegroni(setupRoutes(svc, a.log)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	sse := server.NewSSEServer(NewRagServer(svc), server.WithBaseURL(fmt.Sprintf("http://%s", cfg.MCPAddr)))

	errs := make(chan error, 2)
	go func() {
		a.log.Info("rest api listening", "addr", cfg.ServerAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("rest api: %w", err)
		}
	}()
	go func() {
		a.log.Info("mcp server listening", "addr", cfg.MCPAddr)
		if err := sse.Start(cfg.MCPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("mcp server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if e := httpSrv.Shutdown(shutdownCtx); e != nil {
		a.log.Error("rest api shutdown", "err", e)
	}
	if e := sse.Shutdown(shutdownCtx); e != nil {
		a.log.Error("mcp server shutdown", "err", e)
	}

	return err
}

func (a *app) ingestCommand(c *cli.Context) error {
	cfg := a.cfg
	materials := firstSet(c.String("materials-dir"), cfg.Ingestion.MaterialsDir)
	output := firstSet(c.String("output-dir"), cfg.Ingestion.OutputDir)
	if p := c.String("ai-provider"); p != "" {
		cfg.AI.Provider = strings.ToLower(p)
		cfg.AI.ApiKey = os.Getenv(llm.APIKeyEnv[llm.Provider(cfg.AI.Provider)])
	}
	formats := cfg.Ingestion.OutputFormats
	if f := c.StringSlice("formats"); len(f) > 0 {
		formats = f
	}
	workers := cfg.Ingestion.Workers
	if c.IsSet("workers") {
		workers = c.Int("workers")
	}

	opts := []chunker.Option{
		chunker.WithLogger(a.log),
		chunker.WithTarget(cfg.target()),
		chunker.WithMinWords(cfg.Ingestion.MinWords),
		chunker.WithMaxChunks(cfg.Ingestion.MaxChunksPerDoc),
		chunker.WithMaxTokens(cfg.AI.MaxTokens),
		chunker.WithWindowSize(cfg.Ingestion.WindowSize),
	}
	provider := "none"
	if !c.Bool("no-ai") {
		model, err := llm.New(c.Context, cfg.llmConfig(), a.log)
		if err != nil {
			return err
		}
		opts = append(opts, chunker.WithGenerator(model))
		provider = cfg.AI.Provider
	}
	engine := chunker.NewEngine(opts...)

	pipeOpts := []ingest.Option{
		ingest.WithLogger(a.log),
		ingest.WithFormats(formats...),
		ingest.WithGzip(cfg.Ingestion.Gzip || c.Bool("gzip")),
		ingest.WithProvider(provider),
		ingest.WithTarget(cfg.target()),
	}
	if workers > 0 {
		pipeOpts = append(pipeOpts, ingest.WithPoolSize(workers))
	}
	if cfg.Ingestion.CacheDir != "" {
		cache, err := ingest.OpenCache(cfg.Ingestion.CacheDir, a.log)
		if err != nil {
			return err
		}
		defer cache.Close()
		pipeOpts = append(pipeOpts, ingest.WithCache(cache))
	}

	extractor := readers.NewExtractor(a.log, readers.DefaultReaders()...)
	pipeline, err := ingest.NewPipeline(extractor, engine, pipeOpts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	report, err := pipeline.Run(c.Context, materials, output)
	if err != nil {
		return err
	}

	report.Print(os.Stdout)
	return nil
}

func (a *app) reportCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = filepath.Join(a.cfg.Ingestion.OutputDir, ingest.ReportFile)
	}

	report, err := ingest.ReadReport(path)
	if err != nil {
		return err
	}

	report.Print(os.Stdout)
	return nil
}

func (a *app) auditCommand(c *cli.Context) error {
	path := firstSet(c.Args().First(), a.cfg.Corpus.Path)
	chunks, err := corpus.Load(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(chunker.Audit(chunks, a.cfg.target()))
}

func (a *app) checkMaterialsCommand(c *cli.Context) error {
	root := firstSet(c.String("materials-dir"), a.cfg.Ingestion.MaterialsDir)
	extractor := readers.NewExtractor(a.log, readers.DefaultReaders()...)

	docs, err := extractor.ExtractDir(root)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tTYPE\tWORDS\tSTATUS")
	for _, d := range docs {
		status := string(d.ProcessingStatus)
		if !d.OK() {
			status = fmt.Sprintf("%s: %s", status, d.ErrorMessage)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.Path, d.Extension, d.WordCount, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := readers.Summarize(docs)
	fmt.Printf("\n%d files, %d extracted, %d failed, %d words\n", s.TotalFiles, s.Successful, s.Failed, s.TotalWords)
	return nil
}

func (a *app) indexCommand(c *cli.Context) error {
	if a.cfg.Chroma == nil {
		return errors.New("index requires a chroma configuration")
	}

	store := corpus.NewStore(nil)
	loaded, err := store.LoadFile(a.cfg.Corpus.Path, a.cfg.Corpus.Namespace)
	if err != nil {
		return err
	}

	vectors, err := initDocStore(a.cfg, loaded.Namespaces(), c.Bool("reset"))
	if err != nil {
		return err
	}

	return NewDocRegistry(vectors, a.log).Sync(c.Context, loaded)
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
