package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NandiniBytes/lexora-ai/api"
	"github.com/NandiniBytes/lexora-ai/chunker"
	"github.com/NandiniBytes/lexora-ai/config"
	"github.com/NandiniBytes/lexora-ai/corpus"
	"github.com/NandiniBytes/lexora-ai/database"
	"github.com/NandiniBytes/lexora-ai/docgen"
	"github.com/NandiniBytes/lexora-ai/embeddings"
	"github.com/NandiniBytes/lexora-ai/index"
	"github.com/NandiniBytes/lexora-ai/llm"
	"github.com/NandiniBytes/lexora-ai/pipeline"
	"github.com/NandiniBytes/lexora-ai/prompts"
	"github.com/NandiniBytes/lexora-ai/records"
	"github.com/NandiniBytes/lexora-ai/retriever"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "index":
		indexCmd(cfg, logger, os.Args[2:])
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "seed":
		seedCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func indexCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("index", flag.ExitOnError)
	corpusDir := flags.String("corpus", cfg.CorpusDir, "directory containing the legal document corpus")
	out := flags.String("out", cfg.IndexPath, "path for the index artifact")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse index flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg.CorpusDir = *corpusDir
	logger.Printf("indexing %s using %s/%s embeddings", cfg.CorpusDir, strings.ToUpper(cfg.Embeddings.Provider), cfg.Embeddings.Model)

	idx, err := buildIndex(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("build index: %v", err)
	}
	if err := idx.Save(*out); err != nil {
		logger.Fatalf("save index: %v", err)
	}

	logger.Printf("indexed %d chunks (dimension %d) into %s", idx.Len(), idx.Dimension(), *out)

	if cfg.PostgresDSN != "" {
		if err := replicateToPostgres(ctx, cfg, idx); err != nil {
			logger.Fatalf("replicate index to postgres: %v", err)
		}
		logger.Printf("replicated %d chunks into postgres", idx.Len())
	}
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "listen address")
	store := flags.String("store", "memory", "vector store backing retrieval: memory or postgres")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}
	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	manager := index.NewManager(nil)
	if idx, loadErr := index.Load(cfg.IndexPath); loadErr == nil {
		manager.Swap(idx)
		logger.Printf("loaded index with %d chunks from %s", idx.Len(), cfg.IndexPath)
	} else {
		logger.Printf("no usable index at %s, run the index command first: %v", cfg.IndexPath, loadErr)
	}

	var searcher index.Searcher = manager
	var recorder records.Recorder
	var pgStore *index.PostgresStore

	var pool *pgxpool.Pool
	if cfg.PostgresDSN != "" {
		pool, err = database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatalf("postgres connection: %v", err)
		}
		defer pool.Close()

		if err := database.EnsureRecordSchema(ctx, pool); err != nil {
			logger.Fatalf("ensure record schema: %v", err)
		}
		recorder = records.NewPostgresRecorder(pool)

		if *store == "postgres" {
			dimension := cfg.Embeddings.Dimension
			if current := manager.Current(); current != nil && current.Dimension() > 0 {
				dimension = current.Dimension()
			}
			if dimension <= 0 {
				logger.Fatalf("postgres vector store needs a known embedding dimension; set LEXORA_EMBEDDINGS_DIMENSION or build an index first")
			}
			if err := database.EnsureVectorSchema(ctx, pool, dimension); err != nil {
				logger.Fatalf("ensure vector schema: %v", err)
			}
			pgStore = index.NewPostgresStore(pool, cfg.Embeddings.Model)
			searcher = pgStore
			logger.Printf("retrieval backed by postgres vector store")
		}
	} else if *store == "postgres" {
		logger.Fatalf("store=postgres requires POSTGRES_DSN")
	}

	ret := retriever.New(embedder, searcher, logger)
	assembler := prompts.NewAssembler(cfg.TemplatesDir)
	pipe := pipeline.New(ret, assembler, llmClient, recorder, logger, pipeline.Options{
		TopK:          cfg.TopK,
		MaxConcurrent: cfg.MaxConcurrent,
	})
	docs := docgen.New(cfg.GeneratedDir)

	rebuild := func(rctx context.Context) error {
		return manager.Rebuild(func() (*index.Index, error) {
			idx, buildErr := buildIndex(rctx, cfg, logger)
			if buildErr != nil {
				return nil, buildErr
			}
			if saveErr := idx.Save(cfg.IndexPath); saveErr != nil {
				return nil, saveErr
			}
			if pgStore != nil {
				if repErr := pgStore.ReplaceAll(rctx, idx); repErr != nil {
					return nil, repErr
				}
			}
			return idx, nil
		})
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           api.New(pipe, docs, manager, rebuild, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("server shutdown: %v", err)
		}
	}()

	logger.Printf("listening on %s", *addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server: %v", err)
	}
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	question := flags.String("question", "", "legal question to answer")
	topK := flags.Int("top-k", cfg.TopK, "number of context chunks to retrieve")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}
	if strings.TrimSpace(*question) == "" && flags.NArg() > 0 {
		*question = strings.Join(flags.Args(), " ")
	}
	if strings.TrimSpace(*question) == "" {
		logger.Fatalf("a question is required, pass -question or positional text")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	idx, err := index.Load(cfg.IndexPath)
	if err != nil {
		logger.Fatalf("load index (run the index command first): %v", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}
	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	ret := retriever.New(embedder, idx, logger)
	assembler := prompts.NewAssembler(cfg.TemplatesDir)
	pipe := pipeline.New(ret, assembler, llmClient, nil, logger, pipeline.Options{
		TopK:          *topK,
		MaxConcurrent: cfg.MaxConcurrent,
	})

	answer, err := pipe.Ask(ctx, *question)
	if err != nil {
		logger.Fatalf("ask failed: %v", err)
	}

	fmt.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, source := range answer.Sources {
			fmt.Printf("%d. %s (%s, score %.3f)\n", i+1, source.DocumentTitle, source.DocumentPath, source.Score)
		}
	}
}

func seedCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("seed", flag.ExitOnError)
	dir := flags.String("dir", cfg.CorpusDir, "corpus directory to seed with sample documents")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse seed flags: %v", err)
	}

	for _, sub := range []string{"contracts", "ndas", "employment", "intellectual_property", "compliance", "international"} {
		if err := os.MkdirAll(filepath.Join(*dir, sub), 0o755); err != nil {
			logger.Fatalf("create corpus directory: %v", err)
		}
	}

	for name, content := range sampleDocuments {
		path := filepath.Join(*dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			logger.Fatalf("write sample document %s: %v", name, err)
		}
		logger.Printf("created sample document %s", path)
	}

	logger.Printf("corpus seeded at %s, supported formats: .txt, .pdf, .docx", *dir)
}

// buildIndex runs the full build pipeline: load the corpus, chunk it, embed
// every chunk, and assemble a searchable index.
func buildIndex(ctx context.Context, cfg config.Config, logger *log.Logger) (*index.Index, error) {
	loader := corpus.NewLoader(logger)
	docs, err := loader.Load(cfg.CorpusDir)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	splitter, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("chunker setup: %w", err)
	}
	chunks := splitter.SplitAll(docs)
	logger.Printf("split %d documents into %d chunks", len(docs), len(chunks))

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedder setup: %w", err)
	}

	return index.Build(ctx, embedder, cfg.Embeddings.Model, chunks)
}

func replicateToPostgres(ctx context.Context, cfg config.Config, idx *index.Index) error {
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres connection: %w", err)
	}
	defer pool.Close()

	if err := database.EnsureVectorSchema(ctx, pool, idx.Dimension()); err != nil {
		return fmt.Errorf("ensure vector schema: %w", err)
	}
	return index.NewPostgresStore(pool, cfg.Embeddings.Model).ReplaceAll(ctx, idx)
}

func printUsage() {
	fmt.Println("Usage: lexora <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  index    Build the vector index from the legal document corpus")
	fmt.Println("  serve    Run the HTTP API")
	fmt.Println("  ask      Answer a single legal question from the command line")
	fmt.Println("  seed     Create the corpus directory with sample legal documents")
}
