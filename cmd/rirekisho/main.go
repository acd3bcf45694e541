// Package main is the Rirekisho CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/rirekisho/internal/answer"
	"github.com/hyperjump/rirekisho/internal/classify"
	"github.com/hyperjump/rirekisho/internal/config"
	"github.com/hyperjump/rirekisho/internal/embedding"
	"github.com/hyperjump/rirekisho/internal/enrich"
	"github.com/hyperjump/rirekisho/internal/fileid"
	"github.com/hyperjump/rirekisho/internal/generate"
	"github.com/hyperjump/rirekisho/internal/ingest"
	"github.com/hyperjump/rirekisho/internal/keyword"
	"github.com/hyperjump/rirekisho/internal/models"
	"github.com/hyperjump/rirekisho/internal/pipeline"
	"github.com/hyperjump/rirekisho/internal/retrieval"
	"github.com/hyperjump/rirekisho/internal/semcache"
	"github.com/hyperjump/rirekisho/internal/server"
	"github.com/hyperjump/rirekisho/internal/storage"
	"github.com/hyperjump/rirekisho/internal/vector"
	"github.com/hyperjump/rirekisho/internal/watcher"
	"github.com/hyperjump/rirekisho/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/rirekisho/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence, so running from the project dir
// picks up the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "ingest":
		runIngest()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("rirekisho version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("mode", string(cfg.Mode)),
		zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	gen, err := newGenerator(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize generator", zap.Error(err))
	}
	p := newPipeline(components, gen, cfg, logger)

	ing := components.Ingestor
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if _, err := ing.IngestFile(context.Background(), path); err != nil {
				logger.Warn("drop ingest failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if err := ing.Delete(context.Background(), fileid.FileDocID(path)); err != nil {
				logger.Warn("drop delete failed", zap.String("path", path), zap.Error(err))
			}
		},
		watcher.WithLogger(logger),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExisting()
	}

	srv := server.NewServer(p, ing, components.Storage, components.VectorIndex, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = answer directly without a server)`)
	limit := fs.Int("limit", 0, "maximum retrieved chunks (0 = server default)")
	skipCache := fs.Bool("skip-cache", false, "bypass the answer cache")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: rirekisho ask [flags] <question>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Println("Usage: rirekisho ask [flags] <question>")
		os.Exit(1)
	}

	req := models.AskRequest{Query: query, Limit: *limit, SkipCache: *skipCache}

	var ans models.Answer
	if *serverURL != "" {
		res, err := askViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		ans = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		gen, err := newGenerator(context.Background(), cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize generator", zap.Error(err))
		}
		p := newPipeline(components, gen, cfg, logger)

		ans, err = p.Ask(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ans); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Println(answer.RenderMarkdown(ans))
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL string, req models.AskRequest) (*models.Answer, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var ans models.Answer
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ans, nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: rirekisho ingest [flags] <cv-file>...")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	for _, path := range fs.Args() {
		doc, err := components.Ingestor.IngestFile(ctx, path)
		if err != nil {
			fmt.Printf("Ingest failed for %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Candidate ingested: %s (%s)\n", doc.CandidateName, doc.ID)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.Error(err))
		}
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: rirekisho delete [flags] <candidate-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Ingestor.Delete(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.Error(err))
		}
	}
	fmt.Printf("Candidate deleted: %s\n", docID)
}

// statusResponse is the shape of GET /status.
type statusResponse struct {
	Candidates      int64  `json:"candidates"`
	Chunks          int64  `json:"chunks"`
	VectorIndexSize int    `json:"vector_index_size"`
	DiskUsageBytes  *int64 `json:"disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = use direct storage)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()

		ctx := context.Background()
		docCount, err := components.Storage.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count candidates failed: %v\n", err)
			os.Exit(1)
		}
		chunkCount, err := components.Storage.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Candidates:      docCount,
			Chunks:          chunkCount,
			VectorIndexSize: components.VectorIndex.Size(),
		}
		diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath, cfg.Storage.VectorIndexPath)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("candidates:         %d\n", status.Candidates)
		fmt.Printf("chunks:             %d\n", status.Chunks)
		fmt.Printf("vector_index_size:  %d\n", status.VectorIndexSize)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d\n", *status.DiskUsageBytes)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services shared by the CLI commands.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  vector.VectorIndex
	KeywordIndex keyword.KeywordIndex
	Retriever    *retrieval.Retriever
	Ingestor     *ingest.Ingestor
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}

	vectorIndex, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	retriever := retrieval.NewRetriever(store, embedder, vectorIndex, keywordIndex, &cfg.Retrieval,
		retrieval.WithLogger(logger))
	ing := ingest.NewIngestor(store, embedder, vectorIndex, keywordIndex,
		enrich.NewEnricher(),
		ingest.NewChunker(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap),
		ingest.WithLogger(logger))

	return &Components{
		Storage:      store,
		Embedder:     embedder,
		VectorIndex:  vectorIndex,
		KeywordIndex: keywordIndex,
		Retriever:    retriever,
		Ingestor:     ing,
	}, nil
}

// newEmbedder binds the embedder for the configured mode. Local mode falls
// back to the deterministic mock embedder when the ONNX runtime or model is
// unavailable, so ingestion and keyword retrieval still work.
func newEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	switch cfg.Mode {
	case config.ModeCloud:
		apiKey := os.Getenv(cfg.Gemini.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("cloud mode requires %s to be set", cfg.Gemini.APIKeyEnv)
		}
		return embedding.NewGeminiEmbedder(context.Background(), apiKey,
			cfg.Gemini.EmbeddingModel, cfg.Embedding.Dimensions, cfg.Embedding.CacheSize)
	default:
		onnxEmbedder, err := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using mock embedder", zap.Error(err))
			return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), nil
		}
		return onnxEmbedder, nil
	}
}

func newGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (generate.Generator, error) {
	apiKey := os.Getenv(cfg.Gemini.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("answer generation requires %s to be set", cfg.Gemini.APIKeyEnv)
	}
	return generate.NewGeminiGenerator(ctx, apiKey, &cfg.Gemini, generate.WithLogger(logger))
}

func newPipeline(c *Components, gen generate.Generator, cfg *config.Config, logger *zap.Logger) *pipeline.Pipeline {
	var cache *semcache.Cache
	if cfg.Cache.EnabledOrDefault() {
		cache = semcache.New(cfg.Cache.Capacity, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	}
	return pipeline.New(c.Storage, c.Retriever, classify.NewClassifier(), gen, cache,
		pipeline.WithLogger(logger))
}

func printUsage() {
	fmt.Println(`rirekisho - CV question answering over a candidate pool

Usage:
  rirekisho server [flags]            Start the HTTP server
  rirekisho ask [flags] <question>    Ask a question about the candidates
  rirekisho ingest [flags] <file>...  Ingest CV files (.json, .txt, .md)
  rirekisho delete [flags] <id>       Delete a candidate
  rirekisho status [flags]            Show storage and index status
  rirekisho version                   Show version
  rirekisho help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/rirekisho/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to answer without a server.
  --limit int        Maximum retrieved chunks
  --skip-cache       Bypass the answer cache
  --output string    Output format: text or json (default: text)

Examples:
  rirekisho server
  rirekisho ask "Who has the most Python experience?"
  rirekisho ask --output json "Compara María y Juan"
  rirekisho ingest cvs/maria-garcia.json
  rirekisho delete 7f9c3e2a-1b4d-4f6e-9a8b-2c5d7e1f0a3b
  rirekisho status`)
}
