// Package main is the Kotae CLI entry point.
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

	"github.com/asanoha/kotae/internal/cli"
	"github.com/asanoha/kotae/internal/config"
	"github.com/asanoha/kotae/internal/generate"
	"github.com/asanoha/kotae/internal/models"
	"github.com/asanoha/kotae/internal/qa"
	"github.com/asanoha/kotae/internal/samples"
	"github.com/asanoha/kotae/internal/server"
	"github.com/asanoha/kotae/internal/storage"
	"github.com/asanoha/kotae/internal/watcher"
	"github.com/asanoha/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so "kotae server" from the project dir picks up the project's
// config. Returns the config and the path actually loaded.
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
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "search":
		runSearch()
	case "add":
		runAdd()
	case "delete":
		runDelete()
	case "reindex":
		runReindex()
	case "status":
		runStatus()
	case "load-samples":
		runLoadSamples()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
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
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if _, err := components.Engine.RebuildIndex(context.Background()); err != nil {
		logger.Fatal("Failed to build index", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		ingestor := watcher.NewIngestor(components.Storage, logger)
		watchSvc = watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			ingestor,
			components.Engine,
			logger,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles(watchCtx)
	}

	srv := server.NewServer(components.Engine, components.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQueryText joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQueryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	question := buildQueryText(fs.Args())
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *serverURL != "" {
		record, err := askViaHTTP(*serverURL, question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteAnswer(os.Stdout, record, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	components, cleanup := mustInitialize(*configPath)
	defer cleanup()

	ctx := context.Background()
	if _, err := components.Engine.RebuildIndex(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Index build failed: %v\n", err)
		os.Exit(1)
	}
	record, err := components.Engine.Ask(ctx, question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := components.Storage.CreateAnswer(ctx, record); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to persist answer: %v\n", err)
	}
	if err := cli.WriteAnswer(os.Stdout, record, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL, question string) (*models.AnswerRecord, error) {
	body, err := json.Marshal(models.AskRequest{Question: question})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var record models.AnswerRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &record, nil
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	topK := fs.Int("top-k", 0, "number of results (0 = config default)")
	minScore := fs.Float64("min-score", 0, "minimum similarity score")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae search [flags] <query>")
		os.Exit(1)
	}
	queryStr := buildQueryText(fs.Args())
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query:    queryStr,
		TopK:     *topK,
		MinScore: *minScore,
	}

	if *serverURL != "" {
		response, err := searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	components, cleanup := mustInitialize(*configPath)
	defer cleanup()

	ctx := context.Background()
	if _, err := components.Engine.RebuildIndex(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Index build failed: %v\n", err)
		os.Exit(1)
	}
	response, err := components.Engine.FindRelevant(ctx, searchQuery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	title := fs.String("title", "", "document title (default: filename)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae add [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	components, cleanup := mustInitialize(*configPath)
	defer cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}
	docTitle := *title
	if docTitle == "" {
		base := filepath.Base(path)
		docTitle = strings.TrimSuffix(base, filepath.Ext(base))
	}
	now := time.Now()
	doc := &models.Document{
		ID:        watcher.FileID(path),
		Title:     docTitle,
		Content:   strings.TrimSpace(string(data)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := components.Storage.UpsertDocument(context.Background(), doc); err != nil {
		fmt.Printf("Failed to store document: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document added: %s\n", doc.ID)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	components, cleanup := mustInitialize(*configPath)
	defer cleanup()

	if err := components.Storage.DeleteDocument(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		resp, err := http.Post(*serverURL+"/api/v1/reindex", "application/json", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Reindex failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Documents int `json:"documents"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		fmt.Printf("Indexed %d documents\n", out.Documents)
		return
	}

	components, cleanup := mustInitialize(*configPath)
	defer cleanup()

	count, err := components.Engine.RebuildIndex(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d documents\n", count)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var status map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}

	components, cleanup := mustInitialize(*configPath)
	defer cleanup()

	ctx := context.Background()
	docCount, err := components.Storage.CountDocuments(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
		os.Exit(1)
	}
	answerCount, err := components.Storage.CountAnswers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count answers failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("documents:  %d\n", docCount)
	fmt.Printf("answers:    %d\n", answerCount)
}

func runLoadSamples() {
	fs := flag.NewFlagSet("load-samples", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	components, cleanup := mustInitialize(*configPath)
	defer cleanup()

	ctx := context.Background()
	n, err := samples.Load(ctx, components.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load samples failed: %v\n", err)
		os.Exit(1)
	}
	count, err := components.Engine.RebuildIndex(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Index build failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d sample documents; index covers %d documents\n", n, count)
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Generator generate.Generator
	Engine    *qa.Engine
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	gen, err := generate.New(&cfg.Generator)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	opts := []qa.EngineOption{qa.WithLogger(logger)}
	if cfg.Generator.FallbackToStub && cfg.Generator.Backend != generate.BackendStub {
		opts = append(opts, qa.WithFallbackGenerator(generate.NewStub()))
	}
	engine := qa.NewEngine(store, gen, cfg.Retrieval, opts...)

	return &Components{
		Storage:   store,
		Generator: gen,
		Engine:    engine,
	}, nil
}

// mustInitialize loads config, builds a logger, and initializes components,
// exiting on failure. Shared by the direct-storage subcommands.
func mustInitialize(configPath string) (*Components, func()) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	return components, func() {
		components.Close()
		_ = logger.Sync()
	}
}

func printUsage() {
	fmt.Println(`kotae - Document question answering over a local corpus

Usage:
  kotae server [flags]            Start the HTTP server
  kotae ask [flags] <question>    Ask a question against the corpus
  kotae search [flags] <query>    Rank documents for a query
  kotae add [flags] <file>        Add a file as a document
  kotae delete [flags] <id>       Delete a document
  kotae reindex [flags]           Rebuild the lexical index
  kotae status [flags]            Show corpus and index status
  kotae load-samples [flags]      Seed the store with sample documents
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Ask/Search Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)
  --top-k int        Number of results (search only)
  --min-score float  Minimum similarity score (search only)

Examples:
  kotae server
  kotae load-samples
  kotae ask "what are the types of machine learning"
  kotae search --top-k 5 supervised learning
  kotae search --output json "neural networks"
  kotae add --title "Notes" notes.txt
  kotae reindex
  kotae status`)
}
