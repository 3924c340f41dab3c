// Package main is the movierec CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/cli"
	"github.com/hyperjump/movierec/internal/config"
	"github.com/hyperjump/movierec/internal/keyword"
	"github.com/hyperjump/movierec/internal/metrics"
	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/internal/recommend"
	"github.com/hyperjump/movierec/internal/server"
	"github.com/hyperjump/movierec/internal/snapshot"
	"github.com/hyperjump/movierec/internal/vector"
	"github.com/hyperjump/movierec/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/movierec/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A missing default file is not an error: defaults and environment apply, so
// MODEL_PATH=/x.db movierec server works without any config file.
// Returns the config and the path that was actually loaded ("" when none was).
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
		if _, statErr := os.Stat(path); statErr != nil {
			cfg, err := config.LoadOrDefault(path)
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
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
	case "recommend":
		runRecommend()
	case "top":
		runTop()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "snapshot":
		runSnapshot()
	case "version", "--version", "-v":
		fmt.Printf("movierec version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func mustLoad(configPath string) (*config.Config, string) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved
}

func mustLogger(debug bool) *zap.Logger {
	logger, err := utils.NewLogger(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func mustFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	return format
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath := mustLoad(*configPath)
	debugMode := cfg.Debug || *debug
	logger := mustLogger(debugMode)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("snapshot_path", cfg.Snapshot.Path),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to load snapshot", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Service, &components.Snapshot.Meta, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printRecommendUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: movierec recommend [flags] <title>\n\n")
	fmt.Fprintf(fs.Output(), "Title is all remaining arguments joined by spaces and matches case-insensitively.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  movierec recommend The Dark Knight
  movierec recommend -k 10 "Spirited Away"
  movierec recommend --server "" --output json Alien   # read the snapshot directly
`)
}

// joinArgs joins all positional args with spaces so multi-word titles
// work the same with or without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// defaultKFromConfig loads config at path and returns recommend.default_k, or 5 on failure.
func defaultKFromConfig(path string) int {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return 5
	}
	return cfg.Recommend.DefaultK
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "movierec recommend Alien -k 3"
// would otherwise leave -k unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runRecommend() {
	args := argsReorder(os.Args[2:])
	configPath := configPathFromArgs(args, defaultConfigPath)

	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the snapshot directly)")
	k := fs.Int("k", defaultKFromConfig(configPath), "number of recommendations")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() { printRecommendUsage(fs) }
	_ = fs.Parse(args)

	title := joinArgs(fs.Args())
	if title == "" {
		printRecommendUsage(fs)
		os.Exit(1)
	}
	format := mustFormat(*outputFormat)

	var response *models.RecommendResponse
	if *serverURL != "" {
		res, err := recommendViaHTTP(*serverURL, title, *k)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
			os.Exit(1)
		}
		response = res
	} else {
		components, logger := mustComponents(*configPathFlag)
		defer logger.Sync()
		defer components.Close()
		start := time.Now()
		items, err := components.Service.Recommend(context.Background(), title, *k)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
			var nf *models.NotFoundError
			if errors.As(err, &nf) {
				if sugg, sErr := components.Service.SearchTitles(context.Background(), title, 5); sErr == nil && len(sugg) > 0 {
					_ = cli.WriteSuggestions(os.Stderr, title, sugg, cli.OutputText)
				}
			}
			os.Exit(1)
		}
		response = models.NewRecommendResponse(title, *k, items, time.Since(start).Milliseconds())
	}

	if err := cli.WriteRecommendations(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runTop() {
	fs := flag.NewFlagSet("top", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the snapshot directly)")
	n := fs.Int("n", 20, "number of titles")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	var titles []string
	if *serverURL != "" {
		var out struct {
			Titles []string `json:"titles"`
		}
		q := url.Values{"n": {strconv.Itoa(*n)}}
		if err := getJSON(*serverURL+"/api/v1/titles/top?"+q.Encode(), &out); err != nil {
			fmt.Fprintf(os.Stderr, "Top failed: %v\n", err)
			os.Exit(1)
		}
		titles = out.Titles
	} else {
		components, logger := mustComponents(*configPath)
		defer logger.Sync()
		defer components.Close()
		titles = components.Service.TopTitles(*n)
	}
	if err := cli.WriteTitles(os.Stdout, titles, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSearch() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the snapshot directly)")
	limit := fs.Int("limit", 10, "number of titles")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(args)

	query := joinArgs(fs.Args())
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: movierec search [flags] <title words>")
		os.Exit(1)
	}
	format := mustFormat(*outputFormat)

	var results []models.TitleSuggestion
	if *serverURL != "" {
		var out struct {
			Results []models.TitleSuggestion `json:"results"`
		}
		q := url.Values{"q": {query}, "limit": {strconv.Itoa(*limit)}}
		if err := getJSON(*serverURL+"/api/v1/titles/search?"+q.Encode(), &out); err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		results = out.Results
	} else {
		components, logger := mustComponents(*configPath)
		defer logger.Sync()
		defer components.Close()
		res, err := components.Service.SearchTitles(context.Background(), query, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		results = res
	}
	if err := cli.WriteSuggestions(os.Stdout, query, results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusKeys is the display order of status output.
var statusKeys = []string{"items", "dimensions", "index_type", "metric", "snapshot_id", "created_at", "snapshot_path", "disk_usage_bytes"}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the snapshot directly)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*outputFormat)

	var status map[string]any
	if *serverURL != "" {
		var out statusResponse
		if err := getJSON(*serverURL+"/api/v1/status", &out); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = out.flatten()
	} else {
		components, logger := mustComponents(*configPath)
		defer logger.Sync()
		defer components.Close()
		status = statusFromSnapshot(components.Service.Info(), &components.Snapshot.Meta)
	}
	if err := cli.WriteStatus(os.Stdout, status, statusKeys, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Items          int            `json:"items"`
	Dimensions     int            `json:"dimensions"`
	IndexType      string         `json:"index_type"`
	Metric         string         `json:"metric"`
	DiskUsageBytes *int64         `json:"disk_usage_bytes,omitempty"`
	Snapshot       *snapshot.Meta `json:"snapshot,omitempty"`
}

func (s statusResponse) flatten() map[string]any {
	out := map[string]any{
		"items":      s.Items,
		"dimensions": s.Dimensions,
		"index_type": s.IndexType,
		"metric":     s.Metric,
	}
	if s.DiskUsageBytes != nil {
		out["disk_usage_bytes"] = *s.DiskUsageBytes
	}
	if s.Snapshot != nil {
		out["snapshot_id"] = s.Snapshot.ID
		out["created_at"] = s.Snapshot.CreatedAt.Format(time.RFC3339)
		out["snapshot_path"] = s.Snapshot.Path
	}
	return out
}

func statusFromSnapshot(info recommend.Info, meta *snapshot.Meta) map[string]any {
	size := meta.SizeBytes
	return statusResponse{
		Items:          info.Items,
		Dimensions:     info.Dimensions,
		IndexType:      info.IndexType,
		Metric:         string(info.Metric),
		DiskUsageBytes: &size,
		Snapshot:       meta,
	}.flatten()
}

func runSnapshot() {
	if len(os.Args) < 3 || os.Args[2] != "build" {
		fmt.Fprintln(os.Stderr, "Usage: movierec snapshot build [flags]")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("snapshot build", flag.ExitOnError)
	catalogPath := fs.String("catalog", "", "catalog file (.csv or .xlsx)")
	embeddingsPath := fs.String("embeddings", "", "embeddings file (.csv, .npy, or raw little-endian float32)")
	dims := fs.Int("dims", 0, "vector dimensions (required for raw float32 embeddings)")
	out := fs.String("out", config.DefaultSnapshotPath, "snapshot output path")
	indexType := fs.String("index", string(vector.IndexTypeFlat), "similarity index: flat, vptree, or faiss")
	metric := fs.String("metric", string(vector.MetricL2), "distance metric: l2, cosine, or ip")
	normalize := fs.Bool("normalize", false, "L2-normalize vectors before indexing")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[3:])

	if *catalogPath == "" || *embeddingsPath == "" {
		fmt.Fprintln(os.Stderr, "--catalog and --embeddings are required")
		fs.PrintDefaults()
		os.Exit(1)
	}
	logger := mustLogger(*debug)
	defer logger.Sync()

	meta, err := snapshot.BuildFromFiles(context.Background(), *out, snapshot.BuildOptions{
		CatalogPath:    *catalogPath,
		EmbeddingsPath: *embeddingsPath,
		Dimensions:     *dims,
		Normalize:      *normalize,
		WriteOptions:   snapshot.WriteOptions{IndexType: *indexType, Metric: *metric},
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Snapshot build failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote snapshot %s: %d items, %d dimensions, %s/%s index (%d bytes)\n",
		meta.Path, meta.Items, meta.Dimensions, meta.IndexType, meta.Metric, meta.SizeBytes)
}

func recommendViaHTTP(serverURL, title string, k int) (*models.RecommendResponse, error) {
	q := url.Values{"title": {title}, "k": {strconv.Itoa(k)}}
	var response models.RecommendResponse
	if err := getJSON(serverURL+"/api/v1/recommendations?"+q.Encode(), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func getJSON(target string, out any) error {
	resp, err := http.Get(target)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds everything loaded from a snapshot.
type Components struct {
	Snapshot *snapshot.Snapshot
	Titles   *keyword.TitleIndex
	Service  *recommend.Service
}

func (c *Components) Close() {
	if c.Titles != nil {
		_ = c.Titles.Close()
	}
	if c.Snapshot != nil {
		_ = c.Snapshot.Close()
	}
}

func mustComponents(configPath string) (*Components, *zap.Logger) {
	cfg, _ := mustLoad(configPath)
	logger := mustLogger(cfg.Debug)
	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, logger
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	logger = utils.OrNop(logger)
	snap, err := snapshot.Open(ctx, cfg.Snapshot.Path, logger)
	if err != nil {
		return nil, err
	}
	titles, err := keyword.NewTitleIndex(snap.Catalog.Items())
	if err != nil {
		_ = snap.Close()
		return nil, fmt.Errorf("failed to build title index: %w", err)
	}
	svc, err := recommend.NewService(snap.Catalog, snap.Embeddings, snap.Index,
		recommend.WithLogger(logger),
		recommend.WithCacheSize(cfg.Recommend.CacheSizeOrDefault()),
		recommend.WithTitleSearcher(titles),
	)
	if err != nil {
		_ = titles.Close()
		_ = snap.Close()
		return nil, err
	}
	metrics.SetSnapshotInfo(snap.Meta.Items, snap.Meta.Dimensions)
	logger.Info("recommendation service ready",
		zap.Int("items", snap.Meta.Items),
		zap.Int("dimensions", snap.Meta.Dimensions),
		zap.String("index_type", snap.Meta.IndexType),
		zap.String("metric", string(snap.Meta.Metric)),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()),
	)
	return &Components{Snapshot: snap, Titles: titles, Service: svc}, nil
}

func printUsage() {
	fmt.Println(`movierec - Movie recommendations by embedding similarity

Usage:
  movierec server [flags]               Start the HTTP server
  movierec recommend [flags] <title>    Recommend movies similar to a title
  movierec top [flags]                  List the most voted titles
  movierec search [flags] <words>       Find titles by fuzzy match
  movierec status [flags]               Show snapshot and index status
  movierec snapshot build [flags]       Build a snapshot from catalog and embedding files
  movierec version                      Show version
  movierec help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/movierec/config.yaml)
  --debug            Enable debug logging

Recommend Flags:
  --config string    Config file path (for direct snapshot mode; also used for default k)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to read the snapshot directly.
  -k int             Number of recommendations (default from config, or 5)
  --output string    Output format: text, compact, or json (default: text)

Top/Search/Status Flags:
  --config, --server, --output as above
  -n int             Number of titles for top (default: 20)
  --limit int        Number of titles for search (default: 10)

Snapshot Build Flags:
  --catalog string     Catalog file (.csv or .xlsx)
  --embeddings string  Embeddings file (.csv, .npy, .f32)
  --dims int           Vector dimensions for raw float32 files
  --out string         Output path (default: /data/movie_recommender.db)
  --index string       flat, vptree, or faiss (default: flat)
  --metric string      l2, cosine, or ip (default: l2)
  --normalize          L2-normalize vectors

Environment:
  MODEL_PATH           Snapshot path (overrides snapshot.path)
  MOVIEREC_<SECTION>_<KEY>  Override any config key, e.g. MOVIEREC_SERVER_PORT=9000

Examples:
  movierec server
  MODEL_PATH=./movies.db movierec server
  movierec recommend -k 10 The Dark Knight
  movierec recommend --output json "Spirited Away"
  movierec top -n 50
  movierec search --server "" godfater
  movierec snapshot build --catalog movies.csv --embeddings vectors.npy --index vptree --metric cosine --out movies.db`)
}
