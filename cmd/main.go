package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/wikivec/wikivec/internal/models"
	"github.com/wikivec/wikivec/internal/types"
	cfgPkg "github.com/wikivec/wikivec/pkg/config"
	"github.com/wikivec/wikivec/pkg/dataset"
	"github.com/wikivec/wikivec/pkg/llm"
	"github.com/wikivec/wikivec/pkg/store"
	"github.com/wikivec/wikivec/server"
)

type Config struct {
	DatasetURL string
	DataDir    string
	CSVName    string
	Driver     string
	DBUrl      string
	QdrantAddr string
	SQLitePath string
	Collection string
	VectorDim  int
	BatchSize  int
	Model      string
	Field      string
	TopK       int
	Load       bool
	Serve      bool
	Port       string
	APIKey     string
	BaseURL    string
	RateLimit  int
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&config.DatasetURL, "dataset-url", "", "Dataset archive URL")
	flag.StringVar(&config.DataDir, "data-dir", "", "Directory for the downloaded dataset")
	flag.StringVar(&config.Driver, "driver", "", "Vector store driver (qdrant, pgvector, sqlite)")
	flag.StringVar(&config.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&config.QdrantAddr, "qdrant", os.Getenv("QDRANT_ADDR"), "Qdrant grpc address")
	flag.StringVar(&config.SQLitePath, "sqlite", "", "SQLite database file")
	flag.StringVar(&config.Collection, "collection", "", "Collection name")
	flag.IntVar(&config.VectorDim, "vector-dim", 0, "Vector dimension")
	flag.IntVar(&config.BatchSize, "batch-size", 0, "Batch size for upserts")
	flag.StringVar(&config.Model, "model", "", "Embedding model for queries")
	flag.StringVar(&config.Field, "field", "", "Named vector to search (title or content)")
	flag.IntVar(&config.TopK, "top-k", 0, "Number of search results")
	flag.BoolVar(&config.Load, "load", false, "Download the dataset and load it into the vector store")
	flag.BoolVar(&config.Serve, "serve", false, "Start the WebSocket search server instead of the interactive loop")
	flag.StringVar(&config.Port, "port", os.Getenv("PORT"), "Search server port")
	flag.Parse()

	// Load config file (or defaults) and let flags win where provided
	if cfg, err := cfgPkg.LoadConfig(configPath); err == nil {
		if config.DatasetURL == "" {
			config.DatasetURL = cfg.Dataset.URL
		}
		if config.DataDir == "" {
			config.DataDir = cfg.Dataset.Dir
		}
		config.CSVName = cfg.Dataset.CSVName
		if config.Driver == "" {
			config.Driver = cfg.Database.Driver
		}
		if config.DBUrl == "" {
			config.DBUrl = cfg.Database.URL
		}
		if config.QdrantAddr == "" {
			config.QdrantAddr = cfg.Database.QdrantAddr
		}
		if config.SQLitePath == "" {
			config.SQLitePath = cfg.Database.SQLitePath
		}
		if config.Collection == "" {
			config.Collection = cfg.Database.Collection
		}
		if config.VectorDim == 0 {
			config.VectorDim = cfg.Database.VectorDim
		}
		if config.BatchSize == 0 {
			config.BatchSize = cfg.Database.BatchSize
		}
		if config.Model == "" {
			config.Model = cfg.Embedder.Model
		}
		if config.Field == "" {
			config.Field = cfg.UI.Field
		}
		if config.TopK == 0 {
			config.TopK = cfg.UI.TopK
		}
		config.APIKey = cfg.Embedder.APIKey
		config.BaseURL = cfg.Embedder.BaseURL
		config.RateLimit = cfg.Embedder.RequestsPerMinute
	}

	return config
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func newStore(config Config) (types.VectorStore, error) {
	return store.NewWithConfig(store.Config{
		Driver:      config.Driver,
		ConnString:  config.DBUrl,
		QdrantAddr:  config.QdrantAddr,
		SQLitePath:  config.SQLitePath,
		Collection:  config.Collection,
		VectorDim:   config.VectorDim,
		BatchSize:   config.BatchSize,
		SearchLimit: config.TopK,
	})
}

// fileConfig rebuilds the config-file shape the server constructor expects.
func (c Config) fileConfig() *cfgPkg.Config {
	cfg := &cfgPkg.Config{}
	cfg.Embedder.Model = c.Model
	cfg.Embedder.BaseURL = c.BaseURL
	cfg.Embedder.APIKey = c.APIKey
	cfg.Embedder.RequestsPerMinute = c.RateLimit
	cfg.Database.Driver = c.Driver
	cfg.Database.URL = c.DBUrl
	cfg.Database.QdrantAddr = c.QdrantAddr
	cfg.Database.SQLitePath = c.SQLitePath
	cfg.Database.Collection = c.Collection
	cfg.Database.VectorDim = c.VectorDim
	cfg.Database.BatchSize = c.BatchSize
	cfg.Database.SearchLimit = c.TopK
	cfg.UI.Field = c.Field
	cfg.UI.TopK = c.TopK
	return cfg
}

func run(config Config) error {
	if config.Load {
		vectorStore, err := newStore(config)
		if err != nil {
			return fmt.Errorf("failed to initialize vector store: %v", err)
		}
		if err := load(config, vectorStore); err != nil {
			vectorStore.Close()
			return err
		}
		vectorStore.Close()
	}

	if config.Serve {
		srv, err := server.NewWSServer(config.fileConfig())
		if err != nil {
			return err
		}
		defer srv.Close()
		return srv.Run(config.Port)
	}

	vectorStore, err := newStore(config)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:             config.Model,
		BaseURL:           config.BaseURL,
		APIKey:            config.APIKey,
		RequestsPerMinute: config.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	return searchLoop(config, embedder, vectorStore)
}

func load(config Config, vectorStore types.VectorStore) error {
	ctx := context.Background()

	color.Blue("\nLoading dataset from %s\n", config.DatasetURL)

	// Download with a live byte count
	downloadBar := getSpinner("Downloading dataset...")
	fetcher, err := dataset.NewWithConfig(dataset.FetcherConfig{
		URL: config.DatasetURL,
		OnProgress: func(written int64) {
			downloadBar.Describe(color.CyanString(
				"Downloading dataset... (%.1f MB)", float64(written)/1024/1024))
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize fetcher: %v", err)
	}

	archivePath := filepath.Join(config.DataDir, filepath.Base(config.DatasetURL))
	if err := fetcher.Fetch(ctx, archivePath); err != nil {
		return fmt.Errorf("failed to download dataset: %v", err)
	}
	downloadBar.Finish()
	color.Green("\n✓ Dataset archive ready\n")

	csvPath, err := dataset.ExtractCSV(archivePath, config.CSVName, config.DataDir)
	if err != nil {
		return fmt.Errorf("failed to extract dataset: %v", err)
	}

	// Parse the CSV, reporting skipped rows without aborting
	parseSpinner := getSpinner("Parsing articles...")
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	skipped := 0
	parser := dataset.NewParser(dataset.ParserConfig{
		VectorDim: config.VectorDim,
		OnRowError: func(line int, err error) {
			skipped++
			color.Yellow("\nSkipping row %d: %v\n", line, err)
		},
	})
	articles, err := parser.Parse(f)
	parseSpinner.Finish()
	if err != nil {
		return fmt.Errorf("failed to parse dataset: %v", err)
	}
	color.Green("\n✓ Parsed %d articles (%d skipped)\n", len(articles), skipped)

	// Upsert in batches with rate display; a failed batch is reported and
	// the load moves on
	storageBar := getProgressBar(len(articles), "Storing in vector database...")
	startTime := time.Now()
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	failed := 0

	for i := 0; i < len(articles); i += batchSize {
		end := i + batchSize
		if end > len(articles) {
			end = len(articles)
		}
		batch := articles[i:end]

		if err := vectorStore.Upsert(ctx, batch); err != nil {
			failed += len(batch)
			color.Red("\nFailed to store batch %d-%d: %v\n", batch[0].ID, batch[len(batch)-1].ID, err)
			continue
		}
		storageBar.Add(len(batch))

		elapsed := time.Since(startTime).Seconds()
		rate := float64(i+len(batch)) / elapsed
		storageBar.Describe(color.BlueString(
			"Storing in vector database... (%.1f articles/sec)", rate))
	}
	storageBar.Finish()

	if failed > 0 {
		color.Yellow("\n✓ Load finished with %d articles not stored\n", failed)
	} else {
		color.Green("\n✓ Storage complete\n")
	}
	return nil
}

func searchLoop(config Config, embedder types.Embedder, vectorStore types.VectorStore) error {
	color.Cyan("\nSearch the article collection (type 'exit' to quit)")
	color.Cyan("Searching the %q vector; prefix a query with 'title:' or 'content:' to switch", config.Field)

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nQuery: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.ToLower(query) == "exit" {
			break
		}
		if query == "" {
			continue
		}

		field := config.Field
		if strings.HasPrefix(query, "title:") {
			field = types.FieldTitle
			query = strings.TrimSpace(strings.TrimPrefix(query, "title:"))
		} else if strings.HasPrefix(query, "content:") {
			field = types.FieldContent
			query = strings.TrimSpace(strings.TrimPrefix(query, "content:"))
		}

		embeddings, err := embedder.CreateEmbedding(context.Background(), []string{query})
		if err != nil {
			color.Red("Failed to create query embeddings: %v\n", err)
			continue
		}
		flatEmbeddings := embedder.FlattenEmbeddings(embeddings)

		querySpinner := getSpinner("Searching articles...")
		articles, err := vectorStore.Query(context.Background(), flatEmbeddings, field, config.TopK)
		querySpinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error querying articles: %v\n", err)
			continue
		}

		printResults(articles)
	}

	return nil
}

func printResults(articles []models.ScoredArticle) {
	if len(articles) == 0 {
		color.Yellow("No results\n")
		return
	}

	for i, a := range articles {
		fmt.Printf("%d. %s (score: %.4f)\n", i+1, color.CyanString(a.Title), a.Score)
		fmt.Printf("   %s\n", a.URL)
	}
}
