package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/tove/storyforge/internal/models"
	"github.com/tove/storyforge/internal/types"
	"github.com/tove/storyforge/pkg/chunker"
	cfgPkg "github.com/tove/storyforge/pkg/config"
	"github.com/tove/storyforge/pkg/evidence"
	"github.com/tove/storyforge/pkg/extractor"
	"github.com/tove/storyforge/pkg/index"
	"github.com/tove/storyforge/pkg/llm"
	"github.com/tove/storyforge/pkg/pipeline"
	"github.com/tove/storyforge/pkg/story"
	"github.com/tove/storyforge/server"
)

type flags struct {
	configPath string
	inputDir   string
	outputsDir string
	serve      bool
	port       string
	model      string
	baseURL    string
	dbURL      string
	backend    string
}

func main() {
	f := parseFlags()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.inputDir, "input", "", "Directory of .txt documents to process")
	flag.StringVar(&f.outputsDir, "outputs", "", "Directory for result artifacts")
	flag.BoolVar(&f.serve, "serve", false, "Run the HTTP server instead of a batch run")
	flag.StringVar(&f.port, "port", "", "HTTP server port")
	flag.StringVar(&f.model, "model", "", "LLM model to use")
	flag.StringVar(&f.baseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&f.dbURL, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&f.backend, "backend", "", "Vector index backend (memory or pgvector)")
	flag.Parse()

	return f
}

func loadConfig(f flags) (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	// Flags win over the config file
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if f.baseURL != "" {
		cfg.LLM.BaseURL = f.baseURL
		cfg.Embedding.BaseURL = f.baseURL
	}
	if f.dbURL != "" {
		cfg.Index.URL = f.dbURL
	}
	if f.backend != "" {
		cfg.Index.Backend = f.backend
	}
	if f.port != "" {
		cfg.Server.Port = f.port
	}
	if f.outputsDir != "" {
		cfg.Server.OutputsDir = f.outputsDir
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s: %s", e.Field, e.Message)
		}
		return nil, fmt.Errorf("invalid configuration")
	}

	return cfg, nil
}

func run(f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if f.serve {
		processor, err := buildProcessor(cfg, logger, nil)
		if err != nil {
			return err
		}

		srv, err := server.NewServer(server.Config{
			Port:   cfg.Server.Port,
			Logger: logger,
		}, processor)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %v", err)
		}
		return srv.ListenAndServe()
	}

	if f.inputDir == "" {
		return fmt.Errorf("either -input or -serve is required")
	}

	documents, err := readDocuments(f.inputDir)
	if err != nil {
		return err
	}
	if len(documents) == 0 {
		return fmt.Errorf("no .txt files found in %s", f.inputDir)
	}
	color.Blue("\nProcessing %d documents from %s\n", len(documents), f.inputDir)

	var spinner *progressbar.ProgressBar
	onProgress := func(stage string) {
		if spinner != nil {
			spinner.Finish()
			fmt.Print("\n")
		}
		spinner = getSpinner(stage)
	}

	processor, err := buildProcessor(cfg, logger, onProgress)
	if err != nil {
		return err
	}

	result := processor.Process(context.Background(), documents)
	if spinner != nil {
		spinner.Finish()
		fmt.Print("\n")
	}

	if result.Status == models.StatusError {
		return fmt.Errorf("processing failed: %s", result.Message)
	}

	printStories(result)

	if cfg.Server.OutputsDir != "" {
		jsonPath, textPath, err := writeArtifacts(cfg.Server.OutputsDir, result)
		if err != nil {
			return err
		}
		color.Green("\n✓ Results written to %s and %s\n", jsonPath, textPath)
	}

	return nil
}

func buildProcessor(cfg *cfgPkg.Config, logger *zap.Logger, onProgress func(string)) (*pipeline.Processor, error) {
	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		RateLimit:   cfg.LLM.RateLimit,
		CallTimeout: time.Duration(cfg.LLM.CallTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %v", err)
	}
	storyEngine := chatEngine.WithTemperature(cfg.LLM.StoryTemperature)

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.Embedding.Model,
		BaseURL: cfg.Embedding.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %v", err)
	}

	ch := chunker.NewWithConfig(chunker.Config{
		ChunkSize:    cfg.Pipeline.ChunkSize,
		ChunkOverlap: cfg.Pipeline.ChunkOverlap,
	})

	var newIndex types.IndexFactory
	switch cfg.Index.Backend {
	case "pgvector":
		newIndex = func() (types.VectorIndex, error) {
			return index.NewPgvectorIndex(index.PgvectorConfig{
				ConnString: cfg.Index.URL,
				TableName:  cfg.Index.TableName,
				VectorDim:  cfg.Index.VectorDim,
			}, embedder)
		}
	default:
		newIndex = func() (types.VectorIndex, error) {
			return index.NewMemoryIndex(embedder)
		}
	}

	tokens := llm.NewTokenCounter(cfg.LLM.Model)

	ex, err := extractor.NewWithConfig(extractor.Config{
		BatchSize:      cfg.Pipeline.BatchSize,
		MaxBatchTokens: cfg.Pipeline.MaxBatchTokens,
		Logger:         logger,
	}, chatEngine, tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extractor: %v", err)
	}

	col, err := evidence.NewWithConfig(evidence.Config{
		EvidenceCap: cfg.Pipeline.EvidenceCap,
		RetrievalK:  cfg.Pipeline.RetrievalK,
		FetchK:      cfg.Pipeline.FetchK,
		Logger:      logger,
	}, chatEngine, &ch, newIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize evidence collector: %v", err)
	}

	gen, err := story.New(storyEngine, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize story generator: %v", err)
	}

	return pipeline.New(pipeline.Config{
		Logger:     logger,
		OnProgress: onProgress,
	}, ex, col, gen)
}

func readDocuments(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %v", err)
	}

	documents := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %v", entry.Name(), err)
		}
		documents[entry.Name()] = string(content)
	}

	return documents, nil
}

func printStories(result models.ProcessingResult) {
	heading := color.New(color.FgCyan, color.Bold).PrintfFunc()

	for _, s := range result.Stories {
		fmt.Println()
		heading("%s\n", strings.ToUpper(string(s.Category)))
		color.Yellow("Topics: %s", strings.Join(s.Topics, ", "))
		fmt.Printf("\n%s\n", s.Story)
		color.Blue("(%d words)", s.WordCount)
	}

	if result.Metadata != nil {
		color.Green("\n✓ Generated %d stories from %d documents\n",
			result.Metadata.GeneratedStories, result.Metadata.DocumentCount)
	}
}

func writeArtifacts(dir string, result models.ProcessingResult) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create outputs directory: %v", err)
	}

	timestamp := time.Now().Format("20060102_150405")

	jsonPath := filepath.Join(dir, timestamp+"_stories.json")
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to encode results: %v", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %v", jsonPath, err)
	}

	textPath := filepath.Join(dir, timestamp+"_readable_stories.txt")
	if err := os.WriteFile(textPath, []byte(formatReadable(result)), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %v", textPath, err)
	}

	return jsonPath, textPath, nil
}

func formatReadable(result models.ProcessingResult) string {
	separator := strings.Repeat("=", 80)

	var b strings.Builder
	for _, s := range result.Stories {
		b.WriteString(separator + "\n")
		b.WriteString(strings.ToUpper(string(s.Category)) + "\n")
		b.WriteString(separator + "\n\n")
		b.WriteString("Topics: " + strings.Join(s.Topics, ", ") + "\n\n")
		b.WriteString(s.Story + "\n\n")
	}
	return b.String()
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
