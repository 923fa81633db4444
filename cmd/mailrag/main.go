package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailrag/mailrag/internal/config"
	"github.com/mailrag/mailrag/internal/embedder"
	"github.com/mailrag/mailrag/internal/ingestion"
	"github.com/mailrag/mailrag/internal/llm"
	"github.com/mailrag/mailrag/internal/server"
	"github.com/mailrag/mailrag/internal/service"
	"github.com/mailrag/mailrag/internal/vectorstore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mailrag",
		Short:         "Index a company email corpus and answer questions over it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	root.AddCommand(newIndexCmd(), newAskCmd(), newServeCmd())
	return root
}

func setupLogging() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// deps holds the wired collaborators shared by the commands.
type deps struct {
	cfg      *config.Config
	embedder embedder.Embedder
	store    *vectorstore.QdrantStore
}

func buildDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := vectorstore.NewQdrantStore(cfg.QdrantAddr, cfg.QdrantAPIKey, cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	emb := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL:   cfg.OllamaURL,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.VectorSize,
	})

	return &deps{cfg: cfg, embedder: emb, store: store}, nil
}

func (d *deps) indexer() *ingestion.Indexer {
	return ingestion.NewIndexer(d.embedder, d.store, d.cfg.EmailsDir, d.cfg.UpsertBatchSize)
}

func (d *deps) ragService() (*service.RAGService, error) {
	llmClient, err := llm.NewMistralClient(d.cfg.MistralAPIKey, llm.WithModel(d.cfg.MistralModel))
	if err != nil {
		return nil, err
	}
	return service.NewRAGService(d.embedder, d.store, llmClient, d.cfg.TopK), nil
}

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build the Qdrant index from the emails directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.store.Close()

			count, err := d.indexer().Index(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Index built successfully: %d chunks.\n", count)
			return nil
		},
	}
}

func newAskCmd() *cobra.Command {
	var (
		topK       int
		subject    string
		fromFilter string
		toFilter   string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question (requires an index and MISTRAL_API_KEY)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.store.Close()

			rag, err := d.ragService()
			if err != nil {
				return err
			}

			answer, results, err := rag.Ask(cmd.Context(), args[0], topK, filterFromFlags(subject, fromFilter, toFilter))
			if err != nil {
				return err
			}

			fmt.Printf("Retrieved sources: %d\n", len(results))
			for i, r := range results {
				if i >= 3 {
					break
				}
				fmt.Printf("  %d. %s | %s\n", i+1, r.Source(), r.Subject())
			}
			fmt.Printf("\nAnswer: %s\n", answer)
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve")
	cmd.Flags().StringVar(&subject, "subject", "", "filter by subject (exact match)")
	cmd.Flags().StringVar(&fromFilter, "from", "", "filter by sender (exact match)")
	cmd.Flags().StringVar(&toFilter, "to", "", "filter by receiver (exact match)")
	return cmd
}

// filterFromFlags combines the exact-match flags into a conjunction.
func filterFromFlags(subject, from, to string) vectorstore.Filter {
	var clauses []vectorstore.Filter
	if subject != "" {
		clauses = append(clauses, vectorstore.Equals{Field: "subject", Value: subject})
	}
	if from != "" {
		clauses = append(clauses, vectorstore.Equals{Field: "from", Value: from})
	}
	if to != "" {
		clauses = append(clauses, vectorstore.Equals{Field: "to", Value: to})
	}
	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return vectorstore.And{Clauses: clauses}
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			defer d.store.Close()

			rag, err := d.ragService()
			if err != nil {
				return err
			}

			httpServer := server.NewHTTPServer(server.HTTPServerConfig{
				Port:           d.cfg.HTTPPort,
				Logger:         slog.Default(),
				AllowedOrigins: []string{"*"}, // Configure in production
			}, rag, d.indexer())

			errCh := make(chan error, 1)
			go func() {
				if err := httpServer.Start(); err != nil {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				slog.Info("received shutdown signal", "signal", sig)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}

// Ensure interfaces are satisfied at compile time
var (
	_ vectorstore.VectorStore = (*vectorstore.QdrantStore)(nil)
	_ embedder.Embedder       = (*embedder.OllamaEmbedder)(nil)
	_ llm.LLM                 = (*llm.MistralClient)(nil)
)
