package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"cloudwalk-rag/app"
	"cloudwalk-rag/config"
	"cloudwalk-rag/ingest"
	"cloudwalk-rag/ui"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cloudwalk-rag",
		Short: "Chatbot that answers questions about CloudWalk from its public websites",
		Long: `cloudwalk-rag crawls the configured websites, indexes them in a local
vector store and answers questions with a hosted chat model.

Environment variables (also read from .env, optionally prefixed with RAGBOT_):
  LLM_PROVIDER     gemini or openai (default: gemini)
  GOOGLE_API_KEY   API key for Gemini
  OPENAI_API_KEY   API key for OpenAI
  SEED_URLS        comma separated start pages
  DOCUMENTS_PATH   document snapshot (default: cloudwalk_documents.json)
  DB_PATH          vector index directory (default: ./chroma_db)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runChat,
	}

	rootCmd.PersistentFlags().String("env-file", "", "Load environment from this file instead of .env")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	return rootCmd
}

func crawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the seed URLs and overwrite the document snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := stderrLogger(cmd, cfg)

			fmt.Fprintf(cmd.OutOrStdout(), "Crawling %d seed URLs...\n", len(cfg.SeedURLs))
			docs, err := app.Crawl(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d documents to %s\n", len(docs), cfg.DocumentsPath)
			return nil
		},
	}
}

func ingestCmd() *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the vector index from the snapshot, crawling when it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			svc, err := app.Init(cmd.Context(), cfg, stderrLogger(cmd, cfg))
			if err != nil {
				return err
			}
			defer svc.Close()

			stats, err := svc.EnsureIndex(cmd.Context(), rebuild)
			if err != nil {
				return err
			}
			printStats(cmd, stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Drop the existing index and build it again")
	return cmd
}

func askCmd() *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			svc, err := app.Init(cmd.Context(), cfg, stderrLogger(cmd, cfg))
			if err != nil {
				return err
			}
			defer svc.Close()

			if _, err := svc.EnsureIndex(cmd.Context(), false); err != nil {
				return err
			}

			answer, err := svc.Ask(cmd.Context(), nil, strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer.Text)
			if showSources && len(answer.Sources) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for _, s := range answer.Sources {
					fmt.Fprintf(out, "  %.3f  %s\n", s.Similarity, s.Chunk.SourceURL)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "Print the retrieved source URLs")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat (default)",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file.
	log, closer, err := fileLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	svc, err := app.Init(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "Preparing the knowledge base...")
	stats, err := svc.EnsureIndex(cmd.Context(), false)
	if err != nil {
		return err
	}
	printStats(cmd, stats)

	return ui.Run(cmd.Context(), svc)
}

func printStats(cmd *cobra.Command, stats ingest.Stats) {
	out := cmd.OutOrStdout()
	if stats.Reused {
		fmt.Fprintf(out, "Loaded existing index (%d chunks)\n", stats.Indexed)
		return
	}
	source := "fresh crawl"
	if stats.FromCache {
		source = "snapshot"
	}
	fmt.Fprintf(out, "Indexed %d chunks from %d documents (%s)\n", stats.Indexed, stats.Documents, source)
}

// describeError turns a failure into a message with a hint when one helps.
func describeError(err error) string {
	var ie *ingest.IngestError
	switch {
	case errors.Is(err, config.ErrMissingCredential):
		return fmt.Sprintf("Error: %v", err)
	case errors.Is(err, ingest.ErrNoDocuments):
		return fmt.Sprintf("Error: %v\nCheck SEED_URLS and network access, or run `cloudwalk-rag crawl`.", err)
	case errors.As(err, &ie) && ie.Stage == ingest.StageEmbed:
		return fmt.Sprintf("Error: %v\nCheck the API key and quota of the embedding provider, then run again; the partial index was discarded.", err)
	case errors.As(err, &ie) && ie.Stage == ingest.StageLoad:
		return fmt.Sprintf("Error: %v\nDelete or regenerate the document snapshot with `cloudwalk-rag crawl`.", err)
	case errors.As(err, &ie) && ie.Stage == ingest.StageIndex:
		return fmt.Sprintf("Error: %v\nTry `cloudwalk-rag ingest --rebuild`.", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
