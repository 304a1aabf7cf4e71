package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hashmap-kz/gzdec/config"
	"github.com/hashmap-kz/gzdec/pkg/loggr"
	"github.com/hashmap-kz/gzdec/pkg/pipe"
)

const appCode = "gzdec"

var (
	configPath string
	logLevel   string
	chunkSize  int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := buildRootCommand()
	rootCmd.AddCommand(buildCatCommand())
	rootCmd.AddCommand(buildRestoreCommand())
	rootCmd.AddCommand(buildRestoreAllCommand())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func buildRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appCode,
		Short: "Decode gzip and bzip2 streams and archive objects",
		Long: `gzdec detects gzip or bzip2 input by its header and decodes it as a stream.

Commands:
  cat          Decode a local file or stdin to stdout
  restore      Decode one repository object into the output prefix
  restore-all  Decode every compressed object under a prefix

Examples:
  gzdec cat app.log.gz | less
  curl -s https://example.com/dump.sql.bz2 | gzdec cat > dump.sql
  gzdec --config repo.yml restore 2025/04/app.log.gz --sha256
  gzdec --config repo.yml restore-all 2025/04`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (overrides LOG_LEVEL)")
	cmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", config.DefaultChunkSize, "Bytes per buffer submitted to the decoder")

	return cmd
}

func setup(cmd *cobra.Command, _ []string) error {
	var cfg *config.Config
	if configPath != "" {
		cfg = config.LoadConfigFromFile(configPath)
	} else {
		cfg = config.LoadDefaults()
	}

	if cmd.Flags().Changed("chunk-size") {
		if chunkSize <= 0 {
			return fmt.Errorf("--chunk-size must be positive, got %d", chunkSize)
		}
		cfg.ChunkSize = chunkSize
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	lvl, err := loggr.ParseLevel(level)
	if err != nil {
		return err
	}
	loggr.Init(lvl, appCode)

	slog.Debug("config loaded",
		slog.String("module", "main"),
		slog.String("repo_type", string(cfg.RepoType)),
		slog.Int("chunk_size", cfg.ChunkSize),
		slog.Int("scratch_size", cfg.ScratchSize),
		slog.Int("jobs", cfg.Jobs),
	)
	return nil
}

func decodeOptions(cfg *config.Config, name string) pipe.Options {
	return pipe.Options{
		Name:        name,
		ChunkSize:   cfg.ChunkSize,
		ScratchSize: cfg.ScratchSize,
		Passthrough: cfg.Passthrough,
	}
}
