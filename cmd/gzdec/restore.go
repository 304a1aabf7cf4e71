package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hashmap-kz/gzdec/config"
	"github.com/hashmap-kz/gzdec/pkg/boot"
	"github.com/hashmap-kz/gzdec/pkg/concur"
	"github.com/hashmap-kz/gzdec/pkg/repo"
)

var (
	force        bool
	verifySHA256 bool
)

func buildRestoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <object>",
		Short: "Decode one repository object into the output prefix",
		Long: `Reads a compressed object from the configured repository, decrypts it
when it carries the .aes extension, decodes it and stores the result
under OUTPUT_PREFIX with the compression extensions removed.

Examples:
  gzdec --config repo.yml restore 2025/04/app.log.gz      # -> decoded/2025/04/app.log
  gzdec --config repo.yml restore base.tar.gz.aes --force  # -> decoded/base.tar
  gzdec --config repo.yml restore dump.sql.bz2 --sha256`,
		Args: cobra.ExactArgs(1),
		RunE: runRestore,
	}
	addRestoreFlags(cmd)
	return cmd
}

func buildRestoreAllCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore-all [prefix]",
		Short: "Decode every compressed object under prefix",
		Long: `Finds objects ending in .gz, .bz2, .tgz or .tbz2 (optionally followed by .aes)
under prefix and restores each of them, JOBS at a time.
Every object is decoded by its own element.

Examples:
  gzdec --config repo.yml restore-all
  gzdec --config repo.yml restore-all 2025/04 --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRestoreAll,
	}
	addRestoreFlags(cmd)
	return cmd
}

func addRestoreFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing decoded objects")
	cmd.Flags().BoolVar(&verifySHA256, "sha256", false, "Re-read stored results and verify their checksum")
}

func openRepo(ctx context.Context) (repo.Repository, func(), error) {
	r, closer, err := boot.DecideRepo(ctx, config.Cfg())
	if err != nil {
		return nil, nil, err
	}
	return r, func() {
		if err := closer.Close(); err != nil {
			slog.Warn("cannot close storage", slog.String("module", "main"), slog.Any("err", err))
		}
	}, nil
}

func restoreOptions(cfg *config.Config, object string) repo.RestoreOptions {
	return repo.RestoreOptions{
		Force:  force,
		Verify: verifySHA256,
		Decode: decodeOptions(cfg, object),
	}
}

func runRestore(cmd *cobra.Command, args []string) error {
	r, release, err := openRepo(cmd.Context())
	if err != nil {
		return err
	}
	defer release()

	res, err := r.Restore(cmd.Context(), args[0], restoreOptions(config.Cfg(), args[0]))
	if err != nil {
		slog.Error("restore failed", slog.String("module", "main"), slog.String("src", args[0]), slog.Any("err", err))
		return err
	}
	printRestored(res)
	return nil
}

func runRestoreAll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Cfg()

	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	r, release, err := openRepo(ctx)
	if err != nil {
		return err
	}
	defer release()

	objects, err := r.ListCompressed(ctx, prefix)
	if err != nil {
		return fmt.Errorf("cannot list objects: %w", err)
	}
	if len(objects) == 0 {
		fmt.Println("No compressed objects to restore.")
		return nil
	}

	outcomes := concur.Run(ctx, cfg.Jobs, objects, func(ctx context.Context, object string) (*repo.RestoreResult, error) {
		return r.Restore(ctx, object, restoreOptions(cfg, object))
	})

	var bytesOut uint64
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Printf("ERROR: %s: %v\n", o.Item, o.Err)
			continue
		}
		printRestored(o.Result)
		bytesOut += o.Result.Stats.BytesOut
	}

	failed := concur.Errors(outcomes)
	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Printf("Objects:   %d\n", len(objects))
	fmt.Printf("Restored:  %d\n", len(objects)-len(failed))
	fmt.Printf("Errors:    %d\n", len(failed))
	fmt.Printf("Decoded:   %d bytes\n", bytesOut)

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d objects failed to restore", len(failed), len(objects))
	}
	return nil
}

func printRestored(res *repo.RestoreResult) {
	fmt.Printf("RESTORE: %s (%s)\n", res.Source, res.Format)
	fmt.Printf("     TO: %s\n", res.Dest)
	if res.SHA256 != "" {
		fmt.Printf(" SHA256: %s\n", res.SHA256)
	}
}
