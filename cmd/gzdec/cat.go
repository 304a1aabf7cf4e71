package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hashmap-kz/gzdec/config"
	"github.com/hashmap-kz/gzdec/pkg/pipe"
)

func buildCatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat [file]",
		Short: "Decode a local file or stdin to stdout",
		Long: `Decodes gzip or bzip2 data and writes the result to stdout.
The format is detected from the first two bytes of the stream.
Reads stdin when no file is given, or when the file is "-".

Examples:
  gzdec cat app.log.gz
  gzdec cat < dump.sql.bz2 > dump.sql
  gzdec --chunk-size 4096 --log-level debug cat big.tar.gz > big.tar`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCat,
	}
}

func runCat(cmd *cobra.Command, args []string) error {
	cfg := config.Cfg()

	var src io.Reader = os.Stdin
	name := "stdin"
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("cannot open input: %w", err)
		}
		defer f.Close()
		src = f
		name = args[0]
	}

	out := bufio.NewWriterSize(os.Stdout, cfg.ScratchSize)
	res, err := pipe.Decode(cmd.Context(), src, out, decodeOptions(cfg, name))
	if flushErr := out.Flush(); err == nil && flushErr != nil {
		err = fmt.Errorf("cannot write decoded data: %w", flushErr)
	}
	if res != nil {
		slog.Debug("decoded",
			slog.String("module", "cat"),
			slog.String("src", name),
			slog.String("format", res.Format.String()),
			slog.Uint64("bytes_in", res.Stats.BytesIn),
			slog.Uint64("bytes_out", res.Stats.BytesOut),
			slog.Uint64("decode_failures", res.Stats.DecodeFailures),
		)
	}
	if err != nil {
		slog.Error("decode failed", slog.String("module", "cat"), slog.String("src", name), slog.Any("err", err))
		return err
	}
	return nil
}
