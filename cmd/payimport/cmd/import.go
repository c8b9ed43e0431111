package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/payimport/internal/importer"
)

// errImportFailed marks a run that finished with row or file errors.
var errImportFailed = errors.New("import finished with errors")

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import payment files",
	Long: `Import one or more CSV or XLSX payment files.

Each file is a separate run with its own transaction. Valid rows are
persisted even when other rows in the same file fail. The command exits
non-zero if any file reported errors.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer closeStore()

	pipeline, err := newPipeline(cfg, store)
	if err != nil {
		return err
	}

	failed := false
	for _, path := range args {
		ok, err := importFile(ctx, cmd.OutOrStdout(), pipeline, path)
		if err != nil {
			return err
		}
		if !ok {
			failed = true
		}
	}

	if failed {
		return errImportFailed
	}
	return nil
}

// importFile runs one file and prints its summary. The error is non-nil
// only for fatal failures, which stop the remaining files.
func importFile(ctx context.Context, out io.Writer, p *importer.Pipeline, path string) (bool, error) {
	res, err := p.Run(ctx, importer.PathFile(path))
	if err != nil {
		slog.Error("import failed", "file", path, "error", err)
		fmt.Fprintf(out, "%s: %s\n", path, importer.FormatUserError(err))
		return false, err
	}

	printResult(out, path, res)
	return res.OK(), nil
}

func printResult(out io.Writer, path string, res *importer.Result) {
	fmt.Fprintf(out, "%s: %d rows, %d persisted (%d new), %d notified",
		path, res.Rows, res.Persisted, res.Created, res.Notified)
	if res.NotifyFailures > 0 {
		fmt.Fprintf(out, ", %d notifications failed", res.NotifyFailures)
	}
	fmt.Fprintln(out)

	for _, e := range res.Errors {
		msg := importer.MapError(e)
		if e.Line > 0 {
			fmt.Fprintf(out, "  line %d [%s] %s (Code: %s)\n", e.Line, e.Kind, e.Message, msg.Code)
		} else {
			fmt.Fprintf(out, "  [%s] %s (Code: %s)\n", e.Kind, e.Message, msg.Code)
		}
	}
}
