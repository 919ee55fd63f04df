package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/samvad-hq/samvad-uplink/internal/storage"
	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 20

func newHistoryCmd(rt *runtime) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent uploads recorded in the local ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return &exitError{code: ExitGeneralError, err: fmt.Errorf("--limit must be positive, got %d", limit)}
			}
			records, err := rt.app.History(limit)
			if err != nil {
				return backendError(fmt.Errorf("read upload history: %w", err))
			}
			if records == nil {
				records = []storage.UploadRecord{}
			}
			return render(cmd.OutOrStdout(), rt.output, records, func(w io.Writer) error {
				return printHistory(w, records)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "maximum number of uploads to list")
	return cmd
}

func printHistory(w io.Writer, records []storage.UploadRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No uploads recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UPLOADED\tFILE\tSIZE\tTYPE\tDIGEST")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rec.UploadedAt.Local().Format(time.DateTime),
			rec.FileName,
			formatBytes(rec.Size),
			rec.ContentType,
			shortDigest(rec.Digest),
		)
	}
	return tw.Flush()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
