package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bookworm/internal/engine"
)

var translateCmd = &cobra.Command{
	Use:   "translate <book-id>",
	Short: "Translate a book's missing paragraphs",
	Long:  "Translates every paragraph of the book that is not yet cached. Safe to re-run: cached paragraphs are never re-sent, so an interrupted or partial run resumes where it stopped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()

		bookID := args[0]
		done := make(chan struct{})
		go pollProgress(svc, bookID, done)

		res, err := svc.TranslateBook(cmd.Context(), bookID)
		close(done)
		if err != nil {
			return err
		}

		if res.Complete() {
			fmt.Fprintf(os.Stdout, "\nDone: %d/%d units cached.\n", res.CachedUnits+res.TranslatedUnits, res.TotalUnits)
		} else {
			fmt.Fprintf(os.Stdout, "\nPartial: %d/%d units cached, %d failed. Re-run to retry the rest.\n",
				res.CachedUnits+res.TranslatedUnits, res.TotalUnits, res.FailedUnits)
		}
		return nil
	},
}

// pollProgress prints translation counters until done closes.
func pollProgress(svc progressPoller, bookID string, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap, ok := svc.Progress(bookID)
			if !ok || snap.State != engine.StateTranslating {
				continue
			}
			fmt.Fprintf(os.Stderr, "  %d/%d units translated\r", snap.Done(), snap.TotalUnits)
		}
	}
}

type progressPoller interface {
	Progress(bookID string) (engine.Snapshot, bool)
}

var statusCmd = &cobra.Command{
	Use:   "status <book-id>",
	Short: "Show translation coverage for a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()

		b, err := svc.Library().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cov, err := svc.Coverage(cmd.Context(), b.ID)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%s\n", b.Title)
		if cov.MappedUnits == 0 {
			fmt.Fprintln(os.Stdout, "Not yet translated.")
			return nil
		}
		fmt.Fprintf(os.Stdout, "Translated %d of %d units (%.1f%%)\n",
			cov.CachedUnits, cov.MappedUnits, 100*float64(cov.CachedUnits)/float64(cov.MappedUnits))
		return nil
	},
}

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <book-id>",
	Short: "Export a fully translated book as bilingual text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()

		out := os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		if err := svc.Export(cmd.Context(), args[0], out); err != nil {
			var incomplete *engine.IncompleteTranslationError
			if errors.As(err, &incomplete) {
				return fmt.Errorf("book is not fully translated (%d of %d units missing); run translate first",
					incomplete.Missing, incomplete.Total)
			}
			return err
		}
		if exportOutput != "" {
			fmt.Fprintf(os.Stdout, "Exported to %s\n", exportOutput)
		}
		return nil
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List queued and recent translation jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()

		jobList := svc.Jobs()
		if len(jobList) == 0 {
			fmt.Fprintln(os.Stdout, "No jobs.")
			return nil
		}
		for _, j := range jobList {
			fmt.Fprintf(os.Stdout, "%s  %-8s  book=%s lang=%s provider=%s %d/%d",
				j.ID, j.Status, j.Payload.BookID, j.Payload.TargetLang, j.Payload.Provider, j.TranslatedUnits, j.TotalUnits)
			if j.Error != "" {
				fmt.Fprintf(os.Stdout, "  error=%s", j.Error)
			}
			fmt.Fprintln(os.Stdout)
		}
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the translation cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached translation",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := svc.ClearCache(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Removed %d cached translation(s).\n", n)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	cacheCmd.AddCommand(cacheClearCmd)
}
