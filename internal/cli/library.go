package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bookworm/internal/book"
)

var addCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Import book files into the library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()

		for _, path := range args {
			b, err := svc.Library().AddBook(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("add %s: %w", path, err)
			}
			fmt.Fprintf(os.Stdout, "Added %q (%s, %d chapters, language %s)\n", b.Title, b.ID, b.TotalChapters, b.Language)
		}
		return nil
	},
}

var (
	listOrder  string
	listSearch string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List books in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()

		var books []book.Book
		if listSearch != "" {
			books, err = svc.Library().Search(cmd.Context(), listSearch)
		} else {
			books, err = svc.Library().List(cmd.Context(), listOrder)
		}
		if err != nil {
			return err
		}
		if len(books) == 0 {
			fmt.Fprintln(os.Stdout, "Library is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tFORMAT\tLANG\tCHAPTERS")
		for _, b := range books {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", b.ID, b.Title, b.Author, b.Format, b.Language, b.TotalChapters)
		}
		return w.Flush()
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <book-id>",
	Short: "Remove a book from the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openService()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := svc.Library().RemoveBook(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Removed.")
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listOrder, "order", "", "ordering: last_read, title, author, added")
	listCmd.Flags().StringVar(&listSearch, "search", "", "filter by title or author substring")
}
