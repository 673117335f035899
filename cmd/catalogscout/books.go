package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/catalogscout/internal/catalog"
	"github.com/IshaanNene/catalogscout/internal/storage"
)

var booksOutput string

// booksCmd creates the "books" subcommand.
func booksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books [books.csv]",
		Short: "Convert a books CSV export to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBooks,
	}

	cmd.Flags().StringVarP(&booksOutput, "output", "o", "books.json", "output file path")
	return cmd
}

func runBooks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	input := "books.csv"
	if len(args) > 0 {
		input = args[0]
	}

	books, err := catalog.LoadBooksFile(input)
	if err != nil {
		return err
	}
	if err := storage.WriteJSON(booksOutput, books); err != nil {
		return err
	}

	logger.Info("books converted", "input", input, "output", booksOutput, "books", len(books))
	fmt.Printf("\n✅ %d books written to %s\n", len(books), booksOutput)
	return nil
}
