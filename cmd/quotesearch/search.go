package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/executor"
)

var (
	searchShort int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Run one query and print the matching quotes",
	Long: `Load the configured collection, run one query against it and print the
results. With no query the most recent quotes are printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, _, closeSource, err := newApp(ctx, cfg, appDeps{})
		if err != nil {
			return err
		}
		defer closeSource()
		if err := a.Load(ctx); err != nil {
			return err
		}

		formatter, err := presenter.NewDateFormatter(cfg.Presenter)
		if err != nil {
			return err
		}
		result, err := executor.New(a, executor.Options{Search: cfg.Search}).Execute(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		records := formatter.Records(result.Documents)

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		printRecords(os.Stdout, records, searchShort)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchShort, "short", 80, "truncate each line to this many characters (0 keeps full lines)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
}

func printRecords(w io.Writer, records []presenter.DisplayRecord, short int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No quotes matching query.")
		return
	}
	for i, r := range records {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "#%s  %s\n", r.ID, r.DisplayDate)
		for _, line := range r.Lines {
			fmt.Fprintf(w, "  %s\n", truncate(line, short))
		}
	}
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
