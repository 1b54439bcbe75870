package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/tui"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/logger"
)

var tuiLogFile string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Search interactively in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var logOut io.Writer = io.Discard
		if tuiLogFile != "" {
			f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return err
			}
			defer f.Close()
			logOut = f
		}
		logger.SetupWriter(logOut, cfg.Logging.Level, cfg.Logging.Format)

		ctx := cmd.Context()
		a, _, closeSource, err := newApp(ctx, cfg, appDeps{})
		if err != nil {
			return err
		}
		defer closeSource()

		formatter, err := presenter.NewDateFormatter(cfg.Presenter)
		if err != nil {
			return err
		}
		exec := executor.New(a, executor.Options{Search: cfg.Search, Tracing: cfg.Tracing.Enabled})

		// The first load runs behind the UI so the loading state is visible.
		a.Reload(ctx)
		defer a.Wait()
		return tui.Run(ctx, exec, a, formatter)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringVar(&tuiLogFile, "log-file", "", "write logs to this file instead of discarding them")
}
