package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes/source"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/postgres"
)

var seedFrom string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Copy a JSON collection into the Postgres quotes table",
	Long: `Validate a JSON collection (the built-in one unless --from names a file glob)
and append the accepted quotes to the table named by source.table. With Kafka
enabled, running servers are told to reload.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var from source.Source = source.NewEmbedded()
		if seedFrom != "" {
			from = source.NewFile(seedFrom)
		}
		records, err := from.Fetch(ctx)
		if err != nil {
			return err
		}

		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer client.Close()
		dst, err := source.NewPostgres(client, cfg.Source.Table)
		if err != nil {
			return err
		}

		var announcer ingestion.Announcer
		if cfg.Kafka.Enabled {
			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QuotesUpdated)
			defer producer.Close()
			announcer = producer
		}
		receipt, err := ingestion.New(dst, announcer).Ingest(ctx, records)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "seeded %d quotes from %s into %s (revision %s)\n",
			receipt.Written, from.Name(), receipt.Sink, receipt.Revision)
		if n := len(receipt.Report.Rejected); n > 0 {
			fmt.Fprintf(out, "skipped %d rejected records\n", n)
		}
		if receipt.Announced {
			fmt.Fprintf(out, "announced on %s\n", cfg.Kafka.Topics.QuotesUpdated)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedFrom, "from", "", "file glob to read instead of the built-in collection")
}
