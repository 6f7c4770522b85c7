package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"car-landed-cost/internal/storage"
)

type rateHistoryReader interface {
	ListRecentRateSamples(ctx context.Context, limit int) ([]storage.RateRecord, error)
}

type quoteHistoryReader interface {
	ListRecentQuotes(ctx context.Context, limit int) ([]storage.QuoteRecord, error)
}

// Show prints recent rate samples, or recent quotes with --quotes.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Quotes {
		return a.showQuotes(ctx, store, opts.Limit)
	}
	return a.showRates(ctx, store, opts.Limit)
}

func (a *App) showRates(ctx context.Context, store rateHistoryReader, limit int) error {
	samples, err := store.ListRecentRateSamples(ctx, limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no rate samples found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Fetched (UTC)\tUSD/KRW\tUSD/RUB\tKRW/RUB\tUSDT/KRW")
	for _, sample := range samples {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			sample.FetchedAt.UTC().Format(time.RFC3339),
			sample.USDToKRW.StringFixed(2),
			sample.USDToRUB.StringFixed(2),
			sample.KRWToRUB.StringFixed(6),
			sample.USDTToKRW.StringFixed(2),
		)
	}
	writer.Flush()
	return nil
}

func (a *App) showQuotes(ctx context.Context, store quoteHistoryReader, limit int) error {
	records, err := store.ListRecentQuotes(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no quotes found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Created (UTC)\tSource\tTitle\tAge\tCC\tPrice KRW\tTotal RUB")
	for _, record := range records {
		title := record.Title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			record.CreatedAt.UTC().Format(time.RFC3339),
			record.Source,
			title,
			record.AgeBracket,
			record.DisplacementCC,
			record.PriceKRW.StringFixed(0),
			record.TotalRUB.StringFixed(0),
		)
	}
	writer.Flush()
	return nil
}
