package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"car-landed-cost/internal/customs"
	"car-landed-cost/internal/numfmt"
	"car-landed-cost/internal/quote"
)

// Quote fetches one listing and prints its landed-cost breakdown.
func (a *App) Quote(ctx context.Context, listingID int64) error {
	service, closeStore, err := a.oneShotService(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	result, err := service.CalculateFromListing(ctx, listingID)
	if err != nil {
		return err
	}
	printQuote(result)
	return nil
}

// Manual prints a landed-cost breakdown for user-supplied parameters.
func (a *App) Manual(ctx context.Context, bracket string, displacementCC int64, price string) error {
	age, err := customs.ParseBracket(bracket)
	if err != nil {
		return err
	}
	priceKRW, err := numfmt.ParsePositiveAmount(price)
	if err != nil {
		return err
	}

	service, closeStore, err := a.oneShotService(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	result, err := service.CalculateManual(ctx, quote.ManualInput{
		Age:            age,
		DisplacementCC: displacementCC,
		PriceKRW:       priceKRW,
	})
	if err != nil {
		return err
	}
	printQuote(result)
	return nil
}

// Rates fetches and prints the current snapshot.
func (a *App) Rates(ctx context.Context) error {
	provider := a.newRateProvider()
	snapshot, err := provider.Refresh(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Fetched at: %s\n", snapshot.FetchedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(os.Stdout, "USD/KRW:  %s\n", snapshot.USDToKRW.Round(2))
	fmt.Fprintf(os.Stdout, "USD/RUB:  %s\n", snapshot.USDToRUB.Round(2))
	fmt.Fprintf(os.Stdout, "KRW/RUB:  %s\n", snapshot.KRWToRUB.Round(6))
	fmt.Fprintf(os.Stdout, "USDT/KRW: %s\n", snapshot.USDTToKRW.Round(2))
	return nil
}

func (a *App) oneShotService(ctx context.Context) (*quote.Service, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	provider := a.newRateProvider()
	listings := a.newListingClient()
	service, err := a.newQuoteService(provider, listings, store)
	if err != nil {
		if closeStore != nil {
			closeStore()
		}
		return nil, nil, err
	}
	return service, closeStore, nil
}

func printQuote(result *quote.Quote) {
	if result.Vehicle != nil {
		fmt.Fprintf(os.Stdout, "%s (%d cc, %s)\n\n", result.Vehicle.Title(), result.DisplacementCC, result.Age)
	} else {
		fmt.Fprintf(os.Stdout, "Manual quote (%d cc, %s)\n\n", result.DisplacementCC, result.Age)
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Item\tKRW\tUSD\tRUB")
	for _, key := range quote.ItemOrder {
		item := result.Breakdown.Items[key]
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			key,
			numfmt.Group(item.KRW.Round(0)),
			numfmt.GroupWithDigits(item.USD, 2),
			numfmt.Group(item.RUB.Round(0)),
		)
	}
	total := result.Breakdown.Total
	fmt.Fprintf(writer, "TOTAL\t%s\t%s\t%s\n",
		numfmt.Group(total.KRW.Round(0)),
		numfmt.GroupWithDigits(total.USD, 2),
		numfmt.Group(total.RUB.Round(0)),
	)
	writer.Flush()
}
