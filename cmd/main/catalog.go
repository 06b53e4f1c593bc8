package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"storefront/app/internal/client"
	"storefront/app/internal/money"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Fetch the product feed once and print what it parses to",
	RunE:  runCatalog,
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	feed := client.NewCatalogClient(cfg.Catalog)
	products, err := feed.FetchProducts(ctx, cfg.Catalog.DefaultCurrency)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SKU\tNAME\tPRICE\tBRAND")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, money.FormatMajor(p.Price, p.Currency), p.Brand)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n📦 %d products from %s\n", len(products), feed.URL())
	return nil
}
