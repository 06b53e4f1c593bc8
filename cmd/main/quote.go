package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/app/internal/client"
	"storefront/app/internal/domain"
	"storefront/app/internal/money"
	"storefront/app/internal/pricing"
	"storefront/app/internal/render"

	"github.com/spf13/cobra"
)

var (
	quoteItems   []string
	quoteMethod  string
	quoteCountry string
	quoteCoupon  string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a cart against the live feed",
	Long: `Price a cart against the live feed and the configured policy.

Items are given as sku=quantity, for example:
  storefront quote --item mug=2 --item tee=1 --method express --coupon SAVE20`,
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringSliceVarP(&quoteItems, "item", "i", nil, "Line item as sku=quantity (repeatable)")
	quoteCmd.Flags().StringVar(&quoteMethod, "method", string(domain.ShippingStandard), "Shipping method: standard, express or pickup")
	quoteCmd.Flags().StringVar(&quoteCountry, "country", domain.DefaultCountry, "Destination country")
	quoteCmd.Flags().StringVar(&quoteCoupon, "coupon", "", "Coupon code")
}

func parseItem(spec string) (string, int, error) {
	sku, qty, found := strings.Cut(spec, "=")
	if !found {
		return spec, 1, nil
	}
	n, err := strconv.Atoi(qty)
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("invalid quantity in %q", spec)
	}
	return sku, n, nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	policy, err := pricing.PolicyFromConfig(cfg.Pricing)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	products, err := client.NewCatalogClient(cfg.Catalog).FetchProducts(ctx, cfg.Catalog.DefaultCurrency)
	if err != nil {
		return err
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		if _, dup := byID[p.ID]; !dup {
			byID[p.ID] = p
		}
	}

	currency := cfg.Catalog.DefaultCurrency
	if len(products) > 0 && products[0].Currency != "" {
		currency = products[0].Currency
	}

	var items []domain.CartItem
	for _, spec := range quoteItems {
		sku, qty, err := parseItem(spec)
		if err != nil {
			return err
		}
		p, ok := byID[sku]
		if !ok {
			return fmt.Errorf("unknown sku %q", sku)
		}
		items = append(items, domain.CartItem{Product: p, Quantity: qty})
	}

	selections := domain.Selections{
		Method:  domain.ShippingMethod(quoteMethod),
		Country: quoteCountry,
		Code:    quoteCoupon,
	}.Normalize()
	totals := pricing.NewEngine(policy).ComputeTotals(items, selections)

	line := func(label string, cents int64) {
		fmt.Printf("%-10s %12s\n", label, money.Format(cents, currency))
	}
	line("Subtotal", totals.SubtotalCents)
	line("Discount", -totals.DiscountCents)
	line("Shipping", totals.ShippingCents)
	line("Tax", totals.TaxCents)
	line("Total", totals.TotalCents)

	if hint := render.HintText(totals.Hint, policy.FreeShippingThreshold, currency); hint != "" {
		fmt.Println(hint)
	}
	return nil
}
