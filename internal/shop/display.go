package shop

import (
	"strings"
	"sync"

	"storefront/app/internal/money"

	"github.com/shopspring/decimal"
)

// Display is the process-wide display currency. It starts from config and
// follows the first product of each successful catalog load.
type Display struct {
	mu       sync.RWMutex
	currency string
}

func NewDisplay(currency string) *Display {
	d := &Display{currency: money.DefaultCurrency}
	d.Adopt(currency)
	return d
}

func (d *Display) Currency() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.currency
}

// Adopt switches the display currency. Blank codes are ignored.
func (d *Display) Adopt(currency string) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currency = currency
}

func (d *Display) Format(cents int64) string {
	return money.Format(cents, d.Currency())
}

func (d *Display) FormatPrice(price decimal.Decimal, currency string) string {
	if currency == "" {
		currency = d.Currency()
	}
	return money.FormatMajor(price, currency)
}
