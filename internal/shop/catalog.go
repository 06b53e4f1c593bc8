package shop

import (
	"context"
	"sync"

	"storefront/app/internal/client"
	"storefront/app/internal/domain"
	"storefront/app/internal/metrics"

	log "github.com/sirupsen/logrus"
)

// Catalog loads the product feed and remembers the last good load for
// lookups by id.
type Catalog struct {
	client  client.CatalogClient
	display *Display
	metrics *metrics.Metrics

	mu       sync.RWMutex
	products []domain.Product
	byID     map[string]domain.Product
	loaded   bool
}

func NewCatalog(client client.CatalogClient, display *Display, metrics *metrics.Metrics) *Catalog {
	return &Catalog{
		client:  client,
		display: display,
		metrics: metrics,
		byID:    map[string]domain.Product{},
	}
}

func (c *Catalog) URL() string {
	return c.client.URL()
}

// Load fetches the feed once. On success the first product's currency
// becomes the display currency. A failed load keeps the previous products.
func (c *Catalog) Load(ctx context.Context) ([]domain.Product, error) {
	products, err := c.client.FetchProducts(ctx, c.display.Currency())
	c.metrics.CatalogLoads.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		log.Errorf("❌ Failed to load products from %s: %v", c.client.URL(), err)
		return nil, err
	}

	if len(products) > 0 && products[0].Currency != "" {
		c.display.Adopt(products[0].Currency)
	}

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		if _, dup := byID[p.ID]; !dup {
			byID[p.ID] = p
		}
	}

	c.mu.Lock()
	c.products = products
	c.byID = byID
	c.loaded = true
	c.mu.Unlock()

	c.metrics.CatalogProducts.Set(float64(len(products)))
	log.Infof("📦 Loaded %d products", len(products))
	return products, nil
}

func (c *Catalog) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Product(nil), c.products...)
}

// Find looks a product up by id, loading the feed first if it has never
// loaded successfully.
func (c *Catalog) Find(ctx context.Context, id string) (domain.Product, bool, error) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()

	if !loaded {
		if _, err := c.Load(ctx); err != nil {
			return domain.Product{}, false, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	return p, ok, nil
}
