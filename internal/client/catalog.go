package client

import (
	"context"
	"fmt"
	"time"

	"storefront/app/internal/config"
	"storefront/app/internal/domain"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// FeedError reports a non-success response from the catalog feed.
type FeedError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("failed to load CSV from %s: %s", e.URL, e.Status)
}

type CatalogClient interface {
	// FetchProducts makes a single attempt to fetch and parse the feed.
	FetchProducts(ctx context.Context, fallbackCurrency string) ([]domain.Product, error)
	URL() string
}

type catalogClient struct {
	csvURL     string
	httpClient *resty.Client
	parser     *csvParser
}

func NewCatalogClient(cfg config.CatalogConfig) CatalogClient {
	client := resty.New().
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetRetryCount(0).
		SetHeader("Accept", "text/csv,text/plain;q=0.9,*/*;q=0.8").
		SetHeader("Cache-Control", "no-store")

	return &catalogClient{
		csvURL:     cfg.CSVURL,
		httpClient: client,
		parser:     newCSVParser(cfg.PlaceholderImage),
	}
}

func (c *catalogClient) URL() string {
	return c.csvURL
}

func (c *catalogClient) FetchProducts(ctx context.Context, fallbackCurrency string) ([]domain.Product, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(c.csvURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to fetch CSV: %w", err)
	}

	if resp.IsError() {
		return nil, &FeedError{URL: c.csvURL, StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	products, err := c.parser.ParseProducts(resp.String(), fallbackCurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV from %s: %w", c.csvURL, err)
	}

	log.Debugf("Fetched %d products from %s", len(products), c.csvURL)
	return products, nil
}
