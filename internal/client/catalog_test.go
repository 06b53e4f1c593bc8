package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"storefront/app/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalogClient(url string) CatalogClient {
	return NewCatalogClient(config.CatalogConfig{
		CSVURL:           url,
		PlaceholderImage: placeholder,
		Timeout:          5,
	})
}

func TestCatalogClientFetchProducts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("Title,Price,Currency\nMug,4.50,NZD\n"))
	}))
	defer srv.Close()

	c := newTestCatalogClient(srv.URL + "/data/products.csv")
	products, err := c.FetchProducts(context.Background(), "AUD")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "mug", products[0].ID)
	assert.Equal(t, "NZD", products[0].Currency)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCatalogClientErrorStatusIsSingleAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestCatalogClient(srv.URL)
	_, err := c.FetchProducts(context.Background(), "AUD")
	require.Error(t, err)

	var feedErr *FeedError
	require.True(t, errors.As(err, &feedErr))
	assert.Equal(t, http.StatusNotFound, feedErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCatalogClientEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := newTestCatalogClient(srv.URL)
	_, err := c.FetchProducts(context.Background(), "AUD")
	assert.ErrorIs(t, err, ErrEmptyFeed)
}
