package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItem(t *testing.T) {
	sku, qty, err := parseItem("mug=2")
	require.NoError(t, err)
	assert.Equal(t, "mug", sku)
	assert.Equal(t, 2, qty)

	sku, qty, err = parseItem("tee")
	require.NoError(t, err)
	assert.Equal(t, "tee", sku)
	assert.Equal(t, 1, qty)

	for _, bad := range []string{"mug=0", "mug=-1", "mug=x"} {
		_, _, err := parseItem(bad)
		assert.Error(t, err, bad)
	}
}
