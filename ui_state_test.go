package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityFromConfigDefaults(t *testing.T) {
	v := visibilityFromConfig(nil)
	assert.Equal(t, defaultColumnVisibility(), v)

	v = visibilityFromConfig(&uiConfig{})
	assert.Equal(t, defaultColumnVisibility(), v)
}

func TestVisibilityFromConfigOverrides(t *testing.T) {
	cfg := &uiConfig{Columns: map[string]bool{
		"sku":       false,
		"buy_price": false,
	}}
	v := visibilityFromConfig(cfg)
	assert.False(t, v.SKU)
	assert.False(t, v.BuyPrice)
	assert.True(t, v.Name)
	assert.True(t, v.Price)
}

func TestVisibilityUnknownKeysIgnored(t *testing.T) {
	cfg := &uiConfig{Columns: map[string]bool{"bogus": false}}
	assert.Equal(t, defaultColumnVisibility(), visibilityFromConfig(cfg))
}

func TestSaveAndLoadUIConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.yaml")
	cfg := &uiConfig{
		Theme:    "dark",
		Overscan: 6,
		Columns:  map[string]bool{"sku": false},
	}
	require.NoError(t, saveUIConfig(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "theme: dark")
	assert.Contains(t, string(data), "overscan: 6")
}
