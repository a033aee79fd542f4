package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type uiConfig struct {
	Theme    string          `yaml:"theme,omitempty"`
	Overscan int             `yaml:"overscan,omitempty"`
	Columns  map[string]bool `yaml:"columns,omitempty"`
}

func loadUIConfig() (*uiConfig, string) {
	configDir := resolveConfigDir()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return &uiConfig{}, filepath.Join(configDir, "ui.yaml")
	}
	path := filepath.Join(configDir, "ui.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return &uiConfig{}, path
	}
	var cfg uiConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &uiConfig{}, path
	}
	return &cfg, path
}

func saveUIConfig(cfg *uiConfig, path string) error {
	if cfg == nil {
		cfg = &uiConfig{}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func resolveConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "catalog-admin")
}

// visibilityFromConfig starts from the default visibility and applies
// explicit per-column overrides from ui.yaml.
func visibilityFromConfig(cfg *uiConfig) columnVisibility {
	v := defaultColumnVisibility()
	if cfg == nil || len(cfg.Columns) == 0 {
		return v
	}
	apply := func(name string, dst *bool) {
		if val, ok := cfg.Columns[name]; ok {
			*dst = val
		}
	}
	apply("image", &v.Image)
	apply("name", &v.Name)
	apply("sku", &v.SKU)
	apply("unit", &v.Unit)
	apply("packaging", &v.Packaging)
	apply("weight", &v.Weight)
	apply("buy_price", &v.BuyPrice)
	apply("price", &v.Price)
	apply("markup", &v.Markup)
	apply("fixed", &v.Fixed)
	apply("category", &v.Category)
	apply("groups", &v.Groups)
	apply("catalogs", &v.Catalogs)
	apply("source", &v.Source)
	return v
}
