package main

// productFilter is the stage in front of the grid: it narrows the full
// product collection to the filtered, ordered list the windowing
// manager and range selection operate on. The grid core itself never
// filters.
type productFilter struct {
	Query     string
	CatalogID string
	GroupID   string
}

func (f productFilter) Match(p product) bool {
	if f.CatalogID != "" && !p.InCatalog(f.CatalogID) {
		return false
	}
	if f.GroupID != "" && !containsString(p.GroupIDs, f.GroupID) {
		return false
	}
	return p.matchesQuery(f.Query)
}

// Apply preserves the incoming order, which is the order range
// selection indexes into.
func (f productFilter) Apply(products []product) []product {
	out := make([]product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

func containsString(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func productOrder(products []product) []string {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}
