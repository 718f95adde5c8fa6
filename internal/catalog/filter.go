package catalog

import (
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
)

// AllCategories is the category selection that matches every product.
const AllCategories = "all"

// Filter keeps products whose name contains query (case-insensitive), whose
// category name equals category (or category is "all"), and whose brand is in
// brands when brands is non-empty.
func Filter(products []models.Product, query, category string, brands []string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		if !matchesCategory(p, category) {
			continue
		}
		if len(brands) > 0 && !containsFold(brands, p.Brand) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesCategory(p models.Product, category string) bool {
	if category == "" || strings.EqualFold(category, AllCategories) {
		return true
	}
	return strings.EqualFold(p.Category.Name, category)
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
