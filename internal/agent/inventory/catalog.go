// Package inventory provides the read-only vehicle stock lookup behind the
// media tool. The catalog is seeded data injected at startup; a DMS-backed
// implementation would satisfy the same interface.
package inventory

import (
	"context"
	"strings"

	"github.com/dealerflow/salesagent/internal/agent/model"
)

// Catalog is an in-memory model.InventoryCatalog.
type Catalog struct {
	items []model.InventoryItem
}

func NewCatalog(items []model.InventoryItem) *Catalog {
	if items == nil {
		items = SeedItems()
	}
	return &Catalog{items: items}
}

// Search matches make and model by substring, case-insensitively. Empty
// filters match everything; limit <= 0 means no limit.
func (c *Catalog) Search(ctx context.Context, mk, mdl string, limit int) ([]model.InventoryItem, error) {
	mk = strings.ToLower(strings.TrimSpace(mk))
	mdl = strings.ToLower(strings.TrimSpace(mdl))

	var out []model.InventoryItem
	for _, it := range c.items {
		if mk != "" && !strings.Contains(strings.ToLower(it.Make), mk) {
			continue
		}
		if mdl != "" && !matchesModel(it.Model, mdl) {
			continue
		}
		out = append(out, it)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// matchesModel accepts containment either way so "Corolla" finds
// "Corolla LE" and "Corolla LE 2026" finds "Corolla LE".
func matchesModel(itemModel, query string) bool {
	im := strings.ToLower(itemModel)
	return strings.Contains(im, query) || strings.Contains(query, im)
}

var _ model.InventoryCatalog = (*Catalog)(nil)

// SeedItems is the demo stock.
func SeedItems() []model.InventoryItem {
	return []model.InventoryItem{
		{ID: "stk-1001", Make: "Toyota", Model: "Corolla LE", Year: 2026, Price: 25500, Color: "Celestite Gray", MediaURL: "https://media.sunrisetoyota.example/corolla-le-gray.jpg"},
		{ID: "stk-1002", Make: "Toyota", Model: "Corolla SE", Year: 2026, Price: 28100, Color: "Blue Crush", MediaURL: "https://media.sunrisetoyota.example/corolla-se-blue.jpg"},
		{ID: "stk-1003", Make: "Toyota", Model: "RAV4 LE", Year: 2026, Price: 30800, Color: "Ice Cap", MediaURL: "https://media.sunrisetoyota.example/rav4-le-white.jpg"},
		{ID: "stk-1004", Make: "Toyota", Model: "RAV4 XLE", Year: 2026, Price: 32300, Color: "Midnight Black", MediaURL: "https://media.sunrisetoyota.example/rav4-xle-black.jpg"},
		{ID: "stk-1005", Make: "Toyota", Model: "Camry Hybrid LE", Year: 2026, Price: 32000, Color: "Supersonic Red", MediaURL: "https://media.sunrisetoyota.example/camry-hybrid-red.jpg"},
		{ID: "stk-1006", Make: "Toyota", Model: "Tacoma SR5", Year: 2025, Price: 38200, Color: "Lunar Rock", MediaURL: "https://media.sunrisetoyota.example/tacoma-sr5.jpg"},
	}
}
