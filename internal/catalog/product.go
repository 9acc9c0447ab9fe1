// Package catalog normalizes raw shop product payloads into the descriptor,
// size mapping, and availability views the watcher works with.
package catalog

// Product is the normalized descriptor for one product snapshot. Replaced
// wholesale on every successful fetch.
type Product struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Brand         string  `json:"brand"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"original_price"`
	DiscountLabel string  `json:"discount_label"`
	Image         string  `json:"image"`
	InStock       bool    `json:"in_stock"`
}

// SizeInfo is the availability of one size. The shop does not expose a true
// per-size quantity, so a size listed in the option group counts as quantity 1.
type SizeInfo struct {
	InStock  bool `json:"in_stock"`
	Quantity int  `json:"quantity"`
}

// Availability maps size id to its availability. A size id absent from the
// map is unavailable.
type Availability map[string]SizeInfo

// SizeRef translates a size id into its display label and the child product
// id the cart-add call requires.
type SizeRef struct {
	Label     string `json:"label"`
	VariantID string `json:"variant_id"`
}

// SizeMapping maps size id to its reference data.
type SizeMapping map[string]SizeRef

// Snapshot is one normalized observation of a product. SizeOrder preserves
// the upstream option ordering, which decides which size a watch-any restock
// reserves first.
type Snapshot struct {
	Product      Product      `json:"product"`
	Sizes        SizeMapping  `json:"sizes"`
	Availability Availability `json:"availability"`
	SizeOrder    []string     `json:"size_order"`
}

// InStockSizes returns the available size ids in upstream order.
func (s *Snapshot) InStockSizes() []string {
	var sizes []string
	for _, id := range s.SizeOrder {
		if s.Availability[id].InStock {
			sizes = append(sizes, id)
		}
	}
	return sizes
}
