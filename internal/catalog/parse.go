package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// sizeOptionCode identifies the option group that carries size variants.
const sizeOptionCode = "size"

// ParseError is a structurally malformed payload. A missing optional field
// is not a parse error; defaults apply instead.
type ParseError struct {
	Sample string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed product payload: %v (sample: %s)", e.Err, e.Sample)
}

func (e *ParseError) Unwrap() error { return e.Err }

type rawProduct struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Brand string `json:"brand"`
	Price struct {
		Final         float64 `json:"final"`
		Original      float64 `json:"original"`
		DiscountLabel string  `json:"discount_label"`
	} `json:"price"`
	Image   string `json:"image"`
	InStock bool   `json:"in_stock"`
	Options []struct {
		Code   string `json:"code"`
		Values []struct {
			ID        string `json:"id"`
			Label     string `json:"label"`
			ProductID int64  `json:"product_id"`
		} `json:"values"`
	} `json:"options"`
}

// Parse normalizes a raw payload into a snapshot. A product without a size
// option group is valid and yields empty size data.
func Parse(raw []byte) (*Snapshot, error) {
	var p rawProduct
	if err := json.Unmarshal(raw, &p); err != nil {
		sample := string(raw)
		if len(sample) > 200 {
			sample = sample[:200] + "..."
		}
		return nil, &ParseError{Sample: sample, Err: err}
	}

	snap := &Snapshot{
		Product: Product{
			ID:            strconv.FormatInt(p.ID, 10),
			Title:         p.Name,
			Brand:         p.Brand,
			Price:         p.Price.Final,
			OriginalPrice: p.Price.Original,
			DiscountLabel: p.Price.DiscountLabel,
			Image:         p.Image,
			InStock:       p.InStock,
		},
		Sizes:        SizeMapping{},
		Availability: Availability{},
	}
	if snap.Product.OriginalPrice == 0 {
		snap.Product.OriginalPrice = snap.Product.Price
	}

	for _, opt := range p.Options {
		if opt.Code != sizeOptionCode {
			continue
		}
		for _, v := range opt.Values {
			if v.ID == "" {
				continue
			}
			snap.Sizes[v.ID] = SizeRef{
				Label:     v.Label,
				VariantID: strconv.FormatInt(v.ProductID, 10),
			}
			// Listed in the option group means orderable. The shop exposes
			// no per-size quantity, so presence counts as one unit.
			snap.Availability[v.ID] = SizeInfo{InStock: true, Quantity: 1}
			snap.SizeOrder = append(snap.SizeOrder, v.ID)
		}
		break
	}

	return snap, nil
}
