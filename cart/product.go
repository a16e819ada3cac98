package cart

import "github.com/shopspring/decimal"

// Product is the catalog record captured into a line item at the time it is
// added. The cart never re-fetches it: price and stock stay as they were.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	// Stock is advisory. Nil means the catalog does not track stock for the
	// product.
	Stock *int `json:"stock,omitempty"`

	Slug   string  `json:"slug,omitempty"`
	SKU    string  `json:"sku,omitempty"`
	Color  string  `json:"color,omitempty"`
	Images []Image `json:"images,omitempty"`
}

type Image struct {
	URL         string `json:"url"`
	IsThumbnail bool   `json:"is_thumbnail"`
}

// Thumbnail returns the URL of the thumbnail image, falling back to the first
// image. It returns "" when the product has no images.
func (p Product) Thumbnail() string {
	for _, img := range p.Images {
		if img.IsThumbnail {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// ExceedsStock reports whether quantity is more than the advisory stock.
func (p Product) ExceedsStock(quantity int) bool {
	return p.Stock != nil && quantity > *p.Stock
}
