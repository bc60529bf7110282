package domain

import "time"

// ImageFolder is the media store folder product images are uploaded to.
const ImageFolder = "isokoinfo_products"

// Product is a listing owned by one seller.
type Product struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Category      string    `json:"category"`
	MarketID      int64     `json:"market_id"`
	MarketName    string    `json:"market_name,omitempty"`
	SellingUnit   string    `json:"selling_unit"`
	ImageURL      string    `json:"image_url"`
	ImagePublicID string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OwnedBy reports whether userID owns the product.
func (p *Product) OwnedBy(userID int64) bool {
	return p.UserID == userID
}

// ProductFilter narrows a catalog listing. Empty fields match everything;
// set fields must match exactly.
type ProductFilter struct {
	Category    string
	Marketplace string
}

// Catalog is a filtered product listing plus the values available to
// filter on.
type Catalog struct {
	Products     []Product `json:"products"`
	Categories   []string  `json:"categories"`
	Marketplaces []string  `json:"marketplaces"`
	Filter       ProductFilter
}

// ProductDetail is a product with its reviews, newest first.
type ProductDetail struct {
	Product Product       `json:"product"`
	Reviews []Review      `json:"reviews"`
	Summary ReviewSummary `json:"summary"`
}
