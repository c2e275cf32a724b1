package models

import "storefront/internal/money"

// ProductResponse is the public representation of a product.
type ProductResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url,omitempty"`
}

// ToResponse formats p for clients.
func (p *Product) ToResponse() ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       money.Format(p.Price),
		ImageURL:    p.ImageURL,
	}
}

// ProductListResponse wraps a product listing.
type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
}
