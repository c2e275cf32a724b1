package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
	"github.com/shopspring/decimal"

	"storefront/internal/money"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 4000
)

// Product is a catalog entry.
//
// Invariants:
//   - Name is non-empty and at most 200 characters
//   - Price >= 0
//   - ImageURL is empty or an absolute http(s) URL
type Product struct {
	ID          id.ProductID
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductInput carries admin-entered fields. Price is raw form text.
type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url"`
}

// NewProduct validates input and builds a product stamped at now.
func NewProduct(productID id.ProductID, in ProductInput, now time.Time) (*Product, error) {
	p := &Product{ID: productID, CreatedAt: now}
	if err := p.Apply(in, now); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply replaces the editable fields after validating them. On error the
// product is left unchanged.
func (p *Product) Apply(in ProductInput, now time.Time) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name is too long")
	}
	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return dErrors.New(dErrors.CodeValidation, "description is too long")
	}
	price, err := money.ParsePrice(in.Price)
	if err != nil {
		return err
	}
	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL != "" && !govalidator.IsRequestURL(imageURL) {
		return dErrors.New(dErrors.CodeValidation, "image_url must be an absolute URL")
	}

	p.Name = name
	p.Description = description
	p.Price = price
	p.ImageURL = imageURL
	p.UpdatedAt = now
	return nil
}
