package domain

import (
	"context"
	"database/sql"
	"time"
)

// Product is a listing owned by a company
type Product struct {
	ID          string
	CompanyID   string // owning company
	Name        string
	Description string
	MOQ         string // minimum order quantity, e.g. "100 units"
	PriceMin    string
	PriceMax    string
	UnitName    string // e.g. "pcs", "kg"
	CreatedAt   time.Time
	UpdatedAt   sql.NullTime
	DeletedAt   sql.NullTime

	// Company is populated on joined reads, nil otherwise
	Company *Company
}

// ProductRepository defines data access for products. UpdateOwned and
// DeleteOwned constrain the statement by both the product id and the owning
// company id so a caller can never touch another company's product.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	ListByCompany(ctx context.Context, companyID string, limit int) ([]*Product, error)
	ListPaged(ctx context.Context, page, pageSize int) ([]*Product, error)
	SearchInCategory(ctx context.Context, category, query string) ([]*Product, error)
	UpdateOwned(ctx context.Context, product *Product, companyID string) error
	DeleteOwned(ctx context.Context, id, companyID string) error
}
