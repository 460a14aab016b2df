package domain

import (
	"context"
	"database/sql"
	"time"
)

// Company is a seller profile. Each company is owned by exactly one user,
// enforced by a unique constraint on the owning user id.
type Company struct {
	ID              string
	UserID          string // owning user, unique
	CompanyName     string
	Email           string
	Phone           string
	Slogan          string
	About           string
	Website         string
	CompanySize     string
	EstablishedYear string
	Category        string
	CityName        string
	CountryName     string
	CreatedAt       time.Time
	UpdatedAt       sql.NullTime
	DeletedAt       sql.NullTime
}

// CompanyFilter narrows a company listing. Zero value means "show all".
type CompanyFilter struct {
	Category   string   // exact category match
	Categories []string // union across categories, de-duplicated
	Query      string   // case-insensitive substring over name/category/about
	Limit      int      // 0 means no limit
}

// CompanyRepository defines data access for companies
type CompanyRepository interface {
	Create(ctx context.Context, company *Company) error
	GetByID(ctx context.Context, id string) (*Company, error)
	GetByUserID(ctx context.Context, userID string) (*Company, error)
	List(ctx context.Context, filter CompanyFilter) ([]*Company, error)
	ListCategories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, company *Company) error
	Delete(ctx context.Context, id string) error
}
