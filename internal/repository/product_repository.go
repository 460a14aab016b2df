package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yourorg/tradedock/internal/domain"
)

// PostgresProductRepository implements domain.ProductRepository using PostgreSQL
type PostgresProductRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProductRepository creates a new product repository
func NewPostgresProductRepository(db *sql.DB, logger *slog.Logger) *PostgresProductRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProductRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new product under its owning company
func (r *PostgresProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}

	query := `
		INSERT INTO products (id, company_id, name, description, moq, price_min, price_max, unit_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		product.ID,
		product.CompanyID,
		product.Name,
		product.Description,
		product.MOQ,
		product.PriceMin,
		product.PriceMax,
		product.UnitName,
	).Scan(&product.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create product",
			slog.String("company_id", product.CompanyID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// GetByID retrieves a product with its company joined
func (r *PostgresProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT p.id, p.company_id, p.name, p.description, p.moq, p.price_min,
		       p.price_max, p.unit_name, p.created_at, p.updated_at, p.deleted_at,
		       c.id, c.user_id, c.company_name, c.category, c.city_name, c.country_name, c.created_at
		FROM products p
		JOIN companies c ON c.id = p.company_id
		WHERE p.id = $1 AND p.deleted_at IS NULL AND c.deleted_at IS NULL
	`

	product, err := scanJoinedProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to get product by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// ListByCompany returns a company's products, newest-first
func (r *PostgresProductRepository) ListByCompany(ctx context.Context, companyID string, limit int) ([]*domain.Product, error) {
	query := `
		SELECT id, company_id, name, description, moq, price_min, price_max,
		       unit_name, created_at, updated_at, deleted_at
		FROM products
		WHERE company_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	args := []interface{}{companyID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list products by company",
			slog.String("company_id", companyID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// ListPaged returns products with their companies joined, newest-first,
// using offset pagination: page 1 is rows [0, pageSize).
func (r *PostgresProductRepository) ListPaged(ctx context.Context, page, pageSize int) ([]*domain.Product, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query := `
		SELECT p.id, p.company_id, p.name, p.description, p.moq, p.price_min,
		       p.price_max, p.unit_name, p.created_at, p.updated_at, p.deleted_at,
		       c.id, c.user_id, c.company_name, c.category, c.city_name, c.country_name, c.created_at
		FROM products p
		JOIN companies c ON c.id = p.company_id
		WHERE p.deleted_at IS NULL AND c.deleted_at IS NULL
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		r.logger.Error("failed to list products",
			slog.Int("page", page),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product, err := scanJoinedProduct(rows)
		if err != nil {
			r.logger.Error("failed to scan product row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	return products, rows.Err()
}

// SearchInCategory matches the query anywhere in name or description for
// products whose company sits in the given category
func (r *PostgresProductRepository) SearchInCategory(ctx context.Context, category, query string) ([]*domain.Product, error) {
	sqlQuery := `
		SELECT p.id, p.company_id, p.name, p.description, p.moq, p.price_min,
		       p.price_max, p.unit_name, p.created_at, p.updated_at, p.deleted_at
		FROM products p
		JOIN companies c ON c.id = p.company_id
		WHERE c.category = $1
		  AND (p.name ILIKE $2 OR p.description ILIKE $2)
		  AND p.deleted_at IS NULL AND c.deleted_at IS NULL
		ORDER BY p.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, sqlQuery, category, "%"+query+"%")
	if err != nil {
		r.logger.Error("failed to search products",
			slog.String("category", category),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// UpdateOwned updates a product only when it belongs to the given company.
// The ownership check is part of the statement's predicate, not a separate
// read, so a forged product id from another company matches zero rows.
func (r *PostgresProductRepository) UpdateOwned(ctx context.Context, product *domain.Product, companyID string) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, moq = $3, price_min = $4,
		    price_max = $5, unit_name = $6, updated_at = NOW()
		WHERE id = $7 AND company_id = $8 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		product.Name,
		product.Description,
		product.MOQ,
		product.PriceMin,
		product.PriceMax,
		product.UnitName,
		product.ID,
		companyID,
	).Scan(&product.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// DeleteOwned soft-deletes a product only when it belongs to the company
func (r *PostgresProductRepository) DeleteOwned(ctx context.Context, id, companyID string) error {
	query := `
		UPDATE products
		SET deleted_at = NOW()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	var products []*domain.Product
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.CompanyID,
			&product.Name,
			&product.Description,
			&product.MOQ,
			&product.PriceMin,
			&product.PriceMax,
			&product.UnitName,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func scanJoinedProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{Company: &domain.Company{}}
	err := row.Scan(
		&product.ID,
		&product.CompanyID,
		&product.Name,
		&product.Description,
		&product.MOQ,
		&product.PriceMin,
		&product.PriceMax,
		&product.UnitName,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.DeletedAt,
		&product.Company.ID,
		&product.Company.UserID,
		&product.Company.CompanyName,
		&product.Company.Category,
		&product.Company.CityName,
		&product.Company.CountryName,
		&product.Company.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}
