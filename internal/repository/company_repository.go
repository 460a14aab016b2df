package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yourorg/tradedock/internal/domain"
)

const companyColumns = `id, user_id, company_name, email, phone, slogan, about, website,
		company_size, established_year, category, city_name, country_name,
		created_at, updated_at, deleted_at`

// PostgresCompanyRepository implements domain.CompanyRepository using PostgreSQL
type PostgresCompanyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCompanyRepository creates a new company repository
func NewPostgresCompanyRepository(db *sql.DB, logger *slog.Logger) *PostgresCompanyRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCompanyRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new company. The unique constraint on user_id backs the
// one-company-per-user rule even when the caller's pre-check races.
func (r *PostgresCompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}

	query := `
		INSERT INTO companies (
			id, user_id, company_name, email, phone, slogan, about, website,
			company_size, established_year, category, city_name, country_name
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		company.ID,
		company.UserID,
		company.CompanyName,
		company.Email,
		company.Phone,
		company.Slogan,
		company.About,
		company.Website,
		company.CompanySize,
		company.EstablishedYear,
		company.Category,
		company.CityName,
		company.CountryName,
	).Scan(&company.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("company for user %q: %w", company.UserID, ErrDuplicate)
		}
		r.logger.Error("failed to create company",
			slog.String("user_id", company.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create company: %w", err)
	}

	return nil
}

// GetByID retrieves a company by ID, skipping soft-deleted rows
func (r *PostgresCompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1 AND deleted_at IS NULL`

	company, err := scanCompany(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to get company by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return company, nil
}

// GetByUserID is the single owned-company lookup used to scope mutations
func (r *PostgresCompanyRepository) GetByUserID(ctx context.Context, userID string) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE user_id = $1 AND deleted_at IS NULL`

	company, err := scanCompany(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company by user: %w", err)
	}

	return company, nil
}

// List returns companies newest-first, narrowed by the filter. A free-text
// query matches case-insensitively anywhere in name, category or about;
// multiple categories produce the de-duplicated union of per-category sets.
func (r *PostgresCompanyRepository) List(ctx context.Context, filter domain.CompanyFilter) ([]*domain.Company, error) {
	var (
		where = []string{"deleted_at IS NULL"}
		args  []interface{}
	)

	switch {
	case filter.Query != "":
		pattern := "%" + filter.Query + "%"
		args = append(args, pattern)
		n := strconv.Itoa(len(args))
		where = append(where, "(company_name ILIKE $"+n+" OR category ILIKE $"+n+" OR about ILIKE $"+n+")")
	case len(filter.Categories) > 0:
		args = append(args, pq.Array(filter.Categories))
		where = append(where, "category = ANY($"+strconv.Itoa(len(args))+")")
	case filter.Category != "":
		args = append(args, filter.Category)
		where = append(where, "category = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + companyColumns + ` FROM companies WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list companies", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []*domain.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			r.logger.Error("failed to scan company row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, company)
	}

	return companies, rows.Err()
}

// ListCategories returns the distinct non-empty categories in use
func (r *PostgresCompanyRepository) ListCategories(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT category FROM companies
		WHERE category <> '' AND deleted_at IS NULL
		ORDER BY category
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list categories", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// Update updates a company's profile fields
func (r *PostgresCompanyRepository) Update(ctx context.Context, company *domain.Company) error {
	query := `
		UPDATE companies
		SET company_name = $1, email = $2, phone = $3, slogan = $4, about = $5,
		    website = $6, company_size = $7, established_year = $8, category = $9,
		    city_name = $10, country_name = $11, updated_at = NOW()
		WHERE id = $12 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		company.CompanyName,
		company.Email,
		company.Phone,
		company.Slogan,
		company.About,
		company.Website,
		company.CompanySize,
		company.EstablishedYear,
		company.Category,
		company.CityName,
		company.CountryName,
		company.ID,
	).Scan(&company.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update company: %w", err)
	}

	return nil
}

// Delete soft-deletes a company
func (r *PostgresCompanyRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE companies
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCompany(row rowScanner) (*domain.Company, error) {
	company := &domain.Company{}
	err := row.Scan(
		&company.ID,
		&company.UserID,
		&company.CompanyName,
		&company.Email,
		&company.Phone,
		&company.Slogan,
		&company.About,
		&company.Website,
		&company.CompanySize,
		&company.EstablishedYear,
		&company.Category,
		&company.CityName,
		&company.CountryName,
		&company.CreatedAt,
		&company.UpdatedAt,
		&company.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return company, nil
}
