package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/yourorg/tradedock/internal/domain"
	"github.com/yourorg/tradedock/internal/observability/metrics"
	"github.com/yourorg/tradedock/internal/repository"
	"github.com/yourorg/tradedock/internal/security"
)

// ProductService owns product reads and the ownership-scoped mutations
type ProductService struct {
	productRepo domain.ProductRepository
	companyRepo domain.CompanyRepository
	authorizer  *security.Authorizer
	logger      *slog.Logger

	defaultPageSize int
	maxPageSize     int
}

// NewProductService creates a new product service
func NewProductService(
	productRepo domain.ProductRepository,
	companyRepo domain.CompanyRepository,
	authorizer *security.Authorizer,
	logger *slog.Logger,
	defaultPageSize, maxPageSize int,
) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultPageSize <= 0 {
		defaultPageSize = 8
	}
	if maxPageSize <= 0 {
		maxPageSize = 50
	}

	return &ProductService{
		productRepo:     productRepo,
		companyRepo:     companyRepo,
		authorizer:      authorizer,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// ProductInput is a validated product payload
type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MOQ         string `json:"moq"`
	PriceMin    string `json:"priceMin"`
	PriceMax    string `json:"priceMax"`
	UnitName    string `json:"unitName"`
}

func (in *ProductInput) validate() error {
	fields := fieldErrors{}
	if strings.TrimSpace(in.Name) == "" {
		fields.add("name", "product name is required")
	}
	return fields.err()
}

// ListPaged returns a page of products with companies joined, newest-first.
// Page 1 is the first pageSize rows. Backing store failures degrade to an
// empty page.
func (s *ProductService) ListPaged(ctx context.Context, page, pageSize int) []*domain.Product {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	start := time.Now()
	products, err := s.productRepo.ListPaged(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("product listing failed, degrading to empty result",
			slog.Int("page", page),
			slog.String("error", err.Error()),
		)
		return []*domain.Product{}
	}
	if products == nil {
		products = []*domain.Product{}
	}
	metrics.ObserveListingQuery("products", "db", time.Since(start))
	return products
}

// Get returns one product with its company
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

// SearchInCategory matches name or description within a category. An empty
// query matches every product in the category.
func (s *ProductService) SearchInCategory(ctx context.Context, category, query string) []*domain.Product {
	products, err := s.productRepo.SearchInCategory(ctx, category, strings.TrimSpace(query))
	if err != nil {
		s.logger.Error("product search failed, degrading to empty result",
			slog.String("category", category),
			slog.String("error", err.Error()),
		)
		return []*domain.Product{}
	}
	if products == nil {
		products = []*domain.Product{}
	}
	return products
}

// ownedCompany resolves the acting user's company, failing closed when
// there is none.
func (s *ProductService) ownedCompany(ctx context.Context, userID string) (*domain.Company, error) {
	company, err := s.companyRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoCompany
		}
		return nil, err
	}
	return company, nil
}

// Create adds a product under the caller's owned company
func (s *ProductService) Create(ctx context.Context, userID string, input ProductInput) (*domain.Product, error) {
	company, err := s.ownedCompany(ctx, userID)
	if err != nil {
		metrics.ObserveMutation("product", "create", "denied")
		return nil, err
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	product := &domain.Product{
		CompanyID:   company.ID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		MOQ:         input.MOQ,
		PriceMin:    input.PriceMin,
		PriceMax:    input.PriceMax,
		UnitName:    input.UnitName,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error("failed to create product",
			slog.String("company_id", company.ID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveMutation("product", "create", "error")
		return nil, errors.New("failed to create product")
	}

	metrics.ObserveMutation("product", "create", "success")
	s.logger.Info("product created",
		slog.String("product_id", product.ID),
		slog.String("company_id", company.ID),
	)
	return product, nil
}

// Update modifies a product the caller's company owns. The write is a
// single statement conditioned on both the product id and the owning
// company id, so a valid-looking foreign product id changes nothing.
func (s *ProductService) Update(ctx context.Context, userID, productID string, input ProductInput) (*domain.Product, error) {
	company, err := s.ownedCompany(ctx, userID)
	if err != nil {
		metrics.ObserveMutation("product", "update", "denied")
		return nil, err
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	if err := s.checkOwnership(ctx, company, productID, security.ActionWrite); err != nil {
		metrics.ObserveMutation("product", "update", "denied")
		return nil, err
	}

	product := &domain.Product{
		ID:          productID,
		CompanyID:   company.ID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		MOQ:         input.MOQ,
		PriceMin:    input.PriceMin,
		PriceMax:    input.PriceMax,
		UnitName:    input.UnitName,
	}

	if err := s.productRepo.UpdateOwned(ctx, product, company.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.ObserveMutation("product", "update", "not_found")
			return nil, ErrNotFound
		}
		s.logger.Error("failed to update product",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveMutation("product", "update", "error")
		return nil, errors.New("failed to update product")
	}

	metrics.ObserveMutation("product", "update", "success")
	return product, nil
}

// Delete soft-deletes a product the caller's company owns
func (s *ProductService) Delete(ctx context.Context, userID, productID string) error {
	company, err := s.ownedCompany(ctx, userID)
	if err != nil {
		metrics.ObserveMutation("product", "delete", "denied")
		return err
	}

	if err := s.checkOwnership(ctx, company, productID, security.ActionDelete); err != nil {
		metrics.ObserveMutation("product", "delete", "denied")
		return err
	}

	if err := s.productRepo.DeleteOwned(ctx, productID, company.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.ObserveMutation("product", "delete", "not_found")
			return ErrNotFound
		}
		s.logger.Error("failed to delete product",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveMutation("product", "delete", "error")
		return errors.New("failed to delete product")
	}

	metrics.ObserveMutation("product", "delete", "success")
	s.logger.Info("product deleted",
		slog.String("product_id", productID),
		slog.String("company_id", company.ID),
	)
	return nil
}

// checkOwnership runs the explicit authorizer check on the target record.
// The compound predicate in the repository is the real guarantee; this adds
// an audited denial with a user-facing message when the record exists but
// belongs to someone else.
func (s *ProductService) checkOwnership(ctx context.Context, company *domain.Company, productID string, action security.Action) error {
	existing, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return errors.New("failed to load product")
	}

	return s.authorizer.ValidateResourceAccess(company.ID, security.ResourcePermission{
		ResourceType: security.ResourceProduct,
		ResourceID:   productID,
		OwnerID:      existing.CompanyID,
		Action:       action,
	})
}
