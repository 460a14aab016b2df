package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/tradedock/internal/domain"
	"github.com/yourorg/tradedock/internal/observability/metrics"
	"github.com/yourorg/tradedock/internal/repository"
	"github.com/yourorg/tradedock/pkg/cache"
)

const (
	companyCachePrefix = "companies:"
	categoriesCacheKey = "categories"
	categoriesCacheTTL = 5 * time.Minute
)

// CompanyService owns company creation and the public listing reads
type CompanyService struct {
	companyRepo  domain.CompanyRepository
	productRepo  domain.ProductRepository
	listingCache ListingCache
	localCache   *cache.Cache
	logger       *slog.Logger

	featuredLimit int
	defaultLimit  int
}

// NewCompanyService creates a new company service. listingCache may be nil
// (caching disabled); localCache backs the category list.
func NewCompanyService(
	companyRepo domain.CompanyRepository,
	productRepo domain.ProductRepository,
	listingCache ListingCache,
	localCache *cache.Cache,
	logger *slog.Logger,
	featuredLimit, defaultLimit int,
) *CompanyService {
	if logger == nil {
		logger = slog.Default()
	}
	if featuredLimit <= 0 {
		featuredLimit = 3
	}

	return &CompanyService{
		companyRepo:   companyRepo,
		productRepo:   productRepo,
		listingCache:  listingCache,
		localCache:    localCache,
		logger:        logger,
		featuredLimit: featuredLimit,
		defaultLimit:  defaultLimit,
	}
}

// CompanyInput is a validated company creation/update payload
type CompanyInput struct {
	CompanyName     string `json:"companyName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Slogan          string `json:"slogan"`
	About           string `json:"about"`
	Website         string `json:"website"`
	CompanySize     string `json:"companySize"`
	EstablishedYear string `json:"establishedYear"`
	Category        string `json:"category"`
	CityName        string `json:"cityName"`
	CountryName     string `json:"countryName"`
}

func (in *CompanyInput) validate() error {
	fields := fieldErrors{}
	if len(strings.TrimSpace(in.CompanyName)) < 3 {
		fields.add("companyName", "company name must be at least 3 characters")
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		fields.add("email", "invalid email address")
	}
	if in.Website != "" {
		u, err := url.Parse(in.Website)
		if err != nil || u.Scheme == "" || u.Host == "" {
			fields.add("website", "invalid URL")
		}
	}
	return fields.err()
}

// Create registers the caller's company. A user who already owns one is
// rejected explicitly; the unique constraint on user_id covers the race.
func (s *CompanyService) Create(ctx context.Context, userID string, input CompanyInput) (*domain.Company, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	if _, err := s.companyRepo.GetByUserID(ctx, userID); err == nil {
		metrics.ObserveMutation("company", "create", "conflict")
		return nil, ErrCompanyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("failed to check owned company", slog.String("error", err.Error()))
		metrics.ObserveMutation("company", "create", "error")
		return nil, errors.New("failed to create company")
	}

	company := &domain.Company{
		UserID:          userID,
		CompanyName:     strings.TrimSpace(input.CompanyName),
		Email:           input.Email,
		Phone:           input.Phone,
		Slogan:          input.Slogan,
		About:           input.About,
		Website:         input.Website,
		CompanySize:     input.CompanySize,
		EstablishedYear: input.EstablishedYear,
		Category:        input.Category,
		CityName:        input.CityName,
		CountryName:     input.CountryName,
	}

	if err := s.companyRepo.Create(ctx, company); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.ObserveMutation("company", "create", "conflict")
			return nil, ErrCompanyExists
		}
		s.logger.Error("failed to create company",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveMutation("company", "create", "error")
		return nil, errors.New("failed to create company")
	}

	s.invalidateListings(ctx)
	metrics.ObserveMutation("company", "create", "success")
	s.logger.Info("company created",
		slog.String("company_id", company.ID),
		slog.String("user_id", userID),
	)

	return company, nil
}

// Update rewrites the caller's company profile. The row to update is
// resolved through the owner lookup, so a user can only ever touch their
// own company.
func (s *CompanyService) Update(ctx context.Context, userID string, input CompanyInput) (*domain.Company, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	company, err := s.companyRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to load owned company", slog.String("error", err.Error()))
		metrics.ObserveMutation("company", "update", "error")
		return nil, errors.New("failed to update company")
	}

	company.CompanyName = strings.TrimSpace(input.CompanyName)
	company.Email = input.Email
	company.Phone = input.Phone
	company.Slogan = input.Slogan
	company.About = input.About
	company.Website = input.Website
	company.CompanySize = input.CompanySize
	company.EstablishedYear = input.EstablishedYear
	company.Category = input.Category
	company.CityName = input.CityName
	company.CountryName = input.CountryName

	if err := s.companyRepo.Update(ctx, company); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to update company",
			slog.String("company_id", company.ID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveMutation("company", "update", "error")
		return nil, errors.New("failed to update company")
	}

	s.invalidateListings(ctx)
	metrics.ObserveMutation("company", "update", "success")
	s.logger.Info("company updated",
		slog.String("company_id", company.ID),
		slog.String("user_id", userID),
	)

	return company, nil
}

// GetByOwner is the single owned-company lookup scoping every product
// mutation. Returns ErrNotFound when the user owns no company.
func (s *CompanyService) GetByOwner(ctx context.Context, userID string) (*domain.Company, error) {
	company, err := s.companyRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return company, nil
}

// CompanyWithProducts pairs a company with a few featured products
type CompanyWithProducts struct {
	Company  *domain.Company
	Products []*domain.Product
}

// GetWithProducts returns a company page: the profile plus its newest
// products up to the featured limit.
func (s *CompanyService) GetWithProducts(ctx context.Context, id string) (*CompanyWithProducts, error) {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	products, err := s.productRepo.ListByCompany(ctx, company.ID, s.featuredLimit)
	if err != nil {
		// profile still renders without products
		s.logger.Error("failed to load company products",
			slog.String("company_id", company.ID),
			slog.String("error", err.Error()),
		)
		products = []*domain.Product{}
	}

	return &CompanyWithProducts{Company: company, Products: products}, nil
}

// List returns companies narrowed by the filter, newest-first. An empty
// filter (and an empty search query in particular) means "show all". On a
// backing store failure the error is logged and an empty list is returned.
func (s *CompanyService) List(ctx context.Context, filter domain.CompanyFilter) []*domain.Company {
	if filter.Limit <= 0 {
		filter.Limit = s.defaultLimit
	}

	start := time.Now()
	key := listingKey(filter)

	if s.listingCache != nil {
		if raw, ok := s.listingCache.Get(ctx, key); ok {
			var companies []*domain.Company
			if err := json.Unmarshal(raw, &companies); err == nil {
				metrics.ObserveListingQuery("companies", "cache", time.Since(start))
				return companies
			}
		}
	}

	companies, err := s.companyRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("company listing failed, degrading to empty result",
			slog.String("error", err.Error()),
		)
		return []*domain.Company{}
	}
	if companies == nil {
		companies = []*domain.Company{}
	}

	if s.listingCache != nil {
		if raw, err := json.Marshal(companies); err == nil {
			s.listingCache.Set(ctx, key, raw)
		}
	}

	metrics.ObserveListingQuery("companies", "db", time.Since(start))
	return companies
}

// Search is the free-text entry point; an empty query falls back to the
// unfiltered listing rather than an empty result set.
func (s *CompanyService) Search(ctx context.Context, query string, limit int) []*domain.Company {
	return s.List(ctx, domain.CompanyFilter{Query: strings.TrimSpace(query), Limit: limit})
}

// Categories returns the distinct categories in use, served from the
// in-process cache most of the time.
func (s *CompanyService) Categories(ctx context.Context) []string {
	if s.localCache != nil {
		if v, ok := s.localCache.Get(categoriesCacheKey); ok {
			metrics.ObserveCacheLookup("categories", "hit")
			return v.([]string)
		}
		metrics.ObserveCacheLookup("categories", "miss")
	}

	categories, err := s.companyRepo.ListCategories(ctx)
	if err != nil {
		s.logger.Error("category listing failed, degrading to empty result",
			slog.String("error", err.Error()),
		)
		return []string{}
	}
	if categories == nil {
		categories = []string{}
	}

	if s.localCache != nil {
		s.localCache.Set(categoriesCacheKey, categories, categoriesCacheTTL)
	}
	return categories
}

func (s *CompanyService) invalidateListings(ctx context.Context) {
	if s.listingCache != nil {
		s.listingCache.Invalidate(ctx, companyCachePrefix)
	}
	if s.localCache != nil {
		s.localCache.Delete(categoriesCacheKey)
	}
}

// listingKey normalizes a filter into a cache key
func listingKey(filter domain.CompanyFilter) string {
	return companyCachePrefix +
		"q=" + filter.Query +
		"|c=" + filter.Category +
		"|cs=" + strings.Join(filter.Categories, ",") +
		"|l=" + strconv.Itoa(filter.Limit)
}
