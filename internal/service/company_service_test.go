package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/tradedock/internal/domain"
	"github.com/yourorg/tradedock/internal/repository"
	"github.com/yourorg/tradedock/pkg/cache"
)

type memCompanyRepo struct {
	companies []*domain.Company
	seq       int
	failing   bool

	listCalls       int
	categoriesCalls int
}

func newMemCompanyRepo() *memCompanyRepo {
	return &memCompanyRepo{}
}

func (m *memCompanyRepo) Create(_ context.Context, c *domain.Company) error {
	if m.failing {
		return errors.New("store down")
	}
	for _, existing := range m.companies {
		if existing.UserID == c.UserID && !existing.DeletedAt.Valid {
			return repository.ErrDuplicate
		}
	}
	m.seq++
	if c.ID == "" {
		c.ID = "c-" + strconv.Itoa(m.seq)
	}
	c.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	m.companies = append(m.companies, c)
	return nil
}

func (m *memCompanyRepo) GetByID(_ context.Context, id string) (*domain.Company, error) {
	if m.failing {
		return nil, errors.New("store down")
	}
	for _, c := range m.companies {
		if c.ID == id && !c.DeletedAt.Valid {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCompanyRepo) GetByUserID(_ context.Context, userID string) (*domain.Company, error) {
	if m.failing {
		return nil, errors.New("store down")
	}
	for _, c := range m.companies {
		if c.UserID == userID && !c.DeletedAt.Valid {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

// List mirrors the SQL shape: newest-first, substring OR search over
// name/category/about, category union, optional limit.
func (m *memCompanyRepo) List(_ context.Context, filter domain.CompanyFilter) ([]*domain.Company, error) {
	m.listCalls++
	if m.failing {
		return nil, errors.New("store down")
	}

	var out []*domain.Company
	for i := len(m.companies) - 1; i >= 0; i-- {
		c := m.companies[i]
		if c.DeletedAt.Valid {
			continue
		}
		if filter.Query != "" && !companyMatches(c, filter.Query) {
			continue
		}
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if len(filter.Categories) > 0 && !contains(filter.Categories, c.Category) {
			continue
		}
		out = append(out, c)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func companyMatches(c *domain.Company, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(c.CompanyName), q) ||
		strings.Contains(strings.ToLower(c.Category), q) ||
		strings.Contains(strings.ToLower(c.About), q)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (m *memCompanyRepo) ListCategories(_ context.Context) ([]string, error) {
	m.categoriesCalls++
	if m.failing {
		return nil, errors.New("store down")
	}
	seen := map[string]bool{}
	var out []string
	for _, c := range m.companies {
		if c.DeletedAt.Valid || c.Category == "" || seen[c.Category] {
			continue
		}
		seen[c.Category] = true
		out = append(out, c.Category)
	}
	return out, nil
}

func (m *memCompanyRepo) Update(_ context.Context, c *domain.Company) error {
	if m.failing {
		return errors.New("store down")
	}
	for i, existing := range m.companies {
		if existing.ID == c.ID {
			m.companies[i] = c
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memCompanyRepo) Delete(_ context.Context, id string) error {
	for _, c := range m.companies {
		if c.ID == id {
			c.DeletedAt.Valid = true
			c.DeletedAt.Time = time.Now()
			return nil
		}
	}
	return repository.ErrNotFound
}

func newTestCompanyService(companyRepo *memCompanyRepo, productRepo domain.ProductRepository) *CompanyService {
	if productRepo == nil {
		productRepo = newMemProductRepo(companyRepo)
	}
	return NewCompanyService(companyRepo, productRepo, nil, nil, nil, 3, 50)
}

func seedCompany(t *testing.T, s *CompanyService, userID, name, category, about string) *domain.Company {
	t.Helper()
	c, err := s.Create(context.Background(), userID, CompanyInput{
		CompanyName: name,
		Category:    category,
		About:       about,
	})
	if err != nil {
		t.Fatalf("create company %s: %v", name, err)
	}
	return c
}

func TestCreateCompany(t *testing.T) {
	repo := newMemCompanyRepo()
	s := newTestCompanyService(repo, nil)
	ctx := context.Background()

	c := seedCompany(t, s, "user-1", "Acme Metals", "metals", "steel supplier")
	if c.ID == "" {
		t.Fatalf("expected generated id")
	}

	// one company per user
	if _, err := s.Create(ctx, "user-1", CompanyInput{CompanyName: "Second Co"}); !errors.Is(err, ErrCompanyExists) {
		t.Fatalf("expected ErrCompanyExists, got %v", err)
	}
}

func TestCreateCompanyValidation(t *testing.T) {
	s := newTestCompanyService(newMemCompanyRepo(), nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CompanyInput
		field string
	}{
		{"short name", CompanyInput{CompanyName: "ab"}, "companyName"},
		{"bad email", CompanyInput{CompanyName: "Acme", Email: "nope"}, "email"},
		{"bad website", CompanyInput{CompanyName: "Acme", Website: "not a url"}, "website"},
	}
	for _, tc := range cases {
		_, err := s.Create(ctx, "user-1", tc.input)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
		if len(ve.Fields[tc.field]) == 0 {
			t.Fatalf("%s: expected message for %s, got %v", tc.name, tc.field, ve.Fields)
		}
	}
}

func TestUpdateCompany(t *testing.T) {
	repo := newMemCompanyRepo()
	s := newTestCompanyService(repo, nil)
	ctx := context.Background()

	seedCompany(t, s, "user-1", "Acme Metals", "metals", "steel supplier")

	// a user without a company has nothing to update
	if _, err := s.Update(ctx, "user-2", CompanyInput{CompanyName: "Ghost Co"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for ownerless update, got %v", err)
	}

	// validation applies to updates too
	_, err := s.Update(ctx, "user-1", CompanyInput{CompanyName: "ab"})
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Fields["companyName"]) == 0 {
		t.Fatalf("expected companyName validation error, got %v", err)
	}

	updated, err := s.Update(ctx, "user-1", CompanyInput{
		CompanyName: "  Acme Metals Intl  ",
		Category:    "metals",
		About:       "steel and alloys worldwide",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.CompanyName != "Acme Metals Intl" {
		t.Fatalf("expected trimmed name, got %q", updated.CompanyName)
	}

	stored, err := s.GetByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("get by owner: %v", err)
	}
	if stored.About != "steel and alloys worldwide" {
		t.Fatalf("update did not persist, about = %q", stored.About)
	}
}

func TestListCompanies(t *testing.T) {
	repo := newMemCompanyRepo()
	s := newTestCompanyService(repo, nil)
	ctx := context.Background()

	seedCompany(t, s, "u1", "Acme Metals", "metals", "steel and alloys")
	seedCompany(t, s, "u2", "Bolt Traders", "hardware", "bulk fasteners")
	seedCompany(t, s, "u3", "Crate Works", "packaging", "wooden crates")

	// empty filter shows everything, newest first
	all := s.List(ctx, domain.CompanyFilter{})
	if len(all) != 3 {
		t.Fatalf("expected 3 companies, got %d", len(all))
	}
	if all[0].CompanyName != "Crate Works" || all[2].CompanyName != "Acme Metals" {
		t.Fatalf("expected newest-first order, got %s ... %s", all[0].CompanyName, all[2].CompanyName)
	}
}

func TestSearchCompanies(t *testing.T) {
	repo := newMemCompanyRepo()
	s := newTestCompanyService(repo, nil)
	ctx := context.Background()

	seedCompany(t, s, "u1", "Acme Metals", "metals", "steel and alloys")
	seedCompany(t, s, "u2", "Bolt Traders", "hardware", "bulk steel fasteners")
	seedCompany(t, s, "u3", "Crate Works", "packaging", "wooden crates")

	// empty query is the unfiltered listing, not an empty result
	if got := s.Search(ctx, "   ", 0); len(got) != 3 {
		t.Fatalf("expected empty query to show all, got %d", len(got))
	}

	// case-insensitive substring over name, category and about
	got := s.Search(ctx, "STEEL", 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches for steel, got %d", len(got))
	}
	if got := s.Search(ctx, "packag", 0); len(got) != 1 || got[0].CompanyName != "Crate Works" {
		t.Fatalf("expected category match for Crate Works, got %v", got)
	}
	if got := s.Search(ctx, "zzz-no-match", 0); len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestListCompaniesByCategories(t *testing.T) {
	repo := newMemCompanyRepo()
	s := newTestCompanyService(repo, nil)
	ctx := context.Background()

	seedCompany(t, s, "u1", "Acme Metals", "metals", "")
	seedCompany(t, s, "u2", "Bolt Traders", "hardware", "")
	seedCompany(t, s, "u3", "Crate Works", "packaging", "")

	got := s.List(ctx, domain.CompanyFilter{Categories: []string{"metals", "hardware"}})
	if len(got) != 2 {
		t.Fatalf("expected union of 2 companies, got %d", len(got))
	}
	seen := map[string]int{}
	for _, c := range got {
		seen[c.ID]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Fatalf("company %s appears %d times in union", id, n)
		}
	}
}

func TestListDegradesToEmptyOnFailure(t *testing.T) {
	repo := newMemCompanyRepo()
	s := newTestCompanyService(repo, nil)
	ctx := context.Background()

	seedCompany(t, s, "u1", "Acme Metals", "metals", "")
	repo.failing = true

	got := s.List(ctx, domain.CompanyFilter{})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice on failure, got %v", got)
	}
	if cats := s.Categories(ctx); cats == nil || len(cats) != 0 {
		t.Fatalf("expected empty non-nil categories on failure, got %v", cats)
	}
}

func TestCategoriesAreCached(t *testing.T) {
	repo := newMemCompanyRepo()
	local := cache.New()
	s := NewCompanyService(repo, newMemProductRepo(repo), nil, local, nil, 3, 50)
	ctx := context.Background()

	seedCompany(t, s, "u1", "Acme Metals", "metals", "")
	seedCompany(t, s, "u2", "Bolt Traders", "hardware", "")

	first := s.Categories(ctx)
	second := s.Categories(ctx)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 categories, got %d then %d", len(first), len(second))
	}
	if repo.categoriesCalls != 1 {
		t.Fatalf("expected one repo hit with a warm cache, got %d", repo.categoriesCalls)
	}

	// creating a company drops the cached category list
	seedCompany(t, s, "u3", "Crate Works", "packaging", "")
	if cats := s.Categories(ctx); len(cats) != 3 {
		t.Fatalf("expected refreshed categories after create, got %v", cats)
	}
}

func TestGetWithProducts(t *testing.T) {
	companyRepo := newMemCompanyRepo()
	productRepo := newMemProductRepo(companyRepo)
	s := NewCompanyService(companyRepo, productRepo, nil, nil, nil, 3, 50)
	ctx := context.Background()

	c := seedCompany(t, s, "u1", "Acme Metals", "metals", "")
	for i := 0; i < 5; i++ {
		productRepo.seed(c.ID, "Product "+strconv.Itoa(i), "")
	}

	got, err := s.GetWithProducts(ctx, c.ID)
	if err != nil {
		t.Fatalf("get with products failed: %v", err)
	}
	if len(got.Products) != 3 {
		t.Fatalf("expected featured limit of 3 products, got %d", len(got.Products))
	}

	// profile still renders when the product store fails
	productRepo.failing = true
	got, err = s.GetWithProducts(ctx, c.ID)
	if err != nil {
		t.Fatalf("expected profile despite product failure, got %v", err)
	}
	if len(got.Products) != 0 {
		t.Fatalf("expected empty products on failure, got %d", len(got.Products))
	}

	if _, err := s.GetWithProducts(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
