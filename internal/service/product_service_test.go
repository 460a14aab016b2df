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
	"github.com/yourorg/tradedock/internal/security"
)

type memProductRepo struct {
	products  []*domain.Product
	companies *memCompanyRepo
	seq       int
	failing   bool
}

func newMemProductRepo(companies *memCompanyRepo) *memProductRepo {
	return &memProductRepo{companies: companies}
}

func (m *memProductRepo) seed(companyID, name, description string) *domain.Product {
	p := &domain.Product{CompanyID: companyID, Name: name, Description: description}
	m.Create(context.Background(), p)
	return p
}

func (m *memProductRepo) Create(_ context.Context, p *domain.Product) error {
	if m.failing {
		return errors.New("store down")
	}
	m.seq++
	if p.ID == "" {
		p.ID = "p-" + strconv.Itoa(m.seq)
	}
	p.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	m.products = append(m.products, p)
	return nil
}

func (m *memProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if m.failing {
		return nil, errors.New("store down")
	}
	for _, p := range m.products {
		if p.ID == id && !p.DeletedAt.Valid {
			return m.joined(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memProductRepo) ListByCompany(_ context.Context, companyID string, limit int) ([]*domain.Product, error) {
	if m.failing {
		return nil, errors.New("store down")
	}
	var out []*domain.Product
	for i := len(m.products) - 1; i >= 0; i-- {
		p := m.products[i]
		if p.DeletedAt.Valid || p.CompanyID != companyID {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memProductRepo) ListPaged(_ context.Context, page, pageSize int) ([]*domain.Product, error) {
	if m.failing {
		return nil, errors.New("store down")
	}
	var all []*domain.Product
	for i := len(m.products) - 1; i >= 0; i-- {
		if p := m.products[i]; !p.DeletedAt.Valid {
			all = append(all, m.joined(p))
		}
	}
	offset := (page - 1) * pageSize
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memProductRepo) SearchInCategory(_ context.Context, category, query string) ([]*domain.Product, error) {
	if m.failing {
		return nil, errors.New("store down")
	}
	q := strings.ToLower(query)
	var out []*domain.Product
	for i := len(m.products) - 1; i >= 0; i-- {
		p := m.products[i]
		if p.DeletedAt.Valid {
			continue
		}
		joined := m.joined(p)
		if joined.Company == nil || joined.Company.Category != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		out = append(out, joined)
	}
	return out, nil
}

func (m *memProductRepo) UpdateOwned(_ context.Context, product *domain.Product, companyID string) error {
	if m.failing {
		return errors.New("store down")
	}
	for i, p := range m.products {
		if p.ID == product.ID && p.CompanyID == companyID && !p.DeletedAt.Valid {
			product.CreatedAt = p.CreatedAt
			m.products[i] = product
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memProductRepo) DeleteOwned(_ context.Context, id, companyID string) error {
	if m.failing {
		return errors.New("store down")
	}
	for _, p := range m.products {
		if p.ID == id && p.CompanyID == companyID && !p.DeletedAt.Valid {
			p.DeletedAt.Valid = true
			p.DeletedAt.Time = time.Now()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memProductRepo) joined(p *domain.Product) *domain.Product {
	if p.Company == nil && m.companies != nil {
		for _, c := range m.companies.companies {
			if c.ID == p.CompanyID {
				p.Company = c
				break
			}
		}
	}
	return p
}

type productFixture struct {
	companies *memCompanyRepo
	products  *memProductRepo
	service   *ProductService
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()
	companies := newMemCompanyRepo()
	products := newMemProductRepo(companies)
	return &productFixture{
		companies: companies,
		products:  products,
		service:   NewProductService(products, companies, security.NewAuthorizer(nil), nil, 8, 50),
	}
}

func (f *productFixture) seedOwner(t *testing.T, userID, name, category string) *domain.Company {
	t.Helper()
	c := &domain.Company{UserID: userID, CompanyName: name, Category: category}
	if err := f.companies.Create(context.Background(), c); err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return c
}

func TestCreateProduct(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	f.seedOwner(t, "user-1", "Acme Metals", "metals")

	p, err := f.service.Create(ctx, "user-1", ProductInput{Name: "Steel Rod", PriceMin: "10", PriceMax: "15"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.ID == "" || p.CompanyID == "" {
		t.Fatalf("expected ids on created product")
	}

	// name is required
	if _, err := f.service.Create(ctx, "user-1", ProductInput{Name: "  "}); err == nil {
		t.Fatalf("expected validation error for blank name")
	}

	// no company, no products
	if _, err := f.service.Create(ctx, "user-2", ProductInput{Name: "Thing"}); !errors.Is(err, ErrNoCompany) {
		t.Fatalf("expected ErrNoCompany, got %v", err)
	}
}

func TestProductMutationsAreOwnershipScoped(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	f.seedOwner(t, "user-a", "Acme Metals", "metals")
	f.seedOwner(t, "user-b", "Bolt Traders", "hardware")

	theirs, err := f.service.Create(ctx, "user-a", ProductInput{Name: "Steel Rod"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// user-b cannot update or delete user-a's product
	if _, err := f.service.Update(ctx, "user-b", theirs.ID, ProductInput{Name: "Hijacked"}); !errors.Is(err, security.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied on update, got %v", err)
	}
	if err := f.service.Delete(ctx, "user-b", theirs.ID); !errors.Is(err, security.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied on delete, got %v", err)
	}

	// record is untouched
	got, err := f.service.Get(ctx, theirs.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Steel Rod" {
		t.Fatalf("expected product unchanged, got %s", got.Name)
	}

	// the owner can
	updated, err := f.service.Update(ctx, "user-a", theirs.ID, ProductInput{Name: "Steel Rod v2"})
	if err != nil {
		t.Fatalf("owner update failed: %v", err)
	}
	if updated.Name != "Steel Rod v2" {
		t.Fatalf("expected updated name, got %s", updated.Name)
	}
	if err := f.service.Delete(ctx, "user-a", theirs.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if _, err := f.service.Get(ctx, theirs.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted product gone, got %v", err)
	}
}

func TestMutateMissingProduct(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	f.seedOwner(t, "user-a", "Acme Metals", "metals")

	if _, err := f.service.Update(ctx, "user-a", "missing", ProductInput{Name: "X"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if err := f.service.Delete(ctx, "user-a", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestListPaged(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	c := f.seedOwner(t, "user-a", "Acme Metals", "metals")

	for i := 1; i <= 12; i++ {
		f.products.seed(c.ID, "Product "+strconv.Itoa(i), "")
	}

	page1 := f.service.ListPaged(ctx, 1, 8)
	page2 := f.service.ListPaged(ctx, 2, 8)
	if len(page1) != 8 || len(page2) != 4 {
		t.Fatalf("expected pages of 8 and 4, got %d and %d", len(page1), len(page2))
	}
	// newest first, page 1 before page 2, no overlap
	if page1[0].Name != "Product 12" {
		t.Fatalf("expected newest product first, got %s", page1[0].Name)
	}
	seen := map[string]bool{}
	for _, p := range append(page1, page2...) {
		if seen[p.ID] {
			t.Fatalf("product %s appears on both pages", p.ID)
		}
		seen[p.ID] = true
	}

	// out-of-range pages and bad inputs stay safe
	if got := f.service.ListPaged(ctx, 3, 8); len(got) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(got))
	}
	if got := f.service.ListPaged(ctx, 0, 0); len(got) != 8 {
		t.Fatalf("expected defaults to apply, got %d", len(got))
	}

	f.products.failing = true
	if got := f.service.ListPaged(ctx, 1, 8); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice on failure, got %v", got)
	}
}

func TestSearchInCategory(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	metals := f.seedOwner(t, "user-a", "Acme Metals", "metals")
	hardware := f.seedOwner(t, "user-b", "Bolt Traders", "hardware")

	f.products.seed(metals.ID, "Steel Rod", "cold rolled")
	f.products.seed(metals.ID, "Copper Wire", "high purity")
	f.products.seed(hardware.ID, "Steel Bolt", "hex head")

	// scoped to the category, matching name or description
	got := f.service.SearchInCategory(ctx, "metals", "steel")
	if len(got) != 1 || got[0].Name != "Steel Rod" {
		t.Fatalf("expected Steel Rod only, got %v", got)
	}
	if got := f.service.SearchInCategory(ctx, "metals", "ROLLED"); len(got) != 1 {
		t.Fatalf("expected description match, got %d", len(got))
	}

	// empty query returns the whole category
	if got := f.service.SearchInCategory(ctx, "metals", ""); len(got) != 2 {
		t.Fatalf("expected 2 products in category, got %d", len(got))
	}

	f.products.failing = true
	if got := f.service.SearchInCategory(ctx, "metals", "steel"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice on failure, got %v", got)
	}
}
