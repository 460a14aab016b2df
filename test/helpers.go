package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/tradedock/internal/domain"
	"github.com/yourorg/tradedock/internal/handler"
	"github.com/yourorg/tradedock/internal/infrastructure/logger"
	"github.com/yourorg/tradedock/internal/repository"
	"github.com/yourorg/tradedock/internal/security"
	"github.com/yourorg/tradedock/internal/security/audit"
	"github.com/yourorg/tradedock/internal/security/auth"
	"github.com/yourorg/tradedock/internal/security/middleware"
	"github.com/yourorg/tradedock/internal/service"
)

// TestServerHelper runs the full HTTP surface against in-memory stores,
// with session middleware wired the same way the server binary wires it.
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger

	Users     *memUsers
	Companies *memCompanies
	Products  *memProducts
}

func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	log := logger.NewLogger("error")
	users := newMemUsers()
	companies := newMemCompanies()
	products := newMemProducts(companies)

	tokens, err := auth.NewTokenManager("test-secret", "tradedock-test")
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	cookies := auth.NewSessionCookies("test")
	auditLog := audit.NewLogger(log)
	authorizer := security.NewAuthorizer(log)

	authService := service.NewAuthService(users, tokens, log)
	companyService := service.NewCompanyService(companies, products, nil, nil, log, 3, 50)
	productService := service.NewProductService(products, companies, authorizer, log, 8, 50)

	authHandler := handler.NewAuthHandler(authService, cookies, auditLog, log)
	companyHandler := handler.NewCompanyHandler(companyService, auditLog, log)
	productHandler := handler.NewProductHandler(productService, auditLog, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.Handle("PUT /api/auth/password", middleware.RequireAuth(http.HandlerFunc(authHandler.ChangePassword)))

	mux.HandleFunc("GET /api/companies", companyHandler.List)
	mux.Handle("GET /api/companies/mine", middleware.RequireAuth(http.HandlerFunc(companyHandler.Mine)))
	mux.Handle("PUT /api/companies/mine", middleware.RequireAuth(http.HandlerFunc(companyHandler.Update)))
	mux.HandleFunc("GET /api/companies/{id}", companyHandler.Get)
	mux.Handle("POST /api/companies", middleware.RequireAuth(http.HandlerFunc(companyHandler.Create)))
	mux.HandleFunc("GET /api/categories", companyHandler.Categories)

	mux.HandleFunc("GET /api/products", productHandler.List)
	mux.HandleFunc("GET /api/products/{id}", productHandler.Get)
	mux.Handle("POST /api/products", middleware.RequireAuth(http.HandlerFunc(productHandler.Create)))
	mux.Handle("PUT /api/products/{id}", middleware.RequireAuth(http.HandlerFunc(productHandler.Update)))
	mux.Handle("DELETE /api/products/{id}", middleware.RequireAuth(http.HandlerFunc(productHandler.Delete)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := httptest.NewServer(middleware.Session(tokens, users, log)(mux))

	return &TestServerHelper{
		Server:    server,
		Logger:    log,
		Users:     users,
		Companies: companies,
		Products:  products,
	}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// NewClient returns an HTTP client with a cookie jar, so the session
// cookie set on register/login rides along on later requests.
func (h *TestServerHelper) NewClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

// PostJSON sends a JSON body with the given client
func PostJSON(t *testing.T, client *http.Client, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// DoJSON sends a JSON request with an arbitrary method
func DoJSON(t *testing.T, client *http.Client, method, url string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

// DecodeBody decodes a JSON response body into a map
func DecodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

// AssertStatusCode fails the test when the response status differs
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// RegisterAndLogin registers a fresh account and returns a client holding
// its session cookie
func (h *TestServerHelper) RegisterAndLogin(t *testing.T, email, password string) *http.Client {
	t.Helper()
	client := h.NewClient(t)
	resp := PostJSON(t, client, h.URL()+"/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()
	return client
}

// --- in-memory stores ---

type memUsers struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
	seq     int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	if _, exists := m.byEmail[u.Email]; exists {
		return repository.ErrDuplicate
	}
	m.seq++
	if u.ID == "" {
		u.ID = "user-" + strconv.Itoa(m.seq)
	}
	u.CreatedAt = time.Now()
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	if u, ok := m.byID[id]; ok {
		delete(m.byEmail, u.Email)
		delete(m.byID, id)
	}
	return nil
}

type memCompanies struct {
	companies []*domain.Company
	seq       int
}

func newMemCompanies() *memCompanies {
	return &memCompanies{}
}

func (m *memCompanies) Create(_ context.Context, c *domain.Company) error {
	for _, existing := range m.companies {
		if existing.UserID == c.UserID && !existing.DeletedAt.Valid {
			return repository.ErrDuplicate
		}
	}
	m.seq++
	if c.ID == "" {
		c.ID = "company-" + strconv.Itoa(m.seq)
	}
	c.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	m.companies = append(m.companies, c)
	return nil
}

func (m *memCompanies) GetByID(_ context.Context, id string) (*domain.Company, error) {
	for _, c := range m.companies {
		if c.ID == id && !c.DeletedAt.Valid {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCompanies) GetByUserID(_ context.Context, userID string) (*domain.Company, error) {
	for _, c := range m.companies {
		if c.UserID == userID && !c.DeletedAt.Valid {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCompanies) List(_ context.Context, filter domain.CompanyFilter) ([]*domain.Company, error) {
	var out []*domain.Company
	for i := len(m.companies) - 1; i >= 0; i-- {
		c := m.companies[i]
		if c.DeletedAt.Valid {
			continue
		}
		if filter.Query != "" {
			q := strings.ToLower(filter.Query)
			if !strings.Contains(strings.ToLower(c.CompanyName), q) &&
				!strings.Contains(strings.ToLower(c.Category), q) &&
				!strings.Contains(strings.ToLower(c.About), q) {
				continue
			}
		}
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if len(filter.Categories) > 0 {
			match := false
			for _, cat := range filter.Categories {
				if c.Category == cat {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, c)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memCompanies) ListCategories(_ context.Context) ([]string, error) {
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

func (m *memCompanies) Update(_ context.Context, c *domain.Company) error {
	for i, existing := range m.companies {
		if existing.ID == c.ID {
			m.companies[i] = c
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memCompanies) Delete(_ context.Context, id string) error {
	for _, c := range m.companies {
		if c.ID == id {
			c.DeletedAt.Valid = true
			c.DeletedAt.Time = time.Now()
			return nil
		}
	}
	return repository.ErrNotFound
}

type memProducts struct {
	products  []*domain.Product
	companies *memCompanies
	seq       int
}

func newMemProducts(companies *memCompanies) *memProducts {
	return &memProducts{companies: companies}
}

func (m *memProducts) Create(_ context.Context, p *domain.Product) error {
	m.seq++
	if p.ID == "" {
		p.ID = "product-" + strconv.Itoa(m.seq)
	}
	p.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	m.products = append(m.products, p)
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	for _, p := range m.products {
		if p.ID == id && !p.DeletedAt.Valid {
			return m.joined(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memProducts) ListByCompany(_ context.Context, companyID string, limit int) ([]*domain.Product, error) {
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

func (m *memProducts) ListPaged(_ context.Context, page, pageSize int) ([]*domain.Product, error) {
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

func (m *memProducts) SearchInCategory(_ context.Context, category, query string) ([]*domain.Product, error) {
	q := strings.ToLower(query)
	var out []*domain.Product
	for i := len(m.products) - 1; i >= 0; i-- {
		p := m.joined(m.products[i])
		if p.DeletedAt.Valid || p.Company == nil || p.Company.Category != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memProducts) UpdateOwned(_ context.Context, product *domain.Product, companyID string) error {
	for i, p := range m.products {
		if p.ID == product.ID && p.CompanyID == companyID && !p.DeletedAt.Valid {
			product.CreatedAt = p.CreatedAt
			m.products[i] = product
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memProducts) DeleteOwned(_ context.Context, id, companyID string) error {
	for _, p := range m.products {
		if p.ID == id && p.CompanyID == companyID && !p.DeletedAt.Valid {
			p.DeletedAt.Valid = true
			p.DeletedAt.Time = time.Now()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memProducts) joined(p *domain.Product) *domain.Product {
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
