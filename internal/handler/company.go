package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/tradedock/internal/domain"
	"github.com/yourorg/tradedock/internal/security/audit"
	"github.com/yourorg/tradedock/internal/security/middleware"
	"github.com/yourorg/tradedock/internal/service"
)

// CompanyHandler serves the public company listing and the owner-scoped
// company mutations
type CompanyHandler struct {
	companyService *service.CompanyService
	audit          *audit.Logger
	logger         *slog.Logger
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(companyService *service.CompanyService, auditLog *audit.Logger, logger *slog.Logger) *CompanyHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &CompanyHandler{
		companyService: companyService,
		audit:          auditLog,
		logger:         logger,
	}
}

// CompanyView is the public JSON shape of a company
type CompanyView struct {
	ID              string     `json:"id"`
	CompanyName     string     `json:"companyName"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Slogan          string     `json:"slogan,omitempty"`
	About           string     `json:"about,omitempty"`
	Website         string     `json:"website,omitempty"`
	CompanySize     string     `json:"companySize,omitempty"`
	EstablishedYear string     `json:"establishedYear,omitempty"`
	Category        string     `json:"category,omitempty"`
	CityName        string     `json:"cityName,omitempty"`
	CountryName     string     `json:"countryName,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

func companyView(c *domain.Company) CompanyView {
	return CompanyView{
		ID:              c.ID,
		CompanyName:     c.CompanyName,
		Email:           c.Email,
		Phone:           c.Phone,
		Slogan:          c.Slogan,
		About:           c.About,
		Website:         c.Website,
		CompanySize:     c.CompanySize,
		EstablishedYear: c.EstablishedYear,
		Category:        c.Category,
		CityName:        c.CityName,
		CountryName:     c.CountryName,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       nullableTime(c.UpdatedAt),
	}
}

func companyViews(companies []*domain.Company) []CompanyView {
	views := make([]CompanyView, 0, len(companies))
	for _, c := range companies {
		views = append(views, companyView(c))
	}
	return views
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

// List handles GET /api/companies. Supports q (free text), category,
// categories (comma-separated union) and limit. No filter means show all,
// newest first.
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var limit int
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	// free text takes precedence over any category narrowing
	var companies []*domain.Company
	if query := strings.TrimSpace(q.Get("q")); query != "" {
		companies = h.companyService.Search(r.Context(), query, limit)
	} else {
		filter := domain.CompanyFilter{
			Category: q.Get("category"),
			Limit:    limit,
		}
		if filter.Category == "all" {
			filter.Category = ""
		}
		if raw := q.Get("categories"); raw != "" {
			for _, c := range strings.Split(raw, ",") {
				if c = strings.TrimSpace(c); c != "" && c != "all" {
					filter.Categories = append(filter.Categories, c)
				}
			}
		}
		companies = h.companyService.List(r.Context(), filter)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"companies": companyViews(companies),
	})
}

// Categories handles GET /api/categories
func (h *CompanyHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.companyService.Categories(r.Context()),
	})
}

// Get handles GET /api/companies/{id}: a company profile with its newest
// products
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := h.companyService.GetWithProducts(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load company")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"company":  companyView(result.Company),
		"products": productViews(result.Products),
	})
}

// Create handles POST /api/companies. Requires a session; a caller who
// already owns a company gets a conflict.
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var input service.CompanyInput
	if !decodeJSON(w, r, h.logger, &input) {
		return
	}

	company, err := h.companyService.Create(r.Context(), user.ID, input)
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			writeValidationError(w, ve)
		case errors.Is(err, service.ErrCompanyExists):
			h.audit.LogMutation(r.Context(), user.ID, "create", "company", "", "conflict")
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create company")
		}
		return
	}

	h.audit.LogMutation(r.Context(), user.ID, "create", "company", company.ID, "success")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"company": companyView(company),
	})
}

// Update handles PUT /api/companies/mine: the caller rewrites their own
// company profile. There is no id in the route; the owner lookup scopes
// the write.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var input service.CompanyInput
	if !decodeJSON(w, r, h.logger, &input) {
		return
	}

	company, err := h.companyService.Update(r.Context(), user.ID, input)
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			writeValidationError(w, ve)
		case errors.Is(err, service.ErrNotFound):
			h.audit.LogMutation(r.Context(), user.ID, "update", "company", "", "not_found")
			writeError(w, http.StatusNotFound, "no company for this account")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update company")
		}
		return
	}

	h.audit.LogMutation(r.Context(), user.ID, "update", "company", company.ID, "success")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"company": companyView(company),
	})
}

// Mine handles GET /api/companies/mine: the caller's owned company, or 404
// when none exists yet
func (h *CompanyHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	company, err := h.companyService.GetByOwner(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no company for this account")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load company")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"company": companyView(company),
	})
}
