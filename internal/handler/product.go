package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/yourorg/tradedock/internal/domain"
	"github.com/yourorg/tradedock/internal/security"
	"github.com/yourorg/tradedock/internal/security/audit"
	"github.com/yourorg/tradedock/internal/security/middleware"
	"github.com/yourorg/tradedock/internal/service"
)

// ProductHandler serves the public product listing and the ownership-scoped
// product mutations
type ProductHandler struct {
	productService *service.ProductService
	audit          *audit.Logger
	logger         *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *service.ProductService, auditLog *audit.Logger, logger *slog.Logger) *ProductHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ProductHandler{
		productService: productService,
		audit:          auditLog,
		logger:         logger,
	}
}

// ProductView is the public JSON shape of a product
type ProductView struct {
	ID          string       `json:"id"`
	CompanyID   string       `json:"companyId"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	MOQ         string       `json:"moq,omitempty"`
	PriceMin    string       `json:"priceMin,omitempty"`
	PriceMax    string       `json:"priceMax,omitempty"`
	UnitName    string       `json:"unitName,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	Company     *CompanyView `json:"company,omitempty"`
}

func productView(p *domain.Product) ProductView {
	view := ProductView{
		ID:          p.ID,
		CompanyID:   p.CompanyID,
		Name:        p.Name,
		Description: p.Description,
		MOQ:         p.MOQ,
		PriceMin:    p.PriceMin,
		PriceMax:    p.PriceMax,
		UnitName:    p.UnitName,
		CreatedAt:   p.CreatedAt,
	}
	if p.Company != nil {
		cv := companyView(p.Company)
		view.Company = &cv
	}
	return view
}

func productViews(products []*domain.Product) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, productView(p))
	}
	return views
}

// List handles GET /api/products with offset pagination (page, pageSize)
// and optional category-scoped search (category, q). Page 1 is the first
// page; an empty q within a category matches everything in it.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if category := q.Get("category"); category != "" && category != "all" {
		products := h.productService.SearchInCategory(r.Context(), category, q.Get("q"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"products": productViews(products),
		})
		return
	}

	page := 1
	if raw := q.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	pageSize := 0
	if raw := q.Get("pageSize"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			pageSize = n
		}
	}

	products := h.productService.ListPaged(r.Context(), page, pageSize)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": productViews(products),
		"page":     page,
	})
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product": productView(product),
	})
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var input service.ProductInput
	if !decodeJSON(w, r, h.logger, &input) {
		return
	}

	product, err := h.productService.Create(r.Context(), user.ID, input)
	if err != nil {
		h.writeMutationError(w, r, user.ID, "create", "", err)
		return
	}

	h.audit.LogMutation(r.Context(), user.ID, "create", "product", product.ID, "success")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"product": productView(product),
	})
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var input service.ProductInput
	if !decodeJSON(w, r, h.logger, &input) {
		return
	}

	id := r.PathValue("id")
	product, err := h.productService.Update(r.Context(), user.ID, id, input)
	if err != nil {
		h.writeMutationError(w, r, user.ID, "update", id, err)
		return
	}

	h.audit.LogMutation(r.Context(), user.ID, "update", "product", id, "success")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product": productView(product),
	})
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")
	if err := h.productService.Delete(r.Context(), user.ID, id); err != nil {
		h.writeMutationError(w, r, user.ID, "delete", id, err)
		return
	}

	h.audit.LogMutation(r.Context(), user.ID, "delete", "product", id, "success")
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// writeMutationError maps service errors onto the HTTP boundary: missing
// company → 403, ownership denial → 403, absent record → 404, validation →
// 400 with field errors, everything else → generic 500.
func (h *ProductHandler) writeMutationError(w http.ResponseWriter, r *http.Request, userID, action, productID string, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeValidationError(w, ve)
	case errors.Is(err, service.ErrNoCompany):
		h.audit.LogDenied(r.Context(), userID, "no owned company")
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, security.ErrAccessDenied):
		h.audit.LogDenied(r.Context(), userID, "not the record owner")
		writeError(w, http.StatusForbidden, err.Error())
	default:
		h.logger.Error("product mutation failed",
			slog.String("action", action),
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "operation failed")
	}
}
