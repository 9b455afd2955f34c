package kernel

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

// ListProductsParams are the query parameters of GET /api/products.
type ListProductsParams struct {
	Q            *string  `form:"q,omitempty"`
	PartNumber   *string  `form:"partNumber,omitempty"`
	Model        *string  `form:"model,omitempty"`
	Category     *string  `form:"category,omitempty"`
	Brand        *string  `form:"brand,omitempty"`
	MinPrice     *float64 `form:"minPrice,omitempty"`
	MaxPrice     *float64 `form:"maxPrice,omitempty"`
	Availability *string  `form:"availability,omitempty"`
	Offset       *int     `form:"offset,omitempty"`
	Limit        *int     `form:"limit,omitempty"`
}

func bindListProductsParams(q url.Values) (ListProductsParams, error) {
	var p ListProductsParams
	binds := []struct {
		name string
		dest interface{}
	}{
		{"q", &p.Q},
		{"partNumber", &p.PartNumber},
		{"model", &p.Model},
		{"category", &p.Category},
		{"brand", &p.Brand},
		{"minPrice", &p.MinPrice},
		{"maxPrice", &p.MaxPrice},
		{"availability", &p.Availability},
		{"offset", &p.Offset},
		{"limit", &p.Limit},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return p, fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}
	return p, nil
}

// searchQuery converts bound parameters into a catalog query.
func (p ListProductsParams) searchQuery() (domain.SearchQuery, error) {
	var q domain.SearchQuery
	if p.Q != nil {
		q.Text = *p.Q
	}
	if p.PartNumber != nil {
		q.PartNumber = *p.PartNumber
	}
	if p.Brand != nil {
		q.Brand = *p.Brand
	}
	if p.Category != nil {
		q.Category = domain.Category(*p.Category)
		if !q.Category.Valid() {
			return q, fmt.Errorf("unknown category %q", *p.Category)
		}
	}
	if p.Availability != nil {
		q.Availability = domain.Availability(*p.Availability)
		if !q.Availability.Valid() {
			return q, fmt.Errorf("unknown availability %q", *p.Availability)
		}
	}
	if p.MinPrice != nil {
		q.MinPrice = *p.MinPrice
	}
	if p.MaxPrice != nil {
		q.MaxPrice = *p.MaxPrice
	}
	if q.MinPrice < 0 || q.MaxPrice < 0 {
		return q, fmt.Errorf("prices cannot be negative")
	}
	if q.MaxPrice > 0 && q.MinPrice > q.MaxPrice {
		return q, fmt.Errorf("minPrice is greater than maxPrice")
	}
	if p.Offset != nil {
		if *p.Offset < 0 {
			return q, fmt.Errorf("offset cannot be negative")
		}
		q.Offset = *p.Offset
	}
	if p.Limit != nil {
		if *p.Limit < 1 || *p.Limit > domain.MaxSearchLimit {
			return q, fmt.Errorf("limit must be between 1 and %d", domain.MaxSearchLimit)
		}
		q.Limit = *p.Limit
	}
	return q, nil
}

// handleListProducts searches the catalog, or lists the parts fitting a
// model when ?model= is given. GET /api/products
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	params, err := bindListProductsParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if params.Model != nil && *params.Model != "" {
		parts := s.engine.PartsForModel(*params.Model)
		if parts == nil {
			parts = []domain.Product{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"model":    domain.CanonicalModelNumber(*params.Model),
			"products": parts,
			"total":    len(parts),
		})
		return
	}

	q, err := params.searchQuery()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Search(q))
}

// handleGetProduct resolves a part number in any formatting.
// GET /api/products/{partNumber}
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	pn := chi.URLParam(r, "partNumber")
	p, ok := s.engine.FindPart(pn)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s: %s", domain.ErrPartNotFound, pn))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type toolDTO struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Parameters  domain.ToolParameters `json:"parameters"`
}

// handleListTools returns the registered capabilities with their schemas.
// GET /api/tools
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools := s.chat.Tools()
	dtos := make([]toolDTO, 0, len(tools))
	for _, t := range tools {
		dtos = append(dtos, toolDTO{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": dtos,
		"count": len(dtos),
	})
}
