package services

import (
	"context"
	"fmt"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

const ToolSearchProducts = "search_products"

type productSearchParams struct {
	Query        string  `mapstructure:"query"`
	PartNumber   string  `mapstructure:"partNumber"`
	Category     string  `mapstructure:"category"`
	Brand        string  `mapstructure:"brand"`
	MinPrice     float64 `mapstructure:"minPrice"`
	MaxPrice     float64 `mapstructure:"maxPrice"`
	Availability string  `mapstructure:"availability"`
	Limit        int     `mapstructure:"limit"`
	Offset       int     `mapstructure:"offset"`
}

// NewProductSearchTool searches the catalog by free text, part number and
// filters. defaultLimit applies when the caller gives no limit.
func NewProductSearchTool(engine *MatchingEngine, defaultLimit int) *domain.Tool {
	params := domain.ToolParameters{
		Type: "object",
		Properties: map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Free-text description of the part (e.g. 'water filter').",
			},
			"partNumber": map[string]interface{}{
				"type":        "string",
				"description": "Part number such as PS11752778. An exact match is returned alone.",
			},
			"category": map[string]interface{}{
				"type":        "string",
				"enum":        []string{string(domain.CategoryRefrigerator), string(domain.CategoryDishwasher)},
				"description": "Appliance type.",
			},
			"brand": map[string]interface{}{
				"type":        "string",
				"description": "Brand name, matched as a case-insensitive substring.",
			},
			"minPrice": map[string]interface{}{
				"type":    "number",
				"minimum": 0,
			},
			"maxPrice": map[string]interface{}{
				"type":    "number",
				"minimum": 0,
			},
			"availability": map[string]interface{}{
				"type": "string",
				"enum": []string{
					string(domain.AvailabilityInStock),
					string(domain.AvailabilityOutOfStock),
					string(domain.AvailabilityBackordered),
				},
			},
			"limit": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
				"maximum": domain.MaxSearchLimit,
			},
			"offset": map[string]interface{}{
				"type":    "integer",
				"minimum": 0,
			},
		},
	}
	binder := newParamBinder(ToolSearchProducts, params)
	bind := func(raw map[string]interface{}) (productSearchParams, error) {
		var p productSearchParams
		if err := binder.Bind(raw, &p); err != nil {
			return p, err
		}
		if p.Query == "" && p.PartNumber == "" && p.Category == "" && p.Brand == "" {
			return p, fmt.Errorf("%w: %s: one of query, partNumber, category or brand is required", domain.ErrInvalidParameters, ToolSearchProducts)
		}
		if p.MinPrice > 0 && p.MaxPrice > 0 && p.MinPrice > p.MaxPrice {
			return p, fmt.Errorf("%w: %s: minPrice exceeds maxPrice", domain.ErrInvalidParameters, ToolSearchProducts)
		}
		return p, nil
	}

	return &domain.Tool{
		Name:        ToolSearchProducts,
		Description: "Searches refrigerator and dishwasher parts by description, part number, category, brand, price and availability.",
		Parameters:  params,
		Validate: func(raw map[string]interface{}) error {
			_, err := bind(raw)
			return err
		},
		Execute: func(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
			p, err := bind(raw)
			if err != nil {
				return nil, err
			}
			if p.Limit == 0 {
				p.Limit = defaultLimit
			}

			q := domain.SearchQuery{
				Text:         p.Query,
				PartNumber:   p.PartNumber,
				Category:     domain.Category(p.Category),
				Brand:        p.Brand,
				MinPrice:     p.MinPrice,
				MaxPrice:     p.MaxPrice,
				Availability: domain.Availability(p.Availability),
				Offset:       p.Offset,
				Limit:        p.Limit,
			}
			res := engine.Search(q)
			return domain.ProductSearchResult{
				Query:   q,
				Result:  res,
				Summary: searchSummary(res),
			}, nil
		},
	}
}

func searchSummary(res domain.SearchResult) string {
	switch {
	case res.ExactMatch:
		p := res.Products[0].Product
		return fmt.Sprintf("Found part %s: %s.", p.PartNumber, p.Name)
	case res.Total == 0:
		return "No parts matched your search."
	case len(res.Products) == 0:
		return fmt.Sprintf("Found %d parts, but none on this page.", res.Total)
	case res.Total == len(res.Products) && res.Offset == 0:
		return fmt.Sprintf("Found %d %s.", res.Total, plural(res.Total, "part", "parts"))
	default:
		return fmt.Sprintf("Found %d parts, showing %d-%d.", res.Total, res.Offset+1, res.Offset+len(res.Products))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
