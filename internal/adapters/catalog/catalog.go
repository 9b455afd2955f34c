package catalog

import (
	"fmt"

	"github.com/manthysbr/partsdesk/internal/core/domain"
	"github.com/manthysbr/partsdesk/internal/core/ports"
)

// Memory is the in-memory, read-only catalog. It is built once and never
// mutated, so concurrent readers need no locking.
type Memory struct {
	products []domain.Product
	index    map[string]int
	symptoms []domain.TroubleshootingSymptom
}

var _ ports.Catalog = (*Memory)(nil)

// New validates products and symptoms and builds the lookup index. Part
// numbers must be unique in canonical form.
func New(products []domain.Product, symptoms []domain.TroubleshootingSymptom) (*Memory, error) {
	m := &Memory{
		products: make([]domain.Product, 0, len(products)),
		index:    make(map[string]int, len(products)),
		symptoms: make([]domain.TroubleshootingSymptom, 0, len(symptoms)),
	}

	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		key := domain.NormalizePartNumber(p.PartNumber)
		if prev, dup := m.index[key]; dup {
			return nil, fmt.Errorf("%w: %s duplicates %s", domain.ErrInvalidProduct, p.PartNumber, m.products[prev].PartNumber)
		}
		m.index[key] = len(m.products)
		m.products = append(m.products, p)
	}

	for i, s := range symptoms {
		if s.Description == "" {
			return nil, fmt.Errorf("symptom %d has no description", i)
		}
		if !s.Category.Valid() {
			return nil, fmt.Errorf("symptom %q has unknown category %q", s.Description, s.Category)
		}
		if err := validateDiagnosticTree(s); err != nil {
			return nil, err
		}
		m.symptoms = append(m.symptoms, s)
	}

	return m, nil
}

// validateDiagnosticTree checks that branch pointers reference existing
// steps and only point forward.
func validateDiagnosticTree(s domain.TroubleshootingSymptom) error {
	numbers := make(map[int]bool, len(s.DiagnosticSteps))
	for _, step := range s.DiagnosticSteps {
		numbers[step.Number] = true
	}
	for _, step := range s.DiagnosticSteps {
		for _, next := range []int{step.OnSuccess, step.OnFailure} {
			if next == 0 {
				continue
			}
			if !numbers[next] || next <= step.Number {
				return fmt.Errorf("symptom %q: step %d points to invalid step %d", s.Description, step.Number, next)
			}
		}
	}
	return nil
}

// Products returns a copy of the product list in catalog order.
func (m *Memory) Products() []domain.Product {
	out := make([]domain.Product, len(m.products))
	copy(out, m.products)
	return out
}

// ProductByPartNumber looks up a product by any formatting of its part number.
func (m *Memory) ProductByPartNumber(partNumber string) (domain.Product, bool) {
	i, ok := m.index[domain.NormalizePartNumber(partNumber)]
	if !ok {
		return domain.Product{}, false
	}
	return m.products[i], true
}

func (m *Memory) Symptoms() []domain.TroubleshootingSymptom {
	out := make([]domain.TroubleshootingSymptom, len(m.symptoms))
	copy(out, m.symptoms)
	return out
}

// Stats summarizes catalog contents for logs and the CLI.
type Stats struct {
	Products     int                     `json:"products"`
	Symptoms     int                     `json:"symptoms"`
	ByCategory   map[domain.Category]int `json:"by_category"`
	WithoutSteps []string                `json:"without_steps,omitempty"`
	DanglingRefs []string                `json:"dangling_refs,omitempty"`
}

// Stats reports counts and soft problems (products without installation
// steps, symptom recommendations that do not resolve).
func (m *Memory) Stats() Stats {
	st := Stats{
		Products:   len(m.products),
		Symptoms:   len(m.symptoms),
		ByCategory: make(map[domain.Category]int),
	}
	for _, p := range m.products {
		st.ByCategory[p.Category]++
		if len(p.InstallationSteps) == 0 {
			st.WithoutSteps = append(st.WithoutSteps, p.PartNumber)
		}
	}
	for _, s := range m.symptoms {
		for _, ref := range s.RecommendedParts {
			if _, ok := m.ProductByPartNumber(ref); !ok {
				st.DanglingRefs = append(st.DanglingRefs, ref)
			}
		}
	}
	return st
}
