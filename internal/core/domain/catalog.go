package domain

import (
	"errors"
	"fmt"
)

// Category is the appliance family a part belongs to.
type Category string

const (
	CategoryRefrigerator Category = "refrigerator"
	CategoryDishwasher   Category = "dishwasher"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryRefrigerator || c == CategoryDishwasher
}

// Availability is the stock state of a part.
type Availability string

const (
	AvailabilityInStock     Availability = "in-stock"
	AvailabilityOutOfStock  Availability = "out-of-stock"
	AvailabilityBackordered Availability = "backordered"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityInStock, AvailabilityOutOfStock, AvailabilityBackordered:
		return true
	}
	return false
}

// Label is the human form used in responses ("in stock").
func (a Availability) Label() string {
	switch a {
	case AvailabilityInStock:
		return "in stock"
	case AvailabilityOutOfStock:
		return "out of stock"
	case AvailabilityBackordered:
		return "backordered"
	}
	return string(a)
}

// Difficulty rates how hard a part is to install.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// InstallationStep is one numbered instruction of an installation guide.
type InstallationStep struct {
	Number      int    `json:"number" yaml:"number"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Warning     string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// Product is a catalog entry. Products are loaded once and never mutated.
type Product struct {
	PartNumber             string             `json:"partNumber" yaml:"partNumber"`
	Name                   string             `json:"name" yaml:"name"`
	Description            string             `json:"description" yaml:"description"`
	Category               Category           `json:"category" yaml:"category"`
	Brand                  string             `json:"brand" yaml:"brand"`
	Price                  float64            `json:"price" yaml:"price"`
	Availability           Availability       `json:"availability" yaml:"availability"`
	CompatibleModels       []string           `json:"compatibleModels" yaml:"compatibleModels"`
	InstallationDifficulty Difficulty         `json:"installationDifficulty" yaml:"installationDifficulty"`
	EstimatedInstallTime   int                `json:"estimatedInstallTime" yaml:"estimatedInstallTime"` // minutes
	RequiredTools          []string           `json:"requiredTools" yaml:"requiredTools"`
	SafetyWarnings         []string           `json:"safetyWarnings" yaml:"safetyWarnings"`
	InstallationSteps      []InstallationStep `json:"installationSteps,omitempty" yaml:"installationSteps,omitempty"`
}

// Validate checks the catalog invariants of a single product.
func (p Product) Validate() error {
	if NormalizePartNumber(p.PartNumber) == "" {
		return fmt.Errorf("%w: empty part number", ErrInvalidProduct)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: %s has no name", ErrInvalidProduct, p.PartNumber)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("%w: %s has unknown category %q", ErrInvalidProduct, p.PartNumber, p.Category)
	}
	if !p.Availability.Valid() {
		return fmt.Errorf("%w: %s has unknown availability %q", ErrInvalidProduct, p.PartNumber, p.Availability)
	}
	if !p.InstallationDifficulty.Valid() {
		return fmt.Errorf("%w: %s has unknown difficulty %q", ErrInvalidProduct, p.PartNumber, p.InstallationDifficulty)
	}
	if p.Price <= 0 {
		return fmt.Errorf("%w: %s price must be positive", ErrInvalidProduct, p.PartNumber)
	}
	if p.EstimatedInstallTime <= 0 {
		return fmt.Errorf("%w: %s install time must be positive", ErrInvalidProduct, p.PartNumber)
	}
	return nil
}

// DiagnosticStep is a node of a troubleshooting decision tree. The tree is
// stored flat; OnSuccess/OnFailure point forward to other step numbers.
type DiagnosticStep struct {
	Number         int    `json:"number" yaml:"number"`
	Instruction    string `json:"instruction" yaml:"instruction"`
	ExpectedResult string `json:"expectedResult" yaml:"expectedResult"`
	OnSuccess      int    `json:"onSuccess,omitempty" yaml:"onSuccess,omitempty"`
	OnFailure      int    `json:"onFailure,omitempty" yaml:"onFailure,omitempty"`
}

// TroubleshootingSymptom is a knowledge-base entry. RecommendedParts are weak
// references resolved through the catalog.
type TroubleshootingSymptom struct {
	Description      string           `json:"description" yaml:"description"`
	Category         Category         `json:"category" yaml:"category"`
	CommonCauses     []string         `json:"commonCauses" yaml:"commonCauses"`
	DiagnosticSteps  []DiagnosticStep `json:"diagnosticSteps" yaml:"diagnosticSteps"`
	RecommendedParts []string         `json:"recommendedParts" yaml:"recommendedParts"`
}

var (
	ErrInvalidProduct     = errors.New("invalid product")
	ErrPartNotFound       = errors.New("part not found")
	ErrNoInstallationData = errors.New("no installation data")
	ErrNoSymptomMatch     = errors.New("no matching symptom")
)
