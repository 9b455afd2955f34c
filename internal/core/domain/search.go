package domain

// MaxMatchScore is the score assigned to an exact part-number hit. Fuzzy
// scores can never reach it.
const MaxMatchScore = 1000

const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 20
)

// SearchQuery describes a catalog lookup. Zero values mean "no constraint".
type SearchQuery struct {
	Text         string       `json:"query,omitempty"`
	PartNumber   string       `json:"partNumber,omitempty"`
	Category     Category     `json:"category,omitempty"`
	Brand        string       `json:"brand,omitempty"`
	MinPrice     float64      `json:"minPrice,omitempty"`
	MaxPrice     float64      `json:"maxPrice,omitempty"`
	Availability Availability `json:"availability,omitempty"`
	Offset       int          `json:"offset,omitempty"`
	Limit        int          `json:"limit,omitempty"`
}

// ScoredProduct pairs a product with its relevance score.
type ScoredProduct struct {
	Product Product `json:"product"`
	Score   int     `json:"score"`
}

// SearchResult is a ranked, paginated page of products. Total counts every
// match before pagination.
type SearchResult struct {
	Products    []ScoredProduct `json:"products"`
	Total       int             `json:"total"`
	Offset      int             `json:"offset"`
	Limit       int             `json:"limit"`
	ExactMatch  bool            `json:"exactMatch"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

// CompatibilityResult is the outcome of a part/model check. Confidence is a
// match certainty in [0,1], not a probability.
type CompatibilityResult struct {
	PartNumber       string    `json:"partNumber"`
	ModelNumber      string    `json:"modelNumber"`
	IsCompatible     bool      `json:"isCompatible"`
	Confidence       float64   `json:"confidence"`
	Reason           string    `json:"reason"`
	Part             *Product  `json:"part,omitempty"`
	AlternativeParts []Product `json:"alternativeParts,omitempty"`
}

// TroubleshootingMatch is one ranked knowledge-base hit for a symptom.
type TroubleshootingMatch struct {
	Symptom                   TroubleshootingSymptom `json:"symptom"`
	DiagnosticSteps           []DiagnosticStep       `json:"diagnosticSteps"`
	RecommendedParts          []Product              `json:"recommendedParts"`
	ShouldContactProfessional bool                   `json:"shouldContactProfessional"`
	Reason                    string                 `json:"reason"`
}

// ProductSearchResult is the output of the product search capability.
type ProductSearchResult struct {
	Query   SearchQuery  `json:"query"`
	Result  SearchResult `json:"result"`
	Summary string       `json:"summary"`
}

// CompatibilityReport is the output of the compatibility capability.
type CompatibilityReport struct {
	Result         CompatibilityResult `json:"result"`
	Recommendation string              `json:"recommendation"`
}

// InstallationGuide is the output of the installation capability.
type InstallationGuide struct {
	PartNumber     string             `json:"partNumber"`
	PartName       string             `json:"partName"`
	Part           Product            `json:"part"`
	Difficulty     Difficulty         `json:"difficulty"`
	EstimatedTime  int                `json:"estimatedTime"`
	RequiredTools  []string           `json:"requiredTools"`
	SafetyWarnings []string           `json:"safetyWarnings"`
	Steps          []InstallationStep `json:"steps"`
	Summary        string             `json:"summary"`
}

// TroubleshootingGuide is the output of the troubleshooting capability.
type TroubleshootingGuide struct {
	Symptom                   string           `json:"symptom"`
	Category                  Category         `json:"category,omitempty"`
	MatchedSymptom            string           `json:"matchedSymptom"`
	CommonCauses              []string         `json:"commonCauses"`
	DiagnosticSteps           []DiagnosticStep `json:"diagnosticSteps"`
	RecommendedParts          []Product        `json:"recommendedParts"`
	ShouldContactProfessional bool             `json:"shouldContactProfessional"`
	Reason                    string           `json:"reason"`
	OtherMatches              []string         `json:"otherMatches,omitempty"`
}
