package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/manthysbr/partsdesk/internal/core/domain"
	"github.com/manthysbr/partsdesk/internal/core/ports"
)

// Relevance weights. Scores are additive; text relevance dominates and the
// availability/difficulty bonuses only separate otherwise equal candidates.
const (
	weightPartNumber = 100
	weightNameToken  = 10
	weightDescToken  = 5
	weightBrand      = 3
)

// Thresholds for escalating a troubleshooting match to a technician.
const professionalStepThreshold = 5

const (
	exactModelConfidence   = 1.0
	partialModelConfidence = 0.8
	maxAlternatives        = 3
	maxSuggestions         = 3
)

var availabilityBonus = map[domain.Availability]int{
	domain.AvailabilityInStock:     2,
	domain.AvailabilityBackordered: 1,
	domain.AvailabilityOutOfStock:  0,
}

var difficultyBonus = map[domain.Difficulty]int{
	domain.DifficultyEasy:   2,
	domain.DifficultyMedium: 1,
	domain.DifficultyHard:   0,
}

// searchStopwords are dropped from free text before token scoring.
var searchStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "for": true, "my": true,
	"i": true, "me": true, "to": true, "of": true, "in": true, "on": true,
	"is": true, "it": true, "with": true, "need": true, "find": true,
	"search": true, "looking": true, "want": true, "part": true, "parts": true,
	"replacement": true, "new": true, "show": true, "do": true, "you": true,
	"have": true, "any": true, "can": true, "get": true, "some": true,
}

// MatchingEngine scores and ranks catalog entries. It holds no mutable
// state; every method is a pure function of its arguments and the catalog.
type MatchingEngine struct {
	catalog ports.Catalog
}

func NewMatchingEngine(catalog ports.Catalog) *MatchingEngine {
	return &MatchingEngine{catalog: catalog}
}

// FindPart resolves a part number in any formatting.
func (e *MatchingEngine) FindPart(partNumber string) (domain.Product, bool) {
	if domain.NormalizePartNumber(partNumber) == "" {
		return domain.Product{}, false
	}
	return e.catalog.ProductByPartNumber(partNumber)
}

// Search ranks the catalog against q. A part number that resolves exactly
// short-circuits everything else and is returned alone with MaxMatchScore.
func (e *MatchingEngine) Search(q domain.SearchQuery) domain.SearchResult {
	limit := q.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	if limit > domain.MaxSearchLimit {
		limit = domain.MaxSearchLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pn := domain.NormalizePartNumber(q.PartNumber)
	if pn != "" {
		if p, ok := e.catalog.ProductByPartNumber(pn); ok {
			return domain.SearchResult{
				Products:   []domain.ScoredProduct{{Product: p, Score: domain.MaxMatchScore}},
				Total:      1,
				Offset:     0,
				Limit:      limit,
				ExactMatch: true,
			}
		}
	}

	candidates := filterProducts(e.catalog.Products(), q)

	tokens := searchTokens(q.Text)
	textual := len(tokens) > 0 || pn != ""

	scored := make([]domain.ScoredProduct, 0, len(candidates))
	for _, p := range candidates {
		relevance := textRelevance(p, pn, tokens)
		if textual && relevance == 0 {
			continue
		}
		score := relevance + availabilityBonus[p.Availability] + difficultyBonus[p.InstallationDifficulty]
		if q.Brand != "" {
			score += weightBrand
		}
		scored = append(scored, domain.ScoredProduct{Product: p, Score: score})
	}

	// Stable: ties keep catalog order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	res := domain.SearchResult{
		Total:  len(scored),
		Offset: offset,
		Limit:  limit,
	}
	if offset < len(scored) {
		end := offset + limit
		if end > len(scored) {
			end = len(scored)
		}
		res.Products = scored[offset:end]
	} else {
		res.Products = []domain.ScoredProduct{}
	}

	if res.Total == 0 {
		res.Suggestions = searchSuggestions(q)
	}
	return res
}

// filterProducts narrows the candidate set one constraint at a time.
func filterProducts(products []domain.Product, q domain.SearchQuery) []domain.Product {
	brand := strings.ToLower(strings.TrimSpace(q.Brand))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if brand != "" && !strings.Contains(strings.ToLower(p.Brand), brand) {
			continue
		}
		if q.MinPrice > 0 && p.Price < q.MinPrice {
			continue
		}
		if q.MaxPrice > 0 && p.Price > q.MaxPrice {
			continue
		}
		if q.Availability != "" && p.Availability != q.Availability {
			continue
		}
		out = append(out, p)
	}
	return out
}

// textRelevance scores how well p matches the textual part of a query. A
// brand filter alone is not textual relevance.
func textRelevance(p domain.Product, pn string, tokens []string) int {
	score := 0
	canonicalPN := domain.NormalizePartNumber(p.PartNumber)
	if pn != "" && strings.Contains(canonicalPN, pn) {
		score += weightPartNumber
	}

	name := strings.ToLower(p.Name)
	desc := strings.ToLower(p.Description)
	brand := strings.ToLower(p.Brand)
	for _, tok := range tokens {
		if len(tok) >= 4 && strings.Contains(canonicalPN, strings.ToUpper(tok)) {
			score += weightPartNumber
		}
		if strings.Contains(name, tok) {
			score += weightNameToken
		}
		if strings.Contains(desc, tok) {
			score += weightDescToken
		}
		if tok == brand {
			score += weightBrand
		}
	}
	return score
}

// searchTokens lowercases free text, splits it on anything that is not a
// letter or digit, drops stopwords and folds a plural "s".
func searchTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	seen := make(map[string]bool, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 || searchStopwords[f] {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = strings.TrimSuffix(f, "s")
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		tokens = append(tokens, f)
	}
	return tokens
}

// searchSuggestions is a fixed decision table for empty results.
func searchSuggestions(q domain.SearchQuery) []string {
	var out []string
	if strings.TrimSpace(q.PartNumber) != "" {
		out = append(out, fmt.Sprintf("Double-check the part number %q or search by the part's name instead.", q.PartNumber))
	}
	if strings.TrimSpace(q.Text) == "" {
		out = append(out, `Describe the part in words, for example "water filter" or "door shelf bin".`)
	} else {
		out = append(out, fmt.Sprintf("Try fewer or more general words than %q.", q.Text))
	}
	if q.Category == "" {
		out = append(out, "Browse by appliance: refrigerator or dishwasher.")
	} else {
		out = append(out, fmt.Sprintf("Remove the %s filter or browse all %s parts.", q.Category, q.Category))
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

type modelMatch int

const (
	modelNoMatch modelMatch = iota
	modelPartialMatch
	modelExactMatch
)

// matchModel compares a queried model against a product's compatible list
// and returns the best match and the listed model it matched.
func matchModel(p domain.Product, model string) (modelMatch, string) {
	exact := domain.CanonicalModelNumber(model)
	if exact == "" {
		return modelNoMatch, ""
	}
	for _, cm := range p.CompatibleModels {
		if domain.CanonicalModelNumber(cm) == exact {
			return modelExactMatch, cm
		}
	}
	loose := domain.NormalizeModelNumber(model)
	for _, cm := range p.CompatibleModels {
		if domain.NormalizeModelNumber(cm) == loose {
			return modelPartialMatch, cm
		}
	}
	return modelNoMatch, ""
}

// CheckCompatibility decides whether partNumber fits modelNumber. It never
// fails: unknown parts and models produce an incompatible result with zero
// confidence.
func (e *MatchingEngine) CheckCompatibility(partNumber, modelNumber string) domain.CompatibilityResult {
	res := domain.CompatibilityResult{
		PartNumber:  domain.NormalizePartNumber(partNumber),
		ModelNumber: strings.ToUpper(strings.TrimSpace(modelNumber)),
	}

	part, ok := e.FindPart(partNumber)
	if !ok {
		res.Reason = fmt.Sprintf("Part %s was not found in the catalog.", strings.TrimSpace(partNumber))
		return res
	}
	res.PartNumber = part.PartNumber
	res.Part = &part

	if domain.CanonicalModelNumber(modelNumber) == "" {
		res.Reason = "No model number was provided."
		return res
	}

	switch match, listed := matchModel(part, modelNumber); match {
	case modelExactMatch:
		res.IsCompatible = true
		res.Confidence = exactModelConfidence
		res.Reason = fmt.Sprintf("Model %s is listed as compatible with %s (%s).", res.ModelNumber, part.PartNumber, part.Name)
		return res
	case modelPartialMatch:
		res.IsCompatible = true
		res.Confidence = partialModelConfidence
		res.Reason = fmt.Sprintf("Model %s matches the listed model %s apart from its revision suffix.", res.ModelNumber, listed)
		return res
	}

	res.Reason = fmt.Sprintf("Model %s is not listed as compatible with %s (%s).", res.ModelNumber, part.PartNumber, part.Name)
	res.AlternativeParts = e.alternatives(part, modelNumber)
	return res
}

// alternatives lists same-category parts that do fit the model.
func (e *MatchingEngine) alternatives(part domain.Product, model string) []domain.Product {
	var out []domain.Product
	for _, p := range e.catalog.Products() {
		if len(out) == maxAlternatives {
			break
		}
		if p.Category != part.Category || p.PartNumber == part.PartNumber {
			continue
		}
		if m, _ := matchModel(p, model); m != modelNoMatch {
			out = append(out, p)
		}
	}
	return out
}

// PartsForModel returns every part whose compatible list matches model,
// exact matches first, then suffix-tolerant ones, each in catalog order.
func (e *MatchingEngine) PartsForModel(model string) []domain.Product {
	var exact, partial []domain.Product
	for _, p := range e.catalog.Products() {
		switch m, _ := matchModel(p, model); m {
		case modelExactMatch:
			exact = append(exact, p)
		case modelPartialMatch:
			partial = append(partial, p)
		}
	}
	return append(exact, partial...)
}

type symptomRank int

const (
	rankDescription symptomRank = iota
	rankCause
	rankWords
)

// SearchTroubleshooting matches free symptom text against the knowledge
// base. Substring containment is checked in both directions so either side
// may be the more specific one. Description hits rank above cause hits;
// entries whose every description word occurs in the text rank last.
func (e *MatchingEngine) SearchTroubleshooting(symptom string, category domain.Category) []domain.TroubleshootingMatch {
	text := strings.ToLower(strings.TrimSpace(symptom))
	if text == "" {
		return nil
	}

	type ranked struct {
		entry  domain.TroubleshootingSymptom
		rank   symptomRank
		detail string
	}
	var hits []ranked

	for _, entry := range e.catalog.Symptoms() {
		if category != "" && entry.Category != category {
			continue
		}
		desc := strings.ToLower(entry.Description)
		if bidirectionalContains(desc, text) {
			hits = append(hits, ranked{entry: entry, rank: rankDescription})
			continue
		}
		matchedCause := ""
		for _, cause := range entry.CommonCauses {
			if bidirectionalContains(strings.ToLower(cause), text) {
				matchedCause = cause
				break
			}
		}
		if matchedCause != "" {
			hits = append(hits, ranked{entry: entry, rank: rankCause, detail: matchedCause})
			continue
		}
		if containsAllWords(text, desc) {
			hits = append(hits, ranked{entry: entry, rank: rankWords})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	out := make([]domain.TroubleshootingMatch, 0, len(hits))
	for _, h := range hits {
		m := domain.TroubleshootingMatch{
			Symptom:          h.entry,
			DiagnosticSteps:  append([]domain.DiagnosticStep(nil), h.entry.DiagnosticSteps...),
			RecommendedParts: e.resolveParts(h.entry.RecommendedParts),
		}
		var reasons []string
		switch h.rank {
		case rankDescription:
			reasons = append(reasons, fmt.Sprintf("Matched the symptom %q.", h.entry.Description))
		case rankCause:
			reasons = append(reasons, fmt.Sprintf("Matched the common cause %q of %q.", h.detail, h.entry.Description))
		case rankWords:
			reasons = append(reasons, fmt.Sprintf("Your description mentions every part of %q.", h.entry.Description))
		}
		if len(m.DiagnosticSteps) > professionalStepThreshold {
			m.ShouldContactProfessional = true
			reasons = append(reasons, fmt.Sprintf("Diagnosis takes %d steps, so a technician is recommended.", len(m.DiagnosticSteps)))
		}
		if strings.Contains(strings.ToLower(h.entry.Description), "electrical") {
			m.ShouldContactProfessional = true
			reasons = append(reasons, "Electrical problems should be handled by a qualified technician.")
		}
		m.Reason = strings.Join(reasons, " ")
		out = append(out, m)
	}
	return out
}

// resolveParts follows weak part references; unknown ones are skipped.
func (e *MatchingEngine) resolveParts(refs []string) []domain.Product {
	out := make([]domain.Product, 0, len(refs))
	for _, ref := range refs {
		if p, ok := e.catalog.ProductByPartNumber(ref); ok {
			out = append(out, p)
		}
	}
	return out
}

func bidirectionalContains(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func containsAllWords(text, phrase string) bool {
	words := strings.FieldsFunc(phrase, isWordSeparator)
	if len(words) == 0 {
		return false
	}
	have := make(map[string]bool)
	for _, w := range strings.FieldsFunc(text, isWordSeparator) {
		have[w] = true
	}
	for _, w := range words {
		if !have[w] {
			return false
		}
	}
	return true
}

func isWordSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}
