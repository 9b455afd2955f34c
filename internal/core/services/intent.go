package services

import (
	"regexp"
	"strings"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

var (
	partNumberPattern = regexp.MustCompile(`(?i)\bPS\d{5,10}\b`)
	modelTokenPattern = regexp.MustCompile(`\b[A-Za-z]{2,}[A-Za-z0-9]*[0-9][A-Za-z0-9]*(?:-[A-Za-z0-9]+)?\b`)

	installationPattern    = regexp.MustCompile(`\b(install|installing|installation|replace|replacing|put in|swap out|remove and replace)\b`)
	compatibilityPattern   = regexp.MustCompile(`\b(compatible|compatibility|fit|fits|work with|works with|go with)\b`)
	troubleshootingPattern = regexp.MustCompile(`\b(not working|stopped working|isn'?t working|doesn'?t work|broken|leak|leaks|leaking|noisy|noise|loud|not cooling|not draining|not cleaning|not making|won'?t|will not|fix|problem|issue|repair|troubleshoot|diagnose)\b`)
	searchPattern          = regexp.MustCompile(`\b(find|search|looking for|need|buy|price|cost|how much|order|part|parts|show me|do you have|in stock|sell)\b`)
	greetingPattern        = regexp.MustCompile(`^\s*(hi|hello|hey|howdy|good (morning|afternoon|evening)|greetings|thanks|thank you)\b`)

	dishwasherPattern   = regexp.MustCompile(`\bdish ?washers?\b`)
	refrigeratorPattern = regexp.MustCompile(`\b(fridges?|refrigerators?|freezers?|ice ?makers?|water dispensers?)\b`)
)

var knownBrands = []string{
	"whirlpool", "frigidaire", "kitchenaid", "maytag", "samsung", "bosch",
	"kenmore", "electrolux", "amana", "ge", "lg",
}

// symptomPhrases maps what people say to knowledge-base symptom wording.
// The first matching entry wins.
var symptomPhrases = []struct {
	pattern *regexp.Regexp
	symptom string
}{
	{regexp.MustCompile(`ice ?maker|making ice|no ice`), "ice maker not working"},
	{regexp.MustCompile(`dispenser|no water`), "water dispenser not working"},
	{regexp.MustCompile(`leak`), "leaking"},
	{regexp.MustCompile(`not cool|not cold|isn'?t cold|too warm|not freezing`), "not cooling"},
	{regexp.MustCompile(`not drain|won'?t drain|doesn'?t drain|standing water`), "not draining"},
	{regexp.MustCompile(`not clean|dirty dishes|spots|residue`), "not cleaning"},
	{regexp.MustCompile(`won'?t start|will not start|doesn'?t start|not start|no power`), "will not start"},
	{regexp.MustCompile(`burning|smell|spark|electrical`), "burning smell"},
	{regexp.MustCompile(`noisy|noise|loud|grinding|rattl`), "noisy"},
}

// queryFiller is removed from a search message before it becomes free text.
var queryFiller = map[string]bool{
	"how": true, "what": true, "which": true, "where": true, "much": true,
	"does": true, "cost": true, "price": true, "please": true, "buy": true,
	"order": true, "sell": true, "stock": true, "fridge": true, "fridges": true,
	"refrigerator": true, "refrigerators": true, "dishwasher": true,
	"dishwashers": true, "freezer": true, "model": true, "number": true,
	"are": true, "there": true, "this": true, "that": true, "your": true,
	"am": true, "be": true, "or": true, "at": true, "by": true, "from": true,
	"hi": true, "hello": true, "hey": true, "thanks": true, "one": true,
	"tell": true, "about": true, "info": true, "information": true,
	"details": true, "know": true, "would": true, "like": true,
}

// Utterance is a user message parsed once and shared by every rule.
type Utterance struct {
	Raw         string
	Lower       string
	PartNumbers []string
	Models      []string
	Category    domain.Category
	Brand       string
}

func parseUtterance(message string) Utterance {
	u := Utterance{Raw: message, Lower: strings.ToLower(message)}

	for _, pn := range partNumberPattern.FindAllString(message, -1) {
		u.PartNumbers = append(u.PartNumbers, strings.ToUpper(pn))
	}
	for _, tok := range modelTokenPattern.FindAllString(message, -1) {
		if partNumberPattern.MatchString(tok) || len(tok) < 5 {
			continue
		}
		u.Models = append(u.Models, strings.ToUpper(tok))
	}

	dIdx, rIdx := -1, -1
	if loc := dishwasherPattern.FindStringIndex(u.Lower); loc != nil {
		dIdx = loc[0]
	}
	if loc := refrigeratorPattern.FindStringIndex(u.Lower); loc != nil {
		rIdx = loc[0]
	}
	switch {
	case dIdx >= 0 && (rIdx < 0 || dIdx < rIdx):
		u.Category = domain.CategoryDishwasher
	case rIdx >= 0:
		u.Category = domain.CategoryRefrigerator
	}

	words := strings.FieldsFunc(u.Lower, isWordSeparator)
	for _, b := range knownBrands {
		for _, w := range words {
			if w == b {
				u.Brand = b
				break
			}
		}
		if u.Brand != "" {
			break
		}
	}
	return u
}

// Symptom returns the knowledge-base phrasing of the problem, or the
// message itself when no phrase matches.
func (u Utterance) Symptom() string {
	for _, sp := range symptomPhrases {
		if sp.pattern.MatchString(u.Lower) {
			return sp.symptom
		}
	}
	return strings.TrimSpace(u.Raw)
}

// QueryText strips identifiers, brand, category words and filler so only
// the part description is left.
func (u Utterance) QueryText() string {
	text := partNumberPattern.ReplaceAllString(u.Lower, " ")
	var kept []string
	for _, w := range strings.FieldsFunc(text, isWordSeparator) {
		if queryFiller[w] || searchStopwords[w] || w == u.Brand {
			continue
		}
		if isModelToken(w, u.Models) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func isModelToken(w string, models []string) bool {
	for _, m := range models {
		if strings.EqualFold(w, m) {
			return true
		}
	}
	return false
}

// IntentRule is one entry of the ordered classification table. Match
// decides whether the rule applies; Extract builds the tool parameters and
// reports required parameters that are still missing.
type IntentRule struct {
	Intent  domain.Intent
	Tool    string
	Match   func(u Utterance) bool
	Extract func(u Utterance, sc domain.SessionContext) (map[string]interface{}, []string)
}

// IntentClassifier applies rules in order; the first match wins.
type IntentClassifier struct {
	rules []IntentRule
}

func NewIntentClassifier(rules []IntentRule) *IntentClassifier {
	return &IntentClassifier{rules: rules}
}

// NewDefaultIntentClassifier uses DefaultIntentRules.
func NewDefaultIntentClassifier() *IntentClassifier {
	return NewIntentClassifier(DefaultIntentRules())
}

// Classify returns the intent of message. Parameters the message does not
// carry are taken from sc.
func (c *IntentClassifier) Classify(message string, sc domain.SessionContext) domain.IntentMatch {
	u := parseUtterance(message)
	for _, r := range c.rules {
		if !r.Match(u) {
			continue
		}
		m := domain.IntentMatch{Intent: r.Intent, Tool: r.Tool}
		if r.Extract != nil {
			m.Params, m.Missing = r.Extract(u, sc)
		}
		return m
	}
	return domain.IntentMatch{Intent: domain.IntentGeneral}
}

// ClassifyAs runs the extractor of the rule for intent without checking its
// predicate. It reports false when no rule handles intent.
func (c *IntentClassifier) ClassifyAs(intent domain.Intent, message string, sc domain.SessionContext) (domain.IntentMatch, bool) {
	u := parseUtterance(message)
	for _, r := range c.rules {
		if r.Intent != intent {
			continue
		}
		m := domain.IntentMatch{Intent: r.Intent, Tool: r.Tool}
		if r.Extract != nil {
			m.Params, m.Missing = r.Extract(u, sc)
		}
		return m, true
	}
	return domain.IntentMatch{}, false
}

// Rules returns the classifier's rules in precedence order.
func (c *IntentClassifier) Rules() []IntentRule {
	return append([]IntentRule(nil), c.rules...)
}

// DefaultIntentRules is the precedence table: installation, compatibility,
// troubleshooting, search, greeting.
func DefaultIntentRules() []IntentRule {
	return []IntentRule{
		{
			Intent:  domain.IntentInstallation,
			Tool:    ToolInstallationGuide,
			Match:   func(u Utterance) bool { return installationPattern.MatchString(u.Lower) },
			Extract: extractInstallation,
		},
		{
			Intent:  domain.IntentCompatibility,
			Tool:    ToolCheckCompatibility,
			Match:   func(u Utterance) bool { return compatibilityPattern.MatchString(u.Lower) },
			Extract: extractCompatibility,
		},
		{
			Intent:  domain.IntentTroubleshooting,
			Tool:    ToolTroubleshootingGuide,
			Match:   func(u Utterance) bool { return troubleshootingPattern.MatchString(u.Lower) },
			Extract: extractTroubleshooting,
		},
		{
			Intent: domain.IntentSearch,
			Tool:   ToolSearchProducts,
			Match: func(u Utterance) bool {
				return len(u.PartNumbers) > 0 || searchPattern.MatchString(u.Lower)
			},
			Extract: extractSearch,
		},
		{
			Intent: domain.IntentGreeting,
			Match:  func(u Utterance) bool { return greetingPattern.MatchString(u.Lower) },
		},
	}
}

func partNumberOrContext(u Utterance, sc domain.SessionContext) string {
	if len(u.PartNumbers) > 0 {
		return u.PartNumbers[0]
	}
	return sc.PartNumber
}

func modelOrContext(u Utterance, sc domain.SessionContext) string {
	if len(u.Models) > 0 {
		return u.Models[0]
	}
	return sc.ModelNumber
}

func categoryOrContext(u Utterance, sc domain.SessionContext) domain.Category {
	if u.Category != "" {
		return u.Category
	}
	return sc.Category
}

func extractInstallation(u Utterance, sc domain.SessionContext) (map[string]interface{}, []string) {
	params := map[string]interface{}{}
	if pn := partNumberOrContext(u, sc); pn != "" {
		params["partNumber"] = pn
		return params, nil
	}
	return params, []string{"partNumber"}
}

func extractCompatibility(u Utterance, sc domain.SessionContext) (map[string]interface{}, []string) {
	params := map[string]interface{}{}
	var missing []string
	if pn := partNumberOrContext(u, sc); pn != "" {
		params["partNumber"] = pn
	} else {
		missing = append(missing, "partNumber")
	}
	if model := modelOrContext(u, sc); model != "" {
		params["modelNumber"] = model
	} else {
		missing = append(missing, "modelNumber")
	}
	return params, missing
}

func extractTroubleshooting(u Utterance, sc domain.SessionContext) (map[string]interface{}, []string) {
	params := map[string]interface{}{"symptom": u.Symptom()}
	if cat := categoryOrContext(u, sc); cat != "" {
		params["category"] = string(cat)
	}
	return params, nil
}

func extractSearch(u Utterance, sc domain.SessionContext) (map[string]interface{}, []string) {
	params := map[string]interface{}{}
	if len(u.PartNumbers) > 0 {
		params["partNumber"] = u.PartNumbers[0]
	}
	if q := u.QueryText(); q != "" {
		params["query"] = q
	}
	if cat := categoryOrContext(u, sc); cat != "" {
		params["category"] = string(cat)
	}
	if u.Brand != "" {
		params["brand"] = u.Brand
	}
	if len(params) == 0 {
		return params, []string{"query"}
	}
	return params, nil
}
