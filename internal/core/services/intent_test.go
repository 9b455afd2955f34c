package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

func TestClassify_Scenarios(t *testing.T) {
	c := NewDefaultIntentClassifier()

	tests := []struct {
		name    string
		message string
		intent  domain.Intent
		tool    string
		params  map[string]interface{}
		missing []string
	}{
		{
			name:    "installation with part number",
			message: "How can I install part number PS11752778?",
			intent:  domain.IntentInstallation,
			tool:    ToolInstallationGuide,
			params:  map[string]interface{}{"partNumber": "PS11752778"},
		},
		{
			name:    "compatibility without part number",
			message: "Is this part compatible with my WDT780SAEM1 model?",
			intent:  domain.IntentCompatibility,
			tool:    ToolCheckCompatibility,
			params:  map[string]interface{}{"modelNumber": "WDT780SAEM1"},
			missing: []string{"partNumber"},
		},
		{
			name:    "troubleshooting infers category",
			message: "The ice maker on my Whirlpool fridge is not working. How can I fix it?",
			intent:  domain.IntentTroubleshooting,
			tool:    ToolTroubleshootingGuide,
			params:  map[string]interface{}{"symptom": "ice maker not working", "category": "refrigerator"},
		},
		{
			name:    "search by description",
			message: "I need a water filter for my fridge",
			intent:  domain.IntentSearch,
			tool:    ToolSearchProducts,
			params:  map[string]interface{}{"query": "water filter", "category": "refrigerator"},
		},
		{
			name:    "bare part number is a search",
			message: "ps11752778",
			intent:  domain.IntentSearch,
			tool:    ToolSearchProducts,
			params:  map[string]interface{}{"partNumber": "PS11752778"},
		},
		{
			name:    "greeting",
			message: "Hello there!",
			intent:  domain.IntentGreeting,
		},
		{
			name:    "general",
			message: "What are your opening hours?",
			intent:  domain.IntentGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := c.Classify(tt.message, domain.SessionContext{})
			assert.Equal(t, tt.intent, m.Intent)
			assert.Equal(t, tt.tool, m.Tool)
			if tt.params != nil {
				assert.Equal(t, tt.params, m.Params)
			}
			assert.Equal(t, tt.missing, m.Missing)
		})
	}
}

func TestClassify_Precedence(t *testing.T) {
	c := NewDefaultIntentClassifier()

	// Installation beats compatibility.
	m := c.Classify("Will PS11752778 fit, and how do I install it?", domain.SessionContext{})
	assert.Equal(t, domain.IntentInstallation, m.Intent)

	// Compatibility beats troubleshooting.
	m = c.Classify("My dishwasher is broken, does PS11746591 fit WDT780SAEM1?", domain.SessionContext{})
	assert.Equal(t, domain.IntentCompatibility, m.Intent)
	assert.Equal(t, map[string]interface{}{"partNumber": "PS11746591", "modelNumber": "WDT780SAEM1"}, m.Params)

	// Troubleshooting beats search.
	m = c.Classify("I need help, my dishwasher is leaking", domain.SessionContext{})
	assert.Equal(t, domain.IntentTroubleshooting, m.Intent)
	assert.Equal(t, "leaking", m.Params["symptom"])
	assert.Equal(t, "dishwasher", m.Params["category"])

	// Search beats greeting.
	m = c.Classify("Hi, do you have door bins?", domain.SessionContext{})
	assert.Equal(t, domain.IntentSearch, m.Intent)
}

func TestClassify_UsesSessionContext(t *testing.T) {
	c := NewDefaultIntentClassifier()
	sc := domain.SessionContext{PartNumber: "PS11752778", ModelNumber: "WRS325SDHZ", Category: domain.CategoryRefrigerator}

	m := c.Classify("Is it compatible with my WRF555SDFZ?", sc)
	assert.Equal(t, map[string]interface{}{"partNumber": "PS11752778", "modelNumber": "WRF555SDFZ"}, m.Params)
	assert.Empty(t, m.Missing)

	m = c.Classify("How do I install it?", sc)
	assert.Equal(t, "PS11752778", m.Params["partNumber"])

	m = c.Classify("It is making a loud noise", sc)
	assert.Equal(t, domain.IntentTroubleshooting, m.Intent)
	assert.Equal(t, "refrigerator", m.Params["category"])

	// A part number in the message wins over context.
	m = c.Classify("How do I install PS11739035?", sc)
	assert.Equal(t, "PS11739035", m.Params["partNumber"])
}

func TestClassify_MissingParameters(t *testing.T) {
	c := NewDefaultIntentClassifier()

	m := c.Classify("How do I install it?", domain.SessionContext{})
	assert.Equal(t, domain.IntentInstallation, m.Intent)
	assert.Equal(t, []string{"partNumber"}, m.Missing)

	m = c.Classify("Is it compatible?", domain.SessionContext{})
	assert.Equal(t, []string{"partNumber", "modelNumber"}, m.Missing)

	m = c.Classify("find", domain.SessionContext{})
	assert.Equal(t, domain.IntentSearch, m.Intent)
	assert.Equal(t, []string{"query"}, m.Missing)
}

func TestParseUtterance(t *testing.T) {
	u := parseUtterance("Does ps11752778 fit my wrs325sdhz or my GE dishwasher GDF530PSMSS?")
	assert.Equal(t, []string{"PS11752778"}, u.PartNumbers)
	assert.Equal(t, []string{"WRS325SDHZ", "GDF530PSMSS"}, u.Models)
	assert.Equal(t, domain.CategoryDishwasher, u.Category)
	assert.Equal(t, "ge", u.Brand)
}

func TestUtterance_Symptom(t *testing.T) {
	cases := map[string]string{
		"my fridge is not cooling anymore":        "not cooling",
		"dishwasher won't drain":                  "not draining",
		"there is a burning smell":                "burning smell",
		"the dishwasher will not start":           "will not start",
		"the water dispenser stopped working":     "water dispenser not working",
		"something weird is going on with my fan": "something weird is going on with my fan",
	}
	for msg, want := range cases {
		assert.Equal(t, want, parseUtterance(msg).Symptom(), msg)
	}
}

func TestIntentClassifier_CustomRules(t *testing.T) {
	c := NewIntentClassifier([]IntentRule{{
		Intent: domain.IntentGreeting,
		Match:  func(u Utterance) bool { return true },
	}})
	assert.Equal(t, domain.IntentGreeting, c.Classify("anything", domain.SessionContext{}).Intent)
	assert.Len(t, c.Rules(), 1)

	empty := NewIntentClassifier(nil)
	assert.Equal(t, domain.IntentGeneral, empty.Classify("install PS11752778", domain.SessionContext{}).Intent)
}
