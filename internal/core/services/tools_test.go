package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

func newTestRegistry(t *testing.T) *domain.ToolRegistry {
	t.Helper()
	reg := domain.NewToolRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, RegisterPartsTools(logger, reg, newTestEngine(t), domain.DefaultSearchLimit))
	return reg
}

func TestRegisterPartsTools(t *testing.T) {
	reg := newTestRegistry(t)
	assert.Equal(t, []string{
		ToolCheckCompatibility,
		ToolInstallationGuide,
		ToolSearchProducts,
		ToolTroubleshootingGuide,
	}, reg.Names())

	prompt := reg.FormatToolsForPrompt()
	for _, name := range reg.Names() {
		assert.Contains(t, prompt, name)
	}
	assert.Contains(t, prompt, "required: partNumber, modelNumber")
}

func TestRegisterPartsTools_LogsReplacement(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	reg := domain.NewToolRegistry()
	engine := newTestEngine(t)

	require.NoError(t, RegisterPartsTools(logger, reg, engine, 5))
	assert.Empty(t, buf.String())

	require.NoError(t, RegisterPartsTools(logger, reg, engine, 5))
	assert.Contains(t, buf.String(), "tool re-registered")
	assert.Len(t, reg.Names(), 4)
}

func TestRegistry_UnknownToolSuggestsClosest(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Execute(context.Background(), "search_product", map[string]interface{}{"query": "bin"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
	assert.Contains(t, err.Error(), "did you mean search_products?")

	_, err = reg.Execute(context.Background(), "launch_rocket", nil)
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
	assert.NotContains(t, err.Error(), "did you mean")
}

func execTool(t *testing.T, reg *domain.ToolRegistry, name string, params map[string]interface{}) (interface{}, error) {
	t.Helper()
	return reg.Execute(context.Background(), name, params)
}

func TestProductSearchTool(t *testing.T) {
	reg := newTestRegistry(t)

	out, err := execTool(t, reg, ToolSearchProducts, map[string]interface{}{"query": "water filter"})
	require.NoError(t, err)
	res, ok := out.(domain.ProductSearchResult)
	require.True(t, ok)
	require.NotEmpty(t, res.Result.Products)
	assert.Equal(t, "PS12364199", res.Result.Products[0].Product.PartNumber)
	assert.Contains(t, res.Summary, "Found")

	out, err = execTool(t, reg, ToolSearchProducts, map[string]interface{}{"partNumber": "ps11752778"})
	require.NoError(t, err)
	res = out.(domain.ProductSearchResult)
	assert.True(t, res.Result.ExactMatch)
	assert.Equal(t, "Found part PS11752778: Refrigerator Door Shelf Bin.", res.Summary)
}

func TestProductSearchTool_Validation(t *testing.T) {
	reg := newTestRegistry(t)

	cases := map[string]map[string]interface{}{
		"no criteria":       {},
		"blank criteria":    {"query": "   "},
		"unknown category":  {"category": "oven"},
		"bad limit type":    {"query": "water", "limit": "three"},
		"limit over cap":    {"query": "water", "limit": 500},
		"inverted price":    {"query": "water", "minPrice": 60, "maxPrice": 10},
		"bad availability":  {"query": "water", "availability": "maybe"},
		"negative offset":   {"query": "water", "offset": -1},
		"wrong query type":  {"query": 42},
		"only price filter": {"minPrice": 10},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := execTool(t, reg, ToolSearchProducts, params)
			assert.ErrorIs(t, err, domain.ErrInvalidParameters)
		})
	}
}

func TestProductSearchTool_NormalizesEnumsAndLimit(t *testing.T) {
	reg := newTestRegistry(t)

	out, err := execTool(t, reg, ToolSearchProducts, map[string]interface{}{"category": "Dishwasher", "limit": 2})
	require.NoError(t, err)
	res := out.(domain.ProductSearchResult)
	assert.Equal(t, domain.CategoryDishwasher, res.Query.Category)
	assert.Len(t, res.Result.Products, 2)
	assert.Equal(t, "Found 6 parts, showing 1-2.", res.Summary)
}

func TestCompatibilityTool(t *testing.T) {
	reg := newTestRegistry(t)

	out, err := execTool(t, reg, ToolCheckCompatibility, map[string]interface{}{
		"partNumber":  "PS11752778",
		"modelNumber": "WRS325SDHZ",
	})
	require.NoError(t, err)
	rep := out.(domain.CompatibilityReport)
	assert.True(t, rep.Result.IsCompatible)
	assert.Equal(t, 1.0, rep.Result.Confidence)
	assert.Contains(t, rep.Recommendation, "confirmed fit")

	out, err = execTool(t, reg, ToolCheckCompatibility, map[string]interface{}{
		"partNumber":  "PS00000001",
		"modelNumber": "WRS325SDHZ",
	})
	require.NoError(t, err, "an unknown part is a result, not an error")
	rep = out.(domain.CompatibilityReport)
	assert.False(t, rep.Result.IsCompatible)
	assert.Zero(t, rep.Result.Confidence)
}

func TestCompatibilityTool_MissingParameters(t *testing.T) {
	reg := newTestRegistry(t)

	for _, params := range []map[string]interface{}{
		{"partNumber": "PS11752778"},
		{"modelNumber": "WDT780SAEM1"},
		{"partNumber": "PS11752778", "modelNumber": "  "},
		nil,
	} {
		_, err := execTool(t, reg, ToolCheckCompatibility, params)
		assert.ErrorIs(t, err, domain.ErrInvalidParameters, "%v", params)
	}
}

func TestInstallationTool(t *testing.T) {
	reg := newTestRegistry(t)

	out, err := execTool(t, reg, ToolInstallationGuide, map[string]interface{}{"partNumber": "PS11752778"})
	require.NoError(t, err)
	guide := out.(domain.InstallationGuide)
	assert.Equal(t, "PS11752778", guide.PartNumber)
	assert.Len(t, guide.Steps, 4)
	assert.Equal(t, 1, guide.Steps[0].Number)
	assert.Equal(t, domain.DifficultyEasy, guide.Difficulty)
	assert.Equal(t, 5, guide.EstimatedTime)

	out, err = execTool(t, reg, ToolInstallationGuide, map[string]interface{}{"partNumber": "PS11739035"})
	require.NoError(t, err)
	guide = out.(domain.InstallationGuide)
	assert.Equal(t, []string{"Phillips screwdriver", "1/4-inch nut driver"}, guide.RequiredTools)
	assert.NotEmpty(t, guide.SafetyWarnings)
}

func TestInstallationTool_NotFound(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := execTool(t, reg, ToolInstallationGuide, map[string]interface{}{"partNumber": "PS00000001"})
	assert.ErrorIs(t, err, domain.ErrPartNotFound)
	assert.Contains(t, err.Error(), "not found")

	_, err = execTool(t, reg, ToolInstallationGuide, map[string]interface{}{"partNumber": "PS8260087"})
	assert.ErrorIs(t, err, domain.ErrNoInstallationData)
	assert.Contains(t, err.Error(), "not found")

	_, err = execTool(t, reg, ToolInstallationGuide, map[string]interface{}{})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestTroubleshootingTool(t *testing.T) {
	reg := newTestRegistry(t)

	out, err := execTool(t, reg, ToolTroubleshootingGuide, map[string]interface{}{
		"symptom":  "ice maker not working",
		"category": "refrigerator",
	})
	require.NoError(t, err)
	guide := out.(domain.TroubleshootingGuide)
	assert.Equal(t, "Ice maker not working", guide.MatchedSymptom)
	assert.NotEmpty(t, guide.DiagnosticSteps)
	require.NotEmpty(t, guide.RecommendedParts)
	assert.Positive(t, guide.RecommendedParts[0].Price)
	assert.NotEmpty(t, guide.RecommendedParts[0].Availability)

	out, err = execTool(t, reg, ToolTroubleshootingGuide, map[string]interface{}{"symptom": "not working"})
	require.NoError(t, err)
	guide = out.(domain.TroubleshootingGuide)
	assert.Equal(t, []string{"Water dispenser not working"}, guide.OtherMatches)
}

func TestTroubleshootingTool_NoMatch(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := execTool(t, reg, ToolTroubleshootingGuide, map[string]interface{}{"symptom": "sings opera at night"})
	assert.ErrorIs(t, err, domain.ErrNoSymptomMatch)

	_, err = execTool(t, reg, ToolTroubleshootingGuide, map[string]interface{}{"symptom": ""})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestTools_Idempotent(t *testing.T) {
	reg := newTestRegistry(t)

	calls := []struct {
		tool   string
		params map[string]interface{}
	}{
		{ToolSearchProducts, map[string]interface{}{"query": "door", "category": "refrigerator"}},
		{ToolCheckCompatibility, map[string]interface{}{"partNumber": "PS11750057", "modelNumber": "WDT780SAEM1"}},
		{ToolInstallationGuide, map[string]interface{}{"partNumber": "PS11746591"}},
		{ToolTroubleshootingGuide, map[string]interface{}{"symptom": "leaking"}},
	}
	for _, c := range calls {
		first, err := execTool(t, reg, c.tool, c.params)
		require.NoError(t, err, c.tool)
		second, err := execTool(t, reg, c.tool, c.params)
		require.NoError(t, err, c.tool)
		assert.Equal(t, first, second, c.tool)
	}
}

func TestPartsTools_CheckParams(t *testing.T) {
	reg := newTestRegistry(t)

	valid := map[string]map[string]interface{}{
		ToolSearchProducts:       {"query": "door bin"},
		ToolCheckCompatibility:   {"partNumber": "PS11752778", "modelNumber": "WDT780SAEM1"},
		ToolInstallationGuide:    {"partNumber": "PS11752778"},
		ToolTroubleshootingGuide: {"symptom": "ice maker not working", "category": "Refrigerator"},
	}
	invalid := map[string]map[string]interface{}{
		ToolSearchProducts:       {"limit": 3},
		ToolCheckCompatibility:   {"partNumber": "PS11752778"},
		ToolInstallationGuide:    {"partNumber": 42.5},
		ToolTroubleshootingGuide: {"symptom": "ice maker not working", "category": "fridge"},
	}

	for name, params := range valid {
		tool, ok := reg.GetTool(name)
		require.True(t, ok, name)
		require.NotNil(t, tool.Validate, name)
		assert.NoError(t, tool.CheckParams(params), name)
	}
	for name, params := range invalid {
		tool, _ := reg.GetTool(name)
		assert.ErrorIs(t, tool.CheckParams(params), domain.ErrInvalidParameters, name)
	}
}
