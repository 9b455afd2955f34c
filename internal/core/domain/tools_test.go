package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echo " + name,
		Parameters: ToolParameters{
			Type:       "object",
			Properties: map[string]interface{}{"q": map[string]interface{}{"type": "string"}},
			Required:   []string{"q"},
		},
		Execute: func(_ context.Context, params map[string]interface{}) (interface{}, error) {
			return params["q"], nil
		},
	}
}

func TestToolRegistry_Register(t *testing.T) {
	r := NewToolRegistry()

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&Tool{Name: "x"}), "tool without executor")
	assert.Error(t, r.Register(&Tool{Execute: echoTool("x").Execute}), "tool without name")

	replaced, err := r.RegisterReplacing(echoTool("search_products"))
	require.NoError(t, err)
	assert.False(t, replaced)
	replaced, err = r.RegisterReplacing(echoTool("search_products"))
	require.NoError(t, err)
	assert.True(t, replaced)

	require.NoError(t, r.Register(echoTool("check_compatibility")))
	assert.Equal(t, []string{"check_compatibility", "search_products"}, r.Names())

	tools := r.ListTools()
	require.Len(t, tools, 2)
	assert.Equal(t, "check_compatibility", tools[0].Name)
}

func TestToolRegistry_Execute(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(echoTool("search_products")))

	out, err := r.Execute(context.Background(), "search_products", map[string]interface{}{"q": "ice maker"})
	require.NoError(t, err)
	assert.Equal(t, "ice maker", out)

	_, err = r.Execute(context.Background(), "search_product", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
	assert.Contains(t, err.Error(), "did you mean search_products")

	_, err = r.Execute(context.Background(), "weather", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestFormatTools(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(echoTool("installation_guide")))

	out := r.FormatToolsForPrompt()
	assert.Contains(t, out, "Available Tools:")
	assert.Contains(t, out, "installation_guide")
	assert.Contains(t, out, "required: q")
}

func TestProductValidate(t *testing.T) {
	valid := Product{
		PartNumber:             "PS11752778",
		Name:                   "Refrigerator Door Shelf Bin",
		Category:               CategoryRefrigerator,
		Price:                  44.95,
		Availability:           AvailabilityInStock,
		InstallationDifficulty: DifficultyEasy,
		EstimatedInstallTime:   5,
	}
	assert.NoError(t, valid.Validate())

	broken := []func(*Product){
		func(p *Product) { p.PartNumber = " - " },
		func(p *Product) { p.Name = "" },
		func(p *Product) { p.Category = "oven" },
		func(p *Product) { p.Availability = "soon" },
		func(p *Product) { p.InstallationDifficulty = "trivial" },
		func(p *Product) { p.Price = 0 },
		func(p *Product) { p.EstimatedInstallTime = -1 },
	}
	for i, mutate := range broken {
		p := valid
		mutate(&p)
		assert.ErrorIs(t, p.Validate(), ErrInvalidProduct, "case %d", i)
	}
}
