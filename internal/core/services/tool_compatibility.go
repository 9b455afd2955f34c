package services

import (
	"context"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

const ToolCheckCompatibility = "check_compatibility"

type compatibilityParams struct {
	PartNumber  string `mapstructure:"partNumber"`
	ModelNumber string `mapstructure:"modelNumber"`
}

func NewCompatibilityTool(engine *MatchingEngine) *domain.Tool {
	params := domain.ToolParameters{
		Type: "object",
		Properties: map[string]interface{}{
			"partNumber": map[string]interface{}{
				"type":        "string",
				"description": "Part number to check (e.g. PS11752778).",
			},
			"modelNumber": map[string]interface{}{
				"type":        "string",
				"description": "Appliance model number from the appliance label (e.g. WDT780SAEM1).",
			},
		},
		Required: []string{"partNumber", "modelNumber"},
	}
	binder := newParamBinder(ToolCheckCompatibility, params)

	return &domain.Tool{
		Name:        ToolCheckCompatibility,
		Description: "Checks whether a part fits a specific appliance model and suggests alternatives when it does not.",
		Parameters:  params,
		Validate:    binder.Validate,
		Execute: func(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
			var p compatibilityParams
			if err := binder.Bind(raw, &p); err != nil {
				return nil, err
			}
			res := engine.CheckCompatibility(p.PartNumber, p.ModelNumber)
			return domain.CompatibilityReport{
				Result:         res,
				Recommendation: compatibilityRecommendation(res),
			}, nil
		},
	}
}

func compatibilityRecommendation(res domain.CompatibilityResult) string {
	switch {
	case res.Part == nil:
		return "Check the part number printed on the old part, or search for the part by name."
	case res.IsCompatible && res.Confidence >= exactModelConfidence:
		return "This part is a confirmed fit for your model."
	case res.IsCompatible:
		return "This part is very likely a fit. Confirm the full model number on your appliance label before ordering."
	case len(res.AlternativeParts) > 0:
		return "This part does not fit your model. One of the alternatives listed below does."
	default:
		return "This part does not fit your model. Search by your model number to find parts that do."
	}
}
