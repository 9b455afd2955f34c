package services

import (
	"context"
	"fmt"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

const ToolTroubleshootingGuide = "troubleshooting_guide"

const maxOtherMatches = 3

type troubleshootingParams struct {
	Symptom  string `mapstructure:"symptom"`
	Category string `mapstructure:"category"`
}

func NewTroubleshootingTool(engine *MatchingEngine) *domain.Tool {
	params := domain.ToolParameters{
		Type: "object",
		Properties: map[string]interface{}{
			"symptom": map[string]interface{}{
				"type":        "string",
				"description": "What the appliance is doing wrong (e.g. 'ice maker not working').",
			},
			"category": map[string]interface{}{
				"type":        "string",
				"enum":        []string{string(domain.CategoryRefrigerator), string(domain.CategoryDishwasher)},
				"description": "Appliance type, narrows the knowledge base.",
			},
		},
		Required: []string{"symptom"},
	}
	binder := newParamBinder(ToolTroubleshootingGuide, params)

	return &domain.Tool{
		Name:        ToolTroubleshootingGuide,
		Description: "Diagnoses an appliance problem: likely causes, diagnostic steps and recommended replacement parts.",
		Parameters:  params,
		Validate:    binder.Validate,
		Execute: func(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
			var p troubleshootingParams
			if err := binder.Bind(raw, &p); err != nil {
				return nil, err
			}
			category := domain.Category(p.Category)
			matches := engine.SearchTroubleshooting(p.Symptom, category)
			if len(matches) == 0 {
				return nil, fmt.Errorf("%w: %q", domain.ErrNoSymptomMatch, p.Symptom)
			}

			top := matches[0]
			guide := domain.TroubleshootingGuide{
				Symptom:                   p.Symptom,
				Category:                  top.Symptom.Category,
				MatchedSymptom:            top.Symptom.Description,
				CommonCauses:              append([]string{}, top.Symptom.CommonCauses...),
				DiagnosticSteps:           top.DiagnosticSteps,
				RecommendedParts:          top.RecommendedParts,
				ShouldContactProfessional: top.ShouldContactProfessional,
				Reason:                    top.Reason,
			}
			for _, m := range matches[1:] {
				if len(guide.OtherMatches) == maxOtherMatches {
					break
				}
				guide.OtherMatches = append(guide.OtherMatches, m.Symptom.Description)
			}
			return guide, nil
		},
	}
}
