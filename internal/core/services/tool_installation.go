package services

import (
	"context"
	"fmt"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

const ToolInstallationGuide = "installation_guide"

type installationParams struct {
	PartNumber string `mapstructure:"partNumber"`
}

func NewInstallationTool(engine *MatchingEngine) *domain.Tool {
	params := domain.ToolParameters{
		Type: "object",
		Properties: map[string]interface{}{
			"partNumber": map[string]interface{}{
				"type":        "string",
				"description": "Part number to install (e.g. PS11752778).",
			},
		},
		Required: []string{"partNumber"},
	}
	binder := newParamBinder(ToolInstallationGuide, params)

	return &domain.Tool{
		Name:        ToolInstallationGuide,
		Description: "Returns step-by-step installation instructions, required tools, safety warnings and time estimate for a part.",
		Parameters:  params,
		Validate:    binder.Validate,
		Execute: func(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
			var p installationParams
			if err := binder.Bind(raw, &p); err != nil {
				return nil, err
			}
			part, ok := engine.FindPart(p.PartNumber)
			if !ok {
				return nil, fmt.Errorf("%w: %s", domain.ErrPartNotFound, p.PartNumber)
			}
			if len(part.InstallationSteps) == 0 {
				return nil, fmt.Errorf("%w: installation guide not found for %s", domain.ErrNoInstallationData, part.PartNumber)
			}

			return domain.InstallationGuide{
				PartNumber:     part.PartNumber,
				PartName:       part.Name,
				Part:           part,
				Difficulty:     part.InstallationDifficulty,
				EstimatedTime:  part.EstimatedInstallTime,
				RequiredTools:  append([]string{}, part.RequiredTools...),
				SafetyWarnings: append([]string{}, part.SafetyWarnings...),
				Steps:          append([]domain.InstallationStep{}, part.InstallationSteps...),
				Summary: fmt.Sprintf("Installing the %s (%s) is %s and takes about %d minutes in %d steps.",
					part.Name, part.PartNumber, part.InstallationDifficulty, part.EstimatedInstallTime, len(part.InstallationSteps)),
			}, nil
		},
	}
}
