package services

import (
	"fmt"
	"log/slog"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

// NewPartsTools builds the four catalog capabilities over engine.
func NewPartsTools(engine *MatchingEngine, searchLimit int) []*domain.Tool {
	return []*domain.Tool{
		NewProductSearchTool(engine, searchLimit),
		NewCompatibilityTool(engine),
		NewInstallationTool(engine),
		NewTroubleshootingTool(engine),
	}
}

// RegisterPartsTools registers the catalog capabilities. Overwriting an
// already registered name is allowed but logged.
func RegisterPartsTools(logger *slog.Logger, registry *domain.ToolRegistry, engine *MatchingEngine, searchLimit int) error {
	for _, tool := range NewPartsTools(engine, searchLimit) {
		replaced, err := registry.RegisterReplacing(tool)
		if err != nil {
			return fmt.Errorf("register %s: %w", tool.Name, err)
		}
		if replaced {
			logger.Warn("tool re-registered, previous definition replaced", "tool", tool.Name)
		}
	}
	return nil
}
