package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

const genericApology = "Sorry, something went wrong while I was working on that. Please try again in a moment."

func formatPrice(p float64) string {
	return fmt.Sprintf("$%.2f", p)
}

func productLine(p domain.Product) string {
	return fmt.Sprintf("**%s** (%s) - %s, %s, %s", p.Name, p.PartNumber, p.Brand, formatPrice(p.Price), p.Availability.Label())
}

func formatSearch(r domain.ProductSearchResult) string {
	res := r.Result
	var sb strings.Builder

	if res.ExactMatch {
		p := res.Products[0].Product
		fmt.Fprintf(&sb, "Here is part %s:\n\n%s\n\n%s\n\n", p.PartNumber, productLine(p), p.Description)
		fmt.Fprintf(&sb, "Installation is %s and takes about %d minutes.", p.InstallationDifficulty, p.EstimatedInstallTime)
		if len(p.CompatibleModels) > 0 {
			fmt.Fprintf(&sb, " Fits models such as %s.", strings.Join(firstN(p.CompatibleModels, 3), ", "))
		}
		return sb.String()
	}

	if res.Total == 0 {
		sb.WriteString("I couldn't find any parts matching your search.")
		if len(res.Suggestions) > 0 {
			sb.WriteString(" You could:\n")
			for _, s := range res.Suggestions {
				fmt.Fprintf(&sb, "- %s\n", s)
			}
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	sb.WriteString(r.Summary)
	sb.WriteString("\n\n")
	for i, sp := range res.Products {
		fmt.Fprintf(&sb, "%d. %s\n", res.Offset+i+1, productLine(sp.Product))
	}
	if res.Offset+len(res.Products) < res.Total {
		sb.WriteString("\nAsk for more results to see the rest.")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatCompatibility(r domain.CompatibilityReport) string {
	res := r.Result
	if res.Part == nil {
		return fmt.Sprintf("I couldn't find part %s in our catalog. %s", res.PartNumber, r.Recommendation)
	}
	p := res.Part

	var sb strings.Builder
	switch {
	case res.IsCompatible && res.Confidence >= exactModelConfidence:
		fmt.Fprintf(&sb, "Yes, the %s (%s) is compatible with your %s. %s", p.Name, p.PartNumber, res.ModelNumber, res.Reason)
	case res.IsCompatible:
		fmt.Fprintf(&sb, "Very likely: the %s (%s) should fit your %s (%.0f%% confidence). %s %s",
			p.Name, p.PartNumber, res.ModelNumber, res.Confidence*100, res.Reason, r.Recommendation)
		return sb.String()
	default:
		fmt.Fprintf(&sb, "No, the %s (%s) is not listed as compatible with your %s.", p.Name, p.PartNumber, res.ModelNumber)
	}

	if len(res.AlternativeParts) > 0 {
		fmt.Fprintf(&sb, "\n\nThese %s parts do fit your %s:\n", p.Category, res.ModelNumber)
		for _, alt := range res.AlternativeParts {
			fmt.Fprintf(&sb, "- %s\n", productLine(alt))
		}
		return strings.TrimRight(sb.String(), "\n")
	}
	if !res.IsCompatible {
		sb.WriteString(" ")
		sb.WriteString(r.Recommendation)
	}
	return sb.String()
}

func formatInstallation(g domain.InstallationGuide) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Installing the %s (%s)**\n", g.PartName, g.PartNumber)
	fmt.Fprintf(&sb, "Difficulty: %s | Estimated time: %d minutes\n\n", g.Difficulty, g.EstimatedTime)

	if len(g.RequiredTools) > 0 {
		fmt.Fprintf(&sb, "Required tools: %s\n\n", strings.Join(g.RequiredTools, ", "))
	} else {
		sb.WriteString("Required tools: none\n\n")
	}

	if len(g.SafetyWarnings) > 0 {
		sb.WriteString("Safety first:\n")
		for _, w := range g.SafetyWarnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Steps:\n")
	for _, s := range g.Steps {
		fmt.Fprintf(&sb, "%d. **%s**: %s\n", s.Number, s.Title, s.Description)
		if s.Warning != "" {
			fmt.Fprintf(&sb, "   Warning: %s\n", s.Warning)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatTroubleshooting(g domain.TroubleshootingGuide) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** (%s)\n\n", g.MatchedSymptom, g.Category)

	if len(g.CommonCauses) > 0 {
		sb.WriteString("Common causes:\n")
		for _, c := range g.CommonCauses {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
		sb.WriteString("\n")
	}

	if len(g.DiagnosticSteps) > 0 {
		sb.WriteString("Diagnostic steps:\n")
		for _, s := range g.DiagnosticSteps {
			fmt.Fprintf(&sb, "%d. %s", s.Number, s.Instruction)
			if s.ExpectedResult != "" {
				fmt.Fprintf(&sb, " (expected: %s)", strings.TrimSuffix(s.ExpectedResult, "."))
			}
			if s.OnFailure != 0 {
				fmt.Fprintf(&sb, " If not, go to step %d.", s.OnFailure)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(g.RecommendedParts) > 0 {
		sb.WriteString("Recommended parts:\n")
		for _, p := range g.RecommendedParts {
			fmt.Fprintf(&sb, "- %s\n", productLine(p))
		}
		sb.WriteString("\n")
	}

	if g.ShouldContactProfessional {
		fmt.Fprintf(&sb, "We recommend contacting a professional technician. %s\n\n", g.Reason)
	}
	if len(g.OtherMatches) > 0 {
		fmt.Fprintf(&sb, "Related problems: %s.", strings.Join(g.OtherMatches, "; "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatToolResult renders a successful observation. Unknown payloads fall
// back to a neutral sentence.
func formatToolResult(result interface{}) string {
	switch r := result.(type) {
	case domain.ProductSearchResult:
		return formatSearch(r)
	case domain.CompatibilityReport:
		return formatCompatibility(r)
	case domain.InstallationGuide:
		return formatInstallation(r)
	case domain.TroubleshootingGuide:
		return formatTroubleshooting(r)
	default:
		return "Here is what I found."
	}
}

// formatMissing asks the user for the first parameter the turn still needs.
func formatMissing(intent domain.Intent, missing []string, params map[string]interface{}) string {
	if len(missing) == 0 {
		return capabilityOverview(domain.IntentGeneral)
	}
	switch missing[0] {
	case "partNumber":
		switch intent {
		case domain.IntentCompatibility:
			if model, _ := params["modelNumber"].(string); model != "" {
				return fmt.Sprintf("I can check whether a part fits your %s. Which part do you mean? Please share its part number (it starts with PS, for example PS11752778).", model)
			}
			return "I can check compatibility for you. Please share the part number (it starts with PS, for example PS11752778) and your appliance's model number."
		case domain.IntentInstallation:
			return "Which part would you like to install? Please share its part number (it starts with PS, for example PS11752778)."
		}
		return "Please share the part number (it starts with PS, for example PS11752778)."
	case "modelNumber":
		return "What is your appliance's model number? You can usually find it on a label inside the door or along the frame."
	case "query":
		return "What part are you looking for? Describe it (for example \"water filter\") or give me a part number."
	}
	return fmt.Sprintf("I need your %s to help with that.", missing[0])
}

func capabilityOverview(intent domain.Intent) string {
	const capabilities = `- find refrigerator and dishwasher parts by name or part number
- check whether a part fits your appliance model
- walk you through installing a part
- troubleshoot common problems and recommend the right parts`

	if intent == domain.IntentGreeting {
		return "Hi! I'm the parts assistant for refrigerators and dishwashers. I can:\n" + capabilities + "\n\nWhat can I help you with?"
	}
	return "I can help with refrigerator and dishwasher parts. I can:\n" + capabilities + "\n\nTry something like \"How can I install part PS11752778?\""
}

// formatFailure turns a capability error into an apology that names the
// reason without internal details.
func formatFailure(err error) string {
	switch {
	case errors.Is(err, domain.ErrPartNotFound):
		return "Sorry, I couldn't find that part number in our catalog. Please double-check it or describe the part instead."
	case errors.Is(err, domain.ErrNoInstallationData):
		return "Sorry, installation instructions for that part were not found. The part page or the appliance manual may help."
	case errors.Is(err, domain.ErrNoSymptomMatch):
		return "Sorry, I couldn't match that problem to a known issue. Could you describe it differently, for example \"ice maker not working\" or \"dishwasher not draining\"?"
	case errors.Is(err, domain.ErrInvalidParameters):
		return "Sorry, some of the details I had were missing or invalid. Could you rephrase with the part number or model number?"
	case errors.Is(err, domain.ErrToolNotFound):
		return "Sorry, I'm not able to handle that kind of request."
	}
	return genericApology
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
