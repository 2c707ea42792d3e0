package fieldmap

import (
	"github.com/jonathan/autoapply/internal/browser"
	"github.com/jonathan/autoapply/internal/types"
)

// Score rates how much a classification can be trusted, in [0, 1].
func Score(info browser.ElementInfo, fieldType types.FieldType) float64 {
	score := 0.5
	if info.LabelText != "" {
		score += 0.25
	}
	if info.Required {
		score += 0.1
	}
	if info.AutoComplete != "" {
		score += 0.15
	}
	if info.DataAutomationID != "" || info.DataTestID != "" {
		score += 0.1
	}
	// A required field we could only guess at is the riskiest kind.
	if fieldType.IsCustom() && info.Required {
		score -= 0.15
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
