package analysis

import (
	"fmt"

	"github.com/markdave123-py/Auditra/internal/models"
)

// Insight derives the foresight alert recorded alongside every completed document,
// including results whose own foresight block is empty.
func Insight(category models.Category, jurisdiction string, r *models.AnalysisResult) models.ActivityDetails {
	s, ok := lookup(category)
	if !ok {
		return models.ActivityDetails{Title: "Foresight alert", Description: "No foresight available for this document.", Status: "alert"}
	}
	return s.insight(normalizeJurisdiction(jurisdiction), r.Normalize())
}

func topRisk(r *models.AnalysisResult, fallback string) string {
	if len(r.Foresight.Risks) > 0 && r.Foresight.Risks[0].Title != "" {
		return r.Foresight.Risks[0].Title
	}
	return fallback
}

func forensicInsight(j string, r *models.AnalysisResult) models.ActivityDetails {
	return models.ActivityDetails{
		Title:       "Forensic foresight alert",
		Description: fmt.Sprintf("%s: review payment controls before the next %s reporting period.", topRisk(r, "Control weakness"), j),
		Status:      "alert",
	}
}

func taxInsight(j string, r *models.AnalysisResult) models.ActivityDetails {
	return models.ActivityDetails{
		Title:       "Tax foresight alert",
		Description: fmt.Sprintf("%s: check %s filing deadlines and supporting records.", topRisk(r, "Filing exposure"), j),
		Status:      "alert",
	}
}

func legalInsight(j string, r *models.AnalysisResult) models.ActivityDetails {
	return models.ActivityDetails{
		Title:       "Legal foresight alert",
		Description: fmt.Sprintf("%s: diary notice periods and confirm %s governing-law effects.", topRisk(r, "Contract exposure"), j),
		Status:      "alert",
	}
}
