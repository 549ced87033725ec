package analysis

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/markdave123-py/Auditra/internal/core/llm"
	"github.com/markdave123-py/Auditra/internal/models"
)

var errNoAnalysis = errors.New("analysis: model output has no analysis paragraphs")

// wireResult mirrors models.AnalysisResult but tolerates the shapes models
// actually return: single strings for lists, string references, "75%" scores.
type wireResult struct {
	Analysis        flexStrings     `json:"analysis"`
	Recommendations flexStrings     `json:"recommendations"`
	References      []flexReference `json:"references"`
	Foresight       struct {
		Predictions []struct {
			Title       string  `json:"title"`
			Description string  `json:"description"`
			RiskScore   flexInt `json:"riskScore"`
			Impact      string  `json:"impact"`
			Timeframe   string  `json:"timeframe"`
		} `json:"predictions"`
		Risks         []models.Insight `json:"risks"`
		Opportunities []models.Insight `json:"opportunities"`
	} `json:"foresight"`
	ReasoningLog []models.ReasoningStep `json:"reasoningLog"`
}

// parseResult decodes model output into a normalized result.
func parseResult(raw string) (*models.AnalysisResult, error) {
	var w wireResult
	if err := llm.DecodeJSONObject(raw, &w); err != nil {
		return nil, err
	}

	r := &models.AnalysisResult{
		Analysis:        w.Analysis,
		Recommendations: w.Recommendations,
		ReasoningLog:    w.ReasoningLog,
	}
	for _, ref := range w.References {
		if ref.Title != "" {
			r.References = append(r.References, models.Reference(ref))
		}
	}
	for _, p := range w.Foresight.Predictions {
		r.Foresight.Predictions = append(r.Foresight.Predictions, models.Prediction{
			Title:       p.Title,
			Description: p.Description,
			RiskScore:   int(p.RiskScore),
			Impact:      canonicalImpact(p.Impact),
			Timeframe:   p.Timeframe,
		})
	}
	r.Foresight.Risks = w.Foresight.Risks
	r.Foresight.Opportunities = w.Foresight.Opportunities
	r.Normalize()

	if len(r.Analysis) == 0 {
		return nil, errNoAnalysis
	}
	return r, nil
}

func canonicalImpact(s string) string {
	s = strings.TrimSpace(s)
	for _, v := range models.Impacts {
		if strings.EqualFold(v, s) {
			return v
		}
	}
	return s
}

type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*f = flexStrings{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*f = many
	return nil
}

type flexReference struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (f *flexReference) UnmarshalJSON(b []byte) error {
	var title string
	if err := json.Unmarshal(b, &title); err == nil {
		f.Title = title
		return nil
	}
	type plain flexReference
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*f = flexReference(p)
	return nil
}

type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}
