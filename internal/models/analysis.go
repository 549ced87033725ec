package models

// AnalysisResult is the structured artifact produced for a completed document.
// Every list is non-nil after Normalize so consumers never branch on absent fields.
type AnalysisResult struct {
	Analysis        []string        `json:"analysis"`
	Recommendations []string        `json:"recommendations"`
	References      []Reference     `json:"references"`
	Foresight       Foresight       `json:"foresight"`
	ReasoningLog    []ReasoningStep `json:"reasoningLog"`
}

type Reference struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Foresight is the predictive block of an analysis.
type Foresight struct {
	Predictions   []Prediction `json:"predictions"`
	Risks         []Insight    `json:"risks"`
	Opportunities []Insight    `json:"opportunities"`
}

// Prediction values are templated or model-produced, never computed here.
// RiskScore is a percentage in [1,100]; Impact is one of Impacts.
type Prediction struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	RiskScore   int    `json:"riskScore"`
	Impact      string `json:"impact"`
	Timeframe   string `json:"timeframe"`
}

type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ReasoningStep is one entry of a reasoning log.
type ReasoningStep struct {
	Step        string `json:"step"`
	Explanation string `json:"explanation"`
}

// Impacts is the ordinal impact scale.
var Impacts = []string{"Low", "Medium", "High", "Critical"}

// Normalize replaces absent lists with empty ones and clamps prediction fields
// into their allowed ranges.
func (r *AnalysisResult) Normalize() *AnalysisResult {
	if r == nil {
		r = &AnalysisResult{}
	}
	r.Analysis = nonEmptyStrings(r.Analysis)
	r.Recommendations = nonEmptyStrings(r.Recommendations)
	if r.References == nil {
		r.References = []Reference{}
	}
	if r.ReasoningLog == nil {
		r.ReasoningLog = []ReasoningStep{}
	}
	if r.Foresight.Predictions == nil {
		r.Foresight.Predictions = []Prediction{}
	}
	if r.Foresight.Risks == nil {
		r.Foresight.Risks = []Insight{}
	}
	if r.Foresight.Opportunities == nil {
		r.Foresight.Opportunities = []Insight{}
	}
	for i := range r.Foresight.Predictions {
		p := &r.Foresight.Predictions[i]
		if p.RiskScore < 1 {
			p.RiskScore = 1
		}
		if p.RiskScore > 100 {
			p.RiskScore = 100
		}
		if !validImpact(p.Impact) {
			p.Impact = "Medium"
		}
	}
	return r
}

func nonEmptyStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func validImpact(s string) bool {
	for _, v := range Impacts {
		if v == s {
			return true
		}
	}
	return false
}
