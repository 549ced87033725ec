package analysis

import (
	"github.com/markdave123-py/Auditra/internal/models"
)

// strategy is the per-category content handler. Categories resolve to a strategy once,
// at the top of Generate; nothing below switches on the category string.
type strategy struct {
	category models.Category
	role     string
	focus    string
	keywords []string
	fallback func(profile documentProfile, jurisdiction string) *models.AnalysisResult
	insight  func(jurisdiction string, r *models.AnalysisResult) models.ActivityDetails
}

var strategies = map[models.Category]strategy{
	models.CategoryForensic: {
		category: models.CategoryForensic,
		role:     "forensic accountant",
		focus:    "irregular transactions, duplicate or round-sum payments, related-party dealings, control weaknesses and indicators of fraud",
		keywords: []string{"invoice", "payment", "transfer", "vendor", "cash", "refund", "adjustment", "approval"},
		fallback: forensicFallback,
		insight:  forensicInsight,
	},
	models.CategoryTax: {
		category: models.CategoryTax,
		role:     "tax advisor",
		focus:    "deductions, credits, filing obligations, exposure to penalties and planning opportunities",
		keywords: []string{"income", "deduction", "expense", "credit", "depreciation", "vat", "withholding", "return"},
		fallback: taxFallback,
		insight:  taxInsight,
	},
	models.CategoryLegal: {
		category: models.CategoryLegal,
		role:     "legal analyst",
		focus:    "obligations, liabilities, termination and renewal terms, indemnities, governing law and compliance gaps",
		keywords: []string{"agreement", "party", "liability", "terminate", "indemnify", "warranty", "governing law", "confidential"},
		fallback: legalFallback,
		insight:  legalInsight,
	},
}

func lookup(c models.Category) (strategy, bool) {
	s, ok := strategies[c]
	return s, ok
}
