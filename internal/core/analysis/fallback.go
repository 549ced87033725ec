package analysis

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/Auditra/internal/models"
)

// documentProfile is the deterministic summary of the text the templates reference.
type documentProfile struct {
	Words int
	Terms []string // category keywords present, in keyword order
}

func profileOf(text string, keywords []string) documentProfile {
	lower := strings.ToLower(text)
	p := documentProfile{Words: len(strings.Fields(text))}
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			p.Terms = append(p.Terms, k)
		}
	}
	return p
}

func (p documentProfile) paragraph(category models.Category) string {
	if p.Words == 0 {
		return fmt.Sprintf("The submitted %s document contained no extractable text, so this review is based on the category profile alone.", category)
	}
	if len(p.Terms) == 0 {
		return fmt.Sprintf("The submitted document contains %d words. None of the usual %s indicators were found in the text, which may mean it is a supporting record rather than a primary one.", p.Words, category)
	}
	return fmt.Sprintf("The submitted document contains %d words and references %s, which shaped the focus of this %s review.", p.Words, strings.Join(p.Terms, ", "), category)
}

type authority struct {
	Name string
	URL  string
}

// Regional authorities used by the templates; unknown regions get a generic entry.
var (
	taxAuthorities = map[string]authority{
		"US": {"Internal Revenue Service", "https://www.irs.gov"},
		"UK": {"HM Revenue & Customs", "https://www.gov.uk/government/organisations/hm-revenue-customs"},
		"GB": {"HM Revenue & Customs", "https://www.gov.uk/government/organisations/hm-revenue-customs"},
		"CA": {"Canada Revenue Agency", "https://www.canada.ca/en/revenue-agency.html"},
		"AU": {"Australian Taxation Office", "https://www.ato.gov.au"},
		"IN": {"Income Tax Department", "https://www.incometax.gov.in"},
		"NG": {"Federal Inland Revenue Service", "https://www.firs.gov.ng"},
	}
	regulators = map[string]authority{
		"US": {"Securities and Exchange Commission", "https://www.sec.gov"},
		"UK": {"Financial Conduct Authority", "https://www.fca.org.uk"},
		"GB": {"Financial Conduct Authority", "https://www.fca.org.uk"},
		"CA": {"Canadian Securities Administrators", "https://www.securities-administrators.ca"},
		"AU": {"Australian Securities and Investments Commission", "https://asic.gov.au"},
		"IN": {"Securities and Exchange Board of India", "https://www.sebi.gov.in"},
		"NG": {"Securities and Exchange Commission Nigeria", "https://sec.gov.ng"},
	}
)

func authorityFor(table map[string]authority, jurisdiction, generic string) authority {
	if a, ok := table[strings.ToUpper(jurisdiction)]; ok {
		return a
	}
	return authority{Name: fmt.Sprintf("%s (%s)", generic, jurisdiction)}
}

// Fallback returns the deterministic template result for a category. It never fails:
// an unsupported category yields an explanatory result.
func Fallback(text string, category models.Category, jurisdiction string) *models.AnalysisResult {
	s, ok := lookup(category)
	if !ok {
		return unsupportedResult(category)
	}
	return s.fallback(profileOf(text, s.keywords), normalizeJurisdiction(jurisdiction)).Normalize()
}

func unsupportedResult(category models.Category) *models.AnalysisResult {
	return (&models.AnalysisResult{
		Analysis: []string{fmt.Sprintf(
			"Analysis is not available for category %q. Supported categories are forensic, tax and legal.", category)},
		ReasoningLog: []models.ReasoningStep{
			{Step: "Category check", Explanation: fmt.Sprintf("%q did not match a supported analysis strategy.", category)},
		},
	}).Normalize()
}

func forensicFallback(p documentProfile, j string) *models.AnalysisResult {
	reg := authorityFor(regulators, j, "financial regulator")
	return &models.AnalysisResult{
		Analysis: []string{
			p.paragraph(models.CategoryForensic),
			fmt.Sprintf("Transactions were reviewed against common %s fraud typologies: duplicate payments, round-sum transfers, payments just below approval thresholds and vendors sharing bank details with employees.", j),
			"Segregation of duties could not be confirmed from the document alone. Where one person can create, approve and pay an invoice, the control environment should be treated as weak until evidence shows otherwise.",
			"No single entry proves misconduct. The pattern of entries, their timing around period ends and the quality of supporting evidence are what determine whether escalation is warranted.",
		},
		Recommendations: []string{
			"Reconcile the listed payments to bank statements and original invoices.",
			"Run a duplicate-payment check on vendor, amount and date within a 30-day window.",
			"Confirm that approvers are independent of the people requesting payment.",
			"Preserve the original files and access logs before any further inquiry.",
		},
		References: []models.Reference{
			{Title: "ACFE Fraud Examiners Manual", URL: "https://www.acfe.com"},
			{Title: reg.Name, URL: reg.URL},
		},
		Foresight: models.Foresight{
			Predictions: []models.Prediction{
				{Title: "Control findings at next audit", Description: "Unresolved approval gaps are likely to be raised as findings.", RiskScore: 65, Impact: "High", Timeframe: "Next audit cycle"},
				{Title: "Repeat irregular payments", Description: "Without a duplicate check, similar payments may recur.", RiskScore: 40, Impact: "Medium", Timeframe: "Next 2 quarters"},
			},
			Risks: []models.Insight{
				{Title: "Undetected misappropriation", Description: "Weak segregation of duties allows losses to go unnoticed."},
				{Title: "Evidence loss", Description: "Delayed preservation can compromise a later investigation."},
			},
			Opportunities: []models.Insight{
				{Title: "Automated payment analytics", Description: "Continuous duplicate and threshold testing reduces manual review effort."},
				{Title: "Vendor master clean-up", Description: "Removing dormant vendors narrows the fraud surface."},
			},
		},
		ReasoningLog: []models.ReasoningStep{
			{Step: "Document profile", Explanation: fmt.Sprintf("Counted %d words and %d forensic indicators.", p.Words, len(p.Terms))},
			{Step: "Typology screen", Explanation: "Compared content against standard payment fraud typologies."},
			{Step: "Control assessment", Explanation: "Assessed whether approval and payment duties appear separated."},
			{Step: "Jurisdiction", Explanation: fmt.Sprintf("Applied %s reporting expectations via %s.", j, reg.Name)},
		},
	}
}

func taxFallback(p documentProfile, j string) *models.AnalysisResult {
	auth := authorityFor(taxAuthorities, j, "national tax authority")
	return &models.AnalysisResult{
		Analysis: []string{
			p.paragraph(models.CategoryTax),
			fmt.Sprintf("Under %s rules, ordinary and necessary business expenses are generally deductible when they are documented and connected to taxable income. Personal or mixed-use items need apportionment.", j),
			"Income and expense classifications should be checked against the period in which they were earned or incurred. Timing errors are a frequent source of penalties and interest.",
			fmt.Sprintf("Credits and reliefs administered by the %s often carry strict eligibility and documentation conditions. Claims without supporting records are the first to be disallowed on review.", auth.Name),
		},
		Recommendations: []string{
			"Match each claimed deduction to a receipt or invoice and keep it for the statutory retention period.",
			"Separate personal and business use for vehicles, phones and home office costs.",
			"Review eligibility for available credits before the filing deadline.",
			fmt.Sprintf("Confirm upcoming filing and payment dates with the %s.", auth.Name),
		},
		References: []models.Reference{
			{Title: auth.Name, URL: auth.URL},
			{Title: "OECD Tax Database", URL: "https://www.oecd.org/tax/tax-policy/tax-database/"},
		},
		Foresight: models.Foresight{
			Predictions: []models.Prediction{
				{Title: "Deduction challenge on review", Description: "Undocumented deductions are likely to be questioned.", RiskScore: 55, Impact: "Medium", Timeframe: "Next filing season"},
				{Title: "Late filing penalty", Description: "Missed deadlines lead to fixed and interest penalties.", RiskScore: 30, Impact: "Medium", Timeframe: "Next quarter"},
			},
			Risks: []models.Insight{
				{Title: "Disallowed deductions", Description: "Claims without receipts can be reversed with interest."},
				{Title: "Misclassified income", Description: "Reporting income in the wrong period triggers adjustments."},
			},
			Opportunities: []models.Insight{
				{Title: "Unclaimed credits", Description: "Eligible credits are frequently missed by small filers."},
				{Title: "Timing of expenses", Description: "Bringing planned purchases forward can reduce this period's liability."},
			},
		},
		ReasoningLog: []models.ReasoningStep{
			{Step: "Document profile", Explanation: fmt.Sprintf("Counted %d words and %d tax indicators.", p.Words, len(p.Terms))},
			{Step: "Deductibility test", Explanation: "Applied the documented, business-connected expense test."},
			{Step: "Timing review", Explanation: "Checked for period allocation risks."},
			{Step: "Jurisdiction", Explanation: fmt.Sprintf("Referenced %s guidance for %s.", auth.Name, j)},
		},
	}
}

func legalFallback(p documentProfile, j string) *models.AnalysisResult {
	return &models.AnalysisResult{
		Analysis: []string{
			p.paragraph(models.CategoryLegal),
			fmt.Sprintf("The obligations of each party should be read together with the governing law clause. Where the agreement is silent, %s default rules will fill the gaps, and those may not favour you.", j),
			"Limitation of liability and indemnity clauses determine who bears loss when something goes wrong. Uncapped indemnities and carve-outs for gross negligence deserve particular attention.",
			"Termination and renewal terms set how long you are bound. Automatic renewals with short notice windows are a common source of unintended commitments.",
		},
		Recommendations: []string{
			"List every obligation with its deadline and the party responsible.",
			"Check whether liability is capped and whether the cap applies to indemnities.",
			"Diary the notice window for renewal or termination.",
			fmt.Sprintf("Have a lawyer qualified in %s review any clause you intend to rely on.", j),
		},
		References: []models.Reference{
			{Title: fmt.Sprintf("%s contract law primary sources", j)},
			{Title: "UNIDROIT Principles of International Commercial Contracts", URL: "https://www.unidroit.org"},
		},
		Foresight: models.Foresight{
			Predictions: []models.Prediction{
				{Title: "Unintended renewal", Description: "Auto-renewal clauses may extend the term without action.", RiskScore: 45, Impact: "Medium", Timeframe: "Before the next renewal date"},
				{Title: "Liability dispute", Description: "Ambiguous indemnities tend to surface when a claim is made.", RiskScore: 35, Impact: "High", Timeframe: "Within 12 months"},
			},
			Risks: []models.Insight{
				{Title: "Uncapped exposure", Description: "Indemnities outside the liability cap can exceed the contract value."},
				{Title: "Compliance gaps", Description: "Data protection and confidentiality duties may be stricter than drafted."},
			},
			Opportunities: []models.Insight{
				{Title: "Renegotiation leverage", Description: "Upcoming renewal is a chance to rebalance risk allocation."},
				{Title: "Standard terms", Description: "A reviewed template reduces legal cost on future agreements."},
			},
		},
		ReasoningLog: []models.ReasoningStep{
			{Step: "Document profile", Explanation: fmt.Sprintf("Counted %d words and %d legal indicators.", p.Words, len(p.Terms))},
			{Step: "Obligation mapping", Explanation: "Identified duties, deadlines and responsible parties."},
			{Step: "Risk allocation", Explanation: "Reviewed liability caps, indemnities and termination rights."},
			{Step: "Jurisdiction", Explanation: fmt.Sprintf("Considered %s default contract rules.", j)},
		},
	}
}

func normalizeJurisdiction(j string) string {
	j = strings.TrimSpace(j)
	if j == "" {
		return models.DefaultJurisdiction
	}
	return j
}
