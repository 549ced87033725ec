package assistant

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/markdave123-py/Auditra/internal/models"
)

type route struct {
	topic    string
	keywords []string
	reply    func(jurisdiction string) string
}

// routes are checked in order; the first keyword hit wins. Keywords match whole words;
// a trailing "*" marks a stem that matches any word starting with it.
var routes = []route{
	{
		topic:    "tax",
		keywords: []string{"tax*", "deduct*", "irs", "hmrc", "vat", "refund*", "filing*", "credit", "credits"},
		reply: func(j string) string {
			return fmt.Sprintf("For %s tax questions, start by listing your income sources and the expenses you can document. "+
				"Common deductions include business expenses, retirement contributions and qualifying charitable gifts, "+
				"but each needs a receipt and a clear business or statutory purpose. Upload a return or ledger as a tax document "+
				"and I can point to specific items.", j)
		},
	},
	{
		topic:    "legal",
		keywords: []string{"legal*", "contract*", "agreement*", "clause*", "liabilit*", "lawsuit*", "terminat*", "complian*"},
		reply: func(j string) string {
			return fmt.Sprintf("Contract questions usually turn on the obligations, liability limits and termination terms. "+
				"Under %s law the governing-law clause decides which default rules apply where the contract is silent. "+
				"Upload the agreement as a legal document for a clause-by-clause review, and confirm anything you rely on with a qualified lawyer.", j)
		},
	},
	{
		topic:    "audit",
		keywords: []string{"audit*", "fraud*", "forensic*", "irregular*", "suspicious*", "reconcil*", "embezzl*"},
		reply: func(j string) string {
			return fmt.Sprintf("A forensic review looks for duplicate or round-sum payments, unusual vendors and weak approval controls. "+
				"Reconcile payments to bank statements first, then check who can create and approve transactions. "+
				"Upload the ledger or statements as a forensic document and I will flag entries that merit a closer look under %s reporting standards.", j)
		},
	},
}

// Fallback is the deterministic keyword-routed reply. It always returns content.
func Fallback(message, jurisdiction string) Reply {
	if strings.TrimSpace(jurisdiction) == "" {
		jurisdiction = models.DefaultJurisdiction
	}
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, r := range routes {
		for _, k := range r.keywords {
			if matchesAny(words, k) {
				return Reply{
					Content: r.reply(jurisdiction),
					ReasoningLog: []models.ReasoningStep{
						{Step: "Topic detection", Explanation: fmt.Sprintf("Matched %q, routing to %s guidance.", strings.TrimSuffix(k, "*"), r.topic)},
						{Step: "Jurisdiction", Explanation: fmt.Sprintf("Framed the answer for %s.", jurisdiction)},
					},
				}
			}
		}
	}
	return Reply{
		Content: "I can help with forensic accounting, tax planning and legal document review. " +
			"Ask about deductions, contract clauses or suspicious transactions, or upload a document for a full analysis.",
		ReasoningLog: []models.ReasoningStep{
			{Step: "Topic detection", Explanation: "No tax, legal or audit terms found, so a general overview was given."},
		},
	}
}

func matchesAny(words []string, keyword string) bool {
	stem, prefix := strings.CutSuffix(keyword, "*")
	for _, w := range words {
		if w == stem || (prefix && strings.HasPrefix(w, stem)) {
			return true
		}
	}
	return false
}
