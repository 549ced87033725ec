package models

import (
	"fmt"
	"strings"
)

// Category is the fixed classification that selects an analysis strategy.
type Category string

const (
	CategoryForensic Category = "forensic"
	CategoryTax      Category = "tax"
	CategoryLegal    Category = "legal"
)

// Categories lists every supported category in display order.
var Categories = []Category{CategoryForensic, CategoryTax, CategoryLegal}

// ParseCategory accepts only the three supported values (case-insensitive, trimmed).
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", WrapError(ErrInvalidInput, "parse category", fmt.Errorf("unsupported category %q", s))
}

func (c Category) Valid() bool {
	switch c {
	case CategoryForensic, CategoryTax, CategoryLegal:
		return true
	}
	return false
}

// AnalysisActivity is the activity type recorded for runs of this category.
func (c Category) AnalysisActivity() ActivityType {
	switch c {
	case CategoryForensic:
		return ActivityForensicAnalysis
	case CategoryTax:
		return ActivityTaxAnalysis
	case CategoryLegal:
		return ActivityLegalAnalysis
	}
	return ActivityUpload
}

// Title is the human label used in activity text.
func (c Category) Title() string {
	switch c {
	case CategoryForensic:
		return "Forensic"
	case CategoryTax:
		return "Tax"
	case CategoryLegal:
		return "Legal"
	}
	return string(c)
}

// DocumentStatus is the analysis state of a document.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo enforces pending -> processing -> {completed|failed}.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// ActivityType classifies an audit entry.
type ActivityType string

const (
	ActivityUpload           ActivityType = "upload"
	ActivityForensicAnalysis ActivityType = "forensic_analysis"
	ActivityTaxAnalysis      ActivityType = "tax_analysis"
	ActivityLegalAnalysis    ActivityType = "legal_analysis"
	ActivityChat             ActivityType = "chat"
	ActivityForesight        ActivityType = "foresight"
	ActivityLogin            ActivityType = "login"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)
