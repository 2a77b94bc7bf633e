// ABOUTME: Risk levels, classifier verdicts and security ledger events
// ABOUTME: Every classification decision becomes one SecurityEvent
package models

import "time"

// RiskLevel is the classifier's risk grade
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Rank orders risk levels so that a higher rank is riskier
func (r RiskLevel) Rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the known levels
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

const (
	RecommendApprove = "APPROVE"
	RecommendReview  = "REVIEW"
)

// Verdict is the outcome of classifying one piece of content
type Verdict struct {
	Accepted       bool      `json:"accepted"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Factors        []string  `json:"factors"`
	Recommendation string    `json:"recommendation"`
}

// SecurityEvent is one immutable security ledger row
type SecurityEvent struct {
	ID        int64     `json:"id" yaml:"id"`
	Action    string    `json:"action" yaml:"action"`
	RiskLevel RiskLevel `json:"risk_level" yaml:"risk_level"`
	Details   string    `json:"details" yaml:"details"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}
