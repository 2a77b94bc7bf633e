// ABOUTME: Content classifier that grades incoming content by risk
// ABOUTME: Case-insensitive substring scan over a fixed forbidden-term table plus a file size rule
package classifier

import (
	"fmt"
	"strings"

	"github.com/sisyph/mcoder/internal/models"
)

const (
	KindText = "text"
	KindFile = "file"
	KindCode = "code"
)

// DefaultPatterns is the built-in forbidden-term table
var DefaultPatterns = []string{
	"hack",
	"exploit",
	"virus",
	"malware",
	"backdoor",
	"keylogger",
	"password cracker",
	"ddos",
	"sql injection",
	"xss",
}

// Classifier grades content. Implementations must be pure and deterministic.
type Classifier interface {
	Classify(content, kind string) models.Verdict
}

// PatternClassifier is the substring-scan classifier
type PatternClassifier struct {
	patterns []string
	maxSize  int64
}

// New returns a classifier over DefaultPatterns with the standard file ceiling
func New() *PatternClassifier {
	return NewWithPatterns(DefaultPatterns, models.MaxFileSize)
}

// NewWithPatterns returns a classifier over a custom table. Patterns are lowercased once.
func NewWithPatterns(patterns []string, maxSize int64) *PatternClassifier {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		lowered = append(lowered, p)
	}
	return &PatternClassifier{patterns: lowered, maxSize: maxSize}
}

// Classify scans content against the pattern table. HIGH is sticky within a call;
// the size rule only raises to MEDIUM.
func (c *PatternClassifier) Classify(content, kind string) models.Verdict {
	level := models.RiskLow
	factors := []string{}

	lower := strings.ToLower(content)
	for _, pattern := range c.patterns {
		if strings.Contains(lower, pattern) {
			factors = append(factors, fmt.Sprintf("dangerous pattern detected: %s", pattern))
			level = models.RiskHigh
		}
	}

	if kind == KindFile && int64(len(content)) > c.maxSize {
		factors = append(factors, fmt.Sprintf("file exceeds %dMB limit", c.maxSize/(1024*1024)))
		level = raise(level, models.RiskMedium)
	}

	verdict := models.Verdict{
		Accepted:       level == models.RiskLow,
		RiskLevel:      level,
		Factors:        factors,
		Recommendation: models.RecommendReview,
	}
	if verdict.Accepted {
		verdict.Recommendation = models.RecommendApprove
	}
	return verdict
}

// Patterns returns a copy of the active pattern table
func (c *PatternClassifier) Patterns() []string {
	return append([]string(nil), c.patterns...)
}

func raise(current, to models.RiskLevel) models.RiskLevel {
	if to.Rank() > current.Rank() {
		return to
	}
	return current
}

// Describe renders a verdict as ledger details
func Describe(kind string, v models.Verdict) string {
	if len(v.Factors) == 0 {
		return fmt.Sprintf("content type: %s, risk factors: none", kind)
	}
	return fmt.Sprintf("content type: %s, risk factors: %s", kind, strings.Join(v.Factors, "; "))
}
