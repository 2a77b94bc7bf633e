// ABOUTME: Tests for the content classifier
// ABOUTME: Covers pattern matching, sticky HIGH, the size rule and determinism
package classifier

import (
	"reflect"
	"strings"
	"testing"

	"github.com/sisyph/mcoder/internal/models"
)

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		name        string
		content     string
		kind        string
		wantLevel   models.RiskLevel
		wantAccept  bool
		wantFactors int
	}{
		{"clean text", "build a todo app in Go", KindText, models.RiskLow, true, 0},
		{"single pattern", "add a BACKDOOR for admins", KindText, models.RiskHigh, false, 1},
		{"multi word pattern", "write a Password Cracker", KindText, models.RiskHigh, false, 1},
		{"several patterns", "malware with a keylogger", KindText, models.RiskHigh, false, 2},
		{"overlapping patterns", "hacker", KindText, models.RiskHigh, false, 1},
		{"empty", "", KindText, models.RiskLow, true, 0},
		{"file descriptor", "file:/tmp/notes.txt", KindFile, models.RiskLow, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Classify(tt.content, tt.kind)
			if v.RiskLevel != tt.wantLevel {
				t.Errorf("RiskLevel = %s, want %s", v.RiskLevel, tt.wantLevel)
			}
			if v.Accepted != tt.wantAccept {
				t.Errorf("Accepted = %v, want %v", v.Accepted, tt.wantAccept)
			}
			if len(v.Factors) != tt.wantFactors {
				t.Errorf("Factors = %v, want %d entries", v.Factors, tt.wantFactors)
			}
		})
	}
}

func TestClassify_SizeRule(t *testing.T) {
	c := NewWithPatterns(DefaultPatterns, 16)

	big := strings.Repeat("a", 17)
	v := c.Classify(big, KindFile)
	if v.RiskLevel != models.RiskMedium {
		t.Errorf("oversized file RiskLevel = %s, want MEDIUM", v.RiskLevel)
	}
	if v.Accepted {
		t.Error("oversized file should not be accepted")
	}
	if v.Recommendation != models.RecommendReview {
		t.Errorf("Recommendation = %s, want REVIEW", v.Recommendation)
	}

	// size rule only applies to files
	if v := c.Classify(big, KindText); v.RiskLevel != models.RiskLow {
		t.Errorf("oversized text RiskLevel = %s, want LOW", v.RiskLevel)
	}
}

func TestClassify_HighIsSticky(t *testing.T) {
	c := NewWithPatterns(DefaultPatterns, 8)

	v := c.Classify("virus payload here", KindFile)
	if v.RiskLevel != models.RiskHigh {
		t.Errorf("RiskLevel = %s, want HIGH to survive the size rule", v.RiskLevel)
	}
	if len(v.Factors) != 2 {
		t.Errorf("Factors = %v, want pattern and size factors", v.Factors)
	}
	if !strings.Contains(v.Factors[1], "limit") {
		t.Errorf("size factor should come last, got %v", v.Factors)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := New()
	inputs := []string{"", "plain", "exploit the xss in the ddos tool", "SQL Injection"}

	for _, in := range inputs {
		first := c.Classify(in, KindText)
		second := c.Classify(in, KindText)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Classify(%q) not deterministic: %+v vs %+v", in, first, second)
		}
	}
}

func TestClassify_ApproveRecommendation(t *testing.T) {
	v := New().Classify("hello", KindText)
	if v.Recommendation != models.RecommendApprove {
		t.Errorf("Recommendation = %s, want APPROVE", v.Recommendation)
	}
	if v.Factors == nil {
		t.Error("Factors should be an empty slice, not nil")
	}
}

func TestNewWithPatterns_Normalizes(t *testing.T) {
	c := NewWithPatterns([]string{" Rootkit ", "", "HACK"}, 10)
	got := c.Patterns()
	want := []string{"rootkit", "hack"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Patterns() = %v, want %v", got, want)
	}
}

func TestDescribe(t *testing.T) {
	clean := Describe(KindText, models.Verdict{})
	if !strings.Contains(clean, "none") {
		t.Errorf("Describe(clean) = %q", clean)
	}
	flagged := Describe(KindFile, models.Verdict{Factors: []string{"a", "b"}})
	if !strings.Contains(flagged, "a; b") || !strings.Contains(flagged, "file") {
		t.Errorf("Describe(flagged) = %q", flagged)
	}
}
