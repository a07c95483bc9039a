// Package heuristics implements the deterministic scam-risk scorer.
// Scoring is a pure function of the message text so the same input always
// produces the same assessment.
package heuristics

import (
	"regexp"
	"strings"

	"github.com/rdsxdev/misinfo-bot/internal/models"
)

// Fixed weights and classification thresholds.
const (
	keywordWeight   = 10
	urlWeight       = 20
	mediumThreshold = 15
	highThreshold   = 30
)

// scamKeywords are matched case-insensitively as substrings. Each keyword
// present in the text contributes keywordWeight once, no matter how often
// it repeats.
var scamKeywords = []string{
	"congratulations", "winner", "lottery", "prize", "urgent", "click here",
	"limited time", "act now", "free money", "bitcoin", "investment opportunity",
	"guaranteed profit", "make money fast", "work from home", "debt relief",
	"credit repair", "tax refund", "government grant", "stimulus check",
}

// suspiciousURLPattern matches links through known URL shorteners and
// throwaway TLDs. Every occurrence counts.
var suspiciousURLPattern = regexp.MustCompile(
	`(?i)https?://(?:bit\.ly|tinyurl\.com|t\.co|short\.link|[a-z0-9-]+\.tk|[a-z0-9-]+\.ml|cutt\.ly|is\.gd|rb\.gy|buff\.ly)`)

// Score assesses one message text. Empty text yields score 0, level low and
// no triggers.
func Score(text string) models.RiskAssessment {
	score := 0
	triggers := []string{}
	lower := strings.ToLower(text)

	var matched []string
	for _, kw := range scamKeywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	if len(matched) > 0 {
		score += len(matched) * keywordWeight
		triggers = append(triggers, "Scam keywords: "+strings.Join(matched, ", "))
	}

	urls := suspiciousURLPattern.FindAllString(lower, -1)
	if len(urls) > 0 {
		score += len(urls) * urlWeight
		triggers = append(triggers, "Suspicious URLs: "+strings.Join(urls, ", "))
	}

	return models.RiskAssessment{
		RiskLevel: classify(score),
		RiskScore: score,
		Triggers:  triggers,
	}
}

func classify(score int) string {
	switch {
	case score >= highThreshold:
		return models.RiskHigh
	case score >= mediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
