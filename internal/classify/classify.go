// Package classify sorts scenario text into the categories the evaluator
// branches on. Matching strategy lives here so policy code never inspects
// raw scenario text.
package classify

import (
	"strings"

	"github.com/Bateristico/agent-architect/internal/models"
)

// Category is the special-case class of a high-difficulty scenario.
type Category string

const (
	CategoryGeneric   Category = "generic"
	CategorySensitive Category = "sensitive"
	CategorySecurity  Category = "security"
)

// Classification is everything the evaluator needs to know about a scenario's text.
type Classification struct {
	// DataAccess is true when the input asks for account, balance, order or
	// transaction data that only a tool can fetch.
	DataAccess bool
	Category   Category
}

// Classifier inspects a scenario and reports its classification.
type Classifier interface {
	Classify(sc models.Scenario) Classification
}

var dataAccessKeywords = []string{
	"account",
	"balance",
	"order",
	"transaction",
}

var sensitiveKeywords = []string{
	"competitor",
	"compare",
	"versus",
	" vs ",
	"better than",
	"secret",
	"password",
	"confidential",
	"internal",
}

var securityKeywords = []string{
	"locked",
	"lockout",
	"security",
	"breach",
	"hacked",
	"suspicious",
}

// KeywordClassifier classifies by case-insensitive substring match on the scenario input.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(sc models.Scenario) Classification {
	return Classification{
		DataAccess: containsAny(sc.Input, dataAccessKeywords),
		Category:   categoryOf(sc.Input),
	}
}

// categoryOf checks sensitive before security, so a request that is both
// (e.g. "share the internal security report") is treated as sensitive.
func categoryOf(text string) Category {
	switch {
	case containsAny(text, sensitiveKeywords):
		return CategorySensitive
	case containsAny(text, securityKeywords):
		return CategorySecurity
	default:
		return CategoryGeneric
	}
}

func containsAny(text string, patterns []string) bool {
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Tags understood by TagClassifier.
const (
	TagDataAccess = "data-access"
	TagSensitive  = "sensitive"
	TagSecurity   = "security"
)

// TagClassifier classifies from explicit scenario tags. Scenarios without tags
// fall back to Fallback (KeywordClassifier when nil).
type TagClassifier struct {
	Fallback Classifier
}

func (tc TagClassifier) Classify(sc models.Scenario) Classification {
	if len(sc.Tags) == 0 {
		fb := tc.Fallback
		if fb == nil {
			fb = KeywordClassifier{}
		}
		return fb.Classify(sc)
	}

	c := Classification{Category: CategoryGeneric}
	for _, tag := range sc.Tags {
		switch strings.ToLower(strings.TrimSpace(tag)) {
		case TagDataAccess:
			c.DataAccess = true
		case TagSensitive:
			c.Category = CategorySensitive
		case TagSecurity:
			if c.Category != CategorySensitive {
				c.Category = CategorySecurity
			}
		}
	}
	return c
}
