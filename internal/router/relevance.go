package router

import (
	"strings"

	"apptrack/server/internal/ats"
)

// Check order is load-bearing: ATS senders are always relevant, then the
// exclude list runs before any keyword match so that promotional mail
// mentioning "software" is still suppressed.

var excludeKeywords = []string{
	"newsletter",
	"subscription",
	"receipt",
	"order",
	"purchase",
	"payment",
	"invoice",
	"promotion",
	"sale",
	"discount",
}

var strongIndicators = []string{
	"thank you for applying",
	"application received",
	"application confirmation",
	"thank you for your interest",
	"position of",
	"role of",
}

var jobKeywords = []string{
	"engineer",
	"developer",
	"software",
	"position",
	"application",
	"job",
	"career",
	"role",
	"applied",
}

// IsJobApplicationEmail is the relevance gate: the boolean decision of
// whether an email is plausibly job-application-related, made before any
// field extraction.
func IsJobApplicationEmail(sender, subject string) bool {
	if ats.FindProvider(sender) != nil {
		return true
	}

	loweredSubject := strings.ToLower(subject)
	loweredSender := strings.ToLower(sender)

	for _, word := range excludeKeywords {
		if strings.Contains(loweredSubject, word) {
			return false
		}
	}

	for _, phrase := range strongIndicators {
		if strings.Contains(loweredSubject, phrase) || strings.Contains(loweredSender, phrase) {
			return true
		}
	}

	for _, word := range jobKeywords {
		if strings.Contains(loweredSubject, word) {
			return true
		}
	}

	return false
}
