// Package patterns is the generic extraction fallback: ordered regex rules
// over subject/body, then ordered heuristic functions. Rule order encodes
// priority: structured patterns must stay ahead of generic ones.
package patterns

import (
	"regexp"
	"strings"

	"apptrack/server/internal/models"
	"apptrack/server/internal/textnorm"
)

type source int

const (
	fromSubject source = iota
	fromBody
)

type rule struct {
	pattern *regexp.Regexp
	source  source
}

var companyRules = []rule{
	{regexp.MustCompile(`(?i)thank you for applying to ([^.!,\n]+)`), fromSubject},
	{regexp.MustCompile(`(?i)(?:applying to|application for|application to) ([^.!,\n]+)`), fromSubject},
	{regexp.MustCompile(`(?i)application (?:at|with) ([^.!,\n]+)`), fromSubject},
	{regexp.MustCompile(`(?i)thank you for applying to ([^.!,\n]+)`), fromBody},
	{regexp.MustCompile(`(?i)your application (?:to|at|with) ([^.!,\n]+)`), fromBody},
	{regexp.MustCompile(`(?i)applying (?:to|for) ([^.!,\n]+)`), fromBody},
	{regexp.MustCompile(`(?i)(?:interest in joining|welcome to) ([^.!,\n]+)`), fromBody},
}

var positionRules = []rule{
	// Structured ATS annotations first, e.g. "application for the X (ID: 1234)".
	{regexp.MustCompile(`(?i)application for the ([^(\n]+?)\s*\((?:ID|Ref)`), fromBody},
	{regexp.MustCompile(`(?i)for the ([^.!,\n]+?)\s+(?:position|role)\b`), fromBody},
	{regexp.MustCompile(`(?i)(?:position|role) of ([^.!,\n]+)`), fromSubject},
	{regexp.MustCompile(`(?i)(?:position|role) of ([^.!,\n]+)`), fromBody},
	{regexp.MustCompile(`(?i)for the ([^.!,\n]+?)\s+(?:position|role)\b`), fromSubject},
}

var (
	senderDomainPattern = regexp.MustCompile(`@([A-Za-z0-9-]+)\.`)
	atCompanyPattern    = regexp.MustCompile(`\b(?:at|with|joining)\s+([A-Z][\w&.-]*(?:\s+[A-Z][\w&.-]*){0,3})`)
	titlePattern        = regexp.MustCompile(`(?i)\b((?:senior|staff|principal|lead|junior|associate)\s+)?((?:software|backend|back[- ]end|frontend|front[- ]end|full[- ]stack|fullstack|mobile|data|platform|devops|machine learning|ios|android|web)\s+)(engineer|developer|architect|scientist|analyst)\b`)
	rolePattern         = regexp.MustCompile(`(?i)\b(engineer|developer|architect|scientist|analyst|manager|designer|intern)\b`)
	idAnnotation        = regexp.MustCompile(`(?i)\s*\((?:ID|Ref|Req)[^)]*\)`)
	trailingParen       = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// freemailDomains never identify an employer.
var freemailDomains = map[string]struct{}{
	"gmail": {}, "yahoo": {}, "hotmail": {}, "outlook": {}, "icloud": {}, "proton": {},
}

var companyHeuristics = []func(models.RawEmail) string{
	senderDomainCompany,
	companyAfterAt,
}

var positionHeuristics = []func(models.RawEmail) string{
	titleKeywords,
}

// ExtractCompany tries the ordered company rules, then the heuristics; the
// first match wins. Unresolved when nothing matches.
func ExtractCompany(email models.RawEmail) models.Field {
	return extract(email, companyRules, companyHeuristics)
}

// ExtractPosition mirrors ExtractCompany for the position title.
func ExtractPosition(email models.RawEmail) models.Field {
	return extract(email, positionRules, positionHeuristics)
}

func extract(email models.RawEmail, rules []rule, heuristics []func(models.RawEmail) string) models.Field {
	for _, r := range rules {
		text := email.Subject
		if r.source == fromBody {
			text = email.Body
		}
		if m := r.pattern.FindStringSubmatch(text); len(m) > 1 {
			if v := textnorm.CleanupText(m[1]); v != "" {
				return models.Resolved(v)
			}
		}
	}
	for _, h := range heuristics {
		if v := textnorm.CleanupText(h(email)); v != "" {
			return models.Resolved(v)
		}
	}
	return models.Field{}
}

func senderDomainCompany(email models.RawEmail) string {
	m := senderDomainPattern.FindStringSubmatch(email.Sender)
	if len(m) < 2 {
		return ""
	}
	domain := strings.ToLower(m[1])
	if _, free := freemailDomains[domain]; free {
		return ""
	}
	return strings.ToUpper(domain[:1]) + domain[1:]
}

func companyAfterAt(email models.RawEmail) string {
	if m := atCompanyPattern.FindStringSubmatch(email.Subject); len(m) > 1 {
		return m[1]
	}
	if m := atCompanyPattern.FindStringSubmatch(textnorm.FirstSentence(email.Body)); len(m) > 1 {
		return m[1]
	}
	return ""
}

func titleKeywords(email models.RawEmail) string {
	for _, text := range []string{email.Subject, email.Body} {
		if m := titlePattern.FindStringSubmatch(text); m != nil {
			title := strings.TrimSpace(m[1] + m[2] + m[3])
			return titleCase(title)
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// CleanCompany is the final display cleanup for a resolved company string:
// entity decode, drop "... for the X" tails, drop trailing role suffixes,
// drop a leading "the".
func CleanCompany(value string) string {
	value = textnorm.CleanupText(value)

	if idx := strings.Index(strings.ToLower(value), " for the "); idx > 0 {
		value = value[:idx]
	}
	if idx := strings.LastIndex(value, " - "); idx > 0 {
		if rolePattern.MatchString(value[idx:]) {
			value = value[:idx]
		}
	}
	lowered := strings.ToLower(value)
	if strings.HasPrefix(lowered, "the ") {
		value = value[4:]
	}
	return strings.TrimSpace(strings.Trim(value, "-. "))
}

// CleanPosition strips ATS ID/parenthetical annotations and a leading "the".
func CleanPosition(value string) string {
	value = idAnnotation.ReplaceAllString(value, "")
	value = trailingParen.ReplaceAllString(value, "")
	value = textnorm.CleanupText(value)
	lowered := strings.ToLower(value)
	if strings.HasPrefix(lowered, "the ") {
		value = value[4:]
	}
	return strings.TrimSpace(strings.Trim(value, "-. "))
}

// legalSuffixes are stripped only for the comparison key, not for display.
var legalSuffixes = map[string]struct{}{
	"inc": {}, "llc": {}, "corp": {}, "ltd": {}, "incorporated": {},
	"corporation": {}, "limited": {}, "co": {}, "gmbh": {},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// CompanyKey builds the normalized de-duplication key for a company name.
// Over-aggressive normalization merges distinct companies, under-aggressive
// normalization duplicates records; this sits deliberately in the middle.
func CompanyKey(value string) string {
	words := strings.Fields(strings.ToLower(CleanCompany(value)))
	for len(words) > 1 {
		last := strings.Trim(words[len(words)-1], ".,")
		if _, ok := legalSuffixes[last]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	return nonAlnum.ReplaceAllString(strings.Join(words, " "), "")
}
