// Package ats holds the registry of known applicant-tracking-system senders
// and their provider-specific extraction rules.
package ats

import (
	"regexp"
	"strings"

	"apptrack/server/internal/models"
)

// Provider is a static extraction rule set for one ATS. Extractors return ""
// when they cannot produce a value; the caller falls through to the generic
// pattern extractor for that field only.
type Provider struct {
	Name            string
	SenderDomains   []string
	ExtractCompany  func(email models.RawEmail) string
	ExtractPosition func(email models.RawEmail) string
}

var (
	greenhouseCompanyPattern = regexp.MustCompile(`(?i)applying (?:to|for) ([^.!,\n]+)`)
	workdayCompanyPattern    = regexp.MustCompile(`(?i)Application (?:at|with) ([^.!,\n]+)`)
	leverCompanyPattern      = regexp.MustCompile(`(?i)thank you for applying to ([^.!,\n]+)`)
	leverPositionPattern     = regexp.MustCompile(`(?i)application for the ([^.!,\n(]+?)(?:\s*\(|\s+at\s|$)`)
	smartCompanyPattern      = regexp.MustCompile(`(?i)your application to ([^.!,\n]+)`)
)

// providers is an ordered list: registration order is the tie-break when a
// sender happens to match more than one entry. Do not reorder.
var providers = []Provider{
	{
		Name:            "LinkedIn",
		SenderDomains:   []string{"linkedin.com"},
		ExtractCompany:  linkedInCompany,
		ExtractPosition: linkedInPosition,
	},
	{
		Name:          "Greenhouse",
		SenderDomains: []string{"greenhouse-mail.io", "greenhouse.io"},
		ExtractCompany: func(email models.RawEmail) string {
			return firstGroup(greenhouseCompanyPattern, email.Body)
		},
	},
	{
		Name:          "Workday",
		SenderDomains: []string{"myworkday.com", "workday.com"},
		ExtractCompany: func(email models.RawEmail) string {
			return firstGroup(workdayCompanyPattern, email.Subject)
		},
	},
	{
		Name:          "Lever",
		SenderDomains: []string{"hire.lever.co", "lever.co"},
		ExtractCompany: func(email models.RawEmail) string {
			return firstGroup(leverCompanyPattern, email.Subject)
		},
		ExtractPosition: func(email models.RawEmail) string {
			return firstGroup(leverPositionPattern, email.Body)
		},
	},
	{
		Name:          "SmartRecruiters",
		SenderDomains: []string{"smartrecruiters.com"},
		ExtractCompany: func(email models.RawEmail) string {
			return firstGroup(smartCompanyPattern, email.Body)
		},
	},
}

// FindProvider returns the first registered provider whose domain substring
// appears in the sender address, or nil. Substring containment is a
// deliberate simplification over full RFC 5322 parsing.
func FindProvider(sender string) *Provider {
	lowered := strings.ToLower(sender)
	for i := range providers {
		for _, domain := range providers[i].SenderDomains {
			if strings.Contains(lowered, domain) {
				return &providers[i]
			}
		}
	}
	return nil
}

// Company runs the provider's company extractor, if any.
func (p *Provider) Company(email models.RawEmail) models.Field {
	if p.ExtractCompany == nil {
		return models.Field{}
	}
	return models.Resolved(strings.TrimSpace(p.ExtractCompany(email)))
}

// Position runs the provider's position extractor, if any.
func (p *Provider) Position(email models.RawEmail) models.Field {
	if p.ExtractPosition == nil {
		return models.Field{}
	}
	return models.Resolved(strings.TrimSpace(p.ExtractPosition(email)))
}

func firstGroup(pattern *regexp.Regexp, text string) string {
	if m := pattern.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// LinkedIn confirmation bodies carry the position and company as the first
// two content lines, above the tracking links.
func linkedInLines(email models.RawEmail) []string {
	var lines []string
	for _, line := range strings.Split(email.Body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "View job:") || strings.Contains(line, "http") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func linkedInPosition(email models.RawEmail) string {
	if lines := linkedInLines(email); len(lines) >= 2 {
		return lines[0]
	}
	return ""
}

func linkedInCompany(email models.RawEmail) string {
	if lines := linkedInLines(email); len(lines) >= 2 {
		return lines[1]
	}
	return ""
}
