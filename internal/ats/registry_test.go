package ats

import (
	"testing"

	"apptrack/server/internal/models"
)

func TestFindProvider(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		want   string
	}{
		{
			name:   "greenhouse mail domain",
			sender: "no-reply@us.greenhouse-mail.io",
			want:   "Greenhouse",
		},
		{
			name:   "workday subdomain",
			sender: "acme@myworkday.com",
			want:   "Workday",
		},
		{
			name:   "linkedin",
			sender: "jobs-noreply@linkedin.com",
			want:   "LinkedIn",
		},
		{
			name:   "case insensitive",
			sender: "No-Reply@GREENHOUSE.IO",
			want:   "Greenhouse",
		},
		{
			name:   "lever",
			sender: "no-reply@hire.lever.co",
			want:   "Lever",
		},
		{
			name:   "unknown sender",
			sender: "recruiter@example.com",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := FindProvider(tt.sender)
			if tt.want == "" {
				if provider != nil {
					t.Errorf("FindProvider(%q) = %q, want nil", tt.sender, provider.Name)
				}
				return
			}
			if provider == nil {
				t.Fatalf("FindProvider(%q) = nil, want %q", tt.sender, tt.want)
			}
			if provider.Name != tt.want {
				t.Errorf("FindProvider(%q) = %q, want %q", tt.sender, provider.Name, tt.want)
			}
		})
	}
}

func TestGreenhouseCompanyExtraction(t *testing.T) {
	email := models.RawEmail{
		Sender:  "no-reply@greenhouse-mail.io",
		Subject: "Thank you for your application",
		Body:    "Thank you for applying to Acme Corp. We will review your application.",
	}

	provider := FindProvider(email.Sender)
	if provider == nil {
		t.Fatal("expected greenhouse provider")
	}

	company := provider.Company(email)
	if !company.OK || company.Value != "Acme Corp" {
		t.Errorf("Company() = %+v, want Acme Corp", company)
	}
	if position := provider.Position(email); position.OK {
		t.Errorf("Position() = %+v, want unresolved", position)
	}
}

func TestWorkdayCompanyFromSubject(t *testing.T) {
	email := models.RawEmail{
		Sender:  "talent@acme.myworkday.com",
		Subject: "Your Application at Initech",
		Body:    "We have received your submission.",
	}

	provider := FindProvider(email.Sender)
	if provider == nil || provider.Name != "Workday" {
		t.Fatal("expected workday provider")
	}

	company := provider.Company(email)
	if !company.OK || company.Value != "Initech" {
		t.Errorf("Company() = %+v, want Initech", company)
	}
}

func TestLinkedInFirstTwoLines(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantCompany  string
		wantPosition string
	}{
		{
			name:         "position then company",
			body:         "Senior Backend Engineer\nHooli\nView job: https://linkedin.com/jobs/123\n",
			wantCompany:  "Hooli",
			wantPosition: "Senior Backend Engineer",
		},
		{
			name:         "skips links and blanks",
			body:         "\nhttps://tracking.linkedin.com/x\nStaff Engineer\n\nPied Piper\n",
			wantCompany:  "Pied Piper",
			wantPosition: "Staff Engineer",
		},
		{
			name: "single content line yields nothing",
			body: "Staff Engineer\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := models.RawEmail{
				Sender: "jobs-noreply@linkedin.com",
				Body:   tt.body,
			}
			provider := FindProvider(email.Sender)
			if provider == nil {
				t.Fatal("expected linkedin provider")
			}

			company := provider.Company(email)
			position := provider.Position(email)

			if tt.wantCompany == "" {
				if company.OK || position.OK {
					t.Errorf("expected unresolved fields, got company=%+v position=%+v", company, position)
				}
				return
			}
			if company.Value != tt.wantCompany {
				t.Errorf("company = %q, want %q", company.Value, tt.wantCompany)
			}
			if position.Value != tt.wantPosition {
				t.Errorf("position = %q, want %q", position.Value, tt.wantPosition)
			}
		})
	}
}

func TestLeverPositionExtraction(t *testing.T) {
	email := models.RawEmail{
		Sender:  "no-reply@hire.lever.co",
		Subject: "Thank you for applying to Umbrella Corp",
		Body:    "We received your application for the Platform Engineer (ID: ENG-42) opening.",
	}

	provider := FindProvider(email.Sender)
	if provider == nil || provider.Name != "Lever" {
		t.Fatal("expected lever provider")
	}

	if company := provider.Company(email); company.Value != "Umbrella Corp" {
		t.Errorf("company = %q, want Umbrella Corp", company.Value)
	}
	if position := provider.Position(email); position.Value != "Platform Engineer" {
		t.Errorf("position = %q, want Platform Engineer", position.Value)
	}
}
