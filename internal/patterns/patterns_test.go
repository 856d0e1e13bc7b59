package patterns

import (
	"testing"

	"apptrack/server/internal/models"
)

func TestExtractCompany(t *testing.T) {
	tests := []struct {
		name  string
		email models.RawEmail
		want  string
		ok    bool
	}{
		{
			name: "thank you subject",
			email: models.RawEmail{
				Subject: "Thank you for applying to Hooli",
			},
			want: "Hooli",
			ok:   true,
		},
		{
			name: "application with subject",
			email: models.RawEmail{
				Subject: "Your application with Initech was received",
			},
			want: "Initech was received",
			ok:   true,
		},
		{
			name: "body applying for",
			email: models.RawEmail{
				Subject: "Application received",
				Body:    "Thanks for applying for a position at RandomStartup! We'll be in touch.",
			},
			want: "a position at RandomStartup",
			ok:   true,
		},
		{
			name: "sender domain heuristic",
			email: models.RawEmail{
				Subject: "We received your submission",
				Sender:  "careers@initech.com",
			},
			want: "Initech",
			ok:   true,
		},
		{
			name: "freemail sender is not a company",
			email: models.RawEmail{
				Subject: "hello",
				Sender:  "someone@gmail.com",
				Body:    "no companies here",
			},
		},
		{
			name: "capitalized words after at",
			email: models.RawEmail{
				Subject: "Interview invitation",
				Sender:  "someone@gmail.com",
				Body:    "We would like to interview you at Pied Piper next week.",
			},
			want: "Pied Piper",
			ok:   true,
		},
		{
			name:  "nothing extractable",
			email: models.RawEmail{Subject: "hi", Body: "nothing here"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCompany(tt.email)
			if got.OK != tt.ok {
				t.Fatalf("ExtractCompany() ok = %v, want %v (value %q)", got.OK, tt.ok, got.Value)
			}
			if got.OK && got.Value != tt.want {
				t.Errorf("ExtractCompany() = %q, want %q", got.Value, tt.want)
			}
		})
	}
}

func TestExtractPosition(t *testing.T) {
	tests := []struct {
		name  string
		email models.RawEmail
		want  string
		ok    bool
	}{
		{
			name: "structured annotation wins over generic rule",
			email: models.RawEmail{
				Body: "We received your application for the Backend Engineer (ID: 1234) role today.",
			},
			want: "Backend Engineer",
			ok:   true,
		},
		{
			name: "for the position",
			email: models.RawEmail{
				Body: "Thank you for your interest. You applied for the Backend Engineer position at Acme.",
			},
			want: "Backend Engineer",
			ok:   true,
		},
		{
			name: "role of in subject",
			email: models.RawEmail{
				Subject: "Your application for the role of Data Scientist",
			},
			want: "Data Scientist",
			ok:   true,
		},
		{
			name: "title keyword heuristic",
			email: models.RawEmail{
				Subject: "Next steps",
				Body:    "The senior platform engineer opening is still active.",
			},
			want: "Senior Platform Engineer",
			ok:   true,
		},
		{
			name:  "nothing extractable",
			email: models.RawEmail{Subject: "hello", Body: "see you there"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPosition(tt.email)
			if got.OK != tt.ok {
				t.Fatalf("ExtractPosition() ok = %v, want %v (value %q)", got.OK, tt.ok, got.Value)
			}
			if got.OK && got.Value != tt.want {
				t.Errorf("ExtractPosition() = %q, want %q", got.Value, tt.want)
			}
		})
	}
}

func TestCleanCompany(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "cuts for-the tail",
			input: "Acme Corp for the Backend Engineer position",
			want:  "Acme Corp",
		},
		{
			name:  "strips trailing role suffix",
			input: "Hooli - Senior Engineer",
			want:  "Hooli",
		},
		{
			name:  "strips leading the",
			input: "The Initech Corporation",
			want:  "Initech Corporation",
		},
		{
			name:  "decodes entities and punctuation",
			input: "Smith &amp; Jones!",
			want:  "Smith & Jones",
		},
		{
			name:  "plain name untouched",
			input: "Pied Piper",
			want:  "Pied Piper",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCompany(tt.input); got != tt.want {
				t.Errorf("CleanCompany(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanPosition(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips id annotation",
			input: "Backend Engineer (ID: 1234)",
			want:  "Backend Engineer",
		},
		{
			name:  "strips req annotation",
			input: "Data Scientist (Req #99)",
			want:  "Data Scientist",
		},
		{
			name:  "strips trailing parenthetical",
			input: "Platform Engineer (Remote)",
			want:  "Platform Engineer",
		},
		{
			name:  "strips leading the",
			input: "the Staff Engineer",
			want:  "Staff Engineer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanPosition(tt.input); got != tt.want {
				t.Errorf("CleanPosition(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompanyKey(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		same bool
	}{
		{
			name: "legal suffix ignored",
			a:    "Acme Corp",
			b:    "Acme",
			same: true,
		},
		{
			name: "case and punctuation ignored",
			a:    "ACME, Inc.",
			b:    "acme",
			same: true,
		},
		{
			name: "distinct companies stay distinct",
			a:    "Acme Labs",
			b:    "Acme",
			same: false,
		},
		{
			name: "suffix-only name is kept",
			a:    "Corp",
			b:    "",
			same: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keyA, keyB := CompanyKey(tt.a), CompanyKey(tt.b)
			if (keyA == keyB) != tt.same {
				t.Errorf("CompanyKey(%q)=%q, CompanyKey(%q)=%q, same=%v want %v",
					tt.a, keyA, tt.b, keyB, keyA == keyB, tt.same)
			}
		})
	}
}
