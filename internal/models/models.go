package models

import (
	"encoding/json"
	"time"
)

// Sentinel values substituted when extraction fails. They are placeholders by
// convention, not by type: downstream code (training, review UI) must compare
// against them explicitly.
const (
	UnknownCompany  = "Unknown Company"
	DefaultPosition = "Software Engineer"
)

// RawEmail is a single fetched mailbox message. The body is plain text,
// already reassembled from any multipart structure and transport decoding.
type RawEmail struct {
	MessageID    string    `json:"message_id"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	Sender       string    `json:"sender"`
	ReceivedDate time.Time `json:"received_date"`
}

func (e RawEmail) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *RawEmail) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// ProcessingStatus tracks the parse lifecycle of a corpus entry.
type ProcessingStatus string

const (
	StatusPending ProcessingStatus = "pending"
	StatusSuccess ProcessingStatus = "success"
	StatusFailed  ProcessingStatus = "failed"
)

// LabeledEmail is a training-corpus entry. MessageID is unique per owner;
// inserting a duplicate is a skip, not an overwrite. Company/Position are
// labels (human-confirmed when Verified), ParsedCompany/ParsedPosition hold
// the latest pipeline output.
type LabeledEmail struct {
	Owner              string           `json:"owner"`
	MessageID          string           `json:"message_id"`
	Subject            string           `json:"subject"`
	Body               string           `json:"body"`
	Sender             string           `json:"sender"`
	ReceivedDate       time.Time        `json:"received_date"`
	IsApplicationEmail bool             `json:"is_application_email"`
	Company            string           `json:"company,omitempty"`
	Position           string           `json:"position,omitempty"`
	Verified           bool             `json:"verified"`
	ParsedCompany      string           `json:"parsed_company,omitempty"`
	ParsedPosition     string           `json:"parsed_position,omitempty"`
	ProcessingStatus   ProcessingStatus `json:"processing_status"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// CompanyLabel returns the best available company label: the confirmed one if
// present, otherwise the derived one.
func (e *LabeledEmail) CompanyLabel() string {
	if e.Company != "" {
		return e.Company
	}
	return e.ParsedCompany
}

func (e *LabeledEmail) PositionLabel() string {
	if e.Position != "" {
		return e.Position
	}
	return e.ParsedPosition
}

// ParsedJob is the pipeline output for one relevant email. It is consumed by
// the upsert step and never persisted directly.
type ParsedJob struct {
	Company         string    `json:"company"`
	Position        string    `json:"position"`
	AppliedDate     time.Time `json:"applied_date"`
	Status          string    `json:"status"`
	Confidence      float64   `json:"confidence"`
	SourceMessageID string    `json:"source_message_id"`
}

// ApplicationRecord is a tracked job application.
type ApplicationRecord struct {
	ID              string    `json:"id"`
	Owner           string    `json:"owner"`
	Company         string    `json:"company"`
	Position        string    `json:"position"`
	AppliedDate     time.Time `json:"applied_date"`
	Status          string    `json:"status"`
	SourceMessageID string    `json:"source_message_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EmailAttachment links a processed email to an application's history.
type EmailAttachment struct {
	Owner         string    `json:"owner"`
	ApplicationID string    `json:"application_id"`
	MessageID     string    `json:"message_id"`
	Subject       string    `json:"subject"`
	Sender        string    `json:"sender"`
	Date          time.Time `json:"date"`
	Body          string    `json:"body"`
	IsFollowUp    bool      `json:"is_follow_up"`
}

// Field is a tagged extraction result. It distinguishes "nothing extracted"
// from a genuine empty or sentinel-looking value; sentinel strings are applied
// only at the final external-facing boundary.
type Field struct {
	Value string
	OK    bool
}

// Resolved wraps a non-empty extracted value. An empty string resolves to an
// unresolved Field.
func Resolved(value string) Field {
	if value == "" {
		return Field{}
	}
	return Field{Value: value, OK: true}
}

// Or returns f if resolved, otherwise other.
func (f Field) Or(other Field) Field {
	if f.OK {
		return f
	}
	return other
}

// OrDefault returns the value if resolved, otherwise the fallback.
func (f Field) OrDefault(fallback string) string {
	if f.OK {
		return f.Value
	}
	return fallback
}
