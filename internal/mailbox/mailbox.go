// Package mailbox is the email-source collaborator: the pipeline asks it
// for candidate messages and never touches IMAP directly, so tests can
// substitute a fixture-backed client.
package mailbox

import (
	"context"
	"time"

	"apptrack/server/internal/models"
)

// Query bounds one mailbox sweep. Keywords narrow the server-side search
// to subjects containing any of them; an empty list fetches everything
// since the cutoff.
type Query struct {
	Since    time.Time
	Keywords []string
	Limit    int
}

type Client interface {
	// Fetch returns candidate messages newest-first, up to Query.Limit.
	// A rejected login surfaces as an AUTH_REQUIRED domain error.
	Fetch(ctx context.Context, query Query) ([]models.RawEmail, error)
}
