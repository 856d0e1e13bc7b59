package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"apptrack/server/internal/cache"
	"apptrack/server/internal/errors"
	"apptrack/server/internal/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
)

type IMAPOptions struct {
	Addr     string
	Username string
	Password string
	Folder   string
	CacheTTL time.Duration
}

// imapClient dials per Fetch call. Mailbox sweeps run on a polling
// interval measured in minutes, so holding a connection open between
// sweeps buys nothing and risks server-side idle timeouts.
type imapClient struct {
	opts   IMAPOptions
	cache  cache.Cache
	logger *zap.Logger
}

func NewIMAP(opts IMAPOptions, listCache cache.Cache, logger *zap.Logger) Client {
	if opts.Folder == "" {
		opts.Folder = "INBOX"
	}
	return &imapClient{opts: opts, cache: listCache, logger: logger}
}

// fetchedBatch wraps a fetch result for cache round-trips.
type fetchedBatch struct {
	Emails []models.RawEmail `json:"emails"`
}

func (b *fetchedBatch) MarshalBinary() ([]byte, error) {
	return json.Marshal(b)
}

func (b *fetchedBatch) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, b)
}

// listCacheKey buckets Since to the hour: sweeps compute the cutoff
// relative to now, so the raw timestamp would change every poll and the
// cache would never hit.
func listCacheKey(folder string, query Query) string {
	return fmt.Sprintf("apptrack:mailbox:%s:%d:%d", folder, query.Since.Truncate(time.Hour).Unix(), query.Limit)
}

func (c *imapClient) Fetch(ctx context.Context, query Query) ([]models.RawEmail, error) {
	cacheKey := listCacheKey(c.opts.Folder, query)
	if c.cache != nil {
		cached := &fetchedBatch{}
		if err := c.cache.Get(ctx, cacheKey, cached); err == nil {
			c.logger.Debug("mailbox fetch served from cache",
				zap.Int("count", len(cached.Emails)))
			return cached.Emails, nil
		}
	}

	conn, err := client.DialTLS(c.opts.Addr, nil)
	if err != nil {
		return nil, errors.Unavailable(fmt.Sprintf("dialing imap server %s", c.opts.Addr), err)
	}
	defer conn.Logout()

	if err := conn.Login(c.opts.Username, c.opts.Password); err != nil {
		return nil, errors.AuthRequired("imap login rejected", err)
	}

	if _, err := conn.Select(c.opts.Folder, true); err != nil {
		return nil, errors.Internal(fmt.Sprintf("selecting folder %s", c.opts.Folder), err)
	}

	uids, err := conn.UidSearch(searchCriteria(query))
	if err != nil {
		return nil, errors.Internal("searching mailbox", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	// UIDs come back oldest-first; keep the newest window.
	if query.Limit > 0 && len(uids) > query.Limit {
		uids = uids[len(uids)-query.Limit:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- conn.UidFetch(seqset, items, messages)
	}()

	var emails []models.RawEmail
	for msg := range messages {
		email, ok := c.convertMessage(msg, section)
		if ok {
			emails = append(emails, email)
		}
	}
	if err := <-done; err != nil {
		return nil, errors.Internal("fetching messages", err)
	}

	// Newest first.
	for i, j := 0, len(emails)-1; i < j; i, j = i+1, j-1 {
		emails[i], emails[j] = emails[j], emails[i]
	}

	if c.cache != nil && len(emails) > 0 {
		if err := c.cache.Set(ctx, cacheKey, &fetchedBatch{Emails: emails}, c.opts.CacheTTL); err != nil {
			c.logger.Warn("failed to cache mailbox fetch", zap.Error(err))
		}
	}
	return emails, nil
}

// searchCriteria folds subject keywords into nested OR pairs, the only
// disjunction shape IMAP SEARCH supports.
func searchCriteria(query Query) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.Since = query.Since

	if len(query.Keywords) > 1 {
		folded := subjectCriteria(query.Keywords[0])
		for _, keyword := range query.Keywords[1:] {
			next := imap.NewSearchCriteria()
			next.Or = [][2]*imap.SearchCriteria{{folded, subjectCriteria(keyword)}}
			folded = next
		}
		criteria.Or = folded.Or
	}
	return criteria
}

func subjectCriteria(keyword string) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.Header.Set("Subject", keyword)
	return criteria
}

func (c *imapClient) convertMessage(msg *imap.Message, section *imap.BodySectionName) (models.RawEmail, bool) {
	if msg == nil || msg.Envelope == nil || msg.Envelope.MessageId == "" {
		return models.RawEmail{}, false
	}

	email := models.RawEmail{
		MessageID:    msg.Envelope.MessageId,
		Subject:      msg.Envelope.Subject,
		ReceivedDate: msg.Envelope.Date,
	}
	if len(msg.Envelope.From) > 0 {
		email.Sender = msg.Envelope.From[0].Address()
	}

	if body := msg.GetBody(section); body != nil {
		text, err := extractTextBody(body)
		if err != nil {
			c.logger.Warn("failed to extract message body",
				zap.String("message_id", email.MessageID),
				zap.Error(err))
		}
		email.Body = text
	}
	return email, true
}

// extractTextBody walks MIME parts and returns the first text part,
// preferring text/plain over text/html.
func extractTextBody(body io.Reader) (string, error) {
	reader, err := mail.CreateReader(body)
	if err != nil {
		return "", err
	}

	var htmlFallback string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return htmlFallback, err
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}

		content, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch {
		case strings.EqualFold(contentType, "text/plain"):
			return string(content), nil
		case strings.EqualFold(contentType, "text/html") && htmlFallback == "":
			htmlFallback = string(content)
		}
	}
	return htmlFallback, nil
}
