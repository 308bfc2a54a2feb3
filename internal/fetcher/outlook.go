package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"
)

// snippetLimit bounds the plain-text preview, in runes.
const snippetLimit = 120

// mailbox is the subset of *client.Client the fetcher drives.
type mailbox interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Search(criteria *imap.SearchCriteria) ([]uint32, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
}

// OutlookFetcher reads unread inbox mail over IMAP with a username and password.
type OutlookFetcher struct {
	addr     string
	username string
	password string
	timeout  time.Duration
	dial     func(addr string, timeout time.Duration) (mailbox, error)
	now      func() time.Time
}

func NewOutlookFetcher(host string, port int, username, password string, timeout time.Duration) *OutlookFetcher {
	return &OutlookFetcher{
		addr:     net.JoinHostPort(host, fmt.Sprint(port)),
		username: username,
		password: password,
		timeout:  timeout,
		dial:     dialTLS,
		now:      time.Now,
	}
}

func dialTLS(addr string, timeout time.Duration) (mailbox, error) {
	c, err := client.DialWithDialerTLS(&net.Dialer{Timeout: timeout}, addr, nil)
	if err != nil {
		return nil, err
	}
	c.Timeout = timeout
	return c, nil
}

func (f *OutlookFetcher) Name() string { return SourceOutlook }

func (f *OutlookFetcher) Fetch(ctx context.Context) Result {
	if f.username == "" || f.password == "" {
		return Fail(SourceOutlook, "Outlook credentials not configured")
	}

	mb, err := f.dial(f.addr, f.timeout)
	if err != nil {
		return Fail(SourceOutlook, "Outlook fetch failed: %v", err)
	}
	log := zerolog.Ctx(ctx)
	defer func() {
		if err := mb.Logout(); err != nil {
			log.Debug().Err(err).Msg("outlook: logout failed")
		}
	}()

	if err := mb.Login(f.username, f.password); err != nil {
		return Fail(SourceOutlook, "Outlook IMAP error: %v", err)
	}
	if _, err := mb.Select("INBOX", true); err != nil {
		return Fail(SourceOutlook, "Outlook IMAP error: %v", err)
	}

	// SINCE only has day granularity, so this can include mail older than 24h.
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = sinceDate(f.now())

	ids, err := mb.Search(criteria)
	if err != nil {
		return Fail(SourceOutlook, "Outlook IMAP error: %v", err)
	}
	if len(ids) > maxMessages {
		ids = ids[len(ids)-maxMessages:]
	}

	messages := make([]MailMessage, 0, len(ids))
	for _, id := range ids {
		body, err := fetchBody(mb, id)
		if err != nil {
			log.Debug().Err(err).Uint32("seq", id).Msg("outlook: skipping message")
			continue
		}
		msg, err := parseMail(body)
		if err != nil {
			log.Debug().Err(err).Uint32("seq", id).Msg("outlook: skipping unparseable message")
			continue
		}
		messages = append(messages, msg)
	}

	return OK(SourceOutlook, messages)
}

// sinceDate is yesterday's UTC calendar date.
func sinceDate(now time.Time) time.Time {
	y, m, d := now.UTC().Add(-24 * time.Hour).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fetchBody(mb mailbox, id uint32) (io.Reader, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(id)
	section := &imap.BodySectionName{}

	// Fetch closes ch when the command completes; the buffer leaves room for
	// unsolicited FETCH responses the server may interleave.
	ch := make(chan *imap.Message, 8)
	if err := mb.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, ch); err != nil {
		return nil, err
	}

	for msg := range ch {
		if msg.SeqNum != id {
			continue
		}
		if body := msg.GetBody(section); body != nil {
			return body, nil
		}
	}
	return nil, errors.New("message body not returned")
}

// parseMail decodes From/Subject and pulls a plain-text snippet out of a raw RFC 5322 message.
func parseMail(r io.Reader) (MailMessage, error) {
	mr, err := mail.CreateReader(r)
	if mr == nil {
		return MailMessage{}, err
	}

	// Text falls back to the raw value when a word cannot be decoded.
	sender, _ := mr.Header.Text("From")
	subject := "(no subject)"
	if mr.Header.Has("Subject") {
		subject, _ = mr.Header.Text("Subject")
	}

	return MailMessage{
		Sender:  sender,
		Subject: subject,
		Snippet: extractSnippet(mr),
	}, nil
}

// extractSnippet returns the first non-empty text/plain part of a multipart
// message, or the top-level body otherwise.
func extractSnippet(mr *mail.Reader) string {
	mediaType, _, _ := mr.Header.ContentType()
	multipart := strings.HasPrefix(mediaType, "multipart/")

	for {
		p, err := mr.NextPart()
		if err != nil {
			return ""
		}
		if multipart && partType(p.Header.Get("Content-Type")) != "text/plain" {
			continue
		}

		b, err := io.ReadAll(p.Body)
		if err == nil && len(b) > 0 {
			return truncateRunes(strings.Join(strings.Fields(string(b)), " "), snippetLimit)
		}
		if !multipart {
			return ""
		}
	}
}

func partType(contentType string) string {
	if contentType == "" {
		return "text/plain"
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mediaType
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
