package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
)

type fakeMailbox struct {
	loginErr  error
	selectErr error
	searchErr error
	ids       []uint32
	bodies    map[uint32]string
	failFetch map[uint32]bool

	loggedOut int
	readOnly  bool
	criteria  *imap.SearchCriteria
	fetched   []uint32
}

func (m *fakeMailbox) Login(username, password string) error { return m.loginErr }

func (m *fakeMailbox) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	m.readOnly = readOnly
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	return imap.NewMailboxStatus(name, nil), nil
}

func (m *fakeMailbox) Search(criteria *imap.SearchCriteria) ([]uint32, error) {
	m.criteria = criteria
	return m.ids, m.searchErr
}

func (m *fakeMailbox) Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)
	id := seqset.Set[0].Start
	m.fetched = append(m.fetched, id)
	if m.failFetch[id] {
		return errors.New("fetch failed")
	}
	section := &imap.BodySectionName{}
	ch <- &imap.Message{
		SeqNum: id,
		Body:   map[*imap.BodySectionName]imap.Literal{section: bytes.NewBufferString(m.bodies[id])},
	}
	return nil
}

func (m *fakeMailbox) Logout() error {
	m.loggedOut++
	return nil
}

func newTestOutlook(mb *fakeMailbox, dialErr error) (*OutlookFetcher, *int) {
	dials := 0
	f := NewOutlookFetcher("imap.example.com", 993, "user@example.com", "pw", time.Second)
	f.dial = func(addr string, timeout time.Duration) (mailbox, error) {
		dials++
		if dialErr != nil {
			return nil, dialErr
		}
		return mb, nil
	}
	f.now = func() time.Time { return time.Date(2025, 3, 10, 1, 30, 0, 0, time.UTC) }
	return f, &dials
}

func plainMessage(from, subject, body string) string {
	return "From: " + from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" + body + "\r\n"
}

const multipartMessage = "From: =?UTF-8?Q?Ren=C3=A9e_Dupont?= <renee@example.com>\r\n" +
	"Subject: =?UTF-8?B?UmFwcG9ydCBtZW5zdWVs?=\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>html first</p>\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello   there,\r\n\r\n  the  report is attached.\r\n" +
	"--XYZ--\r\n"

func TestOutlookFetchDecodesMessages(t *testing.T) {
	mb := &fakeMailbox{
		ids: []uint32{1, 2},
		bodies: map[uint32]string{
			1: plainMessage("Bob <bob@example.com>", "Lunch", "See you at noon."),
			2: multipartMessage,
		},
	}
	f, _ := newTestOutlook(mb, nil)

	res := f.Fetch(context.Background())
	if res.Failed() {
		t.Fatalf("Fetch failed: %s", res.Err)
	}
	msgs := res.Data.([]MailMessage)
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Subject != "Lunch" || msgs[0].Snippet != "See you at noon." {
		t.Errorf("Unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Sender != "Renée Dupont <renee@example.com>" {
		t.Errorf("Expected decoded sender, got %q", msgs[1].Sender)
	}
	if msgs[1].Subject != "Rapport mensuel" {
		t.Errorf("Expected decoded subject, got %q", msgs[1].Subject)
	}
	if msgs[1].Snippet != "Hello there, the report is attached." {
		t.Errorf("Expected text/plain part with collapsed whitespace, got %q", msgs[1].Snippet)
	}
	if !mb.readOnly {
		t.Error("Expected the inbox to be selected read-only")
	}
	if mb.loggedOut != 1 {
		t.Errorf("Expected one logout, got %d", mb.loggedOut)
	}
}

func TestOutlookSearchCriteria(t *testing.T) {
	mb := &fakeMailbox{}
	f, _ := newTestOutlook(mb, nil)

	res := f.Fetch(context.Background())
	if res.Failed() {
		t.Fatalf("Fetch failed: %s", res.Err)
	}
	if len(res.Data.([]MailMessage)) != 0 {
		t.Errorf("Expected no messages")
	}
	if mb.criteria == nil {
		t.Fatal("Expected a search")
	}
	want := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	if !mb.criteria.Since.Equal(want) {
		t.Errorf("Expected SINCE %v, got %v", want, mb.criteria.Since)
	}
	if len(mb.criteria.WithoutFlags) != 1 || mb.criteria.WithoutFlags[0] != imap.SeenFlag {
		t.Errorf("Expected UNSEEN criteria, got %v", mb.criteria.WithoutFlags)
	}
}

func TestOutlookKeepsLastTen(t *testing.T) {
	mb := &fakeMailbox{bodies: map[uint32]string{}}
	for i := uint32(1); i <= 15; i++ {
		mb.ids = append(mb.ids, i)
		mb.bodies[i] = plainMessage("a@example.com", fmt.Sprintf("m%d", i), "x")
	}
	f, _ := newTestOutlook(mb, nil)

	msgs := f.Fetch(context.Background()).Data.([]MailMessage)
	if len(msgs) != 10 {
		t.Fatalf("Expected 10 messages, got %d", len(msgs))
	}
	if mb.fetched[0] != 6 || msgs[0].Subject != "m6" || msgs[9].Subject != "m15" {
		t.Errorf("Expected ids 6..15, fetched %v", mb.fetched)
	}
}

func TestOutlookSkipsFailedFetch(t *testing.T) {
	mb := &fakeMailbox{
		ids:       []uint32{1, 2},
		bodies:    map[uint32]string{2: plainMessage("a@example.com", "kept", "x")},
		failFetch: map[uint32]bool{1: true},
	}
	f, _ := newTestOutlook(mb, nil)

	msgs := f.Fetch(context.Background()).Data.([]MailMessage)
	if len(msgs) != 1 || msgs[0].Subject != "kept" {
		t.Errorf("Expected only the second message, got %+v", msgs)
	}
}

func TestOutlookMissingSubject(t *testing.T) {
	msg, err := parseMail(strings.NewReader("From: a@example.com\r\n\r\nbody\r\n"))
	if err != nil {
		t.Fatalf("parseMail returned error: %v", err)
	}
	if msg.Subject != "(no subject)" {
		t.Errorf("Expected placeholder subject, got %q", msg.Subject)
	}
	if msg.Snippet != "body" {
		t.Errorf("Expected top-level body snippet, got %q", msg.Snippet)
	}
}

func TestOutlookSnippetTruncated(t *testing.T) {
	long := strings.Repeat("é", 200)
	msg, err := parseMail(strings.NewReader(plainMessage("a@example.com", "s", long)))
	if err != nil {
		t.Fatalf("parseMail returned error: %v", err)
	}
	if n := len([]rune(msg.Snippet)); n != snippetLimit {
		t.Errorf("Expected %d runes, got %d", snippetLimit, n)
	}
}

func TestOutlookAlwaysLogsOut(t *testing.T) {
	tests := []struct {
		name string
		mb   *fakeMailbox
		want string
	}{
		{"login failure", &fakeMailbox{loginErr: errors.New("auth rejected")}, "Outlook IMAP error: auth rejected"},
		{"select failure", &fakeMailbox{selectErr: errors.New("no inbox")}, "Outlook IMAP error: no inbox"},
		{"search failure", &fakeMailbox{searchErr: errors.New("bad search")}, "Outlook IMAP error: bad search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newTestOutlook(tt.mb, nil)
			res := f.Fetch(context.Background())
			if res.Err != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, res.Err)
			}
			if tt.mb.loggedOut != 1 {
				t.Errorf("Expected one logout, got %d", tt.mb.loggedOut)
			}
		})
	}
}

func TestOutlookDialFailure(t *testing.T) {
	f, _ := newTestOutlook(nil, errors.New("connection refused"))
	res := f.Fetch(context.Background())
	if res.Err != "Outlook fetch failed: connection refused" {
		t.Errorf("Unexpected error %q", res.Err)
	}
}

func TestOutlookMissingCredentialsDoesNotDial(t *testing.T) {
	f, dials := newTestOutlook(&fakeMailbox{}, nil)
	f.password = ""

	res := f.Fetch(context.Background())
	if res.Err != "Outlook credentials not configured" {
		t.Errorf("Unexpected result %+v", res)
	}
	if *dials != 0 {
		t.Errorf("Expected no dial, got %d", *dials)
	}
}
