package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// EmailPublisher sends the briefing as a plain-text email via SMTP.
type EmailPublisher struct {
	host     string
	port     int
	username string
	password string
	from     *mail.Address
	to       []*mail.Address
	loc      *time.Location
	now      func() time.Time
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailPublisher(host string, port int, username, password, from string, to []string, loc *time.Location) (*EmailPublisher, error) {
	if host == "" || from == "" || len(to) == 0 {
		return nil, fmt.Errorf("%w: email needs smtp_host, from and to", ErrNotConfigured)
	}

	sender, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("email: invalid from address %q: %w", from, err)
	}
	rcpts := make([]*mail.Address, 0, len(to))
	for _, t := range to {
		a, err := mail.ParseAddress(t)
		if err != nil {
			return nil, fmt.Errorf("email: invalid to address %q: %w", t, err)
		}
		rcpts = append(rcpts, a)
	}
	if loc == nil {
		loc = time.Local
	}

	return &EmailPublisher{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     sender,
		to:       rcpts,
		loc:      loc,
		now:      time.Now,
		send:     smtp.SendMail,
	}, nil
}

// Publish returns the Message-ID of the sent mail.
func (p *EmailPublisher) Publish(_ context.Context, text string) (string, error) {
	id := uuid.NewString() + "@morning-brief"
	msg, err := p.compose(id, text)
	if err != nil {
		return "", err
	}

	envelope := make([]string, len(p.to))
	for i, a := range p.to {
		envelope[i] = a.Address
	}

	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	addr := net.JoinHostPort(p.host, strconv.Itoa(p.port))
	if err := p.send(addr, auth, p.from.Address, envelope, msg); err != nil {
		return "", fmt.Errorf("email: failed to send: %w", err)
	}
	return "<" + id + ">", nil
}

func (p *EmailPublisher) compose(id, text string) ([]byte, error) {
	now := p.now().In(p.loc)

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{p.from})
	h.SetAddressList("To", p.to)
	h.SetSubject("Morning Briefing - " + now.Format("Monday, January 02"))
	h.SetMessageID(id)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("email: compose: %w", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return nil, fmt.Errorf("email: compose: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("email: compose: %w", err)
	}
	return buf.Bytes(), nil
}
