package fetcher

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/ryosukesatoh/morning-brief/internal/httpx"
)

// gmailQuery selects unread mail from the trailing day.
const gmailQuery = "is:unread newer_than:1d"

type gmailList struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type gmailDetail struct {
	Snippet string `json:"snippet"`
	Payload struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
	} `json:"payload"`
}

// GmailFetcher lists unread Gmail messages using a long-lived refresh token.
type GmailFetcher struct {
	client       *http.Client
	tokenURL     string
	apiBase      string
	clientID     string
	clientSecret string
	refreshToken string
}

func NewGmailFetcher(client *http.Client, clientID, clientSecret, refreshToken string) *GmailFetcher {
	return &GmailFetcher{
		client:       client,
		tokenURL:     "https://oauth2.googleapis.com/token",
		apiBase:      "https://gmail.googleapis.com/gmail/v1/users/me",
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
	}
}

func (f *GmailFetcher) Name() string { return SourceGmail }

func (f *GmailFetcher) Fetch(ctx context.Context) Result {
	if f.clientID == "" || f.clientSecret == "" || f.refreshToken == "" {
		return Fail(SourceGmail, "Gmail credentials not configured")
	}

	token, err := f.accessToken(ctx)
	if err != nil {
		return Fail(SourceGmail, "Gmail auth failed: %v", err)
	}
	auth := httpx.Bearer(token)

	query := url.Values{}
	query.Set("q", gmailQuery)
	query.Set("maxResults", strconv.Itoa(maxMessages))

	var list gmailList
	if err := httpx.GetJSON(ctx, f.client, f.apiBase+"/messages?"+query.Encode(), auth, &list); err != nil {
		return Fail(SourceGmail, "Gmail list failed: %v", err)
	}

	log := zerolog.Ctx(ctx)
	messages := make([]MailMessage, 0, len(list.Messages))
	for _, m := range list.Messages {
		var detail gmailDetail
		if err := httpx.GetJSON(ctx, f.client, f.detailURL(m.ID), auth, &detail); err != nil {
			log.Debug().Err(err).Str("message_id", m.ID).Msg("gmail: skipping message")
			continue
		}
		messages = append(messages, detail.toMessage())
	}

	return OK(SourceGmail, messages)
}

// accessToken exchanges the refresh token for a short-lived access token.
func (f *GmailFetcher) accessToken(ctx context.Context) (string, error) {
	conf := &oauth2.Config{
		ClientID:     f.clientID,
		ClientSecret: f.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  f.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: f.refreshToken}).Token()
	if err != nil {
		return "", httpx.StripURL(err)
	}
	return tok.AccessToken, nil
}

func (f *GmailFetcher) detailURL(id string) string {
	query := url.Values{}
	query.Set("format", "metadata")
	query.Add("metadataHeaders", "From")
	query.Add("metadataHeaders", "Subject")
	return fmt.Sprintf("%s/messages/%s?%s", f.apiBase, url.PathEscape(id), query.Encode())
}

func (d gmailDetail) toMessage() MailMessage {
	var msg MailMessage
	for _, h := range d.Payload.Headers {
		switch h.Name {
		case "From":
			msg.Sender = h.Value
		case "Subject":
			msg.Subject = h.Value
		}
	}
	// The API returns snippets with HTML entities escaped.
	msg.Snippet = html.UnescapeString(d.Snippet)
	return msg
}
