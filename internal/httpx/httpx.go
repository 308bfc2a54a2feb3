// Package httpx holds the small amount of HTTP plumbing shared by the fetchers,
// the summarizer and the publishers. There is no retry here: a failed
// call is terminal for whatever unit of work issued it.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is applied to every outbound call.
const DefaultTimeout = 10 * time.Second

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 512

// NewClient returns an http.Client with the given timeout, falling back to DefaultTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// CheckStatus turns a non-2xx response into a *StatusError. It does not close the body.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// GetJSON issues a GET and decodes a 2xx JSON body into out.
func GetJSON(ctx context.Context, client *http.Client, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	copyHeader(req.Header, header)
	return do(client, req, out)
}

// PostJSON marshals in, POSTs it and decodes a 2xx JSON body into out (when out is non-nil).
func PostJSON(ctx context.Context, client *http.Client, rawURL string, header http.Header, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	copyHeader(req.Header, header)
	req.Header.Set("Content-Type", "application/json")
	return do(client, req, out)
}

func do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return StripURL(err)
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StripURL drops the request URL from transport errors. Several upstreams carry
// credentials in the URL (query api keys, bot tokens) and error text is forwarded
// to the summarizer verbatim.
func StripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s request failed: %w", ue.Op, ue.Err)
	}
	return err
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// Bearer builds an Authorization header for a bearer token.
func Bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
