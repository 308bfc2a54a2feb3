package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Source names, also used as keys in the summarization payload.
const (
	SourceWeather   = "weather"
	SourceGmail     = "gmail"
	SourceOutlook   = "outlook"
	SourceCanvas    = "canvas"
	SourceReminders = "reminders"
)

// Sources lists every known source in display order.
var Sources = []string{SourceWeather, SourceGmail, SourceOutlook, SourceCanvas, SourceReminders}

// Fetcher queries one external source and normalizes its response.
// Fetch never returns a Go error: failures are folded into the Result.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) Result
}

// Result is the outcome of one source fetch. Exactly one of Data or Err is meaningful.
type Result struct {
	Source string
	Data   any
	Err    string
}

// OK wraps successfully normalized records.
func OK(source string, data any) Result {
	return Result{Source: source, Data: data}
}

// Fail builds the single error marker for a source.
func Fail(source, format string, args ...any) Result {
	return Result{Source: source, Err: fmt.Sprintf(format, args...)}
}

// Failed reports whether the source could not be reached or parsed.
func (r Result) Failed() bool {
	return r.Err != ""
}

// MarshalJSON renders a failure as {"error": "..."} and a success as its records.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(map[string]string{"error": r.Err})
	}
	return json.Marshal(r.Data)
}

// WeatherSnapshot is the current conditions plus today's range.
type WeatherSnapshot struct {
	CurrentTemp int    `json:"current_temp"`
	High        int    `json:"high"`
	Low         int    `json:"low"`
	Condition   string `json:"condition"`
	RainChance  int    `json:"rain_chance"`
}

// MailMessage is one unread email reduced to what a briefing line needs.
type MailMessage struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
}

// Assignment is an LMS assignment due soon.
type Assignment struct {
	Course string    `json:"course"`
	Name   string    `json:"name"`
	Due    time.Time `json:"due"`
}

// Reminder is an incomplete to-do item. Due is nil for undated items.
type Reminder struct {
	Title string     `json:"title"`
	Due   *time.Time `json:"due"`
}

// maxMessages caps both mailbox fetchers.
const maxMessages = 10
