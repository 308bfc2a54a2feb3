// Package format renders fetch results as short plain-text briefing blocks.
// It is used when the summarizer is bypassed.
package format

import (
	"fmt"
	"strings"

	"github.com/ryosukesatoh/morning-brief/internal/fetcher"
)

// TimeLayout is how due dates appear in a block, e.g. "Wed Mar 12 11:59 PM".
const TimeLayout = "Mon Jan 02 03:04 PM"

var labels = map[string]string{
	fetcher.SourceWeather:   "Weather",
	fetcher.SourceGmail:     "Email",
	fetcher.SourceOutlook:   "Outlook",
	fetcher.SourceCanvas:    "Canvas",
	fetcher.SourceReminders: "Reminders",
}

// Label is the display name of a source.
func Label(source string) string {
	if l, ok := labels[source]; ok {
		return l
	}
	return source
}

func unavailable(r fetcher.Result) string {
	return fmt.Sprintf("⚠️ %s unavailable: %s", Label(r.Source), r.Err)
}

// Block renders any result according to its source.
func Block(r fetcher.Result) string {
	switch r.Source {
	case fetcher.SourceWeather:
		return Weather(r)
	case fetcher.SourceGmail:
		return Mail(r, "📧 EMAIL")
	case fetcher.SourceOutlook:
		return Mail(r, "📬 OUTLOOK")
	case fetcher.SourceCanvas:
		return Assignments(r)
	case fetcher.SourceReminders:
		return Reminders(r)
	}
	if r.Failed() {
		return unavailable(r)
	}
	return fmt.Sprintf("%s\n%v", strings.ToUpper(r.Source), r.Data)
}

// Briefing joins the blocks of all results with blank lines.
func Briefing(results []fetcher.Result) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, Block(r))
	}
	return strings.Join(blocks, "\n\n")
}

func Weather(r fetcher.Result) string {
	if r.Failed() {
		return unavailable(r)
	}
	w, ok := r.Data.(fetcher.WeatherSnapshot)
	if !ok {
		return unavailable(fetcher.Fail(r.Source, "unexpected data %T", r.Data))
	}
	return fmt.Sprintf("🌤 WEATHER\n%d°F → %d°F, %s, %d%% rain",
		w.Low, w.High, strings.ToLower(w.Condition), w.RainChance)
}

// Mail renders a mailbox result under the given heading.
func Mail(r fetcher.Result, heading string) string {
	if r.Failed() {
		return unavailable(r)
	}
	msgs, _ := r.Data.([]fetcher.MailMessage)
	if len(msgs) == 0 {
		return heading + "\nNo unread emails in the last 24h."
	}

	lines := []string{fmt.Sprintf("%s (%d unread)", heading, len(msgs))}
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("• %s: %s", SenderName(m.Sender), m.Subject))
	}
	return strings.Join(lines, "\n")
}

func Assignments(r fetcher.Result) string {
	if r.Failed() {
		return unavailable(r)
	}
	as, _ := r.Data.([]fetcher.Assignment)
	if len(as) == 0 {
		return "📚 CANVAS\nNo assignments due in the next 7 days."
	}

	lines := []string{"📚 CANVAS"}
	for _, a := range as {
		lines = append(lines, fmt.Sprintf("• %s: %s — due %s", a.Course, a.Name, a.Due.Format(TimeLayout)))
	}
	return strings.Join(lines, "\n")
}

func Reminders(r fetcher.Result) string {
	if r.Failed() {
		return unavailable(r)
	}
	rs, _ := r.Data.([]fetcher.Reminder)
	if len(rs) == 0 {
		return "✅ REMINDERS\nNo incomplete reminders."
	}

	lines := []string{"✅ REMINDERS"}
	for _, rem := range rs {
		if rem.Due == nil {
			lines = append(lines, "• "+rem.Title)
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s — due %s", rem.Title, rem.Due.Format(TimeLayout)))
	}
	return strings.Join(lines, "\n")
}

// SenderName reduces `"Jane Doe" <jane@x.com>` to `Jane Doe`. Bare addresses are returned as is.
func SenderName(sender string) string {
	i := strings.Index(sender, "<")
	if i < 0 {
		return sender
	}
	return strings.Trim(strings.TrimSpace(sender[:i]), `" `)
}
