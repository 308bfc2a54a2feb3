package format

import (
	"strings"
	"testing"
	"time"

	"github.com/ryosukesatoh/morning-brief/internal/fetcher"
)

func TestSenderName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe <jane@x.com>", "Jane Doe"},
		{`"Doe, Jane" <jane@x.com>`, "Doe, Jane"},
		{"jane@x.com", "jane@x.com"},
		{"<jane@x.com>", ""},
	}
	for _, tt := range tests {
		if got := SenderName(tt.in); got != tt.want {
			t.Errorf("SenderName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFailedResultsRenderUnavailable(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{fetcher.SourceWeather, "⚠️ Weather unavailable: boom"},
		{fetcher.SourceGmail, "⚠️ Email unavailable: boom"},
		{fetcher.SourceOutlook, "⚠️ Outlook unavailable: boom"},
		{fetcher.SourceCanvas, "⚠️ Canvas unavailable: boom"},
		{fetcher.SourceReminders, "⚠️ Reminders unavailable: boom"},
	}
	for _, tt := range tests {
		if got := Block(fetcher.Fail(tt.source, "boom")); got != tt.want {
			t.Errorf("Block(%s) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestEmptyStates(t *testing.T) {
	tests := []struct {
		result fetcher.Result
		want   string
	}{
		{fetcher.OK(fetcher.SourceGmail, []fetcher.MailMessage{}), "📧 EMAIL\nNo unread emails in the last 24h."},
		{fetcher.OK(fetcher.SourceOutlook, []fetcher.MailMessage{}), "📬 OUTLOOK\nNo unread emails in the last 24h."},
		{fetcher.OK(fetcher.SourceCanvas, []fetcher.Assignment{}), "📚 CANVAS\nNo assignments due in the next 7 days."},
		{fetcher.OK(fetcher.SourceReminders, []fetcher.Reminder{}), "✅ REMINDERS\nNo incomplete reminders."},
	}
	for _, tt := range tests {
		if got := Block(tt.result); got != tt.want {
			t.Errorf("Block(%s) = %q, want %q", tt.result.Source, got, tt.want)
		}
	}
}

func TestWeather(t *testing.T) {
	r := fetcher.OK(fetcher.SourceWeather, fetcher.WeatherSnapshot{
		CurrentTemp: 60, High: 66, Low: 54, Condition: "Light Rain", RainChance: 40,
	})
	want := "🌤 WEATHER\n54°F → 66°F, light rain, 40% rain"
	if got := Weather(r); got != want {
		t.Errorf("Weather = %q, want %q", got, want)
	}
}

func TestMailListsSenders(t *testing.T) {
	r := fetcher.OK(fetcher.SourceGmail, []fetcher.MailMessage{
		{Sender: "Jane Doe <jane@x.com>", Subject: "Lunch?"},
		{Sender: "bob@x.com", Subject: "Re: report"},
	})
	want := "📧 EMAIL (2 unread)\n• Jane Doe: Lunch?\n• bob@x.com: Re: report"
	if got := Block(r); got != want {
		t.Errorf("Block = %q, want %q", got, want)
	}
}

func TestAssignmentsAndReminders(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	due := time.Date(2025, 3, 12, 23, 59, 0, 0, loc)

	canvas := Assignments(fetcher.OK(fetcher.SourceCanvas, []fetcher.Assignment{
		{Course: "Algorithms", Name: "HW 3", Due: due},
	}))
	if want := "📚 CANVAS\n• Algorithms: HW 3 — due Wed Mar 12 11:59 PM"; canvas != want {
		t.Errorf("Assignments = %q, want %q", canvas, want)
	}

	reminders := Reminders(fetcher.OK(fetcher.SourceReminders, []fetcher.Reminder{
		{Title: "Call mom", Due: &due},
		{Title: "Someday"},
	}))
	if want := "✅ REMINDERS\n• Call mom — due Wed Mar 12 11:59 PM\n• Someday"; reminders != want {
		t.Errorf("Reminders = %q, want %q", reminders, want)
	}
}

func TestBriefingJoinsBlocks(t *testing.T) {
	out := Briefing([]fetcher.Result{
		fetcher.Fail(fetcher.SourceWeather, "OPENWEATHER_API_KEY not set"),
		fetcher.OK(fetcher.SourceCanvas, []fetcher.Assignment{}),
	})
	parts := strings.Split(out, "\n\n")
	if len(parts) != 2 {
		t.Fatalf("got %d blocks: %q", len(parts), out)
	}
	if !strings.HasPrefix(parts[0], "⚠️ Weather unavailable") || !strings.HasPrefix(parts[1], "📚 CANVAS") {
		t.Errorf("unexpected briefing: %q", out)
	}
}
