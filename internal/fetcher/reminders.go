package fetcher

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/rs/zerolog"
)

// placeholderTitles are stub reminders iCloud injects when migrating accounts.
var placeholderTitles = []string{"upgraded these reminders", "where are my reminders"}

// RemindersFetcher returns incomplete to-do items from every calendar of a CalDAV account.
type RemindersFetcher struct {
	username string
	password string
	loc      *time.Location
	connect  func() (CalendarStore, error)
}

func NewRemindersFetcher(client *http.Client, endpoint, username, password string, loc *time.Location) *RemindersFetcher {
	return &RemindersFetcher{
		username: username,
		password: password,
		loc:      loc,
		connect: func() (CalendarStore, error) {
			return NewCalDAVStore(client, endpoint, username, password)
		},
	}
}

func (f *RemindersFetcher) Name() string { return SourceReminders }

func (f *RemindersFetcher) Fetch(ctx context.Context) Result {
	if f.username == "" || f.password == "" {
		return Fail(SourceReminders, "ICLOUD_USERNAME or ICLOUD_APP_PASSWORD not set")
	}

	store, err := f.connect()
	if err != nil {
		return Fail(SourceReminders, "Failed to connect to iCloud CalDAV: %v", err)
	}
	calendars, err := store.Calendars(ctx)
	if err != nil {
		return Fail(SourceReminders, "Failed to connect to iCloud CalDAV: %v", err)
	}

	reminders := make([]Reminder, 0)
	for _, cal := range calendars {
		reminders = append(reminders, f.scanCalendar(ctx, store, cal)...)
	}

	sortReminders(reminders)
	return OK(SourceReminders, reminders)
}

// scanCalendar collects the open to-dos of one calendar. Every failure inside a
// calendar is swallowed.
func (f *RemindersFetcher) scanCalendar(ctx context.Context, store CalendarStore, cal string) []Reminder {
	log := zerolog.Ctx(ctx).With().Str("calendar", cal).Logger()

	objects, err := store.Objects(ctx, cal)
	if err != nil {
		log.Debug().Err(err).Msg("reminders: skipping calendar")
		return nil
	}
	if len(objects) == 0 {
		return nil
	}

	// A calendar whose first object is an event is treated as event-only and
	// skipped without loading the rest. Mixed calendars that happen to start
	// with an event lose their to-dos here.
	peek, peekErr := store.Load(ctx, objects[0])
	if peekErr == nil && strings.Contains(peek, "VEVENT") {
		log.Debug().Msg("reminders: event calendar, skipping")
		return nil
	}

	var out []Reminder
	for i, obj := range objects {
		data := peek
		if i > 0 || peekErr != nil {
			if data, err = store.Load(ctx, obj); err != nil {
				log.Debug().Err(err).Str("object", obj).Msg("reminders: skipping object")
				continue
			}
		}

		r, ok := parseReminder(data, f.loc)
		if !ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// parseReminder converts a raw calendar object into a Reminder. It reports false
// for anything that is not an open, real to-do or that cannot be parsed.
func parseReminder(data string, loc *time.Location) (Reminder, bool) {
	if !strings.Contains(data, "VTODO") {
		return Reminder{}, false
	}

	cal, err := ical.NewDecoder(strings.NewReader(data)).Decode()
	if err != nil {
		return Reminder{}, false
	}

	var todo *ical.Component
	for _, child := range cal.Children {
		if child.Name == ical.CompToDo {
			todo = child
			break
		}
	}
	if todo == nil {
		return Reminder{}, false
	}

	if p := todo.Props.Get(ical.PropStatus); p != nil && strings.EqualFold(p.Value, "COMPLETED") {
		return Reminder{}, false
	}
	if todo.Props.Get(ical.PropCompleted) != nil {
		return Reminder{}, false
	}

	r := Reminder{Title: "Untitled"}
	if p := todo.Props.Get(ical.PropSummary); p != nil {
		if r.Title, err = p.Text(); err != nil {
			return Reminder{}, false
		}
	}
	if isPlaceholder(r.Title) {
		return Reminder{}, false
	}

	if p := todo.Props.Get(ical.PropDue); p != nil {
		due, err := parseDue(p, loc)
		if err != nil {
			return Reminder{}, false
		}
		r.Due = &due
	}
	return r, true
}

// parseDue normalizes DUE into loc. Date-only values become midnight in loc.
func parseDue(p *ical.Prop, loc *time.Location) (time.Time, error) {
	if p.ValueType() == ical.ValueDate || len(p.Value) == len("20060102") {
		return time.ParseInLocation("20060102", p.Value, loc)
	}
	t, err := p.DateTime(loc)
	if err != nil && p.Params.Get(ical.PropTimezoneID) != "" {
		// TZIDs defined by an inline VTIMEZONE (e.g. "Eastern Standard Time")
		// are not IANA names; read the wall time in loc instead.
		t, err = time.ParseInLocation("20060102T150405", p.Value, loc)
	}
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

func isPlaceholder(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range placeholderTitles {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// sortReminders orders by due date with undated items last.
func sortReminders(rs []Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i].Due, rs[j].Due
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.Before(*b)
	})
}
