package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

// CalendarStore is the CalDAV surface the reminders fetcher needs. Objects are
// returned as raw iCalendar text so callers can inspect them before parsing.
type CalendarStore interface {
	Calendars(ctx context.Context) ([]string, error)
	Objects(ctx context.Context, calendar string) ([]string, error)
	Load(ctx context.Context, object string) (string, error)
}

type caldavStore struct {
	client *caldav.Client
}

// NewCalDAVStore authenticates with basic auth against a CalDAV endpoint.
func NewCalDAVStore(httpClient *http.Client, endpoint, username, password string) (CalendarStore, error) {
	c, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, username, password), endpoint)
	if err != nil {
		return nil, fmt.Errorf("caldav: %w", err)
	}
	return &caldavStore{client: c}, nil
}

// Calendars discovers the principal, its calendar home set and the calendars in it.
func (s *caldavStore) Calendars(ctx context.Context) ([]string, error) {
	principal, err := s.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}
	home, err := s.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find calendar home set: %w", err)
	}
	cals, err := s.client.FindCalendars(ctx, home)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	paths := make([]string, 0, len(cals))
	for _, cal := range cals {
		paths = append(paths, cal.Path)
	}
	return paths, nil
}

// Objects lists the resources of one calendar collection (PROPFIND depth 1).
// A calendar-query REPORT filtered to VTODO is not used: iCloud answers it with a 500.
func (s *caldavStore) Objects(ctx context.Context, calendar string) ([]string, error) {
	infos, err := s.client.ReadDir(ctx, calendar, false)
	if err != nil {
		return nil, err
	}

	objects := make([]string, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir || fi.Path == calendar {
			continue
		}
		objects = append(objects, fi.Path)
	}
	return objects, nil
}

func (s *caldavStore) Load(ctx context.Context, object string) (string, error) {
	rc, err := s.client.Open(ctx, object)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
