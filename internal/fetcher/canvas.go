package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryosukesatoh/morning-brief/internal/httpx"
)

// assignmentWindow is how far ahead assignments are reported.
const assignmentWindow = 7 * 24 * time.Hour

type canvasCourse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type canvasAssignment struct {
	Name  string `json:"name"`
	DueAt string `json:"due_at"`
}

// CanvasFetcher lists assignments due soon across actively enrolled Canvas courses.
type CanvasFetcher struct {
	client  *http.Client
	baseURL string
	token   string
	loc     *time.Location
	now     func() time.Time
}

func NewCanvasFetcher(client *http.Client, baseURL, token string, loc *time.Location) *CanvasFetcher {
	return &CanvasFetcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		loc:     loc,
		now:     time.Now,
	}
}

func (f *CanvasFetcher) Name() string { return SourceCanvas }

func (f *CanvasFetcher) Fetch(ctx context.Context) Result {
	if f.token == "" {
		return Fail(SourceCanvas, "CANVAS_API_TOKEN not set")
	}
	auth := httpx.Bearer(f.token)

	query := url.Values{}
	query.Set("enrollment_state", "active")
	query.Set("per_page", "50")

	var courses []canvasCourse
	if err := httpx.GetJSON(ctx, f.client, f.baseURL+"/api/v1/courses?"+query.Encode(), auth, &courses); err != nil {
		return Fail(SourceCanvas, "Failed to fetch courses: %v", err)
	}

	now := f.now().In(f.loc)
	cutoff := now.Add(assignmentWindow)
	log := zerolog.Ctx(ctx)

	assignments := make([]Assignment, 0)
	for _, course := range courses {
		name := course.Name
		if name == "" {
			name = "Unknown Course"
		}

		items, err := f.upcoming(ctx, course.ID)
		if err != nil {
			log.Debug().Err(err).Int64("course_id", course.ID).Msg("canvas: skipping course")
			continue
		}

		for _, a := range items {
			if a.DueAt == "" {
				continue
			}
			due, err := time.Parse(time.RFC3339, a.DueAt)
			if err != nil {
				log.Debug().Err(err).Str("assignment", a.Name).Msg("canvas: unparseable due date")
				continue
			}
			due = due.In(f.loc)
			if due.Before(now) || due.After(cutoff) {
				continue
			}
			assignments = append(assignments, Assignment{Course: name, Name: a.Name, Due: due})
		}
	}

	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].Due.Before(assignments[j].Due)
	})
	return OK(SourceCanvas, assignments)
}

func (f *CanvasFetcher) upcoming(ctx context.Context, courseID int64) ([]canvasAssignment, error) {
	query := url.Values{}
	query.Set("bucket", "upcoming")
	query.Set("order_by", "due_at")
	query.Set("per_page", "50")

	var items []canvasAssignment
	u := fmt.Sprintf("%s/api/v1/courses/%d/assignments?%s", f.baseURL, courseID, query.Encode())
	if err := httpx.GetJSON(ctx, f.client, u, httpx.Bearer(f.token), &items); err != nil {
		return nil, err
	}
	return items, nil
}
