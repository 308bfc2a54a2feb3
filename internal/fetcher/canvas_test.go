package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%q): %v", name, err)
	}
	return loc
}

type canvasServer struct {
	calls       int
	coursesFail bool
	failCourse  map[string]bool
	assignments map[string]string
}

func (c *canvasServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.calls++
	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/api/v1/courses" {
		if c.coursesFail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Query().Get("enrollment_state") != "active" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`[{"id":1,"name":"Algorithms"},{"id":2,"name":"Databases"},{"id":3}]`))
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/courses/"), "/assignments")
	if c.failCourse[id] {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if r.URL.Query().Get("bucket") != "upcoming" || r.URL.Query().Get("order_by") != "due_at" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	body, ok := c.assignments[id]
	if !ok {
		body = "[]"
	}
	w.Write([]byte(body))
}

func newTestCanvas(ts *httptest.Server, token string, loc *time.Location) *CanvasFetcher {
	f := NewCanvasFetcher(ts.Client(), ts.URL+"/", token, loc)
	f.now = func() time.Time { return testNow }
	return f
}

func due(d time.Duration) string {
	return testNow.Add(d).Format(time.RFC3339)
}

func TestCanvasWindowAndOrdering(t *testing.T) {
	srv := &canvasServer{assignments: map[string]string{
		"1": fmt.Sprintf(`[
			{"name":"late","due_at":%q},
			{"name":"past","due_at":%q},
			{"name":"edge","due_at":%q},
			{"name":"nodue","due_at":null},
			{"name":"soon","due_at":%q}]`,
			due(5*24*time.Hour), due(-time.Minute), due(7*24*time.Hour), due(2*time.Hour)),
		"2": fmt.Sprintf(`[{"name":"beyond","due_at":%q},{"name":"mid","due_at":%q}]`,
			due(7*24*time.Hour+time.Second), due(24*time.Hour)),
		"3": fmt.Sprintf(`[{"name":"now","due_at":%q}]`, due(0)),
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	loc := mustLoc(t, "America/New_York")
	res := newTestCanvas(ts, "tok", loc).Fetch(context.Background())
	if res.Failed() {
		t.Fatalf("Fetch failed: %s", res.Err)
	}

	got := res.Data.([]Assignment)
	var names []string
	for _, a := range got {
		names = append(names, a.Name)
		if a.Due.Location() != loc {
			t.Errorf("Assignment %q not normalized to configured zone: %v", a.Name, a.Due.Location())
		}
		if a.Due.Before(testNow) || a.Due.After(testNow.Add(assignmentWindow)) {
			t.Errorf("Assignment %q outside window: %v", a.Name, a.Due)
		}
	}
	want := []string{"now", "soon", "mid", "late", "edge"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, names)
	}
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Due.Before(got[j].Due) }) {
		t.Error("Expected ascending due order")
	}
	if got[0].Course != "Unknown Course" {
		t.Errorf("Expected default course name, got %q", got[0].Course)
	}
}

func TestCanvasCourseFailureIsSkipped(t *testing.T) {
	srv := &canvasServer{
		failCourse: map[string]bool{"1": true},
		assignments: map[string]string{
			"1": fmt.Sprintf(`[{"name":"a","due_at":%q}]`, due(time.Hour)),
			"2": fmt.Sprintf(`[{"name":"b","due_at":%q}]`, due(time.Hour)),
		},
	}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	res := newTestCanvas(ts, "tok", time.UTC).Fetch(context.Background())
	if res.Failed() {
		t.Fatalf("Course failure must not fail the source: %s", res.Err)
	}
	got := res.Data.([]Assignment)
	if len(got) != 1 || got[0].Name != "b" || got[0].Course != "Databases" {
		t.Errorf("Expected only course B's assignment, got %+v", got)
	}
}

func TestCanvasCourseListingFailure(t *testing.T) {
	srv := &canvasServer{coursesFail: true}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	res := newTestCanvas(ts, "tok", time.UTC).Fetch(context.Background())
	if !strings.HasPrefix(res.Err, "Failed to fetch courses:") {
		t.Fatalf("Expected course listing failure, got %+v", res)
	}
	if srv.calls != 1 {
		t.Errorf("Expected no per-course calls, got %d total calls", srv.calls)
	}
}

func TestCanvasMissingTokenMakesNoCalls(t *testing.T) {
	srv := &canvasServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	res := newTestCanvas(ts, "", time.UTC).Fetch(context.Background())
	if res.Err != "CANVAS_API_TOKEN not set" {
		t.Fatalf("Expected missing token error, got %+v", res)
	}
	if srv.calls != 0 {
		t.Errorf("Expected no upstream calls, got %d", srv.calls)
	}
}
