package api

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/source"
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *source.Memory) {
	t.Helper()
	mem := source.NewMemory(model.Fallback())
	srv := NewServer(mem, opts...)
	if err := srv.Hub().Start(); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Hub().Stop()
		ts.Close()
	})
	return ts, mem
}

func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGraphEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/graph", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var ds model.Dataset
	if err := json.NewDecoder(resp.Body).Decode(&ds); err != nil {
		t.Fatal(err)
	}
	if len(ds.Entities) != 16 || len(ds.Relations) != 17 {
		t.Errorf("got %d entities / %d relations, want 16 / 17", len(ds.Entities), len(ds.Relations))
	}
}

func TestGraphEndpointEmptyDataset(t *testing.T) {
	srv := NewServer(source.NewMemory(model.Dataset{}))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/graph", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"entities":[],"relations":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestUpdateEntity(t *testing.T) {
	ts, mem := newTestServer(t)

	resp := doRequest(t, http.MethodPatch, ts.URL+"/api/entities/e02", `{"type":"机构","weight":9}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var ent model.Entity
	if err := json.NewDecoder(resp.Body).Decode(&ent); err != nil {
		t.Fatal(err)
	}
	if ent.ID != "e02" || ent.Type != "机构" || ent.Weight != 9 {
		t.Errorf("updated entity = %+v", ent)
	}
	if ent.Name != "国家发展和改革委员会" {
		t.Errorf("name changed to %q", ent.Name)
	}

	ds, _ := mem.Load(context.Background())
	if ds.Entities[1].Type != "机构" {
		t.Errorf("source not updated: %+v", ds.Entities[1])
	}
}

func TestUpdateEntityErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name string
		id   string
		body string
		want int
	}{
		{"unknown entity", "nope", `{"name":"x"}`, http.StatusNotFound},
		{"empty name", "e01", `{"name":"  "}`, http.StatusBadRequest},
		{"negative weight", "e01", `{"weight":-1}`, http.StatusBadRequest},
		{"malformed body", "e01", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, http.MethodPatch, ts.URL+"/api/entities/"+tt.id, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] == "" {
				t.Error("error body missing")
			}
		})
	}
}

func TestDeleteEntity(t *testing.T) {
	ts, mem := newTestServer(t)

	resp := doRequest(t, http.MethodDelete, ts.URL+"/api/entities/e01", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	ds, _ := mem.Load(context.Background())
	if len(ds.Entities) != 15 {
		t.Errorf("entities = %d, want 15", len(ds.Entities))
	}
	if len(ds.Relations) != 17 {
		t.Errorf("relations = %d, want 17 (no cascade)", len(ds.Relations))
	}

	resp = doRequest(t, http.MethodDelete, ts.URL+"/api/entities/e01", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteEntities(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/entities/delete", `{"ids":["e01","e02","unknown"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", out.Deleted)
	}
}

func TestTokenRequired(t *testing.T) {
	ts, _ := newTestServer(t, WithToken("s3cret"))

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/graph", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/graph", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	bad, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", bad.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/graph", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	ok, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	ok.Body.Close()
	if ok.StatusCode != http.StatusOK {
		t.Errorf("bearer token: status = %d, want 200", ok.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/graph?token=s3cret", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("query token: status = %d, want 200", resp.StatusCode)
	}
}

// readEvent returns the next event name on an SSE stream.
func readEvent(t *testing.T, sc *bufio.Scanner) string {
	t.Helper()
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return ""
}

func TestEventsStreamReportsMutations(t *testing.T) {
	ts, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	if ev := readEvent(t, sc); ev != "connected" {
		t.Fatalf("first event = %q, want connected", ev)
	}

	del := doRequest(t, http.MethodDelete, ts.URL+"/api/entities/e16", "")
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", del.StatusCode)
	}
	if ev := readEvent(t, sc); ev != "changed" {
		t.Errorf("event = %q, want changed", ev)
	}
}

func TestRenderEndpoint(t *testing.T) {
	var got model.Dataset
	snap := func(ctx context.Context, ds model.Dataset, w io.Writer) error {
		got = ds
		_, err := w.Write([]byte("\x89PNG"))
		return err
	}
	ts, _ := newTestServer(t, WithSnapshot(snap))

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/render.png", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "\x89PNG" {
		t.Errorf("body = %q", body)
	}
	if len(got.Entities) != 16 {
		t.Errorf("snapshot saw %d entities", len(got.Entities))
	}

	page := doRequest(t, http.MethodGet, ts.URL+"/", "")
	html, _ := io.ReadAll(page.Body)
	if !strings.Contains(string(html), "/api/render.png") || !strings.Contains(string(html), "EventSource") {
		t.Errorf("index page missing image or event stream:\n%s", html)
	}
}

func TestRenderEndpointDisabledWithoutSnapshot(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doRequest(t, http.MethodGet, ts.URL+"/api/render.png", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestIndexPageEscapesToken(t *testing.T) {
	srv := NewServer(source.NewMemory(model.Fallback()),
		WithToken(`a"b`),
		WithSnapshot(func(context.Context, model.Dataset, io.Writer) error { return nil }))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, `/?token=a%22b`, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), `token=a"b`) {
		t.Error("token written unescaped")
	}
	if !strings.Contains(rec.Body.String(), "token=a%22b") {
		t.Error("escaped token missing")
	}
}

func TestHubNotifyWithoutClients(t *testing.T) {
	h := NewChangeHub(nil)
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	h.Notify()
	if n := h.ClientCount(); n != 0 {
		t.Errorf("ClientCount = %d", n)
	}
	h.Stop()
}

func TestHubStopWithoutStart(t *testing.T) {
	srv := NewServer(source.NewMemory(model.Fallback()))
	done := make(chan struct{})
	go func() {
		srv.Hub().Stop()
		NewChangeHub(nil).Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a hub that was never started")
	}
}
