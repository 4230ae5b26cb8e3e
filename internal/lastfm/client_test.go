package lastfm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// helper to create a client pointed at a test server
func newTestClient(ts *httptest.Server) *HTTPClient {
	c := NewHTTPClient("test-key")
	c.httpClient = ts.Client()
	c.baseURL = ts.URL + "/2.0/"
	c.maxAttempts = 3
	c.baseBackoff = 10 * time.Millisecond
	return c
}

func TestSearchAlbumsParsesMatches(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("method"); got != "album.search" {
			t.Fatalf("unexpected method param: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":{"albummatches":{"album":[
			{"name":"OK Computer","artist":"Radiohead","mbid":"mbid-1",
			 "image":[{"#text":"small.png","size":"small"},{"#text":"xl.png","size":"extralarge"}]},
			{"name":"","artist":"Broken Row"},
			{"name":"OKNOTOK","artist":"Radiohead","mbid":""}
		]}}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	got, err := c.SearchAlbums(context.Background(), "ok computer", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("unparseable entries must be skipped, got %d results", len(got))
	}
	if got[0].Title != "OK Computer" || got[0].Artist != "Radiohead" || got[0].CoverURL != "xl.png" {
		t.Fatalf("first candidate mismatch: %+v", got[0])
	}
}

func TestAlbumTopTagsLimitsAndOrders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"toptags":{"tag":[
			{"name":"jazz","count":100},
			{"name":"cool jazz","count":60},
			{"name":"trumpet","count":20},
			{"name":"1959","count":5}
		]}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	got, err := c.AlbumTopTags(context.Background(), "Miles Davis", "Kind of Blue", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected limit of 3 tags, got %d", len(got))
	}
	if got[0].Name != "jazz" || got[0].Count != 100 {
		t.Fatalf("tag order/count mismatch: %+v", got[0])
	}
}

func TestAPIErrorEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":10,"message":"Invalid API key"}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if _, err := c.ArtistTopTags(context.Background(), "anyone", 3); err == nil {
		t.Fatal("expected error from Last.fm error envelope")
	}
}

func TestDoWithRetryHandles429(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"toptags":{"tag":[]}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	got, err := c.AlbumTopTags(context.Background(), "a", "b", 3)
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty tags, got %+v", got)
	}
	if attempts < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempts)
	}
}

func TestMissingAPIKey(t *testing.T) {
	c := NewHTTPClient("")
	if _, err := c.SearchAlbums(context.Background(), "anything", 5); err == nil {
		t.Fatal("expected error without API key")
	}
}
