package tmdb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(transport roundTripFunc, cache *SearchCache) *Client {
	c := NewClient("test-key", "en-US", &http.Client{Transport: transport}, cache)
	c.minInterval = 0
	return c
}

func TestSearchFiltersAndTruncates(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)

	longOverview := ""
	for i := 0; i < 350; i++ {
		longOverview += "x"
	}

	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		if req.URL.Path != "/3/search/multi" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		if req.URL.Query().Get("api_key") != "test-key" {
			t.Fatal("api_key not sent")
		}
		return jsonResponse(http.StatusOK, `{"results":[
			{"id":1,"title":"A Movie","media_type":"movie","overview":"`+longOverview+`","release_date":"1999-03-31"},
			{"id":2,"name":"Someone","media_type":"person"},
			{"id":3,"name":"A Show","media_type":"tv","first_air_date":"2008-01-20"}
		]}`), nil
	})

	client := newTestClient(httpc, nil)
	results, err := client.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (person filtered)", len(results))
	}
	if results[0].Title != "A Movie" || results[0].MediaType != "movie" {
		t.Errorf("first = %+v", results[0])
	}
	if got := len([]rune(results[0].Overview)); got > 301 {
		t.Errorf("overview length = %d, want truncated to 300 plus ellipsis", got)
	}
	if results[1].ReleaseDate != "2008-01-20" {
		t.Errorf("tv release date = %q", results[1].ReleaseDate)
	}
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}
}

func TestSearchUsesCache(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return jsonResponse(http.StatusOK, `{"results":[{"id":1,"title":"Cached","media_type":"movie"}]}`), nil
	})

	cache := NewSearchCache(afero.NewMemMapFs(), "cache", time.Hour)
	client := newTestClient(httpc, cache)

	if _, err := client.Search(context.Background(), "The Matrix"); err != nil {
		t.Fatalf("first search: %v", err)
	}
	// Same query modulo case and whitespace: served from cache.
	results, err := client.Search(context.Background(), "  the matrix ")
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Cached" {
		t.Fatalf("cached results = %+v", results)
	}
	if calls != 1 {
		t.Errorf("http calls = %d, want 1", calls)
	}
}

func TestDoGETRetriesOnServerError(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return jsonResponse(http.StatusInternalServerError, `{}`), nil
		}
		return jsonResponse(http.StatusOK, `{"id":603,"title":"The Matrix"}`), nil
	})

	client := newTestClient(httpc, nil)
	rec, err := client.MovieDetails(context.Background(), 603)
	if err != nil {
		t.Fatalf("MovieDetails: %v", err)
	}
	if rec.Title != "The Matrix" {
		t.Errorf("title = %q", rec.Title)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want retry once", calls)
	}
}

func TestDoGETNotFoundStopsRetrying(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	client := newTestClient(httpc, nil)
	_, err := client.MovieDetails(context.Background(), 999999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want no retries on 404", calls)
	}
}

func TestDoGETExhaustedRetries(t *testing.T) {
	httpc := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `{}`), nil
	})

	client := newTestClient(httpc, nil)
	_, err := client.TVDetails(context.Background(), 1396)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient("", "en-US", nil, nil)
	if _, err := client.Search(context.Background(), "anything"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := NormalizeQuery("  The MATRIX "); got != "the matrix" {
		t.Errorf("NormalizeQuery = %q", got)
	}
}

func TestPosterURL(t *testing.T) {
	if got := PosterURL("/abc.jpg"); got != "https://image.tmdb.org/t/p/w500/abc.jpg" {
		t.Errorf("PosterURL = %q", got)
	}
	if got := PosterURL(""); got != "" {
		t.Errorf("empty path -> %q", got)
	}
}
