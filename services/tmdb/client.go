package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"moviemate/models"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p/w500"

	maxSearchResults = 10
	overviewMaxChars = 300
)

var (
	// ErrNotConfigured is returned on first use when no API key is set.
	ErrNotConfigured = errors.New("tmdb api key not configured")
	// ErrNotFound means the provider definitively has no matching record.
	ErrNotFound = errors.New("tmdb resource not found")
	// ErrProviderUnavailable covers transport failures and 5xx responses
	// that persist after retries. Callers never see raw transport errors.
	ErrProviderUnavailable = errors.New("tmdb unavailable")
)

// Client talks to the TMDB API with bounded timeouts and retry with
// exponential backoff on transient failures.
type Client struct {
	apiKey   string
	language string
	httpc    *http.Client
	cache    *SearchCache

	// Rate limiting
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

// NewClient constructs a TMDB client. cache may be nil to disable search
// memoization (detail fetches are never cached).
func NewClient(apiKey, language string, httpc *http.Client, cache *SearchCache) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(language) == "" {
		language = "en-US"
	}
	return &Client{
		apiKey:      strings.TrimSpace(apiKey),
		language:    language,
		httpc:       httpc,
		cache:       cache,
		minInterval: 20 * time.Millisecond, // TMDB has generous rate limits
	}
}

func (c *Client) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// doGET performs a GET against the TMDB API and decodes the JSON body into v.
// Connection errors, 429 and 5xx responses are retried up to 3 times with
// exponential backoff; other 4xx responses fail immediately. A 404 surfaces
// as ErrNotFound, everything else non-2xx as ErrProviderUnavailable.
func (c *Client) doGET(ctx context.Context, apiPath string, params url.Values, v any) error {
	if !c.isConfigured() {
		return ErrNotConfigured
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if params.Get("language") == "" {
		params.Set("language", c.language)
	}
	endpoint := tmdbBaseURL + apiPath + "?" + params.Encode()

	err := retry.Do(
		func() error {
			c.throttle()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpc.Do(req)
			if err != nil {
				log.Printf("[tmdb] http error for %s: %v", apiPath, err)
				return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(ErrNotFound)
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				log.Printf("[tmdb] retryable status for %s: %s", apiPath, resp.Status)
				return fmt.Errorf("%w: %s", ErrProviderUnavailable, resp.Status)
			case resp.StatusCode >= 400:
				return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrProviderUnavailable, resp.Status))
			}

			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: decode: %v", ErrProviderUnavailable, err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrProviderUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}

func (c *Client) throttle() {
	c.throttleMu.Lock()
	since := time.Since(c.lastRequest)
	if since < c.minInterval {
		time.Sleep(c.minInterval - since)
	}
	c.lastRequest = time.Now()
	c.throttleMu.Unlock()
}

type searchResponse struct {
	Results []struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		Title        string `json:"title"`
		MediaType    string `json:"media_type"`
		Overview     string `json:"overview"`
		PosterPath   string `json:"poster_path"`
		FirstAirDate string `json:"first_air_date"`
		ReleaseDate  string `json:"release_date"`
	} `json:"results"`
}

// Search runs a multi-search and returns at most 10 movie/tv results with
// overviews truncated to 300 characters. Results are memoized by normalized
// query for the cache TTL; cache failures are transparent.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	key := NormalizeQuery(query)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached, nil
		}
	}

	var payload searchResponse
	params := url.Values{}
	params.Set("query", query)
	if err := c.doGET(ctx, "/search/multi", params, &payload); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, maxSearchResults)
	for _, r := range payload.Results {
		if r.MediaType != "movie" && r.MediaType != "tv" {
			continue
		}
		title := r.Name
		if title == "" {
			title = r.Title
		}
		release := r.FirstAirDate
		if release == "" {
			release = r.ReleaseDate
		}
		results = append(results, models.SearchResult{
			ID:          r.ID,
			Title:       title,
			MediaType:   r.MediaType,
			Overview:    truncateChars(r.Overview, overviewMaxChars),
			PosterPath:  PosterURL(r.PosterPath),
			ReleaseDate: release,
		})
		if len(results) == maxSearchResults {
			break
		}
	}

	if c.cache != nil {
		c.cache.Put(key, results)
	}
	return results, nil
}

// MovieRecord is the subset of TMDB movie details the importer consumes.
type MovieRecord struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	Overview      string `json:"overview"`
	PosterPath    string `json:"poster_path"`
}

// TVRecord is the subset of TMDB TV details the importer consumes.
type TVRecord struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
	Seasons      []struct {
		SeasonNumber int `json:"season_number"`
		EpisodeCount int `json:"episode_count"`
	} `json:"seasons"`
}

// BestTitle returns the localized title, falling back to the original one.
func (m MovieRecord) BestTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.OriginalTitle
}

// BestName returns the localized name, falling back to the original one.
func (t TVRecord) BestName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.OriginalName
}

// MovieDetails fetches movie details for a TMDB movie id.
func (c *Client) MovieDetails(ctx context.Context, tmdbID int64) (*MovieRecord, error) {
	var rec MovieRecord
	if err := c.doGET(ctx, fmt.Sprintf("/movie/%d", tmdbID), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// TVDetails fetches TV details, including season entries, for a TMDB TV id.
func (c *Client) TVDetails(ctx context.Context, tmdbID int64) (*TVRecord, error) {
	var rec TVRecord
	if err := c.doGET(ctx, fmt.Sprintf("/tv/%d", tmdbID), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PosterURL converts a TMDB relative poster path into a full image URL.
func PosterURL(imagePath string) string {
	trimmed := strings.TrimSpace(imagePath)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return tmdbImageBaseURL + trimmed
}

// truncateChars trims s to at most n runes, appending an ellipsis on cut.
func truncateChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}

// NormalizeQuery case-folds and trims a search query for cache keying.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
