package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
)

// The browse endpoints pass provider payloads through verbatim: no local
// state, no reshaping. Provider downtime surfaces as ErrProviderUnavailable
// so the handler layer can degrade gracefully.

// Trending returns the weekly trending list for "movie" or "tv".
func (c *Client) Trending(ctx context.Context, mediaType string) (json.RawMessage, error) {
	return c.passthrough(ctx, fmt.Sprintf("/trending/%s/week", mediaType))
}

// Popular returns the popular list for "movie" or "tv".
func (c *Client) Popular(ctx context.Context, mediaType string) (json.RawMessage, error) {
	return c.passthrough(ctx, fmt.Sprintf("/%s/popular", mediaType))
}

// TopRated returns the top-rated list for "movie" or "tv".
func (c *Client) TopRated(ctx context.Context, mediaType string) (json.RawMessage, error) {
	return c.passthrough(ctx, fmt.Sprintf("/%s/top_rated", mediaType))
}

// NowPlaying returns movies currently in theaters.
func (c *Client) NowPlaying(ctx context.Context) (json.RawMessage, error) {
	return c.passthrough(ctx, "/movie/now_playing")
}

// Genres returns the genre list for "movie" or "tv".
func (c *Client) Genres(ctx context.Context, mediaType string) (json.RawMessage, error) {
	return c.passthrough(ctx, fmt.Sprintf("/genre/%s/list", mediaType))
}

// Details returns raw details for a single movie or TV id.
func (c *Client) Details(ctx context.Context, mediaType string, tmdbID int64) (json.RawMessage, error) {
	return c.passthrough(ctx, fmt.Sprintf("/%s/%d", mediaType, tmdbID))
}

func (c *Client) passthrough(ctx context.Context, apiPath string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doGET(ctx, apiPath, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
