package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"tonearm/internal/model"
)

// Client defines the Last.fm operations the engine depends on.
type Client interface {
	SearchAlbums(ctx context.Context, query string, limit int) ([]model.Candidate, error)
	AlbumTopTags(ctx context.Context, artist, album string, limit int) ([]model.Tag, error)
	ArtistTopTags(ctx context.Context, artist string, limit int) ([]model.Tag, error)
}

// HTTPClient is an API-key client for the Last.fm 2.0 JSON API.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPClient(apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:     "https://ws.audioscrobbler.com/2.0/",
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("LASTFM_API_MAX_ATTEMPTS", 5),
		baseBackoff: time.Duration(getEnvInt("LASTFM_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

// params builds the common query parameters for a method call.
func (c *HTTPClient) params(method string) url.Values {
	v := url.Values{}
	v.Set("method", method)
	v.Set("api_key", c.apiKey)
	v.Set("format", "json")
	return v
}

// apiError is the Last.fm error envelope returned with HTTP 200.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

func (c *HTTPClient) get(ctx context.Context, method string, v url.Values, out any) error {
	if c.apiKey == "" {
		return errors.New("missing Last.fm API key")
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+v.Encode(), nil)
	req.Header.Set("Accept", "application/json")
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, method, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("lastfm api status %d", resp.StatusCode)
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return err
	}
	var apierr apiError
	if err := json.Unmarshal(raw, &apierr); err == nil && apierr.Error != 0 {
		return fmt.Errorf("lastfm api error %d: %s", apierr.Error, apierr.Message)
	}
	return json.Unmarshal(raw, out)
}

// SearchAlbums returns ranked album matches for a free-text query.
func (c *HTTPClient) SearchAlbums(ctx context.Context, query string, limit int) ([]model.Candidate, error) {
	v := c.params("album.search")
	v.Set("album", query)
	v.Set("limit", strconv.Itoa(clamp(limit, 1, 30)))
	var raw struct {
		Results struct {
			AlbumMatches struct {
				Album []struct {
					Name   string `json:"name"`
					Artist string `json:"artist"`
					MBID   string `json:"mbid"`
					Image  []struct {
						URL  string `json:"#text"`
						Size string `json:"size"`
					} `json:"image"`
				} `json:"album"`
			} `json:"albummatches"`
		} `json:"results"`
	}
	if err := c.get(ctx, "album.search", v, &raw); err != nil {
		return nil, err
	}
	out := make([]model.Candidate, 0, len(raw.Results.AlbumMatches.Album))
	for _, a := range raw.Results.AlbumMatches.Album {
		if a.Name == "" {
			continue
		}
		cover := ""
		for _, img := range a.Image {
			if img.Size == "extralarge" && img.URL != "" {
				cover = img.URL
			}
		}
		out = append(out, model.Candidate{Title: a.Name, Artist: a.Artist, MBID: a.MBID, CoverURL: cover})
	}
	return out, nil
}

// AlbumTopTags returns the album's top tags ordered by count descending.
func (c *HTTPClient) AlbumTopTags(ctx context.Context, artist, album string, limit int) ([]model.Tag, error) {
	v := c.params("album.gettoptags")
	v.Set("artist", artist)
	v.Set("album", album)
	v.Set("autocorrect", "1")
	var raw struct {
		TopTags struct {
			Tag []struct {
				Name  string `json:"name"`
				Count int    `json:"count"`
			} `json:"tag"`
		} `json:"toptags"`
	}
	if err := c.get(ctx, "album.gettoptags", v, &raw); err != nil {
		return nil, err
	}
	return takeTags(raw.TopTags.Tag, limit), nil
}

// ArtistTopTags returns the artist's top tags, the fallback tier for albums
// with sparse tagging.
func (c *HTTPClient) ArtistTopTags(ctx context.Context, artist string, limit int) ([]model.Tag, error) {
	v := c.params("artist.gettoptags")
	v.Set("artist", artist)
	v.Set("autocorrect", "1")
	var raw struct {
		TopTags struct {
			Tag []struct {
				Name  string `json:"name"`
				Count int    `json:"count"`
			} `json:"tag"`
		} `json:"toptags"`
	}
	if err := c.get(ctx, "artist.gettoptags", v, &raw); err != nil {
		return nil, err
	}
	return takeTags(raw.TopTags.Tag, limit), nil
}

func takeTags(in []struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}, limit int) []model.Tag {
	out := make([]model.Tag, 0, limit)
	for _, t := range in {
		if t.Name == "" {
			continue
		}
		out = append(out, model.Tag{Name: t.Name, Count: t.Count})
		if len(out) >= limit {
			break
		}
	}
	return out
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (c *HTTPClient) doWithRetry(ctx context.Context, method string, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				// jitter +/-20%
				jitter := time.Duration(float64(wait) * 0.2)
				if jitter > 0 {
					wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
				}
				incRetry(method)
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		incRetry(method)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
