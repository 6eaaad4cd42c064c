package socialdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/drpaneas/voiceprint/internal/textutil"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxPages = 3
	maxBodyBytes    = 4 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL         string
	Host            string
	APIKey          string
	BearerToken     string
	RequestsPerHour int
	MaxPages        int
	// Transport replaces http.DefaultTransport under the auth and throttle layers.
	Transport http.RoundTripper
}

// Client fetches profiles and posts from the social-data HTTP API.
type Client struct {
	baseURL  string
	http     *http.Client
	maxPages int
	now      func() time.Time
}

// NewClient returns a Client for the given options.
func NewClient(opts Options) *Client {
	pages := opts.MaxPages
	if pages <= 0 {
		pages = defaultMaxPages
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     newHTTPClient(opts),
		maxPages: pages,
		now:      time.Now,
	}
}

// FetchProfile returns the person's display fields and their writing
// history (own posts and comments), newest first. Posts and comments are
// fetched concurrently; a failing comments feed is logged and skipped unless
// it is a rate limit.
func (c *Client) FetchProfile(ctx context.Context, id string) (*Profile, error) {
	handle, err := ExtractHandle(id)
	if err != nil {
		return nil, err
	}

	var (
		posts    []RawPost
		author   authorInfo
		comments []HistoryItem
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, author, err = c.fetchPostPages(gCtx, handle, time.Time{})
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = c.fetchComments(gCtx, handle)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				return err
			}
			slog.Warn("could not fetch comments", "handle", handle, "error", err)
			comments = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := &Profile{
		Handle:    handle,
		URL:       "https://www.linkedin.com/in/" + handle,
		Name:      author.name,
		Headline:  author.headline,
		FetchedAt: c.now(),
	}
	if p.Name == "" {
		p.Name = handle
	}
	for _, rp := range posts {
		if strings.TrimSpace(rp.Text) == "" {
			continue
		}
		p.History = append(p.History, HistoryItem{Text: rp.Text, PostedAt: rp.PostedAt, Kind: KindPost})
	}
	p.History = append(p.History, comments...)
	sort.SliceStable(p.History, func(i, j int) bool {
		return p.History[i].PostedAt.After(p.History[j].PostedAt)
	})

	slog.Info("fetched profile", "handle", handle, "posts", len(posts), "comments", len(comments))
	return p, nil
}

// FetchPosts returns the target's posts, paging until a page is empty, a
// page holds nothing newer than since, or the page limit is reached.
func (c *Client) FetchPosts(ctx context.Context, id string, since time.Time) ([]RawPost, error) {
	handle, err := ExtractHandle(id)
	if err != nil {
		return nil, err
	}
	posts, _, err := c.fetchPostPages(ctx, handle, since)
	if err != nil {
		return nil, err
	}
	slog.Info("fetched posts", "handle", handle, "count", len(posts))
	return posts, nil
}

func (c *Client) fetchPostPages(ctx context.Context, handle string, since time.Time) ([]RawPost, authorInfo, error) {
	var all []RawPost
	var author authorInfo
	for page := 1; page <= c.maxPages; page++ {
		body, err := c.get(ctx, "/profile/posts", url.Values{
			"username":    {handle},
			"page_number": {strconv.Itoa(page)},
		})
		if err != nil {
			if page > 1 && errors.Is(err, ErrNotFound) {
				break
			}
			return nil, author, err
		}
		posts, a := parsePosts(body)
		if author.name == "" {
			author = a
		}
		if len(posts) == 0 {
			break
		}
		all = append(all, posts...)
		if !since.IsZero() && !anyNewer(posts, since) {
			break
		}
	}
	return all, author, nil
}

func (c *Client) fetchComments(ctx context.Context, handle string) ([]HistoryItem, error) {
	body, err := c.get(ctx, "/profile/comments", url.Values{
		"username":    {handle},
		"page_number": {"1"},
	})
	if err != nil {
		return nil, err
	}
	return parseComments(body), nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrUnavailable, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("GET %s: %w", path, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"), c.now())}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: GET %s: status %d: %s", ErrUnavailable, path, resp.StatusCode, snippet(body))
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: GET %s: malformed JSON", ErrUnavailable, path)
	}
	if ok := gjson.GetBytes(body, "success"); ok.Exists() && !ok.Bool() {
		msg := gjson.GetBytes(body, "message").String()
		if strings.Contains(strings.ToLower(msg), "not found") {
			return nil, fmt.Errorf("GET %s: %s: %w", path, msg, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: GET %s: %s", ErrUnavailable, path, msg)
	}
	return body, nil
}

func anyNewer(posts []RawPost, since time.Time) bool {
	for _, p := range posts {
		if p.PostedAt.IsZero() || !p.PostedAt.Before(since) {
			return true
		}
	}
	return false
}

func snippet(b []byte) string {
	return textutil.Truncate(strings.TrimSpace(string(b)), 200, "...")
}
