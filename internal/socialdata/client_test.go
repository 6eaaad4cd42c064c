package socialdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:         srv.URL,
		Host:            "data.example.com",
		APIKey:          "rapid-fake",
		RequestsPerHour: 1_000_000,
		MaxPages:        3,
	})
}

func postPage(ts ...time.Time) string {
	body := `{"success":true,"data":[`
	for i, t := range ts {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"urn":{"activity_urn":"%d"},"text":"post %d","posted_at":{"timestamp":%d},"author":{"first_name":"Jane","last_name":"Doe"}}`,
			t.UnixMilli(), i, t.UnixMilli())
	}
	return body + `]}`
}

func TestClientSendsAPIKeyHeaders(t *testing.T) {
	var gotKey, gotHost string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-RapidAPI-Key")
		gotHost = r.Header.Get("X-RapidAPI-Host")
		fmt.Fprint(w, `{"success":true,"data":[]}`)
	})
	if _, err := c.FetchPosts(context.Background(), "jane-doe", time.Time{}); err != nil {
		t.Fatalf("FetchPosts() error: %v", err)
	}
	if gotKey != "rapid-fake" {
		t.Errorf("X-RapidAPI-Key = %q, want rapid-fake", gotKey)
	}
	if gotHost != "data.example.com" {
		t.Errorf("X-RapidAPI-Host = %q, want data.example.com", gotHost)
	}
}

func TestClientBearerToken(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-RapidAPI-Key")
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, BearerToken: "tok", RequestsPerHour: 1_000_000})
	if _, err := c.FetchPosts(context.Background(), "jane-doe", time.Time{}); err != nil {
		t.Fatalf("FetchPosts() error: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", gotAuth)
	}
	if gotKey != "" {
		t.Errorf("X-RapidAPI-Key = %q, want empty with bearer auth", gotKey)
	}
}

func TestFetchPostsPaging(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name      string
		pages     map[int]string
		since     time.Time
		wantPosts int
		wantCalls int32
	}{
		{
			name: "stops at empty page",
			pages: map[int]string{
				1: postPage(now, now.Add(-day)),
				2: `{"success":true,"data":[]}`,
			},
			wantPosts: 2,
			wantCalls: 2,
		},
		{
			name: "stops when nothing is newer than since",
			pages: map[int]string{
				1: postPage(now.Add(-40*day), now.Add(-41*day)),
				2: postPage(now.Add(-42 * day)),
			},
			since:     now.Add(-30 * day),
			wantPosts: 2,
			wantCalls: 1,
		},
		{
			name: "stops at page limit",
			pages: map[int]string{
				1: postPage(now),
				2: postPage(now.Add(-day)),
				3: postPage(now.Add(-2 * day)),
				4: postPage(now.Add(-3 * day)),
			},
			wantPosts: 3,
			wantCalls: 3,
		},
		{
			name: "404 after first page ends paging",
			pages: map[int]string{
				1: postPage(now),
			},
			wantPosts: 1,
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				if r.URL.Path != "/profile/posts" {
					t.Errorf("path = %q, want /profile/posts", r.URL.Path)
				}
				if got := r.URL.Query().Get("username"); got != "jane-doe" {
					t.Errorf("username = %q, want jane-doe", got)
				}
				page, _ := strconv.Atoi(r.URL.Query().Get("page_number"))
				body, ok := tt.pages[page]
				if !ok {
					http.NotFound(w, r)
					return
				}
				fmt.Fprint(w, body)
			})

			posts, err := c.FetchPosts(context.Background(), "https://www.linkedin.com/in/jane-doe/", tt.since)
			if err != nil {
				t.Fatalf("FetchPosts() error: %v", err)
			}
			if len(posts) != tt.wantPosts {
				t.Errorf("got %d posts, want %d", len(posts), tt.wantPosts)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("made %d requests, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			wantErr: ErrNotFound,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "120")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantErr: ErrRateLimited,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
			wantErr: ErrUnavailable,
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"data":[`) },
			wantErr: ErrUnavailable,
		},
		{
			name: "unsuccessful envelope naming a missing profile",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"success":false,"message":"Profile not found"}`)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "unsuccessful envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"success":false,"message":"upstream timeout"}`)
			},
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			})
			_, err := c.FetchPosts(context.Background(), "jane-doe", time.Time{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("FetchPosts() error = %v, want %v", err, tt.wantErr)
			}
			if got := calls.Load(); got != 1 {
				t.Errorf("made %d requests, want exactly 1", got)
			}
		})
	}
}

func TestRateLimitErrorCarriesRetryAfter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "90")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.FetchPosts(context.Background(), "jane-doe", time.Time{})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("error = %v, want *RateLimitError", err)
	}
	if rl.RetryAfter != 90*time.Second {
		t.Errorf("RetryAfter = %v, want 90s", rl.RetryAfter)
	}
}

func TestFetchProfile(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("merges posts and comments newest first", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/profile/posts":
				if r.URL.Query().Get("page_number") != "1" {
					fmt.Fprint(w, `{"data":[]}`)
					return
				}
				fmt.Fprint(w, postPage(now.Add(-2*time.Hour), now.Add(-4*time.Hour)))
			case "/profile/comments":
				fmt.Fprintf(w, `{"data":[{"text":"a comment","posted_at":{"timestamp":%d}}]}`, now.Add(-3*time.Hour).UnixMilli())
			}
		})
		p, err := c.FetchProfile(context.Background(), "@Jane-Doe")
		if err != nil {
			t.Fatalf("FetchProfile() error: %v", err)
		}
		if p.Handle != "jane-doe" || p.Name != "Jane Doe" {
			t.Errorf("handle/name = %q/%q", p.Handle, p.Name)
		}
		if len(p.History) != 3 {
			t.Fatalf("got %d history items, want 3", len(p.History))
		}
		wantKinds := []ItemKind{KindPost, KindComment, KindPost}
		for i, h := range p.History {
			if h.Kind != wantKinds[i] {
				t.Errorf("History[%d].Kind = %q, want %q", i, h.Kind, wantKinds[i])
			}
		}
	})

	t.Run("comments failure is skipped", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/profile/comments" {
				http.Error(w, "nope", http.StatusInternalServerError)
				return
			}
			if r.URL.Query().Get("page_number") != "1" {
				fmt.Fprint(w, `{"data":[]}`)
				return
			}
			fmt.Fprint(w, postPage(now))
		})
		p, err := c.FetchProfile(context.Background(), "jane-doe")
		if err != nil {
			t.Fatalf("FetchProfile() error: %v", err)
		}
		if len(p.History) != 1 {
			t.Errorf("got %d history items, want 1", len(p.History))
		}
	})

	t.Run("comments rate limit fails the fetch", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/profile/comments" {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, `{"data":[]}`)
		})
		_, err := c.FetchProfile(context.Background(), "jane-doe")
		if !errors.Is(err, ErrRateLimited) {
			t.Errorf("FetchProfile() error = %v, want ErrRateLimited", err)
		}
	})

	t.Run("invalid handle makes no request", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
		_, err := c.FetchProfile(context.Background(), "not a handle")
		if !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("error = %v, want ErrInvalidHandle", err)
		}
		if calls.Load() != 0 {
			t.Errorf("made %d requests, want 0", calls.Load())
		}
	})
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{"-5", 0},
		{now.Add(2 * time.Minute).Format(http.TimeFormat), 2 * time.Minute},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := retryAfter(tt.header, now); got != tt.want {
				t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestSlowServerBoundedByContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	t.Cleanup(func() { close(release) })

	if c.http.Timeout != 0 {
		t.Errorf("http client timeout = %v, want none so the caller's deadline decides", c.http.Timeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.FetchPosts(ctx, "jane-doe", time.Time{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("FetchPosts() error = %v, want context.DeadlineExceeded in the chain", err)
	}
}

func TestQuotaWaitPastDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":[]}`)
	}))
	defer srv.Close()
	c := NewClient(Options{BaseURL: srv.URL, RequestsPerHour: 1})

	if _, err := c.FetchPosts(context.Background(), "jane-doe", time.Time{}); err != nil {
		t.Fatalf("first FetchPosts() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	_, err := c.FetchPosts(ctx, "sam-lee", time.Time{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("FetchPosts() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("refused wait took %v, want an immediate error", elapsed)
	}
}
