package socialdata

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound means the profile or its activity does not exist.
	ErrNotFound = errors.New("profile not found")
	// ErrRateLimited matches every *RateLimitError.
	ErrRateLimited = errors.New("data api rate limited")
	// ErrUnavailable wraps every other failure to reach or decode the data API.
	ErrUnavailable = errors.New("data api unavailable")
	// ErrInvalidHandle means a profile identifier could not be normalized.
	ErrInvalidHandle = errors.New("invalid profile identifier")
)

// RateLimitError reports a 429 from the data API. It is never retried
// internally; the caller decides when to come back.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("data api rate limited, retry after %s", e.RetryAfter)
	}
	return "data api rate limited"
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// ItemKind distinguishes a person's own posts from comments they left.
type ItemKind string

const (
	KindPost    ItemKind = "post"
	KindComment ItemKind = "comment"
)

// HistoryItem is one piece of text a person wrote.
type HistoryItem struct {
	Text     string    `json:"text" yaml:"text"`
	PostedAt time.Time `json:"posted_at" yaml:"posted_at"`
	Kind     ItemKind  `json:"kind" yaml:"kind"`
}

// Profile holds a person's display fields and writing history.
type Profile struct {
	Handle    string        `json:"handle" yaml:"handle"`
	URL       string        `json:"url" yaml:"url"`
	Name      string        `json:"name" yaml:"name"`
	Headline  string        `json:"headline" yaml:"headline"`
	About     string        `json:"about" yaml:"about"`
	Location  string        `json:"location" yaml:"location"`
	Followers int           `json:"followers" yaml:"followers"`
	History   []HistoryItem `json:"history" yaml:"history"`
	FetchedAt time.Time     `json:"fetched_at" yaml:"fetched_at"`
}

// Texts returns the history bodies in order.
func (p *Profile) Texts() []string {
	out := make([]string, 0, len(p.History))
	for _, h := range p.History {
		out = append(out, h.Text)
	}
	return out
}

// Engagement holds reaction counts for a post.
type Engagement struct {
	Likes    int `json:"likes" yaml:"likes"`
	Comments int `json:"comments" yaml:"comments"`
	Shares   int `json:"shares" yaml:"shares"`
}

// RawPost is a post as returned by the data API, before any filtering.
type RawPost struct {
	ID         string     `json:"id" yaml:"id"`
	URL        string     `json:"url" yaml:"url"`
	Author     string     `json:"author" yaml:"author"`
	Text       string     `json:"text" yaml:"text"`
	PostedAt   time.Time  `json:"posted_at" yaml:"posted_at"`
	MediaType  string     `json:"media_type" yaml:"media_type"`
	Engagement Engagement `json:"engagement" yaml:"engagement"`
}
