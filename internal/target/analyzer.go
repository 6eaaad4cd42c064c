package target

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/drpaneas/voiceprint/internal/socialdata"
)

var (
	// ErrNoEligiblePosts means no post survived the recency and body filters.
	ErrNoEligiblePosts = errors.New("no eligible posts")
	// ErrPostNotFound means a requested post id is not among the eligible posts.
	ErrPostNotFound = errors.New("post not found")
)

// DefaultWindow is how far back a post may be and still be commented on.
const DefaultWindow = 30 * 24 * time.Hour

// Post is a normalized target post.
type Post struct {
	ID         string                `json:"id"`
	URL        string                `json:"url,omitempty"`
	Author     string                `json:"author,omitempty"`
	Text       string                `json:"text"`
	PostedAt   time.Time             `json:"posted_at"`
	Engagement socialdata.Engagement `json:"engagement"`
	MediaType  string                `json:"media_type,omitempty"`
	Kind       Kind                  `json:"kind"`
}

// Analyze keeps posts with a text body that were posted within window of
// now and returns them newest first. Posts with no timestamp are dropped
// since their recency is unknown. Ties are ordered by ID.
func Analyze(raw []socialdata.RawPost, now time.Time, window time.Duration) ([]Post, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := now.Add(-window)

	var out []Post
	var stale, empty, undated int
	for _, rp := range raw {
		text := strings.TrimSpace(rp.Text)
		switch {
		case text == "":
			empty++
			continue
		case rp.PostedAt.IsZero():
			undated++
			continue
		case rp.PostedAt.Before(cutoff):
			stale++
			continue
		}
		out = append(out, Post{
			ID:         rp.ID,
			URL:        rp.URL,
			Author:     rp.Author,
			Text:       text,
			PostedAt:   rp.PostedAt,
			Engagement: rp.Engagement,
			MediaType:  rp.MediaType,
			Kind:       Classify(text),
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d fetched, %d older than %s, %d without text, %d undated",
			ErrNoEligiblePosts, len(raw), stale, window, empty, undated)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PostedAt.Equal(out[j].PostedAt) {
			return out[i].PostedAt.After(out[j].PostedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Select returns the post with the given id, or the newest post when id is
// empty.
func Select(posts []Post, id string) (Post, error) {
	if len(posts) == 0 {
		return Post{}, ErrNoEligiblePosts
	}
	if id == "" {
		return posts[0], nil
	}
	for _, p := range posts {
		if p.ID == id {
			return p, nil
		}
	}
	return Post{}, fmt.Errorf("%w: %s", ErrPostNotFound, id)
}
