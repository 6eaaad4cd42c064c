package socialdata

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type authorInfo struct {
	name     string
	headline string
}

// The API has shipped several envelope shapes over time; try each.
var (
	postArrayPaths    = []string{"data.posts", "data", "posts", "@this"}
	commentArrayPaths = []string{"data.comments", "data", "comments", "@this"}
	timeFields        = []string{"posted_at.timestamp", "posted_at.date", "posted_at", "publishedAt", "createdAt", "postedAt", "timestamp", "date"}
)

func firstArray(body []byte, paths []string) gjson.Result {
	for _, p := range paths {
		if r := gjson.GetBytes(body, p); r.IsArray() {
			return r
		}
	}
	return gjson.Result{}
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func firstInt(r gjson.Result, paths ...string) int {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() {
			return int(v.Int())
		}
	}
	return 0
}

func parsePosts(body []byte) ([]RawPost, authorInfo) {
	var posts []RawPost
	var author authorInfo
	firstArray(body, postArrayPaths).ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		p := item
		if inner := item.Get("post"); inner.IsObject() {
			p = inner
		}
		rp := RawPost{
			ID:        firstString(p, "urn.activity_urn", "full_urn", "id", "urn"),
			URL:       firstString(p, "url", "postUrl"),
			Text:      firstString(p, "text", "commentary", "caption"),
			PostedAt:  parseTime(p, timeFields...),
			MediaType: mediaType(p),
			Engagement: Engagement{
				Likes:    firstInt(p, "stats.total_reactions", "stats.like", "likes"),
				Comments: firstInt(p, "stats.comments", "comments_count"),
				Shares:   firstInt(p, "stats.reposts", "stats.shares", "shares"),
			},
		}
		if id := p.Get("id"); rp.ID == "" && id.Type == gjson.Number {
			rp.ID = id.Raw
		}
		a := parseAuthor(p.Get("author"))
		rp.Author = a.name
		if author.name == "" {
			author = a
		}
		posts = append(posts, rp)
		return true
	})
	return posts, author
}

func parseAuthor(a gjson.Result) authorInfo {
	if !a.Exists() {
		return authorInfo{}
	}
	if a.Type == gjson.String {
		return authorInfo{name: a.String()}
	}
	name := strings.TrimSpace(a.Get("first_name").String() + " " + a.Get("last_name").String())
	if name == "" {
		name = firstString(a, "name", "username")
	}
	return authorInfo{name: name, headline: a.Get("headline").String()}
}

func parseComments(body []byte) []HistoryItem {
	var items []HistoryItem
	firstArray(body, commentArrayPaths).ForEach(func(_, item gjson.Result) bool {
		c := item
		if inner := item.Get("comment"); inner.IsObject() {
			c = inner
		}
		text := firstString(c, "text", "content", "commentary", "comment")
		if strings.TrimSpace(text) == "" {
			return true
		}
		items = append(items, HistoryItem{
			Text:     text,
			PostedAt: parseTime(c, timeFields...),
			Kind:     KindComment,
		})
		return true
	})
	return items
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime reads the first usable timestamp among fields. Numbers above
// 1e10 are milliseconds, smaller ones seconds.
func parseTime(r gjson.Result, fields ...string) time.Time {
	for _, f := range fields {
		v := r.Get(f)
		switch v.Type {
		case gjson.Number:
			return fromEpoch(v.Int())
		case gjson.String:
			s := strings.TrimSpace(v.String())
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return fromEpoch(n)
			}
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC()
				}
			}
		}
	}
	return time.Time{}
}

func fromEpoch(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if n > 1e10 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

func mediaType(p gjson.Result) string {
	switch {
	case nonEmpty(p.Get("images")) || nonEmpty(p.Get("image")):
		return "image"
	case nonEmpty(p.Get("video")):
		return "video"
	case nonEmpty(p.Get("article")) || nonEmpty(p.Get("articleUrl")):
		return "article"
	case nonEmpty(p.Get("document")):
		return "document"
	default:
		return "text"
	}
}

func nonEmpty(r gjson.Result) bool {
	if !r.Exists() || r.Type == gjson.Null {
		return false
	}
	if r.IsArray() {
		return len(r.Array()) > 0
	}
	if r.IsObject() {
		return len(r.Map()) > 0
	}
	return r.String() != "" && r.Type != gjson.False
}
