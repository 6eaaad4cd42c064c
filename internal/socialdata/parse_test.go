package socialdata

import (
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestParsePosts(t *testing.T) {
	t.Run("nested data.posts envelope", func(t *testing.T) {
		body := []byte(`{"success":true,"data":{"posts":[
			{"text":"Shipped v2 today","posted_at":{"timestamp":1735725600000,"date":"2025-01-01 10:00:00"},
			 "stats":{"total_reactions":42,"comments":7,"reposts":3},
			 "urn":{"activity_urn":"7280000000000000001"},"url":"https://example.com/p/1",
			 "author":{"first_name":"Jane","last_name":"Doe","headline":"Builder"},
			 "images":[{"url":"x"}]},
			{"commentary":"Second","posted_at":"2025-01-02T08:00:00Z","stats":{"like":1,"shares":2},"id":99}
		]}}`)
		posts, author := parsePosts(body)
		if len(posts) != 2 {
			t.Fatalf("got %d posts, want 2", len(posts))
		}
		p := posts[0]
		if p.ID != "7280000000000000001" {
			t.Errorf("ID = %q", p.ID)
		}
		if p.Text != "Shipped v2 today" {
			t.Errorf("Text = %q", p.Text)
		}
		if want := time.UnixMilli(1735725600000).UTC(); !p.PostedAt.Equal(want) {
			t.Errorf("PostedAt = %v, want %v", p.PostedAt, want)
		}
		if p.Engagement != (Engagement{Likes: 42, Comments: 7, Shares: 3}) {
			t.Errorf("Engagement = %+v", p.Engagement)
		}
		if p.MediaType != "image" {
			t.Errorf("MediaType = %q, want image", p.MediaType)
		}
		if p.Author != "Jane Doe" || author.name != "Jane Doe" || author.headline != "Builder" {
			t.Errorf("author = %q / %+v", p.Author, author)
		}

		q := posts[1]
		if q.ID != "99" || q.Text != "Second" || q.MediaType != "text" {
			t.Errorf("second post = %+v", q)
		}
		if q.Engagement.Likes != 1 || q.Engagement.Shares != 2 {
			t.Errorf("second engagement = %+v", q.Engagement)
		}
		if want := time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC); !q.PostedAt.Equal(want) {
			t.Errorf("second PostedAt = %v, want %v", q.PostedAt, want)
		}
	})

	t.Run("bare array", func(t *testing.T) {
		posts, _ := parsePosts([]byte(`[{"post":{"text":"hi","timestamp":1735725600}}]`))
		if len(posts) != 1 || posts[0].Text != "hi" {
			t.Fatalf("posts = %+v", posts)
		}
		if want := time.Unix(1735725600, 0).UTC(); !posts[0].PostedAt.Equal(want) {
			t.Errorf("PostedAt = %v, want seconds epoch %v", posts[0].PostedAt, want)
		}
	})

	t.Run("no posts", func(t *testing.T) {
		posts, _ := parsePosts([]byte(`{"success":true,"data":{}}`))
		if len(posts) != 0 {
			t.Errorf("expected no posts, got %d", len(posts))
		}
	})
}

func TestParseComments(t *testing.T) {
	body := []byte(`{"data":[
		{"comment":{"text":"Spot on, we saw the same thing.","publishedAt":"2025-01-03"}},
		{"text":"   "},
		{"content":"Love this","createdAt":1735900000000}
	]}`)
	items := parseComments(body)
	if len(items) != 2 {
		t.Fatalf("got %d comments, want 2", len(items))
	}
	for _, it := range items {
		if it.Kind != KindComment {
			t.Errorf("Kind = %q, want comment", it.Kind)
		}
		if it.PostedAt.IsZero() {
			t.Errorf("PostedAt not parsed for %q", it.Text)
		}
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name string
		json string
		want time.Time
	}{
		{"milliseconds", `{"t":1735725600000}`, time.UnixMilli(1735725600000).UTC()},
		{"seconds", `{"t":1735725600}`, time.Unix(1735725600, 0).UTC()},
		{"numeric string", `{"t":"1735725600000"}`, time.UnixMilli(1735725600000).UTC()},
		{"rfc3339", `{"t":"2025-01-01T10:00:00Z"}`, time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"date only", `{"t":"2025-01-01"}`, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"garbage", `{"t":"last week"}`, time.Time{}},
		{"missing", `{}`, time.Time{}},
		{"zero", `{"t":0}`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTime(gjson.Parse(tt.json), "t")
			if !got.Equal(tt.want) {
				t.Errorf("parseTime(%s) = %v, want %v", tt.json, got, tt.want)
			}
		})
	}
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		json string
		want string
	}{
		{`{}`, "text"},
		{`{"images":[]}`, "text"},
		{`{"images":[{"u":1}]}`, "image"},
		{`{"video":{"url":"v"}}`, "video"},
		{`{"articleUrl":"https://a"}`, "article"},
		{`{"document":{"title":"d"}}`, "document"},
		{`{"video":null}`, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.json, func(t *testing.T) {
			if got := mediaType(gjson.Parse(tt.json)); got != tt.want {
				t.Errorf("mediaType(%s) = %q, want %q", tt.json, got, tt.want)
			}
		})
	}
}
