package socialdata

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Export is the on-disk layout read by FileSource. JSON files work too,
// since YAML is a superset.
//
//	profiles:
//	  jane-doe:
//	    name: Jane Doe
//	    history:
//	      - text: "..."
//	        posted_at: 2025-01-02T10:00:00Z
//	        kind: comment
//	    posts:
//	      - id: "7123"
//	        text: "..."
//	        posted_at: 2025-01-05T09:00:00Z
type Export struct {
	Profiles map[string]ExportProfile `yaml:"profiles" json:"profiles"`
}

// ExportProfile is one person in an Export.
type ExportProfile struct {
	Name     string        `yaml:"name" json:"name"`
	Headline string        `yaml:"headline" json:"headline"`
	About    string        `yaml:"about" json:"about"`
	History  []HistoryItem `yaml:"history" json:"history"`
	Posts    []RawPost     `yaml:"posts" json:"posts"`
}

// FileSource serves profiles and posts from a local export, for offline
// runs and for replaying a previous fetch.
type FileSource struct {
	export Export
	now    func() time.Time
}

// LoadFile reads an export from path.
func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading export %s: %w", path, err)
	}
	var exp Export
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parsing export %s: %w", path, err)
	}
	// Keys are matched after normalization, like live handles.
	normalized := make(map[string]ExportProfile, len(exp.Profiles))
	for k, v := range exp.Profiles {
		h, err := ExtractHandle(k)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", path, err)
		}
		normalized[h] = v
	}
	exp.Profiles = normalized
	return &FileSource{export: exp, now: time.Now}, nil
}

func (f *FileSource) lookup(id string) (string, ExportProfile, error) {
	handle, err := ExtractHandle(id)
	if err != nil {
		return "", ExportProfile{}, err
	}
	p, ok := f.export.Profiles[handle]
	if !ok {
		return "", ExportProfile{}, fmt.Errorf("%s: %w", handle, ErrNotFound)
	}
	return handle, p, nil
}

// FetchProfile returns the exported profile with history newest first.
func (f *FileSource) FetchProfile(_ context.Context, id string) (*Profile, error) {
	handle, ep, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	history := append([]HistoryItem(nil), ep.History...)
	for _, rp := range ep.Posts {
		history = append(history, HistoryItem{Text: rp.Text, PostedAt: rp.PostedAt, Kind: KindPost})
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].PostedAt.After(history[j].PostedAt)
	})
	name := ep.Name
	if name == "" {
		name = handle
	}
	return &Profile{
		Handle:    handle,
		URL:       "https://www.linkedin.com/in/" + handle,
		Name:      name,
		Headline:  ep.Headline,
		About:     ep.About,
		History:   history,
		FetchedAt: f.now(),
	}, nil
}

// FetchPosts returns every exported post. Recency filtering is left to the
// caller, as with the live client.
func (f *FileSource) FetchPosts(_ context.Context, id string, _ time.Time) ([]RawPost, error) {
	_, ep, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	return append([]RawPost(nil), ep.Posts...), nil
}
