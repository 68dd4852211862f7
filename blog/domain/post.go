package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Status is the editorial state of a post as sent by the CMS.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusPublish Status = "publish"
)

// ID is an opaque identifier. The CMS may send it as a JSON string or number;
// it is re-encoded in the same form.
type ID struct {
	value   string
	numeric bool
}

// NewID returns a string ID.
func NewID(v string) ID {
	return ID{value: v}
}

func (id ID) String() string {
	return id.value
}

func (id ID) IsZero() bool {
	return id.value == ""
}

func (id ID) Equal(other ID) bool {
	return id.value == other.value
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID{value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID{value: n.String(), numeric: true}
	return nil
}

// Timestamp is a Unix time in seconds.
type Timestamp int64

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*ts = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*ts = Timestamp(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("publication_date must be numeric: %w", err)
	}
	*ts = Timestamp(f)
	return nil
}

type FeaturedImage struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text"`
}

// CategoryRef is the category snapshot embedded in posts and index entries.
type CategoryRef struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Post is a CMS content document. Raw holds the payload exactly as received and
// is what gets persisted; the typed fields are the ones the index depends on.
type Post struct {
	ID              ID             `json:"id"`
	Slug            string         `json:"slug"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Status          Status         `json:"status"`
	PublicationDate Timestamp      `json:"publication_date"`
	FeaturedImage   *FeaturedImage `json:"featured_image,omitempty"`
	Category        *CategoryRef   `json:"category,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func (p *Post) UnmarshalJSON(data []byte) error {
	type plain Post
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = Post(decoded)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the original payload when there is one.
func (p Post) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain Post
	return json.Marshal(plain(p))
}

func (p *Post) IsPublished() bool {
	return p.Status == StatusPublish
}

// IndexEntry is the listing projection of a published post.
type IndexEntry struct {
	ID              ID             `json:"id"`
	Slug            string         `json:"slug"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	PublicationDate Timestamp      `json:"publication_date"`
	FeaturedImage   *FeaturedImage `json:"featured_image"`
	Category        *CategoryRef   `json:"category"`
}

// NewIndexEntry projects a post into its index entry.
func NewIndexEntry(p *Post) IndexEntry {
	entry := IndexEntry{
		ID:              p.ID,
		Slug:            p.Slug,
		Title:           p.Title,
		Description:     p.Description,
		PublicationDate: p.PublicationDate,
	}
	if p.FeaturedImage != nil {
		img := *p.FeaturedImage
		entry.FeaturedImage = &img
	}
	if p.Category != nil {
		cat := *p.Category
		entry.Category = &cat
	}
	return entry
}
