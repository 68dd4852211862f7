package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_KeepsWireForm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		value string
	}{
		{name: "string id", input: `"abc-123"`, value: "abc-123"},
		{name: "numeric id", input: `42`, value: "42"},
		{name: "null id", input: `null`, value: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.input), &id))
			assert.Equal(t, tt.value, id.String())

			if tt.value == "" {
				assert.True(t, id.IsZero())
				return
			}
			out, err := json.Marshal(id)
			require.NoError(t, err)
			assert.Equal(t, tt.input, string(out))
		})
	}
}

func TestID_RejectsObjects(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{"id":1}`), &id))
}

func TestID_EqualIgnoresWireForm(t *testing.T) {
	var numeric, text ID
	require.NoError(t, json.Unmarshal([]byte(`7`), &numeric))
	require.NoError(t, json.Unmarshal([]byte(`"7"`), &text))
	assert.True(t, numeric.Equal(text))
	assert.False(t, numeric.Equal(NewID("8")))
}

func TestTimestamp_Unmarshal(t *testing.T) {
	tests := []struct {
		input   string
		want    Timestamp
		wantErr bool
	}{
		{input: `1700000000`, want: 1700000000},
		{input: `"1700000000"`, want: 1700000000},
		{input: `1700000000.9`, want: 1700000000},
		{input: `null`, want: 0},
		{input: `"yesterday"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ts)
		})
	}
}

func TestPost_KeepsRawPayload(t *testing.T) {
	payload := `{"id":"p1","slug":"hello","status":"publish","content":{"html":"<p>hi</p>"},"publication_date":100}`

	var p Post
	require.NoError(t, json.Unmarshal([]byte(payload), &p))

	assert.Equal(t, "p1", p.ID.String())
	assert.Equal(t, "hello", p.Slug)
	assert.True(t, p.IsPublished())
	assert.Equal(t, Timestamp(100), p.PublicationDate)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(out))
}

func TestNewIndexEntry_CopiesNestedValues(t *testing.T) {
	p := &Post{
		ID:            NewID("1"),
		Slug:          "first",
		Title:         "First",
		FeaturedImage: &FeaturedImage{URL: "https://example.com/a.webp", AltText: "a"},
		Category:      &CategoryRef{ID: NewID("c1"), Name: "News"},
	}

	entry := NewIndexEntry(p)
	p.Category.Name = "Changed"

	assert.Equal(t, "News", entry.Category.Name)
	assert.Equal(t, "first", entry.Slug)
	assert.Equal(t, "a", entry.FeaturedImage.AltText)
}

func TestCategory_PreservesExtraFields(t *testing.T) {
	payload := `{"id":"c1","name":"Tecnologia","slug":"tecnologia","color":"#f00"}`

	var c Category
	require.NoError(t, json.Unmarshal([]byte(payload), &c))
	assert.Equal(t, "c1", c.ID.String())
	assert.Equal(t, "Tecnologia", c.Name)
	assert.Len(t, c.Extra, 2)

	c.Name = "Tech"
	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1","name":"Tech","slug":"tecnologia","color":"#f00"}`, string(out))
}

func TestConflictError_MatchesSentinel(t *testing.T) {
	var err error = &ConflictError{Path: "a.json", Expected: "v1", Current: "v2"}
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "a.json")
}
