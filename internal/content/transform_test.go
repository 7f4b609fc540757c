package content

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"cockpit/internal/blogapi"
)

func TestFromAPIPost(t *testing.T) {
	published := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("CEST", 2*3600))
	updated := published.Add(48 * time.Hour)
	remote := blogapi.Post{
		ID:            "9",
		Slug:          "ship-it",
		Title:         "Ship it",
		Excerpt:       "Short",
		Content:       "## Body",
		Status:        blogapi.StatusPublished,
		Category:      "engineering",
		Keywords:      []string{"b", "a", "b"},
		FeaturedImage: "/img/thumb.png",
		SchemaType:    "HowTo",
		Steps:         []blogapi.Step{{Name: "One", Text: "Do it"}},
		PublishedAt:   &published,
		UpdatedAt:     &updated,
	}

	got, err := FromAPIPost(remote)
	assert.NoError(t, err)

	want := UnifiedPost{
		Slug:          "ship-it",
		SlugAsParams:  "ship-it",
		Title:         "Ship it",
		Excerpt:       "Short",
		Description:   "Short",
		Content:       "## Body",
		Body:          "## Body",
		DatePublished: "2024-05-06T05:08:09Z",
		DateModified:  "2024-05-08T05:08:09Z",
		Published:     true,
		Category:      "engineering",
		Keywords:      []string{"b", "a", "b"},
		Tags:          []string{},
		Thumbnail:     "/img/thumb.png",
		OpenGraph:     OpenGraph{Image: "/img/thumb.png", ImageAlt: "Ship it"},
		Schema:        SchemaHowTo,
		FAQ:           []FAQItem{},
		Steps:         []HowToStep{{Name: "One", Text: "Do it"}},
		Source:        SourceAPI,
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(UnifiedPost{}, "OriginalData")); diff != "" {
		t.Fatalf("FromAPIPost mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, remote, got.OriginalData)
}

func TestFromAPIPostStatusMapping(t *testing.T) {
	tests := map[blogapi.Status][2]bool{
		blogapi.StatusPublished: {true, false},
		blogapi.StatusDraft:     {false, true},
		blogapi.StatusArchived:  {false, false},
	}
	for status, want := range tests {
		got, err := FromAPIPost(blogapi.Post{Slug: "s", Title: "t", Status: status})
		assert.NoError(t, err)
		assert.Equal(t, want, [2]bool{got.Published, got.Draft}, status)
		assert.Equal(t, "", got.Content)
		assert.NotNil(t, got.Keywords)
	}
}

func TestFromAPIPostRequiresSlugAndTitle(t *testing.T) {
	_, err := FromAPIPost(blogapi.Post{Slug: "only-slug"})
	assert.ErrorIs(t, err, ErrMalformedRemote)
}

func TestFromStaticPost(t *testing.T) {
	got, err := FromStaticPost(StaticPost{
		Slug:        "faq",
		Title:       "FAQ",
		Description: "Answers",
		Date:        "2024-01-01",
		Published:   true,
		Schema:      "FAQPage",
		FAQ:         []StaticFAQ{{Question: "Q", Answer: "A"}},
		Thumbnail:   "/t.png",
		Raw:         "body",
	})

	assert.NoError(t, err)
	assert.Equal(t, "faq", got.SlugAsParams)
	assert.Equal(t, "Answers", got.Excerpt)
	assert.Equal(t, "body", got.Body)
	assert.Equal(t, SchemaFAQPage, got.Schema)
	assert.Equal(t, []FAQItem{{Question: "Q", Answer: "A"}}, got.FAQ)
	assert.Equal(t, OpenGraph{Image: "/t.png", ImageAlt: "FAQ"}, got.OpenGraph)
	assert.Equal(t, SourceStatic, got.Source)
	assert.Equal(t, []string{}, got.Tags)
}

func TestSortByDatePublished(t *testing.T) {
	posts := []UnifiedPost{
		{Slug: "undated"},
		{Slug: "old", DatePublished: "2023-01-01"},
		{Slug: "new", DatePublished: "2024-06-01T10:00:00Z"},
		{Slug: "mid", DatePublished: "2024-01-15 08:00:00"},
	}

	SortByDatePublished(posts)

	assert.Equal(t, []string{"new", "mid", "old", "undated"}, slugsOf(posts))
}
