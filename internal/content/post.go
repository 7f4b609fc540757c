// Package content resolves blog posts from the remote API or the static
// content index into one normalized shape.
package content

import (
	"sort"
	"time"
)

// Source names where a UnifiedPost was loaded from.
type Source string

const (
	SourceAPI    Source = "api"
	SourceStatic Source = "static"
)

// SchemaKind selects the structured-data generator for a post.
type SchemaKind string

const (
	SchemaArticle SchemaKind = "Article"
	SchemaHowTo   SchemaKind = "HowTo"
	SchemaFAQPage SchemaKind = "FAQPage"
)

// OpenGraph holds social preview metadata.
type OpenGraph struct {
	Image    string `json:"image,omitempty"`
	ImageAlt string `json:"imageAlt,omitempty"`
}

// FAQItem is a question/answer pair.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// HowToStep is one step of a HowTo post.
type HowToStep struct {
	Name  string `json:"name"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// UnifiedPost is the normalized post returned regardless of source.
// Excerpt/Description and Content/Body carry the same value.
type UnifiedPost struct {
	Slug          string      `json:"slug"`
	SlugAsParams  string      `json:"slugAsParams"`
	Title         string      `json:"title"`
	Excerpt       string      `json:"excerpt"`
	Description   string      `json:"description"`
	Content       string      `json:"content"`
	Body          string      `json:"body"`
	DatePublished string      `json:"datePublished"`
	DateModified  string      `json:"dateModified,omitempty"`
	Published     bool        `json:"published"`
	Draft         bool        `json:"draft"`
	Category      string      `json:"category,omitempty"`
	Keywords      []string    `json:"keywords"`
	Tags          []string    `json:"tags"`
	Featured      bool        `json:"featured,omitempty"`
	Thumbnail     string      `json:"thumbnail,omitempty"`
	OpenGraph     OpenGraph   `json:"openGraph"`
	Schema        SchemaKind  `json:"schema,omitempty"`
	FAQ           []FAQItem   `json:"faq,omitempty"`
	Steps         []HowToStep `json:"steps,omitempty"`
	Source        Source      `json:"_source"`
	OriginalData  any         `json:"_originalData,omitempty"`
}

// SortByDatePublished orders posts newest first. Undated posts sort last.
func SortByDatePublished(posts []UnifiedPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		ti, iok := parseDate(posts[i].DatePublished)
		tj, jok := parseDate(posts[j].DatePublished)
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
}

var dateLayouts = []string{time.RFC3339Nano, time.DateTime, time.DateOnly}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
