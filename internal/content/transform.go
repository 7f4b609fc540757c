package content

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cockpit/internal/blogapi"
)

var (
	// ErrMalformedStatic marks a static index entry that violates the build-time shape.
	ErrMalformedStatic = errors.New("malformed static post")
	// ErrMalformedRemote marks an API post missing its slug or title.
	ErrMalformedRemote = errors.New("malformed remote post")
)

// FromAPIPost normalizes a remote post.
func FromAPIPost(p blogapi.Post) (UnifiedPost, error) {
	if strings.TrimSpace(p.Slug) == "" || strings.TrimSpace(p.Title) == "" {
		return UnifiedPost{}, fmt.Errorf("%w: id %q", ErrMalformedRemote, p.ID)
	}

	published := ""
	switch {
	case p.PublishedAt != nil:
		published = formatTime(*p.PublishedAt)
	case p.CreatedAt != nil:
		published = formatTime(*p.CreatedAt)
	}
	modified := ""
	if p.UpdatedAt != nil {
		modified = formatTime(*p.UpdatedAt)
	}

	faq := make([]FAQItem, 0, len(p.FAQ))
	for _, f := range p.FAQ {
		faq = append(faq, FAQItem{Question: f.Question, Answer: f.Answer})
	}
	steps := make([]HowToStep, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, HowToStep{Name: s.Name, Text: s.Text, Image: s.Image})
	}

	ogImage := p.OGImage
	if ogImage == "" {
		ogImage = p.FeaturedImage
	}

	return UnifiedPost{
		Slug:          p.Slug,
		SlugAsParams:  p.Slug,
		Title:         p.Title,
		Excerpt:       p.Excerpt,
		Description:   p.Excerpt,
		Content:       p.Content,
		Body:          p.Content,
		DatePublished: published,
		DateModified:  modified,
		Published:     p.Status == blogapi.StatusPublished,
		Draft:         p.Status == blogapi.StatusDraft,
		Category:      p.Category,
		Keywords:      nonNil(p.Keywords),
		Tags:          nonNil(p.Tags),
		Featured:      p.Featured,
		Thumbnail:     p.FeaturedImage,
		OpenGraph:     OpenGraph{Image: ogImage, ImageAlt: firstNonEmpty(p.OGImageAlt, p.Title)},
		Schema:        schemaKind(p.SchemaType),
		FAQ:           faq,
		Steps:         steps,
		Source:        SourceAPI,
		OriginalData:  p,
	}, nil
}

// FromStaticPost normalizes a static index entry.
func FromStaticPost(p StaticPost) (UnifiedPost, error) {
	if strings.TrimSpace(p.Slug) == "" || strings.TrimSpace(p.Title) == "" {
		return UnifiedPost{}, fmt.Errorf("%w: %q", ErrMalformedStatic, p.Path)
	}

	faq := make([]FAQItem, 0, len(p.FAQ))
	for _, f := range p.FAQ {
		faq = append(faq, FAQItem(f))
	}
	steps := make([]HowToStep, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, HowToStep(s))
	}

	return UnifiedPost{
		Slug:          p.Slug,
		SlugAsParams:  firstNonEmpty(p.SlugAsParams, p.Slug),
		Title:         p.Title,
		Excerpt:       p.Description,
		Description:   p.Description,
		Content:       p.Raw,
		Body:          p.Raw,
		DatePublished: p.Date,
		DateModified:  p.DateModified,
		Published:     p.Published,
		Draft:         p.Draft,
		Category:      p.Category,
		Keywords:      nonNil(p.Keywords),
		Tags:          nonNil(p.Tags),
		Featured:      p.Featured,
		Thumbnail:     p.Thumbnail,
		OpenGraph:     OpenGraph{Image: firstNonEmpty(p.OGImage, p.Thumbnail), ImageAlt: firstNonEmpty(p.OGImageAlt, p.Title)},
		Schema:        schemaKind(p.Schema),
		FAQ:           faq,
		Steps:         steps,
		Source:        SourceStatic,
		OriginalData:  p,
	}, nil
}

func schemaKind(raw string) SchemaKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "howto":
		return SchemaHowTo
	case "faqpage", "faq":
		return SchemaFAQPage
	case "":
		return ""
	default:
		return SchemaArticle
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
