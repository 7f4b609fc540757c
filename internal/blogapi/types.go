package blogapi

import "time"

// Status is the publication state of a remote post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// FAQ is a question/answer pair attached to FAQPage posts.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Step is one step of a HowTo post.
type Step struct {
	Name  string `json:"name"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// Post is a blog post as served by the remote content API.
type Post struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Excerpt       string     `json:"excerpt"`
	Content       string     `json:"content"`
	Status        Status     `json:"status"`
	Category      string     `json:"category,omitempty"`
	Keywords      []string   `json:"keywords,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Featured      bool       `json:"featured"`
	FeaturedImage string     `json:"featured_image,omitempty"`
	OGImage       string     `json:"og_image,omitempty"`
	OGImageAlt    string     `json:"og_image_alt,omitempty"`
	SchemaType    string     `json:"schema_type,omitempty"`
	FAQ           []FAQ      `json:"faq,omitempty"`
	Steps         []Step     `json:"steps,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// PostInput is the payload for creating or updating a post.
type PostInput struct {
	Slug          string   `json:"slug,omitempty"`
	Title         string   `json:"title,omitempty"`
	Excerpt       string   `json:"excerpt,omitempty"`
	Content       string   `json:"content,omitempty"`
	Status        Status   `json:"status,omitempty"`
	Category      string   `json:"category,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Featured      *bool    `json:"featured,omitempty"`
	FeaturedImage string   `json:"featured_image,omitempty"`
	OGImage       string   `json:"og_image,omitempty"`
	OGImageAlt    string   `json:"og_image_alt,omitempty"`
	SchemaType    string   `json:"schema_type,omitempty"`
	FAQ           []FAQ    `json:"faq,omitempty"`
	Steps         []Step   `json:"steps,omitempty"`
}

// ListParams filters a post listing.
type ListParams struct {
	Page         int
	PageSize     int
	StatusFilter Status
	Search       string
}

// Pagination describes the page returned by GetPosts.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// PostList is one page of posts.
type PostList struct {
	Posts      []Post     `json:"posts"`
	Pagination Pagination `json:"pagination"`
}
