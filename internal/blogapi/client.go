// Package blogapi is a client for the remote blog content API used by the
// cockpit dashboard.
package blogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound matches an APIError with status 404.
	ErrNotFound = errors.New("post not found")
	// ErrUnauthorized matches an APIError with status 401.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("blog api %s %s: status %d body %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is lets errors.Is match status-specific sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// TokenFunc returns the bearer token to send with a request, or "".
type TokenFunc func(ctx context.Context) string

// Client talks JSON to the blog API rooted at baseURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenFunc
}

// NewClient returns a Client. A nil httpClient gets a 15 second timeout.
func NewClient(baseURL string, httpClient *http.Client, token TokenFunc) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		token:      token,
	}
}

// GetPostBySlug fetches a single post.
func (c *Client) GetPostBySlug(ctx context.Context, slug string) (*Post, error) {
	var p Post
	if err := c.do(ctx, http.MethodGet, "/posts/slug/"+url.PathEscape(slug), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPosts lists posts, one page at a time.
func (c *Client) GetPosts(ctx context.Context, params ListParams) (*PostList, error) {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(params.PageSize))
	}
	if params.StatusFilter != "" {
		q.Set("status_filter", string(params.StatusFilter))
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}

	var list PostList
	if err := c.do(ctx, http.MethodGet, "/posts", q, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreatePost creates a draft or published post.
func (c *Client) CreatePost(ctx context.Context, in PostInput) (*Post, error) {
	var p Post
	if err := c.do(ctx, http.MethodPost, "/posts", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePost replaces the given fields of post id.
func (c *Client) UpdatePost(ctx context.Context, id string, in PostInput) (*Post, error) {
	var p Post
	if err := c.do(ctx, http.MethodPut, "/posts/"+url.PathEscape(id), nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PublishPost marks post id as published.
func (c *Client) PublishPost(ctx context.Context, id string) (*Post, error) {
	var p Post
	if err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(id)+"/publish", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePost removes post id.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(data)), 512),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
