package content

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"cockpit/internal/blogapi"
)

const defaultListLimit = 100

// ErrEmptySlug is returned by ResolvePost for a blank slug.
var ErrEmptySlug = errors.New("empty slug")

// PostAPI is the read side of the remote blog API.
type PostAPI interface {
	GetPostBySlug(ctx context.Context, slug string) (*blogapi.Post, error)
	GetPosts(ctx context.Context, params blogapi.ListParams) (*blogapi.PostList, error)
}

// Authenticator reports whether the caller behind ctx has a session.
type Authenticator interface {
	IsAuthenticated(ctx context.Context) bool
}

// StaticSource provides the static content index in index order.
type StaticSource interface {
	Posts() []StaticPost
}

// Config holds the resolver's feature flags, read once at startup.
type Config struct {
	UseAPI bool
}

// ListOptions filters ResolvePosts. Nil Published means published only.
type ListOptions struct {
	Limit     int
	Published *bool
	Featured  *bool
	Category  string
}

// Bool returns a pointer to v, for ListOptions fields.
func Bool(v bool) *bool {
	return &v
}

func (o ListOptions) withDefaults() ListOptions {
	if o.Limit <= 0 {
		o.Limit = defaultListLimit
	}
	if o.Published == nil {
		o.Published = Bool(true)
	}
	return o
}

// ContentStats summarizes the content sources available to a caller.
type ContentStats struct {
	APIEnabled      bool   `json:"apiEnabled"`
	Authenticated   bool   `json:"authenticated"`
	PreferredSource Source `json:"preferredSource"`
	StaticTotal     int    `json:"staticTotal"`
	StaticPublished int    `json:"staticPublished"`
	StaticDrafts    int    `json:"staticDrafts"`
	StaticFeatured  int    `json:"staticFeatured"`
}

// Resolver picks the remote API or the static index for each request and
// normalizes the result. Remote failures fall back to static content.
type Resolver struct {
	cfg    Config
	api    PostAPI
	auth   Authenticator
	static StaticSource
	logger *zap.Logger
}

// NewResolver wires a Resolver. api and auth may be nil, which disables the API path.
func NewResolver(cfg Config, api PostAPI, auth Authenticator, static StaticSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{cfg: cfg, api: api, auth: auth, static: static, logger: logger}
}

func (r *Resolver) useAPI(ctx context.Context) bool {
	if !r.cfg.UseAPI || r.api == nil || r.auth == nil {
		return false
	}
	return r.auth.IsAuthenticated(ctx)
}

// ResolvePost returns the post for slug, or nil when neither source has it.
// Errors are only returned for a blank slug or a malformed static entry.
func (r *Resolver) ResolvePost(ctx context.Context, slug string) (*UnifiedPost, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, ErrEmptySlug
	}

	if r.useAPI(ctx) {
		post, err := r.fetchAPIPost(ctx, slug)
		if err == nil {
			return post, nil
		}
		r.logger.Warn("api post unavailable, falling back to static content",
			zap.String("slug", slug), zap.Error(err))
	}

	if r.static == nil {
		return nil, nil
	}
	for _, sp := range r.static.Posts() {
		if sp.Slug != slug {
			continue
		}
		post, err := FromStaticPost(sp)
		if err != nil {
			return nil, err
		}
		return &post, nil
	}
	return nil, nil
}

func (r *Resolver) fetchAPIPost(ctx context.Context, slug string) (*UnifiedPost, error) {
	remote, err := r.api.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if remote == nil {
		return nil, blogapi.ErrNotFound
	}
	post, err := FromAPIPost(*remote)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ResolvePosts lists posts. The API filters by status server-side; the static
// path filters everything locally and applies the limit last. Order is the
// source's own.
func (r *Resolver) ResolvePosts(ctx context.Context, opts ListOptions) ([]UnifiedPost, error) {
	opts = opts.withDefaults()

	if r.useAPI(ctx) {
		posts, err := r.fetchAPIPosts(ctx, opts)
		if err == nil {
			return posts, nil
		}
		r.logger.Warn("api post list unavailable, falling back to static content", zap.Error(err))
	}

	if r.static == nil {
		return []UnifiedPost{}, nil
	}
	out := make([]UnifiedPost, 0)
	for _, sp := range r.static.Posts() {
		if !matchesStatic(sp, opts) {
			continue
		}
		post, err := FromStaticPost(sp)
		if err != nil {
			return nil, err
		}
		out = append(out, post)
	}
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (r *Resolver) fetchAPIPosts(ctx context.Context, opts ListOptions) ([]UnifiedPost, error) {
	params := blogapi.ListParams{Page: 1, PageSize: opts.Limit}
	if *opts.Published {
		params.StatusFilter = blogapi.StatusPublished
	}
	list, err := r.api.GetPosts(ctx, params)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return []UnifiedPost{}, nil
	}

	out := make([]UnifiedPost, 0, len(list.Posts))
	for _, remote := range list.Posts {
		post, err := FromAPIPost(remote)
		if err != nil {
			r.logger.Warn("skipping malformed api post", zap.Error(err))
			continue
		}
		out = append(out, post)
	}
	return out, nil
}

func matchesStatic(p StaticPost, opts ListOptions) bool {
	if *opts.Published && (!p.Published || p.Draft) {
		return false
	}
	if opts.Featured != nil && p.Featured != *opts.Featured {
		return false
	}
	if opts.Category != "" && p.Category != opts.Category {
		return false
	}
	return true
}

// GetContentStats describes which source a caller would be served from and
// what the static index holds.
func (r *Resolver) GetContentStats(ctx context.Context) ContentStats {
	authenticated := r.auth != nil && r.auth.IsAuthenticated(ctx)
	stats := ContentStats{
		APIEnabled:      r.cfg.UseAPI && r.api != nil,
		Authenticated:   authenticated,
		PreferredSource: SourceStatic,
	}
	if r.useAPI(ctx) {
		stats.PreferredSource = SourceAPI
	}
	if r.static == nil {
		return stats
	}
	for _, p := range r.static.Posts() {
		stats.StaticTotal++
		if p.Published && !p.Draft {
			stats.StaticPublished++
		}
		if p.Draft {
			stats.StaticDrafts++
		}
		if p.Featured {
			stats.StaticFeatured++
		}
	}
	return stats
}
