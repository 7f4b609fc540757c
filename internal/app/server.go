package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"cockpit/internal/auth"
	"cockpit/internal/blogapi"
	"cockpit/internal/content"
	"cockpit/internal/docstore"
	"cockpit/internal/mdx"
	"cockpit/internal/pipeline"
	"cockpit/internal/store"
)

const maxBodyBytes = 1 << 20

// PostWriter is the write side of the remote blog API.
type PostWriter interface {
	CreatePost(ctx context.Context, in blogapi.PostInput) (*blogapi.Post, error)
	UpdatePost(ctx context.Context, id string, in blogapi.PostInput) (*blogapi.Post, error)
	PublishPost(ctx context.Context, id string) (*blogapi.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// GenerationHistory lists past image generations.
type GenerationHistory interface {
	Recent(ctx context.Context, slug string, limit int) ([]store.Generation, error)
}

// Deps are the components served over HTTP. Posts and Generations may be nil.
type Deps struct {
	Resolver    *content.Resolver
	Auth        *auth.Authenticator
	Posts       PostWriter
	Docs        *docstore.Store
	Pipeline    *pipeline.Pipeline
	Generations GenerationHistory
	Logger      *zap.Logger
}

// Server wires handlers and their dependencies together.
type Server struct {
	deps    Deps
	logger  *zap.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// NewServer constructs an HTTP handler serving the content and debug APIs.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{deps: deps, logger: logger, mux: http.NewServeMux()}

	srv.mux.HandleFunc("GET /api/posts", srv.handleListPosts)
	srv.mux.HandleFunc("GET /api/posts/{slug}", srv.handleGetPost)
	srv.mux.HandleFunc("GET /api/content/stats", srv.handleStats)

	srv.mux.HandleFunc("POST /cockpit/posts", auth.RequireSession(srv.handleCreatePost))
	srv.mux.HandleFunc("PUT /cockpit/posts/{id}", auth.RequireSession(srv.handleUpdatePost))
	srv.mux.HandleFunc("POST /cockpit/posts/{id}/publish", auth.RequireSession(srv.handlePublishPost))
	srv.mux.HandleFunc("DELETE /cockpit/posts/{id}", auth.RequireSession(srv.handleDeletePost))

	srv.mux.HandleFunc("GET /debug/analyze/{slug}", srv.handleAnalyze)
	srv.mux.HandleFunc("POST /debug/insertions/{slug}/validate", srv.handleValidateInsertions)
	srv.mux.HandleFunc("POST /debug/insertions/{slug}", auth.RequireSession(srv.handleApplyInsertions))
	srv.mux.HandleFunc("POST /debug/images/{slug}", auth.RequireSession(srv.handleGenerateImages))
	srv.mux.HandleFunc("GET /debug/generations/{slug}", srv.handleGenerations)

	srv.handler = srv.mux
	if deps.Auth != nil {
		srv.handler = deps.Auth.Middleware(srv.mux)
	}
	return srv
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := content.ListOptions{Category: strings.TrimSpace(q.Get("category"))}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = limit
	}
	var err error
	if opts.Published, err = boolParam(q.Get("published")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid published flag")
		return
	}
	if opts.Featured, err = boolParam(q.Get("featured")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid featured flag")
		return
	}

	posts, err := s.deps.Resolver.ResolvePosts(r.Context(), opts)
	if err != nil {
		s.logger.Error("resolve posts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load posts")
		return
	}
	content.SortByDatePublished(posts)
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts, "count": len(posts)})
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.PathValue("slug"))
	post, err := s.deps.Resolver.ResolvePost(r.Context(), slug)
	if err != nil {
		if errors.Is(err, content.ErrEmptySlug) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("resolve post", zap.String("slug", slug), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Resolver.GetContentStats(r.Context()))
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if !s.requirePosts(w) {
		return
	}
	var in blogapi.PostInput
	if !decodeBody(w, r, &in) {
		return
	}
	post, err := s.deps.Posts.CreatePost(r.Context(), in)
	if err != nil {
		s.writeAPIError(w, "create post", err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	if !s.requirePosts(w) {
		return
	}
	var in blogapi.PostInput
	if !decodeBody(w, r, &in) {
		return
	}
	post, err := s.deps.Posts.UpdatePost(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeAPIError(w, "update post", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handlePublishPost(w http.ResponseWriter, r *http.Request) {
	if !s.requirePosts(w) {
		return
	}
	post, err := s.deps.Posts.PublishPost(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAPIError(w, "publish post", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if !s.requirePosts(w) {
		return
	}
	if err := s.deps.Posts.DeletePost(r.Context(), r.PathValue("id")); err != nil {
		s.writeAPIError(w, "delete post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	slug, ok := s.documentSlug(w, r)
	if !ok {
		return
	}
	res, err := s.deps.Pipeline.Analyze(r.Context(), slug)
	if err != nil {
		s.writeDocumentError(w, "analyze", slug, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type insertionsRequest struct {
	Insertions []mdx.ImageInsertion `json:"insertions"`
}

func (s *Server) handleValidateInsertions(w http.ResponseWriter, r *http.Request) {
	slug, ok := s.documentSlug(w, r)
	if !ok {
		return
	}
	var req insertionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.deps.Docs.Validate(slug, req.Insertions)
	if err != nil {
		s.writeDocumentError(w, "validate insertions", slug, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleApplyInsertions(w http.ResponseWriter, r *http.Request) {
	slug, ok := s.documentSlug(w, r)
	if !ok {
		return
	}
	var req insertionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.deps.Docs.Update(slug, req.Insertions)
	if err != nil {
		s.writeDocumentError(w, "apply insertions", slug, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGenerateImages(w http.ResponseWriter, r *http.Request) {
	slug, ok := s.documentSlug(w, r)
	if !ok {
		return
	}
	var opts pipeline.RunOptions
	if r.ContentLength != 0 && !decodeBody(w, r, &opts) {
		return
	}
	report, err := s.deps.Pipeline.Run(r.Context(), slug, opts)
	if err != nil {
		s.writeDocumentError(w, "generate images", slug, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	slug, ok := s.documentSlug(w, r)
	if !ok {
		return
	}
	if s.deps.Generations == nil {
		writeJSON(w, http.StatusOK, map[string]any{"generations": []store.Generation{}})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	gens, err := s.deps.Generations.Recent(r.Context(), slug, limit)
	if err != nil {
		s.logger.Error("list generations", zap.String("slug", slug), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load generations")
		return
	}
	if gens == nil {
		gens = []store.Generation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"generations": gens})
}

func (s *Server) requirePosts(w http.ResponseWriter) bool {
	if s.deps.Posts == nil {
		writeError(w, http.StatusServiceUnavailable, "blog api not configured")
		return false
	}
	return true
}

func (s *Server) writeAPIError(w http.ResponseWriter, op string, err error) {
	var apiErr *blogapi.APIError
	switch {
	case errors.Is(err, blogapi.ErrNotFound):
		writeError(w, http.StatusNotFound, "post not found")
	case errors.Is(err, blogapi.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "blog api rejected credentials")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity:
		writeError(w, http.StatusUnprocessableEntity, apiErr.Body)
	default:
		s.logger.Error(op, zap.Error(err))
		writeError(w, http.StatusBadGateway, "blog api request failed")
	}
}

func (s *Server) writeDocumentError(w http.ResponseWriter, op, slug string, err error) {
	var verr *docstore.ValidationError
	switch {
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, docstore.ErrInvalidSlug):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "invalid insertions",
			"errors": verr.Errors,
		})
	case errors.Is(err, mdx.ErrUnterminatedFrontmatter):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusRequestTimeout, "request cancelled")
	default:
		s.logger.Error(op, zap.String("slug", slug), zap.Error(err))
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

// documentSlug resolves the {slug} path value to a document slug, answering
// 404 when it cannot name a document.
func (s *Server) documentSlug(w http.ResponseWriter, r *http.Request) (string, bool) {
	slug, err := s.deps.Docs.Resolve(r.PathValue("slug"))
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return "", false
	}
	return slug, true
}

func boolParam(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
