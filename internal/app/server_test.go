package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cockpit/internal/auth"
	"cockpit/internal/blogapi"
	"cockpit/internal/content"
	"cockpit/internal/docstore"
	"cockpit/internal/imagegen"
	"cockpit/internal/pipeline"
	"cockpit/internal/store"
)

const testToken = "secret-token"

const guideDoc = `---
title: Guide
---

## Install
Installation needs a few steps that are described here in enough detail.

## Use
Short.
`

type mockPosts struct {
	create  func(ctx context.Context, in blogapi.PostInput) (*blogapi.Post, error)
	update  func(ctx context.Context, id string, in blogapi.PostInput) (*blogapi.Post, error)
	publish func(ctx context.Context, id string) (*blogapi.Post, error)
	del     func(ctx context.Context, id string) error
}

func (m *mockPosts) CreatePost(ctx context.Context, in blogapi.PostInput) (*blogapi.Post, error) {
	return m.create(ctx, in)
}

func (m *mockPosts) UpdatePost(ctx context.Context, id string, in blogapi.PostInput) (*blogapi.Post, error) {
	return m.update(ctx, id, in)
}

func (m *mockPosts) PublishPost(ctx context.Context, id string) (*blogapi.Post, error) {
	return m.publish(ctx, id)
}

func (m *mockPosts) DeletePost(ctx context.Context, id string) error {
	return m.del(ctx, id)
}

type stubAgent struct{}

func (stubAgent) Generate(_ context.Context, _ string, _ imagegen.Options) imagegen.Result {
	return imagegen.Result{Success: true, ImageURL: "/images/generated/install.png"}
}

type testEnv struct {
	srv  *Server
	dir  string
	logs *store.GenerationLog
}

func newTestEnv(t *testing.T, posts PostWriter) *testEnv {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.mdx"), []byte(guideDoc), 0o644))

	static := content.NewStaticIndex([]content.StaticPost{
		{Slug: "old", Title: "Old", Date: "2023-01-01", Published: true, Category: "news"},
		{Slug: "new", Title: "New", Date: "2024-05-01", Published: true, Featured: true, Category: "news"},
		{Slug: "hidden", Title: "Hidden", Date: "2024-06-01", Published: false},
		{Slug: "misc", Title: "Misc", Published: true, Category: "other"},
	})
	authn := auth.New([]string{testToken})

	db, err := store.Open(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logs := store.NewGenerationLog(db, store.DriverSQLite)
	require.NoError(t, logs.Migrate(context.Background()))

	docs := docstore.New(dir, zap.NewNop())
	srv := NewServer(Deps{
		Resolver:    content.NewResolver(content.Config{}, nil, authn, static, zap.NewNop()),
		Auth:        authn,
		Posts:       posts,
		Docs:        docs,
		Pipeline:    pipeline.New(docs, stubAgent{}, logs, imagegen.Options{}, zap.NewNop()),
		Generations: logs,
		Logger:      zap.NewNop(),
	})
	return &testEnv{srv: srv, dir: dir, logs: logs}
}

func (e *testEnv) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type postList struct {
	Posts []content.UnifiedPost `json:"posts"`
	Count int                   `json:"count"`
}

func slugs(posts []content.UnifiedPost) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Slug)
	}
	return out
}

func TestListPosts(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := map[string]struct {
		query string
		want  []string
	}{
		"default sorted by date": {query: "", want: []string{"new", "old", "misc"}},
		"category":               {query: "?category=news", want: []string{"new", "old"}},
		"featured":               {query: "?featured=true", want: []string{"new"}},
		"limit":                  {query: "?limit=1", want: []string{"old"}},
		"unpublished":            {query: "?published=false", want: []string{"hidden", "new", "old", "misc"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/posts"+tc.query, "", false)
			require.Equal(t, http.StatusOK, rec.Code)

			got := decode[postList](t, rec)
			assert.Equal(t, tc.want, slugs(got.Posts))
			assert.Equal(t, len(tc.want), got.Count)
		})
	}
}

func TestListPostsBadQuery(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, q := range []string{"?limit=abc", "?published=maybe", "?featured=2x"} {
		rec := env.do(t, http.MethodGet, "/api/posts"+q, "", false)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetPost(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/posts/new", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	post := decode[content.UnifiedPost](t, rec)
	assert.Equal(t, "New", post.Title)
	assert.Equal(t, content.SourceStatic, post.Source)

	rec = env.do(t, http.MethodGet, "/api/posts/nope", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/content/stats", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[content.ContentStats](t, rec)
	assert.True(t, stats.Authenticated)
	assert.False(t, stats.APIEnabled)
	assert.Equal(t, content.SourceStatic, stats.PreferredSource)
	assert.Equal(t, 4, stats.StaticTotal)
	assert.Equal(t, 3, stats.StaticPublished)
	assert.Equal(t, 1, stats.StaticFeatured)
}

func TestCockpitRequiresSession(t *testing.T) {
	env := newTestEnv(t, &mockPosts{})

	routes := [][2]string{
		{http.MethodPost, "/cockpit/posts"},
		{http.MethodPut, "/cockpit/posts/1"},
		{http.MethodPost, "/cockpit/posts/1/publish"},
		{http.MethodDelete, "/cockpit/posts/1"},
		{http.MethodPost, "/debug/insertions/guide"},
		{http.MethodPost, "/debug/images/guide"},
	}
	for _, route := range routes {
		rec := env.do(t, route[0], route[1], "{}", false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route[1])
	}
}

func TestCockpitPosts(t *testing.T) {
	var gotToken string
	posts := &mockPosts{
		create: func(ctx context.Context, in blogapi.PostInput) (*blogapi.Post, error) {
			gotToken = auth.TokenFromContext(ctx)
			return &blogapi.Post{ID: "42", Slug: in.Slug, Title: in.Title, Status: blogapi.StatusDraft}, nil
		},
		update: func(_ context.Context, id string, _ blogapi.PostInput) (*blogapi.Post, error) {
			return nil, &blogapi.APIError{Method: "PUT", Path: "/posts/" + id, StatusCode: http.StatusNotFound}
		},
		publish: func(_ context.Context, id string) (*blogapi.Post, error) {
			return &blogapi.Post{ID: id, Status: blogapi.StatusPublished}, nil
		},
		del: func(context.Context, string) error { return nil },
	}
	env := newTestEnv(t, posts)

	rec := env.do(t, http.MethodPost, "/cockpit/posts", `{"slug":"fresh","title":"Fresh"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[blogapi.Post](t, rec)
	assert.Equal(t, "42", created.ID)
	assert.Equal(t, testToken, gotToken)

	rec = env.do(t, http.MethodPut, "/cockpit/posts/7", `{"title":"x"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/cockpit/posts/7/publish", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, blogapi.StatusPublished, decode[blogapi.Post](t, rec).Status)

	rec = env.do(t, http.MethodDelete, "/cockpit/posts/7", "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/cockpit/posts", `{"unknown":1}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCockpitWithoutBlogAPI(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/cockpit/posts", `{"slug":"x"}`, true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/debug/analyze/guide", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[pipeline.AnalyzeResult](t, rec)
	assert.Equal(t, "Guide", res.Analysis.Title)
	require.Len(t, res.Intents, 1)
	assert.Equal(t, "Install", res.Intents[0].Section.Title)

	rec = env.do(t, http.MethodGet, "/debug/analyze/missing", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugRoutesUseRawDocumentNames(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "My_Post.mdx"), []byte(guideDoc), 0o644))

	rec := env.do(t, http.MethodGet, "/debug/analyze/My_Post", "", false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "My_Post", decode[pipeline.AnalyzeResult](t, rec).Slug)

	rec = env.do(t, http.MethodPost, "/debug/insertions/My_Post",
		`{"insertions":[{"sectionTitle":"Install","imagePath":"/i.png","altText":"Install"}]}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data, err := os.ReadFile(filepath.Join(env.dir, "My_Post.mdx"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "![Install](/i.png)")

	rec = env.do(t, http.MethodGet, "/debug/analyze/..hidden", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInsertionEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	path := filepath.Join(env.dir, "guide.mdx")

	rec := env.do(t, http.MethodPost, "/debug/insertions/guide/validate",
		`{"insertions":[{"sectionTitle":"Nope","imagePath":"/a.png"}]}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[struct{ Valid bool }](t, rec).Valid)

	rec = env.do(t, http.MethodPost, "/debug/insertions/guide",
		`{"insertions":[{"sectionTitle":"Nope","imagePath":"/a.png"}]}`, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Len(t, body["errors"], 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, guideDoc, string(data))

	rec = env.do(t, http.MethodPost, "/debug/insertions/guide",
		`{"insertions":[{"sectionTitle":"Use","imagePath":"/use.png","altText":"Use"}]}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[docstore.UpdateOutcome](t, rec)
	assert.Equal(t, 1, out.InsertionsMade)
	assert.FileExists(t, out.BackupPath)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Use\n![Use](/use.png)\nShort.")
}

func TestGenerateImagesEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/debug/images/guide", `{"dryRun":true}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dry := decode[pipeline.RunReport](t, rec)
	assert.True(t, dry.DryRun)
	assert.Empty(t, dry.Insertions)

	rec = env.do(t, http.MethodPost, "/debug/images/guide", "", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[pipeline.RunReport](t, rec)
	require.Len(t, report.Insertions, 1)
	assert.Equal(t, "/images/generated/install.png", report.Insertions[0].ImagePath)

	rec = env.do(t, http.MethodGet, "/debug/generations/guide", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	gens := decode[struct {
		Generations []store.Generation `json:"generations"`
	}](t, rec)
	require.Len(t, gens.Generations, 1)
	assert.Equal(t, "Install", gens.Generations[0].SectionTitle)
	assert.True(t, gens.Generations[0].Success)
}
