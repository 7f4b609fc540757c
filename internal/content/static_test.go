package content

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestLoadStaticIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hello-world.mdx"), `---
title: "Hello World"
date: "2024-04-02"
featured: true
category: announcements
keywords:
  - launch
  - ai
faq:
  - question: Is it free?
    answer: Yes.
---

![cover](/images/cover.png)

This is the **first** paragraph
spanning two lines.

## Section
More text.
`)
	writeFile(t, filepath.Join(dir, "guides", "setup.md"), `---
title: Setup guide
description: Explicit description
published: false
slug: setup
---
Body.
`)
	writeFile(t, filepath.Join(dir, ".backups", "hello-world.backup-1.mdx"), "---\ntitle: Old\n---\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	idx, err := LoadStaticIndex(dir)
	require.NoError(t, err)

	posts := idx.Posts()
	require.Len(t, posts, 2)

	setup := posts[0]
	assert.Equal(t, "setup", setup.Slug)
	assert.Equal(t, "guides/setup", setup.SlugAsParams)
	assert.Equal(t, "Explicit description", setup.Description)
	assert.False(t, setup.Published)

	hello := posts[1]
	assert.Equal(t, "hello-world", hello.Slug)
	assert.Equal(t, "hello-world", hello.SlugAsParams)
	assert.Equal(t, "Hello World", hello.Title)
	assert.Equal(t, "2024-04-02", hello.Date)
	assert.True(t, hello.Published, "published defaults to true")
	assert.True(t, hello.Featured)
	assert.Equal(t, []string{"launch", "ai"}, hello.Keywords)
	assert.Equal(t, []StaticFAQ{{Question: "Is it free?", Answer: "Yes."}}, hello.FAQ)
	assert.Equal(t, "This is the first paragraph spanning two lines.", hello.Description)
	assert.True(t, strings.HasPrefix(hello.Raw, "![cover](/images/cover.png)"))
	assert.Contains(t, hello.Raw, "## Section")
}

func TestLoadStaticIndexMissingDir(t *testing.T) {
	idx, err := LoadStaticIndex(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, idx.Posts())
}

func TestFirstParagraphTruncates(t *testing.T) {
	long := strings.Repeat("word ", 60)

	got := firstParagraph([]byte("# Title\n\n" + long))

	assert.Equal(t, maxExcerptRunes, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestPostsReturnsSnapshot(t *testing.T) {
	idx := NewStaticIndex([]StaticPost{{Slug: "a", Title: "A"}})

	posts := idx.Posts()
	posts[0].Title = "changed"

	assert.Equal(t, "A", idx.Posts()[0].Title)
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "first.mdx"), "---\ntitle: First\n---\nbody")

	idx, err := LoadStaticIndex(dir)
	require.NoError(t, err)
	require.Len(t, idx.Posts(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- idx.Watch(ctx, zap.NewNop()) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "second.mdx"), "---\ntitle: Second\n---\nbody")

	require.Eventually(t, func() bool {
		return len(idx.Posts()) == 2
	}, 5*time.Second, 50*time.Millisecond)
}
