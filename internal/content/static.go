package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const maxExcerptRunes = 160

// StaticFAQ is a frontmatter FAQ entry.
type StaticFAQ struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// StaticStep is a frontmatter HowTo step.
type StaticStep struct {
	Name  string `yaml:"name"`
	Text  string `yaml:"text"`
	Image string `yaml:"image"`
}

// StaticPost is one pre-parsed document of the static content index.
type StaticPost struct {
	Slug         string       `yaml:"slug"`
	Title        string       `yaml:"title"`
	Description  string       `yaml:"description"`
	Date         string       `yaml:"date"`
	DateModified string       `yaml:"dateModified"`
	Published    bool         `yaml:"published"`
	Draft        bool         `yaml:"draft"`
	Category     string       `yaml:"category"`
	Keywords     []string     `yaml:"keywords"`
	Tags         []string     `yaml:"tags"`
	Featured     bool         `yaml:"featured"`
	Thumbnail    string       `yaml:"thumbnail"`
	OGImage      string       `yaml:"ogImage"`
	OGImageAlt   string       `yaml:"ogImageAlt"`
	Schema       string       `yaml:"schema"`
	FAQ          []StaticFAQ  `yaml:"faq"`
	Steps        []StaticStep `yaml:"steps"`

	// Derived from the file, never read from frontmatter.
	Path         string `yaml:"-"`
	SlugAsParams string `yaml:"-"`
	Raw          string `yaml:"-"`
}

// StaticIndex is the in-memory, ordered list of static posts.
type StaticIndex struct {
	dir string

	mu    sync.RWMutex
	posts []StaticPost
}

// NewStaticIndex wraps an already built list of posts.
func NewStaticIndex(posts []StaticPost) *StaticIndex {
	return &StaticIndex{posts: append([]StaticPost(nil), posts...)}
}

// LoadStaticIndex builds the index from the .mdx and .md files under dir,
// ordered by relative path. A missing dir yields an empty index.
func LoadStaticIndex(dir string) (*StaticIndex, error) {
	idx := &StaticIndex{dir: dir}
	if err := idx.Reload(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Dir returns the directory the index was loaded from.
func (x *StaticIndex) Dir() string {
	return x.dir
}

// Posts returns a snapshot of the index in index order.
func (x *StaticIndex) Posts() []StaticPost {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]StaticPost(nil), x.posts...)
}

// Reload rereads the index directory and swaps the result in.
func (x *StaticIndex) Reload() error {
	if x.dir == "" {
		return nil
	}
	posts, err := loadStaticPosts(x.dir)
	if err != nil {
		return err
	}
	x.mu.Lock()
	x.posts = posts
	x.mu.Unlock()
	return nil
}

func loadStaticPosts(root string) ([]StaticPost, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var posts []StaticPost
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isContentFile(p) {
			return nil
		}
		post, err := parseStaticFile(root, p)
		if err != nil {
			return err
		}
		posts = append(posts, post)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load static content %s: %w", root, err)
	}
	return posts, nil
}

func isContentFile(p string) bool {
	ext := filepath.Ext(p)
	return ext == ".mdx" || ext == ".md"
}

func parseStaticFile(root, p string) (StaticPost, error) {
	f, err := os.Open(p)
	if err != nil {
		return StaticPost{}, err
	}
	defer f.Close()

	// Posts are published unless their frontmatter says otherwise.
	post := StaticPost{Published: true}
	body, err := frontmatter.Parse(f, &post)
	if err != nil {
		return StaticPost{}, fmt.Errorf("parse %s: %w", p, err)
	}

	rel, err := filepath.Rel(root, p)
	if err != nil {
		return StaticPost{}, err
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))

	post.Path = rel
	post.SlugAsParams = rel
	if post.Slug == "" {
		post.Slug = path.Base(rel)
	}
	post.Raw = strings.TrimSpace(string(body))
	if post.Description == "" {
		post.Description = firstParagraph([]byte(post.Raw))
	}
	return post, nil
}

var markdown = goldmark.New()

// firstParagraph returns the plain text of the first markdown paragraph,
// shortened to an excerpt.
func firstParagraph(src []byte) string {
	doc := markdown.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*ast.Paragraph); !ok {
			return ast.WalkContinue, nil
		}
		collectText(n, src, &b)
		if strings.TrimSpace(b.String()) != "" {
			return ast.WalkStop, nil
		}
		b.Reset()
		return ast.WalkSkipChildren, nil
	})

	excerpt := strings.Join(strings.Fields(b.String()), " ")
	if r := []rune(excerpt); len(r) > maxExcerptRunes {
		excerpt = strings.TrimSpace(string(r[:maxExcerptRunes-1])) + "…"
	}
	return excerpt
}

func collectText(n ast.Node, src []byte, b *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Image, *ast.RawHTML:
			continue
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			collectText(c, src, b)
		}
	}
}
