package mdx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontmatterScalarsAndSequences(t *testing.T) {
	doc := "---\n" +
		"title: \"Hello World\"\n" +
		"featured: true\n" +
		"tags:\n" +
		"  - a\n" +
		"  - b\n" +
		"---\n" +
		"Body text\n"

	fm, err := ParseFrontmatter(doc)
	require.NoError(t, err)

	assert.Equal(t, "Hello World", fm["title"])
	assert.Equal(t, true, fm["featured"])
	assert.Equal(t, []any{"a", "b"}, fm["tags"])
	assert.Equal(t, []string{"a", "b"}, fm.Strings("tags"))
	assert.Len(t, fm, 3)
}

func TestParseFrontmatterNumbersFallBackToStrings(t *testing.T) {
	doc := "---\ncount: 3\nratio: 1.5\nversion: \"42\"\nlabel: v1.2.3\ndate: 2024-05-01\n---\n"

	fm, err := ParseFrontmatter(doc)
	require.NoError(t, err)

	assert.Equal(t, 3, fm["count"])
	assert.Equal(t, 1.5, fm["ratio"])
	assert.Equal(t, "42", fm["version"])
	assert.Equal(t, "v1.2.3", fm["label"])
	assert.Equal(t, "2024-05-01", fm.String("date"))
	assert.Equal(t, "3", fm.String("count"))
}

func TestParseFrontmatterKeepsTimestampsAsWritten(t *testing.T) {
	doc := "---\ndate: 2024-03-01\nupdated: 2024-03-02T10:30:00Z\ncount: 3\nnested:\n  at: 2024-01-01\n---\n"

	fm, err := ParseFrontmatter(doc)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", fm["date"])
	assert.Equal(t, "2024-03-01", fm.String("date"))
	assert.Equal(t, "2024-03-02T10:30:00Z", fm.String("updated"))
	assert.Equal(t, 3, fm["count"])
	assert.Equal(t, map[string]any{"at": "2024-01-01"}, fm["nested"])
}

func TestParseFrontmatterWithoutBlock(t *testing.T) {
	fm, err := ParseFrontmatter("## Heading\n\ntext")
	require.NoError(t, err)
	assert.Empty(t, fm)
}

func TestParseFrontmatterUnterminated(t *testing.T) {
	_, err := ParseFrontmatter("---\ntitle: nope\n\n## Heading\n")
	assert.ErrorIs(t, err, ErrUnterminatedFrontmatter)
}

func TestFrontmatterAccessors(t *testing.T) {
	fm := Frontmatter{
		"draft":     "true",
		"published": true,
		"keywords":  "single",
		"at":        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.False(t, fm.Bool("draft"), "quoted true is a string, not a boolean")
	assert.True(t, fm.Bool("published"))
	assert.Equal(t, []string{"single"}, fm.Strings("keywords"))
	assert.Nil(t, fm.Strings("missing"))
	assert.Equal(t, "", fm.String("missing"))
	assert.Equal(t, "2024-03-01T00:00:00Z", fm.String("at"))
}

func TestExtractBodyContent(t *testing.T) {
	doc := "---\ntitle: Example\ntags:\n  - x\n---\n\n# Heading\n\nParagraph one.\n\n"

	assert.Equal(t, "# Heading\n\nParagraph one.", ExtractBodyContent(doc))
}

func TestExtractBodyContentWithoutFrontmatter(t *testing.T) {
	doc := "\n## Only body\n\ntext\n"

	assert.Equal(t, "## Only body\n\ntext", ExtractBodyContent(doc))
}
