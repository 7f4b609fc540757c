// Package mdx analyzes and edits MDX blog documents: frontmatter, heading
// sections and image insertions.
package mdx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// ErrUnterminatedFrontmatter is returned when an opening --- has no closing line.
var ErrUnterminatedFrontmatter = errors.New("frontmatter: missing closing ---")

// Frontmatter is the decoded metadata block of a document.
type Frontmatter map[string]any

// String returns the value at key rendered as a string, or "" when absent.
func (f Frontmatter) String(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// Bool reports whether key holds the literal boolean true.
func (f Frontmatter) Bool(key string) bool {
	b, ok := f[key].(bool)
	return ok && b
}

// Strings returns a sequence value as strings. A scalar becomes a one-element slice.
func (f Frontmatter) Strings(key string) []string {
	switch t := f[key].(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}

// ParseFrontmatter decodes the YAML block delimited by --- lines at the top of
// doc. A document without frontmatter yields an empty map.
func ParseFrontmatter(doc string) (Frontmatter, error) {
	raw, _, found, err := splitFrontmatter(doc)
	if err != nil {
		return Frontmatter{}, err
	}
	if !found || strings.TrimSpace(raw) == "" {
		return Frontmatter{}, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil {
		return Frontmatter{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	keepTimestampText(&node)

	fm := Frontmatter{}
	if err := node.Decode(&fm); err != nil {
		return Frontmatter{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	if fm == nil {
		fm = Frontmatter{}
	}
	return fm, nil
}

// keepTimestampText retags timestamp scalars as strings so dates decode to
// their source text instead of time.Time.
func keepTimestampText(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		keepTimestampText(c)
	}
}

// ExtractBodyContent returns doc without its frontmatter block, trimmed.
func ExtractBodyContent(doc string) string {
	_, body, found, err := splitFrontmatter(doc)
	if err != nil || !found {
		return strings.TrimSpace(doc)
	}
	return strings.TrimSpace(body)
}

// splitFrontmatter separates the raw YAML between the delimiters from the rest
// of the document.
func splitFrontmatter(doc string) (raw, body string, found bool, err error) {
	lines := strings.Split(doc, "\n")
	end := frontmatterEnd(lines)
	if end == 0 {
		return "", doc, false, nil
	}
	if end < 0 {
		return "", doc, false, ErrUnterminatedFrontmatter
	}
	raw = strings.Join(lines[1:end-1], "\n")
	body = strings.Join(lines[end:], "\n")
	return raw, body, true, nil
}

// frontmatterEnd returns the index of the first body line: 0 when the document
// has no frontmatter, -1 when the block is never closed.
func frontmatterEnd(lines []string) int {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			return i + 1
		}
	}
	return -1
}
