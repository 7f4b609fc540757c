package mdx

import (
	"fmt"
	"strings"
)

const (
	maxIntentContent = 500
	maxIntentContext = 200
)

// GenerateImageIntent builds the prompt handed to the image generation agent
// for one section. Section content and preceding context are truncated.
func GenerateImageIntent(section ContentSection, blogTitle, blogDescription string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a clean, professional illustration for the section \"%s\" of the blog post \"%s\".\n", section.Title, blogTitle)
	if blogDescription != "" {
		fmt.Fprintf(&b, "Article summary: %s\n", blogDescription)
	}
	b.WriteString("\nSection content:\n")
	b.WriteString(truncateRunes(section.Content, maxIntentContent))
	b.WriteString("\n")
	if preceding := truncateRunes(section.Context.PrecedingContent, maxIntentContext); preceding != "" {
		b.WriteString("\nPreceding context:\n")
		b.WriteString(preceding)
		b.WriteString("\n")
	}
	b.WriteString("\nStyle: modern editorial illustration, consistent with a technology blog. ")
	b.WriteString("Visualize the key idea of the section. Do not render any text, letters or logos in the image.")
	return b.String()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
