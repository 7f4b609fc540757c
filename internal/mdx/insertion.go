package mdx

import (
	"fmt"
	"strings"
)

// ImageInsertion places image markup directly below the heading named by
// SectionTitle. HeadingLevel, when set, must match the heading's level.
// Occurrence, when set, picks the nth matching heading (1-based) for titles
// that repeat in a document.
type ImageInsertion struct {
	SectionTitle string `json:"sectionTitle"`
	HeadingLevel int    `json:"headingLevel,omitempty"`
	Occurrence   int    `json:"occurrence,omitempty"`
	ImagePath    string `json:"imagePath"`
	AltText      string `json:"altText"`
}

// Markup renders the markdown image line for the insertion.
func (in ImageInsertion) Markup() string {
	alt := strings.NewReplacer("[", "(", "]", ")", "\n", " ").Replace(strings.TrimSpace(in.AltText))
	return fmt.Sprintf("![%s](%s)", alt, strings.TrimSpace(in.ImagePath))
}

// ValidationResult lists every problem found with a batch of insertions.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// UpdateResult is the outcome of ApplyInsertions.
type UpdateResult struct {
	Success        bool   `json:"success"`
	UpdatedContent string `json:"updatedContent"`
	InsertionsMade int    `json:"insertionsMade"`
	Error          string `json:"error,omitempty"`
}

type heading struct {
	index int
	title string
	level int
}

// plannedInsertion is an insertion resolved to a line of the document.
// skip marks an image that is already present.
type plannedInsertion struct {
	line   int
	markup string
	skip   bool
}

// ValidateInsertions checks every insertion against the current document
// without modifying it.
func ValidateInsertions(content string, insertions []ImageInsertion) ValidationResult {
	_, errs := plan(strings.Split(content, "\n"), insertions)
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ApplyInsertions validates insertions and, only if all of them are valid,
// applies them. Insertions whose markup already follows the anchor are skipped.
func ApplyInsertions(content string, insertions []ImageInsertion) UpdateResult {
	lines := strings.Split(content, "\n")
	planned, errs := plan(lines, insertions)
	if len(errs) > 0 {
		return UpdateResult{
			UpdatedContent: content,
			Error:          "validation failed: " + strings.Join(errs, "; "),
		}
	}

	after := make(map[int]string, len(planned))
	for _, p := range planned {
		if p.skip {
			continue
		}
		eol := ""
		if strings.HasSuffix(lines[p.line], "\r") {
			eol = "\r"
		}
		after[p.line] = p.markup + eol
	}
	if len(after) == 0 {
		return UpdateResult{Success: true, UpdatedContent: content}
	}

	out := make([]string, 0, len(lines)+len(after))
	for i, line := range lines {
		out = append(out, line)
		if markup, ok := after[i]; ok {
			out = append(out, markup)
		}
	}
	return UpdateResult{
		Success:        true,
		UpdatedContent: strings.Join(out, "\n"),
		InsertionsMade: len(after),
	}
}

func plan(lines []string, insertions []ImageInsertion) ([]plannedInsertion, []string) {
	headings := collectHeadings(lines)
	var errs []string
	planned := make([]plannedInsertion, 0, len(insertions))
	claimed := make(map[int]int)

	for i, in := range insertions {
		title := strings.TrimSpace(in.SectionTitle)
		path := strings.TrimSpace(in.ImagePath)
		switch {
		case title == "":
			errs = append(errs, fmt.Sprintf("insertion %d: missing section title", i))
			continue
		case path == "":
			errs = append(errs, fmt.Sprintf("insertion %d: missing image path for section %q", i, title))
			continue
		case strings.ContainsAny(path, " \t\r\n()"):
			errs = append(errs, fmt.Sprintf("insertion %d: invalid image path %q", i, path))
			continue
		}

		matches := matchHeadings(headings, title, in.HeadingLevel)
		var h heading
		switch {
		case len(matches) == 0:
			errs = append(errs, fmt.Sprintf("insertion %d: section %q not found in document", i, title))
			continue
		case in.Occurrence < 0:
			errs = append(errs, fmt.Sprintf("insertion %d: invalid occurrence %d", i, in.Occurrence))
			continue
		case in.Occurrence > 0:
			if in.Occurrence > len(matches) {
				errs = append(errs, fmt.Sprintf("insertion %d: section %q occurrence %d not found, document has %d", i, title, in.Occurrence, len(matches)))
				continue
			}
			h = matches[in.Occurrence-1]
		case len(matches) > 1:
			errs = append(errs, fmt.Sprintf("insertion %d: section %q matches %d headings", i, title, len(matches)))
			continue
		default:
			h = matches[0]
		}

		if prev, ok := claimed[h.index]; ok {
			errs = append(errs, fmt.Sprintf("insertion %d: section %q already targeted by insertion %d", i, title, prev))
			continue
		}
		claimed[h.index] = i

		markup := in.Markup()
		p := plannedInsertion{line: h.index, markup: markup}
		if h.index+1 < len(lines) {
			if existing, ok := parseImageLine(lines[h.index+1]); ok {
				if strings.TrimSpace(lines[h.index+1]) != markup {
					errs = append(errs, fmt.Sprintf("insertion %d: section %q already has image %s", i, title, existing))
					continue
				}
				p.skip = true
			}
		}
		planned = append(planned, p)
	}
	return planned, errs
}

func collectHeadings(lines []string) []heading {
	start := max(frontmatterEnd(lines), 0)
	var hs []heading
	for i := start; i < len(lines); i++ {
		if title, level, ok := parseHeading(lines[i]); ok {
			hs = append(hs, heading{index: i, title: title, level: level})
		}
	}
	return hs
}

func matchHeadings(hs []heading, title string, level int) []heading {
	var out []heading
	for _, h := range hs {
		if h.title != title {
			continue
		}
		if level != 0 && h.level != level {
			continue
		}
		out = append(out, h)
	}
	return out
}
