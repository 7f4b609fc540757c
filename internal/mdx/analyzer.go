package mdx

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// minSectionLength is the body length a section must exceed to earn an image.
	minSectionLength = 50
	contextLines     = 3
)

var (
	headingPattern = regexp.MustCompile(`^(#{2,3})\s+(.+?)\s*$`)
	imagePattern   = regexp.MustCompile(`^!\[([^\]]*)\]\(\s*([^)\s]+)(?:\s+"[^"]*")?\s*\)`)
)

// SectionContext carries a few lines around a section for prompt coherence.
type SectionContext struct {
	PrecedingContent string `json:"precedingContent"`
	FollowingContent string `json:"followingContent"`
}

// ContentSection is one ##/### delimited span of a document.
type ContentSection struct {
	Title             string         `json:"title"`
	HeadingLevel      int            `json:"headingLevel"`
	Occurrence        int            `json:"occurrence"`
	Content           string         `json:"content"`
	NeedsImage        bool           `json:"needsImage"`
	ExistingImagePath string         `json:"existingImagePath,omitempty"`
	Context           SectionContext `json:"context"`
}

// Metadata is the subset of frontmatter echoed back with an analysis.
type Metadata struct {
	Category      string   `json:"category,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	DatePublished string   `json:"datePublished,omitempty"`
}

// Analysis lists the sections of a document that qualify for a new image.
type Analysis struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Sections    []ContentSection `json:"sections"`
	Metadata    Metadata         `json:"metadata"`
}

// AnalyzeContent splits body into heading sections and keeps those without an
// image whose content is longer than 50 characters.
func AnalyzeContent(body string, fm Frontmatter) Analysis {
	all := ScanSections(body)
	sections := make([]ContentSection, 0, len(all))
	for _, s := range all {
		if s.NeedsImage && utf8.RuneCountInString(s.Content) > minSectionLength {
			sections = append(sections, s)
		}
	}

	date := fm.String("datePublished")
	if date == "" {
		date = fm.String("date")
	}
	return Analysis{
		Title:       fm.String("title"),
		Description: fm.String("description"),
		Sections:    sections,
		Metadata: Metadata{
			Category:      fm.String("category"),
			Tags:          fm.Strings("tags"),
			DatePublished: date,
		},
	}
}

// ScanSections returns every ##/### section of body, illustrated or not.
func ScanSections(body string) []ContentSection {
	sc := &scanner{lines: strings.Split(body, "\n"), seen: make(map[headingKey]int)}
	for i := range sc.lines {
		sc.step(i)
	}
	sc.finish()
	return sc.sections
}

type scanState int

const (
	noOpenSection scanState = iota
	openSection
)

type sectionDraft struct {
	title             string
	level             int
	occurrence        int
	headingIndex      int
	body              []string
	needsImage        bool
	existingImagePath string
}

// scanner is a single pass over the lines of a document. Every line goes
// through step; a heading closes the open section and opens the next one.
type scanner struct {
	lines    []string
	state    scanState
	current  sectionDraft
	sections []ContentSection

	// seen counts headings per level and title; repeated titles are told
	// apart by occurrence.
	seen map[headingKey]int
}

type headingKey struct {
	level int
	title string
}

func (s *scanner) step(i int) {
	line := s.lines[i]
	if title, level, ok := parseHeading(line); ok {
		if s.state == openSection {
			s.close(i)
		}
		s.open(i, title, level)
		return
	}
	if s.state == noOpenSection {
		return
	}
	if _, ok := parseImageLine(line); ok {
		return
	}
	s.current.body = append(s.current.body, line)
}

func (s *scanner) finish() {
	if s.state == openSection {
		s.close(-1)
	}
}

func (s *scanner) open(i int, title string, level int) {
	key := headingKey{level: level, title: title}
	s.seen[key]++
	draft := sectionDraft{
		title:        title,
		level:        level,
		occurrence:   s.seen[key],
		headingIndex: i,
		needsImage:   true,
	}
	if i+1 < len(s.lines) {
		if path, ok := parseImageLine(s.lines[i+1]); ok {
			draft.needsImage = false
			draft.existingImagePath = path
		}
	}
	s.current = draft
	s.state = openSection
}

// close finalizes the open section. next is the index of the heading that
// opened the following section, or -1 at end of document. The preceding
// context ends with the section's own heading line; the following context is
// read after the next heading, not after the closed section.
func (s *scanner) close(next int) {
	d := s.current
	following := ""
	if next >= 0 {
		following = joinWindow(s.lines, next+1, next+1+contextLines)
	}
	s.sections = append(s.sections, ContentSection{
		Title:             d.title,
		HeadingLevel:      d.level,
		Occurrence:        d.occurrence,
		Content:           strings.TrimSpace(strings.Join(d.body, "\n")),
		NeedsImage:        d.needsImage,
		ExistingImagePath: d.existingImagePath,
		Context: SectionContext{
			PrecedingContent: joinWindow(s.lines, d.headingIndex+1-contextLines, d.headingIndex+1),
			FollowingContent: following,
		},
	})
	s.current = sectionDraft{}
	s.state = noOpenSection
}

func joinWindow(lines []string, from, to int) string {
	from = max(from, 0)
	to = min(to, len(lines))
	if from >= to {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[from:to], "\n"))
}

func parseHeading(line string) (title string, level int, ok bool) {
	m := headingPattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return "", 0, false
	}
	return m[2], len(m[1]), true
}

// parseImageLine reports whether line is markdown image markup and returns its URL.
func parseImageLine(line string) (string, bool) {
	m := imagePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return m[2], true
}
