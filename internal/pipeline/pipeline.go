// Package pipeline turns a document's unillustrated sections into generated
// images and inserts them back into the document.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"cockpit/internal/content"
	"cockpit/internal/docstore"
	"cockpit/internal/imagegen"
	"cockpit/internal/mdx"
	"cockpit/internal/store"
)

// Documents reads and rewrites documents by slug.
type Documents interface {
	Read(slug string) (string, error)
	Update(slug string, insertions []mdx.ImageInsertion) (docstore.UpdateOutcome, error)
}

// GenerationLog records every generation attempt.
type GenerationLog interface {
	Record(ctx context.Context, g *store.Generation) error
}

// SectionIntent pairs a qualifying section with its image prompt.
type SectionIntent struct {
	Section mdx.ContentSection `json:"section"`
	Intent  string             `json:"intent"`
}

// AnalyzeResult is the analysis of one document.
type AnalyzeResult struct {
	Slug     string          `json:"slug"`
	Analysis mdx.Analysis    `json:"analysis"`
	Intents  []SectionIntent `json:"intents"`
}

// RunOptions bound a pipeline run. MaxSections <= 0 means no limit.
type RunOptions struct {
	MaxSections int  `json:"maxSections"`
	DryRun      bool `json:"dryRun"`
}

// SectionOutcome reports what happened for one section.
type SectionOutcome struct {
	SectionTitle string           `json:"sectionTitle"`
	Intent       string           `json:"intent"`
	Result       *imagegen.Result `json:"result,omitempty"`
}

// RunReport summarizes a pipeline run.
type RunReport struct {
	Slug       string                  `json:"slug"`
	DryRun     bool                    `json:"dryRun"`
	Sections   []SectionOutcome        `json:"sections"`
	Insertions []mdx.ImageInsertion    `json:"insertions"`
	Update     *docstore.UpdateOutcome `json:"update,omitempty"`
}

// Pipeline wires the analyzer, the image agent and the document store.
type Pipeline struct {
	docs    Documents
	agent   imagegen.Agent
	log     GenerationLog
	logger  *zap.Logger
	options imagegen.Options

	runs singleflight.Group
}

// New builds a Pipeline. log may be nil.
func New(docs Documents, agent imagegen.Agent, log GenerationLog, opts imagegen.Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{docs: docs, agent: agent, log: log, options: opts, logger: logger}
}

// Analyze reads the document for slug and builds an image intent for every
// qualifying section.
func (p *Pipeline) Analyze(ctx context.Context, slug string) (*AnalyzeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := p.docs.Read(slug)
	if err != nil {
		return nil, err
	}
	fm, err := mdx.ParseFrontmatter(doc)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", slug, err)
	}

	analysis := mdx.AnalyzeContent(mdx.ExtractBodyContent(doc), fm)
	if analysis.Title == "" {
		analysis.Title = content.SlugTitle(slug)
	}

	intents := make([]SectionIntent, 0, len(analysis.Sections))
	for _, s := range analysis.Sections {
		intents = append(intents, SectionIntent{
			Section: s,
			Intent:  mdx.GenerateImageIntent(s, analysis.Title, analysis.Description),
		})
	}
	return &AnalyzeResult{Slug: slug, Analysis: analysis, Intents: intents}, nil
}

// Run generates images for the qualifying sections of slug and inserts the
// successful ones. Concurrent identical runs share one execution.
func (p *Pipeline) Run(ctx context.Context, slug string, opts RunOptions) (*RunReport, error) {
	key := fmt.Sprintf("%s|%d|%t", slug, opts.MaxSections, opts.DryRun)
	result, err, _ := p.runs.Do(key, func() (interface{}, error) {
		return p.run(ctx, slug, opts)
	})
	if err != nil {
		return nil, err
	}
	report, ok := result.(*RunReport)
	if !ok {
		return nil, fmt.Errorf("run result type mismatch for %s", slug)
	}
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, slug string, opts RunOptions) (*RunReport, error) {
	analyzed, err := p.Analyze(ctx, slug)
	if err != nil {
		return nil, err
	}

	intents := analyzed.Intents
	if opts.MaxSections > 0 && len(intents) > opts.MaxSections {
		intents = intents[:opts.MaxSections]
	}

	report := &RunReport{
		Slug:       slug,
		DryRun:     opts.DryRun,
		Sections:   make([]SectionOutcome, 0, len(intents)),
		Insertions: []mdx.ImageInsertion{},
	}

	for _, si := range intents {
		outcome := SectionOutcome{SectionTitle: si.Section.Title, Intent: si.Intent}
		if opts.DryRun {
			report.Sections = append(report.Sections, outcome)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := p.agent.Generate(ctx, si.Intent, p.options)
		outcome.Result = &res
		report.Sections = append(report.Sections, outcome)
		p.record(ctx, slug, si, res)

		if !res.Success {
			p.logger.Warn("image generation failed",
				zap.String("slug", slug),
				zap.String("section", si.Section.Title),
				zap.String("error", res.Error),
			)
			continue
		}
		report.Insertions = append(report.Insertions, mdx.ImageInsertion{
			SectionTitle: si.Section.Title,
			HeadingLevel: si.Section.HeadingLevel,
			Occurrence:   si.Section.Occurrence,
			ImagePath:    res.ImageURL,
			AltText:      si.Section.Title,
		})
	}

	if opts.DryRun || len(report.Insertions) == 0 {
		return report, nil
	}

	update, err := p.docs.Update(slug, report.Insertions)
	if err != nil {
		return nil, fmt.Errorf("insert images into %s: %w", slug, err)
	}
	report.Update = &update
	return report, nil
}

func (p *Pipeline) record(ctx context.Context, slug string, si SectionIntent, res imagegen.Result) {
	if p.log == nil {
		return
	}
	g := &store.Generation{
		Slug:           slug,
		SectionTitle:   si.Section.Title,
		Intent:         si.Intent,
		ImageURL:       res.ImageURL,
		Success:        res.Success,
		Error:          res.Error,
		ProcessingTime: res.ProcessingTime,
	}
	if err := p.log.Record(ctx, g); err != nil {
		p.logger.Warn("record generation", zap.String("slug", slug), zap.Error(err))
	}
}
