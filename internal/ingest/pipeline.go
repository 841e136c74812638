package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"jobmate/research-service/internal/jobs"
	"jobmate/research-service/internal/papers"
)

// JobSink upserts unowned jobs.
type JobSink interface {
	Import(ctx context.Context, cmd jobs.SaveCommand) (*jobs.Job, bool, error)
}

// PaperSink upserts unowned papers.
type PaperSink interface {
	Import(ctx context.Context, cmd papers.CreateCommand) (*papers.Paper, bool, error)
}

// Pipeline runs one rule: extract, filter, enrich, upsert. A record that
// fails any step is logged and skipped.
type Pipeline struct {
	extractor Extractor
	enricher  Enricher
	jobs      JobSink
	papers    PaperSink
}

// NewPipeline returns a Pipeline. enricher may be nil.
func NewPipeline(x Extractor, enricher Enricher, j JobSink, p PaperSink) *Pipeline {
	return &Pipeline{extractor: x, enricher: enricher, jobs: j, papers: p}
}

// Run ingests rule, adding to c. It returns early when ctx is done; rows
// already written stay written.
func (p *Pipeline) Run(ctx context.Context, rule Rule, c *Counters) error {
	records, err := p.extractor.Extract(ctx, rule)
	if err != nil && len(records) == 0 {
		return fmt.Errorf("extract: %w", err)
	}
	c.Extracted += len(records)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		// ── Exclusion filter ───────────────────────────────
		if Excluded(rec, rule.Exclude) {
			c.Excluded++
			continue
		}

		// ── Enrichment (best effort) ───────────────────────
		if p.enricher != nil && rec.Description != "" {
			enr, err := p.enricher.Enrich(ctx, rec)
			if err != nil {
				slog.Warn("enrichment failed", "rule", rule.Name, "title", rec.Title, "err", err)
			} else {
				c.Enriched++
				if rec.Kind == KindJob {
					rec.Tags = mergeTerms(rec.Tags, enr.Skills)
				} else {
					rec.Tags = mergeTerms(rec.Tags, enr.Tags)
				}
			}
		}

		// ── Upsert ─────────────────────────────────────────
		inserted, err := p.save(ctx, rec)
		if err != nil {
			slog.Warn("ingest upsert failed", "rule", rule.Name, "title", rec.Title, "url", rec.URL, "err", err)
			c.Failed++
			continue
		}
		if inserted {
			c.Inserted++
		} else {
			c.Updated++
		}
	}
	return nil
}

func (p *Pipeline) save(ctx context.Context, rec Record) (bool, error) {
	switch rec.Kind {
	case KindJob:
		_, inserted, err := p.jobs.Import(ctx, rec.JobCommand())
		return inserted, err
	case KindPaper:
		if rec.URL == "" {
			return false, fmt.Errorf("paper %q has no url", rec.Title)
		}
		_, inserted, err := p.papers.Import(ctx, rec.PaperCommand())
		return inserted, err
	}
	return false, fmt.Errorf("unknown record kind %q", rec.Kind)
}
