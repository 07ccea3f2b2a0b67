// Package pipeline runs the whole fusion flow for a verse: canonical
// tokenization, source alignment, field merging, confidence scoring, and
// review-candidate extraction. Verses are independent units of work; a bad
// verse fails alone.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/authenticwalk/context-grounded-bible/core/align"
	"github.com/authenticwalk/context-grounded-bible/core/config"
	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/merge"
	"github.com/authenticwalk/context-grounded-bible/core/ref"
	"github.com/authenticwalk/context-grounded-bible/core/review"
	"github.com/authenticwalk/context-grounded-bible/core/score"
	"github.com/authenticwalk/context-grounded-bible/core/source"
	"github.com/authenticwalk/context-grounded-bible/core/token"
	"github.com/authenticwalk/context-grounded-bible/internal/logging"
)

// ReasonSourceConflict marks review candidates raised by unresolved
// disagreements between sources rather than by low confidence.
const ReasonSourceConflict = "source_conflict"

// VerseInput is one verse's worth of work.
type VerseInput struct {
	// Ref identifies the verse.
	Ref ref.Ref `json:"ref"`

	// Text is the raw verse text to tokenize.
	Text string `json:"text"`

	// PriorWordCount, when positive, is the word count from the previous
	// run; a different count this run is a schema mismatch.
	PriorWordCount int `json:"prior_word_count,omitempty"`

	// Sources are the annotation batches to fuse.
	Sources []*source.Batch `json:"sources"`

	// Flags are verse-level risk flags consumed by the scorer.
	Flags map[string]bool `json:"flags,omitempty"`
}

// VerseResult is one verse's fusion outcome. Err is set when the verse
// failed outright; partial outcomes (unaligned spans, conflicts) live in
// the other fields.
type VerseResult struct {
	Ref        ref.Ref               `json:"ref"`
	Records    []*merge.MergedRecord `json:"records,omitempty"`
	Unaligned  []align.UnalignedSpan `json:"unaligned,omitempty"`
	Candidates []review.Candidate    `json:"candidates,omitempty"`
	Err        error                 `json:"-"`
}

// Pipeline wires the fusion stages under one configuration. Safe for
// concurrent use.
type Pipeline struct {
	cfg       *config.Config
	tokenizer *token.Tokenizer
	aligner   *align.Aligner
	merger    *merge.Merger
	scorer    *score.Scorer
}

// New creates a Pipeline.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		tokenizer: token.NewTokenizer(),
		aligner:   align.New(cfg),
		merger:    merge.New(cfg),
		scorer:    score.New(cfg),
	}
}

// ProcessVerse runs the full fusion flow for one verse.
func (p *Pipeline) ProcessVerse(ctx context.Context, in VerseInput) *VerseResult {
	start := time.Now()
	res := &VerseResult{Ref: in.Ref}

	vt, err := p.tokenizer.Tokenize(in.Ref, in.Text)
	if err != nil {
		res.Err = errors.Wrapf(err, "tokenize %s", in.Ref)
		return res
	}
	if err := vt.VerifyWordCount(in.PriorWordCount); err != nil {
		var sm *errors.SchemaMismatchError
		if errors.As(err, &sm) {
			logging.SchemaMismatch(ctx, in.Ref.String(), sm.Expected, sm.Got)
		}
		res.Err = err
		return res
	}

	aligned, err := p.aligner.Align(vt, in.Sources)
	if err != nil {
		res.Err = errors.Wrapf(err, "align %s", in.Ref)
		return res
	}
	res.Unaligned = aligned.Unaligned
	for src, n := range unalignedCounts(aligned.Unaligned) {
		logging.SourceUnaligned(ctx, in.Ref.String(), src, n)
	}

	res.Records = p.merger.Merge(aligned)

	sctx := score.Context{VerseRef: in.Ref.String(), Flags: in.Flags}
	conflicts := 0
	for _, rec := range res.Records {
		rec.Scores = make(map[source.FieldName]*score.FieldScore, len(rec.Fields))
		for _, f := range rec.FieldNames() {
			rf := rec.Fields[f]
			fs := p.scorer.ScoreField(f, rf.Value, sctx)
			rec.Scores[f] = fs
			if fs.NeedsReview {
				res.Candidates = append(res.Candidates, review.Candidate{
					TokenID:    rec.TokenID,
					FieldName:  f,
					Value:      rf.Value,
					Confidence: fs.Confidence,
					Reason:     fs.ReviewReason,
					Notes:      fs.ReviewNotes,
				})
			}
		}
		for _, c := range rec.Conflicts {
			conflicts++
			if c.Resolved {
				continue
			}
			res.Candidates = append(res.Candidates, review.Candidate{
				TokenID:   rec.TokenID,
				FieldName: c.Field,
				Reason:    ReasonSourceConflict,
				Notes:     conflictNotes(c),
			})
		}
		if err := rec.Seal(); err != nil {
			res.Err = errors.Wrapf(err, "seal %s", rec.TokenID)
			return res
		}
	}

	logging.VerseProcessed(ctx, in.Ref.String(), len(vt.Words), conflicts,
		len(res.Candidates), time.Since(start))
	return res
}

// ProcessBatch fuses verses concurrently on a fixed-size worker pool.
// Results come back in input order regardless of completion order; a
// canceled context marks the remaining verses failed rather than dropping
// them.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []VerseInput, workers int) []*VerseResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]*VerseResult, len(inputs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i] = &VerseResult{Ref: inputs[i].Ref, Err: err}
					continue
				}
				results[i] = p.ProcessVerse(ctx, inputs[i])
			}
		}()
	}
	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func unalignedCounts(spans []align.UnalignedSpan) map[string]int {
	if len(spans) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, u := range spans {
		counts[u.SourceID]++
	}
	return counts
}

func conflictNotes(c merge.Conflict) string {
	notes := "Sources disagree"
	for _, v := range c.Values {
		notes += fmt.Sprintf("; %s says %q", v.Source, v.Value.Render())
	}
	return notes + "."
}
