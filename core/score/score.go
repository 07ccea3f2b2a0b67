// Package score assigns a confidence to every merged field and decides
// which values need human review. Scoring is table-driven: a per-field base
// confidence, value overrides for rare values, and contextual adjustments
// keyed by verse-level risk flags.
package score

import (
	"fmt"
	"sort"

	"github.com/authenticwalk/context-grounded-bible/core/config"
	"github.com/authenticwalk/context-grounded-bible/core/source"
)

// Confidence categories used in summaries and review queues.
const (
	CategoryHigh    = "high"     // >= 0.95
	CategoryMedium  = "medium"   // >= 0.85
	CategoryLow     = "low"      // >= 0.70
	CategoryVeryLow = "very_low" // below 0.70
)

// reasonPriority orders review reasons when several adjustment rules fire
// on the same field. Lower is more urgent: a theological judgement call
// outranks a generic low score.
var reasonPriority = map[string]int{
	config.ReasonTheological:    1,
	config.ReasonCultural:       2,
	config.ReasonAmbiguousRef:   3,
	config.ReasonTemporal:       4,
	config.ReasonMissingContext: 5,
	config.ReasonRareFeature:    6,
	config.ReasonLowConfidence:  7,
}

// reasonNotes are the short reviewer-facing explanations per reason.
var reasonNotes = map[string]string{
	config.ReasonTheological:    "Interpretive choice with theological weight; verify against translation-team guidance.",
	config.ReasonCultural:       "Distinction not marked in the source culture; verify the inferred value fits the passage.",
	config.ReasonAmbiguousRef:   "Referent is ambiguous in context; confirm which participant is intended.",
	config.ReasonTemporal:       "No explicit temporal markers; confirm the inferred time setting.",
	config.ReasonMissingContext: "Context is too thin to decide automatically; confirm against the wider passage.",
	config.ReasonRareFeature:    "Rare feature value; verify it is genuinely required here.",
	config.ReasonLowConfidence:  "Automatic confidence fell below the review threshold.",
}

// FieldScore is the scoring outcome for one merged field.
type FieldScore struct {
	// Confidence is the final clamped score in [0, 1].
	Confidence float64 `json:"confidence"`

	// NeedsReview marks the field for the human review queue.
	NeedsReview bool `json:"needs_review"`

	// ReviewReason categorizes why review is needed; empty otherwise.
	ReviewReason string `json:"review_reason,omitempty"`

	// ReviewNotes carries the reviewer-facing explanation.
	ReviewNotes string `json:"review_notes,omitempty"`
}

// Category buckets the confidence for reporting.
func (s *FieldScore) Category() string {
	switch {
	case s.Confidence >= 0.95:
		return CategoryHigh
	case s.Confidence >= 0.85:
		return CategoryMedium
	case s.Confidence >= 0.70:
		return CategoryLow
	default:
		return CategoryVeryLow
	}
}

// Context carries the verse-level risk flags a caller has established for
// the verse being scored. Flags are free-form names matched against the
// configured adjustment rules.
type Context struct {
	VerseRef string
	Flags    map[string]bool
}

// Scorer scores fields against one configuration. Safe for concurrent use.
type Scorer struct {
	cfg *config.Config
}

// New creates a Scorer.
func New(cfg *config.Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// ScoreField computes the confidence for one field value in context.
//
// The score starts from the field's base confidence (with rare-value
// overrides applied), then every adjustment rule whose flag is set in the
// context and whose field list covers this field adds its delta. The result
// clamps to [0, 1]. Scoring is pure: the same inputs always produce the
// same score.
func (sc *Scorer) ScoreField(f source.FieldName, v source.Value, ctx Context) *FieldScore {
	conf := sc.cfg.BaseFor(f, v)

	var reasons []string
	for _, rule := range sc.cfg.Adjustments {
		if !ctx.Flags[rule.Flag] || !rule.AppliesTo(f) {
			continue
		}
		conf += rule.Delta
		if rule.Delta < 0 && rule.Reason != "" {
			reasons = append(reasons, rule.Reason)
		}
	}
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}

	fs := &FieldScore{Confidence: conf}

	alwaysReason, always := sc.cfg.AlwaysReviewReason(f)
	if conf < sc.cfg.ReviewThreshold || always {
		fs.NeedsReview = true
		fs.ReviewReason = pickReason(reasons)
		if fs.ReviewReason == "" {
			if always {
				fs.ReviewReason = alwaysReason
			} else {
				fs.ReviewReason = config.ReasonLowConfidence
			}
		}
		fs.ReviewNotes = reasonNotes[fs.ReviewReason]
		if fs.ReviewNotes == "" {
			fs.ReviewNotes = reasonNotes[config.ReasonLowConfidence]
		}
	}
	return fs
}

// pickReason returns the most urgent of the triggered reasons.
func pickReason(reasons []string) string {
	best := ""
	bestPrio := 0
	for _, r := range reasons {
		p, ok := reasonPriority[r]
		if !ok {
			p = len(reasonPriority) + 1
		}
		if best == "" || p < bestPrio {
			best, bestPrio = r, p
		}
	}
	return best
}

// Summary aggregates scoring outcomes across a set of fields.
type Summary struct {
	Total       int            `json:"total"`
	NeedsReview int            `json:"needs_review"`
	ByCategory  map[string]int `json:"by_category"`
	ByReason    map[string]int `json:"by_reason,omitempty"`
}

// Summarize tallies a batch of field scores.
func Summarize(scores []*FieldScore) *Summary {
	s := &Summary{
		ByCategory: make(map[string]int),
		ByReason:   make(map[string]int),
	}
	for _, fs := range scores {
		s.Total++
		s.ByCategory[fs.Category()]++
		if fs.NeedsReview {
			s.NeedsReview++
			s.ByReason[fs.ReviewReason]++
		}
	}
	return s
}

// String renders the summary for CLI output, reasons in stable order.
func (s *Summary) String() string {
	out := fmt.Sprintf("%d fields, %d need review", s.Total, s.NeedsReview)
	if len(s.ByReason) == 0 {
		return out
	}
	reasons := make([]string, 0, len(s.ByReason))
	for r := range s.ByReason {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		out += fmt.Sprintf("\n  %s: %d", r, s.ByReason[r])
	}
	return out
}
