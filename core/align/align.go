// Package align maps each source's own token sequence onto the canonical
// token sequence by character-span overlap in the shared normalized verse
// text. It handles the three segmentation cases: 1:1 (direct attachment),
// 1:N (a source token coarser than the canonical segmentation), and N:1
// (separate prefix/stem tokens landing on one canonical word).
package align

import (
	"strings"

	"github.com/authenticwalk/context-grounded-bible/core/config"
	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/source"
	"github.com/authenticwalk/context-grounded-bible/core/token"
)

// ReasonNoOverlap is the reason code recorded for spans that match no
// canonical token.
const ReasonNoOverlap = "no_overlap"

// Part is one source token's contribution to a canonical token. A canonical
// token aligned N:1 carries several parts in source order, preserving the
// prefix/stem decomposition for consumers that need it.
type Part struct {
	// Span is the part's range within the verse's normalized text.
	Span token.Span `json:"span"`

	// Fields holds the source's claims carried by this part.
	Fields source.Fields `json:"fields"`
}

// Attachment is everything one source contributes to one canonical token.
type Attachment struct {
	// SourceID names the contributing source.
	SourceID string `json:"source_id"`

	// Kind classifies the contributing source.
	Kind source.Kind `json:"kind"`

	// SplitInferred marks contributions duplicated from a source token
	// that covered multiple canonical tokens (the 1:N case).
	SplitInferred bool `json:"split_inferred,omitempty"`

	// Parts are the ordered sub-components (N:1), or a single part.
	Parts []Part `json:"parts"`
}

// Value returns the source's combined value for a field across all parts.
// Scalars from multiple parts join with a space in part order; list values
// concatenate.
func (a *Attachment) Value(f source.FieldName) (source.Value, bool) {
	var scalars []string
	var items []string
	found := false
	for _, p := range a.Parts {
		v, ok := p.Fields[f]
		if !ok || v.IsZero() {
			continue
		}
		found = true
		if v.IsList() {
			items = append(items, v.Items...)
		} else {
			scalars = append(scalars, v.Text)
		}
	}
	if !found {
		return source.Value{}, false
	}
	if len(items) > 0 {
		return source.List(items...), true
	}
	return source.String(strings.Join(scalars, " ")), true
}

// UnalignedSpan records a source token that matched no canonical token.
// Recorded, never discarded: sources disagree on edge punctuation and
// paragraph markers, and that must not block the rest of the verse.
type UnalignedSpan struct {
	SourceID string     `json:"source_id"`
	Text     string     `json:"text"`
	Span     token.Span `json:"span,omitempty"`
	Reason   string     `json:"reason"`
}

// TokenAlignment collects every source's attachments for one canonical
// token.
type TokenAlignment struct {
	Token       *token.CanonicalToken `json:"token"`
	Attachments []*Attachment         `json:"attachments"`
}

// Result is the alignment of a full verse.
type Result struct {
	Verse     *token.VerseTokens         `json:"verse"`
	ByToken   map[string]*TokenAlignment `json:"by_token"`
	Unaligned []UnalignedSpan            `json:"unaligned,omitempty"`
}

// Aligner aligns source batches against canonical tokenizations. It is
// stateless apart from its configuration and safe for concurrent use.
type Aligner struct {
	minOverlap float64
}

// New creates an Aligner from configuration.
func New(cfg *config.Config) *Aligner {
	return &Aligner{minOverlap: cfg.MinOverlapFraction}
}

// Align attaches every batch's tokens to the canonical tokens of a verse.
// Batches for a different verse are rejected; individual tokens that match
// nothing are recorded as unaligned and do not block the rest.
func (al *Aligner) Align(vt *token.VerseTokens, batches []*source.Batch) (*Result, error) {
	res := &Result{
		Verse:   vt,
		ByToken: make(map[string]*TokenAlignment, len(vt.Words)),
	}
	for _, w := range vt.Words {
		res.ByToken[w.ID] = &TokenAlignment{Token: w}
	}

	for _, b := range batches {
		if err := b.Validate(); err != nil {
			return nil, errors.Wrapf(err, "source %s", b.SourceID)
		}
		if b.Ref.String() != vt.Ref.String() {
			return nil, errors.NewValidation("ref",
				"batch "+b.SourceID+" is for "+b.Ref.String()+", verse is "+vt.Ref.String())
		}
		al.alignBatch(res, vt, b)
	}
	return res, nil
}

// alignBatch walks one source's tokens in order, locating each within the
// normalized verse text and attaching it to the overlapping canonical words.
func (al *Aligner) alignBatch(res *Result, vt *token.VerseTokens, b *source.Batch) {
	// One attachment per canonical token for this source; parts accumulate
	// in source-token order, which is what preserves N:1 decomposition.
	attached := make(map[string]*Attachment)

	cursor := 0
	for _, st := range b.Tokens {
		norm := token.Normalize(strings.TrimSpace(st.Text))
		span, ok := al.locate(vt.Normalized, norm, st.Span, &cursor)
		if !ok {
			res.Unaligned = append(res.Unaligned, UnalignedSpan{
				SourceID: b.SourceID,
				Text:     st.Text,
				Span:     st.Span,
				Reason:   ReasonNoOverlap,
			})
			continue
		}

		matches := al.overlapping(vt, span)
		if len(matches) == 0 {
			res.Unaligned = append(res.Unaligned, UnalignedSpan{
				SourceID: b.SourceID,
				Text:     st.Text,
				Span:     span,
				Reason:   ReasonNoOverlap,
			})
			continue
		}

		split := len(matches) > 1
		for _, w := range matches {
			att := attached[w.ID]
			if att == nil {
				att = &Attachment{SourceID: b.SourceID, Kind: b.Kind}
				attached[w.ID] = att
				ta := res.ByToken[w.ID]
				ta.Attachments = append(ta.Attachments, att)
			}
			if split {
				att.SplitInferred = true
			}
			part := Part{Fields: st.Fields.Clone()}
			if split {
				// Duplicating onto each covered token: the part's span is
				// the covered slice of the source span.
				part.Span = token.Span{Start: maxInt(span.Start, w.Span.Start), End: minInt(span.End, w.Span.End)}
			} else {
				part.Span = span
			}
			att.Parts = append(att.Parts, part)
		}
	}
}

// locate finds the source token's span within the normalized verse text.
// A span supplied by the source wins; otherwise a progressive search from
// the cursor keeps repeated words from matching earlier occurrences, with a
// fallback full search for out-of-order sources.
func (al *Aligner) locate(verse, norm string, supplied token.Span, cursor *int) (token.Span, bool) {
	if supplied.Len() > 0 {
		if supplied.End > len(verse) {
			return token.Span{}, false
		}
		if supplied.End > *cursor {
			*cursor = supplied.End
		}
		return supplied, true
	}
	if norm == "" {
		return token.Span{}, false
	}

	start := -1
	if *cursor <= len(verse) {
		if idx := strings.Index(verse[*cursor:], norm); idx >= 0 {
			start = *cursor + idx
		}
	}
	if start < 0 {
		if idx := strings.Index(verse, norm); idx >= 0 {
			start = idx
		}
	}
	if start < 0 {
		return token.Span{}, false
	}

	span := token.Span{Start: start, End: start + len(norm)}
	*cursor = span.End
	return span, true
}

// overlapping returns the canonical word tokens whose spans intersect the
// source span by more than the configured fraction of the source span.
// With the default fraction of zero, any positive overlap counts: sources
// may merge or split morphemes but never skip characters.
func (al *Aligner) overlapping(vt *token.VerseTokens, span token.Span) []*token.CanonicalToken {
	required := al.minOverlap * float64(span.Len())
	var matches []*token.CanonicalToken
	for _, w := range vt.Words {
		ov := float64(w.Span.Overlap(span))
		if ov > required && ov > 0 {
			matches = append(matches, w)
		}
	}
	return matches
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
