// Package token defines the canonical token sequence for a verse. The
// canonical tokenization is the authoritative word-boundary convention that
// every secondary source is aligned against, and it assigns each word a
// globally unique, deterministic identifier.
package token

import (
	"strings"
	"unicode"

	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/ref"
)

// Span is a half-open [Start, End) byte range into a verse's normalized text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the length of the span in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlap returns the number of bytes shared by two spans.
func (s Span) Overlap(o Span) int {
	start := s.Start
	if o.Start > start {
		start = o.Start
	}
	end := s.End
	if o.End < end {
		end = o.End
	}
	if end <= start {
		return 0
	}
	return end - start
}

// Type represents the type of a canonical token.
type Type string

// Token type constants.
const (
	TypeWord        Type = "word"
	TypeWhitespace  Type = "whitespace"
	TypePunctuation Type = "punctuation"
)

// CanonicalToken is one segment of a verse's normalized text. Word tokens
// carry a globally unique ID and a 1-based ordinal; whitespace and
// punctuation tokens exist only to keep the span partition gapless.
type CanonicalToken struct {
	// ID is the globally unique identifier, set for word tokens only.
	// Format: "lang:Book.C.V#ordinal".
	ID string `json:"id,omitempty"`

	// Type is the token type (word, whitespace, punctuation).
	Type Type `json:"type"`

	// Surface is the token text as it appears in the source verse,
	// diacritics included.
	Surface string `json:"surface"`

	// Normalized is the token text with combining marks stripped. This is
	// the form span matching operates on.
	Normalized string `json:"normalized"`

	// Span locates the token within the verse's normalized text.
	Span Span `json:"span"`

	// Ordinal is the 1-based position among the verse's word tokens,
	// 0 for non-word tokens.
	Ordinal int `json:"ordinal,omitempty"`
}

// IsWord returns true if this token is a word token.
func (t *CanonicalToken) IsWord() bool {
	return t.Type == TypeWord
}

// VerseTokens is the canonical tokenization of one verse.
type VerseTokens struct {
	// Ref is the verse reference.
	Ref ref.Ref `json:"ref"`

	// Normalized is the full normalized verse text. Token spans partition
	// this string exactly.
	Normalized string `json:"normalized"`

	// Tokens is the ordered token sequence, words and separators both.
	Tokens []*CanonicalToken `json:"tokens"`

	// Words is the word-token subsequence of Tokens.
	Words []*CanonicalToken `json:"-"`
}

// VerifyWordCount checks this tokenization against the word count from a
// previous run of the same rules. A disagreement means the canonical source
// drifted and any IDs emitted now would be ambiguous, so it fails fast.
// A prior count of zero means no prior run is known.
func (vt *VerseTokens) VerifyWordCount(prior int) error {
	if prior > 0 && prior != len(vt.Words) {
		return &errors.SchemaMismatchError{
			Verse:    vt.Ref.String(),
			Expected: prior,
			Got:      len(vt.Words),
		}
	}
	return nil
}

// Word returns the word token with the given 1-based ordinal, or nil.
func (vt *VerseTokens) Word(ordinal int) *CanonicalToken {
	if ordinal < 1 || ordinal > len(vt.Words) {
		return nil
	}
	return vt.Words[ordinal-1]
}

// Tokenizer produces canonical tokenizations. It holds no mutable state and
// is safe for concurrent use.
type Tokenizer struct{}

// NewTokenizer creates a Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// rawSegment is a surface-text segment before normalization.
type rawSegment struct {
	text string
	typ  Type
}

// classify assigns a token type to a rune. Combining marks stay attached to
// the word they modify; the maqqef and sof pasuq fall out as punctuation.
func classify(r rune) Type {
	switch {
	case unicode.IsSpace(r):
		return TypeWhitespace
	case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '\'':
		return TypeWord
	default:
		return TypePunctuation
	}
}

// segment splits raw verse text into typed surface segments.
func segment(text string) []rawSegment {
	var segs []rawSegment
	var cur strings.Builder
	var curType Type

	for _, r := range text {
		typ := classify(r)
		if cur.Len() > 0 && typ != curType {
			segs = append(segs, rawSegment{text: cur.String(), typ: curType})
			cur.Reset()
		}
		curType = typ
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		segs = append(segs, rawSegment{text: cur.String(), typ: curType})
	}
	return segs
}

// Tokenize produces the canonical token sequence for a verse. Spans are
// assigned over the normalized verse text, which is rebuilt segment by
// segment so that the spans partition it exactly: no gaps, no overlaps.
// Whitespace runs collapse to a single space in the normalized form.
func (tz *Tokenizer) Tokenize(r ref.Ref, text string) (*VerseTokens, error) {
	if err := r.Validate(); err != nil {
		return nil, errors.Wrap(err, "tokenize")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.NewValidation("text", "verse text is empty")
	}

	vt := &VerseTokens{Ref: r}
	var normVerse strings.Builder
	ordinal := 0

	for _, seg := range segment(text) {
		var normText string
		if seg.typ == TypeWhitespace {
			normText = " "
		} else {
			normText = Normalize(seg.text)
		}
		// A segment of pure combining marks normalizes to nothing and
		// contributes no span.
		if normText == "" {
			continue
		}

		tok := &CanonicalToken{
			Type:       seg.typ,
			Surface:    seg.text,
			Normalized: normText,
			Span:       Span{Start: normVerse.Len(), End: normVerse.Len() + len(normText)},
		}
		if seg.typ == TypeWord {
			ordinal++
			tok.Ordinal = ordinal
			tok.ID = r.TokenID(ordinal)
			vt.Words = append(vt.Words, tok)
		}
		vt.Tokens = append(vt.Tokens, tok)
		normVerse.WriteString(normText)
	}

	vt.Normalized = normVerse.String()
	return vt, nil
}
