// Package source models the per-source annotation inputs the fusion core
// consumes. Each external dataset (a morphological database, a lexicon, an
// entity annotation set, a cross-language alignment table) arrives as a batch
// of tokens in that source's own word-boundary convention, already parsed by
// the surrounding I/O layer.
package source

import (
	"sort"
	"strings"

	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/ref"
	"github.com/authenticwalk/context-grounded-bible/core/token"
)

// Kind identifies the class of source dataset. The set is closed so the
// merger's precedence table can be checked exhaustively.
type Kind string

// Source kind constants.
const (
	KindMorphology Kind = "morphology"
	KindLexicon    Kind = "lexicon"
	KindEntity     Kind = "entity"
	KindAlignment  Kind = "alignment"
)

// validKinds is the set of valid source kinds.
var validKinds = map[Kind]bool{
	KindMorphology: true,
	KindLexicon:    true,
	KindEntity:     true,
	KindAlignment:  true,
}

// IsValid returns true if the kind is valid.
func (k Kind) IsValid() bool {
	return validKinds[k]
}

// FieldName identifies one annotation field on a canonical token.
type FieldName string

// Extraction fields: mechanical values read directly off the source data.
const (
	FieldSurface         FieldName = "surface"
	FieldLemma           FieldName = "lemma"
	FieldStrongs         FieldName = "strongs"
	FieldMorphology      FieldName = "morphology"
	FieldPartOfSpeech    FieldName = "part_of_speech"
	FieldTransliteration FieldName = "transliteration"
	FieldGloss           FieldName = "gloss"
	FieldDefinition      FieldName = "definition"
)

// List-like fields merged by union across sources.
const (
	FieldEntityRefs       FieldName = "entity_refs"
	FieldAlignmentTargets FieldName = "alignment_targets"
	FieldRelatedWords     FieldName = "related_words"
)

// Identity-bearing field: a cross-source headword key used for downstream
// joins. Disagreement here is never silently resolved.
const (
	FieldHeadword FieldName = "headword"
)

// Discourse and interpretive fields.
const (
	FieldNumber              FieldName = "number"
	FieldPerson              FieldName = "person"
	FieldParticipantTracking FieldName = "participant_tracking"
	FieldProximity           FieldName = "proximity"
	FieldTime                FieldName = "time"
	FieldSpeakerAge          FieldName = "speaker_age"
	FieldSpeakerAttitude     FieldName = "speaker_attitude"
	FieldLexicalSense        FieldName = "lexical_sense"
)

// Value is one field value: a scalar or a list. List values belong to
// union-merged fields such as entity references.
type Value struct {
	Text  string   `json:"text,omitempty"`
	Items []string `json:"items,omitempty"`
}

// String creates a scalar value.
func String(s string) Value {
	return Value{Text: s}
}

// List creates a list value.
func List(items ...string) Value {
	return Value{Items: items}
}

// IsZero reports whether the value is empty.
func (v Value) IsZero() bool {
	return v.Text == "" && len(v.Items) == 0
}

// IsList reports whether the value is list-shaped.
func (v Value) IsList() bool {
	return len(v.Items) > 0
}

// List returns the value as a slice: the items of a list value, or the
// scalar as a one-element slice. Empty values return nil.
func (v Value) List() []string {
	if v.IsList() {
		return v.Items
	}
	if v.Text == "" {
		return nil
	}
	return []string{v.Text}
}

// canonical returns the comparison form: case-folded, space-collapsed.
func canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Equal compares two values after normalization. List values compare as
// sets: order and duplicates do not affect agreement.
func (v Value) Equal(o Value) bool {
	if v.IsList() != o.IsList() {
		return false
	}
	if !v.IsList() {
		return canonical(v.Text) == canonical(o.Text)
	}
	return sortedSet(v.Items) == sortedSet(o.Items)
}

func sortedSet(items []string) string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		c := canonical(it)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return strings.Join(out, "\x1f")
}

// Render returns a display form of the value.
func (v Value) Render() string {
	if v.IsList() {
		return strings.Join(v.Items, "; ")
	}
	return v.Text
}

// Fields maps field names to values.
type Fields map[FieldName]Value

// Names returns the field names in sorted order, for deterministic
// iteration.
func (f Fields) Names() []FieldName {
	names := make([]FieldName, 0, len(f))
	for n := range f {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Clone returns a shallow copy of the field set.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for n, v := range f {
		out[n] = v
	}
	return out
}

// Token is one token in a source's own segmentation: its text plus the
// field values the source claims for it. The aligner locates it within the
// canonical verse by normalized character span.
type Token struct {
	// Text is the token as the source spells it. A source that splits a
	// grammatical prefix supplies the prefix and stem as separate tokens.
	Text string `json:"text"`

	// Span optionally locates the token as offsets into the canonical
	// normalized verse text the aligner works over. When zero the aligner
	// locates the token itself by progressive search over that text.
	Span token.Span `json:"span,omitempty"`

	// Fields holds the source's claims for this token.
	Fields Fields `json:"fields"`
}

// Batch is one source's complete contribution for one verse.
type Batch struct {
	// SourceID names the dataset (e.g., "oshb", "strongs-lexicon").
	SourceID string `json:"source_id"`

	// Kind classifies the dataset.
	Kind Kind `json:"kind"`

	// Ref is the verse this batch annotates.
	Ref ref.Ref `json:"ref"`

	// Tokens is the source's own token sequence for the verse, in order.
	Tokens []Token `json:"tokens"`
}

// Validate checks batch shape before alignment.
func (b *Batch) Validate() error {
	if b.SourceID == "" {
		return errors.NewValidation("source_id", "is required")
	}
	if !b.Kind.IsValid() {
		return errors.NewValidation("kind", "unknown source kind: "+string(b.Kind))
	}
	if err := b.Ref.Validate(); err != nil {
		return err
	}
	return nil
}
