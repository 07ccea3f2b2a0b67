// Package merge fuses aligned source contributions into one record per
// canonical token. Identity fields must agree across sources; descriptive
// fields resolve by configured authority; interpretive list fields union.
// Unresolvable disagreements are recorded as conflicts, never silently
// dropped.
package merge

import (
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/zeebo/blake3"

	"github.com/authenticwalk/context-grounded-bible/core/align"
	"github.com/authenticwalk/context-grounded-bible/core/config"
	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/score"
	"github.com/authenticwalk/context-grounded-bible/core/source"
	"github.com/authenticwalk/context-grounded-bible/core/token"
)

// ResolvedField is one field's merged outcome.
type ResolvedField struct {
	// Value is the resolved value.
	Value source.Value `json:"value"`

	// Source names the winning source for preferred fields. Union fields
	// have no single winner and leave it empty.
	Source string `json:"source,omitempty"`

	// Sources lists every source that contributed, sorted.
	Sources []string `json:"sources"`
}

// ConflictValue is one side of a disagreement.
type ConflictValue struct {
	Source string       `json:"source"`
	Value  source.Value `json:"value"`
}

// Conflict records a disagreement between sources on one field. Resolved
// conflicts kept a winner by authority and remain as an audit trail;
// unresolved conflicts leave the field unset and go to review.
type Conflict struct {
	Field    source.FieldName `json:"field"`
	Values   []ConflictValue  `json:"values"`
	Resolved bool             `json:"resolved"`
}

// Segment preserves one source's sub-token decomposition of the canonical
// token.
type Segment struct {
	Source string        `json:"source"`
	Span   token.Span    `json:"span"`
	Fields source.Fields `json:"fields,omitempty"`
}

// MergedRecord is the fused annotation record for one canonical token.
type MergedRecord struct {
	TokenID    string     `json:"token_id"`
	Surface    string     `json:"surface"`
	Normalized string     `json:"normalized"`
	Span       token.Span `json:"span"`

	Fields    map[source.FieldName]*ResolvedField `json:"fields"`
	Conflicts []Conflict                          `json:"conflicts,omitempty"`
	Segments  []Segment                           `json:"segments,omitempty"`

	// Scores is filled by the scoring stage after merging.
	Scores map[source.FieldName]*score.FieldScore `json:"scores,omitempty"`

	// Checksum is the BLAKE3 digest of the record's canonical JSON form,
	// computed last. Identical inputs produce identical checksums.
	Checksum string `json:"checksum,omitempty"`
}

// FieldNames returns the record's resolved field names, sorted.
func (r *MergedRecord) FieldNames() []source.FieldName {
	names := make([]source.FieldName, 0, len(r.Fields))
	for f := range r.Fields {
		names = append(names, f)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Seal computes and stores the record's checksum. The checksum covers the
// whole record except the checksum itself; JSON object keys marshal in
// sorted order, so equal records seal to equal digests.
func (r *MergedRecord) Seal() error {
	shadow := *r
	shadow.Checksum = ""
	data, err := json.Marshal(&shadow)
	if err != nil {
		return errors.Wrap(err, "seal record")
	}
	sum := blake3.Sum256(data)
	r.Checksum = hex.EncodeToString(sum[:])
	return nil
}

// Merger fuses token alignments under one configuration. Safe for
// concurrent use.
type Merger struct {
	cfg *config.Config
}

// New creates a Merger.
func New(cfg *config.Config) *Merger {
	return &Merger{cfg: cfg}
}

// Merge fuses a full verse alignment into one record per canonical word,
// in token order.
func (m *Merger) Merge(res *align.Result) []*MergedRecord {
	records := make([]*MergedRecord, 0, len(res.Verse.Words))
	for _, w := range res.Verse.Words {
		records = append(records, m.MergeToken(res.ByToken[w.ID]))
	}
	return records
}

// contribution is one source's claim on one field.
type contribution struct {
	source string
	value  source.Value
}

// MergeToken fuses all attachments on one canonical token.
func (m *Merger) MergeToken(ta *align.TokenAlignment) *MergedRecord {
	rec := &MergedRecord{
		TokenID:    ta.Token.ID,
		Surface:    ta.Token.Surface,
		Normalized: ta.Token.Normalized,
		Span:       ta.Token.Span,
		Fields:     make(map[source.FieldName]*ResolvedField),
	}

	byField := make(map[source.FieldName][]contribution)
	for _, att := range ta.Attachments {
		fields := attachmentFields(att)
		for _, f := range fields {
			v, _ := att.Value(f)
			byField[f] = append(byField[f], contribution{source: att.SourceID, value: v})
		}
		for _, p := range att.Parts {
			rec.Segments = append(rec.Segments, Segment{
				Source: att.SourceID,
				Span:   p.Span,
				Fields: p.Fields,
			})
		}
	}

	for _, f := range sortedFields(byField) {
		m.resolveField(rec, f, byField[f])
	}

	sort.SliceStable(rec.Segments, func(i, j int) bool {
		if rec.Segments[i].Span.Start != rec.Segments[j].Span.Start {
			return rec.Segments[i].Span.Start < rec.Segments[j].Span.Start
		}
		return rec.Segments[i].Source < rec.Segments[j].Source
	})
	return rec
}

// resolveField applies the field's merge policy to its contributions.
func (m *Merger) resolveField(rec *MergedRecord, f source.FieldName, contribs []contribution) {
	switch m.cfg.PolicyFor(f) {
	case config.PolicyUnion:
		rec.Fields[f] = unionField(contribs)
		return
	default:
	}

	groups := groupByValue(contribs)
	if len(groups) == 1 {
		g := groups[0]
		rec.Fields[f] = &ResolvedField{
			Value:   g.value,
			Source:  m.preferredSource(f, g.sources),
			Sources: g.sources,
		}
		return
	}

	conflict := Conflict{Field: f}
	for _, g := range groups {
		for _, s := range g.sources {
			conflict.Values = append(conflict.Values, ConflictValue{Source: s, Value: g.value})
		}
	}
	sort.Slice(conflict.Values, func(i, j int) bool {
		return conflict.Values[i].Source < conflict.Values[j].Source
	})

	if m.cfg.PolicyFor(f) == config.PolicyConflict {
		// Identity fields: disagreement means the field stays unset and
		// goes to review.
		rec.Conflicts = append(rec.Conflicts, conflict)
		return
	}

	// PolicyPrefer: the highest-authority source wins; the losers stay on
	// record as a resolved conflict.
	winner := groups[0]
	winnerSrc := m.preferredSource(f, winner.sources)
	winnerRank := m.sourceRank(f, winnerSrc)
	for _, g := range groups[1:] {
		src := m.preferredSource(f, g.sources)
		if r := m.sourceRank(f, src); r < winnerRank || (r == winnerRank && src < winnerSrc) {
			winner, winnerSrc, winnerRank = g, src, r
		}
	}
	rec.Fields[f] = &ResolvedField{
		Value:   winner.value,
		Source:  winnerSrc,
		Sources: winner.sources,
	}
	conflict.Resolved = true
	rec.Conflicts = append(rec.Conflicts, conflict)
}

// valueGroup collects the sources agreeing on one distinct value.
type valueGroup struct {
	value   source.Value
	sources []string
}

// groupByValue dedupes contributions by value equivalence, keeping first
// appearance order within the verse.
func groupByValue(contribs []contribution) []valueGroup {
	var groups []valueGroup
	for _, c := range contribs {
		placed := false
		for i := range groups {
			if groups[i].value.Equal(c.value) {
				groups[i].sources = append(groups[i].sources, c.source)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, valueGroup{value: c.value, sources: []string{c.source}})
		}
	}
	for i := range groups {
		groups[i].sources = dedupSorted(groups[i].sources)
	}
	return groups
}

// unionField combines every contribution into one sorted, deduplicated
// list value.
func unionField(contribs []contribution) *ResolvedField {
	seen := make(map[string]bool)
	var items []string
	var sources []string
	for _, c := range contribs {
		sources = append(sources, c.source)
		for _, it := range c.value.List() {
			if !seen[it] {
				seen[it] = true
				items = append(items, it)
			}
		}
	}
	sort.Strings(items)
	return &ResolvedField{
		Value:   source.List(items...),
		Sources: dedupSorted(sources),
	}
}

// preferredSource picks the highest-authority source from a set, falling
// back to lexicographic order among equals.
func (m *Merger) preferredSource(f source.FieldName, sources []string) string {
	best := ""
	bestRank := 0
	for _, s := range sources {
		r := m.sourceRank(f, s)
		if best == "" || r < bestRank || (r == bestRank && s < best) {
			best, bestRank = s, r
		}
	}
	return best
}

// sourceRank returns the source's position in the field's authority
// ranking; unranked sources sort after all ranked ones.
func (m *Merger) sourceRank(f source.FieldName, src string) int {
	rank := m.cfg.AuthorityRank(f)
	for i, s := range rank {
		if s == src {
			return i
		}
	}
	return len(rank)
}

func attachmentFields(att *align.Attachment) []source.FieldName {
	seen := make(map[source.FieldName]bool)
	var names []source.FieldName
	for _, p := range att.Parts {
		for f := range p.Fields {
			if !seen[f] {
				seen[f] = true
				names = append(names, f)
			}
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func sortedFields(m map[source.FieldName][]contribution) []source.FieldName {
	names := make([]source.FieldName, 0, len(m))
	for f := range m {
		names = append(names, f)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func dedupSorted(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	for i, s := range in {
		if i == 0 || s != in[i-1] {
			out = append(out, s)
		}
	}
	return out
}
