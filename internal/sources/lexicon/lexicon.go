// Package lexicon loads Strong's dictionary data and annotates morphology
// batches with lexical fields. The upstream dictionaries ship as JavaScript
// files wrapping a single JSON object literal, plus tab-separated
// relatedness tables.
package lexicon

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/source"
)

// SourceID is the batch source identifier for Strong's lexicon data.
const SourceID = "strongs-lexicon"

// Entry is one Strong's dictionary entry.
type Entry struct {
	Lemma           string `json:"lemma"`
	Transliteration string `json:"xlit"`
	Pronunciation   string `json:"pron"`
	Derivation      string `json:"derivation,omitempty"`
	StrongsDef      string `json:"strongs_def"`
	KJVDef          string `json:"kjv_def,omitempty"`
}

// Dictionary maps padded Strong's numbers (e.g., "H7225") to entries.
type Dictionary struct {
	entries map[string]Entry
	related map[string][]string
}

// Len returns the number of dictionary entries.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Lookup finds an entry by Strong's number in any accepted form ("H7225",
// "h7225", "H07225").
func (d *Dictionary) Lookup(number string) (Entry, bool) {
	padded, err := FormatStrongsNumber(number)
	if err != nil {
		return Entry{}, false
	}
	e, ok := d.entries[padded]
	return e, ok
}

// Related returns the related Strong's numbers recorded for one entry.
func (d *Dictionary) Related(number string) []string {
	padded, err := FormatStrongsNumber(number)
	if err != nil {
		return nil
	}
	return d.related[padded]
}

// ParseStrongsJS reads a Strong's dictionary shipped as a JavaScript
// module. The file assigns one object literal to a variable; everything
// between the first "{" and the last "}" is plain JSON.
func ParseStrongsJS(r io.Reader) (*Dictionary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read dictionary")
	}
	start := strings.IndexByte(string(data), '{')
	end := strings.LastIndexByte(string(data), '}')
	if start < 0 || end <= start {
		return nil, errors.NewValidation("dictionary", "no object literal found")
	}

	raw := make(map[string]Entry)
	if err := json.Unmarshal(data[start:end+1], &raw); err != nil {
		return nil, errors.Wrap(err, "decode dictionary")
	}

	d := &Dictionary{
		entries: make(map[string]Entry, len(raw)),
		related: make(map[string][]string),
	}
	for number, e := range raw {
		padded, err := FormatStrongsNumber(number)
		if err != nil {
			return nil, errors.Wrapf(err, "dictionary key %q", number)
		}
		d.entries[padded] = e
	}
	return d, nil
}

// LoadRelatedTSV merges a tab-separated relatedness table into the
// dictionary. Columns: source number, related number, score in [0, 1].
// Pairs scoring below minScore are dropped.
func (d *Dictionary) LoadRelatedTSV(r io.Reader, minScore float64) error {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = 3
	cr.Comment = '#'

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read related table")
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return errors.Wrapf(err, "related score %q", rec[2])
		}
		if score < minScore {
			continue
		}
		from, err := FormatStrongsNumber(strings.TrimSpace(rec[0]))
		if err != nil {
			return err
		}
		to, err := FormatStrongsNumber(strings.TrimSpace(rec[1]))
		if err != nil {
			return err
		}
		d.related[from] = append(d.related[from], to)
	}
}

// Annotate builds a lexicon batch for the tokens of a morphology batch:
// every token carrying a Strong's number found in the dictionary gets
// gloss, definition, transliteration, and headword fields, plus
// related_words when a relatedness table was loaded.
func (d *Dictionary) Annotate(morph *source.Batch) *source.Batch {
	out := &source.Batch{SourceID: SourceID, Kind: source.KindLexicon, Ref: morph.Ref}
	for _, tok := range morph.Tokens {
		num, ok := tok.Fields[source.FieldStrongs]
		if !ok {
			continue
		}
		e, found := d.Lookup(num.Text)
		if !found {
			continue
		}
		fields := source.Fields{
			source.FieldStrongs:  num,
			source.FieldHeadword: source.String(e.Lemma),
		}
		if e.KJVDef != "" {
			fields[source.FieldGloss] = source.String(e.KJVDef)
		}
		if e.StrongsDef != "" {
			fields[source.FieldDefinition] = source.String(e.StrongsDef)
		}
		if e.Transliteration != "" {
			fields[source.FieldTransliteration] = source.String(e.Transliteration)
		}
		if rel := d.Related(num.Text); len(rel) > 0 {
			fields[source.FieldRelatedWords] = source.List(rel...)
		}
		out.Tokens = append(out.Tokens, source.Token{
			Text:   tok.Text,
			Span:   tok.Span,
			Fields: fields,
		})
	}
	return out
}

/// FormatStrongsNumber normalizes a Strong's number to its canonical form:
// uppercase language letter plus the number, zero padding stripped
// ("h07225" becomes "H7225").
func FormatStrongsNumber(number string) (string, error) {
	s := strings.TrimSpace(number)
	if s == "" {
		return "", errors.NewValidation("strongs", "empty number")
	}
	lang := s[0]
	switch lang {
	case 'H', 'G':
	case 'h':
		lang = 'H'
	case 'g':
		lang = 'G'
	default:
		return "", errors.NewValidation("strongs",
			fmt.Sprintf("number %q must start with H or G", number))
	}
	n, err := strconv.Atoi(strings.TrimSpace(s[1:]))
	if err != nil || n <= 0 {
		return "", errors.NewValidation("strongs",
			fmt.Sprintf("number %q has no numeric part", number))
	}
	return fmt.Sprintf("%c%d", lang, n), nil
}
