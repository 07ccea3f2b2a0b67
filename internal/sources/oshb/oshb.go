// Package oshb extracts morphology batches from Open Scriptures Hebrew
// Bible OSIS XML. OSHB writes multi-morpheme words as slash-joined
// segments with parallel slash-joined lemma and morph attributes; each
// segment becomes its own source token so prefixes keep their own
// annotations.
package oshb

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/ref"
	"github.com/authenticwalk/context-grounded-bible/core/source"
)

// SourceID is the batch source identifier for OSHB morphology.
const SourceID = "oshb"

// DefaultLanguage is the canonical language code for OSHB text.
const DefaultLanguage = "hbo"

// Verse pairs a verse's reconstructed surface text with its morphology
// batch. Text keeps each multi-morpheme word intact, one surface word per
// OSHB <w> element, so the canonical tokenization sees whole words while
// the batch's tokens stay per-morpheme and aggregate onto them.
type Verse struct {
	Text  string
	Batch *source.Batch
}

// Extractor parses OSIS XML into morphology batches.
type Extractor struct {
	// Language overrides DefaultLanguage in emitted refs.
	Language string
}

func (e *Extractor) language() string {
	if e.Language != "" {
		return e.Language
	}
	return DefaultLanguage
}

// ExtractVerses parses every verse in the document, in document order.
func (e *Extractor) ExtractVerses(data []byte) ([]Verse, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "parse OSIS XML")
	}
	nodes, err := xmlquery.QueryAll(doc, "//verse[@osisID]")
	if err != nil {
		return nil, errors.Wrap(err, "query verses")
	}
	if len(nodes) == 0 {
		return nil, errors.NewNotFound("verse", "")
	}

	verses := make([]Verse, 0, len(nodes))
	for _, n := range nodes {
		v, err := e.extractVerse(n)
		if err != nil {
			return nil, err
		}
		verses = append(verses, v)
	}
	return verses, nil
}

// ExtractVerse parses one verse by its osisID (e.g., "Gen.1.1").
func (e *Extractor) ExtractVerse(data []byte, osisID string) (Verse, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return Verse{}, errors.Wrap(err, "parse OSIS XML")
	}
	node, err := xmlquery.Query(doc, "//verse[@osisID='"+osisID+"']")
	if err != nil {
		return Verse{}, errors.Wrap(err, "query verse")
	}
	if node == nil {
		return Verse{}, errors.NewNotFound("verse", osisID)
	}
	return e.extractVerse(node)
}

func (e *Extractor) extractVerse(verse *xmlquery.Node) (Verse, error) {
	osisID := verse.SelectAttr("osisID")
	r, err := ref.Parse(e.language() + ":" + osisID)
	if err != nil {
		return Verse{}, errors.Wrapf(err, "verse osisID %q", osisID)
	}

	b := &source.Batch{SourceID: SourceID, Kind: source.KindMorphology, Ref: r}
	var words []string
	for child := verse.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		switch child.Data {
		case "w":
			toks := splitWord(
				child.InnerText(),
				child.SelectAttr("lemma"),
				child.SelectAttr("morph"))
			if len(toks) == 0 {
				continue
			}
			b.Tokens = append(b.Tokens, toks...)
			// The surface word is the morphemes joined back together, so
			// per-morpheme tokens aggregate onto one canonical word.
			word := make([]string, len(toks))
			for i, t := range toks {
				word[i] = t.Text
			}
			words = append(words, strings.Join(word, ""))
		case "seg":
			// Cantillation segs (sof pasuq etc.) carry no morphology.
			if text := strings.TrimSpace(child.InnerText()); text != "" {
				b.Tokens = append(b.Tokens, source.Token{Text: text})
				words = append(words, text)
			}
		}
	}
	if err := b.Validate(); err != nil {
		return Verse{}, errors.Wrapf(err, "verse %s", osisID)
	}
	return Verse{Text: strings.Join(words, " "), Batch: b}, nil
}

// splitWord breaks a slash-joined OSHB word into per-morpheme tokens. The
// lemma and morph attributes split in parallel; a missing position leaves
// that field unset rather than borrowing a neighbor's.
func splitWord(text, lemma, morph string) []source.Token {
	segments := strings.Split(text, "/")
	lemmas := strings.Split(lemma, "/")
	morphs := splitMorph(morph, len(segments))

	tokens := make([]source.Token, 0, len(segments))
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		tok := source.Token{Text: seg, Fields: source.Fields{}}
		if i < len(lemmas) {
			l := strings.TrimSpace(lemmas[i])
			if l != "" {
				tok.Fields[source.FieldLemma] = source.String(l)
				if s := strongsFromLemma(l); s != "" {
					tok.Fields[source.FieldStrongs] = source.String(s)
				}
			}
		}
		if i < len(morphs) && morphs[i] != "" {
			tok.Fields[source.FieldMorphology] = source.String(morphs[i])
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// splitMorph splits a slash-joined morph code, carrying the leading
// language marker ("H" or "A") onto every segment so each stands alone.
func splitMorph(morph string, want int) []string {
	morph = strings.TrimSpace(morph)
	if morph == "" {
		return nil
	}
	lang := ""
	if morph[0] == 'H' || morph[0] == 'A' {
		lang = morph[:1]
		morph = morph[1:]
	}
	parts := strings.Split(morph, "/")
	out := make([]string, 0, want)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			out = append(out, "")
			continue
		}
		out = append(out, lang+p)
	}
	return out
}

// strongsFromLemma extracts a Strong's number from an OSHB lemma value.
// Lemmas look like "7225", "1254 a", or "b" for bare prefixes; only the
// leading digits name a Strong's entry.
func strongsFromLemma(lemma string) string {
	end := 0
	for end < len(lemma) && lemma[end] >= '0' && lemma[end] <= '9' {
		end++
	}
	if end == 0 {
		return ""
	}
	return "H" + lemma[:end]
}
