// Package ref provides canonical verse references for the ancient-language
// corpora. A reference carries a BCP-47 language tag alongside the OSIS-style
// book/chapter/verse coordinates so that token identifiers derived from it
// are unique across corpora in different languages.
package ref

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Ref identifies a single verse in one ancient-language corpus.
type Ref struct {
	// Language is the BCP-47 language tag (e.g., "hbo", "grc").
	Language string `json:"language,omitempty"`

	// Book is the OSIS book ID (e.g., "Gen", "Matt", "1John").
	Book string `json:"book"`

	// Chapter is the chapter number (1-indexed).
	Chapter int `json:"chapter"`

	// Verse is the verse number (1-indexed).
	Verse int `json:"verse"`
}

// refGrammar is the participle grammar for verse references.
// Examples: "Gen.1.1", "hbo:Gen.1.1", "1John.3.16", "grc:Matt.5.3"
//
//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	Lang       *string `parser:"( @Lang ':' )?"`
	BookPrefix string  `parser:"@Int?"`
	BookName   string  `parser:"@Ident"`
	Chapter    int     `parser:"'.' @Int"`
	Verse      int     `parser:"'.' @Int"`
}

// refLexer defines the lexer for verse references.
// Book names start with uppercase; language tags are all lowercase, which
// keeps the two token classes disjoint.
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Z][A-Za-z]*`},
	{Name: "Lang", Pattern: `[a-z][a-z0-9-]+`},
	{Name: "Punct", Pattern: `[.:]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a verse reference string.
// Supported formats:
//   - "Gen.1.1" (book, chapter, verse)
//   - "hbo:Gen.1.1" (with language tag)
//   - "1John.3.16" (numbered book)
func Parse(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, fmt.Errorf("empty reference string")
	}

	parsed, err := refParser.ParseString("", s)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid reference format: %q: %w", s, err)
	}

	r := Ref{
		Book:    parsed.BookPrefix + parsed.BookName,
		Chapter: parsed.Chapter,
		Verse:   parsed.Verse,
	}
	if parsed.Lang != nil {
		r.Language = *parsed.Lang
	}
	return r, nil
}

// String returns the reference in "lang:Book.C.V" form, omitting the
// language prefix when no language is set.
func (r Ref) String() string {
	var sb strings.Builder
	if r.Language != "" {
		sb.WriteString(r.Language)
		sb.WriteString(":")
	}
	fmt.Fprintf(&sb, "%s.%d.%d", r.Book, r.Chapter, r.Verse)
	return sb.String()
}

// TokenID derives the globally unique canonical token identifier for the
// word at the given 1-based ordinal position within this verse. The ID is
// deterministic and requires no lookup table.
func (r Ref) TokenID(ordinal int) string {
	return fmt.Sprintf("%s#%d", r.String(), ordinal)
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.Book == "" && r.Chapter == 0 && r.Verse == 0
}

// Validate checks that the reference addresses a single verse.
func (r Ref) Validate() error {
	if r.Book == "" {
		return fmt.Errorf("reference missing book")
	}
	if r.Chapter < 1 {
		return fmt.Errorf("reference %s: chapter must be >= 1", r.Book)
	}
	if r.Verse < 1 {
		return fmt.Errorf("reference %s.%d: verse must be >= 1", r.Book, r.Chapter)
	}
	return nil
}
