package pipeline

import (
	"context"
	"reflect"
	"testing"

	"github.com/authenticwalk/context-grounded-bible/core/config"
	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/ref"
	"github.com/authenticwalk/context-grounded-bible/core/source"
)

const gen11 = "בראשית ברא אלהים"

func gen11Input() VerseInput {
	r := ref.Ref{Language: "hbo", Book: "Gen", Chapter: 1, Verse: 1}
	return VerseInput{
		Ref:  r,
		Text: gen11,
		Sources: []*source.Batch{
			{
				SourceID: "oshb",
				Kind:     source.KindMorphology,
				Ref:      r,
				Tokens: []source.Token{
					{Text: "בראשית", Fields: source.Fields{
						source.FieldStrongs: source.String("H7225"),
						source.FieldLemma:   source.String("רֵאשִׁית"),
					}},
					{Text: "ברא", Fields: source.Fields{
						source.FieldStrongs: source.String("H1254"),
					}},
					{Text: "אלהים", Fields: source.Fields{
						source.FieldStrongs: source.String("H430"),
					}},
				},
			},
			{
				SourceID: "alt-morph",
				Kind:     source.KindMorphology,
				Ref:      r,
				Tokens: []source.Token{
					{Text: "בראשית", Fields: source.Fields{
						source.FieldStrongs: source.String("H7218"),
					}},
				},
			},
		},
	}
}

func TestProcessVerse(t *testing.T) {
	p := New(config.Default())
	res := p.ProcessVerse(context.Background(), gen11Input())
	if res.Err != nil {
		t.Fatalf("ProcessVerse: %v", res.Err)
	}
	if len(res.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(res.Records))
	}

	// Word 0: the two morphology sources disagree on the Strong's number,
	// so the record has no strongs value and the conflict goes to review.
	first := res.Records[0]
	if _, ok := first.Fields[source.FieldStrongs]; ok {
		t.Error("conflicting strongs resolved silently")
	}
	if len(first.Conflicts) != 1 || first.Conflicts[0].Resolved {
		t.Errorf("conflicts = %+v", first.Conflicts)
	}
	foundConflictCandidate := false
	for _, c := range res.Candidates {
		if c.TokenID == first.TokenID && c.FieldName == source.FieldStrongs {
			foundConflictCandidate = true
			if c.Reason != ReasonSourceConflict {
				t.Errorf("conflict candidate reason = %q", c.Reason)
			}
		}
	}
	if !foundConflictCandidate {
		t.Error("unresolved conflict produced no review candidate")
	}

	// Words 1 and 2 have an undisputed strongs value.
	for _, rec := range res.Records[1:] {
		rf := rec.Fields[source.FieldStrongs]
		if rf == nil {
			t.Errorf("%s: strongs missing", rec.TokenID)
			continue
		}
		fs := rec.Scores[source.FieldStrongs]
		if fs == nil || fs.Confidence != 0.96 {
			t.Errorf("%s: strongs score = %+v", rec.TokenID, fs)
		}
	}

	for _, rec := range res.Records {
		if rec.Checksum == "" {
			t.Errorf("%s: record not sealed", rec.TokenID)
		}
	}
}

func TestProcessVerseDeterministic(t *testing.T) {
	p := New(config.Default())
	a := p.ProcessVerse(context.Background(), gen11Input())
	b := p.ProcessVerse(context.Background(), gen11Input())
	if a.Err != nil || b.Err != nil {
		t.Fatalf("errs: %v %v", a.Err, b.Err)
	}
	for i := range a.Records {
		if a.Records[i].Checksum != b.Records[i].Checksum {
			t.Errorf("record %d: checksums differ across runs", i)
		}
	}
	if len(a.Candidates) != len(b.Candidates) {
		t.Fatalf("candidate counts differ: %d vs %d", len(a.Candidates), len(b.Candidates))
	}
	for i := range a.Candidates {
		if !reflect.DeepEqual(a.Candidates[i], b.Candidates[i]) {
			t.Errorf("candidate %d differs: %+v vs %+v", i, a.Candidates[i], b.Candidates[i])
		}
	}
}

func TestProcessVerseSchemaMismatch(t *testing.T) {
	p := New(config.Default())
	in := gen11Input()
	in.PriorWordCount = 4
	res := p.ProcessVerse(context.Background(), in)
	if !errors.Is(res.Err, errors.ErrSchemaMismatch) {
		t.Errorf("err = %v, want ErrSchemaMismatch", res.Err)
	}
}

func TestProcessVerseFlags(t *testing.T) {
	p := New(config.Default())
	in := gen11Input()
	in.Sources[0].Tokens[0].Fields[source.FieldNumber] = source.String("Singular")
	in.Flags = map[string]bool{"theological_content": true}

	res := p.ProcessVerse(context.Background(), in)
	if res.Err != nil {
		t.Fatalf("ProcessVerse: %v", res.Err)
	}
	fs := res.Records[0].Scores[source.FieldNumber]
	if fs == nil {
		t.Fatal("number not scored")
	}
	if !fs.NeedsReview || fs.ReviewReason != config.ReasonTheological {
		t.Errorf("score = %+v", fs)
	}
}

func TestProcessBatch(t *testing.T) {
	p := New(config.Default())
	inputs := make([]VerseInput, 5)
	for i := range inputs {
		in := gen11Input()
		in.Ref.Verse = i + 1
		for _, b := range in.Sources {
			b.Ref.Verse = i + 1
		}
		inputs[i] = in
	}
	// Verse 3 is broken; the rest must still fuse.
	inputs[2].PriorWordCount = 99

	results := p.ProcessBatch(context.Background(), inputs, 3)
	if len(results) != len(inputs) {
		t.Fatalf("results = %d", len(results))
	}
	for i, res := range results {
		if res.Ref.Verse != i+1 {
			t.Errorf("result %d out of order: %s", i, res.Ref)
		}
		if i == 2 {
			if !errors.Is(res.Err, errors.ErrSchemaMismatch) {
				t.Errorf("verse 3 err = %v", res.Err)
			}
			continue
		}
		if res.Err != nil {
			t.Errorf("verse %d: %v", i+1, res.Err)
		}
	}
}

func TestProcessBatchCanceled(t *testing.T) {
	p := New(config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.ProcessBatch(ctx, []VerseInput{gen11Input()}, 2)
	if results[0].Err == nil {
		t.Error("expected error for canceled context")
	}
}
