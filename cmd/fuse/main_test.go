package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/authenticwalk/context-grounded-bible/core/export"
	"github.com/authenticwalk/context-grounded-bible/core/pipeline"
	"github.com/authenticwalk/context-grounded-bible/core/review"
	"github.com/authenticwalk/context-grounded-bible/core/source"
)

const testOSIS = `<?xml version="1.0" encoding="UTF-8"?>
<osis><osisText><div type="book" osisID="Gen"><chapter osisID="Gen.1">
<verse osisID="Gen.1.1">
  <w lemma="b/7225" morph="HR/Ncfsa">בְּ/רֵאשִׁית</w>
  <w lemma="1254 a" morph="HVqp3ms">בָּרָא</w>
  <w lemma="430" morph="HNcmpa">אֱלֹהִים</w>
</verse>
</chapter></div></osisText></osis>`

const testStrongsJS = `var dict = {
  "H7225": {"lemma": "רֵאשִׁית", "xlit": "reshit", "pron": "ray-sheeth'",
            "strongs_def": "the first", "kjv_def": "beginning"}
};`

func TestExtractThenMerge(t *testing.T) {
	dir := t.TempDir()
	osisPath := filepath.Join(dir, "gen.xml")
	strongsPath := filepath.Join(dir, "strongs.js")
	inputsPath := filepath.Join(dir, "inputs.json")
	snapshotPath := filepath.Join(dir, "snapshot.json.xz")
	ledgerPath := filepath.Join(dir, "ledger.db")

	if err := os.WriteFile(osisPath, []byte(testOSIS), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(strongsPath, []byte(testStrongsJS), 0644); err != nil {
		t.Fatal(err)
	}

	extract := &ExtractCmd{OSIS: osisPath, Out: inputsPath, Strongs: strongsPath}
	if err := extract.Run(); err != nil {
		t.Fatalf("extract: %v", err)
	}

	var inputs []pipeline.VerseInput
	data, err := os.ReadFile(inputsPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &inputs); err != nil {
		t.Fatalf("decode inputs: %v", err)
	}
	if len(inputs) != 1 || len(inputs[0].Sources) != 2 {
		t.Fatalf("inputs = %+v", inputs)
	}

	merge := &MergeCmd{
		Input: inputsPath, Out: snapshotPath,
		Compression: "xz", Workers: 2, Ledger: ledgerPath,
	}
	if err := merge.Run(); err != nil {
		t.Fatalf("merge: %v", err)
	}

	snap, err := export.Read(snapshotPath)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(snap.Verses) != 1 || snap.Verses[0].Ref != "hbo:Gen.1.1" {
		t.Fatalf("snapshot = %+v", snap.Verses)
	}
	// The verse text keeps the slash-joined first word intact, so three
	// canonical words come out and the prefix + stem morphemes both land
	// on the first one.
	recs := snap.Verses[0].Records
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}
	if fs := recs[0].Fields[source.FieldMorphology]; fs == nil || fs.Value.Text != "HR HNcfsa" {
		t.Errorf("first word morphology = %+v, want HR HNcfsa", fs)
	}
	if fs := recs[0].Fields[source.FieldGloss]; fs == nil || fs.Value.Text != "beginning" {
		t.Errorf("first word gloss = %+v, want beginning", fs)
	}

	store, err := review.OpenSQLiteStore(ledgerPath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer store.Close()
	t.Run("stats", func(t *testing.T) {
		stats := &ReviewStatsCmd{Ledger: ledgerPath}
		if err := stats.Run(); err != nil {
			t.Fatalf("stats: %v", err)
		}
	})
}

func TestExtractRelatedRequiresStrongs(t *testing.T) {
	dir := t.TempDir()
	osisPath := filepath.Join(dir, "gen.xml")
	if err := os.WriteFile(osisPath, []byte(testOSIS), 0644); err != nil {
		t.Fatal(err)
	}
	tsvPath := filepath.Join(dir, "rel.tsv")
	if err := os.WriteFile(tsvPath, []byte("H7225\tH7218\t0.9\n"), 0644); err != nil {
		t.Fatal(err)
	}
	extract := &ExtractCmd{OSIS: osisPath, Out: filepath.Join(dir, "out.json"), Related: tsvPath}
	if err := extract.Run(); err == nil {
		t.Error("expected error for --related without --strongs")
	}
}
