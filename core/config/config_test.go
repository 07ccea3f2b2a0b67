package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/authenticwalk/context-grounded-bible/core/source"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() config is invalid: %v", err)
	}
	if cfg.ReviewThreshold != 0.95 {
		t.Errorf("ReviewThreshold = %v, want 0.95", cfg.ReviewThreshold)
	}
	if cfg.MinOverlapFraction != 0 {
		t.Errorf("MinOverlapFraction = %v, want 0", cfg.MinOverlapFraction)
	}
}

func TestDefaultConfidenceTiers(t *testing.T) {
	cfg := Default()

	// Mechanical fields start at or above 0.95.
	for _, f := range []source.FieldName{
		source.FieldSurface, source.FieldPartOfSpeech, source.FieldMorphology,
		source.FieldStrongs, source.FieldLemma,
	} {
		if got := cfg.BaseConfidence[f]; got < 0.95 {
			t.Errorf("mechanical field %s base = %v, want >= 0.95", f, got)
		}
	}

	// Discourse fields sit in the 0.75-0.90 band.
	for _, f := range []source.FieldName{
		source.FieldParticipantTracking, source.FieldProximity, source.FieldTime,
	} {
		got := cfg.BaseConfidence[f]
		if got < 0.75 || got > 0.90 {
			t.Errorf("discourse field %s base = %v, want in [0.75,0.90]", f, got)
		}
	}

	// Expertise-requiring fields start at or below 0.80.
	if got := cfg.BaseConfidence[source.FieldLexicalSense]; got > 0.80 {
		t.Errorf("lexical_sense base = %v, want <= 0.80", got)
	}
}

func TestPolicyFor(t *testing.T) {
	cfg := Default()

	tests := []struct {
		field source.FieldName
		want  Policy
	}{
		{source.FieldEntityRefs, PolicyUnion},
		{source.FieldAlignmentTargets, PolicyUnion},
		{source.FieldStrongs, PolicyConflict},
		{source.FieldHeadword, PolicyConflict},
		{source.FieldGloss, PolicyPrefer},
		{source.FieldName("unseen_field"), PolicyPrefer},
	}
	for _, tt := range tests {
		if got := cfg.PolicyFor(tt.field); got != tt.want {
			t.Errorf("PolicyFor(%s) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestAuthorityRank(t *testing.T) {
	cfg := Default()

	rank := cfg.AuthorityRank(source.FieldGloss)
	if len(rank) != 2 || rank[0] != "strongs-lexicon" || rank[1] != "oshb" {
		t.Errorf("AuthorityRank(gloss) = %v, want [strongs-lexicon oshb]", rank)
	}

	// Wildcard patterns cover speaker fields.
	rank = cfg.AuthorityRank(source.FieldSpeakerAge)
	if len(rank) != 1 || rank[0] != "tbta" {
		t.Errorf("AuthorityRank(speaker_age) = %v, want [tbta]", rank)
	}

	// Unknown fields rank nobody.
	if rank := cfg.AuthorityRank(source.FieldName("nobody_claims_this")); len(rank) != 0 {
		t.Errorf("AuthorityRank(unknown) = %v, want empty", rank)
	}
}

func TestAuthorityRankSpecificBeatsWildcard(t *testing.T) {
	cfg := &Config{
		Authorities: []FieldAuthority{
			{Field: "speaker_*", Source: "alpha", Priority: 100},
			{Field: "speaker_age", Source: "beta", Priority: 100},
		},
	}
	rank := cfg.AuthorityRank(source.FieldSpeakerAge)
	if len(rank) != 2 {
		t.Fatalf("rank = %v, want two sources", rank)
	}
	// Equal priority: ties break lexicographically for determinism.
	if rank[0] != "alpha" || rank[1] != "beta" {
		t.Errorf("rank = %v, want [alpha beta]", rank)
	}
}

func TestBaseFor(t *testing.T) {
	cfg := Default()

	if got := cfg.BaseFor(source.FieldSurface, source.String("x")); got != 1.00 {
		t.Errorf("BaseFor(surface) = %v, want 1.00", got)
	}
	if got := cfg.BaseFor(source.FieldName("unknown"), source.String("x")); got != 0.75 {
		t.Errorf("BaseFor(unknown) = %v, want default 0.75", got)
	}

	// Rare number values override the base.
	if got := cfg.BaseFor(source.FieldNumber, source.String("Trial")); got != 0.75 {
		t.Errorf("BaseFor(number=Trial) = %v, want 0.75", got)
	}
	if got := cfg.BaseFor(source.FieldNumber, source.String("Quadrial")); got != 0.70 {
		t.Errorf("BaseFor(number=Quadrial) = %v, want 0.70", got)
	}
	if got := cfg.BaseFor(source.FieldNumber, source.String("Plural")); got != 0.97 {
		t.Errorf("BaseFor(number=Plural) = %v, want 0.97", got)
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.ReviewThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.ReviewThreshold = -0.1 }},
		{"overlap fraction of one", func(c *Config) { c.MinOverlapFraction = 1.0 }},
		{"bad base confidence", func(c *Config) { c.BaseConfidence[source.FieldGloss] = 1.2 }},
		{"bad policy", func(c *Config) { c.Policies[source.FieldGloss] = Policy("vote") }},
		{"flagless rule", func(c *Config) { c.Adjustments = append(c.Adjustments, AdjustmentRule{Delta: -0.1}) }},
		{"oversized delta", func(c *Config) { c.Adjustments = append(c.Adjustments, AdjustmentRule{Flag: "x", Delta: -1.5}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should have failed")
			}
		})
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusion.yaml")
	doc := `
review_threshold: 0.90
base_confidence:
  proximity: 0.90
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ReviewThreshold != 0.90 {
		t.Errorf("ReviewThreshold = %v, want 0.90", cfg.ReviewThreshold)
	}
	if got := cfg.BaseConfidence[source.FieldProximity]; got != 0.90 {
		t.Errorf("proximity base = %v, want 0.90", got)
	}
	// Untouched defaults survive.
	if cfg.PolicyFor(source.FieldStrongs) != PolicyConflict {
		t.Error("strongs policy should remain disagree-is-conflict")
	}
}

func TestLoadPartialBaseConfidenceKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusion.yaml")
	doc := "base_confidence:\n  proximity: 0.90\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.BaseConfidence[source.FieldProximity]; got != 0.90 {
		t.Errorf("proximity base = %v, want 0.90", got)
	}
	if got := cfg.BaseConfidence[source.FieldSurface]; got != 1.00 {
		t.Errorf("surface base = %v, want default 1.00", got)
	}
	if want := len(Default().BaseConfidence); len(cfg.BaseConfidence) != want {
		t.Errorf("base table has %d entries, want %d", len(cfg.BaseConfidence), want)
	}
}

func TestLoadPartialPoliciesKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusion.yaml")
	doc := "policies:\n  gloss: prefer\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.PolicyFor(source.FieldGloss); got != PolicyPrefer {
		t.Errorf("PolicyFor(gloss) = %q, want prefer", got)
	}
	// Identity-bearing fields keep their conflict policy.
	if got := cfg.PolicyFor(source.FieldStrongs); got != PolicyConflict {
		t.Errorf("PolicyFor(strongs) = %q, want disagree-is-conflict", got)
	}
	if got := cfg.PolicyFor(source.FieldHeadword); got != PolicyConflict {
		t.Errorf("PolicyFor(headword) = %q, want disagree-is-conflict", got)
	}
	if got := cfg.PolicyFor(source.FieldEntityRefs); got != PolicyUnion {
		t.Errorf("PolicyFor(entity_refs) = %q, want union", got)
	}
}

func TestLoadListTablesReplaceWholesale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusion.yaml")
	doc := `
authorities:
  - field: gloss
    source: custom-lexicon
    priority: 120
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Authorities) != 1 {
		t.Fatalf("authorities = %v, want the file's single entry", cfg.Authorities)
	}
	rank := cfg.AuthorityRank(source.FieldGloss)
	if len(rank) != 1 || rank[0] != "custom-lexicon" {
		t.Errorf("AuthorityRank(gloss) = %v, want [custom-lexicon]", rank)
	}
	// Absent list tables keep their defaults.
	if len(cfg.Adjustments) != len(Default().Adjustments) {
		t.Errorf("adjustments = %d rules, want defaults", len(cfg.Adjustments))
	}
	if got := cfg.BaseFor(source.FieldNumber, source.String("Quadrial")); got != 0.70 {
		t.Errorf("Quadrial override = %v, want default 0.70", got)
	}
}

func TestLoadExplicitZeroOverridesScalar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusion.yaml")
	if err := os.WriteFile(path, []byte("review_threshold: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ReviewThreshold != 0 {
		t.Errorf("ReviewThreshold = %v, want explicit 0", cfg.ReviewThreshold)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("review_threshold: 2.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load should reject an out-of-range threshold")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}
