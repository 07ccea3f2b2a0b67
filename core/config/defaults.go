package config

import "github.com/authenticwalk/context-grounded-bible/core/source"

// Review reason codes, ordered by selection priority in the scorer.
const (
	ReasonTheological    = "theological_interpretation"
	ReasonCultural       = "cultural_context"
	ReasonAmbiguousRef   = "ambiguous_reference"
	ReasonTemporal       = "temporal_ambiguity"
	ReasonMissingContext = "missing_context"
	ReasonRareFeature    = "rare_feature"
	ReasonLowConfidence  = "low_confidence"
)

// Default returns the compiled-in configuration tables. The confidence
// bands: mechanical extraction fields start at or above 0.95, discourse
// fields at 0.75-0.90, expertise-requiring fields at or below 0.80.
func Default() *Config {
	return &Config{
		ReviewThreshold:       0.95,
		MinOverlapFraction:    0,
		DefaultBaseConfidence: 0.75,

		BaseConfidence: map[source.FieldName]float64{
			// Mechanical extraction.
			source.FieldSurface:         1.00,
			source.FieldPartOfSpeech:    0.99,
			source.FieldTransliteration: 0.98,
			source.FieldNumber:          0.97,
			source.FieldMorphology:      0.97,
			source.FieldStrongs:         0.96,
			source.FieldLemma:           0.96,

			// Discourse and interpretive.
			source.FieldHeadword:            0.90,
			source.FieldPerson:              0.90,
			source.FieldGloss:               0.88,
			source.FieldAlignmentTargets:    0.87,
			source.FieldDefinition:          0.85,
			source.FieldEntityRefs:          0.85,
			source.FieldSpeakerAttitude:     0.85,
			source.FieldParticipantTracking: 0.85,
			source.FieldProximity:           0.82,
			source.FieldSpeakerAge:          0.82,
			source.FieldTime:                0.80,
			source.FieldRelatedWords:        0.80,

			// Expertise-requiring.
			source.FieldLexicalSense: 0.65,
		},

		ValueOverrides: []ValueOverride{
			{Field: source.FieldNumber, Values: []string{"Trial", "Paucal"}, Confidence: 0.75},
			{Field: source.FieldNumber, Values: []string{"Quadrial"}, Confidence: 0.70},
		},

		Adjustments: []AdjustmentRule{
			{
				Flag:   "theological_content",
				Delta:  -0.20,
				Fields: []source.FieldName{source.FieldNumber, source.FieldPerson},
				Reason: ReasonTheological,
			},
			{
				Flag:  "no_dialogue",
				Delta: -0.15,
				Fields: []source.FieldName{
					source.FieldSpeakerAge, source.FieldSpeakerAttitude,
				},
				Reason: ReasonCultural,
			},
			{
				Flag:  "speaker_unclear",
				Delta: -0.10,
				Fields: []source.FieldName{
					source.FieldSpeakerAge, source.FieldSpeakerAttitude,
				},
				Reason: ReasonMissingContext,
			},
			{
				Flag:   "ambiguous_antecedent",
				Delta:  -0.15,
				Fields: []source.FieldName{source.FieldParticipantTracking, source.FieldEntityRefs},
				Reason: ReasonAmbiguousRef,
			},
			{
				Flag:   "ambiguous_reference",
				Delta:  -0.15,
				Fields: []source.FieldName{source.FieldProximity},
				Reason: ReasonAmbiguousRef,
			},
			{
				Flag:   "no_temporal_markers",
				Delta:  -0.15,
				Fields: []source.FieldName{source.FieldTime},
				Reason: ReasonTemporal,
			},
			{
				Flag:   "rare_feature_value",
				Delta:  -0.10,
				Reason: ReasonRareFeature,
			},
			{
				Flag:   "missing_context",
				Delta:  -0.10,
				Reason: ReasonMissingContext,
			},
			{Flag: "corpus_confirms_pattern", Delta: +0.05},
			{Flag: "clear_context", Delta: +0.05},
		},

		AlwaysReview: map[source.FieldName]string{
			// Sense assignment needs a sense-distinguished lexicon even
			// when the mechanical extraction is clean.
			source.FieldLexicalSense: ReasonLowConfidence,
		},

		Policies: map[source.FieldName]Policy{
			source.FieldEntityRefs:       PolicyUnion,
			source.FieldAlignmentTargets: PolicyUnion,
			source.FieldRelatedWords:     PolicyUnion,
			source.FieldStrongs:          PolicyConflict,
			source.FieldHeadword:         PolicyConflict,
		},

		Authorities: []FieldAuthority{
			// Morphological database has the most granular segmentation.
			{Field: "morphology", Source: "oshb", Priority: 110},
			{Field: "part_of_speech", Source: "oshb", Priority: 110},
			{Field: "lemma", Source: "oshb", Priority: 110},
			{Field: "lemma", Source: "strongs-lexicon", Priority: 90},

			// Lexicon has curated definitions.
			{Field: "gloss", Source: "strongs-lexicon", Priority: 110},
			{Field: "gloss", Source: "oshb", Priority: 80},
			{Field: "definition", Source: "strongs-lexicon", Priority: 110},
			{Field: "transliteration", Source: "strongs-lexicon", Priority: 110},

			// Discourse annotations come from the translation-assistant
			// dataset when present.
			{Field: "speaker_*", Source: "tbta", Priority: 100},
			{Field: "participant_tracking", Source: "tbta", Priority: 100},
			{Field: "proximity", Source: "tbta", Priority: 100},
			{Field: "time", Source: "tbta", Priority: 100},
		},
	}
}
