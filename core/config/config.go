// Package config holds the read-only configuration tables the fusion core
// runs against: the per-field merge policies and source precedence, the
// base-confidence and adjustment tables, and the review threshold. A Config
// is loaded once, validated, and passed explicitly to the components that
// need it; nothing in the core mutates it after load.
package config

import (
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/source"
)

// Policy is a per-field merge policy.
type Policy string

// Merge policy constants.
const (
	// PolicyPrefer resolves disagreement by source precedence, recording
	// losing values for audit.
	PolicyPrefer Policy = "prefer"
	// PolicyUnion concatenates distinct values; used for list-like fields.
	PolicyUnion Policy = "union"
	// PolicyConflict emits no value on disagreement; used for
	// identity-bearing fields where a wrong silent pick corrupts
	// downstream joins.
	PolicyConflict Policy = "disagree-is-conflict"
)

// validPolicies is the set of valid merge policies.
var validPolicies = map[Policy]bool{
	PolicyPrefer:   true,
	PolicyUnion:    true,
	PolicyConflict: true,
}

// IsValid returns true if the policy is valid.
func (p Policy) IsValid() bool {
	return validPolicies[p]
}

// FieldAuthority ranks one source for one field. Higher priority wins.
// Field supports a trailing-* prefix pattern (e.g., "speaker_*").
type FieldAuthority struct {
	Field    string `yaml:"field" json:"field"`
	Source   string `yaml:"source" json:"source"`
	Priority int    `yaml:"priority" json:"priority"`
}

// ValueOverride replaces the base confidence of a field when its value is
// one of the listed rare values.
type ValueOverride struct {
	Field      source.FieldName `yaml:"field" json:"field"`
	Values     []string         `yaml:"values" json:"values"`
	Confidence float64          `yaml:"confidence" json:"confidence"`
}

// AdjustmentRule applies a signed confidence delta when its risk flag is set
// in the verse context. An empty Fields list applies the rule to every
// field. Reason names the review reason this rule contributes when it fires
// with a negative delta.
type AdjustmentRule struct {
	Flag   string             `yaml:"flag" json:"flag"`
	Delta  float64            `yaml:"delta" json:"delta"`
	Fields []source.FieldName `yaml:"fields,omitempty" json:"fields,omitempty"`
	Reason string             `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// AppliesTo reports whether the rule covers the given field.
func (r AdjustmentRule) AppliesTo(f source.FieldName) bool {
	if len(r.Fields) == 0 {
		return true
	}
	for _, rf := range r.Fields {
		if rf == f {
			return true
		}
	}
	return false
}

// Config is the complete configuration table set.
type Config struct {
	// ReviewThreshold is the confidence below which a field needs review.
	ReviewThreshold float64 `yaml:"review_threshold" json:"review_threshold"`

	// MinOverlapFraction is the span-overlap fraction required to align a
	// source token to a canonical token. Zero means any positive overlap
	// counts.
	MinOverlapFraction float64 `yaml:"min_overlap_fraction" json:"min_overlap_fraction"`

	// DefaultBaseConfidence applies to fields absent from BaseConfidence.
	DefaultBaseConfidence float64 `yaml:"default_base_confidence" json:"default_base_confidence"`

	// BaseConfidence is the tier-banded base score per field.
	BaseConfidence map[source.FieldName]float64 `yaml:"base_confidence" json:"base_confidence"`

	// ValueOverrides adjust base confidence for rare field values.
	ValueOverrides []ValueOverride `yaml:"value_overrides,omitempty" json:"value_overrides,omitempty"`

	// Adjustments are the contextual risk rules.
	Adjustments []AdjustmentRule `yaml:"adjustments,omitempty" json:"adjustments,omitempty"`

	// AlwaysReview maps fields reviewed unconditionally, regardless of
	// score, to the review reason reported for them.
	AlwaysReview map[source.FieldName]string `yaml:"always_review,omitempty" json:"always_review,omitempty"`

	// Policies assigns merge policies per field; unlisted fields merge
	// with PolicyPrefer.
	Policies map[source.FieldName]Policy `yaml:"policies,omitempty" json:"policies,omitempty"`

	// Authorities rank sources per field for PolicyPrefer resolution.
	Authorities []FieldAuthority `yaml:"authorities,omitempty" json:"authorities,omitempty"`
}

// fileConfig is the YAML overlay shape for Load. Scalar settings use
// pointers so an absent key is distinguishable from an explicit zero.
type fileConfig struct {
	ReviewThreshold       *float64                     `yaml:"review_threshold"`
	MinOverlapFraction    *float64                     `yaml:"min_overlap_fraction"`
	DefaultBaseConfidence *float64                     `yaml:"default_base_confidence"`
	BaseConfidence        map[source.FieldName]float64 `yaml:"base_confidence"`
	ValueOverrides        []ValueOverride              `yaml:"value_overrides"`
	Adjustments           []AdjustmentRule             `yaml:"adjustments"`
	AlwaysReview          map[source.FieldName]string  `yaml:"always_review"`
	Policies              map[source.FieldName]Policy  `yaml:"policies"`
	Authorities           []FieldAuthority             `yaml:"authorities"`
}

// apply overlays the file's settings onto cfg. Map tables merge
// entry-by-entry, so a file naming one field leaves the compiled-in entries
// for every other field intact. List tables (value_overrides, adjustments,
// authorities) have no per-entry identity and replace their defaults
// wholesale when present.
func (f *fileConfig) apply(cfg *Config) {
	if f.ReviewThreshold != nil {
		cfg.ReviewThreshold = *f.ReviewThreshold
	}
	if f.MinOverlapFraction != nil {
		cfg.MinOverlapFraction = *f.MinOverlapFraction
	}
	if f.DefaultBaseConfidence != nil {
		cfg.DefaultBaseConfidence = *f.DefaultBaseConfidence
	}
	for k, v := range f.BaseConfidence {
		if cfg.BaseConfidence == nil {
			cfg.BaseConfidence = map[source.FieldName]float64{}
		}
		cfg.BaseConfidence[k] = v
	}
	for k, v := range f.AlwaysReview {
		if cfg.AlwaysReview == nil {
			cfg.AlwaysReview = map[source.FieldName]string{}
		}
		cfg.AlwaysReview[k] = v
	}
	for k, v := range f.Policies {
		if cfg.Policies == nil {
			cfg.Policies = map[source.FieldName]Policy{}
		}
		cfg.Policies[k] = v
	}
	if f.ValueOverrides != nil {
		cfg.ValueOverrides = f.ValueOverrides
	}
	if f.Adjustments != nil {
		cfg.Adjustments = f.Adjustments
	}
	if f.Authorities != nil {
		cfg.Authorities = f.Authorities
	}
}

// Load reads a YAML configuration file over the compiled-in defaults.
// Scalar settings and map-table entries present in the file override the
// corresponding defaults entry-by-entry; list tables present in the file
// replace their defaults wholesale.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	cfg := Default()
	file.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks table consistency.
func (c *Config) Validate() error {
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 {
		return errors.NewValidation("review_threshold", "must be in [0,1]")
	}
	if c.MinOverlapFraction < 0 || c.MinOverlapFraction >= 1 {
		return errors.NewValidation("min_overlap_fraction", "must be in [0,1)")
	}
	if c.DefaultBaseConfidence < 0 || c.DefaultBaseConfidence > 1 {
		return errors.NewValidation("default_base_confidence", "must be in [0,1]")
	}
	for f, v := range c.BaseConfidence {
		if v < 0 || v > 1 {
			return errors.NewValidation(string(f), "base confidence must be in [0,1]")
		}
	}
	for f, p := range c.Policies {
		if !p.IsValid() {
			return errors.NewValidation(string(f), "unknown merge policy: "+string(p))
		}
	}
	for _, r := range c.Adjustments {
		if r.Flag == "" {
			return errors.NewValidation("adjustments", "rule missing flag")
		}
		if r.Delta < -1 || r.Delta > 1 {
			return errors.NewValidation(r.Flag, "delta must be in [-1,1]")
		}
	}
	return nil
}

// PolicyFor returns the merge policy for a field.
func (c *Config) PolicyFor(f source.FieldName) Policy {
	if p, ok := c.Policies[f]; ok {
		return p
	}
	return PolicyPrefer
}

// matchesField reports whether an authority pattern covers a field name.
// Patterns support a trailing * wildcard.
func matchesField(field, pattern string) bool {
	if field == pattern {
		return true
	}
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		prefix := pattern[:n-1]
		return len(field) >= len(prefix) && field[:len(prefix)] == prefix
	}
	return false
}

// AuthorityRank returns the sources ranked for a field, best first.
// A more specific pattern beats a wildcard at equal priority.
func (c *Config) AuthorityRank(f source.FieldName) []string {
	type ranked struct {
		src      string
		priority int
		patLen   int
	}
	best := map[string]ranked{}
	for _, a := range c.Authorities {
		if !matchesField(string(f), a.Field) {
			continue
		}
		cur, ok := best[a.Source]
		if !ok || a.Priority > cur.priority ||
			(a.Priority == cur.priority && len(a.Field) > cur.patLen) {
			best[a.Source] = ranked{src: a.Source, priority: a.Priority, patLen: len(a.Field)}
		}
	}

	out := make([]ranked, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority > out[j].priority
		}
		return out[i].src < out[j].src
	})

	ids := make([]string, len(out))
	for i, r := range out {
		ids[i] = r.src
	}
	return ids
}

// BaseFor returns the base confidence for a field/value pair, applying any
// rare-value override.
func (c *Config) BaseFor(f source.FieldName, v source.Value) float64 {
	for _, ov := range c.ValueOverrides {
		if ov.Field != f {
			continue
		}
		for _, rare := range ov.Values {
			if v.Text == rare {
				return ov.Confidence
			}
		}
	}
	if base, ok := c.BaseConfidence[f]; ok {
		return base
	}
	return c.DefaultBaseConfidence
}

// AlwaysReviewReason returns the configured reason when the field is in the
// always-review set.
func (c *Config) AlwaysReviewReason(f source.FieldName) (string, bool) {
	r, ok := c.AlwaysReview[f]
	return r, ok
}
