// Package review is the append-oriented ledger of human review decisions.
// Every low-confidence or conflicted field becomes a review item; reviewers
// move items through a small state machine, and corrections version rather
// than overwrite.
package review

import (
	"context"
	"time"

	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/source"
)

// Status is a review item's position in its lifecycle.
type Status string

const (
	// StatusPending awaits a reviewer decision.
	StatusPending Status = "pending"
	// StatusApproved confirms the fused value.
	StatusApproved Status = "approved"
	// StatusCorrected replaces the fused value with a reviewer-supplied one.
	StatusCorrected Status = "corrected"
	// StatusRejected marks the fused value wrong with no replacement.
	StatusRejected Status = "rejected"
	// StatusSkipped defers the decision without judging the value.
	StatusSkipped Status = "skipped"
)

// transitions is the full state machine. Terminal states have no exits; a
// fresh pending item (a new version) is how review reopens.
var transitions = map[Status][]Status{
	StatusPending: {StatusApproved, StatusCorrected, StatusRejected, StatusSkipped},
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCorrected, StatusRejected, StatusSkipped:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// CanTransition reports whether s may move to the target status.
func (s Status) CanTransition(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Item is one versioned review decision for one field of one token.
// Versions of the same (token, field) chain through Supersedes; at most one
// version is ever pending.
type Item struct {
	// ID is the item's opaque unique identifier.
	ID string `json:"id"`

	// TokenID names the canonical token under review.
	TokenID string `json:"token_id"`

	// FieldName names the field under review.
	FieldName source.FieldName `json:"field_name"`

	// Version starts at 1 and increments on reset.
	Version int `json:"version"`

	// Supersedes is the ID of the previous version, empty for version 1.
	Supersedes string `json:"supersedes,omitempty"`

	Status Status `json:"status"`

	// OriginalValue is the fused value that triggered review.
	OriginalValue source.Value `json:"original_value"`

	// CorrectedValue is set only when Status is corrected.
	CorrectedValue source.Value `json:"corrected_value,omitempty"`

	// Confidence is the fused confidence at queue time.
	Confidence float64 `json:"confidence"`

	// Reason categorizes why the item was queued.
	Reason string `json:"reason"`

	// Notes starts as the scorer's explanation; reviewers may extend it.
	Notes string `json:"notes,omitempty"`

	ReviewerID string     `json:"reviewer_id,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// EffectiveValue is the value downstream consumers should use: the
// correction when one was made, otherwise the original.
func (it *Item) EffectiveValue() source.Value {
	if it.Status == StatusCorrected && !it.CorrectedValue.IsZero() {
		return it.CorrectedValue
	}
	return it.OriginalValue
}

// Candidate is a field the fusion pipeline nominates for review.
type Candidate struct {
	TokenID    string           `json:"token_id"`
	FieldName  source.FieldName `json:"field_name"`
	Value      source.Value     `json:"value"`
	Confidence float64          `json:"confidence"`
	Reason     string           `json:"reason"`
	Notes      string           `json:"notes,omitempty"`
}

// Validate checks a candidate before it enters the ledger.
func (c Candidate) Validate() error {
	if c.TokenID == "" {
		return errors.NewValidation("token_id", "required")
	}
	if c.FieldName == "" {
		return errors.NewValidation("field_name", "required")
	}
	if c.Reason == "" {
		return errors.NewValidation("reason", "required")
	}
	return nil
}

// Disposition is a reviewer's decision on a pending item.
type Disposition struct {
	Status         Status       `json:"status"`
	CorrectedValue source.Value `json:"corrected_value,omitempty"`
	ReviewerID     string       `json:"reviewer_id"`
	Notes          string       `json:"notes,omitempty"`
}

// Filter narrows ledger listings. Zero fields match everything.
type Filter struct {
	Status      Status
	Reason      string
	TokenPrefix string
	Limit       int
}

// Stats summarizes the ledger.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
	ByReason map[string]int `json:"by_reason"`
}

// Store persists review items. Implementations must enforce uniqueness of
// (token_id, field_name, version) and make Update atomic with respect to
// the guard status.
type Store interface {
	// Put inserts a new item.
	Put(ctx context.Context, it *Item) error

	// Get returns an item by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Item, error)

	// Latest returns the highest version for (tokenID, field), or
	// ErrNotFound.
	Latest(ctx context.Context, tokenID string, field source.FieldName) (*Item, error)

	// List returns items matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]*Item, error)

	// Update persists the item only if its stored status still equals
	// from; otherwise it returns ErrVersionConflict.
	Update(ctx context.Context, it *Item, from Status) error

	// Stats tallies the ledger.
	Stats(ctx context.Context) (*Stats, error)

	Close() error
}
