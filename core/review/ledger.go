package review

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/source"
)

// Ledger enforces the review lifecycle over a Store: idempotent intake,
// guarded transitions, versioned resets.
type Ledger struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewLedger wraps a store.
func NewLedger(store Store) *Ledger {
	return &Ledger{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// OpenItems enters candidates into the ledger. Intake is idempotent: a
// (token, field) that already has any version recorded is returned as-is,
// so re-running fusion never duplicates items or reopens decided ones.
// Returns the ledger items corresponding to the candidates, in order.
func (l *Ledger) OpenItems(ctx context.Context, candidates []Candidate) ([]*Item, error) {
	items := make([]*Item, 0, len(candidates))
	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		existing, err := l.store.Latest(ctx, c.TokenID, c.FieldName)
		if err == nil {
			items = append(items, existing)
			continue
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}

		it := &Item{
			ID:            l.newID(),
			TokenID:       c.TokenID,
			FieldName:     c.FieldName,
			Version:       1,
			Status:        StatusPending,
			OriginalValue: c.Value,
			Confidence:    c.Confidence,
			Reason:        c.Reason,
			Notes:         c.Notes,
			CreatedAt:     l.now().UTC(),
		}
		if err := l.store.Put(ctx, it); err != nil {
			return nil, errors.Wrapf(err, "open item %s/%s", c.TokenID, c.FieldName)
		}
		items = append(items, it)
	}
	return items, nil
}

// Apply records a reviewer's decision on a pending item. The update is
// guarded: if another reviewer decided the item first, the store reports
// ErrVersionConflict and no state is lost.
func (l *Ledger) Apply(ctx context.Context, id string, d Disposition) (*Item, error) {
	it, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.IsValid() {
		return nil, errors.NewValidation("status", "unknown status "+string(d.Status))
	}
	if !it.Status.CanTransition(d.Status) {
		return nil, &errors.InvalidTransitionError{
			ItemID: it.ID,
			From:   string(it.Status),
			To:     string(d.Status),
		}
	}
	if d.Status == StatusCorrected && d.CorrectedValue.IsZero() {
		return nil, &errors.InvalidTransitionError{
			ItemID: it.ID,
			From:   string(it.Status),
			To:     string(d.Status),
			Reason: "corrected requires a corrected value",
		}
	}
	if d.ReviewerID == "" {
		return nil, errors.NewValidation("reviewer_id", "required")
	}

	from := it.Status
	now := l.now().UTC()
	it.Status = d.Status
	it.CorrectedValue = d.CorrectedValue
	it.ReviewerID = d.ReviewerID
	it.ReviewedAt = &now
	if d.Notes != "" {
		if it.Notes != "" {
			it.Notes += "\n"
		}
		it.Notes += d.Notes
	}

	if err := l.store.Update(ctx, it, from); err != nil {
		return nil, err
	}
	return it, nil
}

// Reset reopens a decided (token, field) by appending a fresh pending
// version that supersedes the latest one. The decided item is untouched:
// the ledger keeps full history.
func (l *Ledger) Reset(ctx context.Context, tokenID string, field source.FieldName, notes string) (*Item, error) {
	prev, err := l.store.Latest(ctx, tokenID, field)
	if err != nil {
		return nil, err
	}
	if !prev.Status.IsTerminal() {
		return nil, &errors.InvalidTransitionError{
			ItemID: prev.ID,
			From:   string(prev.Status),
			To:     string(StatusPending),
			Reason: "only decided items can be reset",
		}
	}

	it := &Item{
		ID:            l.newID(),
		TokenID:       prev.TokenID,
		FieldName:     prev.FieldName,
		Version:       prev.Version + 1,
		Supersedes:    prev.ID,
		Status:        StatusPending,
		OriginalValue: prev.OriginalValue,
		Confidence:    prev.Confidence,
		Reason:        prev.Reason,
		Notes:         notes,
		CreatedAt:     l.now().UTC(),
	}
	if err := l.store.Put(ctx, it); err != nil {
		return nil, errors.Wrapf(err, "reset %s/%s", tokenID, field)
	}
	return it, nil
}

// Pending lists open items, newest first.
func (l *Ledger) Pending(ctx context.Context, limit int) ([]*Item, error) {
	return l.store.List(ctx, Filter{Status: StatusPending, Limit: limit})
}

// Stats tallies the ledger.
func (l *Ledger) Stats(ctx context.Context) (*Stats, error) {
	return l.store.Stats(ctx)
}
