package provisioning

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"sc-provisioner/internal/entities"
)

// PriceVersionBuilder turns a run's accumulated amounts into a new price
// version dated the day after the version it is anchored to.
type PriceVersionBuilder struct {
	store Store
	log   *logrus.Entry
}

// NewPriceVersionBuilder creates a builder. A nil log discards output.
func NewPriceVersionBuilder(store Store, log *logrus.Entry) *PriceVersionBuilder {
	return &PriceVersionBuilder{store: store, log: orDiscard(log)}
}

// LatestVersion returns the newest version for payGradeID, or a
// *PricingPreconditionError when there is none.
func (b *PriceVersionBuilder) LatestVersion(ctx context.Context, payGradeID entities.Handle) (*entities.PriceVersion, error) {
	v, err := b.store.LatestPriceVersion(ctx, payGradeID)
	if err != nil {
		if entities.IsNotFound(err) {
			return nil, &PricingPreconditionError{PayGradeID: payGradeID, Reason: "no prior price version to anchor to"}
		}
		return nil, fmt.Errorf("failed to get latest price version: %w", err)
	}
	return v, nil
}

// BuildVersion asks the store to derive a version from anchor, effective one
// day later, carrying amounts. The new version is appended to ledger so the
// pricing step rolls back with the rest of the run. The returned version holds
// exactly amounts; the stored one also carries the anchor's amounts.
func (b *PriceVersionBuilder) BuildVersion(ctx context.Context, ledger *Ledger, anchor *entities.PriceVersion, amounts PricingAccumulator) (*entities.PriceVersion, error) {
	if anchor == nil {
		return nil, &PricingPreconditionError{Reason: "no prior price version to anchor to"}
	}

	effective := anchor.Effective.AddDate(0, 0, 1)
	delta := amounts.Snapshot()

	handle, err := b.store.DeriveNewVersion(ctx, anchor.ID, effective, delta)
	if err != nil {
		return nil, &CreationError{Kind: entities.KindPriceVersion, Err: err}
	}
	ledger.Append(LedgerEntry{Kind: entities.KindPriceVersion, Handle: handle, WasCreated: true})

	b.log.WithFields(logrus.Fields{
		"handle":    handle.String(),
		"anchor":    anchor.ID.String(),
		"effective": effective.Format(entities.DateLayout),
		"amounts":   len(delta),
	}).Info("price version created")

	return &entities.PriceVersion{
		ID:         handle,
		PayGradeID: anchor.PayGradeID,
		Effective:  effective,
		Amounts:    delta,
	}, nil
}
