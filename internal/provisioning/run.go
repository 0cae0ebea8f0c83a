package provisioning

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"sc-provisioner/internal/entities"
)

// PricingAccumulator maps line items to the cost recorded for them in a run.
// Recording the same line item again replaces its cost.
type PricingAccumulator map[entities.Handle]decimal.Decimal

// Record sets the cost of item.
func (p PricingAccumulator) Record(item entities.Handle, cost decimal.Decimal) {
	p[item] = cost
}

// Snapshot returns a copy of the accumulated amounts.
func (p PricingAccumulator) Snapshot() map[entities.Handle]decimal.Decimal {
	out := make(map[entities.Handle]decimal.Decimal, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Run is the state of one provisioning pass: its ledger and pricing amounts.
// A Run must not be shared between concurrent callers.
type Run struct {
	ID uuid.UUID

	ledger  *Ledger
	pricing PricingAccumulator
	log     *logrus.Entry
}

// NewRun starts an empty run whose ledger rolls back through store.
func NewRun(store Destroyer, log *logrus.Entry) *Run {
	id := uuid.New()
	log = orDiscard(log).WithField("run_id", id.String())
	return &Run{
		ID:      id,
		ledger:  NewLedger(store, log),
		pricing: PricingAccumulator{},
		log:     log,
	}
}

// Ledger returns the run's ledger.
func (r *Run) Ledger() *Ledger {
	return r.ledger
}

// Amounts returns a copy of the accumulated line item costs.
func (r *Run) Amounts() map[entities.Handle]decimal.Decimal {
	return r.pricing.Snapshot()
}

// Rollback undoes everything the run created. See Ledger.Rollback.
func (r *Run) Rollback(ctx context.Context) int {
	n := r.ledger.Rollback(ctx)
	r.log.WithFields(logrus.Fields{
		"deleted": n,
		"entries": r.ledger.Len(),
	}).Info("rollback finished")
	return n
}
