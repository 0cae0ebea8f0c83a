package provisioning

import (
	"context"

	"github.com/sirupsen/logrus"

	"sc-provisioner/internal/entities"
)

// LedgerEntry records one entity touched by a run.
type LedgerEntry struct {
	Kind       entities.EntityKind
	Handle     entities.Handle
	WasCreated bool
}

// Destroyer deletes stored rows. It is the only store capability rollback needs.
type Destroyer interface {
	Destroy(ctx context.Context, kind entities.EntityKind, handle entities.Handle) error
}

// Ledger is the ordered list of entities a run created. It belongs to a
// single run and is not safe for concurrent use.
type Ledger struct {
	store   Destroyer
	log     *logrus.Entry
	entries []LedgerEntry
}

// NewLedger returns an empty ledger that rolls back through store.
func NewLedger(store Destroyer, log *logrus.Entry) *Ledger {
	return &Ledger{store: store, log: orDiscard(log)}
}

// Append adds an entry at the end of the ledger.
func (l *Ledger) Append(entry LedgerEntry) {
	l.entries = append(l.entries, entry)
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries in append order.
func (l *Ledger) Entries() []LedgerEntry {
	return append([]LedgerEntry(nil), l.entries...)
}

// Rollback destroys created entries from newest to oldest and returns how many
// were deleted. Rows already gone are skipped; other failures are logged and
// do not stop the pass. The ledger itself is left as is.
func (l *Ledger) Rollback(ctx context.Context) int {
	deleted := 0
	for i := len(l.entries) - 1; i >= 0; i-- {
		entry := l.entries[i]
		if !entry.WasCreated {
			continue
		}

		log := l.log.WithFields(logrus.Fields{
			"kind":   entry.Kind.String(),
			"handle": entry.Handle.String(),
		})

		err := l.store.Destroy(ctx, entry.Kind, entry.Handle)
		switch {
		case err == nil:
			deleted++
			log.Debug("destroyed")
		case entities.IsNotFound(err):
			log.Warn("not present in store, skipped")
		default:
			log.WithError(&RollbackEntryError{Entry: entry, Err: err}).Error("rollback entry failed")
		}
	}
	return deleted
}
