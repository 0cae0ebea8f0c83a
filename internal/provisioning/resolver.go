package provisioning

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"sc-provisioner/internal/entities"
)

// Store is the persistence surface the engine works through. Both the SQL
// store and the in-memory store satisfy it.
type Store interface {
	FindByAttributes(ctx context.Context, kind entities.EntityKind, attrs entities.Attrs) (entities.Handle, bool, error)
	Create(ctx context.Context, kind entities.EntityKind, attrs entities.Attrs) (entities.Handle, error)
	Destroy(ctx context.Context, kind entities.EntityKind, handle entities.Handle) error

	LookupID(ctx context.Context, table entities.LookupTable, name string) (entities.Handle, bool, error)
	LookupPayGrade(ctx context.Context, providerID entities.Handle, payGradeType string) (entities.Handle, bool, error)

	LatestPriceVersion(ctx context.Context, payGradeID entities.Handle) (*entities.PriceVersion, error)
	DeriveNewVersion(ctx context.Context, prior entities.Handle, effective time.Time, amounts map[entities.Handle]decimal.Decimal) (entities.Handle, error)
}

// MatchPolicy selects which attributes decide that an entity already exists.
type MatchPolicy string

const (
	// MatchFull requires every merged attribute, defaults included, to match.
	// A row created under different defaults is not found and gets duplicated.
	MatchFull MatchPolicy = "full"
	// MatchNaturalKey only compares the natural key of the kind.
	MatchNaturalKey MatchPolicy = "natural-key"
)

// ParseMatchPolicy parses a policy name. The empty string means MatchFull.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(s) {
	case "", MatchFull:
		return MatchFull, nil
	case MatchNaturalKey:
		return MatchNaturalKey, nil
	default:
		return "", fmt.Errorf("unknown match policy %q (want %s or %s)", s, MatchFull, MatchNaturalKey)
	}
}

// Resolver finds or creates entities and records every creation in a ledger.
type Resolver struct {
	store  Store
	policy MatchPolicy
	log    *logrus.Entry
}

// NewResolver creates a resolver. A nil log discards output.
func NewResolver(store Store, policy MatchPolicy, log *logrus.Entry) *Resolver {
	if policy == "" {
		policy = MatchFull
	}
	return &Resolver{store: store, policy: policy, log: orDiscard(log)}
}

// Resolve merges the kind's default template with natural and extra (later
// sets win) and returns the matching row, creating it when absent. Created
// rows are appended to ledger; found rows never are.
func (r *Resolver) Resolve(ctx context.Context, ledger *Ledger, lookups Lookups, kind entities.EntityKind, natural, extra entities.Attrs) (entities.Handle, bool, error) {
	full := DefaultTemplate(kind, lookups).Merge(natural).Merge(extra)

	filter := full
	if r.policy == MatchNaturalKey {
		filter = natural
	}

	log := r.log.WithField("kind", kind.String())
	log.WithField("attrs", natural).Debug("resolving")

	handle, found, err := r.store.FindByAttributes(ctx, kind, filter)
	if err != nil {
		return "", false, &CreationError{Kind: kind, Attrs: full, Err: err}
	}
	if found {
		log.WithField("handle", handle.String()).Debug("already exists")
		return handle, false, nil
	}

	handle, err = r.store.Create(ctx, kind, full)
	if err != nil {
		return "", false, &CreationError{Kind: kind, Attrs: full, Err: err}
	}
	ledger.Append(LedgerEntry{Kind: kind, Handle: handle, WasCreated: true})
	log.WithField("handle", handle.String()).Debug("created")
	return handle, true, nil
}

// Find looks up a row of kind by attrs alone, without templates or the ledger.
func (r *Resolver) Find(ctx context.Context, kind entities.EntityKind, attrs entities.Attrs) (entities.Handle, bool, error) {
	handle, found, err := r.store.FindByAttributes(ctx, kind, attrs)
	if err != nil {
		return "", false, &CreationError{Kind: kind, Attrs: attrs, Err: err}
	}
	return handle, found, nil
}

func orDiscard(log *logrus.Entry) *logrus.Entry {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
