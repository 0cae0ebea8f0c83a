package provisioning

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"sc-provisioner/internal/entities"
)

// Options configures an Engine.
type Options struct {
	// Provider is the service provider every record is onboarded for. It
	// also names the part category.
	Provider string

	// DefaultType is used when a record carries no type hint. It also picks
	// the pay grade that BuildPriceVersion prices.
	DefaultType string

	// ServiceCodeType names the service code type of created codes.
	ServiceCodeType string

	// VerboseNames decorates line item and code names. Identity is unaffected.
	VerboseNames bool

	MatchPolicy MatchPolicy
	Logger      *logrus.Entry
}

// typeLookups are the reference ids that depend on a record's type hint.
type typeLookups struct {
	partTypeID     entities.Handle
	lineItemTypeID entities.Handle
}

// Engine onboards records one at a time: for each code it resolves a part, a
// line item, their link, a service code and its link, then records the cost.
type Engine struct {
	store    Store
	resolver *Resolver
	builder  *PriceVersionBuilder
	opts     Options
	base     Lookups
	types    map[string]typeLookups
	log      *logrus.Entry
}

// NewEngine resolves the provider, its part category, the service code type
// and the default type before any work starts. Any missing row is a *SetupError.
func NewEngine(ctx context.Context, store Store, opts Options) (*Engine, error) {
	log := orDiscard(opts.Logger)
	e := &Engine{
		store:    store,
		resolver: NewResolver(store, opts.MatchPolicy, log),
		builder:  NewPriceVersionBuilder(store, log),
		opts:     opts,
		types:    make(map[string]typeLookups),
		log:      log,
	}

	var err error
	if e.base.ProviderID, err = e.lookup(ctx, entities.LookupServiceProvider, opts.Provider); err != nil {
		return nil, err
	}
	if e.base.PartCategoryID, err = e.lookup(ctx, entities.LookupPartCategory, opts.Provider); err != nil {
		return nil, err
	}
	if e.base.ServiceCodeTypeID, err = e.lookup(ctx, entities.LookupServiceCodeType, opts.ServiceCodeType); err != nil {
		return nil, err
	}
	if _, err := e.lookupsFor(ctx, ""); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"provider":     opts.Provider,
		"default_type": opts.DefaultType,
		"match_policy": string(e.resolver.policy),
	}).Debug("engine ready")
	return e, nil
}

// NewRun starts a run whose ledger rolls back through the engine's store.
func (e *Engine) NewRun() *Run {
	return NewRun(e.store, e.log)
}

// SetVerboseNames switches name decoration for subsequent records.
func (e *Engine) SetVerboseNames(on bool) {
	e.opts.VerboseNames = on
}

// Process onboards one record into run. It only ever adds rows. On error the
// rows already created for the record stay in the run's ledger.
func (e *Engine) Process(ctx context.Context, run *Run, rec entities.Record) error {
	code := rec.Code
	log := run.log.WithField("code", code)

	lookups, err := e.lookupsFor(ctx, rec.Type)
	if err != nil {
		return err
	}

	part, err := e.resolvePart(ctx, run, lookups, code)
	if err != nil {
		return withCode(err, code)
	}

	lineItem, _, err := e.resolver.Resolve(ctx, run.ledger, lookups, entities.KindLineItem,
		entities.Attrs{entities.AttrDescription: e.itemName(code)}, nil)
	if err != nil {
		return withCode(err, code)
	}

	_, _, err = e.resolver.Resolve(ctx, run.ledger, lookups, entities.KindLineItemPart,
		entities.Attrs{entities.AttrLineItemID: lineItem, entities.AttrPartID: part}, nil)
	if err != nil {
		return withCode(err, code)
	}

	serviceCode, _, err := e.resolver.Resolve(ctx, run.ledger, lookups, entities.KindCode,
		entities.Attrs{
			entities.AttrDescription: e.codeDescription(code),
			entities.AttrShortName:   e.codeShortName(code),
		}, nil)
	if err != nil {
		return withCode(err, code)
	}

	_, _, err = e.resolver.Resolve(ctx, run.ledger, lookups, entities.KindLineItemCode,
		entities.Attrs{entities.AttrServiceCodeID: serviceCode, entities.AttrLineItemID: lineItem}, nil)
	if err != nil {
		return withCode(err, code)
	}

	run.pricing.Record(lineItem, rec.Cost)
	log.WithFields(logrus.Fields{
		"line_item": lineItem.String(),
		"cost":      rec.Cost.String(),
	}).Debug("record processed")
	return nil
}

// resolvePart finds a part by number alone before falling back to a full
// find-or-create, so parts created under other defaults are reused.
func (e *Engine) resolvePart(ctx context.Context, run *Run, lookups Lookups, code string) (entities.Handle, error) {
	part, found, err := e.resolver.Find(ctx, entities.KindPart, entities.Attrs{entities.AttrNumber: code})
	if err != nil {
		return "", err
	}
	if found {
		return part, nil
	}
	part, _, err = e.resolver.Resolve(ctx, run.ledger, lookups, entities.KindPart,
		entities.Attrs{entities.AttrNumber: code, entities.AttrName: code}, nil)
	return part, err
}

// BuildPriceVersion prices everything the run accumulated against the pay
// grade of the default type.
func (e *Engine) BuildPriceVersion(ctx context.Context, run *Run) (*entities.PriceVersion, error) {
	payGradeID, found, err := e.store.LookupPayGrade(ctx, e.base.ProviderID, e.opts.DefaultType)
	if err != nil {
		return nil, &SetupError{Lookup: "pay_grades", Name: e.opts.DefaultType, Err: err}
	}
	if !found {
		return nil, &PricingPreconditionError{PayGradeType: e.opts.DefaultType, Reason: "no pay grade for provider"}
	}

	anchor, err := e.builder.LatestVersion(ctx, payGradeID)
	if err != nil {
		return nil, err
	}
	return e.builder.BuildVersion(ctx, run.ledger, anchor, run.pricing)
}

// lookupsFor returns the lookups for a type hint, resolving them on first use.
func (e *Engine) lookupsFor(ctx context.Context, hint string) (Lookups, error) {
	if hint == "" {
		hint = e.opts.DefaultType
	}

	t, ok := e.types[hint]
	if !ok {
		partType, err := e.lookup(ctx, entities.LookupPartType, strings.ToLower(hint))
		if err != nil {
			return Lookups{}, err
		}
		lineItemType, err := e.lookup(ctx, entities.LookupLineItemType, hint)
		if err != nil {
			return Lookups{}, err
		}
		t = typeLookups{partTypeID: partType, lineItemTypeID: lineItemType}
		e.types[hint] = t
	}

	l := e.base
	l.PartTypeID = t.partTypeID
	l.LineItemTypeID = t.lineItemTypeID
	return l, nil
}

func (e *Engine) lookup(ctx context.Context, table entities.LookupTable, name string) (entities.Handle, error) {
	h, found, err := e.store.LookupID(ctx, table, name)
	if err != nil {
		return "", &SetupError{Lookup: string(table), Name: name, Err: err}
	}
	if !found {
		return "", &SetupError{Lookup: string(table), Name: name}
	}
	return h, nil
}

func (e *Engine) itemName(code string) string {
	if e.opts.VerboseNames {
		return "item: " + code
	}
	return code
}

func (e *Engine) codeDescription(code string) string {
	if e.opts.VerboseNames {
		return "Service Code: " + code
	}
	return code
}

func (e *Engine) codeShortName(code string) string {
	if e.opts.VerboseNames {
		return "sc: " + code
	}
	return code
}

func withCode(err error, code string) error {
	if ce, ok := err.(*CreationError); ok && ce.Code == "" {
		ce.Code = code
	}
	return err
}
