package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sc-provisioner/internal/entities"
)

type fakeRow struct {
	kind  entities.EntityKind
	attrs entities.Attrs
}

type deriveCall struct {
	prior     entities.Handle
	effective time.Time
	amounts   map[entities.Handle]decimal.Decimal
}

// fakeStore records create and destroy calls so tests can check their order.
type fakeStore struct {
	seq  int
	rows map[entities.Handle]fakeRow

	created   []entities.Handle
	destroyed []entities.Handle

	createErr  map[entities.EntityKind]error
	destroyErr map[entities.Handle]error
	forceFind  map[entities.EntityKind]entities.Handle

	lookups   map[entities.LookupTable]map[string]entities.Handle
	payGrades map[string]entities.Handle
	versions  map[entities.Handle]*entities.PriceVersion
	derived   []deriveCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:       make(map[entities.Handle]fakeRow),
		createErr:  make(map[entities.EntityKind]error),
		destroyErr: make(map[entities.Handle]error),
		forceFind:  make(map[entities.EntityKind]entities.Handle),
		lookups:    make(map[entities.LookupTable]map[string]entities.Handle),
		payGrades:  make(map[string]entities.Handle),
		versions:   make(map[entities.Handle]*entities.PriceVersion),
	}
}

// newSeededFakeStore knows provider Acme, the payroll code type and the
// Equipment type.
func newSeededFakeStore() *fakeStore {
	s := newFakeStore()
	s.addLookup(entities.LookupServiceProvider, "Acme")
	s.addLookup(entities.LookupPartCategory, "Acme")
	s.addLookup(entities.LookupServiceCodeType, "payroll")
	s.addLookup(entities.LookupPartType, "equipment")
	s.addLookup(entities.LookupLineItemType, "Equipment")
	return s
}

func (s *fakeStore) nextHandle() entities.Handle {
	s.seq++
	return entities.Handle(fmt.Sprintf("h%d", s.seq))
}

func (s *fakeStore) addLookup(table entities.LookupTable, name string) entities.Handle {
	if s.lookups[table] == nil {
		s.lookups[table] = make(map[string]entities.Handle)
	}
	h := s.nextHandle()
	s.lookups[table][name] = h
	return h
}

func (s *fakeStore) addPayGrade(typeName string, effective time.Time) (entities.Handle, entities.Handle) {
	pg := s.nextHandle()
	s.payGrades[typeName] = pg
	v := s.nextHandle()
	s.versions[v] = &entities.PriceVersion{ID: v, PayGradeID: pg, Effective: effective, Amounts: map[entities.Handle]decimal.Decimal{}}
	return pg, v
}

func (s *fakeStore) count(kind entities.EntityKind) int {
	n := 0
	for _, r := range s.rows {
		if r.kind == kind {
			n++
		}
	}
	return n
}

func (s *fakeStore) FindByAttributes(_ context.Context, kind entities.EntityKind, attrs entities.Attrs) (entities.Handle, bool, error) {
	if h, ok := s.forceFind[kind]; ok {
		return h, true, nil
	}
	for h, r := range s.rows {
		if r.kind == kind && r.attrs.Matches(attrs) {
			return h, true, nil
		}
	}
	return "", false, nil
}

func (s *fakeStore) Create(_ context.Context, kind entities.EntityKind, attrs entities.Attrs) (entities.Handle, error) {
	if err := s.createErr[kind]; err != nil {
		return "", err
	}
	h := s.nextHandle()
	s.rows[h] = fakeRow{kind: kind, attrs: attrs}
	s.created = append(s.created, h)
	return h, nil
}

func (s *fakeStore) Destroy(_ context.Context, kind entities.EntityKind, handle entities.Handle) error {
	s.destroyed = append(s.destroyed, handle)
	if err := s.destroyErr[handle]; err != nil {
		return err
	}
	if kind == entities.KindPriceVersion {
		if _, ok := s.versions[handle]; !ok {
			return entities.ErrNotFound
		}
		delete(s.versions, handle)
		return nil
	}
	if _, ok := s.rows[handle]; !ok {
		return entities.ErrNotFound
	}
	delete(s.rows, handle)
	return nil
}

func (s *fakeStore) LookupID(_ context.Context, table entities.LookupTable, name string) (entities.Handle, bool, error) {
	h, ok := s.lookups[table][name]
	return h, ok, nil
}

func (s *fakeStore) LookupPayGrade(_ context.Context, _ entities.Handle, payGradeType string) (entities.Handle, bool, error) {
	h, ok := s.payGrades[payGradeType]
	return h, ok, nil
}

func (s *fakeStore) LatestPriceVersion(_ context.Context, payGradeID entities.Handle) (*entities.PriceVersion, error) {
	var latest *entities.PriceVersion
	for _, v := range s.versions {
		if v.PayGradeID == payGradeID && (latest == nil || v.Effective.After(latest.Effective)) {
			latest = v
		}
	}
	if latest == nil {
		return nil, entities.ErrNotFound
	}
	return latest, nil
}

func (s *fakeStore) DeriveNewVersion(_ context.Context, prior entities.Handle, effective time.Time, amounts map[entities.Handle]decimal.Decimal) (entities.Handle, error) {
	base, ok := s.versions[prior]
	if !ok {
		return "", entities.ErrNotFound
	}
	s.derived = append(s.derived, deriveCall{prior: prior, effective: effective, amounts: amounts})
	h := s.nextHandle()
	s.versions[h] = &entities.PriceVersion{ID: h, PayGradeID: base.PayGradeID, Effective: effective, Amounts: amounts}
	return h, nil
}
