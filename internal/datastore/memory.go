package datastore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sc-provisioner/internal/entities"
)

type payGradeTypeRow struct {
	id         entities.Handle
	providerID entities.Handle
	name       string
}

type payGradeRow struct {
	id     entities.Handle
	typeID entities.Handle
	name   string
}

// Memory is an in-process DataStore. Destroy refuses rows that are still
// referenced, the same way the foreign keys of the SQL schema do.
type Memory struct {
	mu sync.RWMutex

	rows  map[entities.EntityKind]map[entities.Handle]entities.Attrs
	order map[entities.EntityKind][]entities.Handle

	lookups       map[entities.LookupTable]map[string]entities.Handle
	payGradeTypes []payGradeTypeRow
	payGrades     []payGradeRow
	versions      map[entities.Handle]*entities.PriceVersion
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *Memory {
	return &Memory{
		rows:     make(map[entities.EntityKind]map[entities.Handle]entities.Attrs),
		order:    make(map[entities.EntityKind][]entities.Handle),
		lookups:  make(map[entities.LookupTable]map[string]entities.Handle),
		versions: make(map[entities.Handle]*entities.PriceVersion),
	}
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) InitDB(_ context.Context) error {
	return nil
}

func validateAttrs(kind entities.EntityKind, attrs entities.Attrs) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", entities.ErrUnknownKind, kind)
	}
	for k := range attrs {
		if !entities.HasColumn(kind, k) {
			return fmt.Errorf("%w: %s.%s", entities.ErrUnknownAttribute, kind, k)
		}
	}
	return nil
}

// FindByAttributes returns the oldest row of kind whose attributes match attrs.
func (m *Memory) FindByAttributes(_ context.Context, kind entities.EntityKind, attrs entities.Attrs) (entities.Handle, bool, error) {
	if err := validateAttrs(kind, attrs); err != nil {
		return "", false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if kind == entities.KindPriceVersion {
		for _, h := range m.order[kind] {
			if versionAttrs(m.versions[h]).Matches(attrs) {
				return h, true, nil
			}
		}
		return "", false, nil
	}

	for _, h := range m.order[kind] {
		if m.rows[kind][h].Matches(attrs) {
			return h, true, nil
		}
	}
	return "", false, nil
}

func (m *Memory) Create(_ context.Context, kind entities.EntityKind, attrs entities.Attrs) (entities.Handle, error) {
	if err := validateAttrs(kind, attrs); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for attr, target := range entities.References(kind) {
		ref, ok := attrs[attr]
		if !ok {
			continue
		}
		if _, exists := m.rows[target][toHandle(ref)]; !exists {
			return "", fmt.Errorf("%w: %s %v does not exist", entities.ErrReferenced, target, ref)
		}
	}

	h := entities.NewHandle()
	if kind == entities.KindPriceVersion {
		v := &entities.PriceVersion{ID: h, Amounts: map[entities.Handle]decimal.Decimal{}}
		if pg, ok := attrs[entities.AttrPayGradeID]; ok {
			v.PayGradeID = toHandle(pg)
		}
		if eff, ok := attrs[entities.AttrEffective].(time.Time); ok {
			v.Effective = eff
		}
		m.versions[h] = v
	} else {
		if m.rows[kind] == nil {
			m.rows[kind] = make(map[entities.Handle]entities.Attrs)
		}
		m.rows[kind][h] = entities.Attrs{}.Merge(attrs)
	}
	m.order[kind] = append(m.order[kind], h)
	return h, nil
}

// Destroy removes one row. It fails with ErrReferenced while other rows point at it.
func (m *Memory) Destroy(_ context.Context, kind entities.EntityKind, handle entities.Handle) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", entities.ErrUnknownKind, kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if kind == entities.KindPriceVersion {
		if _, ok := m.versions[handle]; !ok {
			return fmt.Errorf("%w: %s %s", entities.ErrNotFound, kind, handle)
		}
		delete(m.versions, handle)
		m.removeFromOrder(kind, handle)
		return nil
	}

	if _, ok := m.rows[kind][handle]; !ok {
		return fmt.Errorf("%w: %s %s", entities.ErrNotFound, kind, handle)
	}
	if by, ok := m.referencedBy(kind, handle); ok {
		return fmt.Errorf("%w: %s %s is referenced by %s", entities.ErrReferenced, kind, handle, by)
	}

	delete(m.rows[kind], handle)
	m.removeFromOrder(kind, handle)
	return nil
}

func (m *Memory) referencedBy(kind entities.EntityKind, handle entities.Handle) (string, bool) {
	for _, other := range entities.AllKinds() {
		for attr, target := range entities.References(other) {
			if target != kind {
				continue
			}
			for h, row := range m.rows[other] {
				if ref, ok := row[attr]; ok && toHandle(ref) == handle {
					return fmt.Sprintf("%s %s", other, h), true
				}
			}
		}
	}
	if kind == entities.KindLineItem {
		for id, v := range m.versions {
			if _, ok := v.Amounts[handle]; ok {
				return fmt.Sprintf("%s %s", entities.KindPriceVersion, id), true
			}
		}
	}
	return "", false
}

func (m *Memory) removeFromOrder(kind entities.EntityKind, handle entities.Handle) {
	order := m.order[kind]
	for i, h := range order {
		if h == handle {
			m.order[kind] = append(order[:i:i], order[i+1:]...)
			return
		}
	}
}

func (m *Memory) LookupID(_ context.Context, table entities.LookupTable, name string) (entities.Handle, bool, error) {
	if !table.Valid() {
		return "", false, fmt.Errorf("%w: %s", entities.ErrUnknownLookup, table)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.lookups[table][name]
	return h, ok, nil
}

func (m *Memory) LookupPayGrade(_ context.Context, providerID entities.Handle, payGradeType string) (entities.Handle, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var typeID entities.Handle
	for _, t := range m.payGradeTypes {
		if t.providerID == providerID && t.name == payGradeType {
			typeID = t.id
			break
		}
	}
	if typeID == "" {
		return "", false, nil
	}

	var grades []payGradeRow
	for _, g := range m.payGrades {
		if g.typeID == typeID {
			grades = append(grades, g)
		}
	}
	if len(grades) == 0 {
		return "", false, nil
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].name < grades[j].name })
	return grades[0].id, true, nil
}

// SeedReference inserts any reference rows from seed that are not present yet.
func (m *Memory) SeedReference(_ context.Context, seed *entities.ReferenceSeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range seed.PartTypes {
		m.ensureLookup(entities.LookupPartType, name)
	}
	for _, name := range seed.LineItemTypes {
		m.ensureLookup(entities.LookupLineItemType, name)
	}
	for _, name := range seed.ServiceCodeTypes {
		m.ensureLookup(entities.LookupServiceCodeType, name)
	}

	for _, p := range seed.Providers {
		providerID := m.ensureLookup(entities.LookupServiceProvider, p.Name)
		m.ensureLookup(entities.LookupPartCategory, p.Name)

		for _, pg := range p.PayGrades {
			effective, err := time.Parse(entities.DateLayout, pg.Effective)
			if err != nil {
				return fmt.Errorf("invalid effective date %q for pay grade %s: %w", pg.Effective, pg.Name, err)
			}
			typeID := m.ensurePayGradeType(providerID, pg.Type)
			gradeID := m.ensurePayGrade(typeID, pg.Name)
			if !m.hasVersion(gradeID) {
				h := entities.NewHandle()
				m.versions[h] = &entities.PriceVersion{
					ID:         h,
					PayGradeID: gradeID,
					Effective:  effective,
					Amounts:    map[entities.Handle]decimal.Decimal{},
				}
				m.order[entities.KindPriceVersion] = append(m.order[entities.KindPriceVersion], h)
			}
		}
	}
	return nil
}

func (m *Memory) ensureLookup(table entities.LookupTable, name string) entities.Handle {
	if m.lookups[table] == nil {
		m.lookups[table] = make(map[string]entities.Handle)
	}
	if h, ok := m.lookups[table][name]; ok {
		return h
	}
	h := entities.NewHandle()
	m.lookups[table][name] = h
	return h
}

func (m *Memory) ensurePayGradeType(providerID entities.Handle, name string) entities.Handle {
	for _, t := range m.payGradeTypes {
		if t.providerID == providerID && t.name == name {
			return t.id
		}
	}
	row := payGradeTypeRow{id: entities.NewHandle(), providerID: providerID, name: name}
	m.payGradeTypes = append(m.payGradeTypes, row)
	return row.id
}

func (m *Memory) ensurePayGrade(typeID entities.Handle, name string) entities.Handle {
	for _, g := range m.payGrades {
		if g.typeID == typeID && g.name == name {
			return g.id
		}
	}
	row := payGradeRow{id: entities.NewHandle(), typeID: typeID, name: name}
	m.payGrades = append(m.payGrades, row)
	return row.id
}

func (m *Memory) hasVersion(payGradeID entities.Handle) bool {
	for _, v := range m.versions {
		if v.PayGradeID == payGradeID {
			return true
		}
	}
	return false
}

func (m *Memory) LatestPriceVersion(_ context.Context, payGradeID entities.Handle) (*entities.PriceVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *entities.PriceVersion
	for _, v := range m.versions {
		if v.PayGradeID != payGradeID {
			continue
		}
		if latest == nil || v.Effective.After(latest.Effective) {
			latest = v
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: price version for pay grade %s", entities.ErrNotFound, payGradeID)
	}
	return copyVersion(latest), nil
}

// DeriveNewVersion stores a new version whose amounts are the prior version's
// amounts overlaid with amounts. The prior version is left untouched.
func (m *Memory) DeriveNewVersion(_ context.Context, prior entities.Handle, effective time.Time, amounts map[entities.Handle]decimal.Decimal) (entities.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	base, ok := m.versions[prior]
	if !ok {
		return "", fmt.Errorf("%w: price version %s", entities.ErrNotFound, prior)
	}
	for item := range amounts {
		if _, exists := m.rows[entities.KindLineItem][item]; !exists {
			return "", fmt.Errorf("%w: line item %s does not exist", entities.ErrReferenced, item)
		}
	}

	merged := make(map[entities.Handle]decimal.Decimal, len(base.Amounts)+len(amounts))
	for item, amount := range base.Amounts {
		merged[item] = amount
	}
	for item, amount := range amounts {
		merged[item] = amount
	}

	h := entities.NewHandle()
	m.versions[h] = &entities.PriceVersion{
		ID:         h,
		PayGradeID: base.PayGradeID,
		Effective:  effective,
		Amounts:    merged,
	}
	m.order[entities.KindPriceVersion] = append(m.order[entities.KindPriceVersion], h)
	return h, nil
}

// Count returns the number of stored rows of kind.
func (m *Memory) Count(kind entities.EntityKind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order[kind])
}

// Get returns a copy of the attributes stored for handle.
func (m *Memory) Get(kind entities.EntityKind, handle entities.Handle) (entities.Attrs, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if kind == entities.KindPriceVersion {
		v, ok := m.versions[handle]
		if !ok {
			return nil, false
		}
		return versionAttrs(v), true
	}
	row, ok := m.rows[kind][handle]
	if !ok {
		return nil, false
	}
	return entities.Attrs{}.Merge(row), true
}

// Version returns a copy of a stored price version.
func (m *Memory) Version(handle entities.Handle) (*entities.PriceVersion, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.versions[handle]
	if !ok {
		return nil, false
	}
	return copyVersion(v), true
}

func versionAttrs(v *entities.PriceVersion) entities.Attrs {
	return entities.Attrs{
		entities.AttrPayGradeID: v.PayGradeID,
		entities.AttrEffective:  v.Effective,
	}
}

func copyVersion(v *entities.PriceVersion) *entities.PriceVersion {
	amounts := make(map[entities.Handle]decimal.Decimal, len(v.Amounts))
	for k, a := range v.Amounts {
		amounts[k] = a
	}
	return &entities.PriceVersion{
		ID:         v.ID,
		PayGradeID: v.PayGradeID,
		Effective:  v.Effective,
		Amounts:    amounts,
	}
}

func toHandle(v any) entities.Handle {
	switch t := v.(type) {
	case entities.Handle:
		return t
	case string:
		return entities.Handle(t)
	default:
		return entities.Handle(fmt.Sprint(t))
	}
}
