package entities

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// ENTITY KINDS
// ============================================================================

// EntityKind identifies one of the domain entity types created while onboarding
// a service code.
type EntityKind int

const (
	KindPart EntityKind = iota + 1
	KindLineItem
	KindLineItemPart
	KindCode
	KindLineItemCode
	KindPriceVersion
)

var kindNames = map[EntityKind]string{
	KindPart:         "Part",
	KindLineItem:     "LineItem",
	KindLineItemPart: "LineItemPart",
	KindCode:         "Code",
	KindLineItemCode: "LineItemCode",
	KindPriceVersion: "PriceVersion",
}

func (k EntityKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EntityKind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k EntityKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// AllKinds returns every kind in creation order.
func AllKinds() []EntityKind {
	return []EntityKind{KindPart, KindLineItem, KindLineItemPart, KindCode, KindLineItemCode, KindPriceVersion}
}

// ============================================================================
// ATTRIBUTES
// ============================================================================

// Attribute names shared by the stores and the provisioning templates.
const (
	AttrNumber            = "number"
	AttrName              = "name"
	AttrDescription       = "description"
	AttrShortName         = "short_name"
	AttrPartCategoryID    = "part_category_id"
	AttrPartTypeID        = "part_type_id"
	AttrSerialized        = "serialized"
	AttrActive            = "active"
	AttrIRPriceAvailable  = "ir_price_available"
	AttrReturnable        = "returnable"
	AttrLineItemTypeID    = "line_item_type_id"
	AttrLineItemID        = "line_item_id"
	AttrPartID            = "part_id"
	AttrServiceCodeID     = "service_code_id"
	AttrServiceCodeTypeID = "service_code_type_id"
	AttrRank              = "rank"
	AttrSmartHome         = "smart_home"
	AttrChargeback        = "chargeback"
	AttrPayGradeID        = "pay_grade_id"
	AttrEffective         = "effective"
)

// kindColumns lists the attributes each kind may be created or matched with.
var kindColumns = map[EntityKind][]string{
	KindPart: {
		AttrNumber, AttrName, AttrPartCategoryID, AttrPartTypeID,
		AttrSerialized, AttrActive, AttrIRPriceAvailable, AttrReturnable,
	},
	KindLineItem:     {AttrDescription, AttrLineItemTypeID},
	KindLineItemPart: {AttrLineItemID, AttrPartID},
	KindCode: {
		AttrDescription, AttrShortName, AttrServiceCodeTypeID,
		AttrRank, AttrActive, AttrSmartHome, AttrChargeback,
	},
	KindLineItemCode: {AttrServiceCodeID, AttrLineItemID},
	KindPriceVersion: {AttrPayGradeID, AttrEffective},
}

// kindReferences maps foreign-key attributes to the kind they point at.
var kindReferences = map[EntityKind]map[string]EntityKind{
	KindLineItemPart: {AttrLineItemID: KindLineItem, AttrPartID: KindPart},
	KindLineItemCode: {AttrLineItemID: KindLineItem, AttrServiceCodeID: KindCode},
}

// Columns returns the attribute names allowed for kind.
func Columns(kind EntityKind) []string {
	return append([]string(nil), kindColumns[kind]...)
}

// HasColumn reports whether attr is a known attribute of kind.
func HasColumn(kind EntityKind, attr string) bool {
	for _, c := range kindColumns[kind] {
		if c == attr {
			return true
		}
	}
	return false
}

// References returns the foreign-key attributes of kind.
func References(kind EntityKind) map[string]EntityKind {
	return kindReferences[kind]
}

// Attrs is an attribute set used both as a creation payload and as a lookup filter.
type Attrs map[string]any

// Merge returns a new set holding a overlaid with over. Keys in over win.
func (a Attrs) Merge(over Attrs) Attrs {
	merged := make(Attrs, len(a)+len(over))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range over {
		merged[k] = v
	}
	return merged
}

// Keys returns the attribute names in sorted order.
func (a Attrs) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Matches reports whether every attribute in filter is present in a with an equal value.
func (a Attrs) Matches(filter Attrs) bool {
	for k, want := range filter {
		got, ok := a[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if da, ok := a.(decimal.Decimal); ok {
		db, ok := b.(decimal.Decimal)
		return ok && da.Equal(db)
	}
	if ha, ok := a.(Handle); ok {
		if sb, ok := b.(string); ok {
			return string(ha) == sb
		}
	}
	if sa, ok := a.(string); ok {
		if hb, ok := b.(Handle); ok {
			return sa == string(hb)
		}
	}
	return a == b
}

// ============================================================================
// HANDLES AND VERSIONS
// ============================================================================

// Handle is the opaque store reference of a persisted row.
type Handle string

// NewHandle returns a fresh random handle.
func NewHandle() Handle {
	return Handle(uuid.NewString())
}

func (h Handle) String() string {
	return string(h)
}

// PriceVersion is a dated snapshot of line item costs for one pay grade.
type PriceVersion struct {
	ID         Handle                     `json:"id" db:"id"`
	PayGradeID Handle                     `json:"pay_grade_id" db:"pay_grade_id"`
	Effective  time.Time                  `json:"effective" db:"effective"`
	Amounts    map[Handle]decimal.Decimal `json:"amounts" db:"-"`
}

// ============================================================================
// INPUT RECORDS
// ============================================================================

// Record is one reference-data row handed to the provisioning engine.
type Record struct {
	Code string          `json:"code" yaml:"code"`
	Cost decimal.Decimal `json:"cost" yaml:"cost"`
	Type string          `json:"type,omitempty" yaml:"type,omitempty"`
}
