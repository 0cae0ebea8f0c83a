package provisioning

import (
	"sc-provisioner/internal/entities"
)

// Lookups holds the reference ids the default templates are built from.
type Lookups struct {
	ProviderID        entities.Handle
	PartCategoryID    entities.Handle
	ServiceCodeTypeID entities.Handle
	PartTypeID        entities.Handle
	LineItemTypeID    entities.Handle
}

// DefaultTemplate returns the attributes every new row of kind starts from.
// Link kinds have no defaults.
func DefaultTemplate(kind entities.EntityKind, l Lookups) entities.Attrs {
	switch kind {
	case entities.KindPart:
		return entities.Attrs{
			entities.AttrPartCategoryID:   l.PartCategoryID,
			entities.AttrSerialized:       false,
			entities.AttrActive:           true,
			entities.AttrPartTypeID:       l.PartTypeID,
			entities.AttrIRPriceAvailable: false,
			entities.AttrReturnable:       true,
		}
	case entities.KindLineItem:
		return entities.Attrs{
			entities.AttrLineItemTypeID: l.LineItemTypeID,
		}
	case entities.KindCode:
		return entities.Attrs{
			entities.AttrServiceCodeTypeID: l.ServiceCodeTypeID,
			entities.AttrRank:              0,
			entities.AttrActive:            true,
			entities.AttrSmartHome:         false,
			entities.AttrChargeback:        true,
		}
	case entities.KindLineItemPart, entities.KindLineItemCode, entities.KindPriceVersion:
		return entities.Attrs{}
	default:
		return entities.Attrs{}
	}
}
