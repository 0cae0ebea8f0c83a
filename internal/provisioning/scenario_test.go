package provisioning

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sc-provisioner/internal/datastore"
	"sc-provisioner/internal/entities"
)

func seededMemoryStore(t *testing.T) *datastore.Memory {
	t.Helper()
	m := datastore.NewMemoryStore()
	require.NoError(t, m.SeedReference(context.Background(), &entities.ReferenceSeed{
		Providers: []entities.ProviderSeed{{
			Name:      "Acme",
			PayGrades: []entities.PayGradeSeed{{Type: "Equipment", Name: "Standard", Effective: "2024-01-01"}},
		}},
		PartTypes:        []string{"equipment"},
		LineItemTypes:    []string{"Equipment"},
		ServiceCodeTypes: []string{"payroll"},
	}))
	return m
}

func kindCounts(m *datastore.Memory) map[entities.EntityKind]int {
	counts := make(map[entities.EntityKind]int)
	for _, k := range entities.AllKinds() {
		counts[k] = m.Count(k)
	}
	return counts
}

func TestScenario_OnboardPriceAndUndo(t *testing.T) {
	ctx := context.Background()
	m := seededMemoryStore(t)
	before := kindCounts(m)

	e, err := NewEngine(ctx, m, testOptions())
	require.NoError(t, err)
	run := e.NewRun()

	require.NoError(t, e.Process(ctx, run, entities.Record{Code: "SC-100", Cost: decimal.RequireFromString("9.99")}))
	v, err := e.BuildPriceVersion(ctx, run)
	require.NoError(t, err)

	for _, k := range []entities.EntityKind{
		entities.KindPart, entities.KindLineItem, entities.KindLineItemPart,
		entities.KindCode, entities.KindLineItemCode,
	} {
		assert.Equal(t, 1, m.Count(k), k.String())
	}
	assert.Equal(t, 2, m.Count(entities.KindPriceVersion))

	lineItem, found, err := m.FindByAttributes(ctx, entities.KindLineItem, entities.Attrs{entities.AttrDescription: "SC-100"})
	require.NoError(t, err)
	require.True(t, found)

	stored, ok := m.Version(v.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), stored.Effective)
	require.Len(t, stored.Amounts, 1)
	assert.True(t, stored.Amounts[lineItem].Equal(decimal.RequireFromString("9.99")))

	assert.Equal(t, 6, run.Rollback(ctx))
	assert.Equal(t, before, kindCounts(m))
}

func TestScenario_MatchPolicy(t *testing.T) {
	ctx := context.Background()
	m := seededMemoryStore(t)
	lookups := Lookups{LineItemTypeID: "old-type"}

	// A line item created under an older template.
	seedLedger := NewLedger(m, nil)
	legacy, created, err := NewResolver(m, MatchFull, nil).Resolve(ctx, seedLedger, Lookups{}, entities.KindLineItem,
		entities.Attrs{entities.AttrDescription: "SC-5"}, nil)
	require.NoError(t, err)
	require.True(t, created)

	full := NewResolver(m, MatchFull, nil)
	h, created, err := full.Resolve(ctx, NewLedger(m, nil), lookups, entities.KindLineItem,
		entities.Attrs{entities.AttrDescription: "SC-5"}, nil)
	require.NoError(t, err)
	assert.True(t, created, "full match treats a changed template as a new row")
	assert.NotEqual(t, legacy, h)

	natural := NewResolver(m, MatchNaturalKey, nil)
	h, created, err = natural.Resolve(ctx, NewLedger(m, nil), lookups, entities.KindLineItem,
		entities.Attrs{entities.AttrDescription: "SC-5"}, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, legacy, h)
}
