package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sc-provisioner/internal/entities"
)

func testSeed() *entities.ReferenceSeed {
	return &entities.ReferenceSeed{
		Providers: []entities.ProviderSeed{{
			Name: "Acme",
			PayGrades: []entities.PayGradeSeed{
				{Type: "Equipment", Name: "Standard", Effective: "2024-01-01"},
			},
		}},
		PartTypes:        []string{"equipment"},
		LineItemTypes:    []string{"Equipment"},
		ServiceCodeTypes: []string{"payroll"},
	}
}

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, SQLiteDSN(filepath.Join(t.TempDir(), "sc.db")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.InitDB(context.Background()))
	return s
}

func TestSQLite_SeedIsIdempotent(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedReference(ctx, testSeed()))
	require.NoError(t, s.SeedReference(ctx, testSeed()))

	var providers, versions int
	require.NoError(t, s.DB().Get(&providers, `SELECT COUNT(*) FROM service_providers`))
	require.NoError(t, s.DB().Get(&versions, `SELECT COUNT(*) FROM price_versions`))
	assert.Equal(t, 1, providers)
	assert.Equal(t, 1, versions)

	providerID, found, err := s.LookupID(ctx, entities.LookupServiceProvider, "Acme")
	require.NoError(t, err)
	require.True(t, found)

	_, found, err = s.LookupID(ctx, entities.LookupPartCategory, "Acme")
	require.NoError(t, err)
	assert.True(t, found, "provider should get a part category of the same name")

	_, found, err = s.LookupPayGrade(ctx, providerID, "Equipment")
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = s.LookupPayGrade(ctx, providerID, "Labor")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLite_CreateFindDestroy(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.SeedReference(ctx, testSeed()))

	typeID, _, err := s.LookupID(ctx, entities.LookupLineItemType, "Equipment")
	require.NoError(t, err)

	attrs := entities.Attrs{
		entities.AttrDescription:    "SC-100",
		entities.AttrLineItemTypeID: typeID,
	}
	li, err := s.Create(ctx, entities.KindLineItem, attrs)
	require.NoError(t, err)

	found, ok, err := s.FindByAttributes(ctx, entities.KindLineItem, attrs)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, li, found)

	_, ok, err = s.FindByAttributes(ctx, entities.KindLineItem, entities.Attrs{
		entities.AttrDescription:    "SC-100",
		entities.AttrLineItemTypeID: "other",
	})
	require.NoError(t, err)
	assert.False(t, ok, "every attribute must match")

	part, err := s.Create(ctx, entities.KindPart, entities.Attrs{
		entities.AttrNumber:     "SC-100",
		entities.AttrName:       "SC-100",
		entities.AttrSerialized: false,
		entities.AttrActive:     true,
	})
	require.NoError(t, err)

	_, ok, err = s.FindByAttributes(ctx, entities.KindPart, entities.Attrs{
		entities.AttrNumber: "SC-100",
		entities.AttrActive: true,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	link, err := s.Create(ctx, entities.KindLineItemPart, entities.Attrs{
		entities.AttrLineItemID: li,
		entities.AttrPartID:     part,
	})
	require.NoError(t, err)

	err = s.Destroy(ctx, entities.KindLineItem, li)
	require.Error(t, err)
	assert.True(t, entities.IsReferenced(err))

	require.NoError(t, s.Destroy(ctx, entities.KindLineItemPart, link))
	require.NoError(t, s.Destroy(ctx, entities.KindLineItem, li))
	require.NoError(t, s.Destroy(ctx, entities.KindPart, part))

	err = s.Destroy(ctx, entities.KindLineItem, li)
	require.Error(t, err)
	assert.True(t, entities.IsNotFound(err))
}

func TestSQLite_CreateWithDanglingReferenceFails(t *testing.T) {
	s := newSQLiteStore(t)

	_, err := s.Create(context.Background(), entities.KindLineItemPart, entities.Attrs{
		entities.AttrLineItemID: "missing",
		entities.AttrPartID:     "missing",
	})
	require.Error(t, err)
	assert.True(t, entities.IsReferenced(err))
}

func TestSQLite_DeriveNewVersion(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.SeedReference(ctx, testSeed()))

	providerID, _, err := s.LookupID(ctx, entities.LookupServiceProvider, "Acme")
	require.NoError(t, err)
	payGrade, _, err := s.LookupPayGrade(ctx, providerID, "Equipment")
	require.NoError(t, err)

	bootstrap, err := s.LatestPriceVersion(ctx, payGrade)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bootstrap.Effective)
	assert.Empty(t, bootstrap.Amounts)

	liA, err := s.Create(ctx, entities.KindLineItem, entities.Attrs{entities.AttrDescription: "A"})
	require.NoError(t, err)
	liB, err := s.Create(ctx, entities.KindLineItem, entities.Attrs{entities.AttrDescription: "B"})
	require.NoError(t, err)

	first, err := s.DeriveNewVersion(ctx, bootstrap.ID, bootstrap.Effective.AddDate(0, 0, 1),
		map[entities.Handle]decimal.Decimal{liA: decimal.RequireFromString("1.25")})
	require.NoError(t, err)

	second, err := s.DeriveNewVersion(ctx, first, bootstrap.Effective.AddDate(0, 0, 2),
		map[entities.Handle]decimal.Decimal{liB: decimal.RequireFromString("9.99")})
	require.NoError(t, err)

	latest, err := s.LatestPriceVersion(ctx, payGrade)
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), latest.Effective)
	require.Len(t, latest.Amounts, 2)
	assert.True(t, latest.Amounts[liA].Equal(decimal.RequireFromString("1.25")))
	assert.True(t, latest.Amounts[liB].Equal(decimal.RequireFromString("9.99")))

	// Amounts keep line items alive until the version goes away.
	err = s.Destroy(ctx, entities.KindLineItem, liB)
	require.Error(t, err)
	assert.True(t, entities.IsReferenced(err))

	require.NoError(t, s.Destroy(ctx, entities.KindPriceVersion, second))
	require.NoError(t, s.Destroy(ctx, entities.KindLineItem, liB))

	latest, err = s.LatestPriceVersion(ctx, payGrade)
	require.NoError(t, err)
	assert.Equal(t, first, latest.ID)
}

func TestSQLite_LatestPriceVersionMissing(t *testing.T) {
	s := newSQLiteStore(t)

	_, err := s.LatestPriceVersion(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, entities.IsNotFound(err))
}
