package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sc-provisioner/internal/entities"
)

func TestPostgres_RoundTrip(t *testing.T) {
	connStr := os.Getenv("TEST_DB_CONN_STRING")
	if connStr == "" {
		t.Skip("Skipping integration test: TEST_DB_CONN_STRING not set")
	}

	ctx := context.Background()
	s, err := Open(DriverPostgres, connStr)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.InitDB(ctx))
	require.NoError(t, s.SeedReference(ctx, testSeed()))

	li, err := s.Create(ctx, entities.KindLineItem, entities.Attrs{entities.AttrDescription: "PG-TEST"})
	require.NoError(t, err)

	code, err := s.Create(ctx, entities.KindCode, entities.Attrs{
		entities.AttrDescription: "PG-TEST",
		entities.AttrRank:        0,
		entities.AttrChargeback:  true,
	})
	require.NoError(t, err)

	link, err := s.Create(ctx, entities.KindLineItemCode, entities.Attrs{
		entities.AttrLineItemID:    li,
		entities.AttrServiceCodeID: code,
	})
	require.NoError(t, err)

	err = s.Destroy(ctx, entities.KindCode, code)
	assert.True(t, entities.IsReferenced(err))

	require.NoError(t, s.Destroy(ctx, entities.KindLineItemCode, link))
	require.NoError(t, s.Destroy(ctx, entities.KindCode, code))
	require.NoError(t, s.Destroy(ctx, entities.KindLineItem, li))
}
