package datastore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"sc-provisioner/internal/entities"
	"sc-provisioner/internal/store"
)

// DataStore defines the interface for all data access operations
// This interface is implemented by the SQL store and the in-memory store
type DataStore interface {
	// Lifecycle
	Close() error
	InitDB(ctx context.Context) error

	// Generic entity operations, keyed by kind
	FindByAttributes(ctx context.Context, kind entities.EntityKind, attrs entities.Attrs) (entities.Handle, bool, error)
	Create(ctx context.Context, kind entities.EntityKind, attrs entities.Attrs) (entities.Handle, error)
	Destroy(ctx context.Context, kind entities.EntityKind, handle entities.Handle) error

	// Reference lookups
	LookupID(ctx context.Context, table entities.LookupTable, name string) (entities.Handle, bool, error)
	LookupPayGrade(ctx context.Context, providerID entities.Handle, payGradeType string) (entities.Handle, bool, error)
	SeedReference(ctx context.Context, seed *entities.ReferenceSeed) error

	// Price versions
	LatestPriceVersion(ctx context.Context, payGradeID entities.Handle) (*entities.PriceVersion, error)
	DeriveNewVersion(ctx context.Context, prior entities.Handle, effective time.Time, amounts map[entities.Handle]decimal.Decimal) (entities.Handle, error)
}

// Type represents the type of data store to use
type Type string

const (
	// PostgreSQLStore uses a PostgreSQL database
	PostgreSQLStore Type = "postgresql"
	// SQLiteStore uses a local SQLite file
	SQLiteStore Type = "sqlite"
	// MemoryStore keeps everything in process memory
	MemoryStore Type = "memory"
)

// Config holds configuration for data store creation
type Config struct {
	Type             Type
	ConnectionString string
	SQLitePath       string
}

// NewDataStore creates a new data store based on configuration
func NewDataStore(config Config) (DataStore, error) {
	switch config.Type {
	case PostgreSQLStore:
		return newSQLStore(store.DriverPostgres, config.ConnectionString)
	case SQLiteStore:
		return newSQLStore(store.DriverSQLite, store.SQLiteDSN(config.SQLitePath))
	case MemoryStore:
		return NewMemoryStore(), nil
	default:
		return nil, &UnsupportedStoreTypeError{Type: string(config.Type)}
	}
}

// newSQLStore opens a SQL-backed store for the given driver
func newSQLStore(driverName, dsn string) (DataStore, error) {
	s, err := store.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UnsupportedStoreTypeError is returned when an unsupported store type is requested
type UnsupportedStoreTypeError struct {
	Type string
}

func (e *UnsupportedStoreTypeError) Error() string {
	return "unsupported store type: " + e.Type
}

var (
	_ DataStore = (*store.Store)(nil)
	_ DataStore = (*Memory)(nil)
)
