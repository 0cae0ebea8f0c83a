package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"sc-provisioner/internal/entities"
)

// SeedReference inserts the reference rows of seed that do not exist yet.
// Every provider gets a part category of the same name, and every pay grade
// without a price version gets an empty bootstrap version.
func (s *Store) SeedReference(ctx context.Context, seed *entities.ReferenceSeed) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	named := []struct {
		table entities.LookupTable
		names []string
	}{
		{entities.LookupPartType, seed.PartTypes},
		{entities.LookupLineItemType, seed.LineItemTypes},
		{entities.LookupServiceCodeType, seed.ServiceCodeTypes},
	}
	for _, n := range named {
		for _, name := range n.names {
			if _, err := ensureNamed(ctx, tx, string(n.table), name); err != nil {
				return err
			}
		}
	}

	for _, p := range seed.Providers {
		providerID, err := ensureNamed(ctx, tx, string(entities.LookupServiceProvider), p.Name)
		if err != nil {
			return err
		}
		if _, err := ensureNamed(ctx, tx, string(entities.LookupPartCategory), p.Name); err != nil {
			return err
		}

		for _, pg := range p.PayGrades {
			effective, err := time.Parse(entities.DateLayout, pg.Effective)
			if err != nil {
				return fmt.Errorf("invalid effective date %q for pay grade %s: %w", pg.Effective, pg.Name, err)
			}

			typeID, err := ensureChild(ctx, tx, "pay_grade_types", "service_provider_id", providerID, pg.Type)
			if err != nil {
				return err
			}
			gradeID, err := ensureChild(ctx, tx, "pay_grades", "pay_grade_type_id", typeID, pg.Name)
			if err != nil {
				return err
			}
			if err := ensureBootstrapVersion(ctx, tx, gradeID, effective); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func ensureNamed(ctx context.Context, tx *sqlx.Tx, table, name string) (string, error) {
	var id string
	err := tx.GetContext(ctx, &id, tx.Rebind(fmt.Sprintf("SELECT id FROM %s WHERE name = ?", table)), name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up %s %q: %w", table, name, err)
	}

	id = entities.NewHandle().String()
	_, err = tx.ExecContext(ctx, tx.Rebind(fmt.Sprintf("INSERT INTO %s (id, name) VALUES (?, ?)", table)), id, name)
	if err != nil {
		return "", fmt.Errorf("failed to insert %s %q: %w", table, name, err)
	}
	return id, nil
}

func ensureChild(ctx context.Context, tx *sqlx.Tx, table, parentColumn, parentID, name string) (string, error) {
	var id string
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s = ? AND name = ?", table, parentColumn)
	err := tx.GetContext(ctx, &id, tx.Rebind(query), parentID, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up %s %q: %w", table, name, err)
	}

	id = entities.NewHandle().String()
	insert := fmt.Sprintf("INSERT INTO %s (id, %s, name) VALUES (?, ?, ?)", table, parentColumn)
	if _, err := tx.ExecContext(ctx, tx.Rebind(insert), id, parentID, name); err != nil {
		return "", fmt.Errorf("failed to insert %s %q: %w", table, name, classify(err))
	}
	return id, nil
}

func ensureBootstrapVersion(ctx context.Context, tx *sqlx.Tx, payGradeID string, effective time.Time) error {
	var count int
	err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM price_versions WHERE pay_grade_id = ?`), payGradeID)
	if err != nil {
		return fmt.Errorf("failed to count price versions: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO price_versions (id, pay_grade_id, effective) VALUES (?, ?, ?)`),
		entities.NewHandle().String(), payGradeID, normalizeDate(effective))
	if err != nil {
		return fmt.Errorf("failed to insert bootstrap price version: %w", classify(err))
	}
	return nil
}
