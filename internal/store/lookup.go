package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sc-provisioner/internal/entities"
)

// LookupID returns the id of the row called name in a reference table.
func (s *Store) LookupID(ctx context.Context, table entities.LookupTable, name string) (entities.Handle, bool, error) {
	if !table.Valid() {
		return "", false, fmt.Errorf("%w: %s", entities.ErrUnknownLookup, table)
	}

	var id string
	query := fmt.Sprintf("SELECT id FROM %s WHERE name = ?", string(table))
	err := s.db.GetContext(ctx, &id, s.db.Rebind(query), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to look up %s %q: %w", table, name, err)
	}
	return entities.Handle(id), true, nil
}

// LookupPayGrade returns the first pay grade, by name, filed under the
// provider's pay grade type called payGradeType.
func (s *Store) LookupPayGrade(ctx context.Context, providerID entities.Handle, payGradeType string) (entities.Handle, bool, error) {
	query := `SELECT pg.id
	         FROM pay_grades pg
	         JOIN pay_grade_types t ON t.id = pg.pay_grade_type_id
	         WHERE t.service_provider_id = ? AND t.name = ?
	         ORDER BY pg.name
	         LIMIT 1`

	var id string
	err := s.db.GetContext(ctx, &id, s.db.Rebind(query), string(providerID), payGradeType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to look up pay grade %q: %w", payGradeType, err)
	}
	return entities.Handle(id), true, nil
}
