package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sc-provisioner/internal/entities"
)

var kindTables = map[entities.EntityKind]string{
	entities.KindPart:         "parts",
	entities.KindLineItem:     "line_items",
	entities.KindLineItemPart: "line_item_parts",
	entities.KindCode:         "service_codes",
	entities.KindLineItemCode: "line_item_service_codes",
	entities.KindPriceVersion: "price_versions",
}

// TableFor returns the table that stores rows of kind.
func TableFor(kind entities.EntityKind) (string, error) {
	table, ok := kindTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", entities.ErrUnknownKind, kind)
	}
	return table, nil
}

func checkColumns(kind entities.EntityKind, attrs entities.Attrs) error {
	for _, k := range attrs.Keys() {
		if !entities.HasColumn(kind, k) {
			return fmt.Errorf("%w: %s.%s", entities.ErrUnknownAttribute, kind, k)
		}
	}
	return nil
}

func quote(column string) string {
	return `"` + column + `"`
}

// bindValue converts handles to plain strings so every driver accepts them.
func bindValue(v any) any {
	if h, ok := v.(entities.Handle); ok {
		return string(h)
	}
	return v
}

// FindByAttributes returns the id of a row of kind whose columns equal attrs.
func (s *Store) FindByAttributes(ctx context.Context, kind entities.EntityKind, attrs entities.Attrs) (entities.Handle, bool, error) {
	table, err := TableFor(kind)
	if err != nil {
		return "", false, err
	}
	if err := checkColumns(kind, attrs); err != nil {
		return "", false, err
	}

	keys := attrs.Keys()
	where := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		where = append(where, quote(k)+" = ?")
		args = append(args, bindValue(attrs[k]))
	}

	query := fmt.Sprintf("SELECT id FROM %s", table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " LIMIT 1"

	var id string
	err = s.db.QueryRowxContext(ctx, s.db.Rebind(query), args...).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to find %s: %w", kind, err)
	}
	return entities.Handle(id), true, nil
}

// Create inserts a row of kind and returns its new id.
func (s *Store) Create(ctx context.Context, kind entities.EntityKind, attrs entities.Attrs) (entities.Handle, error) {
	table, err := TableFor(kind)
	if err != nil {
		return "", err
	}
	if err := checkColumns(kind, attrs); err != nil {
		return "", err
	}

	id := entities.NewHandle()
	keys := attrs.Keys()
	columns := []string{"id"}
	marks := []string{"?"}
	args := []interface{}{string(id)}
	for _, k := range keys {
		columns = append(columns, quote(k))
		marks = append(marks, "?")
		args = append(args, bindValue(attrs[k]))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(marks, ", "))

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", kind, classify(err))
	}
	return id, nil
}

// Destroy deletes one row of kind. Missing rows yield ErrNotFound and rows
// still referenced by a foreign key yield ErrReferenced.
func (s *Store) Destroy(ctx context.Context, kind entities.EntityKind, handle entities.Handle) error {
	table, err := TableFor(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), string(handle))
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, handle, classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", entities.ErrNotFound, kind, handle)
	}
	return nil
}
