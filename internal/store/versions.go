package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"sc-provisioner/internal/entities"
)

type versionRow struct {
	ID         string    `db:"id"`
	PayGradeID string    `db:"pay_grade_id"`
	Effective  time.Time `db:"effective"`
}

type amountRow struct {
	LineItemID string          `db:"line_item_id"`
	Amount     decimal.Decimal `db:"amount"`
}

// LatestPriceVersion returns the version of payGradeID with the greatest
// effective date, including its amounts.
func (s *Store) LatestPriceVersion(ctx context.Context, payGradeID entities.Handle) (*entities.PriceVersion, error) {
	query := `SELECT id, pay_grade_id, effective
	         FROM price_versions
	         WHERE pay_grade_id = ?
	         ORDER BY effective DESC
	         LIMIT 1`

	var row versionRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(query), string(payGradeID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: price version for pay grade %s", entities.ErrNotFound, payGradeID)
		}
		return nil, fmt.Errorf("failed to get latest price version: %w", err)
	}

	amounts, err := loadAmounts(ctx, s.db, row.ID)
	if err != nil {
		return nil, err
	}

	return &entities.PriceVersion{
		ID:         entities.Handle(row.ID),
		PayGradeID: entities.Handle(row.PayGradeID),
		Effective:  normalizeDate(row.Effective),
		Amounts:    amounts,
	}, nil
}

// DeriveNewVersion copies the amounts of prior into a new version effective on
// effective, then overlays amounts. Everything happens in one transaction.
func (s *Store) DeriveNewVersion(ctx context.Context, prior entities.Handle, effective time.Time, amounts map[entities.Handle]decimal.Decimal) (entities.Handle, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var payGradeID string
	err = tx.GetContext(ctx, &payGradeID, tx.Rebind(`SELECT pay_grade_id FROM price_versions WHERE id = ?`), string(prior))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: price version %s", entities.ErrNotFound, prior)
		}
		return "", fmt.Errorf("failed to get price version %s: %w", prior, err)
	}

	merged, err := loadAmounts(ctx, tx, string(prior))
	if err != nil {
		return "", err
	}
	for item, amount := range amounts {
		merged[item] = amount
	}

	id := entities.NewHandle()
	_, err = tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO price_versions (id, pay_grade_id, effective) VALUES (?, ?, ?)`),
		string(id), payGradeID, normalizeDate(effective))
	if err != nil {
		return "", fmt.Errorf("failed to insert price version: %w", classify(err))
	}

	items := make([]string, 0, len(merged))
	for item := range merged {
		items = append(items, string(item))
	}
	sort.Strings(items)

	insert := tx.Rebind(`INSERT INTO price_version_amounts (price_version_id, line_item_id, amount) VALUES (?, ?, ?)`)
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, insert, string(id), item, merged[entities.Handle(item)]); err != nil {
			return "", fmt.Errorf("failed to insert amount for line item %s: %w", item, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func loadAmounts(ctx context.Context, q queryer, versionID string) (map[entities.Handle]decimal.Decimal, error) {
	var rows []amountRow
	query := q.Rebind(`SELECT line_item_id, amount FROM price_version_amounts WHERE price_version_id = ?`)
	if err := sqlx.SelectContext(ctx, q, &rows, query, versionID); err != nil {
		return nil, fmt.Errorf("failed to load amounts for price version %s: %w", versionID, err)
	}

	amounts := make(map[entities.Handle]decimal.Decimal, len(rows))
	for _, r := range rows {
		amounts[entities.Handle(r.LineItemID)] = r.Amount
	}
	return amounts, nil
}

// normalizeDate drops the clock and zone so dates compare equal across drivers.
func normalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
