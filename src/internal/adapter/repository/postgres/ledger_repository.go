package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Record(ctx context.Context, entry domain.LedgerEntry) error {
	logger.Info("ledger repository record", logger.Fields{
		"sourceId": entry.SourceID,
		"targetId": entry.TargetID,
		"status":   entry.Status,
	})

	const query = `
INSERT INTO ledger_entries (
	source_id,
	target_id,
	amount,
	status,
	synced_to_external_ledger,
	created_at
) VALUES (
	$1, $2, $3, $4, $5, $6
)`

	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(
		ctx,
		query,
		entry.SourceID,
		entry.TargetID,
		entry.Amount.StringFixed(2),
		entry.Status,
		entry.SyncedToExternalLedger,
		timestamp,
	); err != nil {
		if isUniqueViolation(err) {
			logger.Info("ledger repository duplicate source id suppressed", logger.Fields{
				"sourceId": entry.SourceID,
			})
			return nil
		}
		logger.Error("ledger repository record failed", err, logger.Fields{
			"sourceId": entry.SourceID,
		})
		return fmt.Errorf("record ledger entry: %w", err)
	}

	return nil
}

func (r *LedgerRepository) Find(ctx context.Context, sourceID string) (domain.LedgerEntry, error) {
	const query = `
SELECT source_id, target_id, amount, status, synced_to_external_ledger, created_at
FROM ledger_entries
WHERE source_id = $1`

	var (
		entry    domain.LedgerEntry
		targetID sql.NullString
		amount   string
	)
	err := r.db.QueryRowContext(ctx, query, sourceID).Scan(
		&entry.SourceID,
		&targetID,
		&amount,
		&entry.Status,
		&entry.SyncedToExternalLedger,
		&entry.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LedgerEntry{}, domain.ErrRecordNotFound
	}
	if err != nil {
		logger.Error("ledger repository find failed", err, logger.Fields{
			"sourceId": sourceID,
		})
		return domain.LedgerEntry{}, fmt.Errorf("find ledger entry: %w", err)
	}

	if targetID.Valid {
		value := targetID.String
		entry.TargetID = &value
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("parse ledger amount for %q: %w", sourceID, err)
	}
	entry.Amount = parsed

	return entry, nil
}

func (r *LedgerRepository) Load(ctx context.Context) ([]domain.LedgerEntry, error) {
	const query = `
SELECT source_id, target_id, amount, status, synced_to_external_ledger, created_at
FROM ledger_entries
ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("ledger repository load failed", err, nil)
		return nil, fmt.Errorf("load ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			entry    domain.LedgerEntry
			targetID sql.NullString
			amount   string
		)
		if err := rows.Scan(
			&entry.SourceID,
			&targetID,
			&amount,
			&entry.Status,
			&entry.SyncedToExternalLedger,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}

		if targetID.Valid {
			value := targetID.String
			entry.TargetID = &value
		}

		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse ledger amount for %q: %w", entry.SourceID, err)
		}
		entry.Amount = parsed

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}

func (r *LedgerRepository) MarkSynced(ctx context.Context, sourceID string) error {
	const query = `
UPDATE ledger_entries
SET synced_to_external_ledger = TRUE
WHERE source_id = $1`

	if _, err := r.db.ExecContext(ctx, query, sourceID); err != nil {
		logger.Error("ledger repository mark synced failed", err, logger.Fields{
			"sourceId": sourceID,
		})
		return fmt.Errorf("mark ledger entry synced: %w", err)
	}

	return nil
}

func (r *LedgerRepository) UpdateStatus(ctx context.Context, sourceID string, status domain.SettlementStatus) error {
	logger.Info("ledger repository update status", logger.Fields{
		"sourceId": sourceID,
		"status":   status,
	})

	const query = `
UPDATE ledger_entries
SET status = $2
WHERE source_id = $1`

	result, err := r.db.ExecContext(ctx, query, sourceID, status)
	if err != nil {
		logger.Error("ledger repository update status failed", err, logger.Fields{
			"sourceId": sourceID,
		})
		return fmt.Errorf("update ledger status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	if affected == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == "23505"
	}
	return false
}
