package repository

import (
	"database/sql"
	"time"

	"nbapi/internal/broker"
	"nbapi/internal/database"
	"nbapi/internal/models"
)

// PositionSnapshotRepository handles position snapshot database operations.
type PositionSnapshotRepository struct {
	db *database.DB
}

// NewPositionSnapshotRepository creates a new PositionSnapshotRepository.
func NewPositionSnapshotRepository(db *database.DB) *PositionSnapshotRepository {
	return &PositionSnapshotRepository{db: db}
}

// InsertBatch stores the positions captured by one sync run in a single transaction.
func (r *PositionSnapshotRepository) InsertBatch(syncID int64, accountID string, positions []broker.Position) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO position_snapshots (sync_id, account_id, symbol, quantity, cost, change, change_percent, market_value, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range positions {
		_, err := stmt.Exec(syncID, accountID, p.Symbol,
			p.Quantity.String(), p.Cost.String(), p.Change.String(), p.ChangePercent.String(), p.MarketValue.String(),
			now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Latest returns the positions of the account's most recent successful sync,
// in the order they were captured. An empty slice means the account had no
// positions then, or was never synced.
func (r *PositionSnapshotRepository) Latest(accountID string) ([]*models.PositionSnapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, sync_id, account_id, symbol, quantity, cost, change, change_percent, market_value, captured_at
		FROM position_snapshots
		WHERE sync_id = (
			SELECT id FROM sync_history
			WHERE account_id = ? AND sync_type = 'positions' AND status = ?
			ORDER BY started_at DESC, id DESC
			LIMIT 1
		)
		ORDER BY id
	`, accountID, models.SyncStatusSuccess)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetBySyncID returns the positions captured by one sync run.
func (r *PositionSnapshotRepository) GetBySyncID(syncID int64) ([]*models.PositionSnapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, sync_id, account_id, symbol, quantity, cost, change, change_percent, market_value, captured_at
		FROM position_snapshots
		WHERE sync_id = ?
		ORDER BY id
	`, syncID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]*models.PositionSnapshot, error) {
	snapshots := make([]*models.PositionSnapshot, 0)

	for rows.Next() {
		s := &models.PositionSnapshot{}
		err := rows.Scan(
			&s.ID,
			&s.SyncID,
			&s.AccountID,
			&s.Symbol,
			&s.Quantity,
			&s.Cost,
			&s.Change,
			&s.ChangePercent,
			&s.MarketValue,
			&s.CapturedAt,
		)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}
