package repository

import (
	"database/sql"
	"errors"
	"time"

	"nbapi/internal/database"
	"nbapi/internal/models"
)

// SyncHistoryRepository handles sync history database operations.
type SyncHistoryRepository struct {
	db *database.DB
}

// NewSyncHistoryRepository creates a new SyncHistoryRepository.
func NewSyncHistoryRepository(db *database.DB) *SyncHistoryRepository {
	return &SyncHistoryRepository{db: db}
}

const historyColumns = `id, account_id, sync_type, status, positions_synced, error_message, started_at, completed_at, duration_ms`

// Start creates a new sync history entry with status "started" and returns its ID.
func (r *SyncHistoryRepository) Start(accountID, syncType string) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO sync_history (account_id, sync_type, status, started_at)
		VALUES (?, ?, ?, ?)
	`, accountID, syncType, models.SyncStatusStarted, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Complete marks a sync as successful.
func (r *SyncHistoryRepository) Complete(id int64, positionsSynced int) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(`
		UPDATE sync_history
		SET status = ?, positions_synced = ?, completed_at = ?,
		    duration_ms = CAST((julianday(?) - julianday(started_at)) * 86400000 AS INTEGER)
		WHERE id = ?
	`, models.SyncStatusSuccess, positionsSynced, now, now, id)
	return err
}

// Fail marks a sync as failed with an error message.
func (r *SyncHistoryRepository) Fail(id int64, errorMsg string) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(`
		UPDATE sync_history
		SET status = ?, error_message = ?, completed_at = ?,
		    duration_ms = CAST((julianday(?) - julianday(started_at)) * 86400000 AS INTEGER)
		WHERE id = ?
	`, models.SyncStatusError, errorMsg, now, now, id)
	return err
}

// GetByID retrieves a sync history entry by ID.
// Returns nil, nil when no entry exists.
func (r *SyncHistoryRepository) GetByID(id int64) (*models.SyncHistory, error) {
	row := r.db.QueryRow(`SELECT `+historyColumns+` FROM sync_history WHERE id = ?`, id)
	return r.scanOne(row)
}

// GetLatest retrieves the most recent sync history for an account.
// Returns nil, nil when the account was never synced.
func (r *SyncHistoryRepository) GetLatest(accountID string) (*models.SyncHistory, error) {
	row := r.db.QueryRow(`
		SELECT `+historyColumns+`
		FROM sync_history
		WHERE account_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`, accountID)
	return r.scanOne(row)
}

// GetByAccount retrieves the account's sync history, most recent first.
func (r *SyncHistoryRepository) GetByAccount(accountID string, limit int) ([]*models.SyncHistory, error) {
	rows, err := r.db.Query(`
		SELECT `+historyColumns+`
		FROM sync_history
		WHERE account_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	histories := make([]*models.SyncHistory, 0)
	for rows.Next() {
		history, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		histories = append(histories, history)
	}
	return histories, rows.Err()
}

// DeleteOlderThan removes sync history entries, and their snapshots, older than the given time.
func (r *SyncHistoryRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sync_history WHERE started_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *SyncHistoryRepository) scanOne(row *sql.Row) (*models.SyncHistory, error) {
	history, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return history, err
}

func scanHistory(row rowScanner) (*models.SyncHistory, error) {
	history := &models.SyncHistory{}
	var errorMsg sql.NullString
	var completedAt sql.NullTime
	var durationMs sql.NullInt64

	err := row.Scan(
		&history.ID,
		&history.AccountID,
		&history.SyncType,
		&history.Status,
		&history.PositionsSynced,
		&errorMsg,
		&history.StartedAt,
		&completedAt,
		&durationMs,
	)
	if err != nil {
		return nil, err
	}

	if errorMsg.Valid {
		history.ErrorMessage = errorMsg.String
	}
	if completedAt.Valid {
		history.CompletedAt = &completedAt.Time
	}
	if durationMs.Valid {
		history.DurationMs = durationMs.Int64
	}

	return history, nil
}
