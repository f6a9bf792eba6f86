package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"nbapi/internal/database"
	"nbapi/internal/models"
)

// OrderJournalRepository handles order journal database operations.
type OrderJournalRepository struct {
	db *database.DB
}

// NewOrderJournalRepository creates a new OrderJournalRepository.
func NewOrderJournalRepository(db *database.DB) *OrderJournalRepository {
	return &OrderJournalRepository{db: db}
}

const journalColumns = `id, order_id, account_id, symbol, currency, side, quantity, price_type, limit_price,
	expiry, expiry_date, warnings, status, error_message, created_at, cancelled_at`

// Record inserts a journal entry. A missing ID is filled with a new UUID and
// a zero CreatedAt with the current time.
func (r *OrderJournalRepository) Record(entry *models.OrderJournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var warnings sql.NullString
	if entry.Warnings != nil {
		data, err := json.Marshal(entry.Warnings)
		if err != nil {
			return err
		}
		warnings = sql.NullString{String: string(data), Valid: true}
	}

	var limitPrice sql.NullString
	if entry.LimitPrice != nil {
		limitPrice = sql.NullString{String: entry.LimitPrice.String(), Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO order_journal (`+journalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, nullString(entry.OrderID), entry.AccountID, entry.Symbol, entry.Currency, entry.Side,
		entry.Quantity, entry.PriceType, limitPrice, entry.Expiry, nullString(entry.ExpiryDate),
		warnings, entry.Status, nullString(entry.ErrorMessage), entry.CreatedAt, entry.CancelledAt)
	return err
}

// MarkCancelled flags the submitted entry for orderID as cancelled. It reports
// false when no open entry exists, e.g. for orders placed outside this client.
func (r *OrderJournalRepository) MarkCancelled(orderID string, at time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE order_journal
		SET status = ?, cancelled_at = ?
		WHERE order_id = ? AND status = ?
	`, models.OrderStatusCancelled, at.UTC(), orderID, models.OrderStatusSubmitted)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// GetByOrderID retrieves the entry for a broker order id.
// Returns nil, nil when no entry exists.
func (r *OrderJournalRepository) GetByOrderID(orderID string) (*models.OrderJournalEntry, error) {
	row := r.db.QueryRow(`SELECT `+journalColumns+` FROM order_journal WHERE order_id = ?`, orderID)
	entry, err := scanJournalEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

// ListByAccount returns the account's entries, most recent first.
func (r *OrderJournalRepository) ListByAccount(accountID string, p Pagination) (PaginatedResult[*models.OrderJournalEntry], error) {
	var total int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM order_journal WHERE account_id = ?`, accountID).Scan(&total); err != nil {
		return PaginatedResult[*models.OrderJournalEntry]{}, err
	}

	rows, err := r.db.Query(`
		SELECT `+journalColumns+`
		FROM order_journal
		WHERE account_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, accountID, p.Limit, p.Offset)
	if err != nil {
		return PaginatedResult[*models.OrderJournalEntry]{}, err
	}
	defer rows.Close()

	entries := make([]*models.OrderJournalEntry, 0)
	for rows.Next() {
		entry, err := scanJournalEntry(rows)
		if err != nil {
			return PaginatedResult[*models.OrderJournalEntry]{}, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return PaginatedResult[*models.OrderJournalEntry]{}, err
	}

	return NewPaginatedResult(entries, total, p), nil
}

func scanJournalEntry(row rowScanner) (*models.OrderJournalEntry, error) {
	entry := &models.OrderJournalEntry{}
	var orderID, limitPrice, expiryDate, warnings, errorMsg sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&entry.ID,
		&orderID,
		&entry.AccountID,
		&entry.Symbol,
		&entry.Currency,
		&entry.Side,
		&entry.Quantity,
		&entry.PriceType,
		&limitPrice,
		&entry.Expiry,
		&expiryDate,
		&warnings,
		&entry.Status,
		&errorMsg,
		&entry.CreatedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	entry.OrderID = orderID.String
	entry.ExpiryDate = expiryDate.String
	entry.ErrorMessage = errorMsg.String
	if limitPrice.Valid {
		price, err := decimal.NewFromString(limitPrice.String)
		if err != nil {
			return nil, err
		}
		entry.LimitPrice = &price
	}
	if warnings.Valid {
		if err := json.Unmarshal([]byte(warnings.String), &entry.Warnings); err != nil {
			return nil, err
		}
	}
	if cancelledAt.Valid {
		entry.CancelledAt = &cancelledAt.Time
	}

	return entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
