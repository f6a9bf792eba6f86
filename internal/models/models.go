// Package models contains the records kept in the local journal database.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Journal entry statuses.
const (
	OrderStatusSubmitted = "submitted"
	OrderStatusRejected  = "rejected"
	OrderStatusCancelled = "cancelled"
)

// Sync statuses.
const (
	SyncStatusStarted = "started"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// OrderJournalEntry records one order placed (or refused) through this client.
type OrderJournalEntry struct {
	ID           string           `json:"id"`
	OrderID      string           `json:"order_id,omitempty"` // empty when the broker refused the order
	AccountID    string           `json:"account_id"`
	Symbol       string           `json:"symbol"`
	Currency     string           `json:"currency"`
	Side         string           `json:"side"`
	Quantity     int64            `json:"quantity"`
	PriceType    string           `json:"price_type"` // "MARKET" or "SPECIFIC"
	LimitPrice   *decimal.Decimal `json:"limit_price,omitempty"`
	Expiry       string           `json:"expiry"` // "DAY" or "DATE"
	ExpiryDate   string           `json:"expiry_date,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
	Status       string           `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	CancelledAt  *time.Time       `json:"cancelled_at,omitempty"`
}

// IsOpen reports whether the entry was submitted and not cancelled locally.
func (e *OrderJournalEntry) IsOpen() bool {
	return e.Status == OrderStatusSubmitted
}

// PositionSnapshot is one position captured by a sync run.
type PositionSnapshot struct {
	ID            int64           `json:"id"`
	SyncID        int64           `json:"sync_id"`
	AccountID     string          `json:"account_id"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	Cost          decimal.Decimal `json:"cost"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_per"`
	MarketValue   decimal.Decimal `json:"market_val"`
	CapturedAt    time.Time       `json:"captured_at"`
}

// SyncHistory records a position snapshot run for auditing.
type SyncHistory struct {
	ID              int64      `json:"id"`
	AccountID       string     `json:"account_id"`
	SyncType        string     `json:"sync_type"` // "positions"
	Status          string     `json:"status"`    // "started", "success", "error"
	PositionsSynced int        `json:"positions_synced"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationMs      int64      `json:"duration_ms,omitempty"`
}
