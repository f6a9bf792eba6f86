// Package sync records broker activity in the local journal database.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"nbapi/internal/broker"
	"nbapi/internal/broker/nbdb"
	apperrors "nbapi/internal/errors"
	"nbapi/internal/models"
	"nbapi/internal/repository"
)

const syncTypePositions = "positions"

// Broker is the subset of the NBDB client the service drives.
type Broker interface {
	GetPositions(ctx context.Context, s *nbdb.Session, accountID string) ([]broker.Position, error)
	Validate(ctx context.Context, s *nbdb.Session, accountID string, intent nbdb.OrderIntent, phone string) (*nbdb.ValidatedOrder, error)
	Submit(ctx context.Context, s *nbdb.Session, order *nbdb.ValidatedOrder) (string, error)
	CancelOrder(ctx context.Context, s *nbdb.Session, orderID string) error
}

// Service orchestrates broker calls and their journaling.
type Service struct {
	broker       Broker
	journalRepo  *repository.OrderJournalRepository
	snapshotRepo *repository.PositionSnapshotRepository
	historyRepo  *repository.SyncHistoryRepository
	log          logrus.FieldLogger
	now          func() time.Time
}

// NewService creates a new sync service.
func NewService(
	b Broker,
	journalRepo *repository.OrderJournalRepository,
	snapshotRepo *repository.PositionSnapshotRepository,
	historyRepo *repository.SyncHistoryRepository,
	log logrus.FieldLogger,
) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		broker:       b,
		journalRepo:  journalRepo,
		snapshotRepo: snapshotRepo,
		historyRepo:  historyRepo,
		log:          log.WithField("component", "sync"),
		now:          time.Now,
	}
}

// SyncResult contains the result of a position snapshot.
type SyncResult struct {
	SyncID          int64             `json:"sync_id"`
	AccountID       string            `json:"account_id"`
	PositionsSynced int               `json:"positions_synced"`
	Positions       []broker.Position `json:"positions"`
}

// SnapshotPositions fetches the account's positions and stores them under a
// new sync history entry. An account without positions is a successful,
// empty snapshot.
func (s *Service) SnapshotPositions(ctx context.Context, session *nbdb.Session, accountID string) (*SyncResult, error) {
	historyID, err := s.historyRepo.Start(accountID, syncTypePositions)
	if err != nil {
		return nil, fmt.Errorf("starting sync history: %w", err)
	}

	positions, err := s.broker.GetPositions(ctx, session, accountID)
	if err != nil && !errors.Is(err, apperrors.ErrNoPositions) {
		s.failSync(historyID, err)
		return nil, err
	}

	if err := s.snapshotRepo.InsertBatch(historyID, accountID, positions); err != nil {
		s.failSync(historyID, err)
		return nil, fmt.Errorf("storing positions: %w", err)
	}
	if err := s.historyRepo.Complete(historyID, len(positions)); err != nil {
		return nil, fmt.Errorf("completing sync history: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"account":   accountID,
		"sync_id":   historyID,
		"positions": len(positions),
	}).Info("positions snapshot stored")

	if positions == nil {
		positions = []broker.Position{}
	}
	return &SyncResult{
		SyncID:          historyID,
		AccountID:       accountID,
		PositionsSynced: len(positions),
		Positions:       positions,
	}, nil
}

// PlaceOrder validates and submits an order, journaling the outcome. Orders
// the broker refuses are journaled as rejected; input errors and transport
// failures are not journaled.
func (s *Service) PlaceOrder(ctx context.Context, session *nbdb.Session, accountID string, intent nbdb.OrderIntent, phone string) (*models.OrderJournalEntry, error) {
	entry := &models.OrderJournalEntry{
		AccountID: accountID,
		Symbol:    strings.ToUpper(strings.TrimSpace(intent.Symbol)),
		Currency:  strings.ToUpper(strings.TrimSpace(intent.Currency)),
		Side:      strings.ToUpper(strings.TrimSpace(string(intent.Side))),
		Quantity:  intent.Quantity,
		PriceType: intent.PriceType(),
		Expiry:    intent.ExpiryMode(),
		CreatedAt: s.now().UTC(),
	}
	if intent.LimitPrice.IsSome() {
		price := intent.LimitPrice.Unwrap()
		entry.LimitPrice = &price
	}

	validated, err := s.broker.Validate(ctx, session, accountID, intent, phone)
	if errors.Is(err, apperrors.ErrOrderRejected) {
		entry.Status = models.OrderStatusRejected
		entry.ErrorMessage = err.Error()
		s.record(entry)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	orderID, err := s.broker.Submit(ctx, session, validated)
	if err != nil {
		return nil, err
	}

	entry.OrderID = orderID
	entry.Status = models.OrderStatusSubmitted
	entry.Warnings = validated.Warnings
	var expiryDate *string
	if err := validated.Field("expiryDt", &expiryDate); err == nil && expiryDate != nil {
		entry.ExpiryDate = *expiryDate
	}

	s.record(entry)
	return entry, nil
}

// CancelOrder cancels the order at the broker and marks its journal entry.
func (s *Service) CancelOrder(ctx context.Context, session *nbdb.Session, orderID string) error {
	if err := s.broker.CancelOrder(ctx, session, orderID); err != nil {
		return err
	}

	log := s.log.WithField("order_id", orderID)

	entry, err := s.journalRepo.GetByOrderID(orderID)
	if err != nil {
		log.WithError(err).Error("reading journal entry")
		return nil
	}
	if entry == nil || !entry.IsOpen() {
		log.Debug("cancelled order has no open journal entry")
		return nil
	}

	if _, err := s.journalRepo.MarkCancelled(orderID, s.now()); err != nil {
		log.WithError(err).Error("marking journal entry cancelled")
	}
	return nil
}

// record journals an entry. The broker call has already happened at this
// point, so a storage failure is logged rather than returned.
func (s *Service) record(entry *models.OrderJournalEntry) {
	if err := s.journalRepo.Record(entry); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"order_id": entry.OrderID,
			"symbol":   entry.Symbol,
		}).Error("journaling order")
	}
}

// failSync marks a sync as failed.
func (s *Service) failSync(historyID int64, cause error) {
	if err := s.historyRepo.Fail(historyID, cause.Error()); err != nil {
		s.log.WithError(err).WithField("sync_id", historyID).Warn("recording sync failure")
	}
}
