package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forex-journal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TradeRecord is the row layout of a trade in the local database.
type TradeRecord struct {
	ID            string `gorm:"primaryKey"`
	Owner         string `gorm:"index;not null"`
	Date          string `gorm:"index;not null"`
	Market        string `gorm:"not null"`
	Setup         string `gorm:"not null"`
	ProfitLoss    float64
	RulesFollowed bool
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName keeps the table name aligned with the hosted schema.
func (TradeRecord) TableName() string { return "trades" }

func recordFromTrade(owner string, t models.Trade) TradeRecord {
	return TradeRecord{
		ID:            t.ID,
		Owner:         owner,
		Date:          t.Date,
		Market:        string(t.Market),
		Setup:         string(t.Setup),
		ProfitLoss:    t.ProfitLoss,
		RulesFollowed: t.RulesFollowed,
		Notes:         t.Notes,
	}
}

func (r TradeRecord) trade() models.Trade {
	return models.Trade{
		ID:            r.ID,
		Date:          r.Date,
		Market:        models.Market(r.Market),
		Setup:         models.Setup(r.Setup),
		ProfitLoss:    r.ProfitLoss,
		RulesFollowed: r.RulesFollowed,
		Notes:         r.Notes,
		Owner:         r.Owner,
	}
}

// TradeStore keeps trades in the local database, scoped by owner.
type TradeStore struct {
	db *gorm.DB
}

// NewTradeStore wraps an opened database.
func NewTradeStore(db *gorm.DB) *TradeStore {
	return &TradeStore{db: db}
}

// ListTrades returns the owner's trades, most recent date first.
func (s *TradeStore) ListTrades(ctx context.Context, owner string) ([]models.Trade, error) {
	var records []TradeRecord
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("date desc").Order("created_at desc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}

	trades := make([]models.Trade, len(records))
	for i, r := range records {
		trades[i] = r.trade()
	}
	return trades, nil
}

// InsertTrade stores t for owner. An empty id is replaced with a new one.
func (s *TradeStore) InsertTrade(ctx context.Context, owner string, t models.Trade) (models.Trade, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	rec := recordFromTrade(owner, t)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return models.Trade{}, fmt.Errorf("failed to insert trade: %w", err)
	}
	return rec.trade(), nil
}

// UpdateTrade applies patch to one of owner's trades.
func (s *TradeStore) UpdateTrade(ctx context.Context, owner, id string, patch models.TradePatch) (models.Trade, error) {
	var updated models.Trade
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec TradeRecord
		if err := tx.Where("id = ? AND owner = ?", id, owner).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrTradeNotFound
			}
			return err
		}

		merged, err := patch.Apply(rec.trade())
		if err != nil {
			return err
		}
		next := recordFromTrade(owner, merged)
		next.CreatedAt = rec.CreatedAt
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		updated = next.trade()
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrTradeNotFound) {
			return models.Trade{}, err
		}
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return models.Trade{}, err
		}
		return models.Trade{}, fmt.Errorf("failed to update trade: %w", err)
	}
	return updated, nil
}

// DeleteTrade removes one of owner's trades.
func (s *TradeStore) DeleteTrade(ctx context.Context, owner, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND owner = ?", id, owner).Delete(&TradeRecord{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete trade: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrTradeNotFound
	}
	return nil
}
