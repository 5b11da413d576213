package backend

import (
	"context"
	"fmt"

	"forex-journal/internal/models"
	"go.uber.org/zap"
)

const tradesPath = "/rest/v1/trades"

// tradeRow is a trade as stored in the hosted trades table. The id is
// left to the database when empty.
type tradeRow struct {
	ID            string        `json:"id,omitempty"`
	Date          string        `json:"date"`
	Market        models.Market `json:"market"`
	Setup         models.Setup  `json:"setup"`
	ProfitLoss    float64       `json:"profit_loss"`
	RulesFollowed bool          `json:"rules_followed"`
	Notes         string        `json:"notes"`
	UserID        string        `json:"user_id"`
}

func (r tradeRow) trade() models.Trade {
	return models.Trade{
		ID:            r.ID,
		Date:          r.Date,
		Market:        r.Market,
		Setup:         r.Setup,
		ProfitLoss:    r.ProfitLoss,
		RulesFollowed: r.RulesFollowed,
		Notes:         r.Notes,
		Owner:         r.UserID,
	}
}

func eq(v string) string { return "eq." + v }

// ListTrades returns the owner's trades, most recent date first.
func (c *Client) ListTrades(ctx context.Context, owner string) ([]models.Trade, error) {
	var rows []tradeRow
	req := c.request(ctx).
		SetQueryParams(map[string]string{
			"select":  "*",
			"user_id": eq(owner),
			"order":   "date.desc",
		}).
		SetResult(&rows)

	if _, err := c.doRequest(ctx, "GET", tradesPath, req); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}

	trades := make([]models.Trade, len(rows))
	for i, r := range rows {
		trades[i] = r.trade()
	}
	return trades, nil
}

// ensureUser makes sure the owner has a row in the users table before a
// trade references it.
func (c *Client) ensureUser(ctx context.Context, owner string) error {
	body := map[string]string{"user_id": owner}
	if info, ok := authFrom(ctx); ok && info.user.Email != "" {
		body["user_email"] = info.user.Email
	}
	req := c.request(ctx).SetBody(body)
	if _, err := c.doRequest(ctx, "POST", "/rest/v1/rpc/ensure_user_exists", req); err != nil {
		return fmt.Errorf("failed to ensure user exists: %w", err)
	}
	return nil
}

// InsertTrade stores t for owner and returns the row as saved.
func (c *Client) InsertTrade(ctx context.Context, owner string, t models.Trade) (models.Trade, error) {
	if err := c.ensureUser(ctx, owner); err != nil {
		return models.Trade{}, err
	}

	row := tradeRow{
		ID:            t.ID,
		Date:          t.Date,
		Market:        t.Market,
		Setup:         t.Setup,
		ProfitLoss:    t.ProfitLoss,
		RulesFollowed: t.RulesFollowed,
		Notes:         t.Notes,
		UserID:        owner,
	}
	var saved []tradeRow
	req := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody([]tradeRow{row}).
		SetResult(&saved)

	if _, err := c.doRequest(ctx, "POST", tradesPath, req); err != nil {
		c.logger.Error("Failed to add trade", zap.Error(err), zap.String("owner", owner))
		return models.Trade{}, fmt.Errorf("failed to insert trade: %w", err)
	}
	if len(saved) == 0 {
		return models.Trade{}, fmt.Errorf("failed to insert trade: no data returned from insert")
	}
	return saved[0].trade(), nil
}

// UpdateTrade applies patch to one of owner's trades.
func (c *Client) UpdateTrade(ctx context.Context, owner, id string, patch models.TradePatch) (models.Trade, error) {
	var saved []tradeRow
	req := c.request(ctx).
		SetQueryParams(map[string]string{"id": eq(id), "user_id": eq(owner)}).
		SetHeader("Prefer", "return=representation").
		SetBody(patch).
		SetResult(&saved)

	if _, err := c.doRequest(ctx, "PATCH", tradesPath, req); err != nil {
		return models.Trade{}, fmt.Errorf("failed to update trade: %w", err)
	}
	if len(saved) == 0 {
		return models.Trade{}, models.ErrTradeNotFound
	}
	return saved[0].trade(), nil
}

// DeleteTrade removes one of owner's trades.
func (c *Client) DeleteTrade(ctx context.Context, owner, id string) error {
	var deleted []tradeRow
	req := c.request(ctx).
		SetQueryParams(map[string]string{"id": eq(id), "user_id": eq(owner)}).
		SetHeader("Prefer", "return=representation").
		SetResult(&deleted)

	if _, err := c.doRequest(ctx, "DELETE", tradesPath, req); err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	if len(deleted) == 0 {
		return models.ErrTradeNotFound
	}
	return nil
}
