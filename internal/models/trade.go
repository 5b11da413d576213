package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DateLayout is the ISO 8601 calendar date format trades are stored with.
const DateLayout = "2006-01-02"

// Market is an instrument a trade can be logged against.
type Market string

const (
	MarketXAUUSD Market = "XAUUSD"
	MarketUSDJPY Market = "USDJPY"
)

// Setup is the strategy label attached to a trade.
type Setup string

const (
	SetupSA1  Setup = "SA1"
	SetupFibs Setup = "Fibs"
)

var (
	ErrUnknownMarket = errors.New("unknown market")
	ErrUnknownSetup  = errors.New("unknown setup")

	// ErrTradeNotFound is returned by stores when a trade does not exist
	// or belongs to another owner.
	ErrTradeNotFound = errors.New("trade not found")
)

// Markets lists every supported market in display order.
func Markets() []Market { return []Market{MarketXAUUSD, MarketUSDJPY} }

// Setups lists every supported setup in display order.
func Setups() []Setup { return []Setup{SetupSA1, SetupFibs} }

// ParseMarket matches s exactly against the known markets.
func ParseMarket(s string) (Market, error) {
	for _, m := range Markets() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMarket, s)
}

// ParseSetup matches s exactly against the known setups.
func ParseSetup(s string) (Setup, error) {
	for _, st := range Setups() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSetup, s)
}

// Trade is a single journal entry.
type Trade struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"`
	Market        Market  `json:"market"`
	Setup         Setup   `json:"setup"`
	ProfitLoss    float64 `json:"profit_loss"`
	RulesFollowed bool    `json:"rules_followed"`
	Notes         string  `json:"notes,omitempty"`
	Owner         string  `json:"user_id,omitempty"`
}

// ValidationError reports a trade field that violates the data model.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the user-editable fields. ID and Owner are assigned
// elsewhere and are not inspected.
func (t Trade) Validate() error {
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", t.Date)}
	}
	if _, err := ParseMarket(string(t.Market)); err != nil {
		return &ValidationError{Field: "market", Reason: err.Error()}
	}
	if _, err := ParseSetup(string(t.Setup)); err != nil {
		return &ValidationError{Field: "setup", Reason: err.Error()}
	}
	if math.IsNaN(t.ProfitLoss) || math.IsInf(t.ProfitLoss, 0) {
		return &ValidationError{Field: "profit_loss", Reason: "must be a finite number"}
	}
	return nil
}

// TradePatch is a partial replacement of a trade's editable fields.
// Nil fields are left untouched.
type TradePatch struct {
	Date          *string  `json:"date,omitempty"`
	Market        *Market  `json:"market,omitempty"`
	Setup         *Setup   `json:"setup,omitempty"`
	ProfitLoss    *float64 `json:"profit_loss,omitempty"`
	RulesFollowed *bool    `json:"rules_followed,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
}

// Validate checks only the fields the patch sets.
func (p TradePatch) Validate() error {
	probe := Trade{Date: "2000-01-01", Market: MarketXAUUSD, Setup: SetupSA1}
	_, err := p.Apply(probe)
	return err
}

// Empty reports whether the patch changes nothing.
func (p TradePatch) Empty() bool {
	return p.Date == nil && p.Market == nil && p.Setup == nil &&
		p.ProfitLoss == nil && p.RulesFollowed == nil && p.Notes == nil
}

// Apply returns t with the patch merged in and validated.
func (p TradePatch) Apply(t Trade) (Trade, error) {
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Market != nil {
		t.Market = *p.Market
	}
	if p.Setup != nil {
		t.Setup = *p.Setup
	}
	if p.ProfitLoss != nil {
		t.ProfitLoss = *p.ProfitLoss
	}
	if p.RulesFollowed != nil {
		t.RulesFollowed = *p.RulesFollowed
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if err := t.Validate(); err != nil {
		return Trade{}, err
	}
	return t, nil
}

// Stats summarises a collection of trades. Rates are percentages.
type Stats struct {
	TotalPL           float64 `json:"totalPL"`
	WinRate           float64 `json:"winRate"`
	TotalTrades       int     `json:"totalTrades"`
	RulesFollowedRate float64 `json:"rulesFollowedRate"`
}
