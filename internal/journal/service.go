package journal

import (
	"context"
	"fmt"
	"io"
	"time"

	"forex-journal/internal/logger"
	"forex-journal/internal/models"
	"forex-journal/internal/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TradeStore persists trades per owner. The hosted backend client and the
// local database both implement it.
type TradeStore interface {
	ListTrades(ctx context.Context, owner string) ([]models.Trade, error)
	InsertTrade(ctx context.Context, owner string, t models.Trade) (models.Trade, error)
	UpdateTrade(ctx context.Context, owner, id string, patch models.TradePatch) (models.Trade, error)
	DeleteTrade(ctx context.Context, owner, id string) error
}

// ImportSummary reports how many data rows were stored and how many were
// dropped, either by the parser or by validation.
type ImportSummary struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Service is the journal as seen by one caller: every operation takes the
// owner explicitly and validates trades before they reach the store.
type Service struct {
	store TradeStore
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a journal service over store.
func NewService(store TradeStore, log *zap.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// List returns the owner's trades, most recent first.
func (s *Service) List(ctx context.Context, owner string) ([]models.Trade, error) {
	ctx, span := trace.StartSpan(ctx, "journal.List")
	defer span.End()

	return s.store.ListTrades(ctx, owner)
}

// Add validates and stores a new trade. Any id or owner on t is ignored.
func (s *Service) Add(ctx context.Context, owner string, t models.Trade) (models.Trade, error) {
	ctx, span := trace.StartSpan(ctx, "journal.Add")
	defer span.End()

	if err := t.Validate(); err != nil {
		return models.Trade{}, err
	}
	t.ID = ""
	t.Owner = ""

	saved, err := s.store.InsertTrade(ctx, owner, t)
	if err != nil {
		return models.Trade{}, err
	}
	logger.WithTrace(ctx, s.log).Info("Trade added",
		zap.String("id", saved.ID),
		zap.String("market", string(saved.Market)),
		zap.Float64("profit_loss", saved.ProfitLoss),
	)
	return saved, nil
}

// Edit applies a partial update to one of the owner's trades.
func (s *Service) Edit(ctx context.Context, owner, id string, patch models.TradePatch) (models.Trade, error) {
	ctx, span := trace.StartSpan(ctx, "journal.Edit")
	defer span.End()

	if patch.Empty() {
		return models.Trade{}, &models.ValidationError{Field: "patch", Reason: "no fields to update"}
	}
	if err := patch.Validate(); err != nil {
		return models.Trade{}, err
	}
	return s.store.UpdateTrade(ctx, owner, id, patch)
}

// Delete removes one of the owner's trades.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	ctx, span := trace.StartSpan(ctx, "journal.Delete")
	defer span.End()

	if err := s.store.DeleteTrade(ctx, owner, id); err != nil {
		return err
	}
	logger.WithTrace(ctx, s.log).Info("Trade deleted", zap.String("id", id))
	return nil
}

// Stats summarises the owner's trades.
func (s *Service) Stats(ctx context.Context, owner string) (models.Stats, error) {
	ctx, span := trace.StartSpan(ctx, "journal.Stats")
	defer span.End()

	trades, err := s.store.ListTrades(ctx, owner)
	if err != nil {
		return models.Stats{}, err
	}
	return ComputeStats(trades), nil
}

// Export renders the owner's trades as a dated CSV file.
func (s *Service) Export(ctx context.Context, owner string) (File, error) {
	ctx, span := trace.StartSpan(ctx, "journal.Export")
	defer span.End()

	trades, err := s.store.ListTrades(ctx, owner)
	if err != nil {
		return File{}, err
	}
	span.SetAttributes(attribute.Int("trades", len(trades)))
	return ExportFile(trades, s.now()), nil
}

// Import parses r and stores every valid row for owner. Rows the parser
// drops and rows that fail validation, such as a profit/loss that is not
// a number, are counted as skipped. A store failure stops the import and
// is returned along with the counts so far.
func (s *Service) Import(ctx context.Context, owner string, r io.Reader) (ImportSummary, error) {
	ctx, span := trace.StartSpan(ctx, "journal.Import")
	defer span.End()

	res, err := ReadCSV(r)
	if err != nil {
		return ImportSummary{}, err
	}

	log := logger.WithTrace(ctx, s.log)
	summary := ImportSummary{Skipped: res.Skipped}
	for _, t := range res.Trades {
		if err := t.Validate(); err != nil {
			log.Debug("Skipping invalid imported row", zap.String("date", t.Date), zap.Error(err))
			summary.Skipped++
			continue
		}
		if _, err := s.store.InsertTrade(ctx, owner, t); err != nil {
			return summary, fmt.Errorf("import stopped after %d trades: %w", summary.Imported, err)
		}
		summary.Imported++
	}

	span.SetAttributes(
		attribute.Int("imported", summary.Imported),
		attribute.Int("skipped", summary.Skipped),
	)
	log.Info("Trades imported", zap.Int("imported", summary.Imported), zap.Int("skipped", summary.Skipped))
	return summary, nil
}
