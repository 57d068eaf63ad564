package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pipeline-dashboard-go/internal/models"
	"pipeline-dashboard-go/internal/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TradeRecord is the persisted form of a trade.
type TradeRecord struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Symbol    string
	Closed    bool
	OpenTime  time.Time `gorm:"index"`
	Payload   []byte
	UpdatedAt time.Time
}

// PipelineRecord is the persisted form of a pipeline. Ordinal preserves the
// order in which the store first saw the pipeline.
type PipelineRecord struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Ordinal   int
	Name      string
	Active    bool
	Payload   []byte
	UpdatedAt time.Time
}

// Snapshot reads and writes the persisted collections.
type Snapshot struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSnapshot creates a snapshot bound to db.
func NewSnapshot(db *gorm.DB, logger *zap.Logger) *Snapshot {
	return &Snapshot{db: db, logger: logger.Named("snapshot")}
}

// SaveTrades upserts trades. A record already stored as closed is left as is.
func (s *Snapshot) SaveTrades(trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	records := make([]TradeRecord, 0, len(trades))
	for _, t := range trades {
		payload, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode trade %d: %w", t.ID, err)
		}
		records = append(records, TradeRecord{
			ID:       t.ID,
			Symbol:   t.Symbol,
			Closed:   t.Closed(),
			OpenTime: t.OpenTime,
			Payload:  payload,
		})
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		Where:     clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Table: "trade_records", Name: "closed"}, Value: false}}},
		DoUpdates: clause.AssignmentColumns([]string{"symbol", "closed", "open_time", "payload", "updated_at"}),
	}).CreateInBatches(&records, 100).Error
	if err != nil {
		return fmt.Errorf("failed to save trades: %w", err)
	}
	return nil
}

// SavePipelines makes the stored pipelines match pipelines exactly,
// including their order.
func (s *Snapshot) SavePipelines(pipelines []models.Pipeline) error {
	records := make([]PipelineRecord, 0, len(pipelines))
	ids := make([]int64, 0, len(pipelines))
	for i, p := range pipelines {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode pipeline %d: %w", p.ID, err)
		}
		records = append(records, PipelineRecord{
			ID:      p.ID,
			Ordinal: i,
			Name:    p.Name,
			Active:  p.Active,
			Payload: payload,
		})
		ids = append(ids, p.ID)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		del := tx.Where("1 = 1")
		if len(ids) > 0 {
			del = tx.Where("id NOT IN ?", ids)
		}
		if err := del.Delete(&PipelineRecord{}).Error; err != nil {
			return fmt.Errorf("failed to prune pipelines: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&records).Error
		if err != nil {
			return fmt.Errorf("failed to save pipelines: %w", err)
		}
		return nil
	})
}

// Load dispatches the persisted trades and pipelines into st. Records that
// cannot be decoded are skipped.
func (s *Snapshot) Load(st *store.Store) error {
	var pipelineRecords []PipelineRecord
	if err := s.db.Order("ordinal asc").Find(&pipelineRecords).Error; err != nil {
		return fmt.Errorf("failed to load pipelines: %w", err)
	}
	var tradeRecords []TradeRecord
	if err := s.db.Order("open_time desc").Find(&tradeRecords).Error; err != nil {
		return fmt.Errorf("failed to load trades: %w", err)
	}

	var errs []error
	pipelines := make([]models.Pipeline, 0, len(pipelineRecords))
	for _, r := range pipelineRecords {
		var p models.Pipeline
		if err := json.Unmarshal(r.Payload, &p); err != nil {
			errs = append(errs, fmt.Errorf("pipeline %d: %w", r.ID, err))
			continue
		}
		pipelines = append(pipelines, p)
	}
	trades := make([]models.Trade, 0, len(tradeRecords))
	for _, r := range tradeRecords {
		var t models.Trade
		if err := json.Unmarshal(r.Payload, &t); err != nil {
			errs = append(errs, fmt.Errorf("trade %d: %w", r.ID, err))
			continue
		}
		trades = append(trades, t)
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("Skipped undecodable snapshot records", zap.Error(err))
	}

	if len(pipelines) > 0 {
		st.Dispatch(store.PipelinesReceived{Pipelines: pipelines})
	}
	if len(trades) > 0 {
		st.Dispatch(store.TradesReceived{Trades: trades})
	}
	s.logger.Info("Loaded snapshot", zap.Int("pipelines", len(pipelines)), zap.Int("trades", len(trades)))
	return nil
}

// Run persists the trades and pipelines of st every time they change, until
// ctx is cancelled.
func (s *Snapshot) Run(ctx context.Context, st *store.Store) error {
	changes, unsubscribe := st.Subscribe(16)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			var err error
			switch c.Kind {
			case store.KindTrades:
				err = s.SaveTrades(st.Trades())
			case store.KindPipelines:
				err = s.SavePipelines(st.Pipelines())
			}
			if err != nil {
				s.logger.Error("Failed to persist snapshot", zap.String("kind", string(c.Kind)), zap.Error(err))
			}
		}
	}
}
