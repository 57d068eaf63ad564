package poller

import (
	"context"
	"time"

	"pipeline-dashboard-go/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Poller runs one refresh loop per configured collection.
type Poller struct {
	syncer    *Syncer
	cfg       config.Polling
	resources []string
	logger    *zap.Logger
}

// New creates a new poller.
func New(syncer *Syncer, cfg config.Polling, resources []string, logger *zap.Logger) *Poller {
	return &Poller{syncer: syncer, cfg: cfg, resources: resources, logger: logger.Named("poller")}
}

type job struct {
	name     string
	interval time.Duration
	refresh  func(ctx context.Context) error
}

func (p *Poller) jobs() []job {
	return []job{
		{"trades", p.cfg.Trades, func(ctx context.Context) error { return p.syncer.RefreshTrades(ctx, 1) }},
		{"pipelines", p.cfg.Pipelines, p.refreshPipelines},
		{"positions", p.cfg.Positions, p.syncer.RefreshPositions},
		{"prices", p.cfg.Prices, p.syncer.RefreshPrices},
		{"balances", p.cfg.Balances, p.syncer.RefreshBalances},
	}
}

// refreshPipelines refreshes the metrics alongside the pipelines they
// summarize.
func (p *Poller) refreshPipelines(ctx context.Context) error {
	if err := p.syncer.RefreshPipelines(ctx); err != nil {
		return err
	}
	return p.syncer.RefreshMetrics(ctx)
}

// Run loads the resources, then refreshes every enabled collection once and
// on each tick of its interval until ctx is cancelled. Refresh failures are
// logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.syncer.LoadResources(ctx, p.resources); err != nil {
		p.logger.Warn("Resource options unavailable", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range p.jobs() {
		if j.interval <= 0 {
			p.logger.Info("Poller disabled", zap.String("collection", j.name))
			continue
		}
		g.Go(func() error {
			p.loop(gctx, j)
			return nil
		})
	}
	return g.Wait()
}

func (p *Poller) loop(ctx context.Context, j job) {
	l := p.logger.With(zap.String("collection", j.name))
	l.Info("Starting poll loop", zap.Duration("interval", j.interval))

	p.tick(ctx, l, j)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info("Stopping poll loop")
			return
		case <-ticker.C:
			p.tick(ctx, l, j)
		}
	}
}

func (p *Poller) tick(ctx context.Context, l *zap.Logger, j job) {
	if err := j.refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		l.Error("Refresh failed", zap.Error(err))
	}
}
