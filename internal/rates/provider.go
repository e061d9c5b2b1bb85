package rates

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commission-engine/pkg/logger"
)

// Provider hands out the current rate table and swaps it on reload.
// A run takes one Snapshot and uses it throughout.
type Provider struct {
	repo     Repository
	fallback map[int]decimal.Decimal
	logg     *logger.Logger
	clock    clockwork.Clock
	current  atomic.Pointer[Table]
}

// ProviderParams wires a Provider.
type ProviderParams struct {
	Repo     Repository
	Fallback map[int]decimal.Decimal
	Logger   *logger.Logger
	Clock    clockwork.Clock
}

// NewProvider builds a provider seeded with the fallback rates. Call Reload to
// pick up the persisted table.
func NewProvider(params ProviderParams) (*Provider, error) {
	if params.Repo == nil && len(params.Fallback) == 0 {
		return nil, fmt.Errorf("rate repository or fallback rates required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	seed, err := NewTable(params.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback rates: %w", err)
	}
	p := &Provider{repo: params.Repo, fallback: params.Fallback, logg: logg, clock: clock}
	p.current.Store(seed)
	return p, nil
}

// Snapshot returns the table currently in effect.
func (p *Provider) Snapshot() *Table {
	return p.current.Load()
}

// Reload rebuilds the table from the repository. An empty repository falls
// back to the configured rates. On error the previous snapshot stays active.
func (p *Provider) Reload(ctx context.Context) (*Table, error) {
	rates := p.fallback
	if p.repo != nil {
		rows, err := p.repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load commission rates: %w", err)
		}
		if len(rows) > 0 {
			rates = make(map[int]decimal.Decimal, len(rows))
			for _, row := range rows {
				rates[row.Level] = row.Percentage
			}
		}
	}

	table, err := NewTable(rates)
	if err != nil {
		return nil, err
	}
	p.current.Store(table)

	if !table.Complete() {
		p.logg.Warn(p.logg.WithField(ctx, "levels", table.Len()), "commission rate table incomplete")
	}
	return table, nil
}

// Run reloads the table every interval until ctx is cancelled.
func (p *Provider) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("rate reload interval must be positive")
	}
	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if _, err := p.Reload(ctx); err != nil {
				p.logg.Error(ctx, "commission rate reload failed", err)
			}
		}
	}
}
