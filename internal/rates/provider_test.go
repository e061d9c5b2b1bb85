package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/commission-engine/pkg/db/dbtest"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

type fakeRepository struct {
	rows []models.CommissionRate
	err  error
}

func (f *fakeRepository) List(context.Context) ([]models.CommissionRate, error) {
	return f.rows, f.err
}

func TestProviderSeedsFallback(t *testing.T) {
	p, err := NewProvider(ProviderParams{Fallback: standardRates()})
	require.NoError(t, err)

	pct, err := p.Snapshot().RateForLevel(2)
	require.NoError(t, err)
	assert.Equal(t, "10", pct.String())
}

func TestProviderRequiresSource(t *testing.T) {
	_, err := NewProvider(ProviderParams{})
	require.Error(t, err)
}

func TestProviderReloadFromRepository(t *testing.T) {
	repo := &fakeRepository{rows: []models.CommissionRate{
		{Level: 1, Percentage: decimal.NewFromInt(25)},
	}}
	p, err := NewProvider(ProviderParams{Repo: repo, Fallback: standardRates()})
	require.NoError(t, err)

	before := p.Snapshot()
	table, err := p.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, table, p.Snapshot())

	pct, err := table.RateForLevel(1)
	require.NoError(t, err)
	assert.Equal(t, "25", pct.String())

	// a run holding the old snapshot is unaffected
	pct, err = before.RateForLevel(1)
	require.NoError(t, err)
	assert.Equal(t, "20", pct.String())
}

func TestProviderReloadEmptyRepositoryUsesFallback(t *testing.T) {
	p, err := NewProvider(ProviderParams{Repo: &fakeRepository{}, Fallback: standardRates()})
	require.NoError(t, err)

	table, err := p.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, table.Complete())
}

func TestProviderReloadFailureKeepsSnapshot(t *testing.T) {
	repo := &fakeRepository{err: errors.New("db down")}
	p, err := NewProvider(ProviderParams{Repo: repo, Fallback: standardRates()})
	require.NoError(t, err)
	before := p.Snapshot()

	_, err = p.Reload(context.Background())
	require.Error(t, err)
	assert.Same(t, before, p.Snapshot())

	repo.err = nil
	repo.rows = []models.CommissionRate{{Level: 1, Percentage: decimal.NewFromInt(150)}}
	_, err = p.Reload(context.Background())
	require.Error(t, err)
	assert.Same(t, before, p.Snapshot())
}

func TestProviderRunReloadsOnTick(t *testing.T) {
	repo := &fakeRepository{rows: []models.CommissionRate{{Level: 1, Percentage: decimal.NewFromInt(30)}}}
	clock := clockwork.NewFakeClock()
	p, err := NewProvider(ProviderParams{Repo: repo, Fallback: standardRates(), Clock: clock})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, time.Minute) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	pct, err := p.Snapshot().RateForLevel(1)
	require.NoError(t, err)
	assert.Equal(t, "20", pct.String())

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		pct, err := p.Snapshot().RateForLevel(1)
		return err == nil && pct.Equal(decimal.NewFromInt(30))
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestProviderRunRejectsInterval(t *testing.T) {
	p, err := NewProvider(ProviderParams{Fallback: standardRates()})
	require.NoError(t, err)
	require.Error(t, p.Run(context.Background(), 0))
}

func TestRepositoryListOrdered(t *testing.T) {
	conn := dbtest.Open(t)
	for _, level := range []int{3, 1, 2} {
		require.NoError(t, conn.Create(&models.CommissionRate{Level: level, Percentage: decimal.NewFromInt(int64(level))}).Error)
	}

	rows, err := NewRepository(conn).List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].Level, rows[1].Level, rows[2].Level})
}
