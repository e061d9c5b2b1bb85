package assets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/commission-engine/pkg/db/dbtest"
)

func TestCreditCreatesAndIncrements(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.Chain(t, conn, 1)
	repo := NewRepository(conn)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Credit(ctx, 1, decimal.RequireFromString("60.00"), at))
	require.NoError(t, repo.Credit(ctx, 1, decimal.RequireFromString("15.25"), at.Add(time.Minute)))

	asset, err := repo.FindByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "75.25", asset.AvailableBalance.StringFixed(2))
	assert.Equal(t, "75.25", asset.TotalCommission.StringFixed(2))
	assert.True(t, asset.UpdatedAt.Equal(at.Add(time.Minute)))
}

func TestCreditRejectsNonPositive(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	err := repo.Credit(context.Background(), 1, decimal.Zero, time.Now().UTC())
	require.Error(t, err)
}

func TestFindByUserIDWithoutRowReturnsZero(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	asset, err := repo.FindByUserID(context.Background(), 99)
	require.NoError(t, err)
	assert.True(t, asset.AvailableBalance.IsZero())
	assert.Equal(t, int64(99), asset.UserID)
}

func TestCreditInsideRolledBackTxLeavesNoTrace(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.Chain(t, conn, 1)
	repo := NewRepository(conn)
	ctx := context.Background()
	boom := errors.New("boom")

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).Credit(ctx, 1, decimal.NewFromInt(10), time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	asset, err := repo.FindByUserID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, asset.AvailableBalance.IsZero())
}
