package distributions

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/commission-engine/pkg/db"
	"github.com/angelmondragon/commission-engine/pkg/db/dbtest"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

var base = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func seedRows(t *testing.T, conn *gorm.DB, depositID int64, at time.Time, rows ...models.Distribution) {
	t.Helper()
	for i := range rows {
		rows[i].DepositID = depositID
		rows[i].CreatedAt = at
	}
	require.NoError(t, NewRepository(conn).CreateDistributions(context.Background(), rows))
}

func row(beneficiary int64, level int, amount string) models.Distribution {
	return models.Distribution{
		BeneficiaryID: beneficiary,
		Level:         level,
		Rate:          decimal.NewFromInt(5),
		Amount:        decimal.RequireFromString(amount),
	}
}

func TestCreateSetRejectsSecondRunForDeposit(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	set := &models.DistributionSet{DepositID: 7, DepositorID: 3, DepositAmount: decimal.NewFromInt(100), TotalCredited: decimal.Zero}
	require.NoError(t, repo.CreateSet(ctx, set))

	dup := &models.DistributionSet{DepositID: 7, DepositorID: 3, DepositAmount: decimal.NewFromInt(100), TotalCredited: decimal.Zero}
	err := repo.CreateSet(ctx, dup)
	require.ErrorIs(t, err, ErrSetExists)

	found, err := repo.FindSetByDepositID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, set.ID, found.ID)

	_, err = repo.FindSetByDepositID(ctx, 8)
	require.ErrorIs(t, err, ErrSetNotFound)
}

func TestCreateDistributionsRejectsDuplicateLevel(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	seedRows(t, conn, 1, base, row(2, 1, "10.00"))
	err := repo.CreateDistributions(context.Background(), []models.Distribution{
		{DepositID: 1, BeneficiaryID: 2, Level: 1, Rate: decimal.NewFromInt(5), Amount: decimal.NewFromInt(1)},
	})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestCreateDistributionsEmptyIsNoop(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	require.NoError(t, repo.CreateDistributions(context.Background(), nil))
}

func TestListByBeneficiaryOrdering(t *testing.T) {
	conn := dbtest.Open(t)
	seedRows(t, conn, 20, base.Add(time.Minute), row(5, 2, "3.00"))
	seedRows(t, conn, 11, base, row(5, 3, "1.00"))
	seedRows(t, conn, 10, base, row(5, 4, "2.00"), row(6, 1, "9.00"))

	rows, err := NewRepository(conn).ListByBeneficiaryID(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{10, 11, 20}, []int64{rows[0].DepositID, rows[1].DepositID, rows[2].DepositID})
}

func TestListByDepositOrderedByLevel(t *testing.T) {
	conn := dbtest.Open(t)
	seedRows(t, conn, 3, base, row(9, 3, "1.00"), row(8, 1, "3.00"), row(7, 2, "2.00"))

	rows, err := NewRepository(conn).ListByDepositID(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].Level, rows[1].Level, rows[2].Level})
}

func TestSumByLevel(t *testing.T) {
	conn := dbtest.Open(t)
	seedRows(t, conn, 1, base, row(5, 1, "60.00"))
	seedRows(t, conn, 2, base, row(5, 1, "15.50"))
	seedRows(t, conn, 3, base, row(5, 2, "7.25"), row(4, 1, "100.00"))

	totals, err := NewRepository(conn).SumByLevel(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, 1, totals[0].Level)
	assert.Equal(t, int64(2), totals[0].Count)
	assert.Equal(t, "75.50", totals[0].Amount.StringFixed(2))
	assert.Equal(t, "7.25", totals[1].Amount.StringFixed(2))
}
