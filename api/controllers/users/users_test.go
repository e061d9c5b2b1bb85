package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/commission-engine/api/responses"
	"github.com/angelmondragon/commission-engine/internal/assets"
	"github.com/angelmondragon/commission-engine/internal/distributions"
	"github.com/angelmondragon/commission-engine/internal/upline"
	internalusers "github.com/angelmondragon/commission-engine/internal/users"
	"github.com/angelmondragon/commission-engine/pkg/db/dbtest"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
	pkgerrors "github.com/angelmondragon/commission-engine/pkg/errors"
	"github.com/angelmondragon/commission-engine/pkg/logger"
)

type fixture struct {
	conn   *gorm.DB
	router chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	dir := internalusers.NewRepository(conn)
	resolver, err := upline.NewResolver(dir)
	require.NoError(t, err)
	svc, err := distributions.NewService(distributions.NewRepository(conn))
	require.NoError(t, err)
	logg := logger.Nop()

	r := chi.NewRouter()
	r.Route("/users/{userId}", func(r chi.Router) {
		r.Get("/distributions", Distributions(svc, logg))
		r.Get("/distributions/summary", Summary(svc, logg))
		r.Get("/upline", Upline(dir, resolver, logg))
		r.Get("/assets", Assets(dir, assets.NewRepository(conn), logg))
	})
	return &fixture{conn: conn, router: r}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body responses.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error.Code
}

func (f *fixture) seedDistributions(t *testing.T, beneficiary int64, count int) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		row := models.Distribution{
			DepositID:     int64(100 + i),
			BeneficiaryID: beneficiary,
			Level:         1 + i%2,
			Rate:          decimal.NewFromInt(5),
			Amount:        decimal.RequireFromString("10.00"),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.conn.Create(&row).Error)
	}
}

func TestUplineReturnsAncestors(t *testing.T) {
	f := newFixture(t)
	deepest := dbtest.Chain(t, f.conn, 4)

	var out UplineResponse
	decodeData(t, f.get(t, "/users/4/upline"), &out)

	require.NotNil(t, out.User)
	assert.Equal(t, deepest, out.User.ID)
	require.Len(t, out.Ancestors, 3)
	assert.Equal(t, int64(3), out.Ancestors[0].UserID)
	assert.Equal(t, 1, out.Ancestors[0].Level)
	assert.Equal(t, int64(1), out.Ancestors[2].UserID)
}

func TestUplineUnknownUser(t *testing.T) {
	f := newFixture(t)
	w := f.get(t, "/users/42/upline")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(pkgerrors.CodeNotFound), errorCode(t, w))
}

func TestUplineCycleIsDataIntegrity(t *testing.T) {
	f := newFixture(t)
	one, two := int64(1), int64(2)
	require.NoError(t, f.conn.Create(&models.User{ID: 1, ReferrerID: &two, IsActivated: true}).Error)
	require.NoError(t, f.conn.Create(&models.User{ID: 2, ReferrerID: &one, IsActivated: true}).Error)

	w := f.get(t, "/users/1/upline")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(pkgerrors.CodeDataIntegrity), errorCode(t, w))
}

func TestAssetsDefaultsToZero(t *testing.T) {
	f := newFixture(t)
	dbtest.Chain(t, f.conn, 1)

	var out assets.AssetDTO
	decodeData(t, f.get(t, "/users/1/assets"), &out)
	assert.Equal(t, int64(1), out.UserID)
	assert.Equal(t, "0.00", out.AvailableBalance.StringFixed(2))
	assert.Nil(t, out.UpdatedAt)
}

func TestAssetsReportsBalance(t *testing.T) {
	f := newFixture(t)
	dbtest.Chain(t, f.conn, 1)
	at := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, assets.NewRepository(f.conn).Credit(context.Background(), 1, decimal.RequireFromString("12.34"), at))

	var out assets.AssetDTO
	decodeData(t, f.get(t, "/users/1/assets"), &out)
	assert.Equal(t, "12.34", out.AvailableBalance.StringFixed(2))
	assert.Equal(t, "12.34", out.TotalCommission.StringFixed(2))
}

func TestAssetsUnknownUser(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/users/5/assets").Code)
}

func TestDistributionsPagesWithCursor(t *testing.T) {
	f := newFixture(t)
	f.seedDistributions(t, 9, 3)

	var first distributions.ListResult
	decodeData(t, f.get(t, "/users/9/distributions?limit=2"), &first)
	require.Len(t, first.Distributions, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, int64(100), first.Distributions[0].DepositID)

	var second distributions.ListResult
	decodeData(t, f.get(t, "/users/9/distributions?limit=2&cursor="+first.NextCursor), &second)
	require.Len(t, second.Distributions, 1)
	assert.Equal(t, int64(102), second.Distributions[0].DepositID)
	assert.Empty(t, second.NextCursor)
}

func TestDistributionsRejectsBadQuery(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/users/9/distributions?limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.get(t, "/users/9/distributions?cursor=bm9wZQ")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.get(t, "/users/-3/distributions")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummaryGroupsByLevel(t *testing.T) {
	f := newFixture(t)
	f.seedDistributions(t, 9, 3)

	var out distributions.Summary
	decodeData(t, f.get(t, "/users/9/distributions/summary"), &out)
	assert.Equal(t, int64(9), out.BeneficiaryID)
	assert.Equal(t, "30.00", out.Total.StringFixed(2))
	require.Len(t, out.Levels, 2)
	assert.Equal(t, 1, out.Levels[0].Level)
	assert.Equal(t, int64(2), out.Levels[0].Count)
}
