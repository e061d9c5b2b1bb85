package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFailsOnBadConfig(t *testing.T) {
	t.Setenv("COMMISSION_APP_ENV", "test")
	t.Setenv("COMMISSION_RATES", "first:20")
	infra, err := Open(context.Background(), "api")
	require.Error(t, err)
	assert.ErrorContains(t, err, "load config")
	assert.Nil(t, infra)
}

func TestOpenClosesDatabaseWhenRedisFails(t *testing.T) {
	t.Setenv("COMMISSION_APP_ENV", "test")
	t.Setenv("COMMISSION_USE_SQLITE", "true")
	t.Setenv("COMMISSION_DB_DSN", "file:"+t.Name()+"?mode=memory&cache=shared")
	t.Setenv("COMMISSION_REDIS_URL", "")
	t.Setenv("COMMISSION_REDIS_ADDR", "")

	infra, err := Open(context.Background(), "worker")
	require.Error(t, err)
	assert.ErrorContains(t, err, "connect redis")
	assert.Nil(t, infra)
}

func TestCloseRunsNewestFirstAndJoinsErrors(t *testing.T) {
	var order []string
	infra := &Infra{}
	infra.OnClose(func() error { order = append(order, "db"); return errors.New("db close") })
	infra.OnClose(func() error { order = append(order, "redis"); return nil })
	infra.OnClose(func() error { order = append(order, "pubsub"); return errors.New("pubsub close") })

	err := infra.Close()
	assert.Equal(t, []string{"pubsub", "redis", "db"}, order)
	assert.ErrorContains(t, err, "db close")
	assert.ErrorContains(t, err, "pubsub close")
	assert.NoError(t, infra.Close(), "second close is a no-op")
}
