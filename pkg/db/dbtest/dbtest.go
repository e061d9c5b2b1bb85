// Package dbtest opens isolated in-memory SQLite databases carrying the
// commission schema for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

// Open returns a fresh database private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Deposit{},
		&models.CommissionRate{},
		&models.DistributionSet{},
		&models.Distribution{},
		&models.Asset{},
		&models.DistributionFailure{},
	); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// Chain seeds users 1..n where user i+1 is referred by user i, all activated.
// It returns the id of the deepest user.
func Chain(t testing.TB, conn *gorm.DB, n int) int64 {
	t.Helper()
	var parent *int64
	for i := 1; i <= n; i++ {
		id := int64(i)
		user := models.User{ID: id, ReferrerID: parent, IsActivated: true}
		if err := conn.Create(&user).Error; err != nil {
			t.Fatalf("seed user %d: %v", id, err)
		}
		parent = &id
	}
	return int64(n)
}
