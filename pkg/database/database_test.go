package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"

	"shiftcare/backend/config"
)

type probe struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestNewDBSqliteAndMigrate(t *testing.T) {
	db, err := NewDB(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, zapcore.ErrorLevel, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	require.NoError(t, Migrate(db, "sqlite", zap.NewNop(), &probe{}))
	require.True(t, db.Migrator().HasTable(&probe{}))
}

func TestNewDBUnknownDriver(t *testing.T) {
	_, err := NewDB(&config.DatabaseConfig{Driver: "mysql"}, zapcore.InfoLevel, zap.NewNop())
	require.Error(t, err)
}

func TestGormLogLevel(t *testing.T) {
	require.Equal(t, gormlogger.Info, GormLogLevel(zapcore.DebugLevel))
	require.Equal(t, gormlogger.Warn, GormLogLevel(zapcore.InfoLevel))
	require.Equal(t, gormlogger.Error, GormLogLevel(zapcore.ErrorLevel))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
