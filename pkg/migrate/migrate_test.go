package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercerie-backend/pkg/config"
)

func TestBundledMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestUpEmbeddedOnSQLite(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, UpEmbedded(context.Background(), sqlDB, "sqlite"))

	for _, table := range []string{"users", "products", "orders", "order_lines"} {
		assert.True(t, conn.Migrator().HasTable(table), "expected table %s", table)
	}

	_, err = sqlDB.Exec(`INSERT INTO products (id, name, category, price, stock) VALUES (?, 'Ghem', 'nasturi', 1, 1)`, uuid.NewString())
	assert.Error(t, err, "unknown category should violate the check constraint")
}

func TestDialectFor(t *testing.T) {
	assert.Equal(t, "sqlite3", DialectFor("SQLite"))
	assert.Equal(t, "postgres", DialectFor("postgres"))
	assert.Equal(t, "postgres", DialectFor(""))
}

func TestShouldAutoRun(t *testing.T) {
	assert.False(t, shouldAutoRun(nil))
	assert.True(t, shouldAutoRun(&config.Config{DB: config.DBConfig{Driver: "sqlite"}}))
	assert.False(t, shouldAutoRun(&config.Config{App: config.AppConfig{Env: "prod"}, DB: config.DBConfig{Driver: "postgres"}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}}))
	assert.True(t, shouldAutoRun(&config.Config{App: config.AppConfig{Env: "dev"}, DB: config.DBConfig{Driver: "postgres"}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}}))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Low Stock Index")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filepath.Base(path), "_add_low_stock_index.sql"))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRefusesSameVersion(t *testing.T) {
	pinned := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	now = func() time.Time { return pinned }
	t.Cleanup(func() { now = time.Now })

	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "  Stoc minim / produse ")
	require.NoError(t, err)
	assert.Equal(t, "20260301083000_stoc_minim_produse.sql", filepath.Base(path))

	_, err = CreateSQLMigration(dir, "stoc minim produse")
	assert.ErrorContains(t, err, "already exists")

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("20260101000000_a.sql", "-- +goose Up\n-- +goose Down\n")
	write("20260101000000_b.sql", "-- +goose Up\n-- +goose Down\n")
	write("20260102000000_no_down.sql", "-- +goose Up\n")
	write("notes.txt", "ignored")

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorContains(t, err, "duplicate migration version 20260101000000")
	assert.ErrorContains(t, err, "-- +goose Down")
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))
	assert.Error(t, ValidateDir(t.TempDir()), "empty directories are rejected")
}
