// Package testutil holds helpers shared by the package tests: throw-away
// SQLite stores, fixed clocks and signed tokens.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"libraryd/internal/storage"
)

// TestSecret signs the tokens minted by Token.
const TestSecret = "test-secret"

// NewDB opens a private in-memory SQLite database with the schema of every
// model. The single connection keeps the database alive until cleanup and
// serialises concurrent callers.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := storage.Open(storage.Options{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1, Logger: DiscardLogger()})
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Clock is a settable time source.
type Clock struct {
	Now time.Time
}

func NewClock(now time.Time) *Clock { return &Clock{Now: now} }

func (c *Clock) Func() func() time.Time {
	return func() time.Time { return c.Now }
}

func (c *Clock) AddDays(n int) { c.Now = c.Now.AddDate(0, 0, n) }

// Token returns an HS256 token signed with TestSecret that expires in an hour.
func Token(t testing.TB, email, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	if role != "" {
		claims["userType"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestSecret))
	require.NoError(t, err)
	return signed
}

// SameDay fails unless want and got fall on the same UTC calendar date.
func SameDay(t testing.TB, want, got time.Time) {
	t.Helper()
	require.Equal(t, want.UTC().Format(time.DateOnly), got.UTC().Format(time.DateOnly))
}
