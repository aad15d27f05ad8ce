package repository

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/mindfuly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunPostgres builds statements with the postgres dialect without a server.
func dryRunPostgres(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=localhost user=mindfuly dbname=mindfuly sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	var statements []string
	require.NoError(t, db.Callback().Row().After("gorm:row").Register("test:capture", func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	}))
	return db, &statements
}

func TestDateExpressionsPerDialect(t *testing.T) {
	pg, _ := dryRunPostgres(t)
	tests := []struct {
		name    string
		db      *gorm.DB
		day     string
		weekday string
	}{
		{
			name:    "sqlite",
			db:      testutil.SetupTestDB(t),
			day:     "strftime('%Y-%m-%d', created_at)",
			weekday: "CAST(((CAST(strftime('%w', created_at) AS INTEGER) + 6) % 7) + 1 AS TEXT)",
		},
		{
			name:    "postgres",
			db:      pg,
			day:     "to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')",
			weekday: "CAST(EXTRACT(ISODOW FROM created_at AT TIME ZONE 'UTC') AS INTEGER)::text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMoodRepository(tt.db)
			assert.Equal(t, tt.day, repo.dayExpr())
			assert.Equal(t, tt.weekday, repo.isoWeekdayExpr())
		})
	}
}

func TestPostgresAggregateQueries(t *testing.T) {
	pg, statements := dryRunPostgres(t)
	repo := NewMoodRepository(pg)
	ctx := context.Background()

	_, err := repo.WeeklyStats(ctx, 7)
	assert.ErrorIs(t, err, gorm.ErrDryRunModeUnsupported)
	_, err = repo.RunningMeans(ctx, 7, 5)
	assert.ErrorIs(t, err, gorm.ErrDryRunModeUnsupported)

	require.Len(t, *statements, 2)
	weekly, daily := (*statements)[0], (*statements)[1]
	assert.Contains(t, weekly, "SELECT CAST(EXTRACT(ISODOW FROM created_at AT TIME ZONE 'UTC') AS INTEGER)::text AS bucket")
	assert.Contains(t, weekly, "user_id = $1")
	assert.Contains(t, weekly, "GROUP BY")
	assert.Contains(t, daily, "SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS bucket")
	assert.Contains(t, daily, "ORDER BY bucket DESC")
}

func TestSQLiteDateExpressionsUseUTC(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewMoodRepository(db)
	user := createUser(t, db, "nia")

	// Sunday late evening and Monday just after midnight, UTC.
	sunday := logAt(t, repo, user.ID, time.Date(2024, 10, 6, 23, 30, 0, 0, time.UTC), 3, 3, nil)
	monday := logAt(t, repo, user.ID, time.Date(2024, 10, 7, 0, 30, 0, 0, time.UTC), 3, 3, nil)

	type row struct {
		Day     string
		Weekday string
	}
	for _, c := range []struct {
		id   uint
		want row
	}{
		{sunday.ID, row{"2024-10-06", "7"}},
		{monday.ID, row{"2024-10-07", "1"}},
	} {
		var got row
		require.NoError(t, db.Table("mood_logs").
			Select(repo.dayExpr()+" AS day, "+repo.isoWeekdayExpr()+" AS weekday").
			Where("id = ?", c.id).
			Scan(&got).Error)
		assert.Equal(t, c.want, got)
	}
}
