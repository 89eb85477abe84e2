package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/trendscraper/models"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

var recordColumns = []string{"id", "trend_1", "trend_2", "trend_3", "trend_4", "trend_5", "captured_at", "ip_address"}

func strp(s string) *string { return &s }

func TestPostgres_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(flexibleSQLMatcher(pgSchema)).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, NewPostgres(mock).Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := models.NewTrendRecord("rec-1", []string{"#A", "#B", "#C", "#D", "#E", "#F"}, time.Now())

	mock.ExpectExec(flexibleSQLMatcher(pgInsert)).
		WithArgs("rec-1", rec.Trend1, rec.Trend2, rec.Trend3, rec.Trend4, rec.Trend5, pgxmock.AnyArg(), rec.IPAddress).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewPostgres(mock).Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dbErr := errors.New("connection reset")
	mock.ExpectExec(flexibleSQLMatcher(pgInsert)).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(dbErr)

	err = NewPostgres(mock).Save(context.Background(), models.NewTrendRecord("rec-1", nil, time.Now()))
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ts := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(flexibleSQLMatcher(pgSelectByID)).
		WithArgs("rec-1").
		WillReturnRows(pgxmock.NewRows(recordColumns).
			AddRow("rec-1", strp("#A"), strp("#B"), strp("#C"), strp("#D"), strp("#E"), ts, strp("198.51.100.4")))

	got, err := NewPostgres(mock).Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", got.ID)
	assert.Equal(t, []string{"#A", "#B", "#C", "#D", "#E"}, got.Trends())
	assert.True(t, ts.Equal(got.Timestamp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(flexibleSQLMatcher(pgSelectByID)).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgres(mock).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Latest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ts := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(flexibleSQLMatcher(pgSelectLatest)).
		WithArgs(MaxListLimit).
		WillReturnRows(pgxmock.NewRows(recordColumns).
			AddRow("rec-2", strp("#X"), strp("#Y"), strp("#Z"), strp("#W"), strp("#V"), ts.Add(time.Hour), strp("")).
			AddRow("rec-1", strp("#A"), strp("#B"), strp("#C"), strp("#D"), strp("#E"), ts, strp("")))

	got, err := NewPostgres(mock).Latest(context.Background(), 1000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rec-2", got[0].ID)
	assert.Equal(t, "rec-1", got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
