package history

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return newPostgresStoreWithDB(db, logger), mock
}

func reviewColumns() []string {
	return []string{"id", "report_id", "gene", "suggested_phenotype", "reviewer_phenotype",
		"reviewer_agreed", "source_text", "notes", "created_at", "updated_at"}
}

func TestPostgresStore_SaveReturnsID(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("INSERT INTO reviews").
		WithArgs("report-1", "CYP2D6", "Poor metabolizer", "Poor metabolizer",
			true, "CYP2D6 *4/*4", "confirmed against lab report",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	review := sampleReview("report-1", domain.GeneCYP2D6)
	err := store.Save(context.Background(), review)
	require.NoError(t, err)
	assert.Equal(t, int64(7), review.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveValidationSkipsDatabase(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	review := sampleReview("", domain.GeneCYP2D6)
	err := store.Save(context.Background(), review)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetFound(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM reviews WHERE report_id").
		WithArgs("report-1", "TPMT").
		WillReturnRows(sqlmock.NewRows(reviewColumns()).
			AddRow(int64(3), "report-1", "TPMT", "Poor metabolizer", "Intermediate metabolizer",
				false, "TPMT *3A/*3C", "dose reduced", now, now))

	got, err := store.Get(context.Background(), "report-1", domain.GeneTPMT)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.GeneTPMT, got.Gene)
	assert.Equal(t, domain.PhenotypeIntermediateMetabolizer, got.ReviewerPhenotype)
	assert.False(t, got.ReviewerAgreed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissingReturnsNil(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT (.+) FROM reviews WHERE report_id").
		WithArgs("nope", "TPMT").
		WillReturnRows(sqlmock.NewRows(reviewColumns()))

	got, err := store.Get(context.Background(), "nope", domain.GeneTPMT)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM reviews ORDER BY updated_at DESC").
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(reviewColumns()).
			AddRow(int64(2), "report-2", "DPYD", "Decreased function", "Decreased function",
				true, "", "", now, now).
			AddRow(int64(1), "report-1", "CYP2D6", "Poor metabolizer", "Poor metabolizer",
				true, "", "", now, now))

	got, err := store.List(context.Background(), 0, -1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.GeneDPYD, got[0].Gene)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteMissing(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec("DELETE FROM reviews WHERE id").
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
