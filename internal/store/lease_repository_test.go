package store

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// companyRows mirrors the minimal column set claimOne's RETURNING *
// needs to populate a usable Company for the batch runner.
func companyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"company_id", "user_id", "type", "domain", "last_crawl_status"})
}

func TestLeaseRepositoryClaimBatch(t *testing.T) {
	now := time.Now().UTC()

	t.Run("claims up to limit, one atomic row per round trip", func(t *testing.T) {
		db, mock := newSQLMockGormDB(t)
		repo := &LeaseRepository{db: db.Gorm()}

		mock.ExpectQuery(`UPDATE companies[\s\S]*FOR UPDATE SKIP LOCKED`).
			WithArgs(sqlmockAnyTime{}, "competitor", sqlmockAnyTime{}, sqlmockAnyTime{}).
			WillReturnRows(companyRows().AddRow("c1", "u1", "competitor", "a.example", "idle"))
		mock.ExpectQuery(`UPDATE companies[\s\S]*FOR UPDATE SKIP LOCKED`).
			WithArgs(sqlmockAnyTime{}, "competitor", sqlmockAnyTime{}, sqlmockAnyTime{}).
			WillReturnRows(companyRows().AddRow("c2", "u2", "competitor", "b.example", "ok"))

		claimed, err := repo.ClaimBatch(2, 6*time.Minute, now)
		require.NoError(t, err)
		require.Len(t, claimed, 2)
		assert.Equal(t, "c1", claimed[0].CompanyID)
		assert.Equal(t, "c2", claimed[1].CompanyID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops early once a claim round finds nothing due", func(t *testing.T) {
		db, mock := newSQLMockGormDB(t)
		repo := &LeaseRepository{db: db.Gorm()}

		mock.ExpectQuery(`UPDATE companies[\s\S]*FOR UPDATE SKIP LOCKED`).
			WithArgs(sqlmockAnyTime{}, "competitor", sqlmockAnyTime{}, sqlmockAnyTime{}).
			WillReturnRows(companyRows().AddRow("c1", "u1", "competitor", "a.example", "idle"))
		mock.ExpectQuery(`UPDATE companies[\s\S]*FOR UPDATE SKIP LOCKED`).
			WithArgs(sqlmockAnyTime{}, "competitor", sqlmockAnyTime{}, sqlmockAnyTime{}).
			WillReturnRows(companyRows())

		claimed, err := repo.ClaimBatch(5, 6*time.Minute, now)
		require.NoError(t, err)
		assert.Len(t, claimed, 1, "no second company was due, so the loop should not keep polling past the empty round")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLeaseRepositoryRelease(t *testing.T) {
	db, mock := newSQLMockGormDB(t)
	repo := &LeaseRepository{db: db.Gorm()}

	next := time.Now().UTC().Add(24 * time.Hour)
	mock.ExpectExec(`UPDATE companies`).
		WithArgs(sqlmockAnyTime{}, "c1").
		WillReturnResult(sqlmockResult(1))

	err := repo.Release("c1", next)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
