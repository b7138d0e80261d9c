package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Table-driven coverage for the single-row compare-and-set fencing spec.md
// §4.1 relies on: Acquire only succeeds when the existing lock has
// expired, and Release only clears a lock still held by its caller.

func TestLockRepositoryAcquire(t *testing.T) {
	now := time.Now().UTC()

	cases := []struct {
		name           string
		returnedRows   bool
		returnedOwner  string
		wantAcquired   bool
		wantRetryAfter bool
	}{
		{
			name:          "acquires a free lock",
			returnedRows:  true,
			returnedOwner: "fixed-owner",
			wantAcquired:  true,
		},
		{
			name:           "reports held lock without acquiring",
			returnedRows:   false,
			wantAcquired:   false,
			wantRetryAfter: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newSQLMockGormDB(t)
			repo := &LockRepository{db: db.Gorm(), newOwnerID: func() string { return "fixed-owner" }}

			insertRows := mockRowsFor()
			if tc.returnedRows {
				insertRows.AddRow("cron:crawl", tc.returnedOwner, now.Add(time.Minute), now, nil)
			}
			mock.ExpectQuery(`INSERT INTO invocation_locks`).
				WithArgs("cron:crawl", "fixed-owner", sqlmockAnyTime{}, sqlmockAnyTime{}, sqlmockAnyTime{}).
				WillReturnRows(insertRows)

			if !tc.returnedRows {
				existingRows := mockRowsFor()
				existingRows.AddRow("cron:crawl", "other-owner", now.Add(30*time.Second), now.Add(-time.Minute), nil)
				mock.ExpectQuery(`SELECT key, owner_id, lock_until, locked_at, last_released_at FROM invocation_locks WHERE key = `).
					WithArgs("cron:crawl").
					WillReturnRows(existingRows)
			}

			result, err := repo.Acquire("cron:crawl", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAcquired, result.Acquired)
			if tc.wantAcquired {
				assert.Equal(t, "fixed-owner", result.OwnerID)
			}
			if tc.wantRetryAfter {
				assert.GreaterOrEqual(t, result.RetryAfterSeconds, 0)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLockRepositoryRelease(t *testing.T) {
	t.Run("clears the lock when owned by the caller", func(t *testing.T) {
		db, mock := newSQLMockGormDB(t)
		repo := &LockRepository{db: db.Gorm(), newOwnerID: nil}

		mock.ExpectExec(`UPDATE invocation_locks`).
			WithArgs(sqlmockAnyTime{}, sqlmockAnyTime{}, "cron:crawl", "fixed-owner").
			WillReturnResult(sqlmockResult(1))

		err := repo.Release("cron:crawl", "fixed-owner")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses to clear a lock held by someone else", func(t *testing.T) {
		db, mock := newSQLMockGormDB(t)
		repo := &LockRepository{db: db.Gorm(), newOwnerID: nil}

		mock.ExpectExec(`UPDATE invocation_locks`).
			WithArgs(sqlmockAnyTime{}, sqlmockAnyTime{}, "cron:crawl", "not-the-owner").
			WillReturnResult(sqlmockResult(0))

		err := repo.Release("cron:crawl", "not-the-owner")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
