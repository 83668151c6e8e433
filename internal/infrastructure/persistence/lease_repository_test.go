package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockLeaseRepository(t *testing.T) (*GormLeaseRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormLeaseRepository(gormDB), mock, mockDB
}

func reconciliationFixtures(t *testing.T) (*leasing.Lease, *leasing.Unit) {
	t.Helper()
	orgID := uuid.New()

	unit, err := leasing.NewUnit(orgID, uuid.New(), "4B", 2, decimal.NewFromFloat(1.5), 850, decimal.NewFromFloat(1800))
	require.NoError(t, err)

	lease, err := leasing.NewLease(
		orgID, unit.PropertyID, unit.ID, uuid.New(),
		time.Now(), time.Now().AddDate(1, 0, 0),
		decimal.NewFromFloat(1800), decimal.NewFromFloat(1800),
	)
	require.NoError(t, err)

	return lease, unit
}

func TestGormLeaseRepository_FindActiveByUnit(t *testing.T) {
	t.Run("returns nil without error when vacant", func(t *testing.T) {
		repo, mock, mockDB := newMockLeaseRepository(t)
		defer mockDB.Close()

		unitID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "leases" WHERE unit_id = \$1 AND status = \$2`).
			WithArgs(unitID, string(leasing.LeaseStatusActive), 1).
			WillReturnError(gorm.ErrRecordNotFound)

		lease, err := repo.FindActiveByUnit(context.Background(), unitID)

		assert.NoError(t, err)
		assert.Nil(t, lease)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLeaseRepository_SaveWithReconciliation(t *testing.T) {
	t.Run("commits lease, unit and listing removal together", func(t *testing.T) {
		repo, mock, mockDB := newMockLeaseRepository(t)
		defer mockDB.Close()

		lease, unit := reconciliationFixtures(t)
		lease.Version = 3
		unit.Version = 2
		lst := &listing.Listing{}
		lst.ID = uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "leases" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "units" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM "listings"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.SaveWithReconciliation(context.Background(), lease, unit, lst)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips listing delete when no listing is passed", func(t *testing.T) {
		repo, mock, mockDB := newMockLeaseRepository(t)
		defer mockDB.Close()

		lease, unit := reconciliationFixtures(t)
		lease.Version = 3
		unit.Version = 2

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "leases" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "units" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.SaveWithReconciliation(context.Background(), lease, unit, nil)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back everything when the unit write conflicts", func(t *testing.T) {
		repo, mock, mockDB := newMockLeaseRepository(t)
		defer mockDB.Close()

		lease, unit := reconciliationFixtures(t)
		lease.Version = 3
		unit.Version = 2
		lst := &listing.Listing{}
		lst.ID = uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "leases" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "units" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SaveWithReconciliation(context.Background(), lease, unit, lst)

		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
