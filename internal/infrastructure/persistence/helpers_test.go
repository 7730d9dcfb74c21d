package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/realestate/backend/internal/domain/financing"
	"github.com/realestate/backend/internal/infrastructure/persistence/models"
)

// setupTestDB opens an in-memory SQLite database with the financing schema.
// A single connection keeps the in-memory database alive across queries.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.FinancingModel{},
		&models.InstallmentModel{},
		&models.PaymentModel{},
		&models.AllocationModel{},
		&models.AmendmentModel{},
	))
	return db
}

// newMockDatabase creates a Database backed by sqlmock with the postgres dialect
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return &Database{DB: gormDB}, mock, mockDB
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newTestFinancing builds LOT 3000 in 3 installments from 2024-02-01 and,
// when withHu is set, HU 600 in 2 installments from 2024-03-01.
func newTestFinancing(t *testing.T, tenantID uuid.UUID, withHu bool) *financing.Financing {
	t.Helper()
	terms := financing.FinancingTerms{
		Lot: financing.StreamTerms{
			Principal:    decimal.NewFromInt(3000),
			Quantity:     3,
			FirstDueDate: date(2024, 2, 1),
		},
	}
	if withHu {
		terms.Hu = &financing.StreamTerms{
			Principal:    decimal.NewFromInt(600),
			Quantity:     2,
			FirstDueDate: date(2024, 3, 1),
		}
	}
	f, err := financing.NewFinancing(tenantID, uuid.New(), date(2024, 1, 10), terms)
	require.NoError(t, err)
	f.ClearDomainEvents()
	return f
}

func newTestPayment(t *testing.T, f *financing.Financing, amount int64) *financing.Payment {
	t.Helper()
	p, err := financing.NewManualPayment(f.TenantID, f.ID, financing.PaymentInput{
		Amount:        decimal.NewFromInt(amount),
		OperationDate: date(2024, 2, 5),
		Reference:     "REF-" + uuid.NewString()[:8],
		CodeOperation: "OP-" + uuid.NewString()[:8],
		BankName:      "BCP",
	})
	require.NoError(t, err)
	return p
}
