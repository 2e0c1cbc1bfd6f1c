package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func balanceRows(total, deposited, earnings, frozen string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "account_id", "currency", "total", "deposited", "earnings", "frozen", "created_at", "updated_at"}).
		AddRow(1, 7, "USDT", total, deposited, earnings, frozen, now, now)
}

func expectBalanceSelect(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT (.+) FROM "balances" WHERE`).WillReturnRows(rows)
}

func expectBalanceUpdate(mock sqlmock.Sqlmock, affected int64) {
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "balances" SET`).WillReturnResult(sqlmock.NewResult(0, affected))
	mock.ExpectCommit()
}

func TestDebitDrainsDepositedBeforeEarnings(t *testing.T) {
	db, mock := newMockDB(t)
	l := New(db)

	expectBalanceSelect(mock, balanceRows("100", "60", "40", "0"))
	expectBalanceUpdate(mock, 1)

	updated, err := l.Debit(context.Background(), 7, "USDT", dec("80"))
	if err != nil {
		t.Fatalf("unexpected debit error: %v", err)
	}

	if !updated.Total.Equal(dec("20")) {
		t.Fatalf("expected total 20, got %s", updated.Total)
	}
	if !updated.Deposited.Equal(dec("0")) {
		t.Fatalf("expected deposited 0, got %s", updated.Deposited)
	}
	if !updated.Earnings.Equal(dec("20")) {
		t.Fatalf("expected earnings 20, got %s", updated.Earnings)
	}
	if !updated.Total.Equal(updated.Deposited.Add(updated.Earnings)) {
		t.Fatalf("bucket invariant broken: %s != %s + %s", updated.Total, updated.Deposited, updated.Earnings)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDebitRejectsInsufficientAvailable(t *testing.T) {
	db, mock := newMockDB(t)
	l := New(db)

	// total 100 but 50 frozen, so only 50 available
	expectBalanceSelect(mock, balanceRows("100", "100", "0", "50"))

	_, err := l.Debit(context.Background(), 7, "USDT", dec("80"))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// no UPDATE may have been issued
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	db, _ := newMockDB(t)
	l := New(db)

	if _, err := l.Debit(context.Background(), 7, "USDT", dec("0")); err == nil {
		t.Fatal("expected error for zero debit")
	}
	if _, err := l.Debit(context.Background(), 7, "USDT", dec("-5")); err == nil {
		t.Fatal("expected error for negative debit")
	}
}

func TestCreditWinSplitsPrincipalAndProfit(t *testing.T) {
	db, mock := newMockDB(t)
	l := New(db)

	expectBalanceSelect(mock, balanceRows("20", "0", "20", "0"))
	expectBalanceUpdate(mock, 1)

	updated, err := l.CreditWin(context.Background(), 7, "USDT", dec("80"), dec("64"))
	if err != nil {
		t.Fatalf("unexpected credit error: %v", err)
	}

	if !updated.Total.Equal(dec("164")) {
		t.Fatalf("expected total 164, got %s", updated.Total)
	}
	if !updated.Deposited.Equal(dec("80")) {
		t.Fatalf("expected deposited 80, got %s", updated.Deposited)
	}
	if !updated.Earnings.Equal(dec("84")) {
		t.Fatalf("expected earnings 84, got %s", updated.Earnings)
	}
}

func TestCreditLossReturnsRemainderToDeposited(t *testing.T) {
	db, mock := newMockDB(t)
	l := New(db)

	expectBalanceSelect(mock, balanceRows("20", "10", "10", "0"))
	expectBalanceUpdate(mock, 1)

	updated, err := l.CreditLoss(context.Background(), 7, "USDT", dec("100"), dec("-80"))
	if err != nil {
		t.Fatalf("unexpected credit error: %v", err)
	}

	if !updated.Total.Equal(dec("40")) {
		t.Fatalf("expected total 40, got %s", updated.Total)
	}
	if !updated.Deposited.Equal(dec("30")) {
		t.Fatalf("expected deposited 30, got %s", updated.Deposited)
	}
	if !updated.Earnings.Equal(dec("10")) {
		t.Fatalf("expected earnings 10, got %s", updated.Earnings)
	}
}

func TestConcurrentModificationReturnsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	l := New(db)

	expectBalanceSelect(mock, balanceRows("100", "100", "0", "0"))
	expectBalanceUpdate(mock, 0)

	_, err := l.Debit(context.Background(), 7, "USDT", dec("10"))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
