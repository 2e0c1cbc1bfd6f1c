package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"optiondesk/src/model"
)

var (
	// ErrInsufficientBalance rejects a debit that would push the available
	// balance (total - frozen) below zero.
	ErrInsufficientBalance = errors.New("insufficient available balance")

	// ErrConflict reports that the balance row changed between read and
	// conditional write. Callers run inside a transaction, so the whole unit
	// rolls back and may be retried.
	ErrConflict = errors.New("balance row modified concurrently")
)

// Ledger performs the atomic balance mutations for one (account, currency)
// row. Every write is a read followed by a conditional update on the
// previously observed total; zero rows affected means a concurrent writer
// got there first. The dual-bucket invariant total = deposited + earnings is
// maintained by each operation, never recomputed elsewhere.
type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithDB scopes the ledger to a specific session or transaction.
func (l *Ledger) WithDB(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// GetOrCreate returns the balance row for (accountID, currency), creating a
// zeroed one on first use.
func (l *Ledger) GetOrCreate(ctx context.Context, accountID uint, currency string) (*model.Balance, error) {
	var balance model.Balance

	err := l.db.WithContext(ctx).
		Where(model.Balance{AccountID: accountID, Currency: currency}).
		FirstOrCreate(&balance).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"account_id": accountID,
			"currency":   currency,
		}).WithError(err).Error("Failed to load balance row")
		return nil, err
	}

	return &balance, nil
}

// Debit removes amount from the balance at trade open. The deposited bucket
// is drained first; any remainder comes out of earnings. Fails without
// mutating when available < amount.
func (l *Ledger) Debit(ctx context.Context, accountID uint, currency string, amount decimal.Decimal) (*model.Balance, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("debit amount must be positive, got %s", amount)
	}

	balance, err := l.GetOrCreate(ctx, accountID, currency)
	if err != nil {
		return nil, err
	}

	if balance.Available().LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	fromDeposited := decimal.Min(balance.Deposited, amount)
	fromEarnings := amount.Sub(fromDeposited)

	updated := *balance
	updated.Deposited = balance.Deposited.Sub(fromDeposited)
	updated.Earnings = balance.Earnings.Sub(fromEarnings)
	updated.Total = balance.Total.Sub(amount)

	if err := l.apply(ctx, balance, &updated); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"account_id": accountID,
		"currency":   currency,
		"amount":     amount,
		"total":      updated.Total,
	}).Debug("Balance debited")

	return &updated, nil
}

// CreditWin returns the principal to the deposited bucket and books the
// profit into earnings at settlement of a won trade.
func (l *Ledger) CreditWin(ctx context.Context, accountID uint, currency string, stake, pnl decimal.Decimal) (*model.Balance, error) {
	balance, err := l.GetOrCreate(ctx, accountID, currency)
	if err != nil {
		return nil, err
	}

	updated := *balance
	updated.Total = balance.Total.Add(stake).Add(pnl)
	updated.Deposited = balance.Deposited.Add(stake)
	updated.Earnings = balance.Earnings.Add(pnl)

	if err := l.apply(ctx, balance, &updated); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"account_id": accountID,
		"currency":   currency,
		"stake":      stake,
		"pnl":        pnl,
		"total":      updated.Total,
	}).Debug("Balance credited for win")

	return &updated, nil
}

// CreditLoss returns the surviving remainder of the stake to the deposited
// bucket at settlement of a lost trade; the lost portion is gone.
func (l *Ledger) CreditLoss(ctx context.Context, accountID uint, currency string, stake, pnl decimal.Decimal) (*model.Balance, error) {
	balance, err := l.GetOrCreate(ctx, accountID, currency)
	if err != nil {
		return nil, err
	}

	remainder := stake.Sub(pnl.Abs())
	if remainder.IsNegative() {
		remainder = decimal.Zero
	}

	updated := *balance
	updated.Total = balance.Total.Add(remainder)
	updated.Deposited = balance.Deposited.Add(remainder)

	if err := l.apply(ctx, balance, &updated); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"account_id": accountID,
		"currency":   currency,
		"stake":      stake,
		"pnl":        pnl,
		"total":      updated.Total,
	}).Debug("Balance credited for loss")

	return &updated, nil
}

// apply writes the new bucket values, guarded by the total observed at read
// time. RowsAffected is the concurrency gate.
func (l *Ledger) apply(ctx context.Context, prev, next *model.Balance) error {
	res := l.db.WithContext(ctx).
		Model(&model.Balance{}).
		Where("id = ? AND total = ?", prev.ID, prev.Total).
		Updates(map[string]interface{}{
			"total":     next.Total,
			"deposited": next.Deposited,
			"earnings":  next.Earnings,
		})

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"balance_id": prev.ID,
		}).WithError(res.Error).Error("Failed to update balance row")
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrConflict
	}

	return nil
}
