package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryledger/internal/models"
)

func TestBorrow_DecrementsAvailableAndCreatesActiveTransaction(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)
	book := f.createBook(t, "Sinekli Bakkal", 2)

	loan, err := f.ledger.Borrow(user.ID, book.ID)
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStateActive, loan.State())
	assert.Equal(t, user.ID, loan.UserID)
	assert.Equal(t, book.ID, loan.BookID)
	assert.True(t, loan.ReturnDate.After(loan.BorrowDate))

	reloaded := f.reloadBook(t, book)
	assert.Equal(t, 1, reloaded.Available)
	assert.Equal(t, 2, reloaded.StockNumber)
}

func TestBorrow_OutOfStockDoesNotMutateState(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)
	other := f.createUser(t, "other@example.com", models.UserRoleMember)
	book := f.createBook(t, "Sinekli Bakkal", 1)

	_, err := f.ledger.Borrow(user.ID, book.ID)
	require.NoError(t, err)

	_, err = f.ledger.Borrow(other.ID, book.ID)
	assert.ErrorIs(t, err, ErrOutOfStock)

	reloaded := f.reloadBook(t, book)
	assert.Equal(t, 0, reloaded.Available)

	txs, err := f.ledger.ListTransactions()
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestBorrow_UnknownBookAndUser(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)
	book := f.createBook(t, "Sinekli Bakkal", 1)

	_, err := f.ledger.Borrow(user.ID, uuid.New())
	assert.ErrorIs(t, err, ErrBookNotFound)

	_, err = f.ledger.Borrow(uuid.New(), book.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	reloaded := f.reloadBook(t, book)
	assert.Equal(t, 1, reloaded.Available)
}

func TestBorrow_LastCopyHasExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	first := f.createUser(t, "first@example.com", models.UserRoleMember)
	second := f.createUser(t, "second@example.com", models.UserRoleMember)
	book := f.createBook(t, "Sinekli Bakkal", 1)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.ledger.Borrow(first.ID, book.ID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.ledger.Borrow(second.ID, book.ID)
	}()
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case assert.ErrorIs(t, err, ErrOutOfStock):
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	reloaded := f.reloadBook(t, book)
	assert.Equal(t, 0, reloaded.Available)
}

func TestReturn_OnTimeCreatesNoPenalty(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)
	book := f.createBook(t, "Sinekli Bakkal", 1)

	loan, err := f.ledger.Borrow(user.ID, book.ID)
	require.NoError(t, err)

	result, err := f.ledger.Return(loan.ID, user.ID, false)
	require.NoError(t, err)
	assert.Nil(t, result.Penalty)
	assert.Equal(t, models.TransactionStateReturned, result.Transaction.State())
	require.NotNil(t, result.Transaction.RealReturnDate)

	reloaded := f.reloadBook(t, book)
	assert.Equal(t, 1, reloaded.Available)

	penalties, err := f.ledger.ListPenalties()
	require.NoError(t, err)
	assert.Empty(t, penalties)
}

func TestReturn_LateCreatesExactlyOnePenalty(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)
	book := f.createBook(t, "Sinekli Bakkal", 1)

	loan, err := f.ledger.Borrow(user.ID, book.ID)
	require.NoError(t, err)
	// 2.5 units past due rounds up to 3 started units.
	f.backdateDue(t, loan, 150*time.Second)

	result, err := f.ledger.Return(loan.ID, user.ID, false)
	require.NoError(t, err)
	require.NotNil(t, result.Penalty)
	assert.Equal(t, 3, result.Penalty.NumberOfDay)
	assert.Equal(t, 15.0, result.Penalty.Amount)
	assert.False(t, result.Penalty.Paid)

	penalties, err := f.ledger.ListUserPenalties(user.ID)
	require.NoError(t, err)
	assert.Len(t, penalties, 1)
}

func TestReturn_TwiceFailsAndIncrementsOnce(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)
	book := f.createBook(t, "Sinekli Bakkal", 2)

	loan, err := f.ledger.Borrow(user.ID, book.ID)
	require.NoError(t, err)

	_, err = f.ledger.Return(loan.ID, user.ID, false)
	require.NoError(t, err)

	_, err = f.ledger.Return(loan.ID, user.ID, false)
	assert.ErrorIs(t, err, ErrAlreadyReturned)

	reloaded := f.reloadBook(t, book)
	assert.Equal(t, 2, reloaded.Available)
}

func TestReturn_ForeignTransactionIsForbidden(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "owner@example.com", models.UserRoleMember)
	intruder := f.createUser(t, "intruder@example.com", models.UserRoleMember)
	admin := f.createUser(t, "admin@example.com", models.UserRoleAdmin)
	book := f.createBook(t, "Sinekli Bakkal", 1)

	loan, err := f.ledger.Borrow(owner.ID, book.ID)
	require.NoError(t, err)

	_, err = f.ledger.Return(loan.ID, intruder.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	// An admin may close any member's loan.
	_, err = f.ledger.Return(loan.ID, admin.ID, true)
	assert.NoError(t, err)
}

func TestReturn_UnknownTransaction(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)

	_, err := f.ledger.Return(uuid.New(), user.ID, false)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestPayPenalty_GuardsOwnershipAndDoublePayment(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)
	intruder := f.createUser(t, "intruder@example.com", models.UserRoleMember)
	book := f.createBook(t, "Sinekli Bakkal", 1)

	loan, err := f.ledger.Borrow(user.ID, book.ID)
	require.NoError(t, err)
	f.backdateDue(t, loan, 90*time.Second)

	result, err := f.ledger.Return(loan.ID, user.ID, false)
	require.NoError(t, err)
	require.NotNil(t, result.Penalty)

	_, err = f.ledger.PayPenalty(result.Penalty.ID, intruder.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	paid, err := f.ledger.PayPenalty(result.Penalty.ID, user.ID, false)
	require.NoError(t, err)
	assert.True(t, paid.Paid)

	_, err = f.ledger.PayPenalty(result.Penalty.ID, user.ID, false)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	// The amount is untouched by the failed re-payment.
	penalties, err := f.ledger.ListUserPenalties(user.ID)
	require.NoError(t, err)
	require.Len(t, penalties, 1)
	assert.Equal(t, paid.Amount, penalties[0].Amount)
	assert.True(t, penalties[0].Paid)
}

func TestPayPenalty_Unknown(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)

	_, err := f.ledger.PayPenalty(uuid.New(), user.ID, false)
	assert.ErrorIs(t, err, ErrPenaltyNotFound)
}

// Full walk through the lifecycle: borrow, late return at rate 5, pay, re-pay.
func TestLedger_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)
	book := f.createBook(t, "Sinekli Bakkal", 2)

	loan, err := f.ledger.Borrow(user.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.reloadBook(t, book).Available)
	assert.Equal(t, models.TransactionStateActive, loan.State())

	// Return three units after the due window.
	f.backdateDue(t, loan, 150*time.Second)
	result, err := f.ledger.Return(loan.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.reloadBook(t, book).Available)
	require.NotNil(t, result.Penalty)
	assert.Equal(t, 3, result.Penalty.NumberOfDay)
	assert.Equal(t, 15.0, result.Penalty.Amount)
	assert.False(t, result.Penalty.Paid)

	paid, err := f.ledger.PayPenalty(result.Penalty.ID, user.ID, false)
	require.NoError(t, err)
	assert.True(t, paid.Paid)

	_, err = f.ledger.PayPenalty(result.Penalty.ID, user.ID, false)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestUserStats_CountsActiveLoansAndUnpaidPenalties(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)
	book := f.createBook(t, "Sinekli Bakkal", 3)

	// One active loan, one late-returned loan with an unpaid penalty.
	_, err := f.ledger.Borrow(user.ID, book.ID)
	require.NoError(t, err)

	late, err := f.ledger.Borrow(user.ID, book.ID)
	require.NoError(t, err)
	f.backdateDue(t, late, 90*time.Second)
	result, err := f.ledger.Return(late.ID, user.ID, false)
	require.NoError(t, err)
	require.NotNil(t, result.Penalty)

	stats, err := f.ledger.UserStats(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ActiveBorrows)
	assert.Equal(t, int64(2), stats.TotalTransactions)
	assert.Equal(t, result.Penalty.Amount, stats.TotalPenalties)

	// Paying clears the unpaid sum.
	_, err = f.ledger.PayPenalty(result.Penalty.ID, user.ID, false)
	require.NoError(t, err)
	stats, err = f.ledger.UserStats(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.TotalPenalties)
}

func TestStats_AggregatesAcrossLedger(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)
	f.createUser(t, "admin@example.com", models.UserRoleAdmin)
	book := f.createBook(t, "Sinekli Bakkal", 2)

	_, err := f.ledger.Borrow(user.ID, book.ID)
	require.NoError(t, err)

	stats, err := f.ledger.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalBooks)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.ActiveBorrows)
	assert.Equal(t, 0.0, stats.TotalPenalties)
}

func TestDeleteTransaction_ReleasesActiveCopyAndPenalties(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "member@example.com", models.UserRoleMember)
	book := f.createBook(t, "Sinekli Bakkal", 1)

	loan, err := f.ledger.Borrow(user.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.reloadBook(t, book).Available)

	require.NoError(t, f.ledger.DeleteTransaction(loan.ID))
	assert.Equal(t, 1, f.reloadBook(t, book).Available)

	txs, err := f.ledger.ListTransactions()
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestLateUnits(t *testing.T) {
	due := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		returnedAt time.Time
		want       int
	}{
		{"early", due.Add(-time.Minute), 0},
		{"exactly_on_time", due, 0},
		{"one_second_late", due.Add(time.Second), 1},
		{"just_under_one_unit", due.Add(59 * time.Second), 1},
		{"exactly_one_unit", due.Add(time.Minute), 1},
		{"one_unit_and_a_bit", due.Add(61 * time.Second), 2},
		{"two_and_a_half_units", due.Add(150 * time.Second), 3},
		{"exactly_three_units", due.Add(3 * time.Minute), 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, lateUnits(due, tc.returnedAt, time.Minute))
		})
	}
}
