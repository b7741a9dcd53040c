package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryledger/internal/models"
	"libraryledger/internal/repositories"
)

// MemberStats is the per-user projection shown on the member dashboard.
type MemberStats struct {
	ActiveBorrows     int64   `json:"activeBorrows"`
	TotalTransactions int64   `json:"totalTransactions"`
	TotalPenalties    float64 `json:"totalPenalties"`
}

// AdminStats aggregates across the whole ledger.
type AdminStats struct {
	TotalBooks     int64   `json:"totalBooks"`
	TotalUsers     int64   `json:"totalUsers"`
	ActiveBorrows  int64   `json:"activeBorrows"`
	TotalPenalties float64 `json:"totalPenalties"`
}

// ReturnResult carries the outcome of a return: the closed transaction plus
// the penalty, if the return was late. Penalty is nil for on-time returns.
type ReturnResult struct {
	Transaction *models.BorrowTransaction
	Penalty     *models.Penalty
}

// LedgerService owns the borrow/return/penalty state machine. All mutations
// of the available counter and the transaction/penalty tables go through it.
type LedgerService interface {
	Borrow(userID, bookID uuid.UUID) (*models.BorrowTransaction, error)
	Return(transactionID, callerID uuid.UUID, asAdmin bool) (*ReturnResult, error)
	PayPenalty(penaltyID, callerID uuid.UUID, asAdmin bool) (*models.Penalty, error)

	ListTransactions() ([]models.BorrowTransaction, error)
	ListUserTransactions(userID uuid.UUID) ([]models.BorrowTransaction, error)
	DeleteTransaction(transactionID uuid.UUID) error

	ListPenalties() ([]models.Penalty, error)
	ListUserPenalties(userID uuid.UUID) ([]models.Penalty, error)
	DeletePenalty(penaltyID uuid.UUID) error

	UserStats(userID uuid.UUID) (*MemberStats, error)
	Stats() (*AdminStats, error)
}

type ledgerService struct {
	db          *gorm.DB
	userRepo    repositories.UserRepository
	bookRepo    repositories.BookRepository
	txRepo      repositories.TransactionRepository
	penaltyRepo repositories.PenaltyRepository

	loanPeriod  time.Duration
	penaltyUnit time.Duration
	penaltyRate float64
}

// NewLedgerService wires up the ledger. loanPeriod is how long a borrower may
// keep a book; penaltyRate is charged per started penaltyUnit of lateness.
func NewLedgerService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	bookRepo repositories.BookRepository,
	txRepo repositories.TransactionRepository,
	penaltyRepo repositories.PenaltyRepository,
	loanPeriod time.Duration,
	penaltyUnit time.Duration,
	penaltyRate float64,
) LedgerService {
	return &ledgerService{
		db:          db,
		userRepo:    userRepo,
		bookRepo:    bookRepo,
		txRepo:      txRepo,
		penaltyRepo: penaltyRepo,
		loanPeriod:  loanPeriod,
		penaltyUnit: penaltyUnit,
		penaltyRate: penaltyRate,
	}
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

// Borrow takes one copy of a book for a user.
//
// The decrement of the available counter and the creation of the transaction
// happen inside one DB transaction, with a guarded conditional UPDATE
// (available > 0) as the serialization point: of two concurrent borrows
// racing for the last copy, exactly one sees a row affected and wins; the
// other gets ErrOutOfStock. No interleaving can observe a decremented
// counter without its transaction, or vice versa.
func (s *ledgerService) Borrow(userID, bookID uuid.UUID) (*models.BorrowTransaction, error) {
	var created *models.BorrowTransaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.userRepo.GetByID(tx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		rows, err := s.bookRepo.DecrementAvailable(tx, bookID)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Distinguish a missing book from an exhausted one.
			if _, err := s.bookRepo.GetByID(tx, bookID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrBookNotFound
				}
				return err
			}
			return ErrOutOfStock
		}

		now := time.Now().UTC()
		loan := &models.BorrowTransaction{
			UserID:     userID,
			BookID:     bookID,
			BorrowDate: now,
			ReturnDate: now.Add(s.loanPeriod),
		}
		if err := s.txRepo.Create(tx, loan); err != nil {
			log.Printf("[ERROR] Borrow: failed to create transaction for user %s / book %s: %v", userID, bookID, err)
			return err
		}
		created = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] Borrow: transaction %s created for user %s / book %s, due %s",
		created.ID, userID, bookID, created.ReturnDate.Format(time.RFC3339))
	return created, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// Return closes an Active transaction, releases the copy, and creates a
// penalty when the book comes back after its due date.
//
// The Active→Returned flip uses a guarded UPDATE (real_return_date IS NULL),
// so a double return loses the race and gets ErrAlreadyReturned without
// touching the counter. The penalty insert shares the DB transaction with the
// flip, which is what bounds penalties to at most one per loan: only the
// caller that actually performed the flip ever reaches the insert.
func (s *ledgerService) Return(transactionID, callerID uuid.UUID, asAdmin bool) (*ReturnResult, error) {
	var result ReturnResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.txRepo.GetByID(tx, transactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}
		if !asAdmin && loan.UserID != callerID {
			return ErrForbidden
		}

		now := time.Now().UTC()
		rows, err := s.txRepo.MarkReturned(tx, transactionID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			log.Printf("[WARN] Return: transaction %s already returned", transactionID)
			return ErrAlreadyReturned
		}

		incremented, err := s.bookRepo.IncrementAvailable(tx, loan.BookID)
		if err != nil {
			return err
		}
		if incremented == 0 {
			// Counter is already at stock_number; refusing the increment
			// keeps available <= stock_number even if stock was edited down
			// while the loan was out.
			log.Printf("[WARN] Return: available for book %s already at stock, increment skipped", loan.BookID)
		}

		if units := lateUnits(loan.ReturnDate, now, s.penaltyUnit); units > 0 {
			penalty := &models.Penalty{
				TransactionID: loan.ID,
				NumberOfDay:   units,
				Amount:        float64(units) * s.penaltyRate,
			}
			if err := s.penaltyRepo.Create(tx, penalty); err != nil {
				log.Printf("[ERROR] Return: failed to create penalty for transaction %s: %v", transactionID, err)
				return err
			}
			result.Penalty = penalty
			log.Printf("[INFO] Return: transaction %s returned %d unit(s) late, penalty %s amount %.2f",
				transactionID, units, penalty.ID, penalty.Amount)
		}

		loan.RealReturnDate = &now
		result.Transaction = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] Return: transaction %s closed for user %s", transactionID, result.Transaction.UserID)
	return &result, nil
}

// ─── Pay ──────────────────────────────────────────────────────────────────────

// PayPenalty settles an unpaid penalty. Members may only pay their own; the
// Unpaid→Paid flip is a guarded UPDATE so paying twice fails with
// ErrAlreadyPaid and never alters the amount.
func (s *ledgerService) PayPenalty(penaltyID, callerID uuid.UUID, asAdmin bool) (*models.Penalty, error) {
	var paid *models.Penalty

	err := s.db.Transaction(func(tx *gorm.DB) error {
		penalty, err := s.penaltyRepo.GetByID(tx, penaltyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPenaltyNotFound
			}
			return err
		}
		if !asAdmin && penalty.Transaction.UserID != callerID {
			return ErrForbidden
		}

		rows, err := s.penaltyRepo.MarkPaid(tx, penaltyID)
		if err != nil {
			return err
		}
		if rows == 0 {
			log.Printf("[WARN] PayPenalty: penalty %s already paid", penaltyID)
			return ErrAlreadyPaid
		}

		penalty.Paid = true
		paid = penalty
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] PayPenalty: penalty %s settled, amount %.2f", penaltyID, paid.Amount)
	return paid, nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

func (s *ledgerService) ListTransactions() ([]models.BorrowTransaction, error) {
	return s.txRepo.List(nil)
}

func (s *ledgerService) ListUserTransactions(userID uuid.UUID) ([]models.BorrowTransaction, error) {
	return s.txRepo.ListByUser(nil, userID)
}

func (s *ledgerService) ListPenalties() ([]models.Penalty, error) {
	return s.penaltyRepo.List(nil)
}

func (s *ledgerService) ListUserPenalties(userID uuid.UUID) ([]models.Penalty, error) {
	return s.penaltyRepo.ListByUser(nil, userID)
}

// DeleteTransaction is an admin cleanup operation. Penalties hanging off the
// transaction go with it, and an active loan releases its copy on the way out
// so the available counter stays truthful.
func (s *ledgerService) DeleteTransaction(transactionID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.txRepo.GetByID(tx, transactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}
		if err := s.penaltyRepo.DeleteByTransaction(tx, transactionID); err != nil {
			return err
		}
		if !loan.IsReturned() {
			if _, err := s.bookRepo.IncrementAvailable(tx, loan.BookID); err != nil {
				return err
			}
		}
		if err := s.txRepo.Delete(tx, transactionID); err != nil {
			return err
		}
		log.Printf("[INFO] DeleteTransaction: transaction %s removed", transactionID)
		return nil
	})
}

func (s *ledgerService) DeletePenalty(penaltyID uuid.UUID) error {
	if _, err := s.penaltyRepo.GetByID(nil, penaltyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPenaltyNotFound
		}
		return err
	}
	return s.penaltyRepo.Delete(nil, penaltyID)
}

// UserStats is a pure projection; nothing is mutated.
func (s *ledgerService) UserStats(userID uuid.UUID) (*MemberStats, error) {
	active, err := s.txRepo.CountActiveByUser(nil, userID)
	if err != nil {
		return nil, err
	}
	total, err := s.txRepo.CountByUser(nil, userID)
	if err != nil {
		return nil, err
	}
	unpaid, err := s.penaltyRepo.SumUnpaidByUser(nil, userID)
	if err != nil {
		return nil, err
	}
	return &MemberStats{
		ActiveBorrows:     active,
		TotalTransactions: total,
		TotalPenalties:    unpaid,
	}, nil
}

func (s *ledgerService) Stats() (*AdminStats, error) {
	books, err := s.bookRepo.Count(nil)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.Count(nil)
	if err != nil {
		return nil, err
	}
	active, err := s.txRepo.CountActive(nil)
	if err != nil {
		return nil, err
	}
	unpaid, err := s.penaltyRepo.SumUnpaid(nil)
	if err != nil {
		return nil, err
	}
	return &AdminStats{
		TotalBooks:     books,
		TotalUsers:     users,
		ActiveBorrows:  active,
		TotalPenalties: unpaid,
	}, nil
}

// ─── Lateness ─────────────────────────────────────────────────────────────────

// lateUnits counts started units of lateness: 0 for an on-time return,
// otherwise ceil(lateness / unit) with a minimum of 1.
func lateUnits(dueDate, returnedAt time.Time, unit time.Duration) int {
	if !returnedAt.After(dueDate) {
		return 0
	}
	late := returnedAt.Sub(dueDate)
	units := int(late / unit)
	if late%unit != 0 {
		units++
	}
	if units < 1 {
		units = 1
	}
	return units
}
