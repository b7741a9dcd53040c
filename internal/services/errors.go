package services

import "errors"

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrOutOfStock is returned when a borrow is attempted against a book
	// with no loanable copies left.
	ErrOutOfStock = errors.New("no copies of this book are available")

	// ErrAlreadyReturned is returned when a return is attempted on a
	// transaction that has already been returned.
	ErrAlreadyReturned = errors.New("transaction already returned")

	// ErrAlreadyPaid is returned when a payment is attempted on a penalty
	// that has already been settled.
	ErrAlreadyPaid = errors.New("penalty already paid")

	// ErrForbidden is returned when a member touches a transaction or
	// penalty that belongs to someone else.
	ErrForbidden = errors.New("operation not permitted for this user")

	// ErrInvalidCredentials is returned on login with a wrong email/password
	// pair. The message deliberately does not say which half was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned when a bearer token fails verification or
	// has expired.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrEmailTaken is returned on registration with an email that already
	// has an account.
	ErrEmailTaken = errors.New("email is already registered")

	// ErrAuthorInUse / ErrCategoryInUse are returned when deleting a record
	// that books still reference.
	ErrAuthorInUse   = errors.New("author still has books in the catalogue")
	ErrCategoryInUse = errors.New("category still has books in the catalogue")

	ErrUserNotFound        = errors.New("user not found")
	ErrAuthorNotFound      = errors.New("author not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrBookNotFound        = errors.New("book not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrPenaltyNotFound     = errors.New("penalty not found")
)
