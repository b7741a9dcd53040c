package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"libraryledger/internal/models"
	"libraryledger/internal/repositories"
)

// Shared fixture plumbing for the service tests. Everything runs against an
// in-memory SQLite database on a single connection.

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// The in-memory database lives on one connection; a second connection
	// would see a different, empty database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Author{},
		&models.Category{},
		&models.Book{},
		&models.BorrowTransaction{},
		&models.Penalty{},
	))
	return db
}

type fixture struct {
	db           *gorm.DB
	userRepo     repositories.UserRepository
	authorRepo   repositories.AuthorRepository
	categoryRepo repositories.CategoryRepository
	bookRepo     repositories.BookRepository
	txRepo       repositories.TransactionRepository
	penaltyRepo  repositories.PenaltyRepository

	ledger  LedgerService
	catalog CatalogService
	auth    AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	f := &fixture{
		db:           db,
		userRepo:     repositories.NewUserRepository(db),
		authorRepo:   repositories.NewAuthorRepository(db),
		categoryRepo: repositories.NewCategoryRepository(db),
		bookRepo:     repositories.NewBookRepository(db),
		txRepo:       repositories.NewTransactionRepository(db),
		penaltyRepo:  repositories.NewPenaltyRepository(db),
	}
	f.ledger = NewLedgerService(db, f.userRepo, f.bookRepo, f.txRepo, f.penaltyRepo,
		time.Minute, time.Minute, 5)
	f.catalog = NewCatalogService(db, f.userRepo, f.authorRepo, f.categoryRepo, f.bookRepo, f.txRepo)
	f.auth = NewAuthService(db, f.userRepo, "test-secret", time.Hour)
	return f
}

func (f *fixture) createUser(t *testing.T, email string, role models.UserRole) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		FullName:     "Test User",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, f.userRepo.Create(nil, user))
	return user
}

func (f *fixture) createBook(t *testing.T, title string, stock int) *models.Book {
	t.Helper()

	author := &models.Author{Name: "Halide", LastName: "Adıvar", Country: "Türkiye"}
	require.NoError(t, f.authorRepo.Create(nil, author))
	category := &models.Category{Name: "Novel"}
	require.NoError(t, f.categoryRepo.Create(nil, category))

	book, err := f.catalog.CreateBook(title, author.ID, category.ID, stock, 1936)
	require.NoError(t, err)
	return book
}

func (f *fixture) reloadBook(t *testing.T, book *models.Book) *models.Book {
	t.Helper()
	reloaded, err := f.bookRepo.GetByID(nil, book.ID)
	require.NoError(t, err)
	return reloaded
}

// backdateDue moves a transaction's due date into the past so a return can be
// exercised as late without sleeping through a real loan period.
func (f *fixture) backdateDue(t *testing.T, tx *models.BorrowTransaction, by time.Duration) {
	t.Helper()
	err := f.db.Model(&models.BorrowTransaction{}).
		Where("id = ?", tx.ID).
		Update("return_date", time.Now().UTC().Add(-by)).Error
	require.NoError(t, err)
}
