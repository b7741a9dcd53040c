package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryledger/internal/models"
)

// Every method takes an optional *gorm.DB so the same repository can be used
// standalone or inside a service-level transaction; nil falls back to the
// repository's own handle.

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByEmail(db *gorm.DB, email string) (*models.User, error)
	List(db *gorm.DB) ([]models.User, error)
	Update(db *gorm.DB, user *models.User) error
	Delete(db *gorm.DB, id uuid.UUID) error
	Count(db *gorm.DB) (int64, error)
}

type AuthorRepository interface {
	Create(db *gorm.DB, author *models.Author) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Author, error)
	List(db *gorm.DB) ([]models.Author, error)
	Update(db *gorm.DB, author *models.Author) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type CategoryRepository interface {
	Create(db *gorm.DB, category *models.Category) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Category, error)
	List(db *gorm.DB) ([]models.Category, error)
	Update(db *gorm.DB, category *models.Category) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	List(db *gorm.DB) ([]models.Book, error)
	Update(db *gorm.DB, book *models.Book) error
	Delete(db *gorm.DB, id uuid.UUID) error
	Count(db *gorm.DB) (int64, error)
	CountByAuthor(db *gorm.DB, authorID uuid.UUID) (int64, error)
	CountByCategory(db *gorm.DB, categoryID uuid.UUID) (int64, error)

	// DecrementAvailable conditionally takes one copy; zero affected rows
	// means the book is out of stock (or missing). This guarded update is the
	// serialization point for concurrent borrows.
	DecrementAvailable(db *gorm.DB, id uuid.UUID) (int64, error)
	// IncrementAvailable gives one copy back, capped at stock_number.
	IncrementAvailable(db *gorm.DB, id uuid.UUID) (int64, error)
}

type TransactionRepository interface {
	Create(db *gorm.DB, tx *models.BorrowTransaction) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.BorrowTransaction, error)
	List(db *gorm.DB) ([]models.BorrowTransaction, error)
	ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.BorrowTransaction, error)
	CountActive(db *gorm.DB) (int64, error)
	CountActiveByUser(db *gorm.DB, userID uuid.UUID) (int64, error)
	CountActiveByBook(db *gorm.DB, bookID uuid.UUID) (int64, error)
	CountByUser(db *gorm.DB, userID uuid.UUID) (int64, error)
	// MarkReturned flips an Active transaction to Returned; zero affected
	// rows means it was already returned.
	MarkReturned(db *gorm.DB, id uuid.UUID, returnedAt time.Time) (int64, error)
	Delete(db *gorm.DB, id uuid.UUID) error
}

type PenaltyRepository interface {
	Create(db *gorm.DB, penalty *models.Penalty) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Penalty, error)
	List(db *gorm.DB) ([]models.Penalty, error)
	ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Penalty, error)
	SumUnpaid(db *gorm.DB) (float64, error)
	SumUnpaidByUser(db *gorm.DB, userID uuid.UUID) (float64, error)
	// MarkPaid settles an unpaid penalty; zero affected rows means it was
	// already paid.
	MarkPaid(db *gorm.DB, id uuid.UUID) (int64, error)
	Delete(db *gorm.DB, id uuid.UUID) error
	DeleteByTransaction(db *gorm.DB, transactionID uuid.UUID) error
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(db *gorm.DB) ([]models.User, error) {
	if db == nil {
		db = r.db
	}
	var users []models.User
	if err := db.Order("full_name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Update(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Save(user).Error
}

func (r *userRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.User{}, "id = ?", id).Error
}

func (r *userRepository) Count(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.User{}).Count(&n).Error
	return n, err
}

type authorRepository struct {
	db *gorm.DB
}

func NewAuthorRepository(db *gorm.DB) AuthorRepository {
	return &authorRepository{db: db}
}

func (r *authorRepository) Create(db *gorm.DB, author *models.Author) error {
	if db == nil {
		db = r.db
	}
	return db.Create(author).Error
}

func (r *authorRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Author, error) {
	if db == nil {
		db = r.db
	}
	var author models.Author
	if err := db.First(&author, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *authorRepository) List(db *gorm.DB) ([]models.Author, error) {
	if db == nil {
		db = r.db
	}
	var authors []models.Author
	if err := db.Order("last_name, name").Find(&authors).Error; err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *authorRepository) Update(db *gorm.DB, author *models.Author) error {
	if db == nil {
		db = r.db
	}
	return db.Save(author).Error
}

func (r *authorRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Author{}, "id = ?", id).Error
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(db *gorm.DB, category *models.Category) error {
	if db == nil {
		db = r.db
	}
	return db.Create(category).Error
}

func (r *categoryRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Category, error) {
	if db == nil {
		db = r.db
	}
	var category models.Category
	if err := db.First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(db *gorm.DB) ([]models.Category, error) {
	if db == nil {
		db = r.db
	}
	var categories []models.Category
	if err := db.Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) Update(db *gorm.DB, category *models.Category) error {
	if db == nil {
		db = r.db
	}
	return db.Save(category).Error
}

func (r *categoryRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Category{}, "id = ?", id).Error
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.Preload("Author").Preload("Category").First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	err := db.Preload("Author").Preload("Category").Order("title").Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) Update(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Save(book).Error
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Book{}, "id = ?", id).Error
}

func (r *bookRepository) Count(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.Book{}).Count(&n).Error
	return n, err
}

func (r *bookRepository) CountByAuthor(db *gorm.DB, authorID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.Book{}).Where("author_id = ?", authorID).Count(&n).Error
	return n, err
}

func (r *bookRepository) CountByCategory(db *gorm.DB, categoryID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.Book{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

func (r *bookRepository) DecrementAvailable(db *gorm.DB, id uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ? AND available > 0", id).
		UpdateColumn("available", gorm.Expr("available - 1"))
	return res.RowsAffected, res.Error
}

func (r *bookRepository) IncrementAvailable(db *gorm.DB, id uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ? AND available < stock_number", id).
		UpdateColumn("available", gorm.Expr("available + 1"))
	return res.RowsAffected, res.Error
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(db *gorm.DB, tx *models.BorrowTransaction) error {
	if db == nil {
		db = r.db
	}
	return db.Create(tx).Error
}

func (r *transactionRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.BorrowTransaction, error) {
	if db == nil {
		db = r.db
	}
	var tx models.BorrowTransaction
	err := db.Preload("Book").Preload("User").First(&tx, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) List(db *gorm.DB) ([]models.BorrowTransaction, error) {
	if db == nil {
		db = r.db
	}
	var txs []models.BorrowTransaction
	err := db.Preload("Book").Preload("User").Order("borrow_date DESC").Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *transactionRepository) ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.BorrowTransaction, error) {
	if db == nil {
		db = r.db
	}
	var txs []models.BorrowTransaction
	err := db.Preload("Book").Preload("User").
		Where("user_id = ?", userID).
		Order("borrow_date DESC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *transactionRepository) CountActive(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.BorrowTransaction{}).
		Where("real_return_date IS NULL").
		Count(&n).Error
	return n, err
}

func (r *transactionRepository) CountActiveByUser(db *gorm.DB, userID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.BorrowTransaction{}).
		Where("user_id = ? AND real_return_date IS NULL", userID).
		Count(&n).Error
	return n, err
}

func (r *transactionRepository) CountActiveByBook(db *gorm.DB, bookID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.BorrowTransaction{}).
		Where("book_id = ? AND real_return_date IS NULL", bookID).
		Count(&n).Error
	return n, err
}

func (r *transactionRepository) CountByUser(db *gorm.DB, userID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.BorrowTransaction{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

func (r *transactionRepository) MarkReturned(db *gorm.DB, id uuid.UUID, returnedAt time.Time) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.BorrowTransaction{}).
		Where("id = ? AND real_return_date IS NULL", id).
		Update("real_return_date", returnedAt)
	return res.RowsAffected, res.Error
}

func (r *transactionRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.BorrowTransaction{}, "id = ?", id).Error
}

type penaltyRepository struct {
	db *gorm.DB
}

func NewPenaltyRepository(db *gorm.DB) PenaltyRepository {
	return &penaltyRepository{db: db}
}

func (r *penaltyRepository) Create(db *gorm.DB, penalty *models.Penalty) error {
	if db == nil {
		db = r.db
	}
	return db.Create(penalty).Error
}

func (r *penaltyRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Penalty, error) {
	if db == nil {
		db = r.db
	}
	var penalty models.Penalty
	err := db.Preload("Transaction").Preload("Transaction.User").Preload("Transaction.Book").
		First(&penalty, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &penalty, nil
}

func (r *penaltyRepository) List(db *gorm.DB) ([]models.Penalty, error) {
	if db == nil {
		db = r.db
	}
	var penalties []models.Penalty
	err := db.Preload("Transaction").Preload("Transaction.User").Preload("Transaction.Book").
		Order("created_at DESC").
		Find(&penalties).Error
	if err != nil {
		return nil, err
	}
	return penalties, nil
}

func (r *penaltyRepository) ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Penalty, error) {
	if db == nil {
		db = r.db
	}
	var penalties []models.Penalty
	err := db.Preload("Transaction").Preload("Transaction.User").Preload("Transaction.Book").
		Joins("JOIN borrow_transactions ON borrow_transactions.id = penalties.transaction_id").
		Where("borrow_transactions.user_id = ?", userID).
		Order("penalties.created_at DESC").
		Find(&penalties).Error
	if err != nil {
		return nil, err
	}
	return penalties, nil
}

func (r *penaltyRepository) SumUnpaid(db *gorm.DB) (float64, error) {
	if db == nil {
		db = r.db
	}
	var total float64
	err := db.Model(&models.Penalty{}).
		Where("paid = ?", false).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *penaltyRepository) SumUnpaidByUser(db *gorm.DB, userID uuid.UUID) (float64, error) {
	if db == nil {
		db = r.db
	}
	var total float64
	err := db.Model(&models.Penalty{}).
		Joins("JOIN borrow_transactions ON borrow_transactions.id = penalties.transaction_id").
		Where("borrow_transactions.user_id = ? AND penalties.paid = ?", userID, false).
		Select("COALESCE(SUM(penalties.amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *penaltyRepository) MarkPaid(db *gorm.DB, id uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Penalty{}).
		Where("id = ? AND paid = ?", id, false).
		Update("paid", true)
	return res.RowsAffected, res.Error
}

func (r *penaltyRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Penalty{}, "id = ?", id).Error
}

func (r *penaltyRepository) DeleteByTransaction(db *gorm.DB, transactionID uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Penalty{}, "transaction_id = ?", transactionID).Error
}
