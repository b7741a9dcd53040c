package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"libraryledger/internal/models"
	"libraryledger/internal/repositories"
)

// CatalogService covers the admin-managed reference data: authors,
// categories, books, and user accounts. The ledger never mutates these
// except for the book available counter, which it shares.
type CatalogService interface {
	CreateAuthor(name, lastName, country string) (*models.Author, error)
	GetAuthor(id uuid.UUID) (*models.Author, error)
	ListAuthors() ([]models.Author, error)
	UpdateAuthor(id uuid.UUID, name, lastName, country string) (*models.Author, error)
	DeleteAuthor(id uuid.UUID) error

	CreateCategory(name string) (*models.Category, error)
	GetCategory(id uuid.UUID) (*models.Category, error)
	ListCategories() ([]models.Category, error)
	UpdateCategory(id uuid.UUID, name string) (*models.Category, error)
	DeleteCategory(id uuid.UUID) error

	CreateBook(title string, authorID, categoryID uuid.UUID, stockNumber, year int) (*models.Book, error)
	GetBook(id uuid.UUID) (*models.Book, error)
	ListBooks() ([]models.Book, error)
	UpdateBook(id uuid.UUID, title string, authorID, categoryID uuid.UUID, stockNumber, year int) (*models.Book, error)
	DeleteBook(id uuid.UUID) error

	CreateUser(fullName, email, password string, role models.UserRole) (*models.User, error)
	GetUser(id uuid.UUID) (*models.User, error)
	ListUsers() ([]models.User, error)
	UpdateUser(id uuid.UUID, fullName, email string, role models.UserRole) (*models.User, error)
	DeleteUser(id uuid.UUID) error
}

type catalogService struct {
	db           *gorm.DB
	userRepo     repositories.UserRepository
	authorRepo   repositories.AuthorRepository
	categoryRepo repositories.CategoryRepository
	bookRepo     repositories.BookRepository
	txRepo       repositories.TransactionRepository
}

func NewCatalogService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	authorRepo repositories.AuthorRepository,
	categoryRepo repositories.CategoryRepository,
	bookRepo repositories.BookRepository,
	txRepo repositories.TransactionRepository,
) CatalogService {
	return &catalogService{
		db:           db,
		userRepo:     userRepo,
		authorRepo:   authorRepo,
		categoryRepo: categoryRepo,
		bookRepo:     bookRepo,
		txRepo:       txRepo,
	}
}

// ─── Authors ──────────────────────────────────────────────────────────────────

func (s *catalogService) CreateAuthor(name, lastName, country string) (*models.Author, error) {
	author := &models.Author{Name: name, LastName: lastName, Country: country}
	if err := s.authorRepo.Create(nil, author); err != nil {
		return nil, err
	}
	log.Printf("[INFO] CreateAuthor: %s %s (id=%s)", name, lastName, author.ID)
	return author, nil
}

func (s *catalogService) GetAuthor(id uuid.UUID) (*models.Author, error) {
	author, err := s.authorRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, err
	}
	return author, nil
}

func (s *catalogService) ListAuthors() ([]models.Author, error) {
	return s.authorRepo.List(nil)
}

func (s *catalogService) UpdateAuthor(id uuid.UUID, name, lastName, country string) (*models.Author, error) {
	author, err := s.GetAuthor(id)
	if err != nil {
		return nil, err
	}
	author.Name = name
	author.LastName = lastName
	author.Country = country
	if err := s.authorRepo.Update(nil, author); err != nil {
		return nil, err
	}
	return author, nil
}

func (s *catalogService) DeleteAuthor(id uuid.UUID) error {
	if _, err := s.GetAuthor(id); err != nil {
		return err
	}
	inUse, err := s.bookRepo.CountByAuthor(nil, id)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return ErrAuthorInUse
	}
	return s.authorRepo.Delete(nil, id)
}

// ─── Categories ───────────────────────────────────────────────────────────────

func (s *catalogService) CreateCategory(name string) (*models.Category, error) {
	category := &models.Category{Name: name}
	if err := s.categoryRepo.Create(nil, category); err != nil {
		return nil, err
	}
	log.Printf("[INFO] CreateCategory: %s (id=%s)", name, category.ID)
	return category, nil
}

func (s *catalogService) GetCategory(id uuid.UUID) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *catalogService) ListCategories() ([]models.Category, error) {
	return s.categoryRepo.List(nil)
}

func (s *catalogService) UpdateCategory(id uuid.UUID, name string) (*models.Category, error) {
	category, err := s.GetCategory(id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	if err := s.categoryRepo.Update(nil, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(id uuid.UUID) error {
	if _, err := s.GetCategory(id); err != nil {
		return err
	}
	inUse, err := s.bookRepo.CountByCategory(nil, id)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return ErrCategoryInUse
	}
	return s.categoryRepo.Delete(nil, id)
}

// ─── Books ────────────────────────────────────────────────────────────────────

func (s *catalogService) CreateBook(title string, authorID, categoryID uuid.UUID, stockNumber, year int) (*models.Book, error) {
	if _, err := s.GetAuthor(authorID); err != nil {
		return nil, err
	}
	if _, err := s.GetCategory(categoryID); err != nil {
		return nil, err
	}

	// A new title starts with every copy on the shelf.
	book := &models.Book{
		Title:             title,
		AuthorID:          authorID,
		CategoryID:        categoryID,
		YearOfPublication: year,
		StockNumber:       stockNumber,
		Available:         stockNumber,
	}
	if err := s.bookRepo.Create(nil, book); err != nil {
		return nil, err
	}
	log.Printf("[INFO] CreateBook: %q (id=%s) with %d copies", title, book.ID, stockNumber)
	return book, nil
}

func (s *catalogService) GetBook(id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *catalogService) ListBooks() ([]models.Book, error) {
	return s.bookRepo.List(nil)
}

// UpdateBook rewrites the catalogue fields and recomputes the available
// counter from the number of loans still out, so a stock edit can never push
// available outside [0, stockNumber].
func (s *catalogService) UpdateBook(id uuid.UUID, title string, authorID, categoryID uuid.UUID, stockNumber, year int) (*models.Book, error) {
	var updated *models.Book

	err := s.db.Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByID(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if _, err := s.authorRepo.GetByID(tx, authorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAuthorNotFound
			}
			return err
		}
		if _, err := s.categoryRepo.GetByID(tx, categoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCategoryNotFound
			}
			return err
		}

		activeLoans, err := s.txRepo.CountActiveByBook(tx, id)
		if err != nil {
			return err
		}
		available := stockNumber - int(activeLoans)
		if available < 0 {
			available = 0
		}

		book.Title = title
		book.AuthorID = authorID
		book.CategoryID = categoryID
		// Drop the preloaded associations so Save writes the new foreign
		// keys instead of re-linking the old records.
		book.Author = models.Author{}
		book.Category = models.Category{}
		book.YearOfPublication = year
		book.StockNumber = stockNumber
		book.Available = available
		if err := s.bookRepo.Update(tx, book); err != nil {
			return err
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] UpdateBook: %s stock=%d available=%d", id, updated.StockNumber, updated.Available)
	return updated, nil
}

func (s *catalogService) DeleteBook(id uuid.UUID) error {
	if _, err := s.GetBook(id); err != nil {
		return err
	}
	return s.bookRepo.Delete(nil, id)
}

// ─── Users (admin management) ─────────────────────────────────────────────────

func (s *catalogService) CreateUser(fullName, email, password string, role models.UserRole) (*models.User, error) {
	if _, err := s.userRepo.GetByEmail(nil, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if role != models.UserRoleAdmin {
		role = models.UserRoleMember
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.userRepo.Create(nil, user); err != nil {
		return nil, err
	}
	log.Printf("[INFO] CreateUser: %s (id=%s, role=%s)", email, user.ID, role)
	return user, nil
}

func (s *catalogService) GetUser(id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *catalogService) ListUsers() ([]models.User, error) {
	return s.userRepo.List(nil)
}

func (s *catalogService) UpdateUser(id uuid.UUID, fullName, email string, role models.UserRole) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	if role != models.UserRoleAdmin && role != models.UserRoleMember {
		role = user.Role
	}
	user.FullName = fullName
	user.Email = email
	user.Role = role
	if err := s.userRepo.Update(nil, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *catalogService) DeleteUser(id uuid.UUID) error {
	if _, err := s.GetUser(id); err != nil {
		return err
	}
	return s.userRepo.Delete(nil, id)
}
