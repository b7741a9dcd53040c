package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
)

type TransactionState string

const (
	TransactionStateActive   TransactionState = "Active"
	TransactionStateReturned TransactionState = "Returned"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName     string    `gorm:"size:255;not null" json:"fullName"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         UserRole  `gorm:"size:32;not null" json:"role"`
}

type Author struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"size:255;not null" json:"name"`
	LastName string    `gorm:"size:255;not null" json:"lastName"`
	Country  string    `gorm:"size:255" json:"country"`
}

type Category struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:255;not null" json:"name"`
}

type Book struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title             string    `gorm:"size:255;not null" json:"title"`
	AuthorID          uuid.UUID `gorm:"type:uuid;not null;index" json:"authorId"`
	Author            Author    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	CategoryID        uuid.UUID `gorm:"type:uuid;not null;index" json:"categoryId"`
	Category          Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	YearOfPublication int       `json:"yearOfPublication"`
	// StockNumber is the number of copies the library owns; Available is how
	// many of them are currently loanable. 0 <= Available <= StockNumber.
	StockNumber int `gorm:"not null" json:"stockNumber"`
	Available   int `gorm:"not null" json:"available"`
}

// BorrowTransaction is a single loan of a book copy to a user. It is created
// Active by a borrow and flips to Returned exactly once; there is no way back.
type BorrowTransaction struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	User           User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	BookID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"bookId"`
	Book           Book       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	BorrowDate     time.Time  `gorm:"not null" json:"borrowDate"`
	ReturnDate     time.Time  `gorm:"not null" json:"returnDate"`
	RealReturnDate *time.Time `json:"realReturnDate"`
}

// State is derived rather than stored: a transaction is Active until its
// RealReturnDate is set.
func (t *BorrowTransaction) State() TransactionState {
	if t.RealReturnDate != nil {
		return TransactionStateReturned
	}
	return TransactionStateActive
}

func (t *BorrowTransaction) IsReturned() bool {
	return t.RealReturnDate != nil
}

// Penalty is created when a loan comes back after its due date. NumberOfDay
// counts started late units; Amount is NumberOfDay times the configured rate.
// Everything but Paid is immutable once the record exists.
type Penalty struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID         `gorm:"type:uuid;not null;index" json:"transactionId"`
	Transaction   BorrowTransaction `gorm:"foreignKey:TransactionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	NumberOfDay   int               `gorm:"not null" json:"numberOfDay"`
	Amount        float64           `gorm:"not null" json:"amount"`
	Paid          bool              `gorm:"not null;default:false" json:"paid"`
	CreatedAt     time.Time         `json:"date"`
}

// IDs are assigned client-side so the same models work against Postgres and
// the in-memory driver used in tests.

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (a *Author) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (t *BorrowTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (p *Penalty) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
