package handlers

import (
	"time"

	"github.com/google/uuid"

	"libraryledger/internal/models"
)

// View structs flatten the joined display fields (authorName, bookTitle,
// userName) into the camelCase wire shapes the client renders. They are pure
// projections of the models; no rendering concern leaks below this layer.

type bookView struct {
	ID                uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	AuthorID          uuid.UUID `json:"authorId"`
	CategoryID        uuid.UUID `json:"categoryId"`
	YearOfPublication int       `json:"yearOfPublication"`
	StockNumber       int       `json:"stockNumber"`
	Available         int       `json:"available"`
	AuthorName        string    `json:"authorName"`
	CategoryName      string    `json:"categoryName"`
}

type transactionView struct {
	ID             uuid.UUID               `json:"id"`
	BookID         uuid.UUID               `json:"bookId"`
	UserID         uuid.UUID               `json:"userId"`
	BorrowDate     time.Time               `json:"borrowDate"`
	ReturnDate     time.Time               `json:"returnDate"`
	RealReturnDate *time.Time              `json:"realReturnDate"`
	State          models.TransactionState `json:"state"`
	BookTitle      string                  `json:"bookTitle"`
	UserName       string                  `json:"userName"`
}

type penaltyView struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transactionId"`
	NumberOfDay   int       `json:"numberOfDay"`
	Amount        float64   `json:"amount"`
	Paid          bool      `json:"paid"`
	Date          time.Time `json:"date"`
	UserID        uuid.UUID `json:"userId"`
	UserName      string    `json:"userName"`
}

func newBookView(b models.Book) bookView {
	authorName := b.Author.Name
	if b.Author.LastName != "" {
		authorName += " " + b.Author.LastName
	}
	return bookView{
		ID:                b.ID,
		Title:             b.Title,
		AuthorID:          b.AuthorID,
		CategoryID:        b.CategoryID,
		YearOfPublication: b.YearOfPublication,
		StockNumber:       b.StockNumber,
		Available:         b.Available,
		AuthorName:        authorName,
		CategoryName:      b.Category.Name,
	}
}

func newBookViews(books []models.Book) []bookView {
	views := make([]bookView, 0, len(books))
	for _, b := range books {
		views = append(views, newBookView(b))
	}
	return views
}

func newTransactionView(t models.BorrowTransaction) transactionView {
	return transactionView{
		ID:             t.ID,
		BookID:         t.BookID,
		UserID:         t.UserID,
		BorrowDate:     t.BorrowDate,
		ReturnDate:     t.ReturnDate,
		RealReturnDate: t.RealReturnDate,
		State:          t.State(),
		BookTitle:      t.Book.Title,
		UserName:       t.User.FullName,
	}
}

func newTransactionViews(txs []models.BorrowTransaction) []transactionView {
	views := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		views = append(views, newTransactionView(t))
	}
	return views
}

func newPenaltyView(p models.Penalty) penaltyView {
	return penaltyView{
		ID:            p.ID,
		TransactionID: p.TransactionID,
		NumberOfDay:   p.NumberOfDay,
		Amount:        p.Amount,
		Paid:          p.Paid,
		Date:          p.CreatedAt,
		UserID:        p.Transaction.UserID,
		UserName:      p.Transaction.User.FullName,
	}
}

func newPenaltyViews(penalties []models.Penalty) []penaltyView {
	views := make([]penaltyView, 0, len(penalties))
	for _, p := range penalties {
		views = append(views, newPenaltyView(p))
	}
	return views
}
