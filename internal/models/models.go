package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book is a catalogue entry. Copies counts every owned unit, CopiesAvailable
// the units not currently on loan; 0 <= CopiesAvailable <= Copies.
type Book struct {
	ID              uuid.UUID `gorm:"size:36;primaryKey" json:"id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Author          string    `gorm:"size:255;not null" json:"author"`
	Description     string    `gorm:"type:text" json:"description"`
	Copies          int       `gorm:"not null;default:0" json:"copies"`
	CopiesAvailable int       `gorm:"not null;default:0" json:"copiesAvailable"`
	Category        string    `gorm:"size:64;index" json:"category"`
	Img             string    `gorm:"type:text" json:"img"`
}

func (Book) TableName() string { return "book" }

func (b *Book) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Checkout is an active loan. At most one exists per (UserEmail, BookID).
type Checkout struct {
	ID           uuid.UUID `gorm:"size:36;primaryKey" json:"id"`
	UserEmail    string    `gorm:"size:255;not null;uniqueIndex:uniq_checkout_user_book" json:"userEmail"`
	BookID       uuid.UUID `gorm:"size:36;not null;uniqueIndex:uniq_checkout_user_book;index" json:"bookId"`
	CheckoutDate time.Time `gorm:"not null" json:"checkoutDate"`
	ReturnDate   time.Time `gorm:"not null" json:"returnDate"`
}

func (Checkout) TableName() string { return "checkout" }

func (c *Checkout) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// History is the append-only record of a completed loan. The book fields are
// a snapshot taken at return time.
type History struct {
	ID           uuid.UUID `gorm:"size:36;primaryKey" json:"id"`
	UserEmail    string    `gorm:"size:255;not null;index" json:"userEmail"`
	CheckoutDate time.Time `gorm:"not null" json:"checkoutDate"`
	ReturnedDate time.Time `gorm:"not null" json:"returnedDate"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Author       string    `gorm:"size:255;not null" json:"author"`
	Description  string    `gorm:"type:text" json:"description"`
	Img          string    `gorm:"type:text" json:"img"`
}

func (History) TableName() string { return "history" }

func (h *History) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

type Review struct {
	ID                uuid.UUID `gorm:"size:36;primaryKey" json:"id"`
	UserEmail         string    `gorm:"size:255;not null;uniqueIndex:uniq_review_user_book" json:"userEmail"`
	BookID            uuid.UUID `gorm:"size:36;not null;uniqueIndex:uniq_review_user_book;index" json:"bookId"`
	Rating            float64   `gorm:"not null" json:"rating"`
	ReviewDescription *string   `gorm:"type:text" json:"reviewDescription"`
	Date              time.Time `gorm:"not null" json:"date"`
}

func (Review) TableName() string { return "review" }

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Message is a question from a user to the library staff.
type Message struct {
	ID         uuid.UUID `gorm:"size:36;primaryKey" json:"id"`
	UserEmail  string    `gorm:"size:255;not null;index" json:"userEmail"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	AdminEmail *string   `gorm:"size:255" json:"adminEmail"`
	Response   *string   `gorm:"type:text" json:"response"`
	Closed     bool      `gorm:"not null;default:false;index" json:"closed"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ShelfCurrentLoan pairs a held book with the whole days left until it is
// due. DaysLeft is negative for overdue loans.
type ShelfCurrentLoan struct {
	Book     Book `json:"book"`
	DaysLeft int  `json:"daysLeft"`
}

// All lists every persisted model, in an order safe for schema creation.
func All() []any {
	return []any{&Book{}, &Checkout{}, &History{}, &Review{}, &Message{}}
}
