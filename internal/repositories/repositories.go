package repositories

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"libraryd/internal/models"
)

// BookFilter narrows a catalogue listing. Empty fields are ignored.
type BookFilter struct {
	TitleContains string
	Category      string
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByIDs(db *gorm.DB, ids []uuid.UUID) ([]models.Book, error)
	List(db *gorm.DB, filter BookFilter) ([]models.Book, error)
	Delete(db *gorm.DB, id uuid.UUID) (int64, error)
	TakeCopy(db *gorm.DB, id uuid.UUID) (bool, error)
	ReleaseCopy(db *gorm.DB, id uuid.UUID) (bool, error)
	AddCopy(db *gorm.DB, id uuid.UUID) (bool, error)
	RemoveCopy(db *gorm.DB, id uuid.UUID) (bool, error)
}

type CheckoutRepository interface {
	Create(db *gorm.DB, checkout *models.Checkout) error
	FindByUserAndBook(db *gorm.DB, userEmail string, bookID uuid.UUID) (*models.Checkout, error)
	LockByUserAndBook(db *gorm.DB, userEmail string, bookID uuid.UUID) (*models.Checkout, error)
	ListByUser(db *gorm.DB, userEmail string) ([]models.Checkout, error)
	CountByUser(db *gorm.DB, userEmail string) (int64, error)
	UpdateReturnDate(db *gorm.DB, id uuid.UUID, returnDate time.Time) error
	Delete(db *gorm.DB, id uuid.UUID) (int64, error)
	DeleteAllByBook(db *gorm.DB, bookID uuid.UUID) (int64, error)
}

type HistoryRepository interface {
	Create(db *gorm.DB, history *models.History) error
	ListByUser(db *gorm.DB, userEmail string) ([]models.History, error)
}

type ReviewRepository interface {
	Create(db *gorm.DB, review *models.Review) error
	FindByUserAndBook(db *gorm.DB, userEmail string, bookID uuid.UUID) (*models.Review, error)
	ListByBook(db *gorm.DB, bookID uuid.UUID) ([]models.Review, error)
	DeleteAllByBook(db *gorm.DB, bookID uuid.UUID) (int64, error)
}

type MessageRepository interface {
	Create(db *gorm.DB, message *models.Message) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Message, error)
	ListByUser(db *gorm.DB, userEmail string) ([]models.Message, error)
	ListByClosed(db *gorm.DB, closed bool) ([]models.Message, error)
	Save(db *gorm.DB, message *models.Message) error
}

// concrete implementations

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
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByIDs(db *gorm.DB, ids []uuid.UUID) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	books := []models.Book{}
	if len(ids) == 0 {
		return books, nil
	}
	if err := db.Where("id IN ?", ids).Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) List(db *gorm.DB, filter BookFilter) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	q := db.Model(&models.Book{})
	if filter.TitleContains != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.TitleContains)+"%")
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	books := []models.Book{}
	if err := q.Order("title ASC").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Delete(&models.Book{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

// TakeCopy decrements copies_available only while a copy is left. It reports
// false when the guard rejected the update.
func (r *bookRepository) TakeCopy(db *gorm.DB, id uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ? AND copies_available > 0", id).
		UpdateColumn("copies_available", gorm.Expr("copies_available - 1"))
	return res.RowsAffected == 1, res.Error
}

// ReleaseCopy increments copies_available without letting it pass copies.
func (r *bookRepository) ReleaseCopy(db *gorm.DB, id uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ? AND copies_available < copies", id).
		UpdateColumn("copies_available", gorm.Expr("copies_available + 1"))
	return res.RowsAffected == 1, res.Error
}

func (r *bookRepository) AddCopy(db *gorm.DB, id uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"copies":           gorm.Expr("copies + 1"),
			"copies_available": gorm.Expr("copies_available + 1"),
		})
	return res.RowsAffected == 1, res.Error
}

// RemoveCopy withdraws one unit that is on the shelf, so both counters drop
// together and the loaned count stays unchanged.
func (r *bookRepository) RemoveCopy(db *gorm.DB, id uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ? AND copies > 0 AND copies_available > 0", id).
		UpdateColumns(map[string]interface{}{
			"copies":           gorm.Expr("copies - 1"),
			"copies_available": gorm.Expr("copies_available - 1"),
		})
	return res.RowsAffected == 1, res.Error
}

type checkoutRepository struct {
	db *gorm.DB
}

func NewCheckoutRepository(db *gorm.DB) CheckoutRepository {
	return &checkoutRepository{db: db}
}

func (r *checkoutRepository) Create(db *gorm.DB, checkout *models.Checkout) error {
	if db == nil {
		db = r.db
	}
	return db.Create(checkout).Error
}

func (r *checkoutRepository) FindByUserAndBook(db *gorm.DB, userEmail string, bookID uuid.UUID) (*models.Checkout, error) {
	if db == nil {
		db = r.db
	}
	var checkout models.Checkout
	err := db.Where("user_email = ? AND book_id = ?", userEmail, bookID).First(&checkout).Error
	if err != nil {
		return nil, err
	}
	return &checkout, nil
}

// LockByUserAndBook is FindByUserAndBook with SELECT ... FOR UPDATE. Dialects
// without row locks ignore the clause.
func (r *checkoutRepository) LockByUserAndBook(db *gorm.DB, userEmail string, bookID uuid.UUID) (*models.Checkout, error) {
	if db == nil {
		db = r.db
	}
	var checkout models.Checkout
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_email = ? AND book_id = ?", userEmail, bookID).
		First(&checkout).Error
	if err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (r *checkoutRepository) ListByUser(db *gorm.DB, userEmail string) ([]models.Checkout, error) {
	if db == nil {
		db = r.db
	}
	checkouts := []models.Checkout{}
	if err := db.Where("user_email = ?", userEmail).Find(&checkouts).Error; err != nil {
		return nil, err
	}
	return checkouts, nil
}

func (r *checkoutRepository) CountByUser(db *gorm.DB, userEmail string) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.Checkout{}).Where("user_email = ?", userEmail).Count(&n).Error
	return n, err
}

func (r *checkoutRepository) UpdateReturnDate(db *gorm.DB, id uuid.UUID, returnDate time.Time) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Checkout{}).
		Where("id = ?", id).
		Update("return_date", returnDate).
		Error
}

func (r *checkoutRepository) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Delete(&models.Checkout{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *checkoutRepository) DeleteAllByBook(db *gorm.DB, bookID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Where("book_id = ?", bookID).Delete(&models.Checkout{})
	return res.RowsAffected, res.Error
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(db *gorm.DB, history *models.History) error {
	if db == nil {
		db = r.db
	}
	return db.Create(history).Error
}

func (r *historyRepository) ListByUser(db *gorm.DB, userEmail string) ([]models.History, error) {
	if db == nil {
		db = r.db
	}
	histories := []models.History{}
	err := db.Where("user_email = ?", userEmail).
		Order("returned_date DESC, checkout_date DESC").
		Find(&histories).Error
	if err != nil {
		return nil, err
	}
	return histories, nil
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(db *gorm.DB, review *models.Review) error {
	if db == nil {
		db = r.db
	}
	return db.Create(review).Error
}

func (r *reviewRepository) FindByUserAndBook(db *gorm.DB, userEmail string, bookID uuid.UUID) (*models.Review, error) {
	if db == nil {
		db = r.db
	}
	var review models.Review
	err := db.Where("user_email = ? AND book_id = ?", userEmail, bookID).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ListByBook(db *gorm.DB, bookID uuid.UUID) ([]models.Review, error) {
	if db == nil {
		db = r.db
	}
	reviews := []models.Review{}
	if err := db.Where("book_id = ?", bookID).Order("date DESC").Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) DeleteAllByBook(db *gorm.DB, bookID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Where("book_id = ?", bookID).Delete(&models.Review{})
	return res.RowsAffected, res.Error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(db *gorm.DB, message *models.Message) error {
	if db == nil {
		db = r.db
	}
	return db.Create(message).Error
}

func (r *messageRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Message, error) {
	if db == nil {
		db = r.db
	}
	var message models.Message
	if err := db.First(&message, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) ListByUser(db *gorm.DB, userEmail string) ([]models.Message, error) {
	if db == nil {
		db = r.db
	}
	messages := []models.Message{}
	if err := db.Where("user_email = ?", userEmail).Order("created_at ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) ListByClosed(db *gorm.DB, closed bool) ([]models.Message, error) {
	if db == nil {
		db = r.db
	}
	messages := []models.Message{}
	if err := db.Where("closed = ?", closed).Order("created_at ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) Save(db *gorm.DB, message *models.Message) error {
	if db == nil {
		db = r.db
	}
	return db.Save(message).Error
}
