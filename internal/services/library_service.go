package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryd/internal/models"
	"libraryd/internal/repositories"
)

// ─── Loan Constants ───────────────────────────────────────────────────────────

// LoanPeriodDays is how long a checkout or a renewal lasts.
const LoanPeriodDays = 7

// ─── Service Interface ────────────────────────────────────────────────────────

// LibraryService owns the loan lifecycle and the book inventory. It is the
// only writer of checkout and history rows and the only code that changes a
// book's copy counters.
type LibraryService interface {
	CheckoutBook(ctx context.Context, userEmail string, bookID uuid.UUID) (*models.Book, error)
	IsCheckedOutByUser(ctx context.Context, userEmail string, bookID uuid.UUID) (bool, error)
	ReturnBook(ctx context.Context, userEmail string, bookID uuid.UUID) error
	RenewLoan(ctx context.Context, userEmail string, bookID uuid.UUID) error
	CurrentLoansCount(ctx context.Context, userEmail string) (int, error)
	CurrentLoans(ctx context.Context, userEmail string) ([]models.ShelfCurrentLoan, error)

	IncreaseBookQuantity(ctx context.Context, bookID uuid.UUID) error
	DecreaseBookQuantity(ctx context.Context, bookID uuid.UUID) error
	AddBook(ctx context.Context, in AddBookInput) (*models.Book, error)
	DeleteBook(ctx context.Context, bookID uuid.UUID) error

	GetBook(ctx context.Context, bookID uuid.UUID) (*models.Book, error)
	ListBooks(ctx context.Context, filter repositories.BookFilter) ([]models.Book, error)
	ListHistory(ctx context.Context, userEmail string) ([]models.History, error)
}

// AddBookInput carries the admin-supplied fields of a new book.
type AddBookInput struct {
	Title       string
	Author      string
	Description string
	Copies      int
	Category    string
	Img         string
}

// Clock returns the current instant. Services only use its calendar date.
type Clock func() time.Time

// Option configures a service at construction.
type Option func(*options)

type options struct {
	clock  Clock
	logger *slog.Logger
}

// WithClock replaces time.Now as the source of "today".
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ─── Implementation ───────────────────────────────────────────────────────────

type libraryService struct {
	db           *gorm.DB
	bookRepo     repositories.BookRepository
	checkoutRepo repositories.CheckoutRepository
	historyRepo  repositories.HistoryRepository
	reviewRepo   repositories.ReviewRepository
	clock        Clock
	log          *slog.Logger
}

// NewLibraryService wires up all dependencies and returns a LibraryService.
func NewLibraryService(
	db *gorm.DB,
	bookRepo repositories.BookRepository,
	checkoutRepo repositories.CheckoutRepository,
	historyRepo repositories.HistoryRepository,
	reviewRepo repositories.ReviewRepository,
	opts ...Option,
) LibraryService {
	o := buildOptions(opts)
	return &libraryService{
		db:           db,
		bookRepo:     bookRepo,
		checkoutRepo: checkoutRepo,
		historyRepo:  historyRepo,
		reviewRepo:   reviewRepo,
		clock:        o.clock,
		log:          o.logger.With("service", "library"),
	}
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

// today is the current calendar date at midnight UTC.
func (s *libraryService) today() time.Time {
	return dateOf(s.clock())
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from `from` to `to`, negative when
// `to` is earlier.
func daysBetween(from, to time.Time) int {
	return int(dateOf(to).Sub(dateOf(from)).Hours() / 24)
}

// getBook loads a book, mapping a missing row to ErrBookNotFound.
func (s *libraryService) getBook(tx *gorm.DB, bookID uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(tx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("load book %s: %w", bookID, err)
	}
	return book, nil
}

// findCheckout returns the active checkout for the pair, or nil when none
// exists.
func (s *libraryService) findCheckout(tx *gorm.DB, userEmail string, bookID uuid.UUID) (*models.Checkout, error) {
	return s.loadCheckout(s.checkoutRepo.FindByUserAndBook, tx, userEmail, bookID)
}

// lockCheckout is findCheckout holding a row lock until the transaction ends.
func (s *libraryService) lockCheckout(tx *gorm.DB, userEmail string, bookID uuid.UUID) (*models.Checkout, error) {
	return s.loadCheckout(s.checkoutRepo.LockByUserAndBook, tx, userEmail, bookID)
}

func (s *libraryService) loadCheckout(
	find func(*gorm.DB, string, uuid.UUID) (*models.Checkout, error),
	tx *gorm.DB, userEmail string, bookID uuid.UUID,
) (*models.Checkout, error) {
	checkout, err := find(tx, userEmail, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load checkout for %s / book %s: %w", userEmail, bookID, err)
	}
	return checkout, nil
}

// logFailure logs unexpected store errors. Domain errors are the caller's
// concern and stay at debug level.
func (s *libraryService) logFailure(op string, err error, args ...any) {
	if errors.Is(err, ErrInvalidOperation) {
		s.log.Debug(op+": rejected", append(args, "reason", err.Error())...)
		return
	}
	s.log.Error(op+": transaction failed", append(args, "error", err)...)
}
