package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryd/internal/models"
)

// ─── Checkout ─────────────────────────────────────────────────────────────────

// CheckoutBook lends one copy of a book to a user for LoanPeriodDays.
//
// Steps (all in one transaction):
//  1. Load the book.
//  2. Reject if the user already holds it.
//  3. Take a copy with a conditional decrement (copies_available > 0), so two
//     racing checkouts of the last copy cannot both succeed.
//  4. Insert the checkout; the (user_email, book_id) unique index rejects a
//     racing duplicate for the same user.
func (s *libraryService) CheckoutBook(ctx context.Context, userEmail string, bookID uuid.UUID) (*models.Book, error) {
	var updated *models.Book

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.getBook(tx, bookID); err != nil {
			return err
		}

		existing, err := s.findCheckout(tx, userEmail, bookID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyCheckedOut
		}

		taken, err := s.bookRepo.TakeCopy(tx, bookID)
		if err != nil {
			return fmt.Errorf("take copy of book %s: %w", bookID, err)
		}
		if !taken {
			return ErrNoCopiesAvailable
		}

		today := s.today()
		checkout := &models.Checkout{
			UserEmail:    userEmail,
			BookID:       bookID,
			CheckoutDate: today,
			ReturnDate:   today.AddDate(0, 0, LoanPeriodDays),
		}
		if err := s.checkoutRepo.Create(tx, checkout); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyCheckedOut
			}
			return fmt.Errorf("create checkout: %w", err)
		}

		book, err := s.getBook(tx, bookID)
		if err != nil {
			return err
		}
		updated = book
		s.log.Info("CheckoutBook: checkout created",
			"checkout_id", checkout.ID, "user", userEmail, "book_id", bookID,
			"due", checkout.ReturnDate.Format("2006-01-02"), "copies_available", book.CopiesAvailable)
		return nil
	})
	if err != nil {
		s.logFailure("CheckoutBook", err, "user", userEmail, "book_id", bookID)
		return nil, err
	}
	return updated, nil
}

// IsCheckedOutByUser reports whether the user currently holds the book.
func (s *libraryService) IsCheckedOutByUser(ctx context.Context, userEmail string, bookID uuid.UUID) (bool, error) {
	checkout, err := s.findCheckout(s.db.WithContext(ctx), userEmail, bookID)
	if err != nil {
		return false, err
	}
	return checkout != nil, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// ReturnBook closes the user's loan of a book.
//
// Steps (all in one transaction):
//  1. Load the book and lock the active checkout.
//  2. Delete the checkout; zero affected rows means a concurrent return won.
//  3. Release the copy (copies_available + 1, capped at copies).
//  4. Append a history record snapshotting the book as it is now.
func (s *libraryService) ReturnBook(ctx context.Context, userEmail string, bookID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := s.getBook(tx, bookID)
		if err != nil {
			return err
		}

		checkout, err := s.lockCheckout(tx, userEmail, bookID)
		if err != nil {
			return err
		}
		if checkout == nil {
			return ErrNotCheckedOut
		}

		deleted, err := s.checkoutRepo.Delete(tx, checkout.ID)
		if err != nil {
			return fmt.Errorf("delete checkout %s: %w", checkout.ID, err)
		}
		if deleted == 0 {
			return ErrNotCheckedOut
		}

		released, err := s.bookRepo.ReleaseCopy(tx, bookID)
		if err != nil {
			return fmt.Errorf("release copy of book %s: %w", bookID, err)
		}
		if !released {
			return fmt.Errorf("release copy of book %s: copies_available already equals copies", bookID)
		}

		history := &models.History{
			UserEmail:    userEmail,
			CheckoutDate: checkout.CheckoutDate,
			ReturnedDate: s.today(),
			Title:        book.Title,
			Author:       book.Author,
			Description:  book.Description,
			Img:          book.Img,
		}
		if err := s.historyRepo.Create(tx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		s.log.Info("ReturnBook: book returned", "user", userEmail, "book_id", bookID, "history_id", history.ID)
		return nil
	})
	if err != nil {
		s.logFailure("ReturnBook", err, "user", userEmail, "book_id", bookID)
		return err
	}
	return nil
}

// ─── Renew ────────────────────────────────────────────────────────────────────

// RenewLoan moves the due date of a loan that is not overdue to
// today + LoanPeriodDays. Renewing an overdue loan changes nothing and is not
// an error.
func (s *libraryService) RenewLoan(ctx context.Context, userEmail string, bookID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		checkout, err := s.lockCheckout(tx, userEmail, bookID)
		if err != nil {
			return err
		}
		if checkout == nil {
			return ErrNotCheckedOut
		}

		today := s.today()
		if dateOf(checkout.ReturnDate).Before(today) {
			s.log.Info("RenewLoan: loan overdue, not renewed", "user", userEmail, "book_id", bookID,
				"due", checkout.ReturnDate.Format("2006-01-02"))
			return nil
		}

		due := today.AddDate(0, 0, LoanPeriodDays)
		if err := s.checkoutRepo.UpdateReturnDate(tx, checkout.ID, due); err != nil {
			return fmt.Errorf("update return date of checkout %s: %w", checkout.ID, err)
		}
		s.log.Info("RenewLoan: loan renewed", "user", userEmail, "book_id", bookID, "due", due.Format("2006-01-02"))
		return nil
	})
	if err != nil {
		s.logFailure("RenewLoan", err, "user", userEmail, "book_id", bookID)
		return err
	}
	return nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

// CurrentLoansCount returns how many books the user holds.
func (s *libraryService) CurrentLoansCount(ctx context.Context, userEmail string) (int, error) {
	n, err := s.checkoutRepo.CountByUser(s.db.WithContext(ctx), userEmail)
	if err != nil {
		return 0, fmt.Errorf("count checkouts of %s: %w", userEmail, err)
	}
	return int(n), nil
}

// CurrentLoans lists the books the user holds with the days left on each
// loan. Books are resolved in one batch query and the result follows the
// batch order.
func (s *libraryService) CurrentLoans(ctx context.Context, userEmail string) ([]models.ShelfCurrentLoan, error) {
	db := s.db.WithContext(ctx)

	checkouts, err := s.checkoutRepo.ListByUser(db, userEmail)
	if err != nil {
		return nil, fmt.Errorf("list checkouts of %s: %w", userEmail, err)
	}

	byBook := make(map[uuid.UUID]models.Checkout, len(checkouts))
	ids := make([]uuid.UUID, 0, len(checkouts))
	for _, c := range checkouts {
		byBook[c.BookID] = c
		ids = append(ids, c.BookID)
	}

	books, err := s.bookRepo.GetByIDs(db, ids)
	if err != nil {
		return nil, fmt.Errorf("load books of %s: %w", userEmail, err)
	}

	today := s.today()
	loans := make([]models.ShelfCurrentLoan, 0, len(books))
	for _, book := range books {
		checkout, ok := byBook[book.ID]
		if !ok {
			continue
		}
		loans = append(loans, models.ShelfCurrentLoan{
			Book:     book,
			DaysLeft: daysBetween(today, checkout.ReturnDate),
		})
	}
	return loans, nil
}
