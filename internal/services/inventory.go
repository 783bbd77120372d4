package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryd/internal/models"
)

// ─── Inventory (admin) ────────────────────────────────────────────────────────

// IncreaseBookQuantity adds one copy to the shelf.
func (s *libraryService) IncreaseBookQuantity(ctx context.Context, bookID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		added, err := s.bookRepo.AddCopy(tx, bookID)
		if err != nil {
			return fmt.Errorf("add copy to book %s: %w", bookID, err)
		}
		if !added {
			return ErrBookNotFound
		}
		return nil
	})
	if err != nil {
		s.logFailure("IncreaseBookQuantity", err, "book_id", bookID)
		return err
	}
	s.log.Info("IncreaseBookQuantity: copy added", "book_id", bookID)
	return nil
}

// DecreaseBookQuantity withdraws one copy that is on the shelf. It fails with
// ErrQuantityAtFloor when every copy is on loan or none is left.
func (s *libraryService) DecreaseBookQuantity(ctx context.Context, bookID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.getBook(tx, bookID); err != nil {
			return err
		}
		removed, err := s.bookRepo.RemoveCopy(tx, bookID)
		if err != nil {
			return fmt.Errorf("remove copy from book %s: %w", bookID, err)
		}
		if !removed {
			return ErrQuantityAtFloor
		}
		return nil
	})
	if err != nil {
		s.logFailure("DecreaseBookQuantity", err, "book_id", bookID)
		return err
	}
	s.log.Info("DecreaseBookQuantity: copy removed", "book_id", bookID)
	return nil
}

// AddBook creates a book with every copy available.
func (s *libraryService) AddBook(ctx context.Context, in AddBookInput) (*models.Book, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Author) == "" {
		return nil, ErrInvalidBook
	}
	if in.Copies < 0 {
		return nil, ErrInvalidCopies
	}

	book := &models.Book{
		Title:           in.Title,
		Author:          in.Author,
		Description:     in.Description,
		Copies:          in.Copies,
		CopiesAvailable: in.Copies,
		Category:        in.Category,
		Img:             in.Img,
	}
	if err := s.bookRepo.Create(s.db.WithContext(ctx), book); err != nil {
		s.log.Error("AddBook: failed to create book record", "title", in.Title, "error", err)
		return nil, fmt.Errorf("create book: %w", err)
	}
	s.log.Info("AddBook: created book", "book_id", book.ID, "title", book.Title, "copies", book.Copies)
	return book, nil
}

// DeleteBook removes a book together with its checkouts and reviews. The
// store has no cascading foreign keys, so the three deletes share one
// transaction.
func (s *libraryService) DeleteBook(ctx context.Context, bookID uuid.UUID) error {
	var checkouts, reviews int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := s.bookRepo.Delete(tx, bookID)
		if err != nil {
			return fmt.Errorf("delete book %s: %w", bookID, err)
		}
		if deleted == 0 {
			return ErrBookNotFound
		}

		if checkouts, err = s.checkoutRepo.DeleteAllByBook(tx, bookID); err != nil {
			return fmt.Errorf("delete checkouts of book %s: %w", bookID, err)
		}
		if reviews, err = s.reviewRepo.DeleteAllByBook(tx, bookID); err != nil {
			return fmt.Errorf("delete reviews of book %s: %w", bookID, err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("DeleteBook", err, "book_id", bookID)
		return err
	}
	s.log.Info("DeleteBook: book deleted", "book_id", bookID, "checkouts", checkouts, "reviews", reviews)
	return nil
}
