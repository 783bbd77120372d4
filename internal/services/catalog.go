package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"libraryd/internal/models"
	"libraryd/internal/repositories"
)

// GetBook returns a single book.
func (s *libraryService) GetBook(ctx context.Context, bookID uuid.UUID) (*models.Book, error) {
	return s.getBook(s.db.WithContext(ctx), bookID)
}

// ListBooks returns the catalogue, optionally narrowed by title or category.
func (s *libraryService) ListBooks(ctx context.Context, filter repositories.BookFilter) ([]models.Book, error) {
	books, err := s.bookRepo.List(s.db.WithContext(ctx), filter)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// ListHistory returns the user's completed loans, most recent first.
func (s *libraryService) ListHistory(ctx context.Context, userEmail string) ([]models.History, error) {
	histories, err := s.historyRepo.ListByUser(s.db.WithContext(ctx), userEmail)
	if err != nil {
		return nil, fmt.Errorf("list history of %s: %w", userEmail, err)
	}
	return histories, nil
}
