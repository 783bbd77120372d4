package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryd/internal/models"
	"libraryd/internal/repositories"
)

const maxRating = 5

// ReviewService handles book reviews. A user reviews a book at most once.
type ReviewService interface {
	PostReview(ctx context.Context, userEmail string, in ReviewInput) (*models.Review, error)
	UserReviewListed(ctx context.Context, userEmail string, bookID uuid.UUID) (bool, error)
	ListReviews(ctx context.Context, bookID uuid.UUID) ([]models.Review, error)
}

type ReviewInput struct {
	BookID            uuid.UUID
	Rating            float64
	ReviewDescription *string
}

type reviewService struct {
	db         *gorm.DB
	bookRepo   repositories.BookRepository
	reviewRepo repositories.ReviewRepository
	clock      Clock
	log        *slog.Logger
}

func NewReviewService(
	db *gorm.DB,
	bookRepo repositories.BookRepository,
	reviewRepo repositories.ReviewRepository,
	opts ...Option,
) ReviewService {
	o := buildOptions(opts)
	return &reviewService{
		db:         db,
		bookRepo:   bookRepo,
		reviewRepo: reviewRepo,
		clock:      o.clock,
		log:        o.logger.With("service", "review"),
	}
}

func (s *reviewService) PostReview(ctx context.Context, userEmail string, in ReviewInput) (*models.Review, error) {
	if in.Rating < 0 || in.Rating > maxRating {
		return nil, ErrInvalidRating
	}

	review := &models.Review{
		UserEmail: userEmail,
		BookID:    in.BookID,
		Rating:    in.Rating,
		Date:      dateOf(s.clock()),
	}
	if in.ReviewDescription != nil {
		if d := strings.TrimSpace(*in.ReviewDescription); d != "" {
			review.ReviewDescription = &d
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.bookRepo.GetByID(tx, in.BookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return fmt.Errorf("load book %s: %w", in.BookID, err)
		}

		_, err := s.reviewRepo.FindByUserAndBook(tx, userEmail, in.BookID)
		switch {
		case err == nil:
			return ErrDuplicateReview
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("load review: %w", err)
		}

		if err := s.reviewRepo.Create(tx, review); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReview
			}
			return fmt.Errorf("create review: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidOperation) {
			s.log.Error("PostReview: transaction failed", "user", userEmail, "book_id", in.BookID, "error", err)
		}
		return nil, err
	}
	s.log.Info("PostReview: review created", "review_id", review.ID, "user", userEmail, "book_id", in.BookID)
	return review, nil
}

func (s *reviewService) UserReviewListed(ctx context.Context, userEmail string, bookID uuid.UUID) (bool, error) {
	_, err := s.reviewRepo.FindByUserAndBook(s.db.WithContext(ctx), userEmail, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load review: %w", err)
	}
	return true, nil
}

// ListReviews returns the reviews of a book, newest first.
func (s *reviewService) ListReviews(ctx context.Context, bookID uuid.UUID) ([]models.Review, error) {
	reviews, err := s.reviewRepo.ListByBook(s.db.WithContext(ctx), bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews of book %s: %w", bookID, err)
	}
	return reviews, nil
}
