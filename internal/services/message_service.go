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

// MessageService carries questions from users to admins and their answers.
type MessageService interface {
	PostMessage(ctx context.Context, userEmail, title, question string) (*models.Message, error)
	AnswerMessage(ctx context.Context, adminEmail string, messageID uuid.UUID, response string) (*models.Message, error)
	ListUserMessages(ctx context.Context, userEmail string) ([]models.Message, error)
	ListOpenMessages(ctx context.Context) ([]models.Message, error)
}

type messageService struct {
	db          *gorm.DB
	messageRepo repositories.MessageRepository
	log         *slog.Logger
}

func NewMessageService(db *gorm.DB, messageRepo repositories.MessageRepository, opts ...Option) MessageService {
	o := buildOptions(opts)
	return &messageService{
		db:          db,
		messageRepo: messageRepo,
		log:         o.logger.With("service", "message"),
	}
}

func (s *messageService) PostMessage(ctx context.Context, userEmail, title, question string) (*models.Message, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(question) == "" {
		return nil, ErrInvalidMessage
	}
	message := &models.Message{
		UserEmail: userEmail,
		Title:     title,
		Question:  question,
	}
	if err := s.messageRepo.Create(s.db.WithContext(ctx), message); err != nil {
		s.log.Error("PostMessage: failed to create message", "user", userEmail, "error", err)
		return nil, fmt.Errorf("create message: %w", err)
	}
	s.log.Info("PostMessage: message created", "message_id", message.ID, "user", userEmail)
	return message, nil
}

// AnswerMessage records the admin's response and closes the message.
func (s *messageService) AnswerMessage(ctx context.Context, adminEmail string, messageID uuid.UUID, response string) (*models.Message, error) {
	if strings.TrimSpace(response) == "" {
		return nil, ErrInvalidAnswer
	}

	var answered *models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		message, err := s.messageRepo.GetByID(tx, messageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return fmt.Errorf("load message %s: %w", messageID, err)
		}

		message.AdminEmail = &adminEmail
		message.Response = &response
		message.Closed = true
		if err := s.messageRepo.Save(tx, message); err != nil {
			return fmt.Errorf("save message %s: %w", messageID, err)
		}
		answered = message
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidOperation) {
			s.log.Error("AnswerMessage: transaction failed", "message_id", messageID, "error", err)
		}
		return nil, err
	}
	s.log.Info("AnswerMessage: message closed", "message_id", messageID, "admin", adminEmail)
	return answered, nil
}

func (s *messageService) ListUserMessages(ctx context.Context, userEmail string) ([]models.Message, error) {
	messages, err := s.messageRepo.ListByUser(s.db.WithContext(ctx), userEmail)
	if err != nil {
		return nil, fmt.Errorf("list messages of %s: %w", userEmail, err)
	}
	return messages, nil
}

// ListOpenMessages returns the messages still waiting for an answer.
func (s *messageService) ListOpenMessages(ctx context.Context) ([]models.Message, error) {
	messages, err := s.messageRepo.ListByClosed(s.db.WithContext(ctx), false)
	if err != nil {
		return nil, fmt.Errorf("list open messages: %w", err)
	}
	return messages, nil
}
