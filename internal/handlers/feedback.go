package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"libraryd/internal/services"
)

type reviewRequest struct {
	BookID            string   `json:"bookId" binding:"required,uuid"`
	Rating            *float64 `json:"rating" binding:"required"`
	ReviewDescription *string  `json:"reviewDescription"`
}

func (h *LibraryHandler) postReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		badRequest(c, errInvalidBookID)
		return
	}

	review, err := h.reviews.PostReview(c.Request.Context(), principal(c).Email, services.ReviewInput{
		BookID:            bookID,
		Rating:            *req.Rating,
		ReviewDescription: req.ReviewDescription,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *LibraryHandler) userReviewListed(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	listed, err := h.reviews.UserReviewListed(c.Request.Context(), principal(c).Email, bookID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listed)
}

func (h *LibraryHandler) listReviews(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	reviews, err := h.reviews.ListReviews(c.Request.Context(), bookID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

type messageRequest struct {
	Title    string `json:"title" binding:"required"`
	Question string `json:"question" binding:"required"`
}

func (h *LibraryHandler) postMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	message, err := h.messages.PostMessage(c.Request.Context(), principal(c).Email, req.Title, req.Question)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

func (h *LibraryHandler) listUserMessages(c *gin.Context) {
	messages, err := h.messages.ListUserMessages(c.Request.Context(), principal(c).Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

type adminQuestionRequest struct {
	ID       string `json:"id" binding:"required,uuid"`
	Response string `json:"response" binding:"required"`
}

func (h *LibraryHandler) answerMessage(c *gin.Context) {
	var req adminQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	messageID, err := uuid.Parse(req.ID)
	if err != nil {
		badRequest(c, err)
		return
	}
	message, err := h.messages.AnswerMessage(c.Request.Context(), principal(c).Email, messageID, req.Response)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}

func (h *LibraryHandler) listOpenMessages(c *gin.Context) {
	messages, err := h.messages.ListOpenMessages(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}
