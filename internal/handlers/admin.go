package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryd/internal/services"
)

type addBookRequest struct {
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author" binding:"required"`
	Description string `json:"description"`
	Copies      int    `json:"copies" binding:"min=0"`
	Category    string `json:"category"`
	Img         string `json:"img"`
}

func (h *LibraryHandler) addBook(c *gin.Context) {
	var req addBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	book, err := h.library.AddBook(c.Request.Context(), services.AddBookInput{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Copies:      req.Copies,
		Category:    req.Category,
		Img:         req.Img,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *LibraryHandler) increaseBookQuantity(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	if err := h.library.IncreaseBookQuantity(c.Request.Context(), bookID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) decreaseBookQuantity(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	if err := h.library.DecreaseBookQuantity(c.Request.Context(), bookID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) deleteBook(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	if err := h.library.DeleteBook(c.Request.Context(), bookID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
