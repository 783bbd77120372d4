package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"libraryd/internal/repositories"
)

func (h *LibraryHandler) listBooks(c *gin.Context) {
	books, err := h.library.ListBooks(c.Request.Context(), repositories.BookFilter{
		TitleContains: c.Query("title"),
		Category:      c.Query("category"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *LibraryHandler) getBook(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, errInvalidBookID)
		return
	}
	book, err := h.library.GetBook(c.Request.Context(), bookID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) currentLoans(c *gin.Context) {
	loans, err := h.library.CurrentLoans(c.Request.Context(), principal(c).Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

func (h *LibraryHandler) currentLoansCount(c *gin.Context) {
	n, err := h.library.CurrentLoansCount(c.Request.Context(), principal(c).Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *LibraryHandler) isCheckedOutByUser(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	held, err := h.library.IsCheckedOutByUser(c.Request.Context(), principal(c).Email, bookID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, held)
}

func (h *LibraryHandler) checkoutBook(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	book, err := h.library.CheckoutBook(c.Request.Context(), principal(c).Email, bookID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) returnBook(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	if err := h.library.ReturnBook(c.Request.Context(), principal(c).Email, bookID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) renewLoan(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	if err := h.library.RenewLoan(c.Request.Context(), principal(c).Email, bookID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) listHistory(c *gin.Context) {
	histories, err := h.library.ListHistory(c.Request.Context(), principal(c).Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, histories)
}
