package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"libraryd/internal/auth"
	"libraryd/internal/services"
)

// Dependencies are the collaborators the HTTP surface calls into.
type Dependencies struct {
	Library  services.LibraryService
	Reviews  services.ReviewService
	Messages services.MessageService
	Verifier *auth.Verifier
	Logger   *slog.Logger

	// LegacyErrors makes error bodies carry the collapsed messages of the
	// original API instead of the specific cause.
	LegacyErrors bool
}

type LibraryHandler struct {
	library      services.LibraryService
	reviews      services.ReviewService
	messages     services.MessageService
	log          *slog.Logger
	legacyErrors bool
}

func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &LibraryHandler{
		library:      deps.Library,
		reviews:      deps.Reviews,
		messages:     deps.Messages,
		log:          logger,
		legacyErrors: deps.LegacyErrors,
	}
	authn := auth.Middleware(deps.Verifier, logger)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// General endpoints
	books := r.Group("/api/books")
	books.GET("", h.listBooks)
	books.GET("/:id", h.getBook)
	r.GET("/api/reviews", h.listReviews)

	// User endpoints
	secureBooks := r.Group("/api/books/secure", authn)
	secureBooks.GET("/currentloans", h.currentLoans)
	secureBooks.GET("/currentloans/count", h.currentLoansCount)
	secureBooks.GET("/ischeckedout/byuser", h.isCheckedOutByUser)
	secureBooks.PUT("/checkout", h.checkoutBook)
	secureBooks.PUT("/return", h.returnBook)
	secureBooks.PUT("/renew/loan", h.renewLoan)

	r.GET("/api/histories/secure", authn, h.listHistory)

	secureReviews := r.Group("/api/reviews/secure", authn)
	secureReviews.POST("", h.postReview)
	secureReviews.GET("/user/book", h.userReviewListed)

	secureMessages := r.Group("/api/messages/secure", authn)
	secureMessages.POST("/add/message", h.postMessage)
	secureMessages.GET("", h.listUserMessages)
	secureMessages.PUT("/admin/message", auth.RequireAdmin(), h.answerMessage)

	// Admin endpoints
	admin := r.Group("/api/admin/secure", authn, auth.RequireAdmin())
	admin.PUT("/increase/book/quantity", h.increaseBookQuantity)
	admin.PUT("/decrease/book/quantity", h.decreaseBookQuantity)
	admin.POST("/add/book", h.addBook)
	admin.DELETE("/delete/book", h.deleteBook)
	admin.GET("/messages", h.listOpenMessages)
}

// fail writes the error response for err. Domain errors map to 4xx by kind;
// anything else is logged and reported as a bare 500.
func (h *LibraryHandler) fail(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal server error", "code": "internal"})
		return
	}
	msg := err.Error()
	if h.legacyErrors {
		msg = services.LegacyMessage(err)
	}
	c.JSON(status, gin.H{"error": msg, "code": string(kind)})
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindAlreadyCheckedOut,
		services.KindNoCopiesAvailable,
		services.KindNotCheckedOut,
		services.KindQuantityAtFloor,
		services.KindDuplicateReview:
		return http.StatusConflict
	case services.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errInvalidBookID = errors.New("invalid book id")

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(services.KindValidation)})
}

// bookIDParam reads the bookId query parameter the original API used on
// every loan and admin route.
func bookIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Query("bookId"))
	if err != nil {
		badRequest(c, errInvalidBookID)
		return uuid.Nil, false
	}
	return id, true
}

// principal is only called behind auth.Middleware.
func principal(c *gin.Context) auth.Principal {
	p, _ := auth.PrincipalFrom(c)
	return p
}
