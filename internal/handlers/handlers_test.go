package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryd/internal/auth"
	"libraryd/internal/models"
	"libraryd/internal/repositories"
	"libraryd/internal/services"
	"libraryd/internal/testutil"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
	staff = "staff@example.com"
)

type server struct {
	t      *testing.T
	router *gin.Engine
	clock  *testutil.Clock
}

func newServer(t *testing.T, legacy bool) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	clock := testutil.NewClock(time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC))
	opts := []services.Option{services.WithClock(clock.Func()), services.WithLogger(testutil.DiscardLogger())}

	bookRepo := repositories.NewBookRepository(db)
	reviewRepo := repositories.NewReviewRepository(db)
	verifier, err := auth.NewVerifier(auth.Config{HMACSecret: []byte(testutil.TestSecret)})
	require.NoError(t, err)

	r := gin.New()
	r.Use(RequestLogger(testutil.DiscardLogger()))
	RegisterRoutes(r, Dependencies{
		Library: services.NewLibraryService(db, bookRepo, repositories.NewCheckoutRepository(db),
			repositories.NewHistoryRepository(db), reviewRepo, opts...),
		Reviews:      services.NewReviewService(db, bookRepo, reviewRepo, opts...),
		Messages:     services.NewMessageService(db, repositories.NewMessageRepository(db), opts...),
		Verifier:     verifier,
		Logger:       testutil.DiscardLogger(),
		LegacyErrors: legacy,
	})
	return &server{t: t, router: r, clock: clock}
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *server) addBook(title string, copies int) models.Book {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/admin/secure/add/book", testutil.Token(s.t, staff, auth.AdminRole),
		gin.H{"title": title, "author": "Someone", "description": "About " + title, "copies": copies, "category": "FE"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Book](s.t, w)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestHealthz(t *testing.T) {
	s := newServer(t, false)
	w := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestAuthentication(t *testing.T) {
	s := newServer(t, false)
	book := s.addBook("Dune", 1)
	checkout := "/api/books/secure/checkout?bookId=" + book.ID.String()

	w := s.do(http.MethodPut, checkout, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPut, checkout, "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPut, "/api/admin/secure/increase/book/quantity?bookId="+book.ID.String(),
		testutil.Token(t, alice, "user"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Administration page only", decode[errorBody](t, w).Error)
}

func TestLoanLifecycle(t *testing.T) {
	s := newServer(t, false)
	book := s.addBook("Dune", 1)
	assert.Equal(t, 1, book.CopiesAvailable)
	q := "?bookId=" + book.ID.String()
	aliceToken := testutil.Token(t, alice, "")
	bobToken := testutil.Token(t, bob, "")

	w := s.do(http.MethodGet, "/api/books/secure/ischeckedout/byuser"+q, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[bool](t, w))

	w = s.do(http.MethodPut, "/api/books/secure/checkout"+q, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, decode[models.Book](t, w).CopiesAvailable)

	w = s.do(http.MethodPut, "/api/books/secure/checkout"+q, aliceToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(services.KindAlreadyCheckedOut), decode[errorBody](t, w).Code)

	w = s.do(http.MethodPut, "/api/books/secure/checkout"+q, bobToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(services.KindNoCopiesAvailable), decode[errorBody](t, w).Code)

	w = s.do(http.MethodGet, "/api/books/secure/currentloans/count", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[int](t, w))

	s.clock.AddDays(2)
	w = s.do(http.MethodGet, "/api/books/secure/currentloans", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	loans := decode[[]models.ShelfCurrentLoan](t, w)
	require.Len(t, loans, 1)
	assert.Equal(t, book.ID, loans[0].Book.ID)
	assert.Equal(t, 5, loans[0].DaysLeft)

	w = s.do(http.MethodPut, "/api/books/secure/renew/loan"+q, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/api/books/secure/currentloans", aliceToken, nil)
	assert.Equal(t, 7, decode[[]models.ShelfCurrentLoan](t, w)[0].DaysLeft)

	w = s.do(http.MethodPut, "/api/books/secure/return"+q, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPut, "/api/books/secure/return"+q, aliceToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(services.KindNotCheckedOut), decode[errorBody](t, w).Code)

	w = s.do(http.MethodGet, "/api/books/"+book.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.Book](t, w).CopiesAvailable)

	w = s.do(http.MethodGet, "/api/histories/secure", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	histories := decode[[]models.History](t, w)
	require.Len(t, histories, 1)
	assert.Equal(t, "Dune", histories[0].Title)
}

func TestBadAndUnknownBookIDs(t *testing.T) {
	s := newServer(t, false)
	token := testutil.Token(t, alice, "")

	w := s.do(http.MethodPut, "/api/books/secure/checkout?bookId=42", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/books/secure/checkout", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/books/secure/checkout?bookId="+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(services.KindNotFound), decode[errorBody](t, w).Code)

	w = s.do(http.MethodGet, "/api/books/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLegacyErrorMessages(t *testing.T) {
	s := newServer(t, true)
	book := s.addBook("Dune", 1)
	q := "?bookId=" + book.ID.String()
	token := testutil.Token(t, alice, "")

	w := s.do(http.MethodPut, "/api/books/secure/checkout"+q, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPut, "/api/books/secure/checkout"+q, token, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Book doesn't exist or already checked out by user", decode[errorBody](t, w).Error)

	w = s.do(http.MethodPut, "/api/admin/secure/decrease/book/quantity"+q, testutil.Token(t, staff, auth.AdminRole), nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Book not found or quantity locked", decode[errorBody](t, w).Error)
}

func TestAdminInventory(t *testing.T) {
	s := newServer(t, false)
	admin := testutil.Token(t, staff, auth.AdminRole)
	book := s.addBook("Dune", 1)
	q := "?bookId=" + book.ID.String()

	w := s.do(http.MethodPut, "/api/admin/secure/increase/book/quantity"+q, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	got := decode[models.Book](t, s.do(http.MethodGet, "/api/books/"+book.ID.String(), "", nil))
	assert.Equal(t, 2, got.Copies)
	assert.Equal(t, 2, got.CopiesAvailable)

	w = s.do(http.MethodPut, "/api/admin/secure/decrease/book/quantity"+q, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPost, "/api/admin/secure/add/book", admin, gin.H{"title": "Bad", "author": "A", "copies": -2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/admin/secure/add/book", admin, gin.H{"author": "A", "copies": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/api/admin/secure/delete/book"+q, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/api/books/"+book.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/api/admin/secure/delete/book"+q, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListBooksFilters(t *testing.T) {
	s := newServer(t, false)
	s.addBook("Dune", 1)
	s.addBook("Dune Messiah", 1)
	s.addBook("Emma", 1)

	w := s.do(http.MethodGet, "/api/books", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Book](t, w), 3)

	w = s.do(http.MethodGet, "/api/books?title=dune", "", nil)
	assert.Len(t, decode[[]models.Book](t, w), 2)

	w = s.do(http.MethodGet, "/api/books?category=SF", "", nil)
	assert.Empty(t, decode[[]models.Book](t, w))
}

func TestReviews(t *testing.T) {
	s := newServer(t, false)
	book := s.addBook("Dune", 1)
	token := testutil.Token(t, alice, "")

	w := s.do(http.MethodPost, "/api/reviews/secure", token, gin.H{"bookId": book.ID, "rating": 4.5, "reviewDescription": "Spice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/reviews/secure", token, gin.H{"bookId": book.ID, "rating": 2})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(services.KindDuplicateReview), decode[errorBody](t, w).Code)

	w = s.do(http.MethodPost, "/api/reviews/secure", testutil.Token(t, bob, ""), gin.H{"bookId": book.ID, "rating": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/reviews/secure", token, gin.H{"bookId": book.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/reviews/secure/user/book?bookId="+book.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[bool](t, w))

	w = s.do(http.MethodGet, "/api/reviews?bookId="+book.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	reviews := decode[[]models.Review](t, w)
	require.Len(t, reviews, 1)
	assert.Equal(t, alice, reviews[0].UserEmail)
}

func TestMessages(t *testing.T) {
	s := newServer(t, false)
	token := testutil.Token(t, alice, "")
	admin := testutil.Token(t, staff, auth.AdminRole)

	w := s.do(http.MethodPost, "/api/messages/secure/add/message", token, gin.H{"title": "Hours", "question": "When?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	msg := decode[models.Message](t, w)

	w = s.do(http.MethodPost, "/api/messages/secure/add/message", token, gin.H{"title": "No question"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/admin/secure/messages", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Message](t, w), 1)

	answer := gin.H{"id": msg.ID, "response": "Nine to five"}
	w = s.do(http.MethodPut, "/api/messages/secure/admin/message", token, answer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, "/api/messages/secure/admin/message", admin, answer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[models.Message](t, w).Closed)

	w = s.do(http.MethodPut, "/api/messages/secure/admin/message", admin, gin.H{"id": uuid.New(), "response": "?"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/messages/secure", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[[]models.Message](t, w)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].AdminEmail)
	assert.Equal(t, staff, *mine[0].AdminEmail)

	w = s.do(http.MethodGet, "/api/admin/secure/messages", admin, nil)
	assert.Empty(t, decode[[]models.Message](t, w))
}

func TestStatusFor(t *testing.T) {
	tests := map[services.Kind]int{
		services.KindNotFound:          http.StatusNotFound,
		services.KindAlreadyCheckedOut: http.StatusConflict,
		services.KindNoCopiesAvailable: http.StatusConflict,
		services.KindNotCheckedOut:     http.StatusConflict,
		services.KindQuantityAtFloor:   http.StatusConflict,
		services.KindDuplicateReview:   http.StatusConflict,
		services.KindValidation:        http.StatusBadRequest,
		"":                             http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusFor(kind), fmt.Sprintf("kind %q", kind))
	}
}
