package api

import (
	"errors"
	"net/http"

	"github.com/example/bookstore/internal/api/middleware"
	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/command"
	"github.com/example/bookstore/internal/domain/book"
	"github.com/example/bookstore/internal/domain/cart"
	"github.com/example/bookstore/internal/domain/inventory"
	"github.com/example/bookstore/internal/domain/order"
	"github.com/example/bookstore/internal/domain/review"
	"github.com/example/bookstore/internal/domain/user"
	"github.com/example/bookstore/internal/query"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handlers holds the services behind the REST endpoints
type Handlers struct {
	books        *book.Service
	carts        *cart.Service
	orders       *order.Service
	users        *user.Service
	reviews      *review.Service
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	jwtService   *auth.JWTService
	feed         *OrderFeed
	secureCookie bool
}

// Deps lists everything NewHandlers needs
type Deps struct {
	Books        *book.Service
	Carts        *cart.Service
	Orders       *order.Service
	Users        *user.Service
	Reviews      *review.Service
	Commands     *command.Handler
	Queries      *query.Handler
	JWT          *auth.JWTService
	Feed         *OrderFeed
	SecureCookie bool
}

func NewHandlers(d Deps) *Handlers {
	feed := d.Feed
	if feed == nil {
		feed = NewOrderFeed()
	}
	return &Handlers{
		books:        d.Books,
		carts:        d.Carts,
		orders:       d.Orders,
		users:        d.Users,
		reviews:      d.Reviews,
		cmdHandler:   d.Commands,
		queryHandler: d.Queries,
		jwtService:   d.JWT,
		feed:         feed,
		secureCookie: d.SecureCookie,
	}
}

// Health reports that the process is serving
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// principal returns the caller set by AuthMiddleware. Routes using it are always authenticated.
func principal(c *gin.Context) auth.Principal {
	p, _ := middleware.GetPrincipal(c)
	return p
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// respondBindError answers a request whose body or query failed to bind
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

var (
	badRequest = []error{
		book.ErrInvalidTitle, book.ErrInvalidAuthor, book.ErrInvalidCategory,
		book.ErrInvalidDescription, book.ErrInvalidPrice, book.ErrInvalidStock,
		book.ErrEmptySearch,
		cart.ErrInvalidQuantity,
		inventory.ErrInsufficientStock, inventory.ErrInvalidQuantity,
		order.ErrEmptyOrder, order.ErrInvalidStatus, order.ErrCannotCancel,
		order.ErrInvalidAddress, order.ErrInvalidPayment,
		user.ErrInvalidEmail, user.ErrInvalidName, user.ErrBusinessNameRequired,
		auth.ErrPasswordTooShort, auth.ErrPasswordTooLong,
		review.ErrInvalidRating, review.ErrInvalidTitle, review.ErrInvalidContent,
		review.ErrInvalidStatus, review.ErrOwnReview, review.ErrAlreadyMarked,
	}
	unauthorized = []error{
		user.ErrInvalidCredentials, user.ErrIncorrectPassword,
		auth.ErrInvalidToken, auth.ErrExpiredToken,
	}
	forbidden = []error{
		book.ErrNotOwner, order.ErrAccessDenied, user.ErrRoleNotAllowed,
		user.ErrUserDeactivated,
	}
	notFound = []error{
		book.ErrBookNotFound, cart.ErrItemNotFound, order.ErrOrderNotFound,
		user.ErrUserNotFound, review.ErrReviewNotFound,
	}
	conflict = []error{
		order.ErrInvalidTransition, user.ErrEmailTaken, review.ErrAlreadyReviewed,
	}
)

func statusFor(err error) int {
	is := func(targets []error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
	switch {
	case is(badRequest):
		return http.StatusBadRequest
	case is(unauthorized):
		return http.StatusUnauthorized
	case is(forbidden):
		return http.StatusForbidden
	case is(notFound):
		return http.StatusNotFound
	case is(conflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError maps a service error to its HTTP status. Unknown errors are
// logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("component", "api").
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var stockErr *inventory.InsufficientStockError
	if errors.As(err, &stockErr) {
		body["bookId"] = stockErr.BookID
		body["available"] = stockErr.Available
	}
	c.JSON(status, body)
}
