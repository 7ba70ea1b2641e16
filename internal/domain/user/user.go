package user

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/example/bookstore/internal/auth"
)

const (
	AggregateType   = "User"
	Collection      = "users"
	EmailCollection = "user_emails"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidEmail         = errors.New("a valid email is required")
	ErrInvalidName          = errors.New("first and last name are required")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUserDeactivated      = errors.New("user account is deactivated")
	ErrEmailTaken           = errors.New("an account with this email already exists")
	ErrRoleNotAllowed       = errors.New("role cannot be self-registered")
	ErrBusinessNameRequired = errors.New("business name is required for sellers")
	ErrIncorrectPassword    = errors.New("current password is incorrect")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type SellerInfo struct {
	BusinessName string `json:"businessName"`
	Description  string `json:"description,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// User is the stored account document
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"passwordHash"`
	FirstName    string      `json:"firstName"`
	LastName     string      `json:"lastName"`
	Role         auth.Role   `json:"role"`
	SellerInfo   *SellerInfo `json:"sellerInfo,omitempty"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Profile is a user without credentials.
type Profile struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	FirstName  string      `json:"firstName"`
	LastName   string      `json:"lastName"`
	Role       auth.Role   `json:"role"`
	SellerInfo *SellerInfo `json:"sellerInfo,omitempty"`
	IsActive   bool        `json:"isActive"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		SellerInfo: u.SellerInfo,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// emailOwner maps a normalized email to its account.
type emailOwner struct {
	UserID string `json:"userId"`
}
