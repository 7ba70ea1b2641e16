package user

import "time"

const (
	EventUserRegistered      = "UserRegistered"
	EventUserLoggedIn        = "UserLoggedIn"
	EventUserPasswordChanged = "UserPasswordChanged"
)

// UserRegistered is emitted when a new account is created
type UserRegistered struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `json:"role"`
	BusinessName string    `json:"business_name,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// UserLoggedIn is emitted when user successfully logs in
type UserLoggedIn struct {
	UserID   string    `json:"user_id"`
	LoggedAt time.Time `json:"logged_at"`
}

// UserPasswordChanged is emitted when user changes password
type UserPasswordChanged struct {
	UserID    string    `json:"user_id"`
	ChangedAt time.Time `json:"changed_at"`
}
