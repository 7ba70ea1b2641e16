package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/bookstore/internal/auth"
	"github.com/example/bookstore/internal/infrastructure/store"
	"github.com/google/uuid"
)

// Service handles user domain operations
type Service struct {
	users      *store.Collection[User]
	emails     *store.Collection[emailOwner]
	eventStore store.EventStoreInterface
}

// NewService creates a new user service
func NewService(docs store.DocumentStore, es store.EventStoreInterface) *Service {
	return &Service{
		users:      store.NewCollection[User](docs, Collection),
		emails:     store.NewCollection[emailOwner](docs, EmailCollection),
		eventStore: es,
	}
}

type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Role       auth.Role
	SellerInfo *SellerInfo
}

// Register creates a customer or seller account
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if in.Role == "" {
		in.Role = auth.RoleCustomer
	}
	if !in.Role.SelfRegistrable() {
		return nil, ErrRoleNotAllowed
	}
	return s.create(ctx, in)
}

// EnsureAdmin creates an admin account unless the email is already registered
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*User, error) {
	u, err := s.create(ctx, RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Store",
		LastName:  "Admin",
		Role:      auth.RoleAdmin,
	})
	if errors.Is(err, ErrEmailTaken) {
		return s.GetByEmail(ctx, email)
	}
	return u, err
}

func (s *Service) create(ctx context.Context, in RegisterInput) (*User, error) {
	email := normalizeEmail(in.Email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, ErrInvalidName
	}
	if in.Role == auth.RoleSeller && (in.SellerInfo == nil || strings.TrimSpace(in.SellerInfo.BusinessName) == "") {
		return nil, ErrBusinessNameRequired
	}
	if in.Role != auth.RoleSeller {
		in.SellerInfo = nil
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		SellerInfo:   in.SellerInfo,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.emails.Create(ctx, email, &emailOwner{UserID: u.ID}); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("claim email: %w", err)
	}
	if err := s.users.Put(ctx, u.ID, u); err != nil {
		_ = s.emails.Delete(ctx, email)
		return nil, fmt.Errorf("save user: %w", err)
	}

	event := UserRegistered{
		UserID:       u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         string(u.Role),
		RegisteredAt: now,
	}
	if u.SellerInfo != nil {
		event.BusinessName = u.SellerInfo.BusinessName
	}
	store.Record(ctx, s.eventStore, u.ID, AggregateType, EventUserRegistered, event)
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.users.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	owner, err := s.emails.Get(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, owner.UserID)
}

// Authenticate checks credentials and records the login
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrUserDeactivated
	}

	store.Record(ctx, s.eventStore, u.ID, AggregateType, EventUserLoggedIn, UserLoggedIn{
		UserID:   u.ID,
		LoggedAt: time.Now().UTC(),
	})
	return u, nil
}

// ChangePassword replaces the password after verifying the current one
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(currentPassword, u.PasswordHash) {
		return ErrIncorrectPassword
	}
	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.users.Update(ctx, userID, func(u *User) error {
		u.PasswordHash = passwordHash
		u.UpdatedAt = now
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	store.Record(ctx, s.eventStore, userID, AggregateType, EventUserPasswordChanged, UserPasswordChanged{
		UserID:    userID,
		ChangedAt: now,
	})
	return nil
}
