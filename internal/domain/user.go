package domain

import (
	"context"
	"database/sql"
	"time"
)

// User represents a registered account
type User struct {
	ID           string // generated text id
	Email        string // Unique email address
	PasswordHash string // Bcrypt hashed password (never returned in API responses)
	CreatedAt    time.Time
	UpdatedAt    sql.NullTime
	DeletedAt    sql.NullTime
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
}
