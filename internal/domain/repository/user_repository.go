package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ddd-users-api/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

// UserRepository defines the interface for user-related database operations.
// Insert and Update must report an email collision as ErrDuplicateEmail.
type UserRepository interface {
	FindAll(ctx context.Context) ([]*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Insert(ctx context.Context, u *entity.User) error
	Update(ctx context.Context, u *entity.User) error
	DeleteByID(ctx context.Context, id string) error
}
