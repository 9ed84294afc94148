package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-users-api/internal/domain/entity"
	"github.com/oksasatya/go-ddd-users-api/internal/domain/repository"
)

const uniqueViolation = "23505"

const createUsersTable = `
	CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		password   TEXT NOT NULL,
		roles      TEXT[] NOT NULL DEFAULT '{}',
		firstname  TEXT NOT NULL DEFAULT '',
		lastname   TEXT NOT NULL DEFAULT '',
		created    TIMESTAMPTZ NOT NULL DEFAULT now(),
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		verified   BOOLEAN NOT NULL DEFAULT FALSE
	)
`

const selectUser = `SELECT id, email, roles, firstname, lastname, created, active, verified FROM users`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// EnsureSchema creates the users table when it does not exist yet.
func (r *UserRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createUsersTable); err != nil {
		return fmt.Errorf("ensure users table: %w", err)
	}
	return nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, selectUser+` ORDER BY created, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password, roles, firstname, lastname, created, active, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, u.Email, u.Password, rolesOrEmpty(u.Roles), u.Firstname, u.Lastname, u.Created, u.Active, u.Verified)
	if err != nil {
		return translateErr(err)
	}
	u.ID = id
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	if _, err := uuid.Parse(u.ID); err != nil {
		return repository.ErrNotFound
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $1, roles = $2, firstname = $3, lastname = $4, created = $5,
		    active = $6, verified = $7, password = COALESCE(NULLIF($8, ''), password)
		WHERE id = $9
	`, u.Email, rolesOrEmpty(u.Roles), u.Firstname, u.Lastname, u.Created, u.Active, u.Verified, u.Password, u.ID)
	if err != nil {
		return translateErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Roles, &u.Firstname, &u.Lastname, &u.Created, &u.Active, &u.Verified); err != nil {
		return nil, err
	}
	u.Roles = rolesOrEmpty(u.Roles)
	return u, nil
}

func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicateEmail
	}
	return err
}

func rolesOrEmpty(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}

var _ repository.UserRepository = (*UserRepository)(nil)
