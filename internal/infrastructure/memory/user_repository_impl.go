package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-users-api/internal/domain/entity"
	"github.com/oksasatya/go-ddd-users-api/internal/domain/repository"
)

// UserRepository keeps users in process memory. Email uniqueness is checked
// and claimed under the same lock, so concurrent inserts cannot both win.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
	}
}

// emailKey is the exact email, the same comparison the unique indexes of the
// mongo and postgres stores make.
func emailKey(email string) string {
	return email
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u.Sanitized())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u.Sanitized(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.byID[id].Sanitized(), nil
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey(u.Email)
	if _, taken := r.byEmail[key]; taken {
		return repository.ErrDuplicateEmail
	}
	u.ID = uuid.NewString()
	stored := *u
	stored.Roles = append([]string{}, u.Roles...)
	r.byID[u.ID] = &stored
	r.byEmail[key] = u.ID
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	oldKey, newKey := emailKey(cur.Email), emailKey(u.Email)
	if oldKey != newKey {
		if _, taken := r.byEmail[newKey]; taken {
			return repository.ErrDuplicateEmail
		}
	}

	next := *u
	next.Roles = append([]string{}, u.Roles...)
	if next.Password == "" {
		next.Password = cur.Password
	}
	r.byID[u.ID] = &next
	if oldKey != newKey {
		delete(r.byEmail, oldKey)
		r.byEmail[newKey] = u.ID
	}
	return nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, emailKey(u.Email))
		delete(r.byID, id)
	}
	return nil
}

// password is exposed for tests in this package only.
func (r *UserRepository) password(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.byID[id]; ok {
		return u.Password
	}
	return ""
}

var _ repository.UserRepository = (*UserRepository)(nil)
