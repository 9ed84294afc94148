package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-users-api/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-users-api/internal/domain/repository"
	"github.com/oksasatya/go-ddd-users-api/pkg/events"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// LookupError is a storage failure while loading the record an update
// applies to, as opposed to a failure saving the merged record.
type LookupError struct {
	Err error
}

func (e *LookupError) Error() string { return e.Err.Error() }
func (e *LookupError) Unwrap() error { return e.Err }

// PatchMode decides which update fields overwrite the stored record.
type PatchMode string

const (
	// PatchTruthy applies a field only when it is present and non-zero,
	// so false, "" and the zero time never overwrite anything.
	PatchTruthy PatchMode = "truthy"
	// PatchPresence applies every field present in the payload.
	PatchPresence PatchMode = "presence"
)

// ParsePatchMode falls back to PatchTruthy for unknown values.
func ParsePatchMode(s string) PatchMode {
	if PatchMode(s) == PatchPresence {
		return PatchPresence
	}
	return PatchTruthy
}

// EventPublisher delivers user lifecycle events. Implemented by helpers.RabbitPublisher.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// SearchIndex mirrors users into a full-text index.
type SearchIndex interface {
	Index(ctx context.Context, u *entity.User) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]*entity.User, error)
}

type Service struct {
	Repo      repo.UserRepository
	Logger    *logrus.Logger
	Events    EventPublisher
	Search    SearchIndex
	PatchMode PatchMode
}

func NewService(repo repo.UserRepository, logger *logrus.Logger, pub EventPublisher, idx SearchIndex, mode PatchMode) *Service {
	return &Service{
		Repo:      repo,
		Logger:    logger,
		Events:    pub,
		Search:    idx,
		PatchMode: mode,
	}
}

type CreateUserInput struct {
	Firstname string
	Lastname  string
	Email     string
	Password  string
	Created   time.Time
}

// UpdateUserInput carries the fields of a partial update; nil means absent.
type UpdateUserInput struct {
	Firstname *string
	Lastname  *string
	Email     *string
	Created   *time.Time
	Password  *string
	Active    *bool
	Verified  *bool
}

func (s *Service) List(ctx context.Context) ([]*entity.User, error) {
	users, err := s.Repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*entity.User{}
	}
	return users, nil
}

func (s *Service) Show(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u.Sanitized(), nil
}

// Create inserts a new account. The store's unique email constraint is the
// only existence check, so concurrent creates for one email yield one winner.
func (s *Service) Create(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	u := entity.NewUser(in.Email, in.Password, in.Firstname, in.Lastname, in.Created)
	if err := s.Repo.Insert(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	out := u.Sanitized()
	s.afterWrite(ctx, events.UserCreated, out)
	return out, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateUserInput) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, &LookupError{Err: err}
	}

	s.merge(u, in)

	if err := s.Repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, ErrUserExists
		}
		return nil, err
	}
	out := u.Sanitized()
	s.afterWrite(ctx, events.UserUpdated, out)
	return out, nil
}

// Remove deletes by id; a missing id is not an error.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.Repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	if s.Search != nil {
		if err := s.Search.Remove(ctx, id); err != nil {
			s.warn(err, id, "search remove failed")
		}
	}
	s.publish(ctx, events.UserEvent{Type: events.UserRemoved, UserID: id, OccurredAt: time.Now().UTC()})
	return nil
}

// SearchUsers queries the search index; without one it returns no hits.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]*entity.User, error) {
	if s.Search == nil {
		return []*entity.User{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	hits, err := s.Search.Search(ctx, q, size)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []*entity.User{}
	}
	return hits, nil
}

func (s *Service) merge(u *entity.User, in UpdateUserInput) {
	u.Firstname = pick(s.PatchMode, in.Firstname, u.Firstname)
	u.Lastname = pick(s.PatchMode, in.Lastname, u.Lastname)
	u.Email = pick(s.PatchMode, in.Email, u.Email)
	u.Password = pick(s.PatchMode, in.Password, "")
	u.Active = pick(s.PatchMode, in.Active, u.Active)
	u.Verified = pick(s.PatchMode, in.Verified, u.Verified)
	if in.Created != nil && (s.PatchMode == PatchPresence || !in.Created.IsZero()) {
		u.Created = *in.Created
	}
}

func pick[T comparable](mode PatchMode, in *T, cur T) T {
	if in == nil {
		return cur
	}
	var zero T
	if mode != PatchPresence && *in == zero {
		return cur
	}
	return *in
}

func (s *Service) afterWrite(ctx context.Context, kind string, u *entity.User) {
	if s.Search != nil {
		if err := s.Search.Index(ctx, u); err != nil {
			s.warn(err, u.ID, "search index failed")
		}
	}
	s.publish(ctx, events.UserEvent{
		Type:       kind,
		UserID:     u.ID,
		Email:      u.Email,
		Firstname:  u.Firstname,
		Lastname:   u.Lastname,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *Service) publish(ctx context.Context, ev events.UserEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishJSON(ctx, ev); err != nil {
		s.warn(err, ev.UserID, "publish "+ev.Type+" failed")
	}
}

func (s *Service) warn(err error, userID, msg string) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithError(err).WithField("user_id", userID).Warn(msg)
}
