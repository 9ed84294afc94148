package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-users-api/internal/domain/entity"
	"github.com/oksasatya/go-ddd-users-api/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-users-api/pkg/events"
)

type recordingPublisher struct {
	mu   sync.Mutex
	evts []events.UserEvent
	err  error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := body.(events.UserEvent); ok {
		p.evts = append(p.evts, ev)
	}
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.evts))
	for _, e := range p.evts {
		out = append(out, e.Type)
	}
	return out
}

type fakeIndex struct {
	indexed map[string]*entity.User
	removed []string
	hits    []*entity.User
	err     error
}

func newFakeIndex() *fakeIndex { return &fakeIndex{indexed: map[string]*entity.User{}} }

func (f *fakeIndex) Index(_ context.Context, u *entity.User) error {
	f.indexed[u.ID] = u
	return f.err
}

func (f *fakeIndex) Remove(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return f.err
}

func (f *fakeIndex) Search(_ context.Context, _ string, _ int) ([]*entity.User, error) {
	return f.hits, f.err
}

type failingRepo struct {
	*memory.UserRepository
	err error
}

func (f failingRepo) FindAll(context.Context) ([]*entity.User, error) { return nil, f.err }
func (f failingRepo) Insert(context.Context, *entity.User) error      { return f.err }

func newService(mode PatchMode) (*Service, *recordingPublisher, *fakeIndex) {
	pub := &recordingPublisher{}
	idx := newFakeIndex()
	return NewService(memory.NewUserRepository(), nil, pub, idx, mode), pub, idx
}

func ptr[T any](v T) *T { return &v }

func TestCreateForcesActiveAndUnverified(t *testing.T) {
	ctx := context.Background()
	svc, pub, idx := newService(PatchTruthy)

	u, err := svc.Create(ctx, CreateUserInput{Email: "ada@example.test", Password: "secret", Firstname: "Ada"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Empty(t, u.Password)

	got, err := svc.Show(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.False(t, got.Verified)
	assert.Equal(t, []string{}, got.Roles)
	assert.False(t, got.Created.IsZero())

	assert.Equal(t, []string{events.UserCreated}, pub.types())
	assert.Contains(t, idx.indexed, u.ID)
}

func TestCreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, pub, _ := newService(PatchTruthy)

	first, err := svc.Create(ctx, CreateUserInput{Email: "dup@example.test", Password: "one", Firstname: "First"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "dup@example.test", Password: "two", Firstname: "Second"})
	assert.ErrorIs(t, err, ErrUserExists)

	got, err := svc.Show(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Firstname)
	assert.Len(t, pub.types(), 1)
}

func TestConcurrentCreateSameEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(PatchTruthy)

	const workers = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		exists  int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Create(ctx, CreateUserInput{Email: "race@example.test", Password: "x"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrUserExists):
				exists++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, exists)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateEmptyPayloadLeavesRecord(t *testing.T) {
	for _, mode := range []PatchMode{PatchTruthy, PatchPresence} {
		t.Run(string(mode), func(t *testing.T) {
			ctx := context.Background()
			svc, _, _ := newService(mode)
			u, err := svc.Create(ctx, CreateUserInput{Email: "a@example.test", Password: "x", Firstname: "A", Lastname: "B"})
			require.NoError(t, err)

			got, err := svc.Update(ctx, u.ID, UpdateUserInput{})
			require.NoError(t, err)
			assert.Equal(t, u, got)
		})
	}
}

func TestUpdateTruthyIgnoresFalsyValues(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(PatchTruthy)
	u, err := svc.Create(ctx, CreateUserInput{Email: "a@example.test", Password: "x", Firstname: "A"})
	require.NoError(t, err)

	got, err := svc.Update(ctx, u.ID, UpdateUserInput{
		Active:    ptr(false),
		Firstname: ptr(""),
		Created:   ptr(time.Time{}),
	})
	require.NoError(t, err)
	assert.True(t, got.Active, "false does not take effect under the truthy policy")
	assert.Equal(t, "A", got.Firstname)
	assert.Equal(t, u.Created, got.Created)

	got, err = svc.Update(ctx, u.ID, UpdateUserInput{Verified: ptr(true), Lastname: ptr("L")})
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.Equal(t, "L", got.Lastname)
}

func TestUpdatePresenceAppliesFalsyValues(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(PatchPresence)
	u, err := svc.Create(ctx, CreateUserInput{Email: "a@example.test", Password: "x", Firstname: "A"})
	require.NoError(t, err)

	got, err := svc.Update(ctx, u.ID, UpdateUserInput{Active: ptr(false), Firstname: ptr("")})
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Empty(t, got.Firstname)

	again, err := svc.Show(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, again.Active)
}

func TestUpdateMissingAndConflict(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(PatchTruthy)

	_, err := svc.Update(ctx, "00000000-0000-4000-8000-000000000000", UpdateUserInput{Firstname: ptr("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)

	a, err := svc.Create(ctx, CreateUserInput{Email: "a@example.test", Password: "x"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateUserInput{Email: "b@example.test", Password: "x"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, a.ID, UpdateUserInput{Email: ptr("b@example.test")})
	assert.ErrorIs(t, err, ErrUserExists)
}

type lookupFailRepo struct {
	*memory.UserRepository
	err error
}

func (f lookupFailRepo) FindByID(context.Context, string) (*entity.User, error) { return nil, f.err }

func TestUpdateLookupFailureIsDistinct(t *testing.T) {
	boom := errors.New("socket closed")
	svc := NewService(lookupFailRepo{memory.NewUserRepository(), boom}, nil, nil, nil, PatchTruthy)

	_, err := svc.Update(context.Background(), "u1", UpdateUserInput{Firstname: ptr("x")})
	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "socket closed", err.Error())
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc, pub, idx := newService(PatchTruthy)
	u, err := svc.Create(ctx, CreateUserInput{Email: "a@example.test", Password: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, u.ID))
	_, err = svc.Show(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, svc.Remove(ctx, u.ID), "removing a missing id is not an error")
	assert.Equal(t, []string{u.ID, u.ID}, idx.removed)
	assert.Equal(t, []string{events.UserCreated, events.UserRemoved, events.UserRemoved}, pub.types())
}

func TestListEmptyAndStorageErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(PatchTruthy)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	boom := errors.New("server selection timeout")
	broken := NewService(failingRepo{UserRepository: memory.NewUserRepository(), err: boom}, nil, nil, nil, PatchTruthy)
	_, err = broken.List(ctx)
	assert.Equal(t, boom, err)
	_, err = broken.Create(ctx, CreateUserInput{Email: "a@example.test", Password: "x"})
	assert.Equal(t, boom, err)
}

func TestSideEffectFailuresDoNotFailWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("channel closed")}
	idx := newFakeIndex()
	idx.err = errors.New("es down")
	svc := NewService(memory.NewUserRepository(), nil, pub, idx, PatchTruthy)

	u, err := svc.Create(ctx, CreateUserInput{Email: "a@example.test", Password: "x"})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, u.ID))
}

func TestSearchUsers(t *testing.T) {
	ctx := context.Background()

	plain := NewService(memory.NewUserRepository(), nil, nil, nil, PatchTruthy)
	hits, err := plain.SearchUsers(ctx, "ada", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	svc, _, idx := newService(PatchTruthy)
	idx.hits = []*entity.User{{ID: "1", Email: "ada@example.test"}}
	hits, err = svc.SearchUsers(ctx, "ada", 500)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestParsePatchMode(t *testing.T) {
	assert.Equal(t, PatchPresence, ParsePatchMode("presence"))
	assert.Equal(t, PatchTruthy, ParsePatchMode("truthy"))
	assert.Equal(t, PatchTruthy, ParsePatchMode("whatever"))
}
