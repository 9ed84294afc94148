package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userapp "github.com/oksasatya/go-ddd-users-api/internal/application"
	"github.com/oksasatya/go-ddd-users-api/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-users-api/internal/domain/repository"
	"github.com/oksasatya/go-ddd-users-api/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-users-api/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Init("uuid")
	m.Run()
}

type brokenRepo struct {
	*memory.UserRepository
}

var errBoom = errors.New("connection refused")

func (brokenRepo) FindAll(context.Context) ([]*entity.User, error)           { return nil, errBoom }
func (brokenRepo) FindByID(context.Context, string) (*entity.User, error)    { return nil, errBoom }
func (brokenRepo) DeleteByID(context.Context, string) error                  { return errBoom }
func (brokenRepo) FindByEmail(context.Context, string) (*entity.User, error) { return nil, errBoom }

// saveFailRepo loads records normally but cannot write updates.
type saveFailRepo struct {
	*memory.UserRepository
}

func (saveFailRepo) Update(context.Context, *entity.User) error { return errBoom }

func newRouter(r repo.UserRepository, mode userapp.PatchMode) *gin.Engine {
	h := NewUserHandler(userapp.NewService(r, nil, nil, nil, mode), nil)
	e := gin.New()
	api := e.Group("/api")
	api.GET("/users", h.List)
	api.POST("/users", h.Create)
	api.GET("/users/search", h.Search)
	api.GET("/users/:id", h.Show)
	api.PUT("/users/:id", h.Update)
	api.DELETE("/users/:id", h.Remove)
	return e
}

func do(e *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createUser(t *testing.T, e *gin.Engine, body string) map[string]any {
	t.Helper()
	w := do(e, http.MethodPost, "/api/users", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)
}

func TestListEmpty(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)
	w := do(e, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateForcesFlagsAndHidesPassword(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)
	u := createUser(t, e, `{"email":"ada@example.com","password":"s3cret","firstname":"Ada","active":false,"verified":true}`)

	assert.Equal(t, "ada@example.com", u["email"])
	assert.Equal(t, "Ada", u["firstname"])
	assert.Equal(t, true, u["active"])
	assert.Equal(t, false, u["verified"])
	assert.Equal(t, []any{}, u["roles"])
	assert.NotEmpty(t, u["created"])
	assert.NotContains(t, u, "password")
	_, err := uuid.Parse(u["_id"].(string))
	assert.NoError(t, err)

	w := do(e, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "s3cret")
}

func TestCreateDuplicate(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)
	createUser(t, e, `{"email":"ada@example.com","password":"x"}`)

	w := do(e, http.MethodPost, "/api/users", `{"email":"ada@example.com","password":"y"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"User already exists."}`, w.Body.String())
}

func TestCreateEmailsDifferingInCase(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)
	first := createUser(t, e, `{"email":"Ada@example.com","password":"x"}`)
	second := createUser(t, e, `{"email":"ada@example.com","password":"y"}`)
	assert.NotEqual(t, first["_id"], second["_id"])

	w := do(e, http.MethodPost, "/api/users", `{"email":"Ada@example.com","password":"z"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateInvalidBody(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)

	w := do(e, http.MethodPost, "/api/users", `{"email":"nope"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	errs := decode(t, w)["errors"].([]any)
	require.Len(t, errs, 2)
	fields := []string{}
	for _, raw := range errs {
		item := raw.(map[string]any)
		assert.Equal(t, validation.LocationBody, item["location"])
		fields = append(fields, item["field"].(string))
	}
	assert.ElementsMatch(t, []string{"email", "password"}, fields)

	w = do(e, http.MethodPost, "/api/users", `{"email":`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(e, http.MethodPost, "/api/users", `{"email":"a@b.test","password":"x","active":"yes"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestMalformedID(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := do(e, method, "/api/users/42", "")
		require.Equal(t, http.StatusBadRequest, w.Code, method)
		errs := decode(t, w)["errors"].([]any)
		require.Len(t, errs, 1)
		item := errs[0].(map[string]any)
		assert.Equal(t, "id", item["field"])
		assert.Equal(t, validation.LocationParams, item["location"])
	}
}

func TestMissingUser(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)
	id := uuid.NewString()

	w := do(e, http.MethodGet, "/api/users/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"No such user"}`, w.Body.String())

	w = do(e, http.MethodPut, "/api/users/"+id, `{"firstname":"X"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"No such user"}`, w.Body.String())

	w = do(e, http.MethodDelete, "/api/users/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestShowAndRemove(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)
	id := createUser(t, e, `{"email":"ada@example.com","password":"x"}`)["_id"].(string)

	w := do(e, http.MethodGet, "/api/users/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["_id"])

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/users/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/users/"+id, "").Code)
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/users/"+id, "").Code)
}

func TestUpdateEmptyBodyLeavesUserUnchanged(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)
	before := createUser(t, e, `{"email":"ada@example.com","password":"x","firstname":"Ada"}`)
	id := before["_id"].(string)

	for _, body := range []string{"", "{}"} {
		w := do(e, http.MethodPut, "/api/users/"+id, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, before, decode(t, w))
	}
}

func TestUpdateTruthyIgnoresFalse(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)
	id := createUser(t, e, `{"email":"ada@example.com","password":"x","firstname":"Ada"}`)["_id"].(string)

	w := do(e, http.MethodPut, "/api/users/"+id, `{"active":false,"firstname":"","lastname":"Lovelace","verified":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	u := decode(t, w)
	assert.Equal(t, true, u["active"])
	assert.Equal(t, true, u["verified"])
	assert.Equal(t, "Ada", u["firstname"])
	assert.Equal(t, "Lovelace", u["lastname"])
	assert.NotContains(t, u, "password")
}

func TestUpdatePresenceAppliesFalse(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchPresence)
	id := createUser(t, e, `{"email":"ada@example.com","password":"x","firstname":"Ada"}`)["_id"].(string)

	w := do(e, http.MethodPut, "/api/users/"+id, `{"active":false,"firstname":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	u := decode(t, w)
	assert.Equal(t, false, u["active"])
	assert.NotContains(t, u, "firstname")
}

func TestUpdateEmailCollision(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)
	createUser(t, e, `{"email":"ada@example.com","password":"x"}`)
	id := createUser(t, e, `{"email":"grace@example.com","password":"x"}`)["_id"].(string)

	w := do(e, http.MethodPut, "/api/users/"+id, `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"User already exists."}`, w.Body.String())

	w = do(e, http.MethodPut, "/api/users/"+id, `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"errors"`)
}

func TestConcurrentCreateSameEmail(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)

	const n = 25
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = do(e, http.MethodPost, "/api/users", `{"email":"race@example.com","password":"x"}`).Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, c := range codes {
		if c == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusBadRequest, c)
		}
	}
	assert.Equal(t, 1, created)

	w := do(e, http.MethodGet, "/api/users", "")
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestStorageErrors(t *testing.T) {
	e := newRouter(brokenRepo{memory.NewUserRepository()}, userapp.PatchTruthy)
	id := uuid.NewString()

	cases := []struct {
		method, path, msg string
	}{
		{http.MethodGet, "/api/users", "Error when getting users."},
		{http.MethodGet, "/api/users/" + id, "Error when getting user."},
		{http.MethodPut, "/api/users/" + id, "Error when updating user"},
		{http.MethodDelete, "/api/users/" + id, "Error when removing user."},
	}
	for _, tc := range cases {
		w := do(e, tc.method, tc.path, "")
		require.Equal(t, http.StatusInternalServerError, w.Code, tc.path)
		body := decode(t, w)
		assert.Equal(t, tc.msg, body["message"])
		assert.Equal(t, errBoom.Error(), body["error"])
	}
}

func TestUpdateSaveFailure(t *testing.T) {
	mem := memory.NewUserRepository()
	u := entity.NewUser("ada@example.com", "x", "", "", time.Time{})
	require.NoError(t, mem.Insert(context.Background(), u))
	e := newRouter(saveFailRepo{mem}, userapp.PatchTruthy)

	w := do(e, http.MethodPut, "/api/users/"+u.ID, `{"firstname":"Ada"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Error when updating user.", body["message"])
	assert.Equal(t, errBoom.Error(), body["error"])
}

func TestSearchWithoutIndex(t *testing.T) {
	e := newRouter(memory.NewUserRepository(), userapp.PatchTruthy)
	w := do(e, http.MethodGet, "/api/users/search?q=ada", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
