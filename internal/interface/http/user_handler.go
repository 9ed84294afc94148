package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/go-ddd-users-api/internal/application"
	"github.com/oksasatya/go-ddd-users-api/pkg/response"
	"github.com/oksasatya/go-ddd-users-api/pkg/validation"
)

const (
	msgNoSuchUser   = "No such user"
	msgUserExists   = "User already exists."
	msgListFailed   = "Error when getting users."
	msgShowFailed   = "Error when getting user."
	msgCreateFailed = "Error when creating user"
	msgRemoveFailed = "Error when removing user."
	msgSearchFailed = "Error when searching users."

	// Loading the record before an update and saving it report differently.
	msgUpdateLookupFailed = "Error when updating user"
	msgUpdateFailed       = "Error when updating user."
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type userIDParam struct {
	ID string `uri:"id" binding:"required,userid"`
}

type createUserRequest struct {
	Firstname string    `json:"firstname" binding:"max=100"`
	Lastname  string    `json:"lastname" binding:"max=100"`
	Email     string    `json:"email" binding:"required,email"`
	Created   time.Time `json:"created"`
	Password  string    `json:"password" binding:"required,pwd"`
	// active and verified are accepted but ignored: new accounts are always active and unverified.
	Active   *bool `json:"active"`
	Verified *bool `json:"verified"`
}

type updateUserRequest struct {
	Firstname *string    `json:"firstname" binding:"omitempty,max=100"`
	Lastname  *string    `json:"lastname" binding:"omitempty,max=100"`
	Email     *string    `json:"email" binding:"omitempty,email"`
	Created   *time.Time `json:"created"`
	Password  *string    `json:"password"`
	Active    *bool      `json:"active"`
	Verified  *bool      `json:"verified"`
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.List(c.Request.Context())
	if err != nil {
		h.storageError(c, msgListFailed, err)
		return
	}
	response.JSON(c, http.StatusOK, users)
}

func (h *UserHandler) Show(c *gin.Context) {
	var p userIDParam
	if err := c.ShouldBindUri(&p); err != nil {
		response.Invalid(c, http.StatusBadRequest, validation.ToErrors(err, validation.LocationParams))
		return
	}
	u, err := h.Svc.Show(c.Request.Context(), p.ID)
	if err != nil {
		if errors.Is(err, userapp.ErrUserNotFound) {
			response.Message(c, http.StatusNotFound, msgNoSuchUser)
			return
		}
		h.storageError(c, msgShowFailed, err)
		return
	}
	response.JSON(c, http.StatusOK, u)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, http.StatusUnprocessableEntity, validation.ToErrors(err, validation.LocationBody))
		return
	}
	u, err := h.Svc.Create(c.Request.Context(), userapp.CreateUserInput{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Password:  req.Password,
		Created:   req.Created,
	})
	if err != nil {
		// Disclosing that the account exists is deliberate.
		if errors.Is(err, userapp.ErrUserExists) {
			response.Message(c, http.StatusBadRequest, msgUserExists)
			return
		}
		h.storageError(c, msgCreateFailed, err)
		return
	}
	response.JSON(c, http.StatusCreated, u)
}

func (h *UserHandler) Update(c *gin.Context) {
	var p userIDParam
	if err := c.ShouldBindUri(&p); err != nil {
		response.Invalid(c, http.StatusBadRequest, validation.ToErrors(err, validation.LocationParams))
		return
	}
	var req updateUserRequest
	// An empty body is an empty patch.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Invalid(c, http.StatusBadRequest, validation.ToErrors(err, validation.LocationBody))
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), p.ID, userapp.UpdateUserInput{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Created:   req.Created,
		Password:  req.Password,
		Active:    req.Active,
		Verified:  req.Verified,
	})
	if err != nil {
		var lookupErr *userapp.LookupError
		switch {
		case errors.Is(err, userapp.ErrUserNotFound):
			response.Message(c, http.StatusNotFound, msgNoSuchUser)
		case errors.Is(err, userapp.ErrUserExists):
			response.Message(c, http.StatusBadRequest, msgUserExists)
		case errors.As(err, &lookupErr):
			h.storageError(c, msgUpdateLookupFailed, err)
		default:
			h.storageError(c, msgUpdateFailed, err)
		}
		return
	}
	response.JSON(c, http.StatusOK, u)
}

func (h *UserHandler) Remove(c *gin.Context) {
	var p userIDParam
	if err := c.ShouldBindUri(&p); err != nil {
		response.Invalid(c, http.StatusBadRequest, validation.ToErrors(err, validation.LocationParams))
		return
	}
	if err := h.Svc.Remove(c.Request.Context(), p.ID); err != nil {
		h.storageError(c, msgRemoveFailed, err)
		return
	}
	response.NoContent(c)
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	hits, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		h.storageError(c, msgSearchFailed, err)
		return
	}
	response.JSON(c, http.StatusOK, hits)
}

func (h *UserHandler) storageError(c *gin.Context, msg string, err error) {
	if h.Logger != nil {
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error(msg)
	}
	response.StorageError(c, msg, err)
}
