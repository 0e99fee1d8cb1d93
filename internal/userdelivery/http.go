// Package userdelivery manages delivery layer of users.
package userdelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/errorspkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/web"
)

// Service provides service layer interface needed by user delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package userdelivery
type Service interface {
	Register(ctx context.Context, arg domain.RegisterUserParams) (domain.AuthenticatedUser, error)
	Login(ctx context.Context, username, password string) (domain.AuthenticatedUser, error)
}

// Handler facilitates user delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns user handler.
func NewHandler(us Service) *Handler {
	return &Handler{service: us}
}

type userData struct {
	User domain.UserWihtoutPassword `json:"user"`
}

func authenticatedResponse(u domain.AuthenticatedUser) web.Response {
	return web.Response{
		AccessToken:          u.AccessToken,
		AccessTokenExpiresAt: u.AccessTokenExpiresAt.Format(time.RFC3339),
		Data:                 userData{User: u.User},
	}
}

type createRequest struct {
	Username string `json:"username" binding:"required,alphanum"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"fullname" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

// Create handles http request to register a user.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	user, err := h.service.Register(ctx, domain.RegisterUserParams{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameAlreadyExists),
			errors.Is(err, domain.ErrEmailALreadyExists):
			gctx.JSON(http.StatusConflict, web.Error(err))
			return
		}

		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, authenticatedResponse(user))
}

type loginRequest struct {
	Username string `json:"username" binding:"required,alphanum"`
	Password string `json:"password" binding:"required,min=6"`
}

// Login handles http login request and returns user and access token.
func (h *Handler) Login(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req loginRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	user, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		case errors.Is(err, domain.ErrWrongPassword):
			gctx.JSON(http.StatusUnauthorized, web.Error(err))
			return
		}

		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, authenticatedResponse(user))
}
