// Package userservice manages business logic layer of users.
package userservice

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/errorspkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/passpkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/tokenpkg"
)

// Repo provides data access layer interface needed by user service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package userservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, error)
	Get(ctx context.Context, username string) (domain.User, error)
}

// Service facilitates user service layer logic.
type Service struct {
	repo          Repo
	tokenMaker    tokenpkg.Maker
	tokenDuration time.Duration
}

// New return user service struct to manage user bussines logic.
func New(ur Repo, tokenMaker tokenpkg.Maker, tokenDuration time.Duration) *Service {
	return &Service{
		repo:          ur,
		tokenMaker:    tokenMaker,
		tokenDuration: tokenDuration,
	}
}

// NewUserWihtoutPassword returns user with removed sensitive data.
func NewUserWihtoutPassword(u domain.User) domain.UserWihtoutPassword {
	return domain.UserWihtoutPassword{
		Username:  u.Username,
		FullName:  u.FullName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Register creates the user and issues an access token for it.
func (s *Service) Register(ctx context.Context, arg domain.RegisterUserParams) (domain.AuthenticatedUser, error) {
	l := zerolog.Ctx(ctx)

	hashedPassword, err := passpkg.Hash(arg.Password)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.AuthenticatedUser{}, errorspkg.ErrInternal
	}

	user, err := s.repo.Create(ctx, domain.CreateUserParams{
		Username:       arg.Username,
		HashedPassword: hashedPassword,
		FullName:       arg.FullName,
		Email:          arg.Email,
	})
	if err != nil {
		return domain.AuthenticatedUser{}, err
	}

	return s.authenticate(ctx, user)
}

// Login checks the password of the user and issues an access token for it.
func (s *Service) Login(ctx context.Context, username, password string) (domain.AuthenticatedUser, error) {
	l := zerolog.Ctx(ctx)

	user, err := s.repo.Get(ctx, username)
	if err != nil {
		return domain.AuthenticatedUser{}, err
	}

	if err := passpkg.Check(password, user.HashedPassword); err != nil {
		l.Warn().Err(err).Str("username", username).Send()
		return domain.AuthenticatedUser{}, domain.ErrWrongPassword
	}

	return s.authenticate(ctx, user)
}

func (s *Service) authenticate(ctx context.Context, user domain.User) (domain.AuthenticatedUser, error) {
	token, payload, err := s.tokenMaker.CreateToken(user.Username, s.tokenDuration)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return domain.AuthenticatedUser{}, errorspkg.ErrInternal
	}

	return domain.AuthenticatedUser{
		User:                 NewUserWihtoutPassword(user),
		AccessToken:          token,
		AccessTokenExpiresAt: payload.ExpiredAt,
	}, nil
}
